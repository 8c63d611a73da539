package preprocess

import "sort"

// OneHotEncoder maps a categorical column onto indicator columns.
// Categories are kept sorted so the layout does not depend on row order;
// unseen values encode as an all-zero block.
type OneHotEncoder struct {
	Categories []string `json:"categories"`
}

// Fit records the distinct values of a column
func (e *OneHotEncoder) Fit(values []string) {
	seen := make(map[string]struct{})
	for _, v := range values {
		seen[v] = struct{}{}
	}
	categories := make([]string, 0, len(seen))
	for v := range seen {
		categories = append(categories, v)
	}
	sort.Strings(categories)
	e.Categories = categories
}

// Width is the number of indicator columns produced
func (e *OneHotEncoder) Width() int {
	return len(e.Categories)
}

// Lookup returns the indicator position of a value, or false when it was not seen at fit time
func (e *OneHotEncoder) Lookup(value string) (int, bool) {
	i := sort.SearchStrings(e.Categories, value)
	if i < len(e.Categories) && e.Categories[i] == value {
		return i, true
	}
	return 0, false
}
