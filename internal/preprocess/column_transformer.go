package preprocess

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"hotelcancel/domain/dataset"
	"hotelcancel/internal/errors"
)

const (
	// DefaultNumericFill replaces missing numeric cells
	DefaultNumericFill = 0.0
	// DefaultCategoricalFill replaces missing categorical cells before encoding
	DefaultCategoricalFill = "Unknown"
	// HandleUnknownIgnore encodes unseen categories as all zeros
	HandleUnknownIgnore = "ignore"
	// HandleUnknownError fails on unseen categories
	HandleUnknownError = "error"
)

// ColumnTransformer imputes numeric features and imputes then one-hot encodes
// categorical features. It is built unfitted; Fit derives the category sets
// from whatever table it is given, so fitting on a training partition only
// keeps validation rows out of the encoding.
type ColumnTransformer struct {
	Spec            dataset.FeatureSpec `json:"spec"`
	NumericFill     float64             `json:"numeric_fill"`
	CategoricalFill string              `json:"categorical_fill"`
	HandleUnknown   string              `json:"handle_unknown"`
	Encoders        []OneHotEncoder     `json:"encoders,omitempty"`
	Fitted          bool                `json:"fitted"`
}

// NewColumnTransformer builds the preprocessing plan for a feature spec
func NewColumnTransformer(spec dataset.FeatureSpec) *ColumnTransformer {
	return &ColumnTransformer{
		Spec:            spec,
		NumericFill:     DefaultNumericFill,
		CategoricalFill: DefaultCategoricalFill,
		HandleUnknown:   HandleUnknownIgnore,
	}
}

// Clone returns an unfitted copy with the same configuration
func (c *ColumnTransformer) Clone() *ColumnTransformer {
	return &ColumnTransformer{
		Spec:            c.Spec,
		NumericFill:     c.NumericFill,
		CategoricalFill: c.CategoricalFill,
		HandleUnknown:   c.HandleUnknown,
	}
}

// Fit learns the categories of every categorical feature
func (c *ColumnTransformer) Fit(t *dataset.Table) error {
	selected, err := t.Select(c.Spec.Features())
	if err != nil {
		return errors.Wrap(err, "fitting column transformer")
	}
	if selected.NumRows() == 0 {
		return errors.InvalidInput("cannot fit column transformer on an empty table")
	}

	encoders := make([]OneHotEncoder, len(c.Spec.Categorical))
	for j, name := range c.Spec.Categorical {
		values, _ := selected.Column(name)
		encoders[j].Fit(ImputeConstant(values, c.CategoricalFill))
	}
	c.Encoders = encoders
	c.Fitted = true
	return nil
}

// NumOutputs is the width of the transformed matrix
func (c *ColumnTransformer) NumOutputs() int {
	width := len(c.Spec.Numeric)
	for _, e := range c.Encoders {
		width += e.Width()
	}
	return width
}

// FeatureNames lists output columns as num__<col> and cat__<col>_<value>
func (c *ColumnTransformer) FeatureNames() []string {
	names := make([]string, 0, c.NumOutputs())
	for _, n := range c.Spec.Numeric {
		names = append(names, "num__"+n)
	}
	for j, n := range c.Spec.Categorical {
		if j >= len(c.Encoders) {
			break
		}
		for _, cat := range c.Encoders[j].Categories {
			names = append(names, fmt.Sprintf("cat__%s_%s", n, cat))
		}
	}
	return names
}

// Transform produces the numeric design matrix. Extra columns in t are ignored.
func (c *ColumnTransformer) Transform(t *dataset.Table) (*mat.Dense, error) {
	if !c.Fitted {
		return nil, errors.InternalError("column transformer is not fitted yet")
	}
	if len(c.Encoders) != len(c.Spec.Categorical) {
		return nil, errors.DimensionMismatch("fitted categorical encoders", len(c.Spec.Categorical), len(c.Encoders))
	}
	selected, err := t.Select(c.Spec.Features())
	if err != nil {
		return nil, errors.Wrap(err, "transforming features")
	}
	rows := selected.NumRows()
	if rows == 0 {
		return nil, errors.InvalidInput("cannot transform an empty table")
	}

	out := mat.NewDense(rows, c.NumOutputs(), nil)
	for j, name := range c.Spec.Numeric {
		raw, _ := selected.Column(name)
		values, err := ImputeNumeric(name, raw, c.NumericFill)
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			out.Set(i, j, v)
		}
	}

	offset := len(c.Spec.Numeric)
	for j, name := range c.Spec.Categorical {
		raw, _ := selected.Column(name)
		encoder := &c.Encoders[j]
		for i, v := range ImputeConstant(raw, c.CategoricalFill) {
			pos, ok := encoder.Lookup(v)
			if !ok {
				if c.HandleUnknown == HandleUnknownError {
					return nil, errors.MalformedInput(
						fmt.Sprintf("column %q row %d: unknown category %q", name, i+1, v), nil)
				}
				continue
			}
			out.Set(i, offset+pos, 1)
		}
		offset += encoder.Width()
	}
	return out, nil
}

// FitTransform fits on t and transforms it
func (c *ColumnTransformer) FitTransform(t *dataset.Table) (*mat.Dense, error) {
	if err := c.Fit(t); err != nil {
		return nil, err
	}
	return c.Transform(t)
}
