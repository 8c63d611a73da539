package dataset

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cast"

	"hotelcancel/internal/errors"
)

// missingTokens mirrors the NA markers recognised by common CSV tooling
var missingTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NULL": {}, "null": {}, "NaN": {}, "nan": {},
	"-NaN": {}, "-nan": {}, "None": {}, "<NA>": {}, "#N/A": {}, "#NA": {}, "#N/A N/A": {},
}

// IsMissing reports whether a raw cell value should be treated as absent
func IsMissing(value string) bool {
	_, ok := missingTokens[strings.TrimSpace(value)]
	return ok
}

// Table is an in-memory tabular dataset with string cells.
// Rows are never mutated after construction; Select and Subset share cell storage.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// NewTable validates headers and row widths
func NewTable(headers []string, rows [][]string) (*Table, error) {
	seen := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		if _, dup := seen[h]; dup {
			return nil, errors.MalformedInput(fmt.Sprintf("duplicate column %q", h), nil)
		}
		seen[h] = struct{}{}
	}
	for i, row := range rows {
		if len(row) != len(headers) {
			return nil, errors.MalformedInput(
				fmt.Sprintf("row %d has %d fields, header has %d", i+1, len(row), len(headers)), nil)
		}
	}
	return &Table{Headers: headers, Rows: rows}, nil
}

// NumRows returns the number of data rows
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// NumCols returns the number of columns
func (t *Table) NumCols() int {
	return len(t.Headers)
}

// ColumnIndex returns the position of a column
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, h := range t.Headers {
		if h == name {
			return i, true
		}
	}
	return -1, false
}

// Column returns a copy of a column's values
func (t *Table) Column(name string) ([]string, error) {
	idx, ok := t.ColumnIndex(name)
	if !ok {
		return nil, errors.MissingColumn(name)
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Select projects the table onto the given columns in the given order.
// Every absent column is reported in a single MISSING_COLUMN error.
func (t *Table) Select(columns []string) (*Table, error) {
	indices := make([]int, len(columns))
	var missing []string
	for i, c := range columns {
		idx, ok := t.ColumnIndex(c)
		if !ok {
			missing = append(missing, c)
			continue
		}
		indices[i] = idx
	}
	if len(missing) > 0 {
		return nil, errors.MissingColumn(missing...)
	}

	rows := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		projected := make([]string, len(indices))
		for j, idx := range indices {
			projected[j] = row[idx]
		}
		rows[r] = projected
	}
	headers := append([]string(nil), columns...)
	return &Table{Headers: headers, Rows: rows}, nil
}

// Subset returns the rows at the given indices, in that order
func (t *Table) Subset(indices []int) *Table {
	rows := make([][]string, len(indices))
	for i, idx := range indices {
		rows[i] = t.Rows[idx]
	}
	return &Table{Headers: t.Headers, Rows: rows}
}

// Labels parses a column of integer class labels
func (t *Table) Labels(column string) ([]int, error) {
	values, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	labels := make([]int, len(values))
	for i, v := range values {
		if IsMissing(v) {
			return nil, errors.MalformedInput(fmt.Sprintf("row %d: missing label in %q", i+1, column), nil)
		}
		f, err := cast.ToFloat64E(strings.TrimSpace(v))
		if err != nil || f != math.Trunc(f) {
			return nil, errors.MalformedInput(fmt.Sprintf("row %d: label %q in %q is not an integer", i+1, v, column), err)
		}
		labels[i] = int(f)
	}
	return labels, nil
}
