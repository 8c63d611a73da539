package preprocess

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"hotelcancel/domain/dataset"
	"hotelcancel/internal/errors"
)

// ImputeNumeric parses a numeric column, substituting fill for missing cells
func ImputeNumeric(column string, values []string, fill float64) ([]float64, error) {
	out := make([]float64, len(values))
	for i, v := range values {
		if dataset.IsMissing(v) {
			out[i] = fill
			continue
		}
		f, err := cast.ToFloat64E(strings.TrimSpace(v))
		if err != nil {
			return nil, errors.MalformedInput(
				fmt.Sprintf("column %q row %d: cannot convert %q to a number", column, i+1, v), err)
		}
		out[i] = f
	}
	return out, nil
}

// ImputeConstant replaces missing categorical cells with a fixed constant
func ImputeConstant(values []string, constant string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		if dataset.IsMissing(v) {
			out[i] = constant
		} else {
			out[i] = v
		}
	}
	return out
}
