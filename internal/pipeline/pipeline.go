package pipeline

import (
	"context"
	"encoding/gob"
	"fmt"
	"io"

	"hotelcancel/domain/dataset"
	"hotelcancel/internal/crossval"
	"hotelcancel/internal/errors"
	"hotelcancel/internal/forest"
	"hotelcancel/internal/preprocess"
)

// Pipeline chains the column transformer and the random forest into a single
// fit/predict unit over raw feature tables
type Pipeline struct {
	Preprocessor *preprocess.ColumnTransformer
	Model        *forest.RandomForest
}

var _ crossval.Estimator = (*Pipeline)(nil)

// New composes an unfitted pipeline
func New(pre *preprocess.ColumnTransformer, params forest.Params) *Pipeline {
	return &Pipeline{
		Preprocessor: pre.Clone(),
		Model:        forest.NewRandomForest(params),
	}
}

// Clone returns an unfitted pipeline with identical configuration
func (p *Pipeline) Clone() *Pipeline {
	return &Pipeline{
		Preprocessor: p.Preprocessor.Clone(),
		Model:        p.Model.Clone(),
	}
}

// Factory builds fresh clones for cross-validation
func (p *Pipeline) Factory() crossval.Factory {
	return func() crossval.Estimator { return p.Clone() }
}

// Spec is the feature layout the pipeline was built for
func (p *Pipeline) Spec() dataset.FeatureSpec {
	return p.Preprocessor.Spec
}

// Fitted reports whether both steps have been fit
func (p *Pipeline) Fitted() bool {
	return p.Preprocessor.Fitted && p.Model.Fitted()
}

// Fit learns preprocessing statistics from X, then trains the forest on the
// transformed matrix
func (p *Pipeline) Fit(ctx context.Context, X *dataset.Table, y []int) error {
	if X.NumRows() != len(y) {
		return errors.DimensionMismatch("label count", X.NumRows(), len(y))
	}
	matrix, err := p.Preprocessor.FitTransform(X)
	if err != nil {
		return errors.Wrap(err, "preprocessing")
	}
	if err := p.Model.Fit(ctx, matrix, y); err != nil {
		return errors.Wrap(err, "training random forest")
	}
	return nil
}

// Predict transforms X with the fitted preprocessor and predicts labels
func (p *Pipeline) Predict(X *dataset.Table) ([]int, error) {
	if !p.Fitted() {
		return nil, errors.InternalError("pipeline is not fitted yet")
	}
	matrix, err := p.Preprocessor.Transform(X)
	if err != nil {
		return nil, errors.Wrap(err, "preprocessing")
	}
	return p.Model.Predict(matrix)
}

// CheckSpec fails when a later stage brings a different feature layout
func (p *Pipeline) CheckSpec(spec dataset.FeatureSpec) error {
	return checkSpec(p.Spec(), spec)
}

func checkSpec(have, want dataset.FeatureSpec) error {
	if have.Equal(want) {
		return nil
	}
	if len(have.Numeric) != len(want.Numeric) {
		return errors.DimensionMismatch("numeric feature count", len(want.Numeric), len(have.Numeric))
	}
	if len(have.Categorical) != len(want.Categorical) {
		return errors.DimensionMismatch("categorical feature count", len(want.Categorical), len(have.Categorical))
	}
	return errors.New(errors.CodeMissingColumn,
		fmt.Sprintf("feature layout differs: pipeline has %v, expected %v", have.Features(), want.Features()))
}

// Encode writes the pipeline in gob format
func (p *Pipeline) Encode(w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(p); err != nil {
		return errors.Wrap(err, "encoding pipeline")
	}
	return nil
}

// Decode reads a gob-encoded pipeline
func Decode(r io.Reader) (*Pipeline, error) {
	var p Pipeline
	if err := gob.NewDecoder(r).Decode(&p); err != nil {
		return nil, errors.MalformedInput("decoding pipeline", err)
	}
	if p.Preprocessor == nil || p.Model == nil {
		return nil, errors.MalformedInput("decoded pipeline is incomplete", nil)
	}
	return &p, nil
}
