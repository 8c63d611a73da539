package crossval

import (
	"context"

	"golang.org/x/sync/errgroup"

	"hotelcancel/domain/dataset"
	"hotelcancel/internal/errors"
	"hotelcancel/internal/metrics"
)

// Estimator is a fit/predict unit over raw feature tables
type Estimator interface {
	Fit(ctx context.Context, X *dataset.Table, y []int) error
	Predict(X *dataset.Table) ([]int, error)
}

// Factory returns a fresh, unfitted estimator
type Factory func() Estimator

// Score fits a fresh estimator per fold on the training rows only and returns
// validation accuracy per fold, in fold order. Folds run concurrently on at
// most workers goroutines; any failure cancels the rest and no scores are returned.
func Score(ctx context.Context, newEstimator Factory, X *dataset.Table, y []int, kfold KFold, workers int) ([]float64, error) {
	if X.NumRows() != len(y) {
		return nil, errors.DimensionMismatch("label count", X.NumRows(), len(y))
	}
	folds, err := kfold.Split(len(y))
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(folds))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, fold := range folds {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			estimator := newEstimator()
			if err := estimator.Fit(gctx, X.Subset(fold.Train), Take(y, fold.Train)); err != nil {
				return errors.Wrapf(err, "fold %d: fit failed", i+1)
			}
			pred, err := estimator.Predict(X.Subset(fold.Test))
			if err != nil {
				return errors.Wrapf(err, "fold %d: predict failed", i+1)
			}
			acc, err := metrics.Accuracy(Take(y, fold.Test), pred)
			if err != nil {
				return errors.Wrapf(err, "fold %d: scoring failed", i+1)
			}
			scores[i] = acc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

// Take returns y at the given indices
func Take(y []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}
