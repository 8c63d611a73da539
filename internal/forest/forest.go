package forest

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"hotelcancel/internal/errors"
)

// Params are the forest hyperparameters. They are fixed configuration, not tuned.
type Params struct {
	NEstimators     int     `json:"n_estimators"`
	MaxFeatures     float64 `json:"max_features"`
	MinSamplesSplit int     `json:"min_samples_split"`
	MaxDepth        int     `json:"max_depth"`
	Bootstrap       bool    `json:"bootstrap"`
	Workers         int     `json:"n_jobs"`
	RandomState     int64   `json:"random_state"`
}

// DefaultParams returns the cancellation model configuration:
// 160 trees, 40% of features per split, all cores, seed 0.
func DefaultParams() Params {
	return Params{
		NEstimators:     160,
		MaxFeatures:     0.4,
		MinSamplesSplit: 2,
		MaxDepth:        0,
		Bootstrap:       true,
		Workers:         -1,
		RandomState:     0,
	}
}

// Validate rejects configurations that cannot train
func (p Params) Validate() error {
	if p.NEstimators < 1 {
		return errors.ConfigInvalid("n_estimators must be at least 1")
	}
	if p.MaxFeatures <= 0 || p.MaxFeatures > 1 {
		return errors.ConfigInvalid("max_features must be in (0, 1]")
	}
	if p.MinSamplesSplit < 2 {
		return errors.ConfigInvalid("min_samples_split must be at least 2")
	}
	if p.MaxDepth < 0 {
		return errors.ConfigInvalid("max_depth must not be negative")
	}
	return nil
}

// MaxFeaturesFor converts the fraction into a per-split candidate count
func (p Params) MaxFeaturesFor(nFeatures int) int {
	k := int(p.MaxFeatures * float64(nFeatures))
	if k < 1 {
		k = 1
	}
	if k > nFeatures {
		k = nFeatures
	}
	return k
}

// WorkerCount resolves non-positive worker settings to the number of CPUs
func (p Params) WorkerCount() int {
	return ResolveWorkers(p.Workers)
}

// ResolveWorkers maps n <= 0 to runtime.NumCPU()
func ResolveWorkers(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// Describe renders the parameters for experiment tracking
func (p Params) Describe() map[string]string {
	return map[string]string{
		"n_estimators":      strconv.Itoa(p.NEstimators),
		"max_features":      strconv.FormatFloat(p.MaxFeatures, 'f', -1, 64),
		"min_samples_split": strconv.Itoa(p.MinSamplesSplit),
		"max_depth":         strconv.Itoa(p.MaxDepth),
		"bootstrap":         strconv.FormatBool(p.Bootstrap),
		"n_jobs":            strconv.Itoa(p.Workers),
		"random_state":      strconv.FormatInt(p.RandomState, 10),
	}
}

// RandomForest is a bagged ensemble of CART trees.
// Trees are grown concurrently, each from its own seed drawn up front,
// so the fitted forest does not depend on goroutine scheduling.
type RandomForest struct {
	Params      Params          `json:"params"`
	Classes     []int           `json:"classes"`
	NumFeatures int             `json:"num_features"`
	Trees       []*DecisionTree `json:"trees"`
}

// NewRandomForest creates an unfitted forest
func NewRandomForest(p Params) *RandomForest {
	return &RandomForest{Params: p}
}

// Clone returns an unfitted forest with the same parameters
func (rf *RandomForest) Clone() *RandomForest {
	return NewRandomForest(rf.Params)
}

// Fitted reports whether Fit has completed
func (rf *RandomForest) Fitted() bool {
	return len(rf.Trees) > 0
}

// Fit grows NEstimators trees on bootstrap samples of (X, y)
func (rf *RandomForest) Fit(ctx context.Context, X *mat.Dense, y []int) error {
	if err := rf.Params.Validate(); err != nil {
		return err
	}
	n, p := X.Dims()
	if n != len(y) {
		return errors.DimensionMismatch("label count", n, len(y))
	}

	classes, encoded := encodeLabels(y)
	raw := X.RawMatrix()

	master := rand.New(rand.NewSource(rf.Params.RandomState))
	seeds := make([]int64, rf.Params.NEstimators)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	trees := make([]*DecisionTree, rf.Params.NEstimators)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rf.Params.WorkerCount())
	for i := range trees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(seeds[i]))
			samples := make([]int, n)
			for j := range samples {
				if rf.Params.Bootstrap {
					samples[j] = rng.Intn(n)
				} else {
					samples[j] = j
				}
			}
			builder := newTreeBuilder(raw.Data, raw.Stride, p, encoded, len(classes), rf.Params, rng)
			trees[i] = builder.fit(samples)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "growing forest")
	}

	rf.Classes = classes
	rf.NumFeatures = p
	rf.Trees = trees
	return nil
}

// PredictProba averages tree class distributions; columns follow Classes
func (rf *RandomForest) PredictProba(X *mat.Dense) (*mat.Dense, error) {
	if !rf.Fitted() {
		return nil, errors.InternalError("random forest is not fitted yet")
	}
	n, p := X.Dims()
	if p != rf.NumFeatures {
		return nil, errors.DimensionMismatch("feature count", rf.NumFeatures, p)
	}

	out := mat.NewDense(n, len(rf.Classes), nil)
	scale := 1 / float64(len(rf.Trees))
	for i := 0; i < n; i++ {
		row := X.RawRowView(i)
		acc := out.RawRowView(i)
		for _, t := range rf.Trees {
			for c, v := range t.predictProba(row) {
				acc[c] += v
			}
		}
		for c := range acc {
			acc[c] *= scale
		}
	}
	return out, nil
}

// Predict returns the most probable class label for each row;
// ties resolve to the smallest label.
func (rf *RandomForest) Predict(X *mat.Dense) ([]int, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	n, _ := proba.Dims()
	out := make([]int, n)
	for i := 0; i < n; i++ {
		row := proba.RawRowView(i)
		best := 0
		for c := 1; c < len(row); c++ {
			if row[c] > row[best] {
				best = c
			}
		}
		out[i] = rf.Classes[best]
	}
	return out, nil
}

// String summarises the fitted forest
func (rf *RandomForest) String() string {
	return fmt.Sprintf("RandomForest(trees=%d, classes=%v, features=%d)", len(rf.Trees), rf.Classes, rf.NumFeatures)
}

// encodeLabels maps labels onto 0..k-1 in ascending label order
func encodeLabels(y []int) ([]int, []int) {
	seen := make(map[int]struct{})
	for _, v := range y {
		seen[v] = struct{}{}
	}
	classes := make([]int, 0, len(seen))
	for v := range seen {
		classes = append(classes, v)
	}
	sort.Ints(classes)

	index := make(map[int]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	encoded := make([]int, len(y))
	for i, v := range y {
		encoded[i] = index[v]
	}
	return classes, encoded
}
