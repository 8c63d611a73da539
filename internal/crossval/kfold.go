package crossval

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"hotelcancel/internal/errors"
)

// Fold holds the row indices of one train/validation partition
type Fold struct {
	Train []int
	Test  []int
}

// KFold partitions rows into Splits consecutive folds, optionally after a
// seeded shuffle. The first n%Splits folds get one extra row.
type KFold struct {
	Splits  int   `json:"n_splits"`
	Shuffle bool  `json:"shuffle"`
	Seed    int64 `json:"random_state"`
}

// Split returns the folds for n rows. Identical (n, Splits, Seed) always
// produce identical folds.
func (k KFold) Split(n int) ([]Fold, error) {
	if k.Splits < 2 {
		return nil, errors.InvalidInput(fmt.Sprintf("k-fold cross-validation requires at least 2 splits, got %d", k.Splits))
	}
	if n < k.Splits {
		return nil, errors.InvalidInput(
			fmt.Sprintf("cannot have number of splits %d greater than the number of samples %d", k.Splits, n))
	}

	order := make([]int, n)
	if k.Shuffle {
		order = rand.New(rand.NewSource(k.Seed)).Perm(n)
	} else {
		for i := range order {
			order[i] = i
		}
	}

	folds := make([]Fold, 0, k.Splits)
	start := 0
	for f := 0; f < k.Splits; f++ {
		size := n / k.Splits
		if f < n%k.Splits {
			size++
		}
		test := append([]int(nil), order[start:start+size]...)

		inTest := make(map[int]struct{}, size)
		for _, i := range test {
			inTest[i] = struct{}{}
		}
		train := make([]int, 0, n-size)
		for i := 0; i < n; i++ {
			if _, ok := inTest[i]; !ok {
				train = append(train, i)
			}
		}
		folds = append(folds, Fold{Train: train, Test: test})
		start += size
	}
	return folds, nil
}

// TrainTestSplit shuffles n rows with a seed and holds out ceil(testFraction*n)
// of them. Train indices are returned in ascending order.
func TrainTestSplit(n int, testFraction float64, seed int64) (train, test []int, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, errors.InvalidInput(fmt.Sprintf("test fraction must be in (0, 1), got %g", testFraction))
	}
	nTest := int(math.Ceil(testFraction * float64(n)))
	if nTest == 0 || nTest >= n {
		return nil, nil, errors.InvalidInput(
			fmt.Sprintf("with n_samples=%d and test fraction %g the train or test set would be empty", n, testFraction))
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	test = append([]int(nil), perm[:nTest]...)
	train = append([]int(nil), perm[nTest:]...)
	sort.Ints(train)
	return train, test, nil
}
