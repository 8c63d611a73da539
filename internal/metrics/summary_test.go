package metrics

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelcancel/internal/errors"
)

func TestSummarizeKnownValues(t *testing.T) {
	s, err := Summarize([]float64{0.8, 0.9, 0.85, 0.95}, DefaultPrecision)
	require.NoError(t, err)

	assert.Equal(t, 0.875, s.Mean)
	assert.Equal(t, 0.0559, s.StdDev)
	assert.Equal(t, 0.8, s.Min)
	assert.Equal(t, 0.95, s.Max)
}

func TestSummarizeIsPermutationInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	scores := make([]float64, 10)
	for i := range scores {
		scores[i] = rng.Float64()
	}
	want, err := Summarize(scores, DefaultPrecision)
	require.NoError(t, err)

	for trial := 0; trial < 20; trial++ {
		shuffled := append([]float64(nil), scores...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got, err := Summarize(shuffled, DefaultPrecision)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.GreaterOrEqual(t, want.Mean, want.Min)
	assert.LessOrEqual(t, want.Mean, want.Max)
}

func TestSummarizeEmpty(t *testing.T) {
	_, err := Summarize(nil, DefaultPrecision)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestSummarizeDoesNotMutateInput(t *testing.T) {
	scores := []float64{0.9, 0.1, 0.5}
	_, err := Summarize(scores, DefaultPrecision)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.9, 0.1, 0.5}, scores)
}

func TestSummaryAsMapAndMerge(t *testing.T) {
	s := Summary{Mean: 0.5, StdDev: 0.1, Min: 0.4, Max: 0.6}
	merged := Merge(s.AsMap(), Report{Precision: 0.7, Recall: 0.6, F1: 0.65}.AsMap())
	assert.Len(t, merged, 7)
	for _, key := range []string{KeyMeanScore, KeyStdDev, KeyMinScore, KeyMaxScore, KeyPrecision, KeyRecall, KeyF1} {
		assert.Contains(t, merged, key)
	}
}

func TestRound(t *testing.T) {
	rounded := Round(map[string]float64{"a": 0.123456, "b": 0.98767}, 4)
	assert.Equal(t, 0.1235, rounded["a"])
	assert.Equal(t, 0.9877, rounded["b"])
}
