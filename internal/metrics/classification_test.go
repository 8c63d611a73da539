package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelcancel/internal/errors"
)

func TestAccuracy(t *testing.T) {
	acc, err := Accuracy([]int{0, 1, 1, 0}, []int{0, 1, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.75, acc)

	_, err = Accuracy([]int{0}, []int{0, 1})
	assert.Equal(t, errors.CodeDimensionMismatch, errors.GetCode(err))
	_, err = Accuracy(nil, nil)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestClassificationMatchesHandComputation(t *testing.T) {
	yTrue := []int{0, 0, 0, 1, 1, 1, 1, 1}
	yPred := []int{0, 0, 1, 1, 1, 1, 0, 1}

	// class 0: tp=2 fp=1 fn=1 -> p=2/3 r=2/3 support=3
	// class 1: tp=4 fp=1 fn=1 -> p=4/5 r=4/5 support=5
	r, err := Classification(yTrue, yPred)
	require.NoError(t, err)
	want := (3*(2.0/3) + 5*(4.0/5)) / 8
	assert.InDelta(t, want, r.Precision, 1e-12)
	assert.InDelta(t, want, r.Recall, 1e-12)
	assert.InDelta(t, want, r.F1, 1e-12)
}

func TestClassificationUnpredictedClassScoresZero(t *testing.T) {
	yTrue := []int{0, 0, 1, 1}
	yPred := []int{0, 0, 0, 0}

	perClass, err := PerClass(yTrue, yPred)
	require.NoError(t, err)
	require.Len(t, perClass, 2)
	assert.Equal(t, 0.0, perClass[1].Precision)
	assert.Equal(t, 0.0, perClass[1].F1)

	r, err := Classification(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, r.Precision, 1e-12)
	assert.InDelta(t, 0.5, r.Recall, 1e-12)
}

func TestClassificationPredictedOnlyClassHasNoWeight(t *testing.T) {
	r, err := Classification([]int{1, 1}, []int{1, 7})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r.Precision, 1e-12)
	assert.InDelta(t, 0.5, r.Recall, 1e-12)
}
