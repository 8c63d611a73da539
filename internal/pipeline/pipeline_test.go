package pipeline

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelcancel/domain/dataset"
	"hotelcancel/internal/crossval"
	"hotelcancel/internal/errors"
	"hotelcancel/internal/forest"
	"hotelcancel/internal/preprocess"
	"hotelcancel/internal/testkit"
)

func bookings(t *testing.T, rows int) (*dataset.Table, []int) {
	t.Helper()
	cfg := testkit.DefaultBookingConfig()
	cfg.Rows = rows
	table, err := testkit.NewBookingGenerator(cfg).Generate()
	require.NoError(t, err)
	X, y, err := dataset.HotelBookingSpec().Split(table)
	require.NoError(t, err)
	return X, y
}

func newTestPipeline() *Pipeline {
	params := forest.DefaultParams()
	params.NEstimators = 20
	params.Workers = 2
	return New(preprocess.NewColumnTransformer(dataset.HotelBookingSpec()), params)
}

func TestPipelineFitPredict(t *testing.T) {
	X, y := bookings(t, 120)
	p := newTestPipeline()
	require.NoError(t, p.Fit(context.Background(), X, y))
	assert.True(t, p.Fitted())

	pred, err := p.Predict(X)
	require.NoError(t, err)
	require.Len(t, pred, len(y))
	for _, v := range pred {
		assert.Contains(t, []int{0, 1}, v)
	}
}

func TestPipelinePredictBeforeFit(t *testing.T) {
	X, _ := bookings(t, 10)
	_, err := newTestPipeline().Predict(X)
	assert.Equal(t, errors.CodeInternalError, errors.GetCode(err))
}

func TestPipelineCloneIsIndependent(t *testing.T) {
	X, y := bookings(t, 40)
	p := newTestPipeline()
	require.NoError(t, p.Fit(context.Background(), X, y))

	clone := p.Clone()
	assert.False(t, clone.Fitted())
	assert.Equal(t, p.Model.Params, clone.Model.Params)
	assert.True(t, p.Fitted())
}

func TestPipelineCrossValidates(t *testing.T) {
	X, y := bookings(t, 100)
	scores, err := crossval.Score(context.Background(), newTestPipeline().Factory(), X, y,
		crossval.KFold{Splits: 4, Shuffle: true, Seed: 42}, 2)
	require.NoError(t, err)
	require.Len(t, scores, 4)
	for _, s := range scores {
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestPipelineGobRoundTrip(t *testing.T) {
	X, y := bookings(t, 60)
	p := newTestPipeline()
	require.NoError(t, p.Fit(context.Background(), X, y))
	want, err := p.Predict(X)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, p.Encode(&buf))
	decoded, err := Decode(&buf)
	require.NoError(t, err)

	got, err := decoded.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.NoError(t, decoded.CheckSpec(dataset.HotelBookingSpec()))
}

func TestPipelineCheckSpec(t *testing.T) {
	p := newTestPipeline()
	spec := dataset.HotelBookingSpec()
	spec.Numeric = spec.Numeric[1:]
	assert.Equal(t, errors.CodeDimensionMismatch, errors.GetCode(p.CheckSpec(spec)))

	spec = dataset.HotelBookingSpec()
	spec.Numeric[0], spec.Numeric[1] = spec.Numeric[1], spec.Numeric[0]
	assert.Equal(t, errors.CodeMissingColumn, errors.GetCode(p.CheckSpec(spec)))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(bytes.NewBufferString("not a pipeline"))
	assert.Equal(t, errors.CodeMalformedInput, errors.GetCode(err))
}
