package testkit

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelcancel/domain/dataset"
)

func TestBookingGeneratorBalancedLabels(t *testing.T) {
	table, err := NewBookingGenerator(DefaultBookingConfig()).Generate()
	require.NoError(t, err)
	assert.Equal(t, 100, table.NumRows())

	labels, err := table.Labels("is_canceled")
	require.NoError(t, err)
	ones := 0
	for _, l := range labels {
		ones += l
	}
	assert.Equal(t, 50, ones)
}

func TestBookingGeneratorCoversFeatureSpec(t *testing.T) {
	table, err := NewBookingGenerator(DefaultBookingConfig()).Generate()
	require.NoError(t, err)

	features, labels, err := dataset.HotelBookingSpec().Split(table)
	require.NoError(t, err)
	assert.Equal(t, 24, features.NumCols())
	assert.Len(t, labels, 100)
}

func TestBookingGeneratorIsDeterministic(t *testing.T) {
	a, err := NewBookingGenerator(DefaultBookingConfig()).Generate()
	require.NoError(t, err)
	b, err := NewBookingGenerator(DefaultBookingConfig()).Generate()
	require.NoError(t, err)
	assert.Equal(t, a.Rows, b.Rows)
}

func TestBookingGeneratorWriteCSV(t *testing.T) {
	cfg := DefaultBookingConfig()
	cfg.Rows = 12
	var buf bytes.Buffer
	n, err := NewBookingGenerator(cfg).WriteCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 13)
	assert.Equal(t, BookingHeaders, records[0])
}

func TestBookingGeneratorRejectsBadConfig(t *testing.T) {
	_, err := NewBookingGenerator(BookingGeneratorConfig{Rows: 0}).Generate()
	assert.Error(t, err)
	_, err = NewBookingGenerator(BookingGeneratorConfig{Rows: 5, CancelRate: 2}).Generate()
	assert.Error(t, err)
}
