package profiling

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelcancel/domain/dataset"
	"hotelcancel/internal/errors"
)

func TestProfileTable(t *testing.T) {
	table, err := dataset.NewTable(
		[]string{"hotel", "lead_time", "is_canceled"},
		[][]string{
			{"City Hotel", "10", "0"},
			{"City Hotel", "NULL", "1"},
			{"Resort Hotel", "30", "0"},
			{"", "20", "1"},
		})
	require.NoError(t, err)
	spec := dataset.FeatureSpec{Numeric: []string{"lead_time"}, Categorical: []string{"hotel"}, Label: "is_canceled"}

	profiles, err := ProfileTable(table, spec)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	lead := profiles[0]
	assert.Equal(t, KindNumeric, lead.Kind)
	assert.Equal(t, 1, lead.Missing)
	assert.Equal(t, 0.25, lead.MissingRate)
	assert.Equal(t, 20.0, lead.Mean)
	assert.Equal(t, 10.0, lead.Min)
	assert.Equal(t, 30.0, lead.Max)
	assert.Equal(t, 20.0, lead.Median)
	assert.InDelta(t, 10.0, lead.StdDev, 1e-9)

	hotel := profiles[1]
	assert.Equal(t, KindCategorical, hotel.Kind)
	assert.Equal(t, 2, hotel.Distinct)
	assert.Equal(t, "City Hotel", hotel.Top)
	assert.Equal(t, 2, hotel.TopCount)
	assert.Equal(t, 1, hotel.Missing)
}

func TestProfileTableErrors(t *testing.T) {
	table, err := dataset.NewTable([]string{"lead_time"}, [][]string{{"soon"}})
	require.NoError(t, err)

	_, err = ProfileTable(table, dataset.FeatureSpec{Numeric: []string{"lead_time"}, Label: "y"})
	assert.Equal(t, errors.CodeMalformedInput, errors.GetCode(err))

	_, err = ProfileTable(table, dataset.FeatureSpec{Numeric: []string{"adr"}, Label: "y"})
	assert.Equal(t, errors.CodeMissingColumn, errors.GetCode(err))
}

func TestOutliersAndSkew(t *testing.T) {
	data := []float64{1, 2, 2, 3, 3, 3, 4, 4, 100}
	assert.Equal(t, 1, countOutliers(data, 2, 4))
	assert.Greater(t, skewness(data, 13.5556, 32.5), 0.0)
	assert.Equal(t, 0.0, skewness([]float64{1, 1, 1}, 1, 0))
}

func TestProfileSparseNumericColumns(t *testing.T) {
	table, err := dataset.NewTable(
		[]string{"company", "agent", "is_canceled"},
		[][]string{
			{"NULL", "NULL", "0"},
			{"40", "NULL", "1"},
			{"NULL", "NA", "0"},
		})
	require.NoError(t, err)
	spec := dataset.FeatureSpec{Numeric: []string{"company", "agent"}, Label: "is_canceled"}

	profiles, err := ProfileTable(table, spec)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	company := profiles[0]
	assert.Equal(t, 2, company.Missing)
	assert.Equal(t, 40.0, company.Mean)
	assert.Equal(t, 40.0, company.Min)
	assert.Equal(t, 40.0, company.Max)
	assert.Equal(t, 0.0, company.StdDev)
	assert.Equal(t, 0.0, company.Skewness)
	assert.Equal(t, 0, company.Outliers)

	agent := profiles[1]
	assert.Equal(t, 3, agent.Missing)
	assert.Equal(t, 1.0, agent.MissingRate)
	assert.Equal(t, 0.0, agent.Mean)
	assert.Equal(t, 0.0, agent.StdDev)

	data, err := json.Marshal(profiles)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"std_dev":0`)
	assert.Contains(t, string(data), `"min":40`)
}

func TestProfileKeepsZeroStatistics(t *testing.T) {
	table, err := dataset.NewTable([]string{"babies"}, [][]string{{"0"}, {"0"}, {"0"}})
	require.NoError(t, err)

	profiles, err := ProfileTable(table, dataset.FeatureSpec{Numeric: []string{"babies"}, Label: "y"})
	require.NoError(t, err)

	data, err := json.Marshal(profiles[0])
	require.NoError(t, err)
	for _, key := range []string{"mean", "std_dev", "min", "max", "median", "q25", "q75", "skewness", "outliers"} {
		assert.Contains(t, string(data), `"`+key+`":0`, key)
	}
}

func TestPercentileFallsBackOnShortColumns(t *testing.T) {
	assert.Equal(t, 1.0, percentile([]float64{1, 2}, 25, 1))
	assert.Equal(t, 3.0, percentile([]float64{4, 1, 3, 2}, 75, 0))
}

func TestFinite(t *testing.T) {
	assert.Equal(t, 0.0, finite(math.NaN()))
	assert.Equal(t, 0.0, finite(math.Inf(1)))
	assert.Equal(t, 2.5, finite(2.5))
}
