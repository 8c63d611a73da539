package metrics

import (
	"sort"

	"github.com/montanaflynn/stats"

	"hotelcancel/internal/errors"
)

// DefaultPrecision is the number of decimal places every reported metric is rounded to
const DefaultPrecision = 4

// Metric names written to the metrics record
const (
	KeyMeanScore = "mean_score"
	KeyStdDev    = "std_dev"
	KeyMinScore  = "min_score"
	KeyMaxScore  = "max_score"
	KeyPrecision = "precision"
	KeyRecall    = "recall"
	KeyF1        = "f1"
)

// Summary describes the spread of cross-validation scores
type Summary struct {
	Mean   float64 `json:"mean_score"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min_score"`
	Max    float64 `json:"max_score"`
}

// Summarize computes mean, population standard deviation, min and max,
// rounded to places decimals. Scores are sorted first so the result is
// identical for every ordering of the same values.
func Summarize(scores []float64, places int) (Summary, error) {
	if len(scores) == 0 {
		return Summary{}, errors.InvalidInput("cannot summarize an empty score sequence")
	}
	data := make(stats.Float64Data, len(scores))
	copy(data, scores)
	sort.Float64s(data)

	mean, err := stats.Mean(data)
	if err != nil {
		return Summary{}, errors.Wrap(err, "mean")
	}
	std, err := stats.StandardDeviationPopulation(data)
	if err != nil {
		return Summary{}, errors.Wrap(err, "standard deviation")
	}
	lo, err := stats.Min(data)
	if err != nil {
		return Summary{}, errors.Wrap(err, "min")
	}
	hi, err := stats.Max(data)
	if err != nil {
		return Summary{}, errors.Wrap(err, "max")
	}

	return Summary{
		Mean:   round(mean, places),
		StdDev: round(std, places),
		Min:    round(lo, places),
		Max:    round(hi, places),
	}, nil
}

// AsMap returns the summary keyed by metric name
func (s Summary) AsMap() map[string]float64 {
	return map[string]float64{
		KeyMeanScore: s.Mean,
		KeyStdDev:    s.StdDev,
		KeyMinScore:  s.Min,
		KeyMaxScore:  s.Max,
	}
}

// Round rounds every value of a metrics mapping
func Round(m map[string]float64, places int) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = round(v, places)
	}
	return out
}

// Merge combines metric mappings; later mappings win on key collisions
func Merge(maps ...map[string]float64) map[string]float64 {
	out := make(map[string]float64)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

func round(v float64, places int) float64 {
	r, err := stats.Round(v, places)
	if err != nil {
		return v
	}
	return r
}
