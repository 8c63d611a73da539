package profiling

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/spf13/cast"

	"hotelcancel/domain/dataset"
	"hotelcancel/internal/errors"
)

// Column kinds
const (
	KindNumeric     = "numeric"
	KindCategorical = "categorical"
)

// ColumnProfile summarises one feature column before imputation
type ColumnProfile struct {
	Name        string  `json:"name"`
	Kind        string  `json:"kind"`
	Count       int     `json:"count"`
	Missing     int     `json:"missing"`
	MissingRate float64 `json:"missing_rate"`

	// Numeric statistics stay zero when the column has no observed values
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Median   float64 `json:"median"`
	Q25      float64 `json:"q25"`
	Q75      float64 `json:"q75"`
	Skewness float64 `json:"skewness"`
	Outliers int     `json:"outliers"`

	Distinct int    `json:"distinct,omitempty"`
	Top      string `json:"top,omitempty"`
	TopCount int    `json:"top_count,omitempty"`
}

// ProfileTable profiles every feature named by spec, numeric columns first
func ProfileTable(t *dataset.Table, spec dataset.FeatureSpec) ([]ColumnProfile, error) {
	out := make([]ColumnProfile, 0, len(spec.Numeric)+len(spec.Categorical))
	for _, name := range spec.Numeric {
		values, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		p, err := profileNumeric(name, values)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	for _, name := range spec.Categorical {
		values, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		out = append(out, profileCategorical(name, values))
	}
	return out, nil
}

func profileNumeric(name string, raw []string) (ColumnProfile, error) {
	p := ColumnProfile{Name: name, Kind: KindNumeric, Count: len(raw)}
	data := make(stats.Float64Data, 0, len(raw))
	for i, v := range raw {
		if dataset.IsMissing(v) {
			p.Missing++
			continue
		}
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return p, errors.MalformedInput(fmt.Sprintf("column %q row %d: %q is not numeric", name, i+1, v), err)
		}
		data = append(data, f)
	}
	p.MissingRate = rate(p.Missing, p.Count)
	if len(data) == 0 {
		return p, nil
	}

	// stats only fails on empty input, which is excluded above
	p.Mean, _ = stats.Mean(data)
	p.Min, _ = stats.Min(data)
	p.Max, _ = stats.Max(data)
	p.Median, _ = stats.Median(data)
	p.Q25 = percentile(data, 25, p.Min)
	p.Q75 = percentile(data, 75, p.Max)
	// sample deviation is undefined for a single observation
	if len(data) > 1 {
		p.StdDev, _ = stats.StandardDeviationSample(data)
	}
	p.Skewness = skewness(data, p.Mean, p.StdDev)
	p.Outliers = countOutliers(data, p.Q25, p.Q75)

	p.Mean, p.StdDev, p.Skewness = finite(p.Mean), finite(p.StdDev), finite(p.Skewness)
	p.Min, p.Max, p.Median = finite(p.Min), finite(p.Max), finite(p.Median)
	p.Q25, p.Q75 = finite(p.Q25), finite(p.Q75)
	return p, nil
}

// percentile falls back when the nearest-rank index is out of bounds, which
// happens for low percentiles of very short columns
func percentile(data stats.Float64Data, pct, fallback float64) float64 {
	v, err := stats.Percentile(data, pct)
	if err != nil || math.IsNaN(v) {
		return fallback
	}
	return v
}

// finite maps NaN and infinities to zero so profiles always encode as JSON
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func profileCategorical(name string, raw []string) ColumnProfile {
	p := ColumnProfile{Name: name, Kind: KindCategorical, Count: len(raw)}
	counts := make(map[string]int)
	for _, v := range raw {
		if dataset.IsMissing(v) {
			p.Missing++
			continue
		}
		counts[v]++
	}
	p.MissingRate = rate(p.Missing, p.Count)
	p.Distinct = len(counts)

	values := make([]string, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Strings(values)
	for _, v := range values {
		if counts[v] > p.TopCount {
			p.Top, p.TopCount = v, counts[v]
		}
	}
	return p
}

// skewness is the adjusted Fisher-Pearson coefficient
func skewness(data []float64, mean, stdDev float64) float64 {
	if len(data) < 3 || stdDev == 0 {
		return 0
	}
	n := float64(len(data))
	sum := 0.0
	for _, x := range data {
		d := (x - mean) / stdDev
		sum += d * d * d
	}
	return sum / n * math.Sqrt(n*(n-1)) / (n - 2)
}

// countOutliers uses the 1.5 IQR fences
func countOutliers(data []float64, q25, q75 float64) int {
	iqr := q75 - q25
	lower, upper := q25-1.5*iqr, q75+1.5*iqr
	n := 0
	for _, x := range data {
		if x < lower || x > upper {
			n++
		}
	}
	return n
}

func rate(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
