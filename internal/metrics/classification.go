package metrics

import (
	"sort"

	"hotelcancel/internal/errors"
)

// Accuracy is the fraction of matching predictions
func Accuracy(yTrue, yPred []int) (float64, error) {
	if err := checkLabels(yTrue, yPred); err != nil {
		return 0, err
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}

// Report holds support-weighted averages of per-class scores
type Report struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// ClassScore is the per-class breakdown behind a Report
type ClassScore struct {
	Class     int
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// PerClass scores every label that appears in either yTrue or yPred.
// A zero denominator yields a score of 0 rather than an error.
func PerClass(yTrue, yPred []int) ([]ClassScore, error) {
	if err := checkLabels(yTrue, yPred); err != nil {
		return nil, err
	}
	tp := map[int]int{}
	fp := map[int]int{}
	fn := map[int]int{}
	support := map[int]int{}
	labels := map[int]struct{}{}
	for i := range yTrue {
		t, p := yTrue[i], yPred[i]
		labels[t] = struct{}{}
		labels[p] = struct{}{}
		support[t]++
		if t == p {
			tp[t]++
		} else {
			fp[p]++
			fn[t]++
		}
	}

	classes := make([]int, 0, len(labels))
	for c := range labels {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	out := make([]ClassScore, len(classes))
	for i, c := range classes {
		precision := ratio(tp[c], tp[c]+fp[c])
		recall := ratio(tp[c], tp[c]+fn[c])
		f1 := 0.0
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}
		out[i] = ClassScore{Class: c, Precision: precision, Recall: recall, F1: f1, Support: support[c]}
	}
	return out, nil
}

// Classification averages per-class precision, recall and F1 weighted by true support
func Classification(yTrue, yPred []int) (Report, error) {
	perClass, err := PerClass(yTrue, yPred)
	if err != nil {
		return Report{}, err
	}
	var r Report
	total := 0
	for _, c := range perClass {
		w := float64(c.Support)
		r.Precision += w * c.Precision
		r.Recall += w * c.Recall
		r.F1 += w * c.F1
		total += c.Support
	}
	if total == 0 {
		return Report{}, nil
	}
	r.Precision /= float64(total)
	r.Recall /= float64(total)
	r.F1 /= float64(total)
	return r, nil
}

// AsMap returns the report keyed by metric name
func (r Report) AsMap() map[string]float64 {
	return map[string]float64{
		KeyPrecision: r.Precision,
		KeyRecall:    r.Recall,
		KeyF1:        r.F1,
	}
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func checkLabels(yTrue, yPred []int) error {
	if len(yTrue) != len(yPred) {
		return errors.DimensionMismatch("prediction count", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return errors.InvalidInput("cannot score an empty label sequence")
	}
	return nil
}
