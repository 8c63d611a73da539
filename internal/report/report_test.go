package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"hotelcancel/internal/metrics"
)

func sample() Report {
	return Report{
		Title:          "Hotel cancellations",
		Scores:         []float64{0.8, 0.85},
		Summary:        metrics.Summary{Mean: 0.825, StdDev: 0.025, Min: 0.8, Max: 0.85},
		Classification: metrics.Report{Precision: 0.81, Recall: 0.8, F1: 0.805},
		Params:         map[string]string{"n_estimators": "160", "max_features": "0.4"},
		Precision:      4,
	}
}

func TestCVLine(t *testing.T) {
	line := CVLine(metrics.Summary{Mean: 0.8125, StdDev: 0.0125, Min: 0.8, Max: 0.825}, 4)
	assert.Equal(t, "Cross-validation accuracy: 0.8125 +/- 0.0125 (std) min: 0.8000, max: 0.8250", line)
}

func TestClassificationLine(t *testing.T) {
	line := ClassificationLine(metrics.Report{Precision: 0.5, Recall: 0.25, F1: 0.3333}, 4)
	assert.Equal(t, "Precision: 0.5000, Recall: 0.2500, F1 Score: 0.3333", line)
}

func TestMarkdown(t *testing.T) {
	md := string(sample().Markdown())
	assert.True(t, strings.HasPrefix(md, "# Hotel cancellations"))
	assert.Contains(t, md, "| 2 | 0.8500 |")
	assert.Contains(t, md, "| f1 | 0.8050 |")
	assert.Less(t, strings.Index(md, "max_features"), strings.Index(md, "n_estimators"))
}

func TestHTML(t *testing.T) {
	page := string(sample().HTML())
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "<title>Hotel cancellations</title>")
	assert.Contains(t, page, "0.8250")
}
