package report

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"hotelcancel/internal/metrics"
)

// Report is the human-readable view of an evaluation
type Report struct {
	Title          string
	Scores         []float64
	Summary        metrics.Summary
	Classification metrics.Report
	Params         map[string]string
	Precision      int
	GeneratedAt    time.Time
}

// CVLine formats the cross-validation summary printed after evaluation
func CVLine(s metrics.Summary, places int) string {
	return fmt.Sprintf("Cross-validation accuracy: %.*f +/- %.*f (std) min: %.*f, max: %.*f",
		places, s.Mean, places, s.StdDev, places, s.Min, places, s.Max)
}

// ClassificationLine formats the held-out precision, recall and F1
func ClassificationLine(c metrics.Report, places int) string {
	return fmt.Sprintf("Precision: %.*f, Recall: %.*f, F1 Score: %.*f",
		places, c.Precision, places, c.Recall, places, c.F1)
}

// Markdown renders the report as a markdown document
func (r Report) Markdown() []byte {
	var b bytes.Buffer
	title := r.Title
	if title == "" {
		title = "Evaluation"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if !r.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "Generated %s\n\n", r.GeneratedAt.UTC().Format(time.RFC3339))
	}

	b.WriteString("## Cross-validation\n\n")
	b.WriteString("| Fold | Accuracy |\n|---:|---:|\n")
	for i, s := range r.Scores {
		fmt.Fprintf(&b, "| %d | %.*f |\n", i+1, r.Precision, s)
	}
	fmt.Fprintf(&b, "\n%s\n\n", CVLine(r.Summary, r.Precision))

	b.WriteString("## Held-out split\n\n")
	b.WriteString("| Metric | Value |\n|---|---:|\n")
	fmt.Fprintf(&b, "| precision | %.*f |\n", r.Precision, r.Classification.Precision)
	fmt.Fprintf(&b, "| recall | %.*f |\n", r.Precision, r.Classification.Recall)
	fmt.Fprintf(&b, "| f1 | %.*f |\n", r.Precision, r.Classification.F1)

	if len(r.Params) > 0 {
		keys := make([]string, 0, len(r.Params))
		for k := range r.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\n## Parameters\n\n| Name | Value |\n|---|---|\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "| %s | %s |\n", k, r.Params[k])
		}
	}
	return b.Bytes()
}

// HTML renders the markdown report as a standalone page
func (r Report) HTML() []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: r.Title,
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML(r.Markdown(), p, renderer)
}
