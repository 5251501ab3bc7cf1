package output

import (
	"fmt"
	"io"
	"os"

	"github.com/physics91/ai-code-review-mcp-sub000/internal/aggregate"
	"github.com/physics91/ai-code-review-mcp-sub000/internal/review"
)

// Finding is the display view of one finding. Sources and Confidence
// are only set for combined reports.
type Finding struct {
	review.Finding
	Sources    []string
	Confidence string
}

// Report is the format-independent view writers render. Raw holds the
// original result structure for machine formats.
type Report struct {
	Title             string
	Summary           review.Summary
	Consensus         int
	Combined          bool
	Findings          []Finding
	OverallAssessment string
	Recommendations   []string
	DurationMs        int64
	Raw               any
}

// FromAnalysis builds a Report from a single-backend result.
func FromAnalysis(r *review.AnalysisResult) *Report {
	findings := make([]Finding, len(r.Findings))
	for i, f := range r.Findings {
		findings[i] = Finding{Finding: f}
	}
	return &Report{
		Title:             r.Source,
		Summary:           r.Summary,
		Findings:          findings,
		OverallAssessment: r.OverallAssessment,
		Recommendations:   r.Recommendations,
		DurationMs:        r.DurationMs,
		Raw:               r,
	}
}

// FromAggregate builds a Report from a combined result.
func FromAggregate(r *aggregate.Result) *Report {
	findings := make([]Finding, len(r.Findings))
	for i, f := range r.Findings {
		findings[i] = Finding{
			Finding:    f.Finding,
			Sources:    f.Sources,
			Confidence: string(f.Confidence),
		}
	}
	return &Report{
		Title:             r.Source,
		Summary:           r.Summary.Summary,
		Consensus:         r.Summary.Consensus,
		Combined:          true,
		Findings:          findings,
		OverallAssessment: r.OverallAssessment,
		Recommendations:   r.Recommendations,
		DurationMs:        r.DurationMs,
		Raw:               r,
	}
}

// Writer writes a report in a specific format.
type Writer interface {
	Write(w io.Writer, report *Report) error
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "markdown":
		return &MarkdownWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteReport writes the report to the specified output (file path or stdout).
func WriteReport(report *Report, format, outPath string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}

	var w io.Writer
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	} else {
		w = os.Stdout
	}

	return writer.Write(w, report)
}

// severityOrder is the display order, most severe first.
var severityOrder = []review.Severity{
	review.SeverityCritical,
	review.SeverityHigh,
	review.SeverityMedium,
	review.SeverityLow,
	review.SeverityInfo,
}

func groupBySeverity(findings []Finding) map[review.Severity][]Finding {
	m := make(map[review.Severity][]Finding)
	for _, f := range findings {
		m[f.Severity] = append(m[f.Severity], f)
	}
	return m
}

// location renders the line position of a finding, or "" when the
// finding has neither a line nor a range.
func location(f Finding) string {
	switch {
	case f.Line != nil:
		return fmt.Sprintf("line %d", *f.Line)
	case f.LineRange != nil:
		return fmt.Sprintf("lines %d-%d", f.LineRange.Start, f.LineRange.End)
	default:
		return ""
	}
}
