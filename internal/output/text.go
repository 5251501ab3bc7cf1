package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/physics91/ai-code-review-mcp-sub000/internal/review"
)

// TextWriter outputs a human-readable text report.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, report *Report) error {
	ew := &errWriter{w: w}

	ew.printf("Code Review — %s\n", report.Title)
	ew.println(strings.Repeat("─", 60))
	ew.printf("Findings: %d total", report.Summary.Total)
	if report.Summary.Total > 0 {
		ew.printf(" (%d critical, %d high, %d medium, %d low)",
			report.Summary.Critical,
			report.Summary.High,
			report.Summary.Medium,
			report.Summary.Low,
		)
	}
	ew.println("")
	if report.Combined {
		ew.printf("Consensus: %d%%\n", report.Consensus)
	}
	ew.println(strings.Repeat("─", 60))

	if report.Summary.Total == 0 {
		ew.println("\nNo issues found. Looks good!")
	}

	grouped := groupBySeverity(report.Findings)
	for _, sev := range severityOrder {
		findings := grouped[sev]
		if len(findings) == 0 {
			continue
		}

		label := strings.ToUpper(string(sev))
		ew.printf("\n%s %s\n", severityIcon(sev), label)
		ew.println(strings.Repeat("─", 40))

		for _, f := range findings {
			ew.printf("\n  %s\n", f.Title)
			meta := []string{"Type: " + string(f.Type)}
			if loc := location(f); loc != "" {
				meta = append(meta, loc)
			}
			if len(f.Sources) > 0 {
				meta = append(meta, "Reported by: "+strings.Join(f.Sources, ", "))
			}
			if f.Confidence != "" {
				meta = append(meta, "Confidence: "+f.Confidence)
			}
			ew.printf("  %s\n", strings.Join(meta, " | "))

			for _, line := range wrapText(f.Description, 70) {
				ew.printf("    %s\n", line)
			}
			if f.Suggestion != "" {
				ew.println("  Suggestion:")
				for _, line := range wrapText(f.Suggestion, 70) {
					ew.printf("    %s\n", line)
				}
			}
		}
	}

	if report.OverallAssessment != "" {
		ew.printf("\n%s\n", strings.Repeat("─", 60))
		for _, line := range wrapText(report.OverallAssessment, 70) {
			ew.printf("%s\n", line)
		}
	}
	if len(report.Recommendations) > 0 {
		ew.println("\nRecommendations:")
		for _, rec := range report.Recommendations {
			ew.printf("  - %s\n", rec)
		}
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	ew.printf("Completed in %dms\n", report.DurationMs)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func severityIcon(s review.Severity) string {
	switch s {
	case review.SeverityCritical:
		return "[!!!]"
	case review.SeverityHigh:
		return "[!!]"
	case review.SeverityMedium:
		return "[!]"
	case review.SeverityLow:
		return "[-]"
	default:
		return "[i]"
	}
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	words := strings.Fields(text)
	var current strings.Builder
	for _, word := range words {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
