package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/physics91/ai-code-review-mcp-sub000/internal/review"
)

// MarkdownWriter outputs a PR-comment-friendly markdown report.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report *Report) error {
	fmt.Fprintf(w, "## Code Review — %s\n\n", report.Title)

	fmt.Fprintf(w, "| Severity | Count |\n")
	fmt.Fprintf(w, "|----------|-------|\n")
	fmt.Fprintf(w, "| Critical | %d    |\n", report.Summary.Critical)
	fmt.Fprintf(w, "| High     | %d    |\n", report.Summary.High)
	fmt.Fprintf(w, "| Medium   | %d    |\n", report.Summary.Medium)
	fmt.Fprintf(w, "| Low      | %d    |\n", report.Summary.Low)
	fmt.Fprintf(w, "| **Total** | **%d** |\n\n", report.Summary.Total)

	if report.Combined {
		fmt.Fprintf(w, "Consensus: **%d%%**\n\n", report.Consensus)
	}

	if report.Summary.Total == 0 {
		fmt.Fprintln(w, "No issues found. :white_check_mark:")
	}

	grouped := groupBySeverity(report.Findings)
	for _, sev := range severityOrder {
		findings := grouped[sev]
		if len(findings) == 0 {
			continue
		}

		icon := mdSeverityIcon(sev)
		label := strings.ToUpper(string(sev))

		fmt.Fprintf(w, "<details>\n<summary>%s %s (%d)</summary>\n\n", icon, label, len(findings))

		for _, f := range findings {
			fmt.Fprintf(w, "### %s\n\n", f.Title)
			meta := []string{string(f.Type)}
			if loc := location(f); loc != "" {
				meta = append(meta, "`"+loc+"`")
			}
			if len(f.Sources) > 0 {
				meta = append(meta, "reported by "+strings.Join(f.Sources, ", "))
			}
			if f.Confidence != "" {
				meta = append(meta, "confidence: "+f.Confidence)
			}
			fmt.Fprintf(w, "%s\n\n", strings.Join(meta, " | "))
			fmt.Fprintf(w, "%s\n\n", f.Description)

			if f.Suggestion != "" {
				fmt.Fprintf(w, "**Suggestion:**\n\n")
				if looksLikeCode(f.Suggestion) {
					fmt.Fprintf(w, "```\n%s\n```\n\n", f.Suggestion)
				} else {
					fmt.Fprintf(w, "> %s\n\n", strings.ReplaceAll(f.Suggestion, "\n", "\n> "))
				}
			}

			fmt.Fprintf(w, "---\n\n")
		}

		fmt.Fprintf(w, "</details>\n\n")
	}

	if report.OverallAssessment != "" {
		fmt.Fprintf(w, "%s\n\n", report.OverallAssessment)
	}
	if len(report.Recommendations) > 0 {
		fmt.Fprintf(w, "**Recommendations:**\n\n")
		for _, rec := range report.Recommendations {
			fmt.Fprintf(w, "- %s\n", rec)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "*Reviewed in %dms*\n", report.DurationMs)

	return nil
}

func mdSeverityIcon(s review.Severity) string {
	switch s {
	case review.SeverityCritical:
		return ":no_entry:"
	case review.SeverityHigh:
		return ":red_circle:"
	case review.SeverityMedium:
		return ":orange_circle:"
	case review.SeverityLow:
		return ":yellow_circle:"
	default:
		return ":white_circle:"
	}
}

func looksLikeCode(s string) bool {
	codeIndicators := []string{
		"func ", "if ", "for ", "return ", "var ", "const ",
		"def ", "class ", "import ", "from ",
		"{", "}", "=>", "->", ":=", "==",
		"()", "[];",
	}
	for _, indicator := range codeIndicators {
		if strings.Contains(s, indicator) {
			return true
		}
	}
	return false
}
