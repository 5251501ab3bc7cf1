package review

// SeverityFilter selects which findings a caller wants to keep.
type SeverityFilter string

const (
	FilterAll    SeverityFilter = "all"
	FilterMedium SeverityFilter = "medium"
	FilterHigh   SeverityFilter = "high"
)

// minRank returns the lowest severity rank the filter admits.
func (f SeverityFilter) minRank() int {
	switch f {
	case FilterHigh:
		return SeverityRank(SeverityHigh)
	case FilterMedium:
		return SeverityRank(SeverityMedium)
	default:
		return 0
	}
}

// FilterFindings returns the findings at or above the filter's floor.
// FilterAll (or an unknown filter) keeps everything.
func FilterFindings(findings []Finding, filter SeverityFilter) []Finding {
	minRank := filter.minRank()
	if minRank == 0 {
		return findings
	}
	kept := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if SeverityRank(f.Severity) >= minRank {
			kept = append(kept, f)
		}
	}
	return kept
}

// ApplyFilter filters a result's findings in place and recomputes the
// summary so the counts invariant holds.
func ApplyFilter(result *AnalysisResult, filter SeverityFilter) {
	result.Findings = FilterFindings(result.Findings, filter)
	result.Summary = ComputeSummary(result.Findings)
}
