package review

import "time"

// Severity represents the severity level of a finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// SeverityRank returns a numeric rank for sorting (higher = more severe).
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// MaxSeverity returns the more severe of a and b.
func MaxSeverity(a, b Severity) Severity {
	if SeverityRank(b) > SeverityRank(a) {
		return b
	}
	return a
}

// FindingType represents the kind of issue a finding reports.
type FindingType string

const (
	TypeBug         FindingType = "bug"
	TypeSecurity    FindingType = "security"
	TypePerformance FindingType = "performance"
	TypeStyle       FindingType = "style"
	TypeSuggestion  FindingType = "suggestion"
)

// LineRange represents a range of line numbers.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Finding represents a single code review finding. Findings are value
// objects: once created they are never mutated, only copied.
type Finding struct {
	Type        FindingType `json:"type"`
	Severity    Severity    `json:"severity"`
	Line        *int        `json:"line,omitempty"`
	LineRange   *LineRange  `json:"lineRange,omitempty"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Suggestion  string      `json:"suggestion,omitempty"`
	Code        string      `json:"code,omitempty"`
}

// Summary holds finding counts by severity.
type Summary struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// AnalysisResult is the normalized output of a single backend run.
type AnalysisResult struct {
	ID                string            `json:"id"`
	Timestamp         time.Time         `json:"timestamp"`
	Source            string            `json:"source"`
	Summary           Summary           `json:"summary"`
	Findings          []Finding         `json:"findings"`
	OverallAssessment string            `json:"overallAssessment"`
	Recommendations   []string          `json:"recommendations"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	DurationMs        int64             `json:"durationMs"`
}

// ComputeSummary calculates the summary counts from findings.
func ComputeSummary(findings []Finding) Summary {
	s := Summary{Total: len(findings)}
	for _, f := range findings {
		switch f.Severity {
		case SeverityCritical:
			s.Critical++
		case SeverityHigh:
			s.High++
		case SeverityMedium:
			s.Medium++
		case SeverityLow:
			s.Low++
		}
	}
	return s
}
