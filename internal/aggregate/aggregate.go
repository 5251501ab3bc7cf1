package aggregate

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/physics91/ai-code-review-mcp-sub000/internal/review"
)

// Confidence grades how many of the invoked backends agreed on a finding.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Finding is a canonical finding merged from one or more backends.
type Finding struct {
	review.Finding
	Sources    []string   `json:"sources"`
	Confidence Confidence `json:"confidence"`
}

// Summary extends the per-backend summary with the consensus percentage:
// the share of final findings that reached high confidence.
type Summary struct {
	review.Summary
	Consensus int `json:"consensus"`
}

// Result is the merged output of a combined review.
type Result struct {
	ID                string                            `json:"id"`
	Timestamp         time.Time                         `json:"timestamp"`
	Source            string                            `json:"source"`
	Summary           Summary                           `json:"summary"`
	Findings          []Finding                         `json:"findings"`
	OverallAssessment string                            `json:"overallAssessment"`
	Recommendations   []string                          `json:"recommendations"`
	IndividualResults map[string]*review.AnalysisResult `json:"individualResults,omitempty"`
	DurationMs        int64                             `json:"durationMs"`
}

// DefaultThreshold is the similarity score at which two findings are
// considered the same issue.
const DefaultThreshold = 0.8

// Options tunes a merge.
type Options struct {
	// Threshold overrides DefaultThreshold when positive.
	Threshold float64
	// TotalBackends is the number of backends invoked for this merge
	// call, not the number that produced findings: a backend that was
	// asked and reported nothing still lowers confidence.
	TotalBackends int
	// IncludeIndividualResults attaches the per-backend results verbatim.
	IncludeIndividualResults bool
}

// ErrNoResults is returned when a merge is attempted with no usable
// backend results; a combined request must not succeed silently empty.
var ErrNoResults = errors.New("no backend produced a usable result")

// sourced is a finding tagged with the backend that reported it.
type sourced struct {
	finding review.Finding
	source  string
}

// Merge combines the results of independent backends answering the same
// prompt into one deduplicated, confidence-scored result.
func Merge(id string, results []*review.AnalysisResult, opts Options) (*Result, error) {
	if len(results) == 0 {
		return nil, ErrNoResults
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	totalBackends := opts.TotalBackends
	if totalBackends < len(results) {
		totalBackends = len(results)
	}

	var flat []sourced
	for _, r := range results {
		for _, f := range r.Findings {
			flat = append(flat, sourced{finding: f, source: r.Source})
		}
	}

	merged := dedupe(flat, threshold, totalBackends)

	sort.SliceStable(merged, func(i, j int) bool {
		return review.SeverityRank(merged[i].Severity) > review.SeverityRank(merged[j].Severity)
	})

	highConfidence := 0
	for _, f := range merged {
		if f.Confidence == ConfidenceHigh {
			highConfidence++
		}
	}
	consensus := 100
	if len(merged) > 0 {
		consensus = int(math.Round(100 * float64(highConfidence) / float64(len(merged))))
	}

	summary := Summary{
		Summary:   review.ComputeSummary(plainFindings(merged)),
		Consensus: consensus,
	}

	res := &Result{
		ID:                id,
		Timestamp:         time.Now().UTC(),
		Source:            "combined",
		Summary:           summary,
		Findings:          merged,
		OverallAssessment: buildAssessment(totalBackends, summary, highConfidence, len(merged)),
		Recommendations:   mergeRecommendations(results, threshold),
	}

	if opts.IncludeIndividualResults {
		res.IndividualResults = make(map[string]*review.AnalysisResult, len(results))
		for _, r := range results {
			res.IndividualResults[r.Source] = r
		}
	}

	return res, nil
}

// dedupe groups similar findings in a single greedy pass: each ungrouped
// finding absorbs every later ungrouped finding scoring at or above the
// threshold against it.
func dedupe(flat []sourced, threshold float64, totalBackends int) []Finding {
	consumed := make([]bool, len(flat))
	var out []Finding

	for i := range flat {
		if consumed[i] {
			continue
		}
		group := []sourced{flat[i]}
		consumed[i] = true
		for j := i + 1; j < len(flat); j++ {
			if consumed[j] {
				continue
			}
			if Similarity(flat[i].finding, flat[j].finding) >= threshold {
				group = append(group, flat[j])
				consumed[j] = true
			}
		}
		out = append(out, buildGroup(group, totalBackends))
	}
	return out
}

// buildGroup collapses one group into an aggregated finding. The first
// finding encountered supplies the representative fields; severity is
// the highest present in the group.
func buildGroup(group []sourced, totalBackends int) Finding {
	rep := group[0].finding

	var sources []string
	seen := make(map[string]bool)
	severity := rep.Severity
	for _, s := range group {
		if !seen[s.source] {
			seen[s.source] = true
			sources = append(sources, s.source)
		}
		severity = review.MaxSeverity(severity, s.finding.Severity)
	}
	rep.Severity = severity

	ratio := float64(len(sources)) / float64(totalBackends)
	confidence := ConfidenceLow
	switch {
	case ratio >= 0.8:
		confidence = ConfidenceHigh
	case ratio >= 0.5:
		confidence = ConfidenceMedium
	}

	return Finding{Finding: rep, Sources: sources, Confidence: confidence}
}

func plainFindings(merged []Finding) []review.Finding {
	out := make([]review.Finding, len(merged))
	for i, f := range merged {
		out[i] = f.Finding
	}
	return out
}

// buildAssessment produces the combined assessment text deterministically
// from the counts.
func buildAssessment(totalBackends int, summary Summary, highConfidence, total int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Combined review from %d reviewer(s):", totalBackends)
	if summary.Critical > 0 {
		fmt.Fprintf(&b, " %d critical issue(s) require immediate attention.", summary.Critical)
	}
	if summary.High > 0 {
		fmt.Fprintf(&b, " %d high-severity issue(s) found.", summary.High)
	}
	if summary.Critical == 0 && summary.High == 0 {
		b.WriteString(" No critical or high-severity issues; code quality is good.")
	}
	if total > 0 && highConfidence*2 > total {
		b.WriteString(" Reviewers agree on the majority of findings.")
	}
	return b.String()
}

// mergeRecommendations concatenates every backend's recommendations and
// drops near-duplicates greedily; the first accepted instance wins.
func mergeRecommendations(results []*review.AnalysisResult, threshold float64) []string {
	var accepted []string
	for _, r := range results {
		for _, rec := range r.Recommendations {
			dup := false
			for _, a := range accepted {
				if textSimilarity(a, rec) >= threshold {
					dup = true
					break
				}
			}
			if !dup {
				accepted = append(accepted, rec)
			}
		}
	}
	return accepted
}
