package aggregate

import (
	"strings"
	"unicode"

	"github.com/physics91/ai-code-review-mcp-sub000/internal/review"
)

// Similarity scores how likely two findings describe the same issue, in
// [0, 1]. Location evidence dominates when available; otherwise the
// score falls back to weighted word overlap of title and description.
func Similarity(a, b review.Finding) float64 {
	if a.Line != nil && b.Line != nil && *a.Line == *b.Line {
		if a.Type == b.Type {
			return 1.0
		}
		return 0.7
	}

	if a.LineRange != nil && b.LineRange != nil && a.Type == b.Type {
		if rangeOverlapFraction(*a.LineRange, *b.LineRange) > 0.5 {
			return 0.8
		}
	}

	return 0.6*textSimilarity(a.Title, b.Title) + 0.4*textSimilarity(a.Description, b.Description)
}

// rangeOverlapFraction returns the overlap length divided by the smaller
// range's length. Ranges are inclusive.
func rangeOverlapFraction(a, b review.LineRange) float64 {
	lo := a.Start
	if b.Start > lo {
		lo = b.Start
	}
	hi := a.End
	if b.End < hi {
		hi = b.End
	}
	overlap := hi - lo + 1
	if overlap <= 0 {
		return 0
	}
	lenA := a.End - a.Start + 1
	lenB := b.End - b.Start + 1
	smaller := lenA
	if lenB < smaller {
		smaller = lenB
	}
	if smaller <= 0 {
		return 0
	}
	return float64(overlap) / float64(smaller)
}

// textSimilarity is the Jaccard similarity of the two texts' word sets,
// lower-cased and tokenized on whitespace and punctuation. Two empty
// sets score 0, not 1.
func textSimilarity(a, b string) float64 {
	setA := tokenize(a)
	setB := tokenize(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenize(s string) map[string]bool {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
