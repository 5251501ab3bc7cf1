// Package aggregate merges independent backend reviews of the same
// prompt into one deduplicated, confidence-scored result.
//
// Findings are grouped in a single greedy pass using a similarity score
// that prefers location evidence (same line, overlapping ranges) and
// falls back to weighted Jaccard overlap of titles and descriptions.
// Each group's confidence reflects how many of the invoked backends
// contributed to it; the consensus percentage is the share of final
// findings with high confidence. Merging never succeeds with zero
// usable inputs.
package aggregate
