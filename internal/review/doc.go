// Package review defines the canonical finding model shared by every part
// of the dispatcher.
//
// It holds the Finding, Severity, and AnalysisResult types, the fixed
// severity ordering used for sorting and tie-breaks, severity filtering
// with summary recomputation, and the prompt builder that instructs
// backends to answer in the canonical JSON shape.
//
// Findings are value objects: no component mutates a Finding after
// creation. Aggregation copies fields into new values instead.
package review
