// Package output formats analysis results for display or machine
// consumption.
//
// Three formats are supported:
//   - text     — human-readable terminal output (default)
//   - json     — the full structured result
//   - markdown — PR-comment-friendly with collapsible sections per severity
//
// Use [FromAnalysis] or [FromAggregate] to build a [Report], then
// [GetWriter] to obtain a [Writer] for a given format string.
// [WriteReport] handles destination selection.
package output
