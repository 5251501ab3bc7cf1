// Aicr reviews code by dispatching it to locally installed AI CLI tools
// (gemini, claude), normalizing their heterogeneous output into one
// findings schema and optionally merging results across backends with
// deduplication and confidence scoring.
//
// Usage:
//
//	aicr review main.go                   # review a file with the default backend
//	cat main.go | aicr review             # review code from stdin
//	aicr review --combined main.go        # run every backend and merge findings
//	aicr review --backends gemini,claude --sequential main.go
//	aicr backends check                   # validate backend executable paths
//	aicr config init                      # write a default config file
//
// Exit codes: 0 success, 1 findings at or above the fail-on threshold,
// 2 usage error, 3 security rejection, 4 runtime failure.
package main
