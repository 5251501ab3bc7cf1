package backend

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/physics91/ai-code-review-mcp-sub000/internal/normalize"
	"github.com/physics91/ai-code-review-mcp-sub000/internal/pathval"
)

// TimeoutError reports a subprocess that exceeded its deadline. Retryable.
type TimeoutError struct {
	Backend string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s backend timed out after %s", e.Backend, e.Timeout)
}

// CLIExecutionError reports a subprocess that exited non-zero. Retryable.
type CLIExecutionError struct {
	Backend  string
	ExitCode int
	Stderr   string
	Stdout   string
}

func (e *CLIExecutionError) Error() string {
	msg := fmt.Sprintf("%s backend exited with code %d", e.Backend, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + truncate(e.Stderr, 500)
	}
	return msg
}

// AnalysisError is the single wrapping point at the client boundary. It
// carries the request id so failures correlate with status entries.
// SecurityErrors are never wrapped into it.
type AnalysisError struct {
	RequestID string
	Backend   string
	Err       error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s analysis %s failed: %v", e.Backend, e.RequestID, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// Error codes recorded in status entries, stable across releases.
const (
	CodeSecurity  = "SECURITY_ERROR"
	CodeTimeout   = "TIMEOUT_ERROR"
	CodeExecution = "CLI_EXECUTION_ERROR"
	CodeParse     = "PARSE_ERROR"
	CodeAnalysis  = "ANALYSIS_ERROR"
)

// ErrorCode maps any error from the pipeline to its stable status code.
func ErrorCode(err error) string {
	var se *pathval.SecurityError
	var te *TimeoutError
	var ce *CLIExecutionError
	var pe *normalize.ParseError
	switch {
	case errors.As(err, &se):
		return CodeSecurity
	case errors.As(err, &te):
		return CodeTimeout
	case errors.As(err, &ce):
		return CodeExecution
	case errors.As(err, &pe):
		return CodeParse
	default:
		return CodeAnalysis
	}
}

// truncate caps s at n bytes, backing up to a rune boundary so a
// multi-byte character is never cut in half.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
