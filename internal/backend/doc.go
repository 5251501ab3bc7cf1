// Package backend runs external analysis CLIs as subprocesses and turns
// their output into the canonical finding model.
//
// A Client composes path validation, subprocess invocation with retry,
// and output normalization into a single Analyze operation. The prompt
// is always delivered over stdin, never as an argument; shell execution
// is never used; and fixed safety flags (structured output, read-only
// sandboxing, repository-settings skip) are appended after user-supplied
// arguments, which are filtered so they cannot override them.
//
// Path validation runs before the retry loop: a security failure is
// never retried and always propagates as an unwrapped
// *pathval.SecurityError. Every other failure is wrapped exactly once
// into an *AnalysisError carrying the request id.
package backend
