// Package normalize converts raw backend stdout, in any of several
// incompatible wire shapes, into the canonical finding model.
//
// Backends emit different shapes and switch shapes between versions, so
// parsing is an ordered list of candidate parsers tried in priority
// order: a line-delimited event stream (last completed agent message
// wins), a single wrapper object with a response field or a top-level
// findings array, and finally a bounded brace-scan over free text. Each
// candidate either produces a normalized result, declares itself not
// applicable, or fails fatally (a backend-reported error or a null
// response is fatal regardless of later candidates).
//
// Input is capped at MaxInputBytes and scrubbed of ANSI escapes and NUL
// bytes before parsing. Parsed payloads are validated strictly against
// the canonical shape; violations surface as *ParseError, never as
// silently coerced values.
package normalize
