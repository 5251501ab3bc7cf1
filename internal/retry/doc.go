// Package retry wraps arbitrary operations with bounded retry and
// exponential backoff.
//
// Errors implementing the NonRetryable interface abort the loop
// immediately; everything else is retried until attempts are exhausted,
// at which point the last error is returned unchanged so callers can do
// the final wrapping. Delays follow initialDelay * factor^(k-2) capped at
// maxDelay, with no jitter. Each attempt and each backoff is logged.
package retry
