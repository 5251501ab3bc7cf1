// Package redact removes secrets from code under review before it is
// sent to any backend subprocess.
//
// Detection uses regex heuristics covering common secret shapes: API
// keys, JWTs, private keys, AWS access key IDs and secret access keys,
// bearer tokens, and provider-specific tokens (Anthropic, OpenAI,
// GitHub, Slack).
package redact
