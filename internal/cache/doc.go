// Package cache provides a file-based cache for backend analysis results.
//
// Cache entries are keyed by a SHA-256 hash of the backend name, model,
// and redacted prompt content. Each entry stores the normalized analysis
// result along with a creation timestamp and a TTL (in seconds). Expired
// entries are skipped on read and removed lazily.
//
// The default cache directory is $XDG_CACHE_HOME/aicr (or the
// OS-appropriate equivalent). All payloads stored in the cache have
// already been through secret redaction.
package cache
