// Package pathval validates executable paths against an approved
// whitelist before any subprocess is spawned.
//
// Bare command names must be whitelisted verbatim and are additionally
// resolved through the platform search path so that a malicious binary
// shadowing the expected name earlier in PATH is rejected. Absolute and
// relative paths are canonicalized and require an exact whitelist match.
// Every rejection is a typed *SecurityError and is logged as a security
// event with the attempted path and the active whitelist.
package pathval
