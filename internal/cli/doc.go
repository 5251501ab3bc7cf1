// Package cli wires together the Cobra command tree for the aicr binary.
//
// It defines the root command and all subcommands (review, backends,
// config, cache, version), binds flags, reads configuration, builds the
// backend dispatcher, and returns deterministic exit codes for CI gating.
package cli
