package pathval

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// SecurityError reports a path that failed whitelist validation. It is
// always fatal: callers must never retry or silently wrap it.
type SecurityError struct {
	Path   string
	Reason string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("security violation for path %q: %s", e.Path, e.Reason)
}

// NonRetryable marks the error as fatal for retry loops.
func (e *SecurityError) NonRetryable() {}

// Validator checks requested executable paths against an
// administrator-approved whitelist before anything is spawned.
type Validator struct {
	command string
	allowed []string
	logger  *slog.Logger
}

// standardInstallDirs lists the install locations a configured absolute
// path may live under and still be trusted.
func standardInstallDirs() []string {
	dirs := []string{"/usr/local/bin", "/usr/bin", "/opt/homebrew/bin"}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".local", "bin"))
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			dirs = append(dirs, filepath.Join(appData, "npm"))
		}
	}
	return dirs
}

// New builds a Validator for the named command. The whitelist is assembled
// from the configured path (only when it matches a known-safe pattern), an
// environment override, the standard install locations, and the bare
// command name with its Windows .cmd variant. Arbitrary configured paths
// are never trusted blindly.
func New(command, configuredPath, envOverride string, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Validator{command: command, logger: logger}

	if configuredPath != "" && isKnownSafePath(command, configuredPath) {
		v.allowed = append(v.allowed, configuredPath)
	} else if configuredPath != "" {
		logger.Warn("ignoring configured path outside known-safe patterns",
			"command", command, "path", configuredPath)
	}
	if envOverride != "" {
		v.allowed = append(v.allowed, envOverride)
	}
	for _, dir := range standardInstallDirs() {
		v.allowed = append(v.allowed, filepath.Join(dir, command))
	}
	v.allowed = append(v.allowed, command, command+".cmd")

	return v
}

// isKnownSafePath reports whether a configured path matches the small set
// of patterns we accept from configuration: the literal command name or an
// absolute path to the command under a standard install directory.
func isKnownSafePath(command, path string) bool {
	if path == command || path == command+".cmd" {
		return true
	}
	if !filepath.IsAbs(path) {
		return false
	}
	base := filepath.Base(path)
	if base != command && base != command+".cmd" {
		return false
	}
	dir := filepath.Dir(path)
	for _, std := range standardInstallDirs() {
		if dir == std {
			return true
		}
	}
	return false
}

// Allowed returns a copy of the whitelist, for diagnostics.
func (v *Validator) Allowed() []string {
	out := make([]string, len(v.allowed))
	copy(out, v.allowed)
	return out
}

// Validate confirms the requested path is whitelisted. Bare command names
// must appear verbatim in the whitelist and, on non-Windows platforms, are
// additionally resolved through `which` to defeat PATH-manipulation attacks:
// a resolution that succeeds but lands outside the whitelist is fatal.
// Absolute and relative paths are canonicalized and compared for exact
// equality against each canonicalized whitelist entry.
func (v *Validator) Validate(path string) error {
	if path == "" {
		return v.fail(path, "empty path")
	}

	if isBareName(path) {
		if !v.containsBare(path) {
			return v.fail(path, "command name not in whitelist")
		}
		if runtime.GOOS != "windows" {
			if err := v.checkResolved(path); err != nil {
				return err
			}
		}
		return nil
	}

	canon := canonicalize(path)
	for _, entry := range v.allowed {
		if isBareName(entry) {
			continue
		}
		if canonicalize(entry) == canon {
			return nil
		}
	}
	return v.fail(path, "path not in whitelist")
}

// checkResolved resolves a bare name through the platform search path. A
// failed resolution while the name itself is whitelisted is tolerated; a
// successful resolution outside the whitelist is not.
func (v *Validator) checkResolved(name string) error {
	out, err := exec.Command("which", name).Output()
	if err != nil {
		v.logger.Debug("could not resolve command through search path",
			"command", name, "error", err)
		return nil
	}
	resolved := strings.TrimSpace(string(out))
	if resolved == "" || resolved == name {
		return nil
	}
	resolvedCanon := canonicalize(resolved)
	for _, entry := range v.allowed {
		if isBareName(entry) {
			continue
		}
		if canonicalize(entry) == resolvedCanon {
			return nil
		}
	}
	return v.fail(name, fmt.Sprintf("resolves to %s which is not in whitelist", resolved))
}

func (v *Validator) containsBare(name string) bool {
	for _, entry := range v.allowed {
		if entry == name {
			return true
		}
	}
	return false
}

func (v *Validator) fail(path, reason string) error {
	v.logger.Error("security event: rejected executable path",
		"path", path, "reason", reason, "whitelist", v.allowed)
	return &SecurityError{Path: path, Reason: reason}
}

func isBareName(path string) bool {
	return !strings.ContainsRune(path, os.PathSeparator) && !strings.Contains(path, "/")
}

// canonicalize resolves a path to an absolute, symlink-free form where
// possible, falling back to lexical cleaning.
func canonicalize(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return filepath.Clean(abs)
}
