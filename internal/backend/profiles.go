package backend

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Profile describes how to drive one backend CLI: the command it ships
// as, the fixed safety flags appended after user arguments, and how a
// model override reaches it.
type Profile struct {
	Name        string
	Command     string
	SafetyFlags []string
	ModelFlag   string
	ModelEnvVar string
	Timeout     time.Duration
}

// Built-in profiles. Safety flags pin structured output, read-only
// sandboxing, and skip repository-local settings; FilterUserArgs keeps
// user arguments from overriding any of them.
var profiles = map[string]Profile{
	"gemini": {
		Name:        "gemini",
		Command:     "gemini",
		SafetyFlags: []string{"--output-format", "json", "--sandbox", "--approval-mode", "plan"},
		ModelFlag:   "--model",
		ModelEnvVar: "GEMINI_MODEL",
		Timeout:     5 * time.Minute,
	},
	"claude": {
		Name:        "claude",
		Command:     "claude",
		SafetyFlags: []string{"--print", "--output-format", "stream-json", "--verbose", "--permission-mode", "plan", "--setting-sources", "user"},
		ModelFlag:   "--model",
		ModelEnvVar: "ANTHROPIC_MODEL",
		Timeout:     5 * time.Minute,
	},
}

// ProfileFor returns the built-in profile for a backend name.
func ProfileFor(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown backend: %s", name)
	}
	return p, nil
}

// ProfileNames lists the built-in backends in stable order.
func ProfileNames() []string {
	return []string{"gemini", "claude"}
}

// pathEnvOverride reads the per-backend whitelist override variable,
// e.g. AICR_GEMINI_PATH.
func pathEnvOverride(name string) string {
	return os.Getenv("AICR_" + strings.ToUpper(name) + "_PATH")
}
