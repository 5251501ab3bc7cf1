package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/physics91/ai-code-review-mcp-sub000/internal/config"
	"github.com/physics91/ai-code-review-mcp-sub000/internal/dispatch"
	"github.com/physics91/ai-code-review-mcp-sub000/internal/pathval"
	"github.com/physics91/ai-code-review-mcp-sub000/internal/retry"
	"github.com/physics91/ai-code-review-mcp-sub000/internal/review"
)

// resetFlags resets all package-level flag variables to their zero values.
func resetFlags() {
	flagBackend = ""
	flagBackends = ""
	flagCombined = false
	flagFocus = "general"
	flagContext = ""
	flagSeverity = ""
	flagTimeout = 0
	flagSequential = false
	flagFormat = ""
	flagOut = ""
	flagFailOn = ""
	flagModel = ""
	flagThreshold = 0
	flagIncludeIndividual = false
	flagNoRedact = false
	flagNoCache = false
	exitCode = ExitSuccess
}

func TestSplitComma(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty string", "", nil},
		{"single value", "gemini", []string{"gemini"}},
		{"multiple values", "gemini,claude", []string{"gemini", "claude"}},
		{"whitespace trimmed", " gemini , claude ", []string{"gemini", "claude"}},
		{"empty parts skipped", "gemini,,claude", []string{"gemini", "claude"}},
		{"all empty", ",,,", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitComma(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("splitComma(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("splitComma(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBuildOverrides_NoFlags(t *testing.T) {
	resetFlags()
	m := buildOverrides()
	if len(m) != 0 {
		t.Errorf("buildOverrides() with no flags = %v, want empty map", m)
	}
}

func TestBuildOverrides_AllFlags(t *testing.T) {
	resetFlags()
	flagBackend = "claude"
	flagFormat = "json"
	flagFailOn = "high"
	flagThreshold = 0.9

	m := buildOverrides()
	want := map[string]string{
		"backend":   "claude",
		"format":    "json",
		"failOn":    "high",
		"threshold": "0.9",
	}
	for k, v := range want {
		if m[k] != v {
			t.Errorf("overrides[%q] = %q, want %q", k, m[k], v)
		}
	}
}

func TestMeetsThreshold(t *testing.T) {
	tests := []struct {
		severity review.Severity
		failOn   string
		want     bool
	}{
		{review.SeverityCritical, "high", true},
		{review.SeverityHigh, "high", true},
		{review.SeverityMedium, "high", false},
		{review.SeverityMedium, "medium", true},
		{review.SeverityLow, "medium", false},
		{review.SeverityInfo, "low", false},
		{review.SeverityCritical, "none", false},
		{review.SeverityCritical, "", false},
		{review.SeverityCritical, "bogus", false},
	}
	for _, tt := range tests {
		if got := meetsThreshold(tt.severity, tt.failOn); got != tt.want {
			t.Errorf("meetsThreshold(%s, %q) = %v, want %v", tt.severity, tt.failOn, got, tt.want)
		}
	}
}

func TestSeverityFilter(t *testing.T) {
	resetFlags()
	if got := severityFilter(); got != review.FilterAll {
		t.Errorf("default filter = %s, want all", got)
	}
	flagSeverity = "medium"
	if got := severityFilter(); got != review.FilterMedium {
		t.Errorf("filter = %s, want medium", got)
	}
	flagSeverity = "high"
	if got := severityFilter(); got != review.FilterHigh {
		t.Errorf("filter = %s, want high", got)
	}
}

func TestCombinedMode(t *testing.T) {
	resetFlags()
	if combinedMode() {
		t.Error("combined mode should be off by default")
	}
	flagCombined = true
	if !combinedMode() {
		t.Error("--combined should enable combined mode")
	}
	resetFlags()
	flagBackends = "gemini,claude"
	if !combinedMode() {
		t.Error("--backends should enable combined mode")
	}
	if got := selectedBackends(); len(got) != 2 {
		t.Errorf("selectedBackends() = %v", got)
	}
}

func TestRetryFromConfig(t *testing.T) {
	got := retryFromConfig(config.RetryConfig{
		MaxAttempts:         5,
		InitialDelaySeconds: 2,
		MaxDelaySeconds:     60,
		Factor:              3,
	})
	if got.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", got.MaxAttempts)
	}
	if got.InitialDelay != 2*time.Second {
		t.Errorf("InitialDelay = %v, want 2s", got.InitialDelay)
	}
	if got.MaxDelay != 60*time.Second {
		t.Errorf("MaxDelay = %v, want 60s", got.MaxDelay)
	}
	if got.Factor != 3 {
		t.Errorf("Factor = %v, want 3", got.Factor)
	}

	// Zero config keeps defaults.
	def := retry.DefaultConfig()
	if got := retryFromConfig(config.RetryConfig{}); got != def {
		t.Errorf("zero config = %+v, want defaults %+v", got, def)
	}
}

func TestReportError_Security(t *testing.T) {
	resetFlags()
	reportError(&pathval.SecurityError{Path: "/tmp/evil", Reason: "not whitelisted"})
	if exitCode != ExitSecurityErr {
		t.Errorf("exitCode = %d, want %d", exitCode, ExitSecurityErr)
	}
}

func TestReportError_Runtime(t *testing.T) {
	resetFlags()
	reportError(errors.New("backend exploded"))
	if exitCode != ExitRuntimeError {
		t.Errorf("exitCode = %d, want %d", exitCode, ExitRuntimeError)
	}
}

func TestReportError_AllFailedSecurity(t *testing.T) {
	resetFlags()
	reportError(&dispatch.AllFailedError{Failures: map[string]error{
		"gemini": &pathval.SecurityError{Path: "/tmp/evil", Reason: "not whitelisted"},
		"claude": &pathval.SecurityError{Path: "/tmp/evil2", Reason: "not whitelisted"},
	}})
	if exitCode != ExitSecurityErr {
		t.Errorf("exitCode = %d, want %d", exitCode, ExitSecurityErr)
	}
}

func TestReportError_AllFailedMixed(t *testing.T) {
	resetFlags()
	reportError(&dispatch.AllFailedError{Failures: map[string]error{
		"gemini": &pathval.SecurityError{Path: "/tmp/evil", Reason: "not whitelisted"},
		"claude": errors.New("timeout"),
	}})
	if exitCode != ExitRuntimeError {
		t.Errorf("exitCode = %d, want %d", exitCode, ExitRuntimeError)
	}
}

func TestBuildDispatcher(t *testing.T) {
	resetFlags()
	d, err := buildDispatcher(config.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	names := d.Backends()
	if len(names) != 2 || names[0] != "claude" || names[1] != "gemini" {
		t.Errorf("backends = %v", names)
	}
}
