package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/physics91/ai-code-review-mcp-sub000/internal/backend"
	"github.com/physics91/ai-code-review-mcp-sub000/internal/cache"
	"github.com/physics91/ai-code-review-mcp-sub000/internal/config"
	"github.com/physics91/ai-code-review-mcp-sub000/internal/dispatch"
	"github.com/physics91/ai-code-review-mcp-sub000/internal/output"
	"github.com/physics91/ai-code-review-mcp-sub000/internal/pathval"
	"github.com/physics91/ai-code-review-mcp-sub000/internal/redact"
	"github.com/physics91/ai-code-review-mcp-sub000/internal/retry"
	"github.com/physics91/ai-code-review-mcp-sub000/internal/review"
)

var (
	flagBackend           string
	flagBackends          string
	flagCombined          bool
	flagFocus             string
	flagContext           string
	flagSeverity          string
	flagTimeout           time.Duration
	flagSequential        bool
	flagFormat            string
	flagOut               string
	flagFailOn            string
	flagModel             string
	flagThreshold         float64
	flagIncludeIndividual bool
	flagNoRedact          bool
	flagNoCache           bool
)

var reviewCmd = &cobra.Command{
	Use:   "review [file]",
	Short: "Review code from a file or stdin",
	Long:  "Review code using one or more AI CLI backends. Reads the named file, or stdin when no file is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}

		code, err := readInput(args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		runReview(code, cfg)
		return nil
	},
}

func addReviewFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagBackend, "backend", "", "Backend to use (gemini, claude)")
	cmd.Flags().StringVar(&flagBackends, "backends", "", "Backends for combined review (comma-separated)")
	cmd.Flags().BoolVar(&flagCombined, "combined", false, "Run all backends and merge their findings")
	cmd.Flags().StringVar(&flagFocus, "focus", "general", "Review focus (general, security, performance)")
	cmd.Flags().StringVar(&flagContext, "context", "", "Additional context for the reviewer")
	cmd.Flags().StringVar(&flagSeverity, "severity", "", "Minimum severity to report (all, medium, high)")
	cmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "Per-backend timeout (e.g. 2m)")
	cmd.Flags().BoolVar(&flagSequential, "sequential", false, "Run combined backends one at a time")
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output format (text, json, markdown)")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&flagFailOn, "fail-on", "", "Fail on severity threshold (none, low, medium, high, critical)")
	cmd.Flags().StringVar(&flagModel, "model", "", "Model name for the selected backend")
	cmd.Flags().Float64Var(&flagThreshold, "threshold", 0, "Similarity threshold for merging combined findings")
	cmd.Flags().BoolVar(&flagIncludeIndividual, "include-individual", false, "Include each backend's raw result in combined output")
	cmd.Flags().BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction (use with caution)")
	cmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Bypass the result cache")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagBackend != "" {
		m["backend"] = flagBackend
	}
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagFailOn != "" {
		m["failOn"] = flagFailOn
	}
	if flagThreshold > 0 {
		m["threshold"] = fmt.Sprintf("%g", flagThreshold)
	}
	return m
}

func readInput(args []string) (string, error) {
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func runReview(code string, cfg config.Config) {
	if flagNoRedact {
		fmt.Fprintln(os.Stderr, "WARNING: secret redaction is disabled")
	}
	if cfg.RedactionEnabled() && !flagNoRedact {
		code = redact.Secrets(code)
	}

	prompt := review.BuildPrompt(code, review.Focus(flagFocus), flagContext)

	d, err := buildDispatcher(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}
	defer d.Close()

	req := dispatch.Request{
		Prompt:            prompt,
		Filter:            severityFilter(),
		Timeout:           flagTimeout,
		Sequential:        flagSequential,
		IncludeIndividual: flagIncludeIndividual,
	}

	ctx := context.Background()

	var report *output.Report
	if combinedMode() {
		req.Backends = selectedBackends()
		merged, err := d.ReviewCombined(ctx, req)
		if err != nil {
			reportError(err)
			return
		}
		report = output.FromAggregate(merged)
	} else {
		result, fromCache, err := runSingle(ctx, d, cfg, prompt, req)
		if err != nil {
			reportError(err)
			return
		}
		if fromCache {
			fmt.Fprintln(os.Stderr, "(result served from cache)")
		}
		report = output.FromAnalysis(result)
	}

	if err := output.WriteReport(report, cfg.Format, flagOut); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}

	if cfg.FailOn != "none" && cfg.FailOn != "" {
		for _, f := range report.Findings {
			if meetsThreshold(f.Severity, cfg.FailOn) {
				exitCode = ExitFindings
				return
			}
		}
	}
}

// runSingle runs one backend, consulting the result cache unless it is
// disabled. Combined reviews never use the cache: their output depends
// on the set of backends invoked, not just the prompt.
func runSingle(ctx context.Context, d *dispatch.Dispatcher, cfg config.Config, prompt string, req dispatch.Request) (*review.AnalysisResult, bool, error) {
	name := cfg.DefaultBackend
	model := flagModel
	if model == "" {
		model = cfg.Backends[name].Model
	}

	enabled := cfg.Cache.IsEnabled() && !flagNoCache
	c, err := cache.New(enabled, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
	if err != nil {
		return nil, false, err
	}

	key := cache.BuildCacheKey(name, model, prompt)
	return c.GetOrCompute(key, func() (*review.AnalysisResult, error) {
		return d.Review(ctx, name, req)
	})
}

func buildDispatcher(cfg config.Config) (*dispatch.Dispatcher, error) {
	d := dispatch.New(dispatch.Options{Threshold: cfg.Aggregation.Threshold})
	for _, name := range backend.ProfileNames() {
		profile, err := backend.ProfileFor(name)
		if err != nil {
			return nil, err
		}
		bc := cfg.Backends[name]
		model := bc.Model
		if flagModel != "" && (name == cfg.DefaultBackend || flagBackend == name) {
			model = flagModel
		}
		client := backend.New(profile, backend.Options{
			CLIPath:   bc.Path,
			Model:     model,
			ExtraArgs: bc.ExtraArgs,
			Timeout:   bc.Timeout(),
			Retry:     retryFromConfig(cfg.Retry),
		})
		limit := bc.MaxConcurrent
		if limit == 0 {
			limit = 1
		}
		d.Register(client, limit)
	}
	return d, nil
}

func retryFromConfig(rc config.RetryConfig) retry.Config {
	cfg := retry.DefaultConfig()
	if rc.MaxAttempts > 0 {
		cfg.MaxAttempts = rc.MaxAttempts
	}
	if rc.InitialDelaySeconds > 0 {
		cfg.InitialDelay = time.Duration(rc.InitialDelaySeconds) * time.Second
	}
	if rc.MaxDelaySeconds > 0 {
		cfg.MaxDelay = time.Duration(rc.MaxDelaySeconds) * time.Second
	}
	if rc.Factor > 0 {
		cfg.Factor = float64(rc.Factor)
	}
	return cfg
}

func combinedMode() bool {
	return flagCombined || flagBackends != ""
}

func selectedBackends() []string {
	if flagBackends != "" {
		return splitComma(flagBackends)
	}
	return nil
}

func severityFilter() review.SeverityFilter {
	switch flagSeverity {
	case "medium":
		return review.FilterMedium
	case "high":
		return review.FilterHigh
	default:
		return review.FilterAll
	}
}

// meetsThreshold reports whether a finding's severity reaches the
// fail-on floor.
func meetsThreshold(severity review.Severity, failOn string) bool {
	floor := review.SeverityRank(review.Severity(failOn))
	if floor == 0 {
		return false
	}
	return review.SeverityRank(severity) >= floor
}

func reportError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var se *pathval.SecurityError
	var afe *dispatch.AllFailedError
	switch {
	case errors.As(err, &se):
		exitCode = ExitSecurityErr
	case errors.As(err, &afe):
		// If every backend was rejected on security grounds, surface
		// that instead of a generic runtime failure.
		for _, ferr := range afe.Failures {
			if !errors.As(ferr, &se) {
				exitCode = ExitRuntimeError
				return
			}
		}
		exitCode = ExitSecurityErr
	default:
		exitCode = ExitRuntimeError
	}
}

func init() {
	addReviewFlags(reviewCmd)
}
