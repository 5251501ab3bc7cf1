package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/physics91/ai-code-review-mcp-sub000/internal/normalize"
	"github.com/physics91/ai-code-review-mcp-sub000/internal/pathval"
	"github.com/physics91/ai-code-review-mcp-sub000/internal/retry"
	"github.com/physics91/ai-code-review-mcp-sub000/internal/review"
)

// Options configures a Client beyond its profile defaults.
type Options struct {
	// CLIPath overrides the profile command; subject to whitelist rules.
	CLIPath string
	// Model is passed via the profile's model flag and env var.
	Model string
	// ExtraArgs are user-supplied arguments, filtered against safety flags.
	ExtraArgs []string
	// Timeout overrides the profile's per-invocation deadline.
	Timeout time.Duration
	// Retry controls the retry posture; zero value uses retry.DefaultConfig.
	Retry retry.Config
	// Spawner substitutes the subprocess boundary, used by tests.
	Spawner Spawner
	Logger  *slog.Logger
}

// AnalyzeOptions are per-request overrides.
type AnalyzeOptions struct {
	RequestID string
	Timeout   time.Duration
	Filter    review.SeverityFilter
	CLIPath   string
}

// Client runs one backend CLI: path validation, subprocess invocation
// with retry, and output normalization, producing an AnalysisResult.
type Client struct {
	profile   Profile
	validator *pathval.Validator
	executor  *retry.Executor
	spawner   Spawner
	path      string
	model     string
	extraArgs []string
	timeout   time.Duration
	logger    *slog.Logger
}

// New builds a Client for the given profile.
func New(profile Profile, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("backend", profile.Name)

	retryCfg := opts.Retry
	if retryCfg.MaxAttempts == 0 {
		retryCfg = retry.DefaultConfig()
	}

	path := opts.CLIPath
	if path == "" {
		path = profile.Command
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = profile.Timeout
	}
	spawner := opts.Spawner
	if spawner == nil {
		spawner = execSpawner{}
	}

	envOverride := ""
	if v := pathEnvOverride(profile.Name); v != "" {
		envOverride = v
	}

	return &Client{
		profile:   profile,
		validator: pathval.New(profile.Command, opts.CLIPath, envOverride, logger),
		executor:  retry.New(retryCfg, logger),
		spawner:   spawner,
		path:      path,
		model:     opts.Model,
		extraArgs: opts.ExtraArgs,
		timeout:   timeout,
		logger:    logger,
	}
}

// Name returns the backend name.
func (c *Client) Name() string { return c.profile.Name }

// ValidatePath runs whitelist validation against the effective CLI path
// without spawning anything. Used by diagnostics.
func (c *Client) ValidatePath() error {
	return c.validator.Validate(c.path)
}

// Analyze submits the prompt to the backend and returns the normalized
// result. Path validation happens before any retry, since a security
// failure must never be retried; SecurityErrors propagate unwrapped while
// every other failure is wrapped once into an AnalysisError carrying the
// request id.
func (c *Client) Analyze(ctx context.Context, prompt string, opts AnalyzeOptions) (*review.AnalysisResult, error) {
	start := time.Now()

	path := c.path
	if opts.CLIPath != "" {
		path = opts.CLIPath
	}
	timeout := c.timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	if err := c.validator.Validate(path); err != nil {
		return nil, err
	}

	args := c.buildArgs()
	env := c.buildEnv()

	var parsed normalize.Result
	err := c.executor.Execute(ctx, c.profile.Name+" analyze", func() error {
		res, err := c.spawner.Spawn(ctx, path, args, prompt, env, timeout)
		if err != nil {
			return fmt.Errorf("spawning %s: %w", c.profile.Name, err)
		}
		if res.TimedOut {
			return &TimeoutError{Backend: c.profile.Name, Timeout: timeout}
		}
		if res.ExitCode != 0 {
			return &CLIExecutionError{
				Backend:  c.profile.Name,
				ExitCode: res.ExitCode,
				Stderr:   res.Stderr,
				Stdout:   truncate(res.Stdout, 500),
			}
		}
		parsed, err = normalize.Parse(res.Stdout)
		return err
	})
	if err != nil {
		var se *pathval.SecurityError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, &AnalysisError{RequestID: opts.RequestID, Backend: c.profile.Name, Err: err}
	}

	result := &review.AnalysisResult{
		ID:                opts.RequestID,
		Timestamp:         time.Now().UTC(),
		Source:            c.profile.Name,
		Findings:          parsed.Findings,
		OverallAssessment: parsed.OverallAssessment,
		Recommendations:   parsed.Recommendations,
		Metadata:          map[string]string{"cliPath": path},
	}
	if c.model != "" {
		result.Metadata["model"] = c.model
	}

	filter := opts.Filter
	if filter == "" {
		filter = review.FilterAll
	}
	review.ApplyFilter(result, filter)

	result.DurationMs = time.Since(start).Milliseconds()
	c.logger.Info("analysis complete",
		"request", opts.RequestID,
		"findings", result.Summary.Total,
		"durationMs", result.DurationMs)
	return result, nil
}

// buildArgs appends the fixed safety flags after the filtered user
// arguments so the safety posture always wins.
func (c *Client) buildArgs() []string {
	args := FilterUserArgs(c.extraArgs, c.profile.SafetyFlags)
	args = append(args, c.profile.SafetyFlags...)
	if c.model != "" && c.profile.ModelFlag != "" {
		args = append(args, c.profile.ModelFlag, c.model)
	}
	return args
}

func (c *Client) buildEnv() []string {
	if c.model != "" && c.profile.ModelEnvVar != "" {
		return []string{c.profile.ModelEnvVar + "=" + c.model}
	}
	return nil
}
