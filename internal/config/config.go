package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the aicr configuration.
type Config struct {
	DefaultBackend string                   `yaml:"defaultBackend"`
	Format         string                   `yaml:"format"`
	FailOn         string                   `yaml:"failOn"`
	Backends       map[string]BackendConfig `yaml:"backends,omitempty"`
	Retry          RetryConfig              `yaml:"retry"`
	Aggregation    AggregationConfig        `yaml:"aggregation"`
	Cache          CacheConfig              `yaml:"cache"`
	RedactSecrets  *bool                    `yaml:"redactSecrets,omitempty"`
}

// RedactionEnabled reports whether secret redaction is on. Pointer form
// lets an explicit false in the config file survive merging with defaults.
func (c Config) RedactionEnabled() bool {
	return c.RedactSecrets != nil && *c.RedactSecrets
}

// BackendConfig holds per-backend overrides.
type BackendConfig struct {
	Path           string   `yaml:"path,omitempty"`
	Model          string   `yaml:"model,omitempty"`
	TimeoutSeconds int      `yaml:"timeoutSeconds,omitempty"`
	MaxConcurrent  int      `yaml:"maxConcurrent,omitempty"`
	ExtraArgs      []string `yaml:"extraArgs,omitempty"`
}

// Timeout returns the configured per-invocation timeout, or zero when
// the backend default applies.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// RetryConfig controls the retry posture for backend invocations.
type RetryConfig struct {
	MaxAttempts         int `yaml:"maxAttempts"`
	InitialDelaySeconds int `yaml:"initialDelaySeconds"`
	MaxDelaySeconds     int `yaml:"maxDelaySeconds"`
	Factor              int `yaml:"factor"`
}

// AggregationConfig controls cross-backend merging.
type AggregationConfig struct {
	Threshold float64 `yaml:"threshold"`
}

// CacheConfig controls result caching.
type CacheConfig struct {
	Enabled    *bool  `yaml:"enabled,omitempty"`
	Dir        string `yaml:"dir,omitempty"`
	TTLSeconds int    `yaml:"ttlSeconds"`
}

// IsEnabled reports whether caching is on.
func (c CacheConfig) IsEnabled() bool {
	return c.Enabled != nil && *c.Enabled
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		DefaultBackend: "gemini",
		Format:         "text",
		FailOn:         "none",
		Backends: map[string]BackendConfig{
			"gemini": {MaxConcurrent: 1},
			"claude": {MaxConcurrent: 1},
		},
		Retry: RetryConfig{
			MaxAttempts:         3,
			InitialDelaySeconds: 1,
			MaxDelaySeconds:     30,
			Factor:              2,
		},
		Aggregation: AggregationConfig{Threshold: 0.8},
		Cache: CacheConfig{
			Enabled:    boolPtr(true),
			TTLSeconds: 86400,
		},
		RedactSecrets: boolPtr(true),
	}
}

func boolPtr(v bool) *bool { return &v }

// ConfigDir returns the platform-appropriate config directory for aicr.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "aicr"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "aicr"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "aicr"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "aicr"), nil
	default:
		return filepath.Join(home, ".config", "aicr"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadFile loads config from the config file. Returns zero Config and
// nil error if the file doesn't exist.
func LoadFile() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Save writes the config to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags (only non-zero values should be set).
func Load(overrides map[string]string) (Config, error) {
	cfg := Default()

	fileCfg, err := LoadFile()
	if err != nil {
		return Config{}, err
	}
	mergeFile(&cfg, fileCfg)
	mergeEnv(&cfg)
	mergeOverrides(&cfg, overrides)

	return cfg, nil
}

func mergeFile(dst *Config, src Config) {
	if src.DefaultBackend != "" {
		dst.DefaultBackend = src.DefaultBackend
	}
	if src.Format != "" {
		dst.Format = src.Format
	}
	if src.FailOn != "" {
		dst.FailOn = src.FailOn
	}
	for name, bc := range src.Backends {
		cur := dst.Backends[name]
		if bc.Path != "" {
			cur.Path = bc.Path
		}
		if bc.Model != "" {
			cur.Model = bc.Model
		}
		if bc.TimeoutSeconds > 0 {
			cur.TimeoutSeconds = bc.TimeoutSeconds
		}
		if bc.MaxConcurrent > 0 {
			cur.MaxConcurrent = bc.MaxConcurrent
		}
		if len(bc.ExtraArgs) > 0 {
			cur.ExtraArgs = bc.ExtraArgs
		}
		if dst.Backends == nil {
			dst.Backends = make(map[string]BackendConfig)
		}
		dst.Backends[name] = cur
	}
	if src.Retry.MaxAttempts > 0 {
		dst.Retry.MaxAttempts = src.Retry.MaxAttempts
	}
	if src.Retry.InitialDelaySeconds > 0 {
		dst.Retry.InitialDelaySeconds = src.Retry.InitialDelaySeconds
	}
	if src.Retry.MaxDelaySeconds > 0 {
		dst.Retry.MaxDelaySeconds = src.Retry.MaxDelaySeconds
	}
	if src.Retry.Factor > 0 {
		dst.Retry.Factor = src.Retry.Factor
	}
	if src.Aggregation.Threshold > 0 {
		dst.Aggregation.Threshold = src.Aggregation.Threshold
	}
	if src.Cache.Dir != "" {
		dst.Cache.Dir = src.Cache.Dir
	}
	if src.Cache.TTLSeconds > 0 {
		dst.Cache.TTLSeconds = src.Cache.TTLSeconds
	}
	// Pointer bools stay nil when the file leaves them out, so an
	// explicit false in the file is honored here.
	if src.Cache.Enabled != nil {
		dst.Cache.Enabled = src.Cache.Enabled
	}
	if src.RedactSecrets != nil {
		dst.RedactSecrets = src.RedactSecrets
	}
}

func mergeEnv(cfg *Config) {
	if v := os.Getenv("AICR_BACKEND"); v != "" {
		cfg.DefaultBackend = v
	}
	if v := os.Getenv("AICR_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("AICR_FAIL_ON"); v != "" {
		cfg.FailOn = v
	}
	if v := os.Getenv("AICR_RETRY_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retry.MaxAttempts = n
		}
	}
	for name, bc := range cfg.Backends {
		envName := strings.ToUpper(name)
		if v := os.Getenv("AICR_" + envName + "_MODEL"); v != "" {
			bc.Model = v
			cfg.Backends[name] = bc
		}
	}
}

func mergeOverrides(cfg *Config, overrides map[string]string) {
	if overrides == nil {
		return
	}
	if v, ok := overrides["backend"]; ok && v != "" {
		cfg.DefaultBackend = v
	}
	if v, ok := overrides["format"]; ok && v != "" {
		cfg.Format = v
	}
	if v, ok := overrides["failOn"]; ok && v != "" {
		cfg.FailOn = v
	}
	if v, ok := overrides["threshold"]; ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Aggregation.Threshold = f
		}
	}
}

// SetField sets a single config field by key name. Backend fields use a
// dotted path like "backends.gemini.model". Returns an error if the key
// is unknown.
func SetField(cfg *Config, key, value string) error {
	if rest, ok := strings.CutPrefix(key, "backends."); ok {
		return setBackendField(cfg, rest, value)
	}
	switch key {
	case "defaultBackend":
		cfg.DefaultBackend = value
	case "format":
		cfg.Format = value
	case "failOn":
		cfg.FailOn = value
	case "aggregation.threshold":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("aggregation.threshold must be a number: %w", err)
		}
		cfg.Aggregation.Threshold = f
	case "retry.maxAttempts":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("retry.maxAttempts must be an integer: %w", err)
		}
		cfg.Retry.MaxAttempts = n
	case "cache.ttlSeconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("cache.ttlSeconds must be an integer: %w", err)
		}
		cfg.Cache.TTLSeconds = n
	case "cache.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("cache.enabled must be a boolean: %w", err)
		}
		cfg.Cache.Enabled = &b
	case "redactSecrets":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("redactSecrets must be a boolean: %w", err)
		}
		cfg.RedactSecrets = &b
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func setBackendField(cfg *Config, key, value string) error {
	name, field, ok := strings.Cut(key, ".")
	if !ok {
		return fmt.Errorf("backend config key must be backends.<name>.<field>")
	}
	if cfg.Backends == nil {
		cfg.Backends = make(map[string]BackendConfig)
	}
	bc := cfg.Backends[name]
	switch field {
	case "path":
		bc.Path = value
	case "model":
		bc.Model = value
	case "timeoutSeconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("timeoutSeconds must be an integer: %w", err)
		}
		bc.TimeoutSeconds = n
	case "maxConcurrent":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("maxConcurrent must be an integer: %w", err)
		}
		bc.MaxConcurrent = n
	default:
		return fmt.Errorf("unknown backend config field: %s", field)
	}
	cfg.Backends[name] = bc
	return nil
}
