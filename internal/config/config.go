// Package config provides reading and writing of cellrev configuration.
// Supports both global (~/.cellrev/config.yaml) and local (.cellrev/config.yaml).
// Reading: uses local if it exists, otherwise global.
// Writing: defaults to global, use --local for local.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpl-au/cellrev/internal/diff"
)

var (
	// ErrNoConfigPath is returned when the config path cannot be determined.
	ErrNoConfigPath = errors.New("cannot determine config path")
	// ErrUnknownKey is returned when getting/setting an unknown config key.
	ErrUnknownKey = errors.New("unknown config key")
	// ErrInvalidValue is returned when a config value is invalid.
	ErrInvalidValue = errors.New("invalid config value")
)

// Scope represents the configuration scope (global or local).
type Scope int

const (
	// ScopeGlobal is user-wide config in ~/.cellrev/config.yaml (default)
	ScopeGlobal Scope = iota
	// ScopeLocal is repository-specific config in .cellrev/config.yaml
	ScopeLocal
)

// Dir is the name of the per-user and per-repository directory.
const Dir = ".cellrev"

// Author represents the author metadata stored in the repository config.
type Author struct {
	Name  string `yaml:"name,omitempty"`
	Email string `yaml:"email,omitempty"`
}

// Diff tunes replacement pairing.
type Diff struct {
	PairMetric    *string  `yaml:"pair_metric,omitempty"`
	PairThreshold *float64 `yaml:"pair_threshold,omitempty"`
}

// Session holds interactive editing timings.
type Session struct {
	QuietMs   *int `yaml:"quiet_ms,omitempty"`
	TimeoutMs *int `yaml:"timeout_ms,omitempty"`
}

// Processing controls bulk regeneration.
type Processing struct {
	BatchSize    *int `yaml:"batch_size,omitempty"`
	MaxRetries   *int `yaml:"max_retries,omitempty"`
	RetryDelayMs *int `yaml:"retry_delay_ms,omitempty"`
}

// Generator selects the text generation provider and prompt files.
// API keys are never stored here; they come from the environment.
type Generator struct {
	Provider      string `yaml:"provider,omitempty"`
	Model         string `yaml:"model,omitempty"`
	MaxTokens     *int   `yaml:"max_tokens,omitempty"`
	BaseURL       string `yaml:"base_url,omitempty"`
	PromptDefault string `yaml:"prompt_default,omitempty"`
	PromptAlt1    string `yaml:"prompt_alt1,omitempty"`
	PromptAlt2    string `yaml:"prompt_alt2,omitempty"`
}

// Web holds HTTP server settings.
type Web struct {
	Addr string `yaml:"addr,omitempty"`
}

// Limits holds size limit configuration options.
type Limits struct {
	MaxID      *int   `yaml:"max_id,omitempty"`
	MaxContent *int64 `yaml:"max_content,omitempty"`
}

// Defaults applied when not configured.
const (
	DefaultQuiet         = 300 * time.Millisecond
	DefaultTimeout       = 30 * time.Second
	DefaultBatchSize     = 5
	DefaultMaxRetries    = 3
	DefaultProvider      = "gemini"
	DefaultModel         = "gemini-2.0-flash"
	DefaultMaxTokens     = 8192
	DefaultWebAddr       = "127.0.0.1:8080"
	DefaultMaxID         = 256
	DefaultMaxContent    = 1024 * 1024 // 1 MB per cell text
	DefaultPairMetric    = string(diff.MetricLength)
	DefaultPairThreshold = diff.DefaultPairThreshold
)

// Validation bounds for configuration values.
const (
	MaxBatchSize  = 10
	MaxMaxRetries = 10
	MinMaxID      = 1
	MaxMaxID      = 4096
	MinMaxContent = 1
	MaxMaxContent = 100 * 1024 * 1024 // 100 MB
	MinQuietMs    = 0
	MaxQuietMs    = 10_000
	MinTimeoutMs  = 100
	MaxTimeoutMs  = 10 * 60 * 1000
	MaxTokensCap  = 1 << 20
)

// Providers lists the supported generator providers.
var Providers = []string{"gemini", "anthropic", "openai"}

// Config contains configuration for cellrev.
type Config struct {
	Author     Author     `yaml:"author,omitempty"`
	Diff       Diff       `yaml:"diff,omitempty"`
	Session    Session    `yaml:"session,omitempty"`
	Processing Processing `yaml:"processing,omitempty"`
	Generator  Generator  `yaml:"generator,omitempty"`
	Web        Web        `yaml:"web,omitempty"`
	Limits     Limits     `yaml:"limits,omitempty"`

	// path is the file this config was loaded from (for Save)
	path  string
	scope Scope
}

// Validate checks that all configured values are within acceptable bounds.
// Returns nil if all values are valid or not set (defaults will be used).
func (c *Config) Validate() error {
	if c.Diff.PairMetric != nil {
		if _, err := diff.ParseMetric(*c.Diff.PairMetric); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
	}
	if c.Diff.PairThreshold != nil {
		if v := *c.Diff.PairThreshold; v < 0 || v > 1 {
			return fmt.Errorf("%w: pair_threshold must be between 0 and 1, got %g", ErrInvalidValue, v)
		}
	}
	if err := bounded("quiet_ms", c.Session.QuietMs, MinQuietMs, MaxQuietMs); err != nil {
		return err
	}
	if err := bounded("timeout_ms", c.Session.TimeoutMs, MinTimeoutMs, MaxTimeoutMs); err != nil {
		return err
	}
	if err := bounded("batch_size", c.Processing.BatchSize, 1, MaxBatchSize); err != nil {
		return err
	}
	if err := bounded("max_retries", c.Processing.MaxRetries, 0, MaxMaxRetries); err != nil {
		return err
	}
	if err := bounded("retry_delay_ms", c.Processing.RetryDelayMs, 0, MaxTimeoutMs); err != nil {
		return err
	}
	if err := bounded("max_tokens", c.Generator.MaxTokens, 1, MaxTokensCap); err != nil {
		return err
	}
	if p := c.Generator.Provider; p != "" && !validProvider(p) {
		return fmt.Errorf("%w: provider must be one of %v, got %q", ErrInvalidValue, Providers, p)
	}
	if err := bounded("max_id", c.Limits.MaxID, MinMaxID, MaxMaxID); err != nil {
		return err
	}
	if c.Limits.MaxContent != nil {
		v := *c.Limits.MaxContent
		if v < MinMaxContent || v > MaxMaxContent {
			return fmt.Errorf("%w: max_content must be between %d and %d, got %d",
				ErrInvalidValue, MinMaxContent, MaxMaxContent, v)
		}
	}
	return nil
}

func bounded(name string, p *int, lo, hi int) error {
	if p == nil {
		return nil
	}
	if v := *p; v < lo || v > hi {
		return fmt.Errorf("%w: %s must be between %d and %d, got %d", ErrInvalidValue, name, lo, hi, v)
	}
	return nil
}

func validProvider(p string) bool {
	return slices.Contains(Providers, p)
}

// DiffOptions returns the pairing options for the diff engine.
func (c *Config) DiffOptions() diff.Options {
	opts := diff.DefaultOptions()
	if c.Diff.PairMetric != nil {
		if m, err := diff.ParseMetric(*c.Diff.PairMetric); err == nil {
			opts.PairMetric = m
		}
	}
	if c.Diff.PairThreshold != nil {
		opts.PairThreshold = *c.Diff.PairThreshold
	}
	return opts
}

// Quiet returns how long input must be stable before a preview (defaults to 300ms).
func (c *Config) Quiet() time.Duration {
	if c.Session.QuietMs == nil {
		return DefaultQuiet
	}
	return time.Duration(*c.Session.QuietMs) * time.Millisecond
}

// Timeout bounds preview, save and regenerate calls (defaults to 30s).
func (c *Config) Timeout() time.Duration {
	if c.Session.TimeoutMs == nil {
		return DefaultTimeout
	}
	return time.Duration(*c.Session.TimeoutMs) * time.Millisecond
}

// BatchSize returns the bulk regeneration worker count (defaults to 5).
func (c *Config) BatchSize() int {
	if c.Processing.BatchSize == nil {
		return DefaultBatchSize
	}
	return *c.Processing.BatchSize
}

// MaxRetries returns how many times a failed generation is retried (defaults to 3).
func (c *Config) MaxRetries() int {
	if c.Processing.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *c.Processing.MaxRetries
}

// RetryDelay returns the pause between generation retries (defaults to 0).
func (c *Config) RetryDelay() time.Duration {
	if c.Processing.RetryDelayMs == nil {
		return 0
	}
	return time.Duration(*c.Processing.RetryDelayMs) * time.Millisecond
}

// Provider returns the generator provider name (defaults to gemini).
func (c *Config) Provider() string {
	if c.Generator.Provider == "" {
		return DefaultProvider
	}
	return c.Generator.Provider
}

// Model returns the generator model. The default only applies to gemini;
// other providers fall back to their own defaults.
func (c *Config) Model() string {
	if c.Generator.Model == "" && c.Provider() == DefaultProvider {
		return DefaultModel
	}
	return c.Generator.Model
}

// MaxTokens returns the generation output cap (defaults to 8192).
func (c *Config) MaxTokens() int {
	if c.Generator.MaxTokens == nil {
		return DefaultMaxTokens
	}
	return *c.Generator.MaxTokens
}

// WebAddr returns the HTTP listen address (defaults to 127.0.0.1:8080).
func (c *Config) WebAddr() string {
	if c.Web.Addr == "" {
		return DefaultWebAddr
	}
	return c.Web.Addr
}

// MaxID returns the maximum cell id length in bytes (defaults to 256).
func (c *Config) MaxID() int {
	if c.Limits.MaxID == nil {
		return DefaultMaxID
	}
	return *c.Limits.MaxID
}

// MaxContent returns the maximum size of one cell text in bytes (defaults to 1 MB).
func (c *Config) MaxContent() int64 {
	if c.Limits.MaxContent == nil {
		return DefaultMaxContent
	}
	return *c.Limits.MaxContent
}

// LocalPath returns the path to the local (repository) config file.
func LocalPath() string {
	return filepath.Join(Dir, "config.yaml")
}

// GlobalPath returns the path to the global (user) config file: ~/.cellrev/config.yaml
func GlobalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, Dir, "config.yaml")
}

// Load reads configuration: uses local if it exists, otherwise global.
func Load() (*Config, error) {
	if _, err := os.Stat(LocalPath()); err == nil {
		return LoadScope(ScopeLocal)
	}
	return LoadScope(ScopeGlobal)
}

// LoadScope reads configuration from a specific scope.
func LoadScope(scope Scope) (*Config, error) {
	path := pathForScope(scope)
	if path == "" {
		return &Config{scope: scope}, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{path: path, scope: scope}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("malformed config file %s: %w\n\nTo fix: edit the file to correct the YAML syntax, or delete it to use defaults", path, err)
	}
	cfg.path = path
	cfg.scope = scope

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &cfg, nil
}

// Scope returns which scope this config was loaded from.
func (c *Config) Scope() Scope {
	return c.scope
}

// Save writes the configuration to its original location.
func (c *Config) Save() error {
	if c.path == "" {
		c.path = pathForScope(c.scope)
	}
	if c.path == "" {
		return ErrNoConfigPath
	}
	return c.saveToPath(c.path)
}

// SaveScope writes the configuration to the specified scope.
func (c *Config) SaveScope(scope Scope) error {
	path := pathForScope(scope)
	if path == "" {
		return ErrNoConfigPath
	}
	return c.saveToPath(path)
}

// saveToPath writes configuration to a specific filesystem path.
// Creates parent directories as needed with mode 0755.
func (c *Config) saveToPath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func pathForScope(scope Scope) string {
	switch scope {
	case ScopeLocal:
		return LocalPath()
	case ScopeGlobal:
		return GlobalPath()
	default:
		return ""
	}
}
