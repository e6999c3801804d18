package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// FailPolicy defines how review subprocess failures are treated
type FailPolicy string

const (
	// FailOpen allows the git operation when the review subprocess fails
	FailOpen FailPolicy = "open"
	// FailClosed blocks the git operation when the review subprocess fails
	FailClosed FailPolicy = "closed"
)

// FileName is the per-repository configuration file, looked up at the
// repository root.
const FileName = ".hooksync.yaml"

// Environment variable overrides for the review knobs.
const (
	EnvReviewDisabled   = "HOOKSYNC_REVIEW_DISABLED"
	EnvReviewMinScore   = "HOOKSYNC_REVIEW_MIN_SCORE"
	EnvReviewTimeout    = "HOOKSYNC_REVIEW_TIMEOUT"
	EnvReviewMaxLines   = "HOOKSYNC_REVIEW_MAX_LINES"
	EnvReviewFailPolicy = "HOOKSYNC_REVIEW_FAIL_POLICY"
)

// Config represents the complete hooksync configuration
type Config struct {
	Source SourceConfig `yaml:"source"`
	Sync   SyncConfig   `yaml:"sync"`
	Review ReviewConfig `yaml:"review"`
}

// SourceConfig configures the authoritative hook bundle source
type SourceConfig struct {
	// URL of the authoritative git repository
	URL string `yaml:"url"`
	// Ref to clone (branch or tag); empty means the remote default branch
	Ref string `yaml:"ref"`
	// Subdir within the source repository containing the bundle
	Subdir string `yaml:"subdir"`
	// SiblingPath is a local checkout of the source repository, relative to
	// the consumer repository root. When present and complete it is used
	// directly without touching the network.
	SiblingPath string `yaml:"sibling_path"`
}

// SyncConfig configures synchronization behavior
type SyncConfig struct {
	DebounceSeconds     int `yaml:"debounce_seconds"`
	CloneTimeoutSeconds int `yaml:"clone_timeout_seconds"`
	CloneDepth          int `yaml:"clone_depth"`
}

// ReviewConfig configures the advisory review gate
type ReviewConfig struct {
	Disabled       bool       `yaml:"disabled"`
	Command        []string   `yaml:"command"`
	MinScore       int        `yaml:"min_score"`
	TimeoutSeconds int        `yaml:"timeout_seconds"`
	MaxLines       int        `yaml:"max_lines"`
	FailPolicy     FailPolicy `yaml:"fail_policy"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg
}

// Load reads and parses the configuration file. A missing file is not an
// error: defaults apply, so a repository without a config still gets safe
// no-op behavior.
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Expand environment variables in string fields
	cfg.expandEnv()

	// Apply defaults and environment overrides
	cfg.applyDefaults()
	cfg.applyEnv()

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// expandEnv expands environment variables in all string fields
func (c *Config) expandEnv() {
	c.Source.URL = os.ExpandEnv(c.Source.URL)
	c.Source.Ref = os.ExpandEnv(c.Source.Ref)
	c.Source.Subdir = os.ExpandEnv(c.Source.Subdir)
	c.Source.SiblingPath = os.ExpandEnv(c.Source.SiblingPath)
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Sync.DebounceSeconds == 0 {
		c.Sync.DebounceSeconds = 60
	}
	if c.Sync.CloneTimeoutSeconds == 0 {
		c.Sync.CloneTimeoutSeconds = 30
	}
	if c.Sync.CloneDepth == 0 {
		c.Sync.CloneDepth = 1
	}
	if len(c.Review.Command) == 0 {
		c.Review.Command = []string{"claude", "-p"}
	}
	if c.Review.MinScore == 0 {
		c.Review.MinScore = 70
	}
	if c.Review.TimeoutSeconds == 0 {
		c.Review.TimeoutSeconds = 120
	}
	if c.Review.MaxLines == 0 {
		c.Review.MaxLines = 2000
	}
	if c.Review.FailPolicy == "" {
		c.Review.FailPolicy = FailOpen
	}
}

// applyEnv overrides review settings from environment variables. Values that
// fail to parse are ignored rather than failing the run.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvReviewDisabled); v != "" {
		if disabled, err := strconv.ParseBool(v); err == nil {
			c.Review.Disabled = disabled
		}
	}
	if v := os.Getenv(EnvReviewMinScore); v != "" {
		if score, err := strconv.Atoi(v); err == nil {
			c.Review.MinScore = score
		}
	}
	if v := os.Getenv(EnvReviewTimeout); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.Review.TimeoutSeconds = secs
		}
	}
	if v := os.Getenv(EnvReviewMaxLines); v != "" {
		if lines, err := strconv.Atoi(v); err == nil {
			c.Review.MaxLines = lines
		}
	}
	if v := os.Getenv(EnvReviewFailPolicy); v != "" {
		switch FailPolicy(v) {
		case FailOpen, FailClosed:
			c.Review.FailPolicy = FailPolicy(v)
		}
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Sync.DebounceSeconds < 0 {
		return fmt.Errorf("sync.debounce_seconds must not be negative: %d", c.Sync.DebounceSeconds)
	}
	if c.Sync.CloneTimeoutSeconds < 1 {
		return fmt.Errorf("sync.clone_timeout_seconds must be positive: %d", c.Sync.CloneTimeoutSeconds)
	}
	if c.Sync.CloneDepth < 1 {
		return fmt.Errorf("sync.clone_depth must be positive: %d", c.Sync.CloneDepth)
	}
	if c.Review.MinScore < 0 || c.Review.MinScore > 100 {
		return fmt.Errorf("review.min_score must be between 0 and 100: %d", c.Review.MinScore)
	}
	if c.Review.TimeoutSeconds < 1 {
		return fmt.Errorf("review.timeout_seconds must be positive: %d", c.Review.TimeoutSeconds)
	}
	if c.Review.MaxLines < 1 {
		return fmt.Errorf("review.max_lines must be positive: %d", c.Review.MaxLines)
	}

	switch c.Review.FailPolicy {
	case FailOpen, FailClosed:
		// valid
	default:
		return fmt.Errorf("invalid review.fail_policy: %s (must be open or closed)", c.Review.FailPolicy)
	}

	return nil
}

// HasSource returns true if at least one bundle source is configured.
func (c *Config) HasSource() bool {
	return c.Source.URL != "" || c.Source.SiblingPath != ""
}

// DebounceWindow returns the minimum interval between effectful sync attempts.
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.Sync.DebounceSeconds) * time.Second
}

// CloneTimeout returns the bound on the temporary clone operation.
func (c *Config) CloneTimeout() time.Duration {
	return time.Duration(c.Sync.CloneTimeoutSeconds) * time.Second
}

// ReviewTimeout returns the bound on the review subprocess.
func (c *Config) ReviewTimeout() time.Duration {
	return time.Duration(c.Review.TimeoutSeconds) * time.Second
}
