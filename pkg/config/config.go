package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"xqcrawl/pkg/errors"
)

// Config holds every knob of the crawl engine.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http" json:"http"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Retry     RetryConfig     `yaml:"retry" json:"retry"`
	Crawl     CrawlConfig     `yaml:"crawl" json:"crawl"`
	Browser   BrowserConfig   `yaml:"browser" json:"browser"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// HTTPConfig holds settings of the raw HTTP channel.
type HTTPConfig struct {
	UserAgent      string `yaml:"user_agent" json:"user_agent"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// Timeout returns the per-request timeout.
func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RateLimitConfig describes the randomized spacing window between requests.
// Intervals are in seconds to keep settings.yaml human-editable.
type RateLimitConfig struct {
	MinInterval float64 `yaml:"min_interval" json:"min_interval"`
	MaxInterval float64 `yaml:"max_interval" json:"max_interval"`
}

// Min returns the minimum spacing as a duration.
func (c RateLimitConfig) Min() time.Duration {
	return time.Duration(c.MinInterval * float64(time.Second))
}

// Max returns the maximum spacing as a duration.
func (c RateLimitConfig) Max() time.Duration {
	return time.Duration(c.MaxInterval * float64(time.Second))
}

// RetryConfig describes the per-request retry budget.
type RetryConfig struct {
	MaxAttempts int     `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   float64 `yaml:"base_delay" json:"base_delay"`
}

// Base returns the base backoff delay as a duration.
func (c RetryConfig) Base() time.Duration {
	return time.Duration(c.BaseDelay * float64(time.Second))
}

// Crawl modes. Column pages through the user's article column by offset,
// timeline walks the full feed by server-issued cursor.
const (
	ModeColumn   = "column"
	ModeTimeline = "timeline"
)

// CrawlConfig holds pagination settings.
type CrawlConfig struct {
	Mode     string `yaml:"mode" json:"mode"`
	PageSize int    `yaml:"page_size" json:"page_size"`
	MaxPages int    `yaml:"max_pages" json:"max_pages"` // 0 means unlimited
}

// BrowserConfig holds fallback-channel settings.
type BrowserConfig struct {
	Headless                bool `yaml:"headless" json:"headless"`
	ChallengeTimeoutSeconds int  `yaml:"challenge_timeout_seconds" json:"challenge_timeout_seconds"`
}

// ChallengeTimeout returns how long to wait for a human to complete an
// interactive slide challenge.
func (c BrowserConfig) ChallengeTimeout() time.Duration {
	return time.Duration(c.ChallengeTimeoutSeconds) * time.Second
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns conservative defaults. The source site punishes
// burst traffic, so the shipped pacing errs on the slow side.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			TimeoutSeconds: 30,
		},
		RateLimit: RateLimitConfig{
			MinInterval: 1.0,
			MaxInterval: 2.0,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1.0,
		},
		Crawl: CrawlConfig{
			Mode:     ModeColumn,
			PageSize: 20,
			MaxPages: 0,
		},
		Browser: BrowserConfig{
			Headless:                true,
			ChallengeTimeoutSeconds: 90,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the effective configuration: defaults, then the YAML file
// (or the first default location found), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(path); err != nil {
		return nil, err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile merges a YAML settings file into the config. An empty path
// searches the default locations; a missing file is not an error.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Newf(errors.ErrorTypeConfig, "failed to read config file %s: %v", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Newf(errors.ErrorTypeConfig, "failed to parse config file %s: %v", path, err)
	}
	return nil
}

// findConfigFile searches standard locations for settings.yaml.
func findConfigFile() string {
	locations := []string{
		filepath.Join("config", "settings.yaml"),
		"settings.yaml",
		filepath.Join(os.Getenv("HOME"), ".config", "xqcrawl", "settings.yaml"),
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// LoadFromEnv applies XQCRAWL_* environment overrides. A .env file in the
// working directory is loaded first if present.
func (c *Config) LoadFromEnv() error {
	_ = godotenv.Load()

	if ua := os.Getenv("XQCRAWL_USER_AGENT"); ua != "" {
		c.HTTP.UserAgent = ua
	}
	if v := os.Getenv("XQCRAWL_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.HTTP.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("XQCRAWL_MIN_INTERVAL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			c.RateLimit.MinInterval = f
		}
	}
	if v := os.Getenv("XQCRAWL_MAX_INTERVAL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			c.RateLimit.MaxInterval = f
		}
	}
	if v := os.Getenv("XQCRAWL_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Retry.MaxAttempts = n
		}
	}
	if v := os.Getenv("XQCRAWL_MODE"); v != "" {
		c.Crawl.Mode = v
	}
	if v := os.Getenv("XQCRAWL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate rejects configurations the engine cannot honor.
func (c *Config) Validate() error {
	if c.HTTP.TimeoutSeconds <= 0 {
		return errors.New(errors.ErrorTypeConfig, "http.timeout_seconds must be positive")
	}
	if c.RateLimit.MinInterval < 0 || c.RateLimit.MaxInterval < 0 {
		return errors.New(errors.ErrorTypeConfig, "rate_limit intervals must be non-negative")
	}
	if c.RateLimit.MinInterval > c.RateLimit.MaxInterval {
		return errors.New(errors.ErrorTypeConfig, "rate_limit.min_interval must not exceed rate_limit.max_interval")
	}
	if c.Retry.MaxAttempts < 0 {
		return errors.New(errors.ErrorTypeConfig, "retry.max_attempts must be non-negative")
	}
	if c.Retry.BaseDelay < 0 {
		return errors.New(errors.ErrorTypeConfig, "retry.base_delay must be non-negative")
	}
	if c.Crawl.Mode != ModeColumn && c.Crawl.Mode != ModeTimeline {
		return errors.Newf(errors.ErrorTypeConfig, "crawl.mode must be %q or %q, got %q", ModeColumn, ModeTimeline, c.Crawl.Mode)
	}
	if c.Crawl.PageSize <= 0 {
		return errors.New(errors.ErrorTypeConfig, "crawl.page_size must be positive")
	}
	if c.Crawl.MaxPages < 0 {
		return errors.New(errors.ErrorTypeConfig, "crawl.max_pages must be non-negative")
	}
	return nil
}

// String renders the config for debug logging, without credentials (the
// config never holds any; cookies live in the session store).
func (c *Config) String() string {
	return fmt.Sprintf("mode=%s page_size=%d interval=[%.1fs,%.1fs] retries=%d",
		c.Crawl.Mode, c.Crawl.PageSize, c.RateLimit.MinInterval, c.RateLimit.MaxInterval, c.Retry.MaxAttempts)
}
