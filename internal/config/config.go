package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/cache"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/fetch"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/risk"
)

// Environment variables that seed flag defaults.
const (
	EnvSupabaseURL = "SUPABASE_URL"
	EnvSupabaseKey = "SUPABASE_KEY"
	EnvDatabaseURL = "DATABASE_URL"
	EnvAddr        = "IDR_ADDR"
	EnvLocalDir    = "IDR_LOCAL_DIR"
)

// DefaultAddr is the listen address of the HTTP API.
const DefaultAddr = ":8080"

// DefaultFlagThreshold is the minimum score listed as flagged.
const DefaultFlagThreshold = 30

// Config holds all runtime configuration for an idrintel run.
type Config struct {
	SupabaseURL   string
	SupabaseKey   string
	DSN           string
	LocalDir      string // data folder of the embedded, file-backed store
	Addr          string
	LogFormat     string // "text" or "json"
	HTTPTimeout   time.Duration
	PageSize      int
	CacheTTL      time.Duration
	FlagThreshold int
	Risk          risk.Rules

	// load
	Dir          string
	Force        bool
	SkipSummary  bool
	MaxRejectPct float64
}

// yamlConfig is the on-disk YAML structure.
type yamlConfig struct {
	PageSize      int        `yaml:"page_size"`
	CacheTTL      string     `yaml:"cache_ttl"`
	HTTPTimeout   string     `yaml:"http_timeout"`
	FlagThreshold int        `yaml:"flag_threshold"`
	MaxRejectPct  float64    `yaml:"max_reject_pct"`
	Risk          risk.Rules `yaml:"risk"`
}

// Default returns a Config with every tunable at its stock value.
func Default() Config {
	return Config{
		Addr:          DefaultAddr,
		LogFormat:     "text",
		HTTPTimeout:   30 * time.Second,
		PageSize:      fetch.DefaultPageSize,
		CacheTTL:      cache.DefaultTTL,
		FlagThreshold: DefaultFlagThreshold,
		Risk:          risk.DefaultRules(),
	}
}

// LoadEnv reads an optional .env file into the process environment.
// Variables already set take precedence. A missing file is not an error.
func LoadEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Env returns the value of key, or def when unset.
func Env(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// LoadFromFile reads a YAML config file and merges its values into Config.
// Only keys present in the file change anything; an explicit zero is kept,
// so flag_threshold: 0 lists every provider and a risk rule with zero
// points is disabled.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	yc := yamlConfig{
		PageSize:      c.PageSize,
		CacheTTL:      c.CacheTTL.String(),
		HTTPTimeout:   c.HTTPTimeout.String(),
		FlagThreshold: c.FlagThreshold,
		MaxRejectPct:  c.MaxRejectPct,
		Risk:          c.Risk,
	}
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	c.PageSize = yc.PageSize
	c.FlagThreshold = yc.FlagThreshold
	c.MaxRejectPct = yc.MaxRejectPct
	c.Risk = yc.Risk
	if c.CacheTTL, err = time.ParseDuration(yc.CacheTTL); err != nil {
		return fmt.Errorf("cache_ttl: %w", err)
	}
	if c.HTTPTimeout, err = time.ParseDuration(yc.HTTPTimeout); err != nil {
		return fmt.Errorf("http_timeout: %w", err)
	}
	return c.validateTunables()
}

func (c *Config) validateTunables() error {
	if c.PageSize < 1 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must not be negative")
	}
	if c.FlagThreshold < 0 || c.FlagThreshold > 100 {
		return fmt.Errorf("flag_threshold must be within 0..100, got %d", c.FlagThreshold)
	}
	if c.MaxRejectPct < 0 || c.MaxRejectPct > 100 {
		return fmt.Errorf("max_reject_pct must be within 0..100")
	}
	r := c.Risk
	if r.HighVolume >= r.ExtremeVolume {
		return fmt.Errorf("risk.high_volume (%d) must be below risk.extreme_volume (%d)", r.HighVolume, r.ExtremeVolume)
	}
	return nil
}

// Remote reports whether a Supabase endpoint is configured.
func (c *Config) Remote() bool {
	return c.SupabaseURL != ""
}

// Local reports whether a local Postgres store is configured.
func (c *Config) Local() bool {
	return c.DSN != "" || c.LocalDir != ""
}

// ValidateServe checks that the API has exactly one backend.
func (c *Config) ValidateServe() error {
	if err := c.validateTunables(); err != nil {
		return err
	}
	switch {
	case c.Remote() && c.Local():
		return fmt.Errorf("choose either %s or a local store (--dsn / --local-dir), not both", EnvSupabaseURL)
	case c.Remote():
		if err := c.validateRemote(); err != nil {
			return err
		}
	case !c.Local():
		return fmt.Errorf("no backend configured: set %s/%s, --dsn or --local-dir", EnvSupabaseURL, EnvSupabaseKey)
	}
	if c.Addr == "" {
		return fmt.Errorf("--addr is required")
	}
	return nil
}

// ValidateLocal checks that a local store is configured.
func (c *Config) ValidateLocal() error {
	if !c.Local() {
		return fmt.Errorf("--dsn, %s or --local-dir is required", EnvDatabaseURL)
	}
	return nil
}

// ValidateLoad checks the load directory and the local store.
func (c *Config) ValidateLoad() error {
	if c.Dir == "" {
		return fmt.Errorf("--dir is required")
	}
	info, err := os.Stat(c.Dir)
	if err != nil {
		return fmt.Errorf("directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", c.Dir)
	}
	if err := c.validateTunables(); err != nil {
		return err
	}
	return c.ValidateLocal()
}

// ValidateRead checks that some backend is available for read-only
// commands.
func (c *Config) ValidateRead() error {
	if err := c.validateTunables(); err != nil {
		return err
	}
	if c.Remote() {
		return c.validateRemote()
	}
	return c.ValidateLocal()
}

// validateRemote checks the key and that a page fits in one response: the
// hosted endpoint returns at most fetch.DefaultPageSize rows per request.
func (c *Config) validateRemote() error {
	if c.SupabaseKey == "" {
		return fmt.Errorf("--supabase-key or %s is required with %s", EnvSupabaseKey, EnvSupabaseURL)
	}
	if c.PageSize > fetch.DefaultPageSize {
		return fmt.Errorf("page_size %d exceeds the %d rows %s returns per request", c.PageSize, fetch.DefaultPageSize, EnvSupabaseURL)
	}
	return nil
}
