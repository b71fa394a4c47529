// Package config loads runtime settings from .env files and the environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"filing_analyzer/pkg/core/filing"
	"filing_analyzer/pkg/core/health"
	"filing_analyzer/pkg/core/search"
)

const (
	EnvDatabaseURL        = "DATABASE_URL"
	EnvFilingsDir         = "FILINGS_DIR"
	EnvScoringConfig      = "SCORING_CONFIG"
	EnvSearchContextWidth = "SEARCH_CONTEXT_WIDTH"
	EnvAPIAddr            = "API_ADDR"
	EnvLogLevel           = "LOG_LEVEL"
	EnvCompanyName        = "COMPANY_NAME"
	EnvCompanyTicker      = "COMPANY_TICKER"
	EnvSECUserAgent       = "SEC_USER_AGENT"
)

const (
	DefaultFilingsDir = "data/filings"
	DefaultAPIAddr    = ":8080"
	DefaultLogLevel   = "info"
)

// Config holds the settings shared by the CLI and the API server.
type Config struct {
	DatabaseURL        string
	FilingsDir         string
	ScoringConfig      string
	SearchContextWidth int
	APIAddr            string
	LogLevel           string
	CompanyName        string
	CompanyTicker      string
	SECUserAgent       string
}

// Load reads .env files (missing files are ignored), then the environment,
// and validates the result.
func Load(envFiles ...string) (*Config, error) {
	// Ignore missing .env files like the servers always did
	_ = godotenv.Load(envFiles...)

	c := &Config{}
	if err := c.Finalize(); err != nil {
		return nil, err
	}
	return c, nil
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize() error {
	c.loadDefaults()
	if err := c.loadEnv(); err != nil {
		return err
	}
	return c.validate()
}

func (c *Config) loadDefaults() {
	if c.FilingsDir == "" {
		c.FilingsDir = DefaultFilingsDir
	}
	if c.SearchContextWidth == 0 {
		c.SearchContextWidth = search.DefaultContextWidth
	}
	if c.APIAddr == "" {
		c.APIAddr = DefaultAPIAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

func (c *Config) loadEnv() error {
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv(EnvFilingsDir); v != "" {
		c.FilingsDir = v
	}
	if v := os.Getenv(EnvScoringConfig); v != "" {
		c.ScoringConfig = v
	}
	if v := os.Getenv(EnvSearchContextWidth); v != "" {
		width, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", filing.ErrInvalidConfiguration, EnvSearchContextWidth, v)
		}
		c.SearchContextWidth = width
	}
	if v := os.Getenv(EnvAPIAddr); v != "" {
		c.APIAddr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvCompanyName); v != "" {
		c.CompanyName = v
	}
	if v := os.Getenv(EnvCompanyTicker); v != "" {
		c.CompanyTicker = strings.ToUpper(v)
	}
	if v := os.Getenv(EnvSECUserAgent); v != "" {
		c.SECUserAgent = v
	}
	return nil
}

func (c *Config) validate() error {
	if c.SearchContextWidth < 0 {
		return fmt.Errorf("%w: search context width must not be negative, got %d", filing.ErrInvalidConfiguration, c.SearchContextWidth)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Scoring loads the scoring configuration file, or the defaults when none
// is configured.
func (c *Config) Scoring() (health.Config, error) {
	if c.ScoringConfig == "" {
		return health.DefaultConfig(), nil
	}
	return health.LoadConfig(c.ScoringConfig)
}

// SearchOptions returns the default search options with the configured
// context width.
func (c *Config) SearchOptions() search.Options {
	opts := search.DefaultOptions()
	opts.ContextWidth = c.SearchContextWidth
	return opts
}

// Logger builds a text logger at the configured level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: unknown log level %q", filing.ErrInvalidConfiguration, s)
	}
	return level, nil
}
