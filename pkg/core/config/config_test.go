package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filing_analyzer/pkg/core/filing"
	"filing_analyzer/pkg/core/search"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvDatabaseURL, EnvFilingsDir, EnvScoringConfig, EnvSearchContextWidth,
		EnvAPIAddr, EnvLogLevel, EnvCompanyName, EnvCompanyTicker, EnvSECUserAgent,
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	c, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.FilingsDir != DefaultFilingsDir || c.APIAddr != DefaultAPIAddr || c.LogLevel != DefaultLogLevel {
		t.Errorf("unexpected defaults %+v", c)
	}
	if c.SearchContextWidth != search.DefaultContextWidth {
		t.Errorf("context width = %d", c.SearchContextWidth)
	}
	if c.DatabaseURL != "" {
		t.Errorf("expected no database url, got %q", c.DatabaseURL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvFilingsDir, "/tmp/filings")
	t.Setenv(EnvSearchContextWidth, "80")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvCompanyTicker, "extx")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.FilingsDir != "/tmp/filings" || c.SearchContextWidth != 80 || c.CompanyTicker != "EXTX" {
		t.Errorf("unexpected config %+v", c)
	}
	if opts := c.SearchOptions(); opts.ContextWidth != 80 {
		t.Errorf("search options width = %d", opts.ContextWidth)
	}

	var buf bytes.Buffer
	c.Logger(&buf).Debug("hello", "k", "v")
	if !strings.Contains(buf.String(), "level=DEBUG") {
		t.Errorf("expected debug output, got %q", buf.String())
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv(EnvCompanyName)

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("COMPANY_NAME=Example Therapeutics\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv(EnvCompanyName) })

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.CompanyName != "Example Therapeutics" {
		t.Errorf("company = %q", c.CompanyName)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		EnvSearchContextWidth: "wide",
		EnvLogLevel:           "loud",
	}
	for key, value := range cases {
		clearEnv(t)
		t.Setenv(key, value)
		if _, err := Load(); !errors.Is(err, filing.ErrInvalidConfiguration) {
			t.Errorf("%s=%s: expected ErrInvalidConfiguration, got %v", key, value, err)
		}
	}

	clearEnv(t)
	t.Setenv(EnvSearchContextWidth, "-1")
	if _, err := Load(); !errors.Is(err, filing.ErrInvalidConfiguration) {
		t.Errorf("negative width: expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestScoring(t *testing.T) {
	c := &Config{}
	cfg, err := c.Scoring()
	if err != nil {
		t.Fatalf("Scoring failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default scoring config invalid: %v", err)
	}

	c.ScoringConfig = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := c.Scoring(); err == nil {
		t.Error("expected an error for a missing scoring file")
	}
}
