package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ehr/fhirextract/internal/platform/export"
)

const referenceDateLayout = "2006-01-02"

type Config struct {
	Env               string   `mapstructure:"ENV"`
	LogLevel          string   `mapstructure:"LOG_LEVEL"`
	InputDir          string   `mapstructure:"INPUT_DIR"`
	OutputDir         string   `mapstructure:"OUTPUT_DIR"`
	OutputFormats     []string `mapstructure:"OUTPUT_FORMATS"`
	Workers           int      `mapstructure:"WORKERS"`
	ProgressEvery     int      `mapstructure:"PROGRESS_EVERY"`
	MaxReportedErrors int      `mapstructure:"MAX_REPORTED_ERRORS"`
	ReferenceDate     string   `mapstructure:"REFERENCE_DATE"`
	SkipPrefixes      []string `mapstructure:"SKIP_PREFIXES"`
	MaxBundleBytes    int64    `mapstructure:"MAX_BUNDLE_BYTES"`
	DatabaseURL       string   `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32    `mapstructure:"DB_MIN_CONNS"`
	Port              string   `mapstructure:"PORT"`
	AuthSigningKey    string   `mapstructure:"AUTH_SIGNING_KEY"`
}

var keys = []string{
	"ENV", "LOG_LEVEL", "INPUT_DIR", "OUTPUT_DIR", "OUTPUT_FORMATS", "WORKERS",
	"PROGRESS_EVERY", "MAX_REPORTED_ERRORS", "REFERENCE_DATE", "SKIP_PREFIXES",
	"MAX_BUNDLE_BYTES", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "PORT",
	"AUTH_SIGNING_KEY",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("INPUT_DIR", "./fhir")
	v.SetDefault("OUTPUT_DIR", "./analytics_ready_datasets")
	v.SetDefault("OUTPUT_FORMATS", "csv,parquet")
	v.SetDefault("WORKERS", 4)
	v.SetDefault("PROGRESS_EVERY", 50)
	v.SetDefault("MAX_REPORTED_ERRORS", 10)
	v.SetDefault("REFERENCE_DATE", "")
	v.SetDefault("SKIP_PREFIXES", "hospitalInformation,practitionerInformation")
	v.SetDefault("MAX_BUNDLE_BYTES", 64<<20)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("PORT", "8000")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.OutputFormats = splitList(v.GetString("OUTPUT_FORMATS"))
	cfg.SkipPrefixes = splitList(v.GetString("SKIP_PREFIXES"))

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Formats returns the parsed output formats.
func (c *Config) Formats() ([]export.Format, error) {
	return export.ParseFormats(c.OutputFormats)
}

// ReferenceTime returns the date ages are computed on: REFERENCE_DATE when
// set, otherwise the current day of now.
func (c *Config) ReferenceTime(now time.Time) (time.Time, error) {
	if c.ReferenceDate == "" {
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(referenceDateLayout, c.ReferenceDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("REFERENCE_DATE must be YYYY-MM-DD, got %q", c.ReferenceDate)
	}
	return t, nil
}

// Validate checks the configuration before any work starts.
func (c *Config) Validate() error {
	formats, err := c.Formats()
	if err != nil {
		return fmt.Errorf("OUTPUT_FORMATS: %w", err)
	}
	if len(formats) == 0 {
		return fmt.Errorf("OUTPUT_FORMATS must name at least one format")
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be at least 1, got %d", c.Workers)
	}
	if c.ProgressEvery < 0 {
		return fmt.Errorf("PROGRESS_EVERY must not be negative, got %d", c.ProgressEvery)
	}
	if c.MaxBundleBytes <= 0 {
		return fmt.Errorf("MAX_BUNDLE_BYTES must be positive, got %d", c.MaxBundleBytes)
	}
	if _, err := c.ReferenceTime(time.Now()); err != nil {
		return err
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}
