package config

import (
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Sink kinds.
const (
	SinkSecurityHub = "securityhub"
	SinkStdout      = "stdout"
)

// Config is the complete auditor configuration.
type Config struct {
	Audit AuditConfig
	Sink  SinkConfig
	App   AppConfig
}

// AuditConfig controls stream listing, finding content and check selection.
type AuditConfig struct {
	PageLimit   int
	Paginate    bool
	ProductName string
	Checks      string // Comma-separated check slugs, "no-" prefix excludes
}

// SinkConfig selects where findings are sent.
type SinkConfig struct {
	Kind   string
	Format string
}

// AppConfig controls the logger.
type AppConfig struct {
	Environment string
	LogLevel    string
}

// Load reads configuration from the environment. Variables from an optional
// .env file in the working directory are applied first without overriding
// the existing environment.
func Load() (*Config, error) {
	return LoadFiles()
}

// LoadFiles is like Load, but reads the given env files instead of .env.
func LoadFiles(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "failed to load env file")
	}

	pageLimit, err := getEnvAsInt("AUDIT_PAGE_LIMIT", 100)
	if err != nil {
		return nil, err
	}
	paginate, err := getEnvAsBool("AUDIT_PAGINATE", false)
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		Audit: AuditConfig{
			PageLimit:   pageLimit,
			Paginate:    paginate,
			ProductName: getEnv("AUDIT_PRODUCT_NAME", "ElectricEye"),
			Checks:      getEnv("AUDIT_CHECKS", ""),
		},
		Sink: SinkConfig{
			Kind:   strings.ToLower(getEnv("AUDIT_SINK", SinkSecurityHub)),
			Format: strings.ToLower(getEnv("AUDIT_OUTPUT_FORMAT", "json")),
		},
		App: AppConfig{
			Environment: getEnv("AUDIT_ENV", "production"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports the first out-of-range or unknown setting in c.
func (c *Config) Validate() error {
	// Kinesis accepts 1..10000
	if c.Audit.PageLimit < 1 || c.Audit.PageLimit > 10000 {
		return errors.Errorf("AUDIT_PAGE_LIMIT must be between 1 and 10000, got %d", c.Audit.PageLimit)
	}

	switch c.Sink.Kind {
	case SinkSecurityHub, SinkStdout:
	default:
		return errors.Errorf("AUDIT_SINK must be one of: %s, %s", SinkSecurityHub, SinkStdout)
	}

	switch c.Sink.Format {
	case "json", "yaml":
	default:
		return errors.Errorf("AUDIT_OUTPUT_FORMAT must be one of: json, yaml")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Errorf("%s must be an integer, got %q", key, value)
	}
	return v, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, errors.Errorf("%s must be a boolean, got %q", key, value)
	}
	return v, nil
}
