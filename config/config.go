// Package config loads visitor settings from YAML and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/docutag/visitor/storage"
)

const (
	ProfileFull   = "full"
	ProfileSimple = "simple"

	DefaultWorkingDirectory = "./storage"
	DefaultHTTPTimeoutSecs  = 30
	DefaultImageTimeoutSecs = 15
	DefaultMaxImageBytes    = 10 * 1024 * 1024
	DefaultAPIAddr          = ":8080"
)

// Config is the full set of visitor settings
type Config struct {
	Budgets          Budgets `yaml:"budgets"`
	Profile          string  `yaml:"profile"`
	WorkingDirectory string  `yaml:"working_directory"`

	HTTPTimeoutSecs  int   `yaml:"http_timeout_seconds"`
	ImageTimeoutSecs int   `yaml:"image_timeout_seconds"`
	MaxImageBytes    int64 `yaml:"max_image_bytes"`

	S3  storage.S3Config `yaml:"s3"`
	API APIConfig        `yaml:"api"`
}

// APIConfig controls the HTTP API binary
type APIConfig struct {
	Addr        string `yaml:"addr"`
	CORSEnabled *bool  `yaml:"cors_enabled"`
}

// WithDefaults fills unset fields with built-in values
func (c *Config) WithDefaults() *Config {
	if c == nil {
		c = &Config{}
	}
	if strings.TrimSpace(c.Profile) == "" {
		c.Profile = ProfileFull
	}
	if c.WorkingDirectory == "" {
		c.WorkingDirectory = DefaultWorkingDirectory
	}
	if c.HTTPTimeoutSecs <= 0 {
		c.HTTPTimeoutSecs = DefaultHTTPTimeoutSecs
	}
	if c.ImageTimeoutSecs <= 0 {
		c.ImageTimeoutSecs = DefaultImageTimeoutSecs
	}
	if c.MaxImageBytes <= 0 {
		c.MaxImageBytes = DefaultMaxImageBytes
	}
	if c.API.Addr == "" {
		c.API.Addr = DefaultAPIAddr
	}
	return c
}

// Validate checks values that defaults cannot repair
func (c *Config) Validate() error {
	switch strings.ToLower(c.Profile) {
	case ProfileFull, ProfileSimple:
	default:
		return fmt.Errorf("unknown profile %q: must be %s or %s", c.Profile, ProfileFull, ProfileSimple)
	}
	return nil
}

// HTTPTimeout returns the page fetch timeout
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSecs) * time.Second
}

// ImageTimeout returns the per-image download timeout
func (c *Config) ImageTimeout() time.Duration {
	return time.Duration(c.ImageTimeoutSecs) * time.Second
}

// CORSEnabled reports whether the API sends CORS headers (on unless disabled)
func (c *Config) CORSEnabled() bool {
	if c.API.CORSEnabled == nil {
		return true
	}
	return *c.API.CORSEnabled
}

// Load reads an optional YAML file, fills gaps from the environment and applies defaults.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}

	cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv fills fields left empty by the file from VISITOR_* and S3_* variables
func ApplyEnv(cfg *Config) error {
	budgets := []struct {
		key    string
		target *Budget
	}{
		{"VISITOR_MAX_LINKS", &cfg.Budgets.MaxLinks},
		{"VISITOR_MAX_IMAGES", &cfg.Budgets.MaxImages},
		{"VISITOR_CONTENT_LIMIT", &cfg.Budgets.ContentLimit},
	}
	for _, b := range budgets {
		raw := getEnv(b.key, "")
		if raw == "" || !b.target.IsAuto() {
			continue
		}
		parsed, err := ParseBudget(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", b.key, err)
		}
		*b.target = parsed
	}

	cfg.Profile = envOr(cfg.Profile, getEnv("VISITOR_PROFILE", ""))
	cfg.WorkingDirectory = envOr(cfg.WorkingDirectory, getEnv("VISITOR_WORKING_DIRECTORY", ""))
	cfg.API.Addr = envOr(cfg.API.Addr, getEnv("VISITOR_API_ADDR", ""))

	ints := []struct {
		key    string
		target *int
	}{
		{"VISITOR_HTTP_TIMEOUT_SECONDS", &cfg.HTTPTimeoutSecs},
		{"VISITOR_IMAGE_TIMEOUT_SECONDS", &cfg.ImageTimeoutSecs},
	}
	for _, i := range ints {
		raw := getEnv(i.key, "")
		if raw == "" || *i.target != 0 {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", i.key, raw)
		}
		*i.target = n
	}

	if raw := getEnv("VISITOR_MAX_IMAGE_BYTES", ""); raw != "" && cfg.MaxImageBytes == 0 {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("VISITOR_MAX_IMAGE_BYTES: invalid integer %q", raw)
		}
		cfg.MaxImageBytes = n
	}

	cfg.S3.Endpoint = envOr(cfg.S3.Endpoint, getEnv("S3_ENDPOINT", ""))
	cfg.S3.Region = envOr(cfg.S3.Region, getEnv("S3_REGION", ""))
	cfg.S3.Bucket = envOr(cfg.S3.Bucket, getEnv("S3_BUCKET", ""))
	cfg.S3.AccessKeyID = envOr(cfg.S3.AccessKeyID, getEnv("S3_ACCESS_KEY_ID", ""))
	cfg.S3.SecretAccessKey = envOr(cfg.S3.SecretAccessKey, getEnv("S3_SECRET_ACCESS_KEY", ""))
	cfg.S3.Prefix = envOr(cfg.S3.Prefix, getEnv("S3_PREFIX", ""))
	if !cfg.S3.UsePathStyle {
		cfg.S3.UsePathStyle = getEnv("S3_USE_PATH_STYLE", "") == "true"
	}

	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envOr(existing, value string) string {
	if strings.TrimSpace(existing) != "" {
		return existing
	}
	return strings.TrimSpace(value)
}
