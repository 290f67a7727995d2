// Package config loads faultline's settings. Sources apply in order, each
// overriding the last: built-in defaults, a YAML file, a .env file, then
// FAULTLINE_* environment variables. Command-line flags are applied by the
// caller on top of the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"faultline/internal/defect"
	"faultline/internal/tracker"
)

// EnvPrefix prefixes every environment override, e.g. FAULTLINE_API_KEY or
// FAULTLINE_DEFECT_PROJECT.
const EnvPrefix = "FAULTLINE"

// DefaultTimeout bounds each tracker HTTP request when none is configured.
const DefaultTimeout = 30 * time.Second

// Config is the complete configuration of one faultline process.
// Environment keys are derived from field names (APIKeyFile becomes
// FAULTLINE_API_KEY_FILE). Only prefixed variables are read; CI agents
// export bare names like WORKSPACE that must never reach the config.
type Config struct {
	BaseURL     string        `yaml:"base_url" split_words:"true"`
	APIKey      string        `yaml:"api_key" split_words:"true"`
	APIKeyFile  string        `yaml:"api_key_file" split_words:"true"`
	Workspace   string        `yaml:"workspace" split_words:"true"`
	Integration string        `yaml:"integration" split_words:"true"`
	Timeout     time.Duration `yaml:"timeout" split_words:"true"`
	Tracing     bool          `yaml:"tracing" split_words:"true"`

	Defect defect.Settings `yaml:"defect" split_words:"true"`
}

// Default returns the configuration used before any source is applied.
func Default() *Config {
	return &Config{
		BaseURL:     tracker.DefaultBaseURL,
		Integration: "faultline",
		Timeout:     DefaultTimeout,
	}
}

// Load builds a Config from path (skipped when empty), the .env files in
// dotenv (".env" in the working directory when none are given, ignored if
// absent) and the environment. The API key file is read when no key is set.
func Load(path string, dotenv ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml %s: %w", path, err)
		}
	}

	if len(dotenv) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(dotenv...); err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if cfg.APIKey == "" && cfg.APIKeyFile != "" {
		key, err := tracker.ReadAPIKey(cfg.APIKeyFile)
		if err != nil {
			return nil, err
		}
		cfg.APIKey = key
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return cfg, nil
}

// Validate checks that the values every tracker call needs are present.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.BaseURL) == "" {
		missing = append(missing, "base_url")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		missing = append(missing, "api_key (or api_key_file)")
	}
	if strings.TrimSpace(c.Settings().Workspace) == "" {
		missing = append(missing, "workspace")
	}
	if len(missing) > 0 {
		return errors.New("configuration error: missing " + strings.Join(missing, ", "))
	}
	return nil
}

// Settings returns the defect settings, with the workspace taken from the
// top level unless the defect section names its own.
func (c *Config) Settings() defect.Settings {
	s := c.Defect
	if s.Workspace == "" {
		s.Workspace = c.Workspace
	}
	return s
}

// ClientOptions returns the tracker client options the configuration implies.
func (c *Config) ClientOptions() []tracker.Option {
	opts := []tracker.Option{
		tracker.WithTimeout(c.Timeout),
		tracker.WithIntegrationName(c.Integration),
	}
	if c.Tracing {
		opts = append(opts, tracker.WithTracing())
	}
	return opts
}
