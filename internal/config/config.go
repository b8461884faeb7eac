// Package config loads docops configuration from the environment, with an
// optional YAML file as a base layer. Environment variables always win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when neither the environment nor the config file sets a value.
const (
	DefaultDatabaseURL       = "./docops.db"
	DefaultAppEnv            = "dev"
	DefaultLogLevel          = "INFO"
	DefaultHTTPAddr          = ":8080"
	DefaultOpenAIModel       = "gpt-4.1-mini"
	DefaultExtractionTimeout = 20 * time.Second
)

// Config holds the runtime configuration for the docops service.
type Config struct {
	// DatabaseURL is the sqlite database path.
	DatabaseURL string `yaml:"database_url"`

	// AppEnv is the deployment environment ("dev", "prod").
	AppEnv string `yaml:"app_env"`

	// LogLevel is the minimum slog level: DEBUG, INFO, WARN, ERROR.
	LogLevel string `yaml:"log_level"`

	// HTTPAddr is the listen address for the jobs API.
	HTTPAddr string `yaml:"http_addr"`

	// OpenAIAPIKey enables the real extraction engine when set.
	OpenAIAPIKey string `yaml:"openai_api_key"`

	// OpenAIModel is the model used for extraction.
	OpenAIModel string `yaml:"openai_model"`

	// ExtractionTimeout bounds a single extraction tool call.
	ExtractionTimeout time.Duration `yaml:"-"`

	// ExtractionTimeoutS is the YAML-facing form of ExtractionTimeout.
	ExtractionTimeoutS int `yaml:"extraction_timeout_s"`
}

// Load builds a Config from the optional file at path and the environment.
// An empty path means environment-only.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// LoadFromEnv builds a Config from the environment, honoring DOCOPS_CONFIG
// as the config file path when present.
func LoadFromEnv() (*Config, error) {
	return Load(os.Getenv("DOCOPS_CONFIG"))
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.AppEnv = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.OpenAIModel = v
	}
	if v := os.Getenv("EXTRACTION_TIMEOUT_S"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.ExtractionTimeoutS = secs
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = DefaultDatabaseURL
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = DefaultAppEnv
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = DefaultOpenAIModel
	}
	if cfg.ExtractionTimeoutS > 0 {
		cfg.ExtractionTimeout = time.Duration(cfg.ExtractionTimeoutS) * time.Second
	}
	if cfg.ExtractionTimeout == 0 {
		cfg.ExtractionTimeout = DefaultExtractionTimeout
	}
}
