package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rendis/drawsynth/internal/engine"
	"github.com/rendis/drawsynth/internal/synth"
	"github.com/rendis/drawsynth/internal/validation"
	"github.com/rendis/drawsynth/pkg/schema"
)

// Config holds all drawsynth configuration.
// Priority: env vars > settings.yaml / settings.json > defaults.
type Config struct {
	DBPath    string `json:"db_path" yaml:"db_path"`
	Journal   bool   `json:"journal" yaml:"journal"`
	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format"`

	MaxAttempts         int     `json:"max_attempts" yaml:"max_attempts"`
	CanvasProfile       string  `json:"canvas_profile" yaml:"canvas_profile"`
	MinSpacing          float64 `json:"min_spacing" yaml:"min_spacing"`
	ConnectionThreshold float64 `json:"connection_threshold" yaml:"connection_threshold"`

	APIKey    string        `json:"api_key" yaml:"api_key"`
	Model     string        `json:"model" yaml:"model"`
	BaseURL   string        `json:"base_url" yaml:"base_url"`
	MaxTokens int           `json:"max_tokens" yaml:"max_tokens"`
	Timeout   time.Duration `json:"timeout" yaml:"timeout"`

	Retry          engine.RetryPolicy          `json:"retry" yaml:"retry"`
	CircuitBreaker engine.CircuitBreakerConfig `json:"circuit_breaker" yaml:"circuit_breaker"`
}

// UnmarshalJSON lets settings.json spell durations the way settings.yaml does ("30s").
func (c *Config) UnmarshalJSON(data []byte) error {
	type plain Config
	aux := struct {
		*plain
		Timeout schema.Duration `json:"timeout"`
	}{plain: (*plain)(c), Timeout: schema.Duration(c.Timeout)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.Timeout = time.Duration(aux.Timeout)
	return nil
}

func defaultConfig(dir string) Config {
	v := validation.DefaultConfig()
	return Config{
		DBPath:              filepath.Join(dir, "drawsynth.db"),
		Journal:             true,
		LogLevel:            "info",
		LogFormat:           "json",
		MaxAttempts:         engine.DefaultMaxAttempts,
		CanvasProfile:       string(validation.DefaultProfile),
		MinSpacing:          v.MinSpacing,
		ConnectionThreshold: v.ConnectionThreshold,
		Model:               synth.DefaultModel,
		BaseURL:             synth.DefaultBaseURL,
		MaxTokens:           synth.DefaultMaxTokens,
		Timeout:             synth.DefaultTimeout,
		Retry:               engine.DefaultRetryPolicy(),
		CircuitBreaker:      engine.DefaultCircuitBreakerConfig(),
	}
}

func drawsynthDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".drawsynth"
	}
	return filepath.Join(home, ".drawsynth")
}

func loadConfig() (Config, error) {
	return loadConfigFrom(drawsynthDir(), os.Getenv)
}

// loadConfigFrom layers the settings file in dir and the environment over the
// defaults. settings.yaml wins over settings.json when both exist.
func loadConfigFrom(dir string, getenv func(string) string) (Config, error) {
	cfg := defaultConfig(dir)

	// Layer 2: settings file (ignore if missing).
	if data, err := os.ReadFile(filepath.Join(dir, "settings.yaml")); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse settings.yaml: %w", err)
		}
	} else if data, err := os.ReadFile(filepath.Join(dir, "settings.json")); err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse settings.json: %w", err)
		}
	}

	// Layer 3: env vars override.
	if v := getenv("DRAWSYNTH_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := getenv("DRAWSYNTH_JOURNAL"); v != "" {
		cfg.Journal = v == "true" || v == "1"
	}
	if v := getenv("DRAWSYNTH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("DRAWSYNTH_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := getenv("DRAWSYNTH_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxAttempts = n
		}
	}
	if v := getenv("DRAWSYNTH_CANVAS_PROFILE"); v != "" {
		cfg.CanvasProfile = v
	}
	if v := getenv("DRAWSYNTH_MIN_SPACING"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.MinSpacing = f
		}
	}
	if v := getenv("DRAWSYNTH_CONNECTION_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.ConnectionThreshold = f
		}
	}
	if v := getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := getenv("DRAWSYNTH_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := getenv("DRAWSYNTH_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := getenv("DRAWSYNTH_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := getenv("DRAWSYNTH_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxTokens = n
		}
	}
	if v := getenv("DRAWSYNTH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}
	if v := getenv("DRAWSYNTH_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retry.MaxRetries = n
		}
	}

	return cfg, nil
}

// validationConfig resolves the canvas profile into validator limits.
func (c Config) validationConfig() (validation.Config, error) {
	w, h, err := validation.CanvasProfile(c.CanvasProfile).Size()
	if err != nil {
		return validation.Config{}, fmt.Errorf("config: %w", err)
	}
	return validation.Config{
		CanvasWidth:         w,
		CanvasHeight:        h,
		MinSpacing:          c.MinSpacing,
		ConnectionThreshold: c.ConnectionThreshold,
	}.WithDefaults(), nil
}

func (c Config) anthropicConfig() synth.AnthropicConfig {
	return synth.AnthropicConfig{
		APIKey:    c.APIKey,
		Model:     c.Model,
		BaseURL:   c.BaseURL,
		MaxTokens: c.MaxTokens,
		Timeout:   c.Timeout,
	}
}
