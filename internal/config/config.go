package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the frontend server settings.
type Config struct {
	Port       string `yaml:"port"`
	Env        string `yaml:"env"`
	LogLevel   string `yaml:"log_level"`
	APIBaseURL string `yaml:"api_base_url"`

	APITimeout      time.Duration `yaml:"api_timeout"`
	RenderWait      time.Duration `yaml:"render_wait"`
	SessionLifetime time.Duration `yaml:"session_lifetime"`

	// RefreshCommentsAfterPost refetches the comment list after a comment is
	// posted. Off by default, matching the established client behavior.
	RefreshCommentsAfterPost bool `yaml:"refresh_comments_after_post"`

	LoginRate  float64 `yaml:"login_rate"`
	LoginBurst int     `yaml:"login_burst"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Port:            "3000",
		Env:             "development",
		LogLevel:        "info",
		APIBaseURL:      "http://localhost:8000",
		APITimeout:      10 * time.Second,
		RenderWait:      3 * time.Second,
		SessionLifetime: 24 * time.Hour,
		LoginRate:       5,
		LoginBurst:      10,
	}
}

// Load builds the configuration from defaults, the optional YAML file named by
// VOTING_CONFIG, and environment variables, in increasing precedence.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("VOTING_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Env = getEnv("ENV", cfg.Env)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.APIBaseURL = getEnv("API_BASE_URL", cfg.APIBaseURL)

	var err error
	if cfg.APITimeout, err = getDuration("API_TIMEOUT", cfg.APITimeout); err != nil {
		return Config{}, err
	}
	if cfg.RenderWait, err = getDuration("RENDER_WAIT", cfg.RenderWait); err != nil {
		return Config{}, err
	}
	if cfg.SessionLifetime, err = getDuration("SESSION_LIFETIME", cfg.SessionLifetime); err != nil {
		return Config{}, err
	}
	if cfg.RefreshCommentsAfterPost, err = getBool("REFRESH_COMMENTS_AFTER_POST", cfg.RefreshCommentsAfterPost); err != nil {
		return Config{}, err
	}
	if v := os.Getenv("LOGIN_RATE"); v != "" {
		if cfg.LoginRate, err = strconv.ParseFloat(v, 64); err != nil {
			return Config{}, fmt.Errorf("invalid LOGIN_RATE: %w", err)
		}
	}
	if v := os.Getenv("LOGIN_BURST"); v != "" {
		if cfg.LoginBurst, err = strconv.Atoi(v); err != nil {
			return Config{}, fmt.Errorf("invalid LOGIN_BURST: %w", err)
		}
	}

	return cfg, nil
}

// SlogLevel maps LogLevel to a slog level. Unknown values fall back to info.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
