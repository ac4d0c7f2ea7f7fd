// Package config resolves runtime settings.
//
// Precedence, lowest first: built-in defaults, the YAML config file, .env files and
// STORYLOOM_* environment variables, then command-line flags (applied by the CLI).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DataDir          string        `yaml:"dataDir" env:"STORYLOOM_DIR"`
	Addr             string        `yaml:"addr" env:"STORYLOOM_ADDR" validate:"required,hostname_port"`
	AutosaveInterval time.Duration `yaml:"autosaveInterval" env:"STORYLOOM_AUTOSAVE_INTERVAL" validate:"gte=0"`
	CacheSize        int           `yaml:"cacheSize" env:"STORYLOOM_CACHE_SIZE" validate:"gte=1"`
	LogLevel         string        `yaml:"logLevel" env:"STORYLOOM_LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat        string        `yaml:"logFormat" env:"STORYLOOM_LOG_FORMAT" validate:"oneof=json console"`
	Format           string        `yaml:"format" env:"STORYLOOM_FORMAT" validate:"oneof=json yaml"`
	Pretty           bool          `yaml:"pretty" env:"STORYLOOM_PRETTY"`
	HistoryCap       int           `yaml:"historyCap" env:"STORYLOOM_HISTORY_CAP" validate:"gte=1"`
	MaxPathDepth     int           `yaml:"maxPathDepth" env:"STORYLOOM_MAX_PATH_DEPTH" validate:"gte=1"`
	AllowedOrigins   []string      `yaml:"allowedOrigins" env:"STORYLOOM_ALLOWED_ORIGINS" envSeparator:","`
}

func Default() Config {
	return Config{
		Addr:             "127.0.0.1:8420",
		AutosaveInterval: 30 * time.Second,
		CacheSize:        128,
		LogLevel:         "warn",
		LogFormat:        "console",
		Format:           "json",
		HistoryCap:       50,
		MaxPathDepth:     10,
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
	}
}

// Dir is the per-user config directory (~/.storyloom), overridable with
// STORYLOOM_CONFIG_DIR.
func Dir() (string, error) {
	// Test/advanced override (keeps unit tests away from the real home dir).
	if v := strings.TrimSpace(os.Getenv("STORYLOOM_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".storyloom"), nil
}

type LoadOptions struct {
	// Path is an explicit config file; it must exist. Empty falls back to
	// $STORYLOOM_CONFIG, then <Dir>/config.yaml (optional).
	Path string
	// DotEnv lists .env files to load; missing files are skipped.
	DotEnv []string
}

func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	for _, p := range opts.DotEnv {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return cfg, fmt.Errorf("load %s: %w", p, err)
		}
	}

	path, required := opts.Path, true
	if path == "" {
		path = strings.TrimSpace(os.Getenv("STORYLOOM_CONFIG"))
	}
	if path == "" {
		required = false
		dir, err := Dir()
		if err != nil {
			return cfg, err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	if err := loadFile(path, &cfg); err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			err = nil
		}
		if err != nil {
			return cfg, err
		}
	}

	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// ParseEnv overlays STORYLOOM_* variables onto target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

var validate = validator.New()

// Validate checks the final, merged configuration.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s: failed %s (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
