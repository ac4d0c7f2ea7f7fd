package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("STORYLOOM_CONFIG_DIR", dir)
	t.Setenv("STORYLOOM_CONFIG", "")
	for _, k := range []string{"STORYLOOM_ADDR", "STORYLOOM_LOG_LEVEL", "STORYLOOM_HISTORY_CAP", "STORYLOOM_ALLOWED_ORIGINS", "STORYLOOM_DIR"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return dir
}

func TestLoad_DefaultsWhenNothingConfigured(t *testing.T) {
	isolate(t)
	cfg, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AutosaveInterval != 30*time.Second || cfg.HistoryCap != 50 || cfg.MaxPathDepth != 10 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := isolate(t)
	yml := "addr: 0.0.0.0:9000\nautosaveInterval: 5s\nhistoryCap: 20\nlogLevel: debug\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yml), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("STORYLOOM_HISTORY_CAP", "7")
	t.Setenv("STORYLOOM_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != "0.0.0.0:9000" || cfg.AutosaveInterval != 5*time.Second || cfg.LogLevel != "debug" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.HistoryCap != 7 {
		t.Fatalf("env should override file; got %d", cfg.HistoryCap)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	isolate(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte("STORYLOOM_LOG_LEVEL=error\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("STORYLOOM_LOG_LEVEL") })

	cfg, err := Load(LoadOptions{DotEnv: []string{envFile, filepath.Join(t.TempDir(), "missing.env")}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "error" {
		t.Fatalf("expected .env value; got %q", cfg.LogLevel)
	}
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	isolate(t)
	if _, err := Load(LoadOptions{Path: filepath.Join(t.TempDir(), "nope.yaml")}); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}

func TestParseEnvError(t *testing.T) {
	isolate(t)
	t.Setenv("STORYLOOM_HISTORY_CAP", "lots")
	_, err := Load(LoadOptions{})
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env error; got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "loud"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "LogLevel") {
		t.Fatalf("expected LogLevel validation error; got %v", err)
	}
	cfg = Default()
	cfg.HistoryCap = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected HistoryCap validation error")
	}
}
