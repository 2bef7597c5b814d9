package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config fixture: %v", err)
	}
	return path
}

func TestLoadConfig_Full(t *testing.T) {
	path := writeConfig(t, `
cache:
  dir: /tmp/mathpreview-cache
  maxAgeDays: 14
toolchain:
  latex: /opt/texlive/bin/latex
  timeoutSeconds: 30
render:
  dpi: 300
  dark: true
  extraPackages: [physics, bm]
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Cache.Dir != "/tmp/mathpreview-cache" {
		t.Errorf("Cache.Dir = %q", cfg.Cache.Dir)
	}
	if cfg.Cache.MaxAgeDays != 14 {
		t.Errorf("Cache.MaxAgeDays = %d, want 14", cfg.Cache.MaxAgeDays)
	}
	if cfg.Toolchain.Latex != "/opt/texlive/bin/latex" {
		t.Errorf("Toolchain.Latex = %q", cfg.Toolchain.Latex)
	}
	if cfg.Toolchain.TimeoutSeconds != 30 {
		t.Errorf("Toolchain.TimeoutSeconds = %d, want 30", cfg.Toolchain.TimeoutSeconds)
	}
	if cfg.Render.DPI != 300 {
		t.Errorf("Render.DPI = %d, want 300", cfg.Render.DPI)
	}
	if !cfg.Render.Dark {
		t.Error("Render.Dark = false, want true")
	}
	if len(cfg.Render.ExtraPackages) != 2 || cfg.Render.ExtraPackages[0] != "physics" {
		t.Errorf("Render.ExtraPackages = %v, want [physics bm]", cfg.Render.ExtraPackages)
	}
}

func TestLoadConfig_PartialLeavesDefaults(t *testing.T) {
	path := writeConfig(t, "render:\n  dpi: 200\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Render.DPI != 200 {
		t.Errorf("Render.DPI = %d, want 200", cfg.Render.DPI)
	}
	if cfg.Cache.MaxAgeDays != 0 {
		t.Errorf("Cache.MaxAgeDays = %d, want 0 (defer to default)", cfg.Cache.MaxAgeDays)
	}
	if cfg.Toolchain.Latex != "" {
		t.Errorf("Toolchain.Latex = %q, want empty", cfg.Toolchain.Latex)
	}
}

func TestLoadConfig_UnknownFieldRejected(t *testing.T) {
	path := writeConfig(t, "rendr:\n  dpi: 200\n")

	if _, err := LoadConfig(path); !errors.Is(err, ErrConfigParse) {
		t.Errorf("LoadConfig() with typo field = %v, want ErrConfigParse", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "cache: [unclosed\n")

	if _, err := LoadConfig(path); !errors.Is(err, ErrConfigParse) {
		t.Errorf("LoadConfig() with bad YAML = %v, want ErrConfigParse", err)
	}
}

func TestLoadConfig_NotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")

	if _, err := LoadConfig(path); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("LoadConfig() missing file = %v, want ErrConfigNotFound", err)
	}
}

func TestLoadConfig_EmptyName(t *testing.T) {
	if _, err := LoadConfig(""); !errors.Is(err, ErrEmptyConfigName) {
		t.Errorf("LoadConfig(\"\") = %v, want ErrEmptyConfigName", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"zero config", func(*Config) {}, false},
		{"negative max age", func(c *Config) { c.Cache.MaxAgeDays = -1 }, true},
		{"negative timeout", func(c *Config) { c.Toolchain.TimeoutSeconds = -5 }, true},
		{"negative dpi", func(c *Config) { c.Render.DPI = -1 }, true},
		{"dpi too high", func(c *Config) { c.Render.DPI = 2400 }, true},
		{"dpi at limit", func(c *Config) { c.Render.DPI = 1200 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	path := writeConfig(t, "render:\n  dpi: -10\n")

	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig() with invalid value succeeded")
	}
}
