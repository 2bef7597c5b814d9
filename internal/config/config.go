// Package config loads CLI configuration from YAML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/doctex/go-mathpreview/internal/fileutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
)

// maxConfigSize bounds config input to keep parsing cheap.
const maxConfigSize = 1 << 20

// Config holds all configuration for the mathpreview CLI.
type Config struct {
	Cache     CacheConfig     `yaml:"cache"`
	Toolchain ToolchainConfig `yaml:"toolchain"`
	Render    RenderConfig    `yaml:"render"`
}

// CacheConfig defines artifact cache options.
type CacheConfig struct {
	Dir        string `yaml:"dir"`        // empty = <user cache dir>/mathpreview
	MaxAgeDays int    `yaml:"maxAgeDays"` // 0 = default (7 days)
}

// ToolchainConfig overrides external binary names or paths.
type ToolchainConfig struct {
	Latex          string `yaml:"latex"`
	Dvisvgm        string `yaml:"dvisvgm"`
	PdfLatex       string `yaml:"pdflatex"`
	Ghostscript    string `yaml:"ghostscript"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"` // per-stage, 0 = default (10s)
}

// RenderConfig defines rendering options.
type RenderConfig struct {
	DPI           int      `yaml:"dpi"`           // raster fallback resolution, 0 = default (150)
	Dark          bool     `yaml:"dark"`          // render for a dark color scheme by default
	ExtraPackages []string `yaml:"extraPackages"` // packages loaded for every document
}

// Validate checks value ranges. Zero values mean "use defaults" and are
// always valid.
func (c *Config) Validate() error {
	if c.Cache.MaxAgeDays < 0 {
		return fmt.Errorf("cache.maxAgeDays: must not be negative, got %d", c.Cache.MaxAgeDays)
	}
	if c.Toolchain.TimeoutSeconds < 0 {
		return fmt.Errorf("toolchain.timeoutSeconds: must not be negative, got %d", c.Toolchain.TimeoutSeconds)
	}
	if c.Render.DPI < 0 {
		return fmt.Errorf("render.dpi: must not be negative, got %d", c.Render.DPI)
	}
	if c.Render.DPI > 1200 {
		return fmt.Errorf("render.dpi: must be at most 1200, got %d", c.Render.DPI)
	}
	return nil
}

// DefaultConfig returns a configuration where every option defers to the
// library defaults.
func DefaultConfig() *Config {
	return &Config{}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it is treated as a file path.
// Otherwise it is searched in standard locations. Returns an error if the
// file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !fileutil.IsFilePath(nameOrPath) {
		var err error
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if len(data) > maxConfigSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrConfigParse, maxConfigSize)
	}

	var cfg Config
	if err := yaml.UnmarshalWithOptions(data, &cfg, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolveConfigPath searches for a config file by name in standard
// locations: current directory first, then the user config directory.
// Tries extensions .yaml and .yml in order.
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileutil.FileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "mathpreview", name+ext)
			if fileutil.FileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}
