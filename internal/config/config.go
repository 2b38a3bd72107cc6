// Package config loads typeinfo settings from a YAML file, a .env file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when none is named.
const DefaultPath = ".typeinfo.yaml"

// Output formats.
const (
	FormatText = "text"
	FormatToon = "toon"
)

// Environment overrides.
const (
	EnvFrontend = "TYPEINFO_FRONTEND"
	EnvClang    = "TYPEINFO_CLANG"
	EnvFormat   = "TYPEINFO_FORMAT"
)

type Config struct {
	Frontend string `yaml:"frontend"`
	Clang    struct {
		Binary       string   `yaml:"binary"`
		Args         []string `yaml:"args"`
		SkipIncluded bool     `yaml:"skip_included"`
	} `yaml:"clang"`
	Output struct {
		Format      string `yaml:"format"`
		MaxFiles    int    `yaml:"max_files"`
		MaxFileSize int    `yaml:"max_file_size"`
	} `yaml:"output"`
	Strict bool `yaml:"strict"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	cfg := &Config{Frontend: "treesitter"}
	cfg.Clang.Binary = "clang++"
	cfg.Output.Format = FormatText
	cfg.Output.MaxFileSize = 1_000_000
	return cfg
}

// LoadConfig reads .env (if present), then the YAML file at path, then the
// environment. A missing file is only an error when required is set.
func LoadConfig(path string, required bool) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.Parse(data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !required:
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse overlays YAML settings onto cfg.
func (cfg *Config) Parse(data []byte) error {
	return yaml.Unmarshal(data, cfg)
}

// ApplyEnv overrides settings from non-empty environment variables.
func (cfg *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvFrontend)); v != "" {
		cfg.Frontend = v
	}
	if v := strings.TrimSpace(getenv(EnvClang)); v != "" {
		cfg.Clang.Binary = v
	}
	if v := strings.TrimSpace(getenv(EnvFormat)); v != "" {
		cfg.Output.Format = v
	}
}

// Validate checks values that can be wrong independently of the input.
func (cfg *Config) Validate() error {
	switch cfg.Output.Format {
	case FormatText, FormatToon:
	default:
		return fmt.Errorf("unknown output format %q (want %s or %s)", cfg.Output.Format, FormatText, FormatToon)
	}
	if cfg.Output.MaxFiles < 0 {
		return fmt.Errorf("max_files must not be negative")
	}
	if cfg.Output.MaxFileSize < 0 {
		return fmt.Errorf("max_file_size must not be negative")
	}
	return nil
}

// Marshal renders cfg as YAML.
func (cfg *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(cfg)
}
