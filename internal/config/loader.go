package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/fyrsmithlabs/tagforge/internal/logging"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	envPrefix = "TAGFORGE_"
)

// Config is the root configuration document.
type Config struct {
	Extraction ExtractionConfig `koanf:"extraction"`
	Aliasing   AliasingConfig   `koanf:"aliasing"`
	Patterns   PatternsConfig   `koanf:"patterns"`
	Logging    logging.Config   `koanf:"logging"`
}

// PatternsConfig points at the tag pattern library document. When Path is
// empty the built-in defaults are used.
type PatternsConfig struct {
	Path string `koanf:"path"`
}

// LoadFile loads configuration from a YAML file, then overrides with
// environment variables.
//
// Precedence (highest to lowest):
//  1. Environment variables (TAGFORGE_EXTRACTION_MIN_KEY_LENGTH, etc.)
//  2. YAML config file
//  3. Hardcoded defaults
//
// A missing file is not an error; the result is defaults plus environment
// overrides. Files larger than 1MB are rejected.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			f, err := os.Open(path)
			if err != nil {
				return nil, fmt.Errorf("failed to open config file: %w", err)
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return nil, fmt.Errorf("failed to stat config file: %w", err)
			}
			if info.Size() > maxConfigFileSize {
				return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
			}

			content, err := io.ReadAll(f)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	// TAGFORGE_EXTRACTION_MIN_KEY_LENGTH -> extraction.min_key_length
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := unmarshal(k, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadBytes loads configuration from an in-memory YAML document. Used by
// tests and embedded defaults; no environment overrides are applied.
func LoadBytes(content []byte) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	var cfg Config
	if err := unmarshal(k, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// unmarshal decodes with weakly typed input so scope filter values may be
// written as either a scalar or a list in YAML.
func unmarshal(k *koanf.Koanf, cfg *Config) error {
	return k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			Squash:           true,
		},
	})
}

// ApplyDefaults fills unset values across all sections.
func (c *Config) ApplyDefaults() {
	c.Extraction.ApplyDefaults()
	c.Aliasing.ApplyDefaults()

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate checks document-level settings. Rules are deliberately not
// validated here: the engines validate each rule at construction and
// drop invalid ones individually, so one broken rule never rejects the
// whole document.
func (c *Config) Validate() error {
	switch c.Extraction.FieldSelectionStrategy {
	case "first_match", "merge_all":
	default:
		return fmt.Errorf("%w: unknown field_selection_strategy %q", ErrInvalidRule, c.Extraction.FieldSelectionStrategy)
	}
	return c.Logging.Validate()
}
