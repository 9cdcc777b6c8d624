// Package config holds the settings of the parse pipeline.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/quantarax/dicompreview/internal/validation"
)

// Preview policies.
const (
	PolicyFailFast   = "fail_fast"
	PolicyBestEffort = "best_effort"
)

// VOI modes.
const (
	VOINormalize = "normalize"
	VOIWindow    = "window"
)

// Config holds pipeline configuration.
type Config struct {
	Tree    TreeConfig
	Preview PreviewConfig
	Log     LogConfig
	Service ServiceConfig
}

// TreeConfig holds attribute tree settings.
type TreeConfig struct {
	// MaxDepth caps sequence nesting; <= 0 means unlimited.
	MaxDepth int `mapstructure:"max_depth"`
}

// PreviewConfig holds preview rendering settings.
type PreviewConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Policy       string `mapstructure:"policy"`
	JPEGQuality  int    `mapstructure:"jpeg_quality"`
	MaxDimension int    `mapstructure:"max_dimension"`
	VOIMode      string `mapstructure:"voi_mode"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// ServiceConfig identifies the process in logs and traces.
type ServiceConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Tree: TreeConfig{MaxDepth: 2},
		Preview: PreviewConfig{
			Enabled:     true,
			Policy:      PolicyFailFast,
			JPEGQuality: 60,
			VOIMode:     VOINormalize,
		},
		Log:     LogConfig{Level: "info"},
		Service: ServiceConfig{Name: "dicompreview", Version: "dev"},
	}
}

// Load reads configuration from environment variables with the DICOMPREVIEW_
// prefix and, when path is not empty, from a YAML/JSON/TOML file. Environment
// variables win over the file.
func Load(path string) (*Config, error) {
	def := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix("DICOMPREVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("tree.max_depth", def.Tree.MaxDepth)
	v.SetDefault("preview.enabled", def.Preview.Enabled)
	v.SetDefault("preview.policy", def.Preview.Policy)
	v.SetDefault("preview.jpeg_quality", def.Preview.JPEGQuality)
	v.SetDefault("preview.max_dimension", def.Preview.MaxDimension)
	v.SetDefault("preview.voi_mode", def.Preview.VOIMode)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("service.name", def.Service.Name)
	v.SetDefault("service.version", def.Service.Version)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Tree: TreeConfig{
			MaxDepth: v.GetInt("tree.max_depth"),
		},
		Preview: PreviewConfig{
			Enabled:      v.GetBool("preview.enabled"),
			Policy:       strings.ToLower(v.GetString("preview.policy")),
			JPEGQuality:  v.GetInt("preview.jpeg_quality"),
			MaxDimension: v.GetInt("preview.max_dimension"),
			VOIMode:      strings.ToLower(v.GetString("preview.voi_mode")),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
		Service: ServiceConfig{
			Name:    v.GetString("service.name"),
			Version: v.GetString("service.version"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if err := validation.ValidateRangeInt(c.Preview.JPEGQuality, 1, 100); err != nil {
		return fmt.Errorf("preview.jpeg_quality: %w", err)
	}
	if c.Preview.MaxDimension < 0 {
		return fmt.Errorf("preview.max_dimension: must not be negative, got %d", c.Preview.MaxDimension)
	}
	switch c.Preview.Policy {
	case PolicyFailFast, PolicyBestEffort:
	default:
		return fmt.Errorf("preview.policy: unknown policy %q", c.Preview.Policy)
	}
	switch c.Preview.VOIMode {
	case VOINormalize, VOIWindow:
	default:
		return fmt.Errorf("preview.voi_mode: unknown mode %q", c.Preview.VOIMode)
	}
	return nil
}
