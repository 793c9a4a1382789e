// Package config provides configuration loading and management for dicomvolume.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumWorkers bounds how many slice files are read and parsed concurrently
		NumWorkers int `yaml:"numWorkers"`

		// PositionTolerance is the largest per-axis deviation, in mm, allowed
		// between a slice position and the uniformly spaced stack
		PositionTolerance float64 `yaml:"positionTolerance"`
	} `yaml:"processing"`

	// Server parameters
	Server struct {
		// Addr is the listen address of the HTTP endpoint
		Addr string `yaml:"addr"`

		// DataDir holds one sub-directory of slice files per study
		DataDir string `yaml:"dataDir"`
	} `yaml:"server"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`

		// SliceFormat is the image format used when extracting slices: png or jpeg
		SliceFormat string `yaml:"sliceFormat"`

		// WindowCenter and WindowWidth map intensities to grey levels.
		// A zero width derives the window from the volume.
		WindowCenter float64 `yaml:"windowCenter"`
		WindowWidth  float64 `yaml:"windowWidth"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumWorkers = runtime.NumCPU()
	cfg.Processing.PositionTolerance = 0.001

	cfg.Server.Addr = ":3000"
	cfg.Server.DataDir = "data"

	cfg.Output.Verbose = true
	cfg.Output.SliceFormat = "png"

	return cfg
}

// Validate checks that the configuration values are usable
func (c *Config) Validate() error {
	if c.Processing.NumWorkers <= 0 {
		return fmt.Errorf("processing.numWorkers must be positive, got %d", c.Processing.NumWorkers)
	}
	if c.Processing.PositionTolerance <= 0 {
		return fmt.Errorf("processing.positionTolerance must be positive, got %g", c.Processing.PositionTolerance)
	}
	switch c.Output.SliceFormat {
	case "png", "jpeg":
	default:
		return fmt.Errorf("output.sliceFormat must be png or jpeg, got %q", c.Output.SliceFormat)
	}
	if c.Output.WindowWidth < 0 {
		return fmt.Errorf("output.windowWidth must not be negative, got %g", c.Output.WindowWidth)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
