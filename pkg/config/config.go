// Package config provides configuration loading and management for flinvert.
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
	// Data location parameters
	Data struct {
		// Shot is the discharge number the cached files belong to
		Shot int `yaml:"shot"`

		// Region names the camera view the basis libraries cover
		Region string `yaml:"region"`

		// CacheDir is the directory holding basis and weight files
		CacheDir string `yaml:"cacheDir"`

		// VideoFile is the camera frame stack to invert
		VideoFile string `yaml:"videoFile"`

		// TimesFile is the camera time series matching the frame stack
		TimesFile string `yaml:"timesFile"`

		// EquilibriumTimesFile is the reconstruction time series for the shot
		EquilibriumTimesFile string `yaml:"equilibriumTimesFile"`
	} `yaml:"data"`

	// Inversion parameters
	Inversion struct {
		// Algorithm selects the inversion: leastsquares or correlation
		Algorithm string `yaml:"algorithm"`

		// Smoothing is the regularization strength for least squares
		Smoothing float64 `yaml:"smoothing"`

		// CorrelationRank picks which ranked basis image the
		// correlation algorithm reconstructs with
		CorrelationRank int `yaml:"correlationRank"`
	} `yaml:"inversion"`

	// Frame preprocessing parameters
	Preprocessing struct {
		// SubtractWindow is the number of leading frames used for
		// background subtraction, 0 to disable
		SubtractWindow int `yaml:"subtractWindow"`

		// Sobel applies edge detection to each frame before inversion
		Sobel bool `yaml:"sobel"`
	} `yaml:"preprocessing"`

	// Field grid parameters
	Grid struct {
		// ResolutionR is the number of grid nodes along the radial axis
		ResolutionR int `yaml:"resolutionR"`

		// ResolutionZ is the number of grid nodes along the vertical axis
		ResolutionZ int `yaml:"resolutionZ"`
	} `yaml:"grid"`

	// Export parameters
	Export struct {
		// OutputDir is the directory rendered frames are written to
		OutputDir string `yaml:"outputDir"`

		// Colormap selects the rendering palette: gray, heat or plasma
		Colormap string `yaml:"colormap"`

		// Overlay renders the inverted field on top of the camera frame
		Overlay bool `yaml:"overlay"`
	} `yaml:"export"`

	// Precompute parameters
	Precompute struct {
		// NumWorkers specifies how many segments are inverted in parallel
		NumWorkers int `yaml:"numWorkers"`
	} `yaml:"precompute"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Data.Shot = 1160616016
	cfg.Data.Region = "Xpt"
	cfg.Data.CacheDir = "cache"
	cfg.Data.VideoFile = "video.npz"
	cfg.Data.TimesFile = "times.npy"
	cfg.Data.EquilibriumTimesFile = "efit_times.npy"

	cfg.Inversion.Algorithm = "leastsquares"
	cfg.Inversion.Smoothing = 0.5
	cfg.Inversion.CorrelationRank = 0

	cfg.Preprocessing.SubtractWindow = 20
	cfg.Preprocessing.Sobel = false

	cfg.Grid.ResolutionR = 100
	cfg.Grid.ResolutionZ = 100

	cfg.Export.OutputDir = "export"
	cfg.Export.Colormap = "heat"
	cfg.Export.Overlay = false

	cfg.Precompute.NumWorkers = runtime.NumCPU()

	return cfg
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
