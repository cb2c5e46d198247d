// Package config provides configuration loading and management for wavgstat.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"math"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Kernel parameters, fixed for one invocation
	Kernel struct {
		// Variant is one of ref2d, ref3d or data3d
		Variant string `yaml:"variant"`

		// Precision is float32 or float64
		Precision string `yaml:"precision"`

		// CTF enables per-pixel CTF correction instead of PartScale
		CTF bool `yaml:"ctf"`

		// PartScale multiplies the reference when CTF is disabled
		PartScale float64 `yaml:"partScale"`

		// SignificanceWeight is the smallest contributing weight (0 derives it from the batch)
		SignificanceWeight float64 `yaml:"significanceWeight"`

		// WeightNorm divides every contributing weight (0 derives it from the batch)
		WeightNorm float64 `yaml:"weightNorm"`

		// BlockSize is the number of pixel lanes per pass (0 selects from CPU features)
		BlockSize int `yaml:"blockSize"`

		// Workers bounds concurrently processed orientation groups (0 means GOMAXPROCS)
		Workers int `yaml:"workers"`

		// LaneWorkers splits the lanes of one group across goroutines
		LaneWorkers int `yaml:"laneWorkers"`

		// Partitions splits the orientation groups into sub-batches whose
		// accumulators are merged afterwards
		Partitions int `yaml:"partitions"`

		// RotationTolerance rejects non-orthonormal rotations (0 disables the check)
		RotationTolerance float64 `yaml:"rotationTolerance"`
	} `yaml:"kernel"`

	// Projector parameters
	Projector struct {
		// Interpolation is nearest or linear
		Interpolation string `yaml:"interpolation"`
	} `yaml:"projector"`

	// Synthetic batch parameters
	Synthetic struct {
		// BoxSize is the real-space edge length in pixels
		BoxSize int `yaml:"boxSize"`

		// MaxRadius is the frequency support radius (0 means BoxSize/2-1)
		MaxRadius int `yaml:"maxRadius"`

		// Orientations is the number of orientation groups
		Orientations int `yaml:"orientations"`

		// AngularStep is the spacing between orientations in degrees
		AngularStep float64 `yaml:"angularStep"`

		// OffsetRange and OffsetStep define the translation grid in pixels
		OffsetRange float64 `yaml:"offsetRange"`
		OffsetStep  float64 `yaml:"offsetStep"`

		// Noise is the standard deviation of Gaussian noise added to the observation
		Noise float64 `yaml:"noise"`

		// SignificantFraction is the cumulative posterior mass kept by the significance cutoff
		SignificantFraction float64 `yaml:"significantFraction"`

		// Seed drives every random draw
		Seed uint64 `yaml:"seed"`
	} `yaml:"synthetic"`

	// Output parameters
	Output struct {
		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`

		// ReportFile is where the YAML run report is written (empty disables)
		ReportFile string `yaml:"reportFile"`

		// ImageDir is where accumulator maps are saved (empty disables)
		ImageDir string `yaml:"imageDir"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default kernel parameters
	cfg.Kernel.Variant = "ref2d"
	cfg.Kernel.Precision = "float64"
	cfg.Kernel.CTF = false
	cfg.Kernel.PartScale = 1.0
	cfg.Kernel.SignificanceWeight = 0
	cfg.Kernel.WeightNorm = 0
	cfg.Kernel.BlockSize = 0
	cfg.Kernel.Workers = 0
	cfg.Kernel.LaneWorkers = 1
	cfg.Kernel.Partitions = 1
	cfg.Kernel.RotationTolerance = 1e-5

	cfg.Projector.Interpolation = "linear"

	// Set default synthetic batch parameters
	cfg.Synthetic.BoxSize = 32
	cfg.Synthetic.MaxRadius = 0
	cfg.Synthetic.Orientations = 16
	cfg.Synthetic.AngularStep = 5
	cfg.Synthetic.OffsetRange = 2
	cfg.Synthetic.OffsetStep = 1
	cfg.Synthetic.Noise = 0.1
	cfg.Synthetic.SignificantFraction = 0.999
	cfg.Synthetic.Seed = 1

	// Set default output parameters
	cfg.Output.Verbose = false
	cfg.Output.ReportFile = "wavg_report.yaml"
	cfg.Output.ImageDir = ""

	return cfg
}

// Validate checks values that cannot be corrected by defaults
func (c *Config) Validate() error {
	switch c.Kernel.Variant {
	case "ref2d", "ref3d", "data3d":
	default:
		return fmt.Errorf("unknown kernel variant %q", c.Kernel.Variant)
	}
	switch c.Kernel.Precision {
	case "float32", "float64":
	default:
		return fmt.Errorf("unknown precision %q", c.Kernel.Precision)
	}
	if !(c.Kernel.SignificanceWeight >= 0) || math.IsInf(c.Kernel.SignificanceWeight, 0) {
		return fmt.Errorf("significance weight %g must be finite and non-negative", c.Kernel.SignificanceWeight)
	}
	if !(c.Kernel.WeightNorm >= 0) || math.IsInf(c.Kernel.WeightNorm, 0) {
		return fmt.Errorf("weight norm %g must be finite and non-negative", c.Kernel.WeightNorm)
	}
	if c.Kernel.BlockSize < 0 || c.Kernel.Workers < 0 || c.Kernel.LaneWorkers < 0 {
		return fmt.Errorf("block size, workers and lane workers must not be negative")
	}
	if c.Kernel.Partitions < 1 {
		return fmt.Errorf("partitions must be at least 1, got %d", c.Kernel.Partitions)
	}
	if !(c.Kernel.RotationTolerance >= 0) {
		return fmt.Errorf("rotation tolerance %g must be non-negative", c.Kernel.RotationTolerance)
	}
	if c.Synthetic.BoxSize < 4 || c.Synthetic.BoxSize%2 != 0 {
		return fmt.Errorf("box size %d must be even and at least 4", c.Synthetic.BoxSize)
	}
	if c.Synthetic.MaxRadius < 0 || c.Synthetic.MaxRadius > c.Synthetic.BoxSize/2 {
		return fmt.Errorf("max radius %d outside [0, %d]", c.Synthetic.MaxRadius, c.Synthetic.BoxSize/2)
	}
	if c.Synthetic.Orientations <= 0 {
		return fmt.Errorf("orientations must be positive, got %d", c.Synthetic.Orientations)
	}
	if c.Synthetic.OffsetRange < 0 || c.Synthetic.OffsetStep <= 0 {
		return fmt.Errorf("invalid translation grid range %g step %g", c.Synthetic.OffsetRange, c.Synthetic.OffsetStep)
	}
	if c.Synthetic.SignificantFraction <= 0 || c.Synthetic.SignificantFraction > 1 {
		return fmt.Errorf("significant fraction %g outside (0, 1]", c.Synthetic.SignificantFraction)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration.
// Values are not validated here so that command line overrides can still
// correct them; call Validate once they have been applied.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
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
