// Package config provides unified configuration loading for mupool.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/syrinxlab/mupool/internal/constants"
	"gopkg.in/yaml.v3"
)

// Config contains all mupool configuration settings.
type Config struct {
	// Pool contains settings for the synthetic motor pool generator.
	Pool PoolConfig `json:"pool" yaml:"pool"`

	// Identify contains settings for the network-analysis identification.
	Identify IdentifyConfig `json:"identify" yaml:"identify"`

	// Logging contains settings for operational and sweep logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// LoggingConfig configures mupool's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables sweep logging to .mupool/sweeps.jsonl.
	// "trace" additionally records every sweep step.
	Level string `json:"level" yaml:"level"`
}

// PoolConfig configures the synthetic motor pool.
type PoolConfig struct {
	// Units is the number of motor units in the pool.
	Units int `json:"units" yaml:"units"`

	// SmallestUnit is the innervation number of the smallest unit.
	SmallestUnit float64 `json:"smallest_unit" yaml:"smallest_unit"`

	// LargestUnit is the innervation number of the largest unit.
	LargestUnit float64 `json:"largest_unit" yaml:"largest_unit"`

	// FullRecruitment is the stimulation level at which all units respond.
	FullRecruitment float64 `json:"full_recruitment" yaml:"full_recruitment"`

	// StimulusLength is the number of samples in the stimulation paradigm.
	StimulusLength int `json:"stimulus_length" yaml:"stimulus_length"`

	// PulsePeriod is the sample spacing between stimulation pulses.
	PulsePeriod int `json:"pulse_period" yaml:"pulse_period"`

	// ThresholdNoise scales per-fibre recruitment threshold jitter.
	// Zero produces perfectly separated units.
	ThresholdNoise float64 `json:"threshold_noise" yaml:"threshold_noise"`

	// FibreNoise is the standard deviation of additive trace noise.
	FibreNoise float64 `json:"fibre_noise" yaml:"fibre_noise"`

	// Seed is the base seed for all pool randomness.
	Seed int64 `json:"seed" yaml:"seed"`
}

// IdentifyConfig configures motor-unit identification.
type IdentifyConfig struct {
	// Correlation selects the correlation coefficient:
	// "pearson" (default), "spearman", or "kendall".
	Correlation string `json:"correlation" yaml:"correlation"`

	// Detector selects the community detector: "louvain" (default),
	// "lpa", or "components".
	Detector string `json:"detector" yaml:"detector"`

	// Optimise selects the sweep objective: "ncomm", "emd", or
	// "resolution".
	Optimise string `json:"optimise" yaml:"optimise"`

	// Steps is the number of steps in the threshold sweep.
	Steps int `json:"steps" yaml:"steps"`

	// Step is the stride through the sweep.
	Step int `json:"step" yaml:"step"`

	// Resolution is the Louvain resolution parameter.
	Resolution float64 `json:"resolution" yaml:"resolution"`

	// Seed seeds the community detector where its optimisation is
	// stochastic. Identical seeds give identical partitions.
	Seed int64 `json:"seed" yaml:"seed"`

	// ExpectedUnits is the reference community count for the ncomm
	// objective. Zero means "use the ground-truth count when available".
	ExpectedUnits int `json:"expected_units" yaml:"expected_units"`

	// MinConfidence drops fibres whose strongest correlation is below
	// this value; they are reported unlabeled rather than forced into a
	// community. Zero disables the filter.
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence"`
}

// Default returns a Config with the published parameter values.
func Default() *Config {
	return &Config{
		Pool: PoolConfig{
			Units:           constants.DefaultPoolSize,
			SmallestUnit:    constants.DefaultSmallestUnit,
			LargestUnit:     constants.DefaultLargestUnit,
			FullRecruitment: constants.DefaultFullRecruitment,
			StimulusLength:  constants.DefaultStimulusLength,
			PulsePeriod:     constants.DefaultPulsePeriod,
			ThresholdNoise:  constants.DefaultThresholdNoiseMult,
			FibreNoise:      constants.DefaultFibreNoise,
			Seed:            constants.DefaultPoolSeed,
		},
		Identify: IdentifyConfig{
			Correlation: constants.CorrPearson,
			Detector:    constants.DetectLouvain,
			Optimise:    constants.OptimiseNComm,
			Steps:       constants.DefaultCorrSteps,
			Step:        constants.DefaultCorrStep,
			Resolution:  constants.DefaultLouvainResolution,
			Seed:        constants.DefaultLouvainSeed,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the given directory. It looks for
// config.yaml inside dir, merges it over defaults, then applies
// environment overrides. A missing file is not an error; defaults apply.
func Load(dir string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(dir, "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML to dir/config.yaml.
func (c *Config) Save(dir string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks configuration invariants. Violations are fatal
// precondition failures, not recoverable conditions.
func (c *Config) Validate() error {
	if c.Pool.Units < 1 {
		return fmt.Errorf("pool.units must be >= 1, got %d", c.Pool.Units)
	}
	if c.Pool.SmallestUnit < 1 {
		return fmt.Errorf("pool.smallest_unit must be >= 1, got %g", c.Pool.SmallestUnit)
	}
	if c.Pool.LargestUnit < c.Pool.SmallestUnit {
		return fmt.Errorf("pool.largest_unit (%g) must be >= pool.smallest_unit (%g)",
			c.Pool.LargestUnit, c.Pool.SmallestUnit)
	}
	if c.Pool.StimulusLength < 1 {
		return fmt.Errorf("pool.stimulus_length must be >= 1, got %d", c.Pool.StimulusLength)
	}
	if c.Pool.PulsePeriod < 1 {
		return fmt.Errorf("pool.pulse_period must be >= 1, got %d", c.Pool.PulsePeriod)
	}

	switch c.Identify.Correlation {
	case constants.CorrPearson, constants.CorrSpearman, constants.CorrKendall:
	default:
		return fmt.Errorf("identify.correlation must be pearson, spearman, or kendall, got %q",
			c.Identify.Correlation)
	}

	switch c.Identify.Detector {
	case constants.DetectLouvain, constants.DetectLPA, constants.DetectComponents:
	default:
		return fmt.Errorf("identify.detector must be louvain, lpa, or components, got %q",
			c.Identify.Detector)
	}

	switch c.Identify.Optimise {
	case constants.OptimiseNComm, constants.OptimiseEMD, constants.OptimiseResolution:
	default:
		return fmt.Errorf("identify.optimise must be ncomm, emd, or resolution, got %q",
			c.Identify.Optimise)
	}

	if c.Identify.Steps < 1 {
		return fmt.Errorf("identify.steps must be >= 1, got %d", c.Identify.Steps)
	}
	if c.Identify.Step < 1 {
		return fmt.Errorf("identify.step must be >= 1, got %d", c.Identify.Step)
	}

	return nil
}

// applyEnvOverrides applies MUPOOL_* environment variables over the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MUPOOL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MUPOOL_POOL_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Pool.Seed = n
		}
	}
	if v := os.Getenv("MUPOOL_IDENTIFY_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Identify.Seed = n
		}
	}
	if v := os.Getenv("MUPOOL_CORRELATION"); v != "" {
		cfg.Identify.Correlation = v
	}
	if v := os.Getenv("MUPOOL_DETECTOR"); v != "" {
		cfg.Identify.Detector = v
	}
}
