package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/syrinxlab/mupool/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage mupool configuration",
		Long: `View and modify mupool configuration settings.

Configuration is stored in .mupool/config.yaml.

Examples:
  mupool config list                        # Show all settings
  mupool config get identify.detector       # Get a specific setting
  mupool config set identify.detector lpa   # Set a setting`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadProjectConfig(root)
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Configuration (.mupool/config.yaml):")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Pool:")
			fmt.Fprintf(out, "  pool.units:             %d\n", cfg.Pool.Units)
			fmt.Fprintf(out, "  pool.smallest_unit:     %g\n", cfg.Pool.SmallestUnit)
			fmt.Fprintf(out, "  pool.largest_unit:      %g\n", cfg.Pool.LargestUnit)
			fmt.Fprintf(out, "  pool.full_recruitment:  %g\n", cfg.Pool.FullRecruitment)
			fmt.Fprintf(out, "  pool.stimulus_length:   %d\n", cfg.Pool.StimulusLength)
			fmt.Fprintf(out, "  pool.pulse_period:      %d\n", cfg.Pool.PulsePeriod)
			fmt.Fprintf(out, "  pool.threshold_noise:   %g\n", cfg.Pool.ThresholdNoise)
			fmt.Fprintf(out, "  pool.fibre_noise:       %g\n", cfg.Pool.FibreNoise)
			fmt.Fprintf(out, "  pool.seed:              %d\n", cfg.Pool.Seed)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Identify:")
			fmt.Fprintf(out, "  identify.correlation:    %s\n", cfg.Identify.Correlation)
			fmt.Fprintf(out, "  identify.detector:       %s\n", cfg.Identify.Detector)
			fmt.Fprintf(out, "  identify.optimise:       %s\n", cfg.Identify.Optimise)
			fmt.Fprintf(out, "  identify.steps:          %d\n", cfg.Identify.Steps)
			fmt.Fprintf(out, "  identify.step:           %d\n", cfg.Identify.Step)
			fmt.Fprintf(out, "  identify.resolution:     %g\n", cfg.Identify.Resolution)
			fmt.Fprintf(out, "  identify.seed:           %d\n", cfg.Identify.Seed)
			fmt.Fprintf(out, "  identify.expected_units: %d\n", cfg.Identify.ExpectedUnits)
			fmt.Fprintf(out, "  identify.min_confidence: %g\n", cfg.Identify.MinConfidence)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Logging:")
			fmt.Fprintf(out, "  logging.level:           %s\n", cfg.Logging.Level)
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := loadProjectConfig(root)
			if err != nil {
				return err
			}

			value, found := getConfigValue(cfg, key)
			if !found {
				if jsonOut {
					json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
						"error": "key not found",
						"key":   key,
					})
					return nil
				}
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"key":   key,
					"value": value,
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			}
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			key, value := args[0], args[1]

			if err := requireInit(root); err != nil {
				return err
			}
			cfg, err := loadProjectConfig(root)
			if err != nil {
				return err
			}

			if err := setConfigValue(cfg, key, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := cfg.Save(mupoolDir(root)); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"status": "updated",
					"key":    key,
					"value":  value,
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, value)
			}
			return nil
		},
	}
}

func getConfigValue(cfg *config.Config, key string) (any, bool) {
	switch key {
	case "pool.units":
		return cfg.Pool.Units, true
	case "pool.smallest_unit":
		return cfg.Pool.SmallestUnit, true
	case "pool.largest_unit":
		return cfg.Pool.LargestUnit, true
	case "pool.full_recruitment":
		return cfg.Pool.FullRecruitment, true
	case "pool.stimulus_length":
		return cfg.Pool.StimulusLength, true
	case "pool.pulse_period":
		return cfg.Pool.PulsePeriod, true
	case "pool.threshold_noise":
		return cfg.Pool.ThresholdNoise, true
	case "pool.fibre_noise":
		return cfg.Pool.FibreNoise, true
	case "pool.seed":
		return cfg.Pool.Seed, true
	case "identify.correlation":
		return cfg.Identify.Correlation, true
	case "identify.detector":
		return cfg.Identify.Detector, true
	case "identify.optimise":
		return cfg.Identify.Optimise, true
	case "identify.steps":
		return cfg.Identify.Steps, true
	case "identify.step":
		return cfg.Identify.Step, true
	case "identify.resolution":
		return cfg.Identify.Resolution, true
	case "identify.seed":
		return cfg.Identify.Seed, true
	case "identify.expected_units":
		return cfg.Identify.ExpectedUnits, true
	case "identify.min_confidence":
		return cfg.Identify.MinConfidence, true
	case "logging.level":
		return cfg.Logging.Level, true
	}
	return nil, false
}

func setConfigValue(cfg *config.Config, key, value string) error {
	setInt := func(dst *int) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s requires an integer, got %q", key, value)
		}
		*dst = n
		return nil
	}
	setInt64 := func(dst *int64) error {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%s requires an integer, got %q", key, value)
		}
		*dst = n
		return nil
	}
	setFloat := func(dst *float64) error {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s requires a number, got %q", key, value)
		}
		*dst = f
		return nil
	}

	switch key {
	case "pool.units":
		return setInt(&cfg.Pool.Units)
	case "pool.smallest_unit":
		return setFloat(&cfg.Pool.SmallestUnit)
	case "pool.largest_unit":
		return setFloat(&cfg.Pool.LargestUnit)
	case "pool.full_recruitment":
		return setFloat(&cfg.Pool.FullRecruitment)
	case "pool.stimulus_length":
		return setInt(&cfg.Pool.StimulusLength)
	case "pool.pulse_period":
		return setInt(&cfg.Pool.PulsePeriod)
	case "pool.threshold_noise":
		return setFloat(&cfg.Pool.ThresholdNoise)
	case "pool.fibre_noise":
		return setFloat(&cfg.Pool.FibreNoise)
	case "pool.seed":
		return setInt64(&cfg.Pool.Seed)
	case "identify.correlation":
		cfg.Identify.Correlation = value
	case "identify.detector":
		cfg.Identify.Detector = value
	case "identify.optimise":
		cfg.Identify.Optimise = value
	case "identify.steps":
		return setInt(&cfg.Identify.Steps)
	case "identify.step":
		return setInt(&cfg.Identify.Step)
	case "identify.resolution":
		return setFloat(&cfg.Identify.Resolution)
	case "identify.seed":
		return setInt64(&cfg.Identify.Seed)
	case "identify.expected_units":
		return setInt(&cfg.Identify.ExpectedUnits)
	case "identify.min_confidence":
		return setFloat(&cfg.Identify.MinConfidence)
	case "logging.level":
		cfg.Logging.Level = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
