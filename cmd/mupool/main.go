package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/syrinxlab/mupool/internal/config"
	"github.com/syrinxlab/mupool/internal/logging"
	"github.com/syrinxlab/mupool/internal/store"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "mupool",
		Short: "Motor unit analysis for songbird vocal muscle",
		Long: `mupool identifies motor units in single-fibre calcium recordings.

It correlates fibre activity, clusters the co-activation network into
putative motor units, and maps their territories. A synthetic motor
pool simulator validates the identification pipeline against known
ground truth.`,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("root", ".", "Project root directory")

	rootCmd.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newConfigCmd(),
		newSimulateCmd(),
		newImportCmd(),
		newIdentifyCmd(),
		newValidateCmd(),
		newGraphCmd(),
		newStatsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "mupool version %s\n", version)
			}
		},
	}
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a mupool project in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")

			dir := mupoolDir(root)
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create .mupool directory: %w", err)
			}

			configPath := filepath.Join(dir, "config.yaml")
			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				if err := config.Default().Save(dir); err != nil {
					return fmt.Errorf("failed to write default config: %w", err)
				}
			}

			// Creating the store also creates the database and schema.
			s, err := store.NewSQLiteStore(root)
			if err != nil {
				return fmt.Errorf("failed to initialize store: %w", err)
			}
			s.Close()

			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{
					"status": "initialized",
					"path":   dir,
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Initialized .mupool/ in %s\n", root)
			}
			return nil
		},
	}
}

// mupoolDir returns the project-local data directory.
func mupoolDir(root string) string {
	return filepath.Join(root, ".mupool")
}

// requireInit checks that the project has been initialized.
func requireInit(root string) error {
	if _, err := os.Stat(mupoolDir(root)); os.IsNotExist(err) {
		return fmt.Errorf(".mupool not initialized. Run 'mupool init' first")
	}
	return nil
}

// loadProjectConfig loads configuration from the project data directory.
func loadProjectConfig(root string) (*config.Config, error) {
	cfg, err := config.Load(mupoolDir(root))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openStore opens the project store, failing when uninitialized.
func openStore(root string) (*store.SQLiteStore, error) {
	if err := requireInit(root); err != nil {
		return nil, err
	}
	s, err := store.NewSQLiteStore(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return s, nil
}

// newSweepLogger opens the project sweep logger. Returns nil below
// debug level, which SweepLogger treats as a no-op.
func newSweepLogger(root string, cfg *config.Config) *logging.SweepLogger {
	return logging.NewSweepLogger(mupoolDir(root), cfg.Logging.Level)
}
