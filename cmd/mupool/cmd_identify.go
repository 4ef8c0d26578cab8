package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/syrinxlab/mupool/internal/config"
	"github.com/syrinxlab/mupool/internal/constants"
	"github.com/syrinxlab/mupool/internal/identify"
	"github.com/syrinxlab/mupool/internal/logging"
	"github.com/syrinxlab/mupool/internal/specimen"
	"github.com/syrinxlab/mupool/internal/store"
	"github.com/syrinxlab/mupool/internal/trace"
)

func newIdentifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identify",
		Short: "Identify motor units in recorded fibre activity",
		Long: `Identify motor units by clustering the fibre co-activation network.

Fibre activity is read from an Arrow IPC file, correlated pairwise, and
thresholded into a similarity graph. The correlation threshold (or the
Louvain resolution) is swept and the partition at the optimum of the
configured objective is reported and saved as a run.

Examples:
  mupool identify --activity activity.arrow --expected-units 10
  mupool identify --activity rec.arrow --specimen gw65 --snr-filter
  mupool identify --activity activity.arrow --truth activity.truth.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			activityPath, _ := cmd.Flags().GetString("activity")
			specimenName, _ := cmd.Flags().GetString("specimen")
			electrode, _ := cmd.Flags().GetString("electrode")
			truthPath, _ := cmd.Flags().GetString("truth")
			snrFilter, _ := cmd.Flags().GetBool("snr-filter")
			noSave, _ := cmd.Flags().GetBool("no-save")

			cfg, err := loadProjectConfig(root)
			if err != nil {
				return err
			}
			logger := logging.NewLogger(cfg.Logging.Level, os.Stderr)
			sweeps := newSweepLogger(root, cfg)
			defer sweeps.Close()

			activity, err := trace.ReadArrow(activityPath)
			if err != nil {
				return fmt.Errorf("failed to read activity: %w", err)
			}
			totalFibres := activity.Fibres()

			s, err := openStore(root)
			if err != nil {
				return err
			}
			defer s.Close()
			ctx := context.Background()

			// Restrict to stimulated fibres when asked. kept maps
			// filtered rows back to original fibre indices.
			kept := identityIndex(totalFibres)
			if snrFilter {
				var snr float64
				if specimenName != "" {
					sp, err := s.GetSpecimen(ctx, specimenName)
					if err != nil {
						return err
					}
					snr = sp.SNRMult
				}
				if v, _ := cmd.Flags().GetFloat64("snr"); v > 0 {
					snr = v
				}
				if snr <= 0 {
					snr = constants.DefaultSNRMult
				}
				filtered, idx, err := specimen.StimulatedFibres(activity, snr)
				if err != nil {
					return fmt.Errorf("failed to filter fibres: %w", err)
				}
				logger.Info("snr filter", "kept", len(idx), "of", totalFibres, "sd_mult", snr)
				activity, kept = filtered, idx
			}

			opts := identifyOptions(cmd, cfg)
			res, err := identify.Run(activity, opts, logger, sweeps)
			if err != nil {
				return fmt.Errorf("identification failed: %w", err)
			}

			// Expand labels back to the unfiltered fibre index space.
			labels := make([]int, totalFibres)
			for i := range labels {
				labels[i] = -1
			}
			for i, l := range res.Labels {
				labels[kept[i]] = l
			}

			var eval *identify.Evaluation
			if truthPath != "" {
				truth, err := readTruth(truthPath)
				if err != nil {
					return err
				}
				eval, err = identify.Evaluate(labels, truth)
				if err != nil {
					return fmt.Errorf("failed to evaluate against truth: %w", err)
				}
			}

			units := unitRecords(labels, res.NumCommunities)
			var territories []*specimen.Territory
			if specimenName != "" {
				territories, err = unitTerritories(ctx, s, specimenName, units)
				if err != nil {
					return err
				}
				for i, terr := range territories {
					if terr != nil {
						units[i].Area = terr.Area
					}
				}
			}

			run := &store.Run{
				Specimen:     specimenName,
				Electrode:    electrode,
				Correlation:  opts.Correlation,
				Detector:     opts.Detector,
				Objective:    opts.Optimise,
				Threshold:    res.OptimalThreshold,
				Resolution:   res.OptimalResolution,
				Seed:         opts.Seed,
				Communities:  res.NumCommunities,
				Labels:       labels,
				ActivityPath: activityPath,
			}
			if run.Specimen == "" {
				run.Specimen = "adhoc"
			}
			if !noSave {
				if err := s.SaveRun(ctx, run, units); err != nil {
					return fmt.Errorf("failed to save run: %w", err)
				}
			}

			if jsonOut {
				out := map[string]any{
					"run_id":             run.ID,
					"communities":        res.NumCommunities,
					"optimal_threshold":  res.OptimalThreshold,
					"optimal_resolution": res.OptimalResolution,
					"labels":             labels,
					"unlabeled":          totalFibres - labeledCount(labels),
				}
				if eval != nil {
					out["pairwise_accuracy"] = eval.PairwiseAccuracy
					out["community_ratio"] = eval.CommunityRatio
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Identified %d motor units from %d fibres\n", res.NumCommunities, totalFibres)
			fmt.Fprintf(out, "  Threshold:  %.3f\n", res.OptimalThreshold)
			fmt.Fprintf(out, "  Resolution: %.3f\n", res.OptimalResolution)
			for _, u := range units {
				fmt.Fprintf(out, "  Unit %d: %d fibres", u.Unit, u.Size)
				if u.Area > 0 {
					fmt.Fprintf(out, ", territory %.0f px", u.Area)
				}
				fmt.Fprintln(out)
			}
			if unlabeled := totalFibres - labeledCount(labels); unlabeled > 0 {
				fmt.Fprintf(out, "  Unlabeled: %d fibres\n", unlabeled)
			}
			if eval != nil {
				fmt.Fprintf(out, "  Pairwise accuracy: %.3f\n", eval.PairwiseAccuracy)
			}
			if !noSave {
				fmt.Fprintf(out, "Saved run %s\n", run.ID)
			}
			return nil
		},
	}

	cmd.Flags().String("activity", "", "Arrow IPC file with fibre activity (required)")
	cmd.Flags().String("specimen", "", "Specimen name for territory mapping and run association")
	cmd.Flags().String("electrode", "", "Electrode or stimulation site label")
	cmd.Flags().String("truth", "", "JSON file with ground-truth labels to score against")
	cmd.Flags().Bool("snr-filter", false, "Drop fibres without a clear stimulation response")
	cmd.Flags().Float64("snr", 0, "SNR multiplier override for --snr-filter")
	cmd.Flags().Bool("no-save", false, "Do not persist the run")
	cmd.Flags().String("correlation", "", "Correlation method (pearson, spearman, kendall)")
	cmd.Flags().String("detector", "", "Community detector (louvain, lpa, components)")
	cmd.Flags().String("optimise", "", "Sweep objective (ncomm, emd, resolution)")
	cmd.Flags().Int("steps", 0, "Sweep steps")
	cmd.Flags().Int("step", 0, "Sweep stride")
	cmd.Flags().Float64("resolution", 0, "Louvain resolution")
	cmd.Flags().Int64("seed", 0, "Detector seed")
	cmd.Flags().Int("expected-units", 0, "Expected unit count for the ncomm and resolution objectives")
	cmd.Flags().Float64("min-confidence", 0, "Drop fibres whose best correlation is below this")
	cmd.MarkFlagRequired("activity")

	return cmd
}

// identifyOptions merges config defaults with command-line overrides.
func identifyOptions(cmd *cobra.Command, cfg *config.Config) identify.Options {
	opts := identify.Options{
		Correlation:   cfg.Identify.Correlation,
		Detector:      cfg.Identify.Detector,
		Optimise:      cfg.Identify.Optimise,
		Steps:         cfg.Identify.Steps,
		Step:          cfg.Identify.Step,
		Resolution:    cfg.Identify.Resolution,
		Seed:          cfg.Identify.Seed,
		ExpectedUnits: cfg.Identify.ExpectedUnits,
		MinConfidence: cfg.Identify.MinConfidence,
	}
	if v, _ := cmd.Flags().GetString("correlation"); v != "" {
		opts.Correlation = v
	}
	if v, _ := cmd.Flags().GetString("detector"); v != "" {
		opts.Detector = v
	}
	if v, _ := cmd.Flags().GetString("optimise"); v != "" {
		opts.Optimise = v
	}
	if v, _ := cmd.Flags().GetInt("steps"); v > 0 {
		opts.Steps = v
	}
	if v, _ := cmd.Flags().GetInt("step"); v > 0 {
		opts.Step = v
	}
	if v, _ := cmd.Flags().GetFloat64("resolution"); v > 0 {
		opts.Resolution = v
	}
	if cmd.Flags().Changed("seed") {
		opts.Seed, _ = cmd.Flags().GetInt64("seed")
	}
	if v, _ := cmd.Flags().GetInt("expected-units"); v > 0 {
		opts.ExpectedUnits = v
	}
	if v, _ := cmd.Flags().GetFloat64("min-confidence"); v > 0 {
		opts.MinConfidence = v
	}
	return opts
}

// unitRecords groups fibre indices by community label.
func unitRecords(labels []int, communities int) []store.MotorUnitRecord {
	units := make([]store.MotorUnitRecord, communities)
	for i := range units {
		units[i].Unit = i
	}
	for f, l := range labels {
		if l >= 0 && l < communities {
			units[l].Fibres = append(units[l].Fibres, f)
			units[l].Size++
		}
	}
	return units
}

// unitTerritories maps each unit's fibres onto the specimen's mask
// positions and computes convex-hull territories. Units with too few
// fibres for a hull get a nil entry.
func unitTerritories(ctx context.Context, s *store.SQLiteStore, name string, units []store.MotorUnitRecord) ([]*specimen.Territory, error) {
	fibres, err := s.GetFibres(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(fibres) == 0 {
		return make([]*specimen.Territory, len(units)), nil
	}
	points := make([]specimen.Point, len(fibres))
	for i, f := range fibres {
		points[i] = specimen.Point{X: f.X, Y: f.Y}
	}
	communities := make([][]int, len(units))
	for i, u := range units {
		communities[i] = u.Fibres
	}
	territories, err := specimen.Territories(communities, points)
	if err != nil {
		return nil, fmt.Errorf("failed to map territories: %w", err)
	}
	return territories, nil
}

func identityIndex(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func labeledCount(labels []int) int {
	n := 0
	for _, l := range labels {
		if l >= 0 {
			n++
		}
	}
	return n
}

func readTruth(path string) ([]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read truth labels: %w", err)
	}
	var truth []int
	if err := json.Unmarshal(data, &truth); err != nil {
		return nil, fmt.Errorf("failed to parse truth labels: %w", err)
	}
	return truth, nil
}
