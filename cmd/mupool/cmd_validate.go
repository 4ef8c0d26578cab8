package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/syrinxlab/mupool/internal/identify"
	"github.com/syrinxlab/mupool/internal/logging"
	"github.com/syrinxlab/mupool/internal/pool"
	"github.com/syrinxlab/mupool/internal/trace"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Score the identification pipeline on synthetic pools",
		Long: `Run repeated identification trials against synthetic motor pools with
known ground truth.

Each trial generates a pool with a fresh seed, synthesizes activity for
a random sample of its units, identifies motor units, and scores the
recovered partition against the ground-truth labels by pairwise
agreement.

Examples:
  mupool validate --trials 5
  mupool validate --trials 10 --sample 8 --detector lpa`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			trials, _ := cmd.Flags().GetInt("trials")
			sample, _ := cmd.Flags().GetInt("sample")
			seed, _ := cmd.Flags().GetInt64("seed")

			cfg, err := loadProjectConfig(root)
			if err != nil {
				return err
			}
			logger := logging.NewLogger(cfg.Logging.Level, os.Stderr)

			params := pool.Params{
				Units:           cfg.Pool.Units,
				SmallestUnit:    int(cfg.Pool.SmallestUnit),
				LargestUnit:     int(cfg.Pool.LargestUnit),
				FullRecruitment: cfg.Pool.FullRecruitment,
				StimulusLength:  cfg.Pool.StimulusLength,
				PulsePeriod:     cfg.Pool.PulsePeriod,
				ThresholdNoise:  cfg.Pool.ThresholdNoise,
				FibreNoise:      cfg.Pool.FibreNoise,
			}
			if !cmd.Flags().Changed("seed") {
				seed = cfg.Pool.Seed
			}

			type trial struct {
				Seed        int64   `json:"seed"`
				Fibres      int     `json:"fibres"`
				TrueUnits   int     `json:"true_units"`
				Communities int     `json:"communities"`
				Threshold   float64 `json:"threshold"`
				Accuracy    float64 `json:"accuracy"`
				Ratio       float64 `json:"community_ratio"`
				SizeEMD     float64 `json:"size_emd"`
			}
			results := make([]trial, 0, trials)
			var sum float64

			for i := 0; i < trials; i++ {
				params.Seed = seed + int64(i)
				p, err := pool.Generate(params)
				if err != nil {
					return fmt.Errorf("trial %d: failed to generate pool: %w", i, err)
				}

				var activity trace.Matrix
				var truth []int
				if sample > 0 {
					ids, err := p.Sample(sample, params.Seed)
					if err != nil {
						return fmt.Errorf("trial %d: failed to sample: %w", i, err)
					}
					activity, _ = pool.SynthesizeUnits(p, ids)
					truth, _ = p.Labels(ids)
				} else {
					activity = pool.Synthesize(p)
					truth, _ = p.Labels(nil)
				}

				opts := identifyOptions(cmd, cfg)
				opts.ExpectedUnits = countDistinct(truth)
				res, err := identify.Run(activity, opts, logger, nil)
				if err != nil {
					return fmt.Errorf("trial %d: identification failed: %w", i, err)
				}
				eval, err := identify.Evaluate(res.Labels, truth)
				if err != nil {
					return fmt.Errorf("trial %d: evaluation failed: %w", i, err)
				}

				results = append(results, trial{
					Seed:        params.Seed,
					Fibres:      activity.Fibres(),
					TrueUnits:   opts.ExpectedUnits,
					Communities: res.NumCommunities,
					Threshold:   res.OptimalThreshold,
					Accuracy:    eval.PairwiseAccuracy,
					Ratio:       eval.CommunityRatio,
					SizeEMD:     eval.SizeEMD,
				})
				sum += eval.PairwiseAccuracy
			}

			mean := 0.0
			if len(results) > 0 {
				mean = sum / float64(len(results))
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"trials":        results,
					"mean_accuracy": mean,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Validation over %d trials:\n\n", len(results))
			for i, r := range results {
				fmt.Fprintf(out, "%d. seed %d: %d fibres, %d/%d units at threshold %.3f, accuracy %.3f, emd %.2f\n",
					i+1, r.Seed, r.Fibres, r.Communities, r.TrueUnits, r.Threshold, r.Accuracy, r.SizeEMD)
			}
			fmt.Fprintf(out, "\nMean pairwise accuracy: %.3f\n", mean)
			return nil
		},
	}

	cmd.Flags().Int("trials", 5, "Number of validation trials")
	cmd.Flags().Int("sample", 0, "Sample this many units per trial (0 = whole pool)")
	cmd.Flags().Int64("seed", 0, "Base pool seed (default from config)")
	cmd.Flags().String("correlation", "", "Correlation method (pearson, spearman, kendall)")
	cmd.Flags().String("detector", "", "Community detector (louvain, lpa, components)")
	cmd.Flags().String("optimise", "", "Sweep objective (ncomm, emd, resolution)")
	cmd.Flags().Int("steps", 0, "Sweep steps")
	cmd.Flags().Int("step", 0, "Sweep stride")
	cmd.Flags().Float64("resolution", 0, "Louvain resolution")
	cmd.Flags().Float64("min-confidence", 0, "Drop fibres whose best correlation is below this")

	return cmd
}

func countDistinct(labels []int) int {
	seen := make(map[int]bool)
	for _, l := range labels {
		if l >= 0 {
			seen[l] = true
		}
	}
	return len(seen)
}
