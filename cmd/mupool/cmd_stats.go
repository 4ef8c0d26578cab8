package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/syrinxlab/mupool/internal/specimen"
)

type unitSummary struct {
	Unit        int     `json:"unit"`
	Size        int     `json:"size"`
	Area        float64 `json:"area,omitempty"`
	AreaMicrons float64 `json:"area_um2,omitempty"`
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show project store statistics",
		Long: `Summarise the project store: specimens with their fibre counts,
identification runs, and for the most recent run the motor-unit size
distribution with territory areas where territories were mapped.

With --pair the command instead reports how many pulses co-activated
one fibre pair. --prune-below deletes low-weight co-activation
observations before summarising.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			specimenFilter, _ := cmd.Flags().GetString("specimen")
			pair, _ := cmd.Flags().GetString("pair")
			pruneBelow, _ := cmd.Flags().GetFloat64("prune-below")

			s, err := openStore(root)
			if err != nil {
				return err
			}
			defer s.Close()
			ctx := context.Background()

			if pair != "" {
				if specimenFilter == "" {
					return fmt.Errorf("--pair requires --specimen")
				}
				a, b, err := parseFibrePair(pair)
				if err != nil {
					return err
				}
				count, err := s.CoActivationCount(ctx, specimenFilter, a, b)
				if err != nil {
					return err
				}
				if jsonOut {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
						"specimen": specimenFilter,
						"fibre_a":  a,
						"fibre_b":  b,
						"pulses":   count,
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Fibres %d and %d co-activated on %d pulses of %s\n",
					a, b, count, specimenFilter)
				return nil
			}

			doPrune := cmd.Flags().Changed("prune-below")
			pruned := 0
			if doPrune {
				pruned, err = s.PruneCoActivations(ctx, pruneBelow)
				if err != nil {
					return err
				}
			}

			specimens, err := s.ListSpecimens(ctx)
			if err != nil {
				return err
			}
			runs, err := s.ListRuns(ctx, specimenFilter)
			if err != nil {
				return err
			}

			type specimenStats struct {
				Name          string  `json:"name"`
				Fibres        int     `json:"fibres"`
				Runs          int     `json:"runs"`
				CoActivations int     `json:"coactivations"`
				SNRMult       float64 `json:"snr_mult"`
			}
			stats := make([]specimenStats, 0, len(specimens))
			for _, sp := range specimens {
				if specimenFilter != "" && sp.Name != specimenFilter {
					continue
				}
				fibres, err := s.GetFibres(ctx, sp.Name)
				if err != nil {
					return err
				}
				obs, err := s.CoActivations(ctx, sp.Name)
				if err != nil {
					return err
				}
				runCount := 0
				for _, r := range runs {
					if r.Specimen == sp.Name {
						runCount++
					}
				}
				stats = append(stats, specimenStats{
					Name:          sp.Name,
					Fibres:        len(fibres),
					Runs:          runCount,
					CoActivations: len(obs),
					SNRMult:       sp.SNRMult,
				})
			}

			// Unit sizes and territories of the most recent run.
			var latestUnits []unitSummary
			var latestRunID string
			if len(runs) > 0 {
				latestRunID = runs[0].ID
				_, units, err := s.GetRun(ctx, latestRunID)
				if err != nil {
					return err
				}
				for _, u := range units {
					latestUnits = append(latestUnits, unitSummary{
						Unit:        u.Unit,
						Size:        u.Size,
						Area:        u.Area,
						AreaMicrons: u.Area * specimen.MicronsPerPixel * specimen.MicronsPerPixel,
					})
				}
			}

			if jsonOut {
				payload := map[string]any{
					"specimens":  stats,
					"runs":       len(runs),
					"latest_run": latestRunID,
					"units":      latestUnits,
				}
				if doPrune {
					payload["pruned"] = pruned
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(payload)
			}

			out := cmd.OutOrStdout()
			if doPrune {
				fmt.Fprintf(out, "Pruned %d co-activation observations below weight %g\n\n", pruned, pruneBelow)
			}
			if len(stats) == 0 && len(runs) == 0 {
				fmt.Fprintln(out, "Store is empty. Import a specimen or run a simulation first.")
				return nil
			}

			if len(stats) > 0 {
				fmt.Fprintf(out, "Specimens (%d):\n", len(stats))
				for _, st := range stats {
					fmt.Fprintf(out, "  %-12s %4d fibres, %3d runs, %d co-activations (snr %.1f)\n",
						st.Name, st.Fibres, st.Runs, st.CoActivations, st.SNRMult)
				}
				fmt.Fprintln(out)
			}

			fmt.Fprintf(out, "Runs (%d):\n", len(runs))
			for _, r := range runs {
				fmt.Fprintf(out, "  %s  %s  %s/%s  %d units  %s\n",
					r.ID, r.Specimen, r.Correlation, r.Detector, r.Communities,
					r.CreatedAt.Format(time.RFC3339))
			}

			if len(latestUnits) > 0 {
				fmt.Fprintf(out, "\nLatest run %s:\n", latestRunID)
				for _, u := range latestUnits {
					fmt.Fprintf(out, "  unit %2d: %3d fibres", u.Unit, u.Size)
					if u.Area > 0 {
						fmt.Fprintf(out, ", territory %.0f px (%.0f um2)", u.Area, u.AreaMicrons)
					}
					fmt.Fprintln(out)
				}
			}
			return nil
		},
	}

	cmd.Flags().String("specimen", "", "Restrict to one specimen")
	cmd.Flags().String("pair", "", "Report co-activated pulses for a fibre pair, e.g. 12,40 (requires --specimen)")
	cmd.Flags().Float64("prune-below", 0, "Delete co-activation observations below this weight before reporting")

	return cmd
}

func parseFibrePair(s string) (int, int, error) {
	left, right, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("fibre pair must be two indices separated by a comma, got %q", s)
	}
	a, err := strconv.Atoi(strings.TrimSpace(left))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid fibre index %q", left)
	}
	b, err := strconv.Atoi(strings.TrimSpace(right))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid fibre index %q", right)
	}
	if a == b {
		return 0, 0, fmt.Errorf("fibre %d paired with itself", a)
	}
	return a, b, nil
}
