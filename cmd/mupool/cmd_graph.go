package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/syrinxlab/mupool/internal/identify"
	"github.com/syrinxlab/mupool/internal/network"
	"github.com/syrinxlab/mupool/internal/store"
	"github.com/syrinxlab/mupool/internal/trace"
	"github.com/syrinxlab/mupool/internal/visualization"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <run-id>",
		Short: "Render the co-activation network of a saved run",
		Long: `Rebuild the thresholded co-activation network of a saved
identification run and render it.

Formats:
  dot   Graphviz DOT, nodes colored by motor unit (default)
  json  Node and edge lists with community assignments
  html  Self-contained report with unit table and territories

Examples:
  mupool graph 1a2b3c4d5e6f
  mupool graph 1a2b3c4d5e6f --format html --out report.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			format, _ := cmd.Flags().GetString("format")
			activityPath, _ := cmd.Flags().GetString("activity")
			outPath, _ := cmd.Flags().GetString("out")
			runID := args[0]

			s, err := openStore(root)
			if err != nil {
				return err
			}
			defer s.Close()
			ctx := context.Background()

			run, units, err := s.GetRun(ctx, runID)
			if err != nil {
				return err
			}
			if activityPath == "" {
				activityPath = run.ActivityPath
			}
			if activityPath == "" {
				return fmt.Errorf("run %s has no recorded activity path; use --activity", runID)
			}

			activity, err := trace.ReadArrow(activityPath)
			if err != nil {
				return fmt.Errorf("failed to read activity: %w", err)
			}
			if activity.Fibres() != len(run.Labels) {
				return fmt.Errorf("activity has %d fibres but run labels %d", activity.Fibres(), len(run.Labels))
			}

			corr, err := network.CorrelationMatrix(activity, run.Correlation)
			if err != nil {
				return fmt.Errorf("failed to correlate activity: %w", err)
			}
			g, err := network.BuildGraph(corr, run.Threshold)
			if err != nil {
				return fmt.Errorf("failed to build graph: %w", err)
			}
			partition := partitionFromRun(run)

			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				out = f
			}

			switch format {
			case "dot":
				dot, err := visualization.RenderDOT(g, partition)
				if err != nil {
					return fmt.Errorf("failed to render graph: %w", err)
				}
				fmt.Fprint(out, dot)
			case "json":
				doc, err := visualization.RenderJSON(g, partition)
				if err != nil {
					return fmt.Errorf("failed to render graph: %w", err)
				}
				return json.NewEncoder(out).Encode(doc)
			case "html":
				report := &visualization.Report{
					Title:    fmt.Sprintf("Run %s", run.ID),
					Specimen: run.Specimen,
					Result:   resultFromRun(run, partition),
				}
				if run.Specimen != "" && run.Specimen != "adhoc" {
					territories, err := unitTerritories(ctx, s, run.Specimen, units)
					if err != nil {
						return err
					}
					report.Territories = territories
				}
				if err := visualization.RenderHTML(out, report); err != nil {
					return fmt.Errorf("failed to render report: %w", err)
				}
			default:
				return fmt.Errorf("unknown format %q (dot, json, html)", format)
			}

			if outPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outPath)
			}
			return nil
		},
	}

	cmd.Flags().String("format", "dot", "Output format (dot, json, html)")
	cmd.Flags().String("activity", "", "Arrow file override when the run's path has moved")
	cmd.Flags().String("out", "", "Write to this file instead of stdout")

	return cmd
}

// partitionFromRun rebuilds the partition from stored labels. Labels
// are compact community indices; -1 marks unlabeled fibres.
func partitionFromRun(run *store.Run) network.Partition {
	p := network.Partition{
		Labels:      append([]int(nil), run.Labels...),
		Communities: make([][]int, run.Communities),
	}
	for f, l := range run.Labels {
		if l >= 0 && l < run.Communities {
			p.Communities[l] = append(p.Communities[l], f)
		}
	}
	return p
}

func resultFromRun(run *store.Run, p network.Partition) *identify.Result {
	res := &identify.Result{
		Labels:            run.Labels,
		Partition:         p,
		NumCommunities:    run.Communities,
		OptimalThreshold:  run.Threshold,
		OptimalResolution: run.Resolution,
	}
	for f, l := range run.Labels {
		if l < 0 {
			res.Unlabeled = append(res.Unlabeled, f)
		}
	}
	return res
}
