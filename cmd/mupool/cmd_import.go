package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syrinxlab/mupool/internal/constants"
	"github.com/syrinxlab/mupool/internal/specimen"
	"github.com/syrinxlab/mupool/internal/store"
	"github.com/syrinxlab/mupool/internal/trace"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a specimen's fibre mask into the project store",
		Long: `Import segmented fibre positions from mask CSV files.

When both halves of a split field of view are given, the right half is
stitched onto the left using the overlap offsets and fibres that land
outside the frame are trimmed. A catalog YAML with known units and
per-specimen settings can be attached.

Examples:
  mupool import --name gw65 --mask left.csv
  mupool import --name gw65 --mask left.csv --mask-right right.csv \
      --overlap-left 195 --overlap-right 22 --shift -16 --frame-width 373
  mupool import --name gw65 --mask left.csv --catalog gw65.yaml
  mupool import --name gw65 --mask left.csv --activity field.arrow`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			name, _ := cmd.Flags().GetString("name")
			maskPath, _ := cmd.Flags().GetString("mask")
			maskRight, _ := cmd.Flags().GetString("mask-right")
			overlapLeft, _ := cmd.Flags().GetInt("overlap-left")
			overlapRight, _ := cmd.Flags().GetInt("overlap-right")
			shift, _ := cmd.Flags().GetInt("shift")
			frameWidth, _ := cmd.Flags().GetInt("frame-width")
			catalogPath, _ := cmd.Flags().GetString("catalog")
			activityPath, _ := cmd.Flags().GetString("activity")
			snr, _ := cmd.Flags().GetFloat64("snr")

			points, err := specimen.LoadMask(maskPath)
			if err != nil {
				return fmt.Errorf("failed to load mask: %w", err)
			}

			trimmed := 0
			if maskRight != "" {
				right, err := specimen.LoadMask(maskRight)
				if err != nil {
					return fmt.Errorf("failed to load right mask: %w", err)
				}
				stitched := specimen.Stitch(points, right, specimen.StitchOffsets{
					OverlapLeft:   overlapLeft,
					OverlapRight:  overlapRight,
					VerticalShift: shift,
					FrameWidth:    frameWidth,
				})
				kept, _ := specimen.TrimEdges(stitched, frameWidth)
				trimmed = len(stitched) - len(kept)
				points = kept
			}

			if catalogPath != "" {
				cat, err := specimen.LoadCatalog(catalogPath)
				if err != nil {
					return fmt.Errorf("failed to load catalog: %w", err)
				}
				if cat.Specimen != name {
					return fmt.Errorf("catalog describes specimen %q, importing %q", cat.Specimen, name)
				}
				snr = cat.SNRMult
			}
			if snr <= 0 {
				snr = constants.DefaultSNRMult
			}

			// Field-stimulation activity marks dead fibres: anything
			// anticorrelated with the rest of the field is not alive.
			var dead []int
			if activityPath != "" {
				activity, err := trace.ReadArrow(activityPath)
				if err != nil {
					return fmt.Errorf("failed to read activity: %w", err)
				}
				if activity.Fibres() != len(points) {
					return fmt.Errorf("activity has %d fibres but mask %d", activity.Fibres(), len(points))
				}
				dead, _, err = specimen.DeadFibres(activity)
				if err != nil {
					return fmt.Errorf("failed to detect dead fibres: %w", err)
				}
			}

			s, err := openStore(root)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := context.Background()
			if err := s.SaveSpecimen(ctx, store.Specimen{
				Name:       name,
				SNRMult:    snr,
				FrameWidth: frameWidth,
			}); err != nil {
				return fmt.Errorf("failed to save specimen: %w", err)
			}

			deadSet := make(map[int]bool, len(dead))
			for _, d := range dead {
				deadSet[d] = true
			}
			fibres := make([]store.Fibre, len(points))
			for i, pt := range points {
				fibres[i] = store.Fibre{
					Specimen: name,
					Index:    i,
					X:        pt.X,
					Y:        pt.Y,
					Alive:    !deadSet[i],
				}
			}
			if err := s.SaveFibres(ctx, name, fibres); err != nil {
				return fmt.Errorf("failed to save fibres: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"specimen": name,
					"fibres":   len(fibres),
					"dead":     len(dead),
					"trimmed":  trimmed,
					"snr_mult": snr,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d fibres for specimen %s", len(fibres), name)
			if trimmed > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), " (%d trimmed at frame edges)", trimmed)
			}
			if len(dead) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), " (%d dead)", len(dead))
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().String("name", "", "Specimen name (required)")
	cmd.Flags().String("mask", "", "Mask CSV with fibre x,y positions (required)")
	cmd.Flags().String("mask-right", "", "Right-half mask CSV for split fields of view")
	cmd.Flags().Int("overlap-left", 0, "Overlap start column in the left frame")
	cmd.Flags().Int("overlap-right", 0, "Overlap start column in the right frame")
	cmd.Flags().Int("shift", 0, "Vertical shift applied to right-half fibres")
	cmd.Flags().Int("frame-width", 0, "Frame width in pixels, for stitching and edge trimming")
	cmd.Flags().String("catalog", "", "Catalog YAML with known units and specimen settings")
	cmd.Flags().String("activity", "", "Field-stimulation activity Arrow file for dead-fibre detection")
	cmd.Flags().Float64("snr", 0, "Peak SNR multiplier for the stimulated-fibre filter")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("mask")

	return cmd
}
