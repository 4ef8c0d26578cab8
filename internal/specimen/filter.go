package specimen

import (
	"fmt"

	"github.com/syrinxlab/mupool/internal/constants"
	"github.com/syrinxlab/mupool/internal/network"
	"github.com/syrinxlab/mupool/internal/trace"
)

// DeadFibres splits fibres into dead and alive using field-stimulation
// traces, where every living fibre responds. A fibre whose mean
// correlation with the rest of the recording is negative is dead: its
// row and column are cleared and any fibre left fully uncorrelated is
// reported dead. Returns dead and alive fibre indices.
func DeadFibres(m trace.Matrix) (dead, alive []int, err error) {
	corr, err := network.CorrelationMatrix(m, constants.CorrPearson)
	if err != nil {
		return nil, nil, fmt.Errorf("dead fibres: %w", err)
	}

	n := len(corr)
	// Restore self-correlation so the means cover the full matrix.
	for i := range corr {
		corr[i][i] = 1
	}

	for i := 0; i < n; i++ {
		if rowMean(corr, i) < 0 {
			for j := 0; j < n; j++ {
				corr[i][j] = 0
			}
		}
		if colMean(corr, i) < 0 {
			for j := 0; j < n; j++ {
				corr[j][i] = 0
			}
		}
	}

	for i := 0; i < n; i++ {
		zero := true
		for j := 0; j < n; j++ {
			if corr[i][j] != 0 {
				zero = false
				break
			}
		}
		if zero {
			dead = append(dead, i)
		} else {
			alive = append(alive, i)
		}
	}
	return dead, alive, nil
}

func rowMean(m [][]float64, i int) float64 {
	sum := 0.0
	for _, v := range m[i] {
		sum += v
	}
	return sum / float64(len(m[i]))
}

func colMean(m [][]float64, j int) float64 {
	sum := 0.0
	for i := range m {
		sum += m[i][j]
	}
	return sum / float64(len(m))
}

// StimulatedFibres keeps fibres whose trace shows a stimulus response:
// a peak standing sdMult standard deviations above the trace mean.
// Returns the surviving rows and their indices into the input.
func StimulatedFibres(m trace.Matrix, sdMult float64) (trace.Matrix, []int, error) {
	if err := m.Validate(); err != nil {
		return nil, nil, fmt.Errorf("stimulated fibres: %w", err)
	}
	if sdMult <= 0 {
		return nil, nil, fmt.Errorf("stimulated fibres: sd multiplier must be positive, got %v", sdMult)
	}
	kept, idx := trace.FilterResponsive(m, sdMult)
	return kept, idx, nil
}

// ExtractActivity averages a raw recording over each fibre's square
// region of interest and converts it to ΔF/F, producing one activity
// trace per point. frames is indexed [time][y][x]; points must already
// be edge-trimmed so every ROI fits the frame.
func ExtractActivity(frames [][][]float64, points []Point) (trace.Matrix, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("extract activity: no frames")
	}
	height := len(frames[0])
	width := 0
	if height > 0 {
		width = len(frames[0][0])
	}

	w := constants.ROIHalfWidth
	raw := trace.NewMatrix(len(points), len(frames))
	for i, p := range points {
		if p.X-w < 0 || p.X+w > width || p.Y-w < 0 || p.Y+w > height {
			return nil, fmt.Errorf("extract activity: point %d (%d,%d) outside frame", i, p.X, p.Y)
		}
		for t, frame := range frames {
			sum, count := 0.0, 0
			for y := p.Y - w; y < p.Y+w; y++ {
				for x := p.X - w; x < p.X+w; x++ {
					sum += frame[y][x]
					count++
				}
			}
			raw[i][t] = sum / float64(count)
		}
	}

	dff, err := trace.DFFMatrix(raw)
	if err != nil {
		return nil, fmt.Errorf("extract activity: %w", err)
	}
	return dff, nil
}
