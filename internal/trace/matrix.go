// Package trace provides activity-trace matrices and the signal
// processing applied to them: ΔF/F conversion, row normalisation, peak
// detection, and the stimulated-fibre filter.
package trace

import (
	"fmt"
	"math"
)

// Matrix is a fibre × sample activity matrix. Row i holds the response
// magnitude of fibre i over the stimulation paradigm.
type Matrix [][]float64

// NewMatrix allocates a zeroed matrix with the given dimensions.
func NewMatrix(fibres, samples int) Matrix {
	m := make(Matrix, fibres)
	for i := range m {
		m[i] = make([]float64, samples)
	}
	return m
}

// Fibres returns the number of rows.
func (m Matrix) Fibres() int { return len(m) }

// Samples returns the number of columns, zero for an empty matrix.
func (m Matrix) Samples() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Validate checks that every row has the same length and that the matrix
// contains no NaN or Inf values. Dimension mismatches are fatal
// precondition failures for every analysis in this package.
func (m Matrix) Validate() error {
	if len(m) == 0 {
		return fmt.Errorf("activity matrix is empty")
	}
	want := len(m[0])
	for i, row := range m {
		if len(row) != want {
			return fmt.Errorf("fibre %d has %d samples, want %d", i, len(row), want)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("fibre %d sample %d is not finite", i, j)
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// NormalizeRows min–max normalises each row in place so plots and
// thresholded comparisons share a [0, 1] scale. Rows with zero range are
// left at zero rather than dividing by zero.
func (m Matrix) NormalizeRows() {
	for i, row := range m {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range row {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		span := hi - lo
		if span == 0 {
			for j := range row {
				m[i][j] = 0
			}
			continue
		}
		for j, v := range row {
			m[i][j] = (v - lo) / span
		}
	}
}

// Mean returns the arithmetic mean of a series.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range xs {
		sum += v
	}
	return sum / float64(len(xs))
}

// Std returns the population standard deviation of a series.
func Std(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := Mean(xs)
	ss := 0.0
	for _, v := range xs {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// DFF converts a raw fluorescence series to ΔF/F using the temporal mean
// as the baseline F0: dff_t = (F_t − F0)/F0. A zero baseline is an error;
// it indicates a dead region of the recording, not a fixable condition.
func DFF(raw []float64) ([]float64, error) {
	f0 := Mean(raw)
	if f0 == 0 {
		return nil, fmt.Errorf("zero baseline fluorescence")
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = (v - f0) / f0
	}
	return out, nil
}

// DFFMatrix applies DFF to every row of a raw recording.
func DFFMatrix(raw Matrix) (Matrix, error) {
	if err := raw.Validate(); err != nil {
		return nil, fmt.Errorf("dff: %w", err)
	}
	out := make(Matrix, len(raw))
	for i, row := range raw {
		d, err := DFF(row)
		if err != nil {
			return nil, fmt.Errorf("dff: fibre %d: %w", i, err)
		}
		out[i] = d
	}
	return out, nil
}
