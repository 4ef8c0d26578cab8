package network

import (
	"fmt"
	"math"
	"sort"

	"github.com/syrinxlab/mupool/internal/constants"
	"github.com/syrinxlab/mupool/internal/trace"
)

// CorrelationMatrix computes the pairwise correlation of activity rows
// using the named method (pearson, spearman, or kendall). The diagonal
// is zeroed so self-correlation never survives thresholding, and pairs
// involving a zero-variance row correlate at zero rather than NaN.
func CorrelationMatrix(m trace.Matrix, method string) ([][]float64, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("correlation: %w", err)
	}

	var corr func(x, y []float64) float64
	switch method {
	case constants.CorrPearson:
		corr = Pearson
	case constants.CorrSpearman:
		corr = Spearman
	case constants.CorrKendall:
		corr = Kendall
	default:
		return nil, fmt.Errorf("correlation: unknown method %q", method)
	}

	n := m.Fibres()
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			c := corr(m[i], m[j])
			out[i][j] = c
			out[j][i] = c
		}
	}
	return out, nil
}

// Pearson returns the Pearson product-moment correlation of two equal
// length series, or zero when either has no variance.
func Pearson(x, y []float64) float64 {
	n := len(x)
	if n == 0 || n != len(y) {
		return 0
	}
	mx, my := trace.Mean(x), trace.Mean(y)
	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx, dy := x[i]-mx, y[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0
	}
	return sxy / math.Sqrt(sxx*syy)
}

// Spearman returns the rank correlation of two series: Pearson applied
// to average ranks, which handles ties the standard way.
func Spearman(x, y []float64) float64 {
	if len(x) != len(y) || len(x) == 0 {
		return 0
	}
	return Pearson(ranks(x), ranks(y))
}

// ranks assigns 1-based average ranks, sharing rank across ties.
func ranks(xs []float64) []float64 {
	n := len(xs)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })

	out := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && xs[idx[j+1]] == xs[idx[i]] {
			j++
		}
		// Average rank across the tie run [i, j].
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = avg
		}
		i = j + 1
	}
	return out
}

// Kendall returns the tau-b rank correlation, which corrects for ties in
// either series. Quadratic in the series length, which is fine at the
// trace lengths this toolkit works with.
func Kendall(x, y []float64) float64 {
	n := len(x)
	if n != len(y) || n < 2 {
		return 0
	}
	var concordant, discordant, tiesX, tiesY float64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dx := x[i] - x[j]
			dy := y[i] - y[j]
			switch {
			case dx == 0 && dy == 0:
				// Tied in both, contributes to neither denominator term.
			case dx == 0:
				tiesX++
			case dy == 0:
				tiesY++
			case dx*dy > 0:
				concordant++
			default:
				discordant++
			}
		}
	}
	denom := math.Sqrt((concordant + discordant + tiesX) * (concordant + discordant + tiesY))
	if denom == 0 {
		return 0
	}
	return (concordant - discordant) / denom
}
