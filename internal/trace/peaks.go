package trace

// FindPeaks returns the indices of local maxima in the series that rise
// above threshold. A sample is a peak when it exceeds both neighbours;
// flat plateaus report the first sample of the plateau. Endpoints are
// never peaks.
func FindPeaks(xs []float64, threshold float64) []int {
	var peaks []int
	for i := 1; i < len(xs)-1; i++ {
		if xs[i] <= threshold {
			continue
		}
		if xs[i] > xs[i-1] && xs[i] >= xs[i+1] {
			// Skip the rest of a plateau so it counts once.
			if len(peaks) > 0 && peaks[len(peaks)-1] == i-1 && xs[i] == xs[i-1] {
				continue
			}
			peaks = append(peaks, i)
		}
	}
	return peaks
}

// Onsets returns the indices where the series first crosses threshold
// from below. Each recruitment event contributes one onset.
func Onsets(xs []float64, threshold float64) []int {
	var onsets []int
	above := false
	for i, v := range xs {
		if v > threshold {
			if !above {
				onsets = append(onsets, i)
			}
			above = true
		} else {
			above = false
		}
	}
	return onsets
}

// Responsive reports whether a fibre trace carries stimulus-locked
// signal: it must have at least one peak standing sdMult standard
// deviations above the trace mean. Fibres failing this filter
// contribute only noise to the co-activation graph and are excluded
// before correlation.
func Responsive(xs []float64, sdMult float64) bool {
	if len(xs) == 0 {
		return false
	}
	sd := Std(xs)
	if sd == 0 {
		return false
	}
	return len(FindPeaks(xs, Mean(xs)+sdMult*sd)) > 0
}

// FilterResponsive returns the rows of m that pass Responsive along with
// their original row indices, preserving order.
func FilterResponsive(m Matrix, sdMult float64) (Matrix, []int) {
	var kept Matrix
	var idx []int
	for i, row := range m {
		if Responsive(row, sdMult) {
			kept = append(kept, row)
			idx = append(idx, i)
		}
	}
	return kept, idx
}
