package identify

import "sort"

// Wasserstein returns the first Wasserstein distance (Earth Mover's
// Distance) between two one-dimensional empirical distributions, the
// area between their empirical CDFs. Used to compare a candidate
// community-size distribution against a reference pool.
func Wasserstein(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	as := append([]float64(nil), a...)
	bs := append([]float64(nil), b...)
	sort.Float64s(as)
	sort.Float64s(bs)

	// Merge all sample positions; between consecutive positions both
	// CDFs are constant.
	all := make([]float64, 0, len(as)+len(bs))
	all = append(all, as...)
	all = append(all, bs...)
	sort.Float64s(all)

	var dist float64
	ai, bi := 0, 0
	for k := 0; k < len(all)-1; k++ {
		for ai < len(as) && as[ai] <= all[k] {
			ai++
		}
		for bi < len(bs) && bs[bi] <= all[k] {
			bi++
		}
		cdfA := float64(ai) / float64(len(as))
		cdfB := float64(bi) / float64(len(bs))
		d := cdfA - cdfB
		if d < 0 {
			d = -d
		}
		dist += d * (all[k+1] - all[k])
	}
	return dist
}
