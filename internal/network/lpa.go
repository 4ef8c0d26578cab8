package network

import (
	"sort"

	"github.com/syrinxlab/mupool/internal/constants"
)

// LabelPropagationDetector partitions by weighted label propagation.
// Each node repeatedly adopts the label carrying the most edge weight
// among its neighbours; ties keep the current label when it is among the
// winners and otherwise resolve to the smallest label, so runs are
// deterministic without a seed.
type LabelPropagationDetector struct {
	MaxIterations int
}

func NewLabelPropagationDetector() *LabelPropagationDetector {
	return &LabelPropagationDetector{MaxIterations: 20}
}

func (d *LabelPropagationDetector) Name() string { return constants.DetectLPA }

func (d *LabelPropagationDetector) Detect(g *Graph) (Partition, error) {
	n := g.Nodes()
	if n == 0 {
		return Partition{}, nil
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = i
	}

	for iter := 0; iter < d.MaxIterations; iter++ {
		changed := 0
		for u := 0; u < n; u++ {
			weightOf := make(map[int]float64)
			maxWeight := 0.0
			for v, w := range g.Weights[u] {
				if v == u || w == 0 {
					continue
				}
				weightOf[labels[v]] += w
				if weightOf[labels[v]] > maxWeight {
					maxWeight = weightOf[labels[v]]
				}
			}
			if len(weightOf) == 0 {
				continue
			}

			var winners []int
			for l, w := range weightOf {
				if w == maxWeight {
					winners = append(winners, l)
				}
			}
			sort.Ints(winners)

			best := winners[0]
			for _, l := range winners {
				if l == labels[u] {
					best = l
					break
				}
			}
			if labels[u] != best {
				labels[u] = best
				changed++
			}
		}
		if changed == 0 {
			break
		}
	}

	return partitionFromLabels(labels), nil
}
