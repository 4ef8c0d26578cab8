package network

import (
	"github.com/syrinxlab/mupool/internal/constants"
)

// ComponentsDetector treats each connected component as one community.
// It is the fastest detector and a useful baseline: on noiseless data
// with a well-chosen threshold, components and motor units coincide.
type ComponentsDetector struct{}

func (d *ComponentsDetector) Name() string { return constants.DetectComponents }

func (d *ComponentsDetector) Detect(g *Graph) (Partition, error) {
	n := g.Nodes()
	if n == 0 {
		return Partition{}, nil
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	next := 0
	for start := 0; start < n; start++ {
		if labels[start] != -1 {
			continue
		}
		stack := []int{start}
		labels[start] = next
		for len(stack) > 0 {
			u := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for v, w := range g.Weights[u] {
				if v == u || w == 0 || labels[v] != -1 {
					continue
				}
				labels[v] = next
				stack = append(stack, v)
			}
		}
		next++
	}

	return partitionFromLabels(labels), nil
}
