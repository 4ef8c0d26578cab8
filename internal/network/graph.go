// Package network builds co-activation graphs from fibre activity and
// partitions them into putative motor units with community detection.
package network

import (
	"fmt"
	"sort"
)

// Graph is an undirected weighted graph over fibre indices, stored
// densely. Weights is symmetric; the diagonal holds self-loop weight,
// which is zero for graphs built from correlation matrices and only
// appears in aggregated graphs during Louvain passes.
type Graph struct {
	Weights [][]float64
}

// NewGraph allocates an empty graph with n nodes.
func NewGraph(n int) *Graph {
	w := make([][]float64, n)
	for i := range w {
		w[i] = make([]float64, n)
	}
	return &Graph{Weights: w}
}

// Nodes returns the node count.
func (g *Graph) Nodes() int { return len(g.Weights) }

// Degree returns the weighted degree of node i. Self-loops count twice,
// as modularity requires.
func (g *Graph) Degree(i int) float64 {
	d := g.Weights[i][i]
	for j, w := range g.Weights[i] {
		if j != i {
			d += w
		}
	}
	return d + g.Weights[i][i]
}

// TotalWeight returns the sum of edge weights, each edge counted once.
func (g *Graph) TotalWeight() float64 {
	total := 0.0
	for i := range g.Weights {
		total += g.Weights[i][i]
		for j := i + 1; j < len(g.Weights); j++ {
			total += g.Weights[i][j]
		}
	}
	return total
}

// Edges returns all off-diagonal edges with positive weight, each once,
// ordered by (source, target).
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for i := range g.Weights {
		for j := i + 1; j < len(g.Weights); j++ {
			if g.Weights[i][j] > 0 {
				edges = append(edges, Edge{Source: i, Target: j, Weight: g.Weights[i][j]})
			}
		}
	}
	return edges
}

// Edge is one weighted undirected edge.
type Edge struct {
	Source int     `json:"source"`
	Target int     `json:"target"`
	Weight float64 `json:"weight"`
}

// BuildGraph thresholds a correlation matrix into a co-activation graph:
// entries below threshold are dropped, surviving correlations become
// edge weights, and the diagonal is cleared.
func BuildGraph(corr [][]float64, threshold float64) (*Graph, error) {
	n := len(corr)
	if n == 0 {
		return nil, fmt.Errorf("build graph: empty correlation matrix")
	}
	for i, row := range corr {
		if len(row) != n {
			return nil, fmt.Errorf("build graph: row %d has %d entries, want %d", i, len(row), n)
		}
	}

	g := NewGraph(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if corr[i][j] >= threshold {
				g.Weights[i][j] = corr[i][j]
			}
		}
	}
	// Thresholding is applied per entry, so enforce symmetry off the
	// lower triangle in case the input matrix was not exactly symmetric.
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if g.Weights[i][j] != g.Weights[j][i] {
				w := (g.Weights[i][j] + g.Weights[j][i]) / 2
				g.Weights[i][j], g.Weights[j][i] = w, w
			}
		}
	}
	return g, nil
}

// Partition assigns every node to exactly one community. Labels holds a
// compact community index per node; Communities lists member nodes per
// community in ascending order.
type Partition struct {
	Labels      []int   `json:"labels"`
	Communities [][]int `json:"communities"`
}

// Size returns the number of communities.
func (p Partition) Size() int { return len(p.Communities) }

// CommunitySizes returns the member count of each community.
func (p Partition) CommunitySizes() []int {
	sizes := make([]int, len(p.Communities))
	for i, c := range p.Communities {
		sizes[i] = len(c)
	}
	return sizes
}

// partitionFromLabels compacts arbitrary label values into community
// indices ordered by first appearance, so equal clusterings always
// produce identical partitions.
func partitionFromLabels(labels []int) Partition {
	compact := make(map[int]int)
	out := make([]int, len(labels))
	var communities [][]int
	for i, l := range labels {
		c, ok := compact[l]
		if !ok {
			c = len(communities)
			compact[l] = c
			communities = append(communities, nil)
		}
		out[i] = c
		communities[c] = append(communities[c], i)
	}
	for _, c := range communities {
		sort.Ints(c)
	}
	return Partition{Labels: out, Communities: communities}
}
