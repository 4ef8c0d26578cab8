package network

import (
	"math/rand"
	"sort"

	"github.com/syrinxlab/mupool/internal/constants"
)

// LouvainDetector implements seeded Louvain modularity optimisation.
// The seed fixes the node visiting order of each local-moving phase, so
// a given (graph, resolution, seed) triple always yields the same
// partition. Resolution above 1 favours more, smaller communities;
// below 1 fewer, larger ones.
type LouvainDetector struct {
	Resolution float64
	Seed       int64
	MaxPasses  int
}

const defaultMaxPasses = 50

func (d *LouvainDetector) Name() string { return constants.DetectLouvain }

func (d *LouvainDetector) Detect(g *Graph) (Partition, error) {
	n := g.Nodes()
	if n == 0 {
		return Partition{}, nil
	}
	resolution := d.Resolution
	if resolution <= 0 {
		resolution = 1
	}
	maxPasses := d.MaxPasses
	if maxPasses <= 0 {
		maxPasses = defaultMaxPasses
	}
	rng := rand.New(rand.NewSource(d.Seed))

	// nodeOf maps each original node to its node in the current
	// aggregated graph.
	nodeOf := make([]int, n)
	for i := range nodeOf {
		nodeOf[i] = i
	}

	current := g
	for pass := 0; pass < maxPasses; pass++ {
		labels, improved := localMove(current, resolution, rng)
		if !improved {
			break
		}
		compact := compactLabels(labels)
		for i := range nodeOf {
			nodeOf[i] = compact[nodeOf[i]]
		}
		next := aggregate(current, compact)
		if next.Nodes() == current.Nodes() {
			break
		}
		current = next
	}

	return partitionFromLabels(nodeOf), nil
}

// localMove greedily reassigns nodes to the neighbouring community with
// the highest modularity gain until no move improves. Candidate
// communities are scanned in sorted order so ties always resolve the
// same way.
func localMove(g *Graph, resolution float64, rng *rand.Rand) ([]int, bool) {
	n := g.Nodes()
	labels := make([]int, n)
	degree := make([]float64, n)
	commDegree := make([]float64, n)
	for i := 0; i < n; i++ {
		labels[i] = i
		degree[i] = g.Degree(i)
		commDegree[i] = degree[i]
	}

	m2 := 2 * g.TotalWeight()
	if m2 == 0 {
		return labels, false
	}

	order := rng.Perm(n)
	improved := false
	for {
		moved := 0
		for _, u := range order {
			cu := labels[u]

			// Weight from u into each neighbouring community.
			wTo := make(map[int]float64)
			for v, w := range g.Weights[u] {
				if v == u || w == 0 {
					continue
				}
				wTo[labels[v]] += w
			}

			commDegree[cu] -= degree[u]

			best := cu
			bestGain := wTo[cu] - resolution*commDegree[cu]*degree[u]/m2

			cands := make([]int, 0, len(wTo))
			for c := range wTo {
				cands = append(cands, c)
			}
			sort.Ints(cands)
			for _, c := range cands {
				if c == cu {
					continue
				}
				gain := wTo[c] - resolution*commDegree[c]*degree[u]/m2
				if gain > bestGain+1e-12 {
					best, bestGain = c, gain
				}
			}

			commDegree[best] += degree[u]
			if best != cu {
				labels[u] = best
				moved++
				improved = true
			}
		}
		if moved == 0 {
			break
		}
	}
	return labels, improved
}

// compactLabels renumbers labels to 0..k-1 in order of first appearance.
func compactLabels(labels []int) []int {
	seen := make(map[int]int)
	out := make([]int, len(labels))
	for i, l := range labels {
		c, ok := seen[l]
		if !ok {
			c = len(seen)
			seen[l] = c
		}
		out[i] = c
	}
	return out
}

// aggregate collapses each community into a single node. Intra-community
// weight becomes a self-loop on the new node.
func aggregate(g *Graph, labels []int) *Graph {
	k := 0
	for _, l := range labels {
		if l+1 > k {
			k = l + 1
		}
	}
	next := NewGraph(k)
	for i := range g.Weights {
		ci := labels[i]
		next.Weights[ci][ci] += g.Weights[i][i]
		for j := i + 1; j < len(g.Weights); j++ {
			w := g.Weights[i][j]
			if w == 0 {
				continue
			}
			cj := labels[j]
			if ci == cj {
				next.Weights[ci][ci] += w
			} else {
				next.Weights[ci][cj] += w
				next.Weights[cj][ci] += w
			}
		}
	}
	return next
}
