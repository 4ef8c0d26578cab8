package network

import (
	"math"
	"testing"

	"github.com/syrinxlab/mupool/internal/constants"
	"github.com/syrinxlab/mupool/internal/trace"
)

// twoBlockMatrix returns traces for two cleanly separated groups of
// fibres: rows 0-2 share one waveform, rows 3-5 an uncorrelated other.
func twoBlockMatrix() trace.Matrix {
	a := []float64{0, 1, 0, 1, 0, 1, 0, 1}
	b := []float64{1, 1, 0, 0, 1, 1, 0, 0}
	return trace.Matrix{
		append([]float64(nil), a...),
		append([]float64(nil), a...),
		append([]float64(nil), a...),
		append([]float64(nil), b...),
		append([]float64(nil), b...),
		append([]float64(nil), b...),
	}
}

func TestPearson(t *testing.T) {
	tests := []struct {
		name string
		x, y []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"inverse", []float64{1, 2, 3}, []float64{3, 2, 1}, -1},
		{"scaled", []float64{1, 2, 3}, []float64{10, 20, 30}, 1},
		{"zero variance", []float64{5, 5, 5}, []float64{1, 2, 3}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Pearson(tt.x, tt.y)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Pearson() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSpearman(t *testing.T) {
	// Monotone but nonlinear relation: rank correlation is exactly 1.
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{1, 4, 9, 16, 25}
	if got := Spearman(x, y); math.Abs(got-1) > 1e-12 {
		t.Errorf("Spearman(monotone) = %v, want 1", got)
	}

	// Ties get average ranks and still correlate sensibly.
	if got := Spearman([]float64{1, 1, 2}, []float64{1, 1, 2}); math.Abs(got-1) > 1e-12 {
		t.Errorf("Spearman(tied identical) = %v, want 1", got)
	}
}

func TestKendall(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	if got := Kendall(x, x); math.Abs(got-1) > 1e-12 {
		t.Errorf("Kendall(identical) = %v, want 1", got)
	}
	rev := []float64{4, 3, 2, 1}
	if got := Kendall(x, rev); math.Abs(got+1) > 1e-12 {
		t.Errorf("Kendall(reversed) = %v, want -1", got)
	}
	if got := Kendall([]float64{1, 1, 1}, x[:3]); got != 0 {
		t.Errorf("Kendall(constant) = %v, want 0", got)
	}
}

func TestCorrelationMatrix(t *testing.T) {
	m := twoBlockMatrix()
	for _, method := range []string{constants.CorrPearson, constants.CorrSpearman, constants.CorrKendall} {
		t.Run(method, func(t *testing.T) {
			corr, err := CorrelationMatrix(m, method)
			if err != nil {
				t.Fatalf("CorrelationMatrix() error = %v", err)
			}
			for i := range corr {
				if corr[i][i] != 0 {
					t.Errorf("diagonal [%d][%d] = %v, want 0", i, i, corr[i][i])
				}
				for j := range corr[i] {
					if corr[i][j] != corr[j][i] {
						t.Errorf("matrix not symmetric at [%d][%d]", i, j)
					}
				}
			}
			// Within-group correlation must be perfect.
			if math.Abs(corr[0][1]-1) > 1e-9 {
				t.Errorf("within-group corr = %v, want 1", corr[0][1])
			}
		})
	}

	if _, err := CorrelationMatrix(m, "cosine"); err == nil {
		t.Error("expected error for unknown method")
	}
	if _, err := CorrelationMatrix(trace.Matrix{}, constants.CorrPearson); err == nil {
		t.Error("expected error for empty matrix")
	}
}

func TestBuildGraph(t *testing.T) {
	corr := [][]float64{
		{0, 0.9, 0.2},
		{0.9, 0, 0.1},
		{0.2, 0.1, 0},
	}
	g, err := BuildGraph(corr, 0.5)
	if err != nil {
		t.Fatalf("BuildGraph() error = %v", err)
	}
	if g.Nodes() != 3 {
		t.Fatalf("Nodes() = %d, want 3", g.Nodes())
	}
	if g.Weights[0][1] != 0.9 || g.Weights[1][0] != 0.9 {
		t.Errorf("surviving edge weight = %v, want 0.9", g.Weights[0][1])
	}
	if g.Weights[0][2] != 0 || g.Weights[1][2] != 0 {
		t.Error("sub-threshold edges should be dropped")
	}

	edges := g.Edges()
	if len(edges) != 1 || edges[0] != (Edge{Source: 0, Target: 1, Weight: 0.9}) {
		t.Errorf("Edges() = %v, want single 0-1 edge", edges)
	}

	if _, err := BuildGraph(nil, 0.5); err == nil {
		t.Error("expected error for empty matrix")
	}
	if _, err := BuildGraph([][]float64{{0, 1}}, 0.5); err == nil {
		t.Error("expected error for ragged matrix")
	}
}

// detectTwoBlocks runs a detector against the canonical two-group
// fixture and checks it recovers both groups.
func detectTwoBlocks(t *testing.T, d Detector) {
	t.Helper()
	corr, err := CorrelationMatrix(twoBlockMatrix(), constants.CorrPearson)
	if err != nil {
		t.Fatalf("CorrelationMatrix() error = %v", err)
	}
	g, err := BuildGraph(corr, 0.5)
	if err != nil {
		t.Fatalf("BuildGraph() error = %v", err)
	}
	p, err := d.Detect(g)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}

	if len(p.Labels) != 6 {
		t.Fatalf("partition covers %d nodes, want 6", len(p.Labels))
	}
	if p.Size() != 2 {
		t.Fatalf("found %d communities, want 2", p.Size())
	}
	if p.Labels[0] != p.Labels[1] || p.Labels[1] != p.Labels[2] {
		t.Error("first group split across communities")
	}
	if p.Labels[3] != p.Labels[4] || p.Labels[4] != p.Labels[5] {
		t.Error("second group split across communities")
	}
	if p.Labels[0] == p.Labels[3] {
		t.Error("groups merged into one community")
	}
}

func TestLouvainTwoBlocks(t *testing.T) {
	detectTwoBlocks(t, &LouvainDetector{Resolution: 1, Seed: 2})
}

func TestLPATwoBlocks(t *testing.T) {
	detectTwoBlocks(t, NewLabelPropagationDetector())
}

func TestComponentsTwoBlocks(t *testing.T) {
	detectTwoBlocks(t, &ComponentsDetector{})
}

func TestDetectorsDeterministic(t *testing.T) {
	corr, _ := CorrelationMatrix(twoBlockMatrix(), constants.CorrPearson)
	g, _ := BuildGraph(corr, 0.3)

	for _, name := range []string{constants.DetectLouvain, constants.DetectLPA, constants.DetectComponents} {
		t.Run(name, func(t *testing.T) {
			d, err := NewDetector(name, DetectorOptions{Resolution: 1, Seed: 2})
			if err != nil {
				t.Fatalf("NewDetector() error = %v", err)
			}
			a, err := d.Detect(g)
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			b, _ := d.Detect(g)
			for i := range a.Labels {
				if a.Labels[i] != b.Labels[i] {
					t.Fatalf("label %d differs between identical runs", i)
				}
			}
		})
	}
}

func TestDetectorPartitionComplete(t *testing.T) {
	// Graph with an isolated node: every detector must still assign it.
	corr := [][]float64{
		{0, 0.9, 0},
		{0.9, 0, 0},
		{0, 0, 0},
	}
	g, _ := BuildGraph(corr, 0.5)

	for _, name := range []string{constants.DetectLouvain, constants.DetectLPA, constants.DetectComponents} {
		t.Run(name, func(t *testing.T) {
			d, _ := NewDetector(name, DetectorOptions{Resolution: 1, Seed: 2})
			p, err := d.Detect(g)
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if len(p.Labels) != 3 {
				t.Fatalf("partition covers %d nodes, want 3", len(p.Labels))
			}
			total := 0
			for _, c := range p.Communities {
				total += len(c)
			}
			if total != 3 {
				t.Errorf("communities cover %d nodes, want 3", total)
			}
		})
	}
}

func TestDetectorsEmptyGraph(t *testing.T) {
	g := NewGraph(0)

	for _, name := range []string{constants.DetectLouvain, constants.DetectLPA, constants.DetectComponents} {
		t.Run(name, func(t *testing.T) {
			d, _ := NewDetector(name, DetectorOptions{Resolution: 1, Seed: 2})
			p, err := d.Detect(g)
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if p.Size() != 0 || len(p.Labels) != 0 {
				t.Errorf("empty graph yields %d communities over %d labels, want none",
					p.Size(), len(p.Labels))
			}
		})
	}
}

func TestLouvainEdgelessGraph(t *testing.T) {
	g := NewGraph(4)
	p, err := (&LouvainDetector{Resolution: 1, Seed: 2}).Detect(g)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if p.Size() != 4 {
		t.Errorf("edgeless graph yields %d communities, want 4 singletons", p.Size())
	}
}

func TestLouvainResolutionEffect(t *testing.T) {
	// A dense clique: at moderate resolution it is one community; with a
	// much higher resolution the partition must not get coarser.
	n := 8
	g := NewGraph(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			g.Weights[i][j] = 1
			g.Weights[j][i] = 1
		}
	}
	low, _ := (&LouvainDetector{Resolution: 1, Seed: 2}).Detect(g)
	high, _ := (&LouvainDetector{Resolution: 20, Seed: 2}).Detect(g)

	if low.Size() != 1 {
		t.Errorf("clique at resolution 1 gives %d communities, want 1", low.Size())
	}
	if high.Size() < low.Size() {
		t.Errorf("higher resolution coarsened the partition: %d < %d", high.Size(), low.Size())
	}
}

func TestNewDetectorUnknown(t *testing.T) {
	if _, err := NewDetector("metis", DetectorOptions{}); err == nil {
		t.Error("expected error for unknown detector")
	}
}
