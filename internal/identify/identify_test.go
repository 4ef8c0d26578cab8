package identify

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/syrinxlab/mupool/internal/constants"
	"github.com/syrinxlab/mupool/internal/trace"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// threeUnitMatrix builds activity for three motor units of sizes 2, 3
// and 4 whose fibres share a waveform within a unit and are mutually
// uncorrelated across units.
func threeUnitMatrix() (trace.Matrix, []int) {
	waves := [][]float64{
		{0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1},
		{1, 1, 0, 0, 1, 1, 0, 0, 1, 1, 0, 0},
		{1, 1, 1, 0, 0, 0, 1, 1, 1, 0, 0, 0},
	}
	sizes := []int{2, 3, 4}

	var m trace.Matrix
	var truth []int
	for u, size := range sizes {
		for f := 0; f < size; f++ {
			m = append(m, append([]float64(nil), waves[u]...))
			truth = append(truth, u)
		}
	}
	return m, truth
}

func TestRunNComm(t *testing.T) {
	m, truth := threeUnitMatrix()

	res, err := Run(m, Options{
		Optimise:      constants.OptimiseNComm,
		ExpectedUnits: 3,
		Steps:         100,
		Step:          10,
		Seed:          2,
	}, quietLogger(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.NumCommunities != 3 {
		t.Errorf("NumCommunities = %d, want 3", res.NumCommunities)
	}
	if len(res.Labels) != len(truth) {
		t.Fatalf("Labels length = %d, want %d", len(res.Labels), len(truth))
	}
	if len(res.Sweep) == 0 {
		t.Error("sweep diagnostics missing")
	}

	eval, err := Evaluate(res.Labels, truth)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if eval.PairwiseAccuracy < 0.99 {
		t.Errorf("pairwise accuracy = %v on noiseless data, want ~1", eval.PairwiseAccuracy)
	}
}

func TestRunEMD(t *testing.T) {
	m, _ := threeUnitMatrix()

	res, err := Run(m, Options{
		Optimise:       constants.OptimiseEMD,
		ReferenceSizes: []int{2, 3, 4},
		Steps:          100,
		Step:           10,
		Seed:           2,
	}, quietLogger(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.NumCommunities != 3 {
		t.Errorf("NumCommunities = %d, want 3", res.NumCommunities)
	}
	// The optimum must reach zero size distance on exact data.
	best := math.Inf(1)
	for _, p := range res.Sweep {
		if p.EMD < best {
			best = p.EMD
		}
	}
	if best > 1e-9 {
		t.Errorf("best sweep EMD = %v, want 0", best)
	}
}

func TestRunResolutionSweep(t *testing.T) {
	m, _ := threeUnitMatrix()

	res, err := Run(m, Options{
		Optimise:      constants.OptimiseResolution,
		ExpectedUnits: 3,
		Steps:         100,
		Step:          10,
		Threshold:     0.5,
		Seed:          2,
	}, quietLogger(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.NumCommunities != 3 {
		t.Errorf("NumCommunities = %d, want 3", res.NumCommunities)
	}
	if res.OptimalResolution <= 0 {
		t.Errorf("OptimalResolution = %v, want > 0", res.OptimalResolution)
	}
}

func TestRunDeterministic(t *testing.T) {
	m, _ := threeUnitMatrix()
	opts := Options{
		Optimise:      constants.OptimiseNComm,
		ExpectedUnits: 3,
		Steps:         100,
		Step:          10,
		Seed:          2,
	}

	a, err := Run(m, opts, quietLogger(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	b, _ := Run(m, opts, quietLogger(), nil)

	if a.OptimalThreshold != b.OptimalThreshold {
		t.Errorf("thresholds differ: %v vs %v", a.OptimalThreshold, b.OptimalThreshold)
	}
	for i := range a.Labels {
		if a.Labels[i] != b.Labels[i] {
			t.Fatalf("label %d differs between identical runs", i)
		}
	}
}

func TestRunMinConfidence(t *testing.T) {
	m, _ := threeUnitMatrix()
	// A constant row correlates with nothing and must be dropped, not
	// forced into a community.
	m = append(m, make([]float64, len(m[0])))

	res, err := Run(m, Options{
		Optimise:      constants.OptimiseNComm,
		ExpectedUnits: 3,
		Steps:         100,
		Step:          10,
		Seed:          2,
		MinConfidence: 0.5,
	}, quietLogger(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	last := len(m) - 1
	if res.Labels[last] != -1 {
		t.Errorf("dead fibre labeled %d, want -1", res.Labels[last])
	}
	if len(res.Unlabeled) != 1 || res.Unlabeled[0] != last {
		t.Errorf("Unlabeled = %v, want [%d]", res.Unlabeled, last)
	}
}

func TestRunDegenerateInputs(t *testing.T) {
	t.Run("empty matrix", func(t *testing.T) {
		if _, err := Run(trace.Matrix{}, Options{Optimise: constants.OptimiseNComm, ExpectedUnits: 1}, quietLogger(), nil); err == nil {
			t.Error("expected error for empty matrix")
		}
	})

	t.Run("single fibre", func(t *testing.T) {
		m := trace.Matrix{{0, 1, 0, 1}}
		res, err := Run(m, Options{
			Optimise:      constants.OptimiseNComm,
			ExpectedUnits: 1,
			Steps:         10,
			Step:          5,
		}, quietLogger(), nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.NumCommunities != 1 {
			t.Errorf("single fibre yields %d communities, want 1", res.NumCommunities)
		}
	})

	t.Run("zero variance fibres", func(t *testing.T) {
		m := trace.Matrix{
			{1, 1, 1, 1},
			{2, 2, 2, 2},
		}
		// Must not panic; all correlations are zero.
		if _, err := Run(m, Options{
			Optimise:      constants.OptimiseNComm,
			ExpectedUnits: 2,
			Steps:         10,
			Step:          5,
		}, quietLogger(), nil); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	})

	t.Run("missing objective inputs", func(t *testing.T) {
		m, _ := threeUnitMatrix()
		if _, err := Run(m, Options{Optimise: constants.OptimiseEMD}, quietLogger(), nil); err == nil {
			t.Error("expected error for emd without reference sizes")
		}
		if _, err := Run(m, Options{Optimise: constants.OptimiseNComm}, quietLogger(), nil); err == nil {
			t.Error("expected error for ncomm without expected units")
		}
		if _, err := Run(m, Options{Optimise: "auc"}, quietLogger(), nil); err == nil {
			t.Error("expected error for unknown objective")
		}
		if _, err := Run(m, Options{
			Optimise:      constants.OptimiseResolution,
			ExpectedUnits: 3,
			Detector:      constants.DetectLPA,
		}, quietLogger(), nil); err == nil {
			t.Error("expected error for resolution sweep with non-louvain detector")
		}
	})
}

func TestWasserstein(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 0},
		{"shifted", []float64{0, 0}, []float64{1, 1}, 1},
		{"singleton", []float64{0}, []float64{5}, 5},
		{"empty", nil, []float64{1}, 0},
		{"order independent", []float64{3, 1, 2}, []float64{2, 3, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wasserstein(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Wasserstein() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	t.Run("perfect", func(t *testing.T) {
		eval, err := Evaluate([]int{0, 0, 1, 1}, []int{5, 5, 9, 9})
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		if eval.PairwiseAccuracy != 1 {
			t.Errorf("accuracy = %v, want 1", eval.PairwiseAccuracy)
		}
		if eval.CommunityRatio != 1 {
			t.Errorf("ratio = %v, want 1", eval.CommunityRatio)
		}
		if eval.SizeEMD != 0 {
			t.Errorf("EMD = %v, want 0", eval.SizeEMD)
		}
	})

	t.Run("merged communities", func(t *testing.T) {
		eval, err := Evaluate([]int{0, 0, 0, 0}, []int{0, 0, 1, 1})
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		// Pairs within true units agree (2), cross pairs disagree (4).
		want := 2.0 / 6.0
		if math.Abs(eval.PairwiseAccuracy-want) > 1e-12 {
			t.Errorf("accuracy = %v, want %v", eval.PairwiseAccuracy, want)
		}
		if eval.CommunityRatio != 0.5 {
			t.Errorf("ratio = %v, want 0.5", eval.CommunityRatio)
		}
	})

	t.Run("unlabeled excluded", func(t *testing.T) {
		eval, err := Evaluate([]int{0, -1, 1}, []int{0, 0, 1})
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		if eval.PairwiseAccuracy != 1 {
			t.Errorf("accuracy = %v, want 1 with unlabeled fibre excluded", eval.PairwiseAccuracy)
		}
	})

	t.Run("length mismatch", func(t *testing.T) {
		if _, err := Evaluate([]int{0}, []int{0, 1}); err == nil {
			t.Error("expected error for mismatched lengths")
		}
	})
}
