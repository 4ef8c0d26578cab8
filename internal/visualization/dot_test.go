package visualization

import (
	"strings"
	"testing"

	"github.com/syrinxlab/mupool/internal/identify"
	"github.com/syrinxlab/mupool/internal/network"
	"github.com/syrinxlab/mupool/internal/specimen"
)

func testGraph(t *testing.T) (*network.Graph, network.Partition) {
	t.Helper()
	corr := [][]float64{
		{0, 0.9, 0},
		{0.9, 0, 0},
		{0, 0, 0},
	}
	g, err := network.BuildGraph(corr, 0.5)
	if err != nil {
		t.Fatalf("BuildGraph() error = %v", err)
	}
	d := &network.ComponentsDetector{}
	p, err := d.Detect(g)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	return g, p
}

func TestRenderDOT(t *testing.T) {
	g, p := testGraph(t)

	dot, err := RenderDOT(g, p)
	if err != nil {
		t.Fatalf("RenderDOT() error = %v", err)
	}

	for _, want := range []string{
		"graph mupool {",
		"f0 --",   // one surviving edge
		"#377eb8", // first community colour
		"}",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT output missing %q:\n%s", want, dot)
		}
	}

	// A partition of the wrong size must be rejected.
	if _, err := RenderDOT(g, network.Partition{Labels: []int{0}}); err == nil {
		t.Error("expected error for mismatched partition")
	}
}

func TestRenderJSON(t *testing.T) {
	g, p := testGraph(t)

	out, err := RenderJSON(g, p)
	if err != nil {
		t.Fatalf("RenderJSON() error = %v", err)
	}
	if out["node_count"] != 3 {
		t.Errorf("node_count = %v, want 3", out["node_count"])
	}
	if out["edge_count"] != 1 {
		t.Errorf("edge_count = %v, want 1", out["edge_count"])
	}
	if out["community_count"] != 2 {
		t.Errorf("community_count = %v, want 2", out["community_count"])
	}
}

func TestCommunityColor(t *testing.T) {
	if CommunityColor(0) != "#377eb8" {
		t.Errorf("color 0 = %s", CommunityColor(0))
	}
	if CommunityColor(11) != CommunityColor(0) {
		t.Error("colours should wrap around the cycle")
	}
	if CommunityColor(-1) != "lightgray" {
		t.Error("unlabeled fibres should be gray")
	}
}

func TestRenderHTML(t *testing.T) {
	res := &identify.Result{
		Labels:           []int{0, 0, 1},
		NumCommunities:   2,
		OptimalThreshold: 0.49,
		Partition: network.Partition{
			Labels:      []int{0, 0, 1},
			Communities: [][]int{{0, 1}, {2}},
		},
	}
	tr := &specimen.Territory{Area: 45}

	var b strings.Builder
	err := RenderHTML(&b, &Report{
		Specimen:    "gw65",
		Result:      res,
		Territories: []*specimen.Territory{tr, nil},
	})
	if err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}

	html := b.String()
	for _, want := range []string{"gw65", "0.490", "45 px", "<table>"} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML missing %q", want)
		}
	}

	if err := RenderHTML(&b, &Report{}); err == nil {
		t.Error("expected error for report without result")
	}
}
