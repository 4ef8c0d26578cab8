package specimen

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/syrinxlab/mupool/internal/trace"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoadMask(t *testing.T) {
	path := writeFile(t, "mask.csv", "id,x,y\n0,10,20\n1,30,40\n")
	points, err := LoadMask(path)
	if err != nil {
		t.Fatalf("LoadMask() error = %v", err)
	}
	want := []Point{{10, 20}, {30, 40}}
	if len(points) != len(want) {
		t.Fatalf("got %d points, want %d", len(points), len(want))
	}
	for i := range want {
		if points[i] != want[i] {
			t.Errorf("point %d = %v, want %v", i, points[i], want[i])
		}
	}
}

func TestLoadMaskErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing columns", "a,b\n1,2\n"},
		{"no rows", "x,y\n"},
		{"bad value", "x,y\n1,two\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "mask.csv", tt.content)
			if _, err := LoadMask(path); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := LoadMask(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestStitch(t *testing.T) {
	off := StitchOffsets{
		OverlapLeft:   195,
		OverlapRight:  22,
		VerticalShift: -16,
		FrameWidth:    373,
	}
	left := []Point{{100, 50}}
	right := []Point{
		{30, 60}, // past the overlap, keeps its place shifted right
		{10, 60}, // inside the overlap, pushed out of frame
	}

	got := Stitch(left, right, off)
	if len(got) != 3 {
		t.Fatalf("got %d points, want 3", len(got))
	}
	if got[0] != left[0] {
		t.Errorf("left point moved: %v", got[0])
	}
	if want := (Point{30 + 195 - 22, 44}); got[1] != want {
		t.Errorf("shifted point = %v, want %v", got[1], want)
	}
	if got[2].X <= off.FrameWidth {
		t.Errorf("overlap point x = %d, should be pushed past frame width %d", got[2].X, off.FrameWidth)
	}

	kept, idx := TrimEdges(got, off.FrameWidth)
	if len(kept) != 2 {
		t.Fatalf("TrimEdges kept %d points, want 2", len(kept))
	}
	if idx[0] != 0 || idx[1] != 1 {
		t.Errorf("TrimEdges idx = %v, want [0 1]", idx)
	}
}

func TestTrimEdges(t *testing.T) {
	points := []Point{
		{1, 10},  // too close to left edge
		{50, 10}, // fine
		{99, 10}, // too close to right edge
		{2, 10},  // exactly at the half-width, kept
		{98, 10}, // exactly at width-halfWidth, kept
	}
	kept, idx := TrimEdges(points, 100)
	if len(kept) != 3 {
		t.Fatalf("kept %d points, want 3: %v", len(kept), kept)
	}
	want := []int{1, 3, 4}
	for i := range want {
		if idx[i] != want[i] {
			t.Errorf("idx[%d] = %d, want %d", i, idx[i], want[i])
		}
	}
}

const catalogYAML = `specimen: gw65
snr_mult: 5.5
stitch:
  overlap_left: 195
  overlap_right: 22
  frame_width: 373
electrodes:
  purple:
    trigger_left: 94
    trigger_right: 35
known_units:
  - name: mu_1
    fibres: [158]
  - name: mu_2
    fibres: [156, 157, 19, 69]
`

func TestLoadCatalog(t *testing.T) {
	path := writeFile(t, "gw65.yaml", catalogYAML)
	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}

	if c.Specimen != "gw65" {
		t.Errorf("Specimen = %q, want gw65", c.Specimen)
	}
	if c.SNRMult != 5.5 {
		t.Errorf("SNRMult = %v, want 5.5", c.SNRMult)
	}
	if c.Electrodes["purple"].TriggerLeft != 94 {
		t.Errorf("purple trigger = %d, want 94", c.Electrodes["purple"].TriggerLeft)
	}
	if len(c.KnownUnits) != 2 {
		t.Fatalf("got %d known units, want 2", len(c.KnownUnits))
	}

	sizes := c.ReferenceSizes()
	if sizes[0] != 1 || sizes[1] != 4 {
		t.Errorf("ReferenceSizes() = %v, want [1 4]", sizes)
	}

	labels := c.FibreLabels(160)
	if labels[158] != 0 || labels[156] != 1 || labels[0] != -1 {
		t.Errorf("FibreLabels misassigned: [158]=%d [156]=%d [0]=%d", labels[158], labels[156], labels[0])
	}
}

func TestCatalogValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Catalog)
	}{
		{"no name", func(c *Catalog) { c.Specimen = "" }},
		{"bad snr", func(c *Catalog) { c.SNRMult = 0 }},
		{"empty unit", func(c *Catalog) { c.KnownUnits[0].Fibres = nil }},
		{"negative fibre", func(c *Catalog) { c.KnownUnits[0].Fibres = []int{-1} }},
		{"shared fibre", func(c *Catalog) { c.KnownUnits[0].Fibres = []int{156} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "c.yaml", catalogYAML)
			c, err := LoadCatalog(path)
			if err != nil {
				t.Fatalf("LoadCatalog() error = %v", err)
			}
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDeadFibres(t *testing.T) {
	live := []float64{0, 1, 0, 1, 0, 1, 0, 1}
	anti := make([]float64, len(live))
	for i, v := range live {
		anti[i] = 1 - v
	}
	m := trace.Matrix{
		append([]float64(nil), live...),
		append([]float64(nil), live...),
		append([]float64(nil), live...),
		anti, // anticorrelates with everything alive
	}

	dead, alive, err := DeadFibres(m)
	if err != nil {
		t.Fatalf("DeadFibres() error = %v", err)
	}
	if len(dead) != 1 || dead[0] != 3 {
		t.Errorf("dead = %v, want [3]", dead)
	}
	if len(alive) != 3 {
		t.Errorf("alive = %v, want the three correlated fibres", alive)
	}
}

func TestStimulatedFibres(t *testing.T) {
	spiky := make([]float64, 60)
	spiky[20] = 8
	m := trace.Matrix{
		make([]float64, 60),
		spiky,
	}

	kept, idx, err := StimulatedFibres(m, 5)
	if err != nil {
		t.Fatalf("StimulatedFibres() error = %v", err)
	}
	if len(kept) != 1 || idx[0] != 1 {
		t.Errorf("kept %d rows, idx %v, want row 1 only", len(kept), idx)
	}

	if _, _, err := StimulatedFibres(m, 0); err == nil {
		t.Error("expected error for non-positive multiplier")
	}
}

func TestExtractActivity(t *testing.T) {
	// 3 frames of a 10x10 recording with a bright ROI around (5,5).
	frames := make([][][]float64, 3)
	for tt := range frames {
		frames[tt] = make([][]float64, 10)
		for y := range frames[tt] {
			frames[tt][y] = make([]float64, 10)
			for x := range frames[tt][y] {
				frames[tt][y][x] = 1
			}
		}
	}
	frames[2][5][5] = 17 // fluorescence transient in the last frame

	m, err := ExtractActivity(frames, []Point{{5, 5}})
	if err != nil {
		t.Fatalf("ExtractActivity() error = %v", err)
	}
	if m.Fibres() != 1 || m.Samples() != 3 {
		t.Fatalf("matrix shape = %dx%d, want 1x3", m.Fibres(), m.Samples())
	}
	if m[0][2] <= m[0][0] {
		t.Errorf("transient frame dff %v not above baseline %v", m[0][2], m[0][0])
	}

	if _, err := ExtractActivity(frames, []Point{{0, 0}}); err == nil {
		t.Error("expected error for ROI outside frame")
	}
	if _, err := ExtractActivity(nil, nil); err == nil {
		t.Error("expected error for empty recording")
	}
}

func TestNewTerritory(t *testing.T) {
	square := []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {5, 5}}
	tr, err := NewTerritory(square)
	if err != nil {
		t.Fatalf("NewTerritory() error = %v", err)
	}
	if len(tr.Hull) != 4 {
		t.Errorf("hull has %d vertices, want 4", len(tr.Hull))
	}
	if tr.Area != 100 {
		t.Errorf("Area = %v, want 100", tr.Area)
	}
	if math.Abs(tr.Centroid.X-5) > 1e-9 || math.Abs(tr.Centroid.Y-5) > 1e-9 {
		t.Errorf("Centroid = (%v,%v), want (5,5)", tr.Centroid.X, tr.Centroid.Y)
	}
	wantMicrons := 100 * MicronsPerPixel * MicronsPerPixel
	if math.Abs(tr.AreaMicrons()-wantMicrons) > 1e-9 {
		t.Errorf("AreaMicrons() = %v, want %v", tr.AreaMicrons(), wantMicrons)
	}

	if _, err := NewTerritory([]Point{{0, 0}, {1, 1}}); err == nil {
		t.Error("expected error for too few fibres")
	}
	if _, err := NewTerritory([]Point{{0, 0}, {1, 1}, {2, 2}}); err == nil {
		t.Error("expected error for collinear fibres")
	}
	if _, err := NewTerritory([]Point{{3, 3}, {3, 3}, {3, 3}}); err == nil {
		t.Error("expected error for duplicate fibres")
	}
}

func TestTerritories(t *testing.T) {
	points := []Point{{0, 0}, {10, 0}, {5, 9}, {100, 100}, {101, 100}}
	communities := [][]int{
		{0, 1, 2}, // proper triangle
		{3, 4},    // too small for a hull
	}

	ts, err := Territories(communities, points)
	if err != nil {
		t.Fatalf("Territories() error = %v", err)
	}
	if ts[0] == nil {
		t.Fatal("triangle community has no territory")
	}
	if ts[0].Area != 45 {
		t.Errorf("triangle area = %v, want 45", ts[0].Area)
	}
	if ts[1] != nil {
		t.Error("two-fibre community should have nil territory")
	}

	if _, err := Territories([][]int{{9}}, points); err == nil {
		t.Error("expected error for out-of-range fibre")
	}
}
