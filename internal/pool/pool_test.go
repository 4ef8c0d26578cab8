package pool

import (
	"testing"

	"github.com/syrinxlab/mupool/internal/constants"
)

func defaultParams() Params {
	return Params{
		Units:           constants.DefaultPoolSize,
		SmallestUnit:    constants.DefaultSmallestUnit,
		LargestUnit:     constants.DefaultLargestUnit,
		FullRecruitment: constants.DefaultFullRecruitment,
		StimulusLength:  constants.DefaultStimulusLength,
		PulsePeriod:     constants.DefaultPulsePeriod,
		ThresholdNoise:  constants.DefaultThresholdNoiseMult,
		FibreNoise:      constants.DefaultFibreNoise,
		Seed:            constants.DefaultPoolSeed,
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero units", func(p *Params) { p.Units = 0 }},
		{"zero smallest", func(p *Params) { p.SmallestUnit = 0 }},
		{"largest below smallest", func(p *Params) { p.LargestUnit = 0 }},
		{"zero recruitment", func(p *Params) { p.FullRecruitment = 0 }},
		{"zero length", func(p *Params) { p.StimulusLength = 0 }},
		{"zero period", func(p *Params) { p.PulsePeriod = 0 }},
		{"negative fibre noise", func(p *Params) { p.FibreNoise = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := defaultParams()
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if err := defaultParams().Validate(); err != nil {
		t.Errorf("default params should validate, got %v", err)
	}
}

func TestGenerate(t *testing.T) {
	p, err := Generate(defaultParams())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if len(p.Units) != constants.DefaultPoolSize {
		t.Errorf("unit count = %d, want %d", len(p.Units), constants.DefaultPoolSize)
	}

	total := 0
	prevSize := 0
	prevTh := 0.0
	for _, u := range p.Units {
		if u.Size < 1 {
			t.Errorf("unit %d has size %d, want >= 1", u.ID, u.Size)
		}
		if u.Size < prevSize {
			t.Errorf("unit %d size %d breaks ascending order", u.ID, u.Size)
		}
		if u.Threshold <= prevTh {
			t.Errorf("unit %d threshold %v not strictly increasing", u.ID, u.Threshold)
		}
		prevSize, prevTh = u.Size, u.Threshold
		total += u.Size
	}

	if p.Fibres() != total {
		t.Errorf("Fibres() = %d, want %d", p.Fibres(), total)
	}
	for i, u := range p.FibreUnit {
		if u < 0 || u >= len(p.Units) {
			t.Errorf("fibre %d maps to invalid unit %d", i, u)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a, err := Generate(defaultParams())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	b, err := Generate(defaultParams())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if a.Fibres() != b.Fibres() {
		t.Fatalf("fibre counts differ: %d vs %d", a.Fibres(), b.Fibres())
	}
	for i := range a.Units {
		if a.Units[i] != b.Units[i] {
			t.Errorf("unit %d differs: %+v vs %+v", i, a.Units[i], b.Units[i])
		}
	}
}

func TestGenerateSeedChangesSizes(t *testing.T) {
	params := defaultParams()
	a, _ := Generate(params)
	params.Seed = 99
	b, _ := Generate(params)

	same := a.Fibres() == b.Fibres()
	if same {
		for i := range a.Units {
			if a.Units[i].Size != b.Units[i].Size {
				same = false
				break
			}
		}
	}
	if same {
		t.Error("different seeds produced identical size distributions")
	}
}

func TestStimulus(t *testing.T) {
	params := defaultParams()
	stim := Stimulus(params)

	if len(stim) != params.StimulusLength {
		t.Fatalf("stimulus length = %d, want %d", len(stim), params.StimulusLength)
	}

	// Pulse amplitudes must ramp up monotonically and stay below the
	// full-recruitment level.
	prev := -1.0
	for _, v := range stim {
		if v < 0 {
			t.Fatalf("negative stimulus value %v", v)
		}
		if v > 0 {
			if v < prev {
				t.Errorf("pulse amplitude %v below earlier pulse %v", v, prev)
			}
			if v >= params.FullRecruitment {
				t.Errorf("pulse amplitude %v reaches full recruitment %v", v, params.FullRecruitment)
			}
			prev = v
		}
	}
	if prev <= 0 {
		t.Error("stimulus contains no pulses")
	}
}

func TestSynthesize(t *testing.T) {
	p, err := Generate(defaultParams())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	activity := Synthesize(p)

	if activity.Fibres() != p.Fibres() {
		t.Errorf("activity rows = %d, want %d", activity.Fibres(), p.Fibres())
	}
	if activity.Samples() != p.Params.StimulusLength {
		t.Errorf("activity samples = %d, want %d", activity.Samples(), p.Params.StimulusLength)
	}
	if err := activity.Validate(); err != nil {
		t.Errorf("activity failed validation: %v", err)
	}

	// Rows are min-max normalised.
	for i, row := range activity {
		for j, v := range row {
			if v < 0 || v > 1 {
				t.Fatalf("activity[%d][%d] = %v outside [0, 1]", i, j, v)
			}
		}
	}
}

func TestSynthesizeDeterministic(t *testing.T) {
	p, _ := Generate(defaultParams())
	a := Synthesize(p)
	b := Synthesize(p)
	for i := range a {
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				t.Fatalf("activity[%d][%d] differs between identical runs", i, j)
			}
		}
	}
}

func TestSynthesizeRecruitmentOrder(t *testing.T) {
	params := defaultParams()
	params.FibreNoise = 0
	params.ThresholdNoise = 0
	p, _ := Generate(params)
	activity := Synthesize(p)

	// Without noise, lower-threshold units must recruit no later than
	// higher-threshold ones.
	onset := func(row []float64) int {
		for t, v := range row {
			if v > 0.5 {
				return t
			}
		}
		return len(row)
	}

	prevOnset := -1
	prevUnit := -1
	for i, row := range activity {
		u := p.FibreUnit[i]
		o := onset(row)
		if prevUnit >= 0 && u > prevUnit && o < prevOnset {
			t.Errorf("fibre %d (unit %d) recruited at %d, before unit %d at %d", i, u, o, prevUnit, prevOnset)
		}
		if u != prevUnit {
			prevUnit, prevOnset = u, o
		}
	}
}

func TestSample(t *testing.T) {
	p, _ := Generate(defaultParams())

	a, err := p.Sample(13, 7)
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if len(a) != 13 {
		t.Fatalf("sample size = %d, want 13", len(a))
	}
	seen := map[int]bool{}
	for _, id := range a {
		if id < 0 || id >= len(p.Units) {
			t.Errorf("sampled invalid unit %d", id)
		}
		if seen[id] {
			t.Errorf("unit %d sampled twice", id)
		}
		seen[id] = true
	}

	b, _ := p.Sample(13, 7)
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same seed produced different samples")
		}
	}

	if _, err := p.Sample(0, 1); err == nil {
		t.Error("expected error for zero sample size")
	}
	if _, err := p.Sample(len(p.Units)+1, 1); err == nil {
		t.Error("expected error for oversized sample")
	}
}

func TestLabels(t *testing.T) {
	p, _ := Generate(defaultParams())

	all, idx := p.Labels(nil)
	if len(all) != p.Fibres() || len(idx) != p.Fibres() {
		t.Fatalf("full labels length = %d, want %d", len(all), p.Fibres())
	}

	units := []int{0, 5}
	labels, idx := p.Labels(units)
	want := p.Units[0].Size + p.Units[5].Size
	if len(labels) != want {
		t.Errorf("restricted labels length = %d, want %d", len(labels), want)
	}
	for i, l := range labels {
		if l != 0 && l != 5 {
			t.Errorf("label %d = %d, want 0 or 5", i, l)
		}
		if p.FibreUnit[idx[i]] != l {
			t.Errorf("index map broken at %d", i)
		}
	}
}
