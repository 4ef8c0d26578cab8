package pool

import (
	"math/rand"

	"github.com/syrinxlab/mupool/internal/trace"
)

// Stimulus builds the ramped pulse paradigm: a zero baseline with pulses
// every PulsePeriod samples whose amplitude climbs linearly toward just
// below the full-recruitment level, mimicking the graded nerve
// stimulation of Adam et al. (2021).
func Stimulus(params Params) []float64 {
	nt := params.StimulusLength
	slope := (params.FullRecruitment - 15) / float64(nt)

	stim := make([]float64, 0, nt+nt/params.PulsePeriod+1)
	for i := 0; i < nt; i++ {
		stim = append(stim, 0)
		if i%params.PulsePeriod == 0 {
			stim = append(stim, float64(i)*slope)
		}
	}
	return stim[:nt]
}

// Synthesize runs the stimulation paradigm over the pool and returns the
// fibre activity matrix.
//
// A fibre responds to a pulse when the stimulation level exceeds the
// magnitude of its unit's jittered threshold, cd_r + ThresholdNoise *
// unitNoise. The jitter draw is seeded per unit and the additive trace
// noise is seeded per fibre, so two calls with equal parameters produce
// identical matrices. Rows are min-max normalised before return.
func Synthesize(p *Pool) trace.Matrix {
	params := p.Params
	stim := Stimulus(params)
	nt := params.StimulusLength

	// Per-unit threshold jitter: unit i takes the i-th draw of its own
	// seeded generator, fanned out to every fibre it innervates.
	jitter := make([]float64, p.Fibres())
	fi := 0
	for _, u := range p.Units {
		rng := rand.New(rand.NewSource(int64(u.ID)))
		var draw float64
		for k := 0; k <= u.ID; k++ {
			draw = rng.NormFloat64()
		}
		for f := 0; f < u.Size; f++ {
			jitter[fi] = draw
			fi++
		}
	}

	activity := trace.NewMatrix(p.Fibres(), nt)
	for i := 0; i < p.Fibres(); i++ {
		th := p.Units[p.FibreUnit[i]].Threshold + params.ThresholdNoise*jitter[i]
		if th < 0 {
			th = -th
		}
		for t := 0; t < nt; t++ {
			if stim[t] > th {
				activity[i][t] = 1
			}
		}
	}

	if params.FibreNoise > 0 {
		for i := 0; i < p.Fibres(); i++ {
			rng := rand.New(rand.NewSource(int64(i)))
			for t := 0; t < nt; t++ {
				activity[i][t] += params.FibreNoise * rng.NormFloat64()
			}
		}
	}

	activity.NormalizeRows()
	return activity
}

// SynthesizeUnits restricts synthesis to the fibres of the given unit
// IDs, returning their activity rows and the corresponding fibre indices
// in the full pool. The noise seeds stay tied to full-pool fibre indices
// so a sampled run reproduces the same rows the full run would.
func SynthesizeUnits(p *Pool, units []int) (trace.Matrix, []int) {
	full := Synthesize(p)
	_, idx := p.Labels(units)
	sub := make(trace.Matrix, len(idx))
	for i, f := range idx {
		sub[i] = full[f]
	}
	return sub, idx
}
