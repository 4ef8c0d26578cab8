// Package pool generates synthetic motor pools and the activity traces
// their fibres produce under a ramped pulse-stimulation paradigm. Unit
// sizes follow the exponential distribution of Enoka & Fuglevand (2001)
// and recruitment thresholds follow Petersen & Rostalski (2019), with
// seeded noise throughout so every run is reproducible.
package pool

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Params controls pool generation. Zero values are invalid; callers
// normally start from the configured defaults.
type Params struct {
	Units           int     // number of motor units in the pool
	SmallestUnit    int     // innervation number of the smallest unit
	LargestUnit     int     // innervation number of the largest unit
	FullRecruitment float64 // stimulation level recruiting every unit
	StimulusLength  int     // samples in the stimulation paradigm
	PulsePeriod     int     // samples between stimulation pulses
	ThresholdNoise  float64 // multiplier on per-unit threshold jitter
	FibreNoise      float64 // amplitude of per-fibre trace noise
	Seed            int64   // master seed for size noise
}

// Validate reports the first fatal parameter error. Generation never
// proceeds on a partially valid parameter set.
func (p Params) Validate() error {
	switch {
	case p.Units < 1:
		return fmt.Errorf("pool must contain at least one unit, got %d", p.Units)
	case p.SmallestUnit < 1:
		return fmt.Errorf("smallest unit size must be positive, got %d", p.SmallestUnit)
	case p.LargestUnit < p.SmallestUnit:
		return fmt.Errorf("largest unit size %d below smallest %d", p.LargestUnit, p.SmallestUnit)
	case p.FullRecruitment <= 0:
		return fmt.Errorf("full recruitment level must be positive, got %v", p.FullRecruitment)
	case p.StimulusLength < 1:
		return fmt.Errorf("stimulus length must be positive, got %d", p.StimulusLength)
	case p.PulsePeriod < 1:
		return fmt.Errorf("pulse period must be positive, got %d", p.PulsePeriod)
	case p.FibreNoise < 0:
		return fmt.Errorf("fibre noise must be non-negative, got %v", p.FibreNoise)
	}
	return nil
}

// MotorUnit is one alpha motoneuron and the muscle fibres it innervates.
type MotorUnit struct {
	ID        int     `json:"id"`
	Size      int     `json:"size"`      // innervation number
	Threshold float64 `json:"threshold"` // recruitment threshold before jitter
}

// Pool is a generated motor pool. Fibres are indexed contiguously;
// FibreUnit maps each fibre index to the ID of its parent unit.
type Pool struct {
	Params    Params      `json:"params"`
	Units     []MotorUnit `json:"units"`
	FibreUnit []int       `json:"fibre_unit"`
}

// Fibres returns the total fibre count across all units.
func (p *Pool) Fibres() int { return len(p.FibreUnit) }

// Sizes returns the unit sizes in unit-ID order.
func (p *Pool) Sizes() []int {
	sizes := make([]int, len(p.Units))
	for i, u := range p.Units {
		sizes[i] = u.Size
	}
	return sizes
}

// Generate builds a motor pool from the parameters.
//
// Unit sizes follow y_i = y_1 * exp((ln R / n) * i) with R = y_n/y_1,
// perturbed by seeded standard-normal noise, rounded to whole fibres,
// clamped to a minimum of one, and sorted ascending so recruitment order
// matches size order. Recruitment thresholds follow
// cd_r(i) = exp(a*i)/100 with a = ln(100 * cd_f)/n.
func Generate(params Params) (*Pool, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("generate pool: %w", err)
	}

	n := params.Units
	ratio := float64(params.LargestUnit) / float64(params.SmallestUnit)
	rng := rand.New(rand.NewSource(params.Seed))

	sizes := make([]int, n)
	for i := 0; i < n; i++ {
		y := float64(params.SmallestUnit)*math.Exp(math.Log(ratio)/float64(n)*float64(i)) + rng.NormFloat64()
		size := int(math.Round(y))
		if size < 1 {
			size = 1
		}
		sizes[i] = size
	}
	sort.Ints(sizes)

	a := math.Log(100*params.FullRecruitment) / float64(n)
	units := make([]MotorUnit, n)
	for i := 0; i < n; i++ {
		units[i] = MotorUnit{
			ID:        i,
			Size:      sizes[i],
			Threshold: math.Exp(a*float64(i)) / 100,
		}
	}

	var fibreUnit []int
	for _, u := range units {
		for f := 0; f < u.Size; f++ {
			fibreUnit = append(fibreUnit, u.ID)
		}
	}

	return &Pool{Params: params, Units: units, FibreUnit: fibreUnit}, nil
}

// Sample draws n distinct unit IDs from the pool without replacement,
// deterministically for a given seed. Used by validation runs that
// cluster a subset of the pool.
func (p *Pool) Sample(n int, seed int64) ([]int, error) {
	if n < 1 || n > len(p.Units) {
		return nil, fmt.Errorf("sample size %d outside [1, %d]", n, len(p.Units))
	}
	rng := rand.New(rand.NewSource(seed))
	ids := rng.Perm(len(p.Units))[:n]
	sort.Ints(ids)
	return ids, nil
}

// Labels returns the ground-truth unit label for each fibre, restricted
// to the given unit IDs when units is non-nil. The second return value
// maps each returned label position back to the fibre's index in the
// full pool.
func (p *Pool) Labels(units []int) ([]int, []int) {
	if units == nil {
		labels := append([]int(nil), p.FibreUnit...)
		idx := make([]int, len(labels))
		for i := range idx {
			idx[i] = i
		}
		return labels, idx
	}
	member := make(map[int]bool, len(units))
	for _, id := range units {
		member[id] = true
	}
	var labels, idx []int
	for i, u := range p.FibreUnit {
		if member[u] {
			labels = append(labels, u)
			idx = append(idx, i)
		}
	}
	return labels, idx
}
