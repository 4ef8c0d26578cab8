package simulation

import (
	"github.com/syrinxlab/mupool/internal/identify"
	"github.com/syrinxlab/mupool/internal/pool"
	"github.com/syrinxlab/mupool/internal/trace"
)

// Scenario defines a complete pipeline experiment.
type Scenario struct {
	Name string

	// Pool configures synthetic generation. Ignored when Activity is
	// set directly.
	Pool pool.Params

	// Units, when non-empty, restricts the run to exactly these unit
	// IDs. Use this to hand-pick units, for example ones whose
	// recruitment thresholds fall between different stimulus pulses.
	Units []int

	// SampleUnits, when positive, restricts the run to a random sample
	// of that many units, drawn with SampleSeed. Mirrors how recorded
	// specimens only ever expose a subset of the pool. Ignored when
	// Units is set.
	SampleUnits int
	SampleSeed  int64

	// Activity, when non-nil, bypasses pool synthesis entirely. Truth
	// must then carry the ground-truth label of each row. Use this for
	// scenarios that need exact control over the correlation structure.
	Activity trace.Matrix
	Truth    []int

	// Identify configures the identification run. ExpectedUnits and
	// ReferenceSizes default from the ground truth when unset.
	Identify identify.Options
}

// Result collects everything a scenario produced.
type Result struct {
	Pool       *pool.Pool
	Activity   trace.Matrix
	Truth      []int
	Identified *identify.Result
	Evaluation *identify.Evaluation
	RunID      string
}
