package simulation

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/syrinxlab/mupool/internal/constants"
	"github.com/syrinxlab/mupool/internal/identify"
	"github.com/syrinxlab/mupool/internal/pool"
	"github.com/syrinxlab/mupool/internal/store"
)

// Runner orchestrates pipeline experiments against a real SQLite store.
type Runner struct {
	t     *testing.T
	store *store.SQLiteStore
}

// NewRunner creates a simulation runner with an isolated SQLite store.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	tmpDir := t.TempDir()

	s, err := store.NewSQLiteStore(tmpDir)
	if err != nil {
		t.Fatalf("NewRunner: failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return &Runner{t: t, store: s}
}

// Store exposes the underlying store for scenario-specific checks.
func (r *Runner) Store() *store.SQLiteStore { return r.store }

// Run executes the scenario and returns the collected results. Any
// pipeline error fails the test immediately.
func (r *Runner) Run(scenario Scenario) Result {
	r.t.Helper()
	ctx := context.Background()

	result := Result{Activity: scenario.Activity, Truth: scenario.Truth}

	// Phase 1: obtain activity and ground truth.
	if result.Activity == nil {
		p, err := pool.Generate(scenario.Pool)
		if err != nil {
			r.t.Fatalf("scenario %s: generate pool: %v", scenario.Name, err)
		}
		result.Pool = p

		if len(scenario.Units) > 0 {
			result.Activity, _ = pool.SynthesizeUnits(p, scenario.Units)
			result.Truth, _ = p.Labels(scenario.Units)
		} else if scenario.SampleUnits > 0 {
			units, err := p.Sample(scenario.SampleUnits, scenario.SampleSeed)
			if err != nil {
				r.t.Fatalf("scenario %s: sample: %v", scenario.Name, err)
			}
			result.Activity, _ = pool.SynthesizeUnits(p, units)
			result.Truth, _ = p.Labels(units)
		} else {
			result.Activity = pool.Synthesize(p)
			result.Truth, _ = p.Labels(nil)
		}
	}
	if len(result.Truth) != result.Activity.Fibres() {
		r.t.Fatalf("scenario %s: %d truth labels for %d fibres", scenario.Name, len(result.Truth), result.Activity.Fibres())
	}

	// Phase 2: identification, defaulting objective inputs from truth.
	opts := scenario.Identify
	trueUnits := distinctLabels(result.Truth)
	if opts.ExpectedUnits == 0 {
		opts.ExpectedUnits = len(trueUnits)
	}
	if opts.Optimise == constants.OptimiseEMD && opts.ReferenceSizes == nil {
		opts.ReferenceSizes = labelSizes(result.Truth)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	identified, err := identify.Run(result.Activity, opts, logger, nil)
	if err != nil {
		r.t.Fatalf("scenario %s: identify: %v", scenario.Name, err)
	}
	result.Identified = identified

	// Phase 3: evaluation against ground truth.
	eval, err := identify.Evaluate(identified.Labels, result.Truth)
	if err != nil {
		r.t.Fatalf("scenario %s: evaluate: %v", scenario.Name, err)
	}
	result.Evaluation = eval

	// Phase 4: persist the run the way the CLI does.
	run := &store.Run{
		Specimen:    "sim:" + scenario.Name,
		Correlation: opts.Correlation,
		Detector:    opts.Detector,
		Objective:   opts.Optimise,
		Threshold:   identified.OptimalThreshold,
		Resolution:  identified.OptimalResolution,
		Seed:        opts.Seed,
		Communities: identified.NumCommunities,
		Labels:      identified.Labels,
	}
	units := make([]store.MotorUnitRecord, len(identified.Partition.Communities))
	for i, members := range identified.Partition.Communities {
		units[i] = store.MotorUnitRecord{Unit: i, Size: len(members), Fibres: members}
	}
	if err := r.store.SaveRun(ctx, run, units); err != nil {
		r.t.Fatalf("scenario %s: save run: %v", scenario.Name, err)
	}
	result.RunID = run.ID

	return result
}

func distinctLabels(labels []int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, l := range labels {
		if l >= 0 && !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}

func labelSizes(labels []int) []int {
	counts := make(map[int]int)
	for _, l := range labels {
		if l >= 0 {
			counts[l]++
		}
	}
	sizes := make([]int, 0, len(counts))
	for _, l := range distinctLabels(labels) {
		sizes = append(sizes, counts[l])
	}
	return sizes
}
