// Package identify turns fibre activity into putative motor units. It
// sweeps the correlation threshold (or Louvain resolution), scores each
// candidate partition against the configured objective, and returns the
// partition at the optimum together with the full sweep diagnostics.
package identify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/syrinxlab/mupool/internal/constants"
	"github.com/syrinxlab/mupool/internal/logging"
	"github.com/syrinxlab/mupool/internal/network"
	"github.com/syrinxlab/mupool/internal/trace"
)

// maxResolution bounds the resolution sweep. Above this the partition
// shatters into singletons for every graph this toolkit produces.
const maxResolution = 2.0

// Options configures one identification run.
type Options struct {
	Correlation   string  // pearson, spearman, kendall
	Detector      string  // louvain, lpa, components
	Optimise      string  // ncomm, emd, resolution
	Steps         int     // sweep steps, sets decimal precision
	Step          int     // sweep stride
	Resolution    float64 // Louvain resolution for threshold sweeps
	Seed          int64   // detector seed
	ExpectedUnits int     // reference community count for ncomm
	Threshold     float64 // fixed threshold for resolution sweeps
	MinConfidence float64 // drop fibres correlating below this, 0 = off

	// ReferenceSizes is the reference unit-size distribution for the
	// emd objective, for example the known sizes of a synthetic pool.
	ReferenceSizes []int
}

func (o *Options) normalise() error {
	if o.Correlation == "" {
		o.Correlation = constants.CorrPearson
	}
	if o.Detector == "" {
		o.Detector = constants.DetectLouvain
	}
	if o.Optimise == "" {
		o.Optimise = constants.OptimiseNComm
	}
	if o.Steps <= 0 {
		o.Steps = constants.DefaultCorrSteps
	}
	if o.Step <= 0 {
		o.Step = constants.DefaultCorrStep
	}
	if o.Resolution <= 0 {
		o.Resolution = constants.DefaultLouvainResolution
	}
	if o.Threshold <= 0 {
		o.Threshold = constants.PeakThreshold
	}

	switch o.Optimise {
	case constants.OptimiseNComm:
		if o.ExpectedUnits < 1 {
			return fmt.Errorf("ncomm objective needs an expected unit count")
		}
	case constants.OptimiseEMD:
		if len(o.ReferenceSizes) == 0 {
			return fmt.Errorf("emd objective needs a reference size distribution")
		}
	case constants.OptimiseResolution:
		if o.Detector != constants.DetectLouvain {
			return fmt.Errorf("resolution sweep requires the louvain detector, got %q", o.Detector)
		}
		if o.ExpectedUnits < 1 {
			return fmt.Errorf("resolution objective needs an expected unit count")
		}
	default:
		return fmt.Errorf("unknown objective %q", o.Optimise)
	}
	return nil
}

// SweepPoint records one step of an optimisation sweep.
type SweepPoint struct {
	Threshold   float64 `json:"threshold"`
	Resolution  float64 `json:"resolution"`
	Communities int     `json:"communities"`
	EMD         float64 `json:"emd,omitempty"`
}

// Result is the outcome of an identification run. Labels covers every
// input fibre; fibres dropped by the confidence filter carry label -1
// and appear in Unlabeled. Partition covers only the labeled fibres, in
// input order.
type Result struct {
	Labels            []int             `json:"labels"`
	Partition         network.Partition `json:"partition"`
	NumCommunities    int               `json:"num_communities"`
	OptimalThreshold  float64           `json:"optimal_threshold"`
	OptimalResolution float64           `json:"optimal_resolution"`
	Unlabeled         []int             `json:"unlabeled,omitempty"`
	Sweep             []SweepPoint      `json:"sweep,omitempty"`
}

// Run identifies motor units in the activity matrix. The correlation
// matrix is computed once; each sweep step re-thresholds it, runs the
// detector, and scores the partition. Sweep steps are logged to the
// sweep logger when one is configured; the slog logger carries
// operational progress.
func Run(m trace.Matrix, opts Options, log *slog.Logger, sweeps *logging.SweepLogger) (*Result, error) {
	if err := opts.normalise(); err != nil {
		return nil, fmt.Errorf("identify: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("identify: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}

	corr, err := network.CorrelationMatrix(m, opts.Correlation)
	if err != nil {
		return nil, fmt.Errorf("identify: %w", err)
	}

	kept, unlabeled := confidentFibres(corr, opts.MinConfidence)
	if len(kept) == 0 {
		return nil, fmt.Errorf("identify: no fibre meets the confidence floor %v", opts.MinConfidence)
	}
	sub := submatrix(corr, kept)

	log.Debug("starting sweep",
		"objective", opts.Optimise,
		"detector", opts.Detector,
		"fibres", len(kept),
		"dropped", len(unlabeled))

	var (
		sweep      []SweepPoint
		bestTh     float64
		bestRes    = opts.Resolution
		bestScore  float64
		haveScore  bool
		resolution = opts.Optimise == constants.OptimiseResolution
	)

	for i := 0; i < opts.Steps; i += opts.Step {
		th := opts.Threshold
		res := opts.Resolution
		if resolution {
			res = float64(i+opts.Step) / float64(opts.Steps) * maxResolution
		} else {
			th = float64(i) / float64(opts.Steps)
		}

		p, err := detectAt(sub, th, res, opts)
		if err != nil {
			return nil, fmt.Errorf("identify: %w", err)
		}

		point := SweepPoint{Threshold: th, Resolution: res, Communities: p.Size()}
		score := 0.0
		switch opts.Optimise {
		case constants.OptimiseEMD:
			point.EMD = Wasserstein(intsToFloats(p.CommunitySizes()), intsToFloats(opts.ReferenceSizes))
			score = point.EMD
		default:
			score = absDiff(p.Size(), opts.ExpectedUnits)
		}
		sweep = append(sweep, point)

		sweeps.Log(map[string]any{
			"event":       "sweep_step",
			"objective":   opts.Optimise,
			"threshold":   th,
			"resolution":  res,
			"communities": p.Size(),
			"score":       score,
		})
		log.Log(context.Background(), logging.LevelTrace, "sweep step",
			"threshold", th, "resolution", res, "communities", p.Size(), "score", score)

		// Strict inequality keeps the earliest optimum, matching how
		// the first index of the closest value wins.
		if !haveScore || score < bestScore {
			haveScore = true
			bestScore = score
			bestTh = th
			bestRes = res
		}
	}

	final, err := detectAt(sub, bestTh, bestRes, opts)
	if err != nil {
		return nil, fmt.Errorf("identify: %w", err)
	}

	labels := make([]int, len(corr))
	for i := range labels {
		labels[i] = -1
	}
	for k, fibre := range kept {
		labels[fibre] = final.Labels[k]
	}

	log.Info("identification finished",
		"communities", final.Size(),
		"threshold", bestTh,
		"resolution", bestRes,
		"unlabeled", len(unlabeled))
	sweeps.Log(map[string]any{
		"event":       "sweep_result",
		"objective":   opts.Optimise,
		"threshold":   bestTh,
		"resolution":  bestRes,
		"communities": final.Size(),
	})

	return &Result{
		Labels:            labels,
		Partition:         final,
		NumCommunities:    final.Size(),
		OptimalThreshold:  bestTh,
		OptimalResolution: bestRes,
		Unlabeled:         unlabeled,
		Sweep:             sweep,
	}, nil
}

func detectAt(corr [][]float64, threshold, resolution float64, opts Options) (network.Partition, error) {
	g, err := network.BuildGraph(corr, threshold)
	if err != nil {
		return network.Partition{}, err
	}
	d, err := network.NewDetector(opts.Detector, network.DetectorOptions{
		Resolution: resolution,
		Seed:       opts.Seed,
	})
	if err != nil {
		return network.Partition{}, err
	}
	return d.Detect(g)
}

// confidentFibres splits fibre indices into those whose strongest
// correlation reaches the floor and those below it.
func confidentFibres(corr [][]float64, floor float64) (kept, dropped []int) {
	if floor <= 0 {
		kept = make([]int, len(corr))
		for i := range kept {
			kept[i] = i
		}
		return kept, nil
	}
	for i, row := range corr {
		best := 0.0
		for j, v := range row {
			if j != i && v > best {
				best = v
			}
		}
		if best >= floor {
			kept = append(kept, i)
		} else {
			dropped = append(dropped, i)
		}
	}
	return kept, dropped
}

func submatrix(corr [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for a, i := range idx {
		out[a] = make([]float64, len(idx))
		for b, j := range idx {
			out[a][b] = corr[i][j]
		}
	}
	return out
}

func intsToFloats(xs []int) []float64 {
	out := make([]float64, len(xs))
	for i, v := range xs {
		out[i] = float64(v)
	}
	return out
}

func absDiff(a, b int) float64 {
	if a > b {
		return float64(a - b)
	}
	return float64(b - a)
}
