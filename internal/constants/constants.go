// Package constants provides named constants used throughout the mupool
// codebase. This centralizes the published model parameters and analysis
// defaults for better maintainability and documentation.
package constants

// Motor pool generation defaults. The size distribution follows
// Enoka & Fuglevand 2001; the default innervation numbers mirror the
// mean estimates of Adam et al. 2021 for the syringeal muscle.
const (
	// DefaultPoolSize is the default number of motor units in the pool.
	DefaultPoolSize = 30

	// DefaultSmallestUnit is the innervation number of the smallest unit.
	// One-to-one innervation.
	DefaultSmallestUnit = 1

	// DefaultLargestUnit is the innervation number of the largest unit.
	DefaultLargestUnit = 9

	// DefaultFullRecruitment is the stimulation level at which every unit
	// in the pool responds.
	DefaultFullRecruitment = 250.0

	// DefaultStimulusLength is the number of samples in the stimulation
	// paradigm.
	DefaultStimulusLength = 1000

	// DefaultPulsePeriod is the sample spacing between stimulation pulses.
	DefaultPulsePeriod = 12

	// DefaultThresholdNoiseMult scales the per-fibre recruitment threshold
	// jitter (multiples of a unit standard normal draw).
	DefaultThresholdNoiseMult = 2.0

	// DefaultFibreNoise is the standard deviation of the additive gaussian
	// noise applied to each fibre trace. Removing it makes identification
	// near-perfect, which is useful for regression tests.
	DefaultFibreNoise = 0.125

	// DefaultPoolSeed is the base seed for pool generation.
	DefaultPoolSeed = 2
)

// Identification defaults.
const (
	// DefaultCorrSteps is the number of steps in the correlation threshold
	// sweep. More steps give finer decimal precision on the optimum.
	DefaultCorrSteps = 1000

	// DefaultCorrStep is the stride through the sweep.
	DefaultCorrStep = 10

	// DefaultLouvainSeed seeds the Louvain node visit order.
	DefaultLouvainSeed = 2

	// DefaultLouvainResolution is the Louvain resolution parameter.
	DefaultLouvainResolution = 1.0

	// DefaultSNRMult is the default signal-to-noise multiplier for the
	// stimulated-fibre filter. Real specimens calibrate this per recording.
	DefaultSNRMult = 5.0

	// PeakThreshold is the vertical threshold for onset peak detection on
	// normalised traces.
	PeakThreshold = 0.5
)

// ROIHalfWidth is the half-width of the square region of interest around a
// fibre mask coordinate. Coordinates closer than this to the frame edge are
// dropped during mask loading.
const ROIHalfWidth = 2

// MinHullFibres is the minimum number of member fibres for a motor unit to
// have a convex-hull territory.
const MinHullFibres = 3

// Identification method names accepted in configuration.
const (
	OptimiseNComm      = "ncomm"      // community count closest to expected n
	OptimiseEMD        = "emd"        // minimum Earth Mover's Distance
	OptimiseResolution = "resolution" // sweep Louvain resolution instead
)

// Correlation methods accepted in configuration. Pearson is the one used
// in the study.
const (
	CorrPearson  = "pearson"
	CorrSpearman = "spearman"
	CorrKendall  = "kendall"
)

// Detector names accepted in configuration.
const (
	DetectLouvain    = "louvain"
	DetectLPA        = "lpa"
	DetectComponents = "components"
)
