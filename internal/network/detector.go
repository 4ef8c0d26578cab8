package network

import (
	"fmt"

	"github.com/syrinxlab/mupool/internal/constants"
)

// Detector partitions a co-activation graph into communities. Every
// implementation is deterministic: equal graphs and equal detector
// configuration always yield equal partitions. An empty graph yields
// the empty partition.
type Detector interface {
	Detect(g *Graph) (Partition, error)
	Name() string
}

// DetectorOptions selects and tunes a detector.
type DetectorOptions struct {
	Resolution float64
	Seed       int64
}

// NewDetector returns the named detector: louvain (default for
// identification), lpa, or components.
func NewDetector(name string, opts DetectorOptions) (Detector, error) {
	switch name {
	case constants.DetectLouvain:
		return &LouvainDetector{Resolution: opts.Resolution, Seed: opts.Seed}, nil
	case constants.DetectLPA:
		return NewLabelPropagationDetector(), nil
	case constants.DetectComponents:
		return &ComponentsDetector{}, nil
	default:
		return nil, fmt.Errorf("unknown detector %q", name)
	}
}
