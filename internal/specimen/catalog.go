package specimen

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Electrode describes one stimulation electrode recording: the frames at
// which the stimulation paradigm begins in each half of the scan.
type Electrode struct {
	TriggerLeft  int `json:"trigger_left" yaml:"trigger_left"`
	TriggerRight int `json:"trigger_right" yaml:"trigger_right"`
}

// KnownUnit is a reference motor unit identified by visual annotation,
// listed as fibre indices into the trimmed mask.
type KnownUnit struct {
	Name   string `json:"name" yaml:"name"`
	Fibres []int  `json:"fibres" yaml:"fibres"`
}

// Catalog describes one specimen: its stitch geometry, electrodes, the
// SNR multiplier calibrated to the recording quality, and the reference
// units it contributes.
type Catalog struct {
	Specimen   string               `json:"specimen" yaml:"specimen"`
	Stitch     StitchOffsets        `json:"stitch" yaml:"stitch"`
	SNRMult    float64              `json:"snr_mult" yaml:"snr_mult"`
	Electrodes map[string]Electrode `json:"electrodes" yaml:"electrodes"`
	KnownUnits []KnownUnit          `json:"known_units" yaml:"known_units"`
}

// LoadCatalog reads and validates a specimen catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return &c, nil
}

// Validate checks catalog invariants: a specimen name, a positive SNR
// multiplier, non-negative fibre indices, and no fibre claimed by two
// reference units.
func (c *Catalog) Validate() error {
	if c.Specimen == "" {
		return fmt.Errorf("catalog has no specimen name")
	}
	if c.SNRMult <= 0 {
		return fmt.Errorf("snr_mult must be positive, got %v", c.SNRMult)
	}

	claimed := make(map[int]string)
	for i, u := range c.KnownUnits {
		if len(u.Fibres) == 0 {
			return fmt.Errorf("known unit %d (%s) has no fibres", i, u.Name)
		}
		for _, f := range u.Fibres {
			if f < 0 {
				return fmt.Errorf("known unit %d (%s) has negative fibre index %d", i, u.Name, f)
			}
			if owner, ok := claimed[f]; ok {
				return fmt.Errorf("fibre %d claimed by both %s and %s", f, owner, u.Name)
			}
			claimed[f] = u.Name
		}
	}
	return nil
}

// FibreLabels returns a ground-truth label per fibre index up to n,
// using the known-unit position as the label and -1 for fibres no
// reference unit claims.
func (c *Catalog) FibreLabels(n int) []int {
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	for u, unit := range c.KnownUnits {
		for _, f := range unit.Fibres {
			if f < n {
				labels[f] = u
			}
		}
	}
	return labels
}

// ReferenceSizes returns the fibre count of each known unit, the
// reference distribution for EMD-optimised identification.
func (c *Catalog) ReferenceSizes() []int {
	sizes := make([]int, len(c.KnownUnits))
	for i, u := range c.KnownUnits {
		sizes[i] = len(u.Fibres)
	}
	return sizes
}
