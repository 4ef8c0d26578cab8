// Package store persists specimens, fibres, identification runs, and
// co-activation observations in SQLite. Activity matrices are kept out
// of the database as Arrow IPC files; runs reference them by path.
package store

import "time"

// Specimen is one recorded muscle preparation.
type Specimen struct {
	Name       string    `json:"name"`
	SNRMult    float64   `json:"snr_mult"`
	FrameWidth int       `json:"frame_width"`
	CreatedAt  time.Time `json:"created_at"`
}

// Fibre is one mask coordinate of a specimen after stitching and edge
// trimming.
type Fibre struct {
	Specimen string `json:"specimen"`
	Index    int    `json:"index"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Alive    bool   `json:"alive"`
}

// Run records one identification run: its configuration, the optimum
// the sweep found, and the resulting fibre labels.
type Run struct {
	ID           string    `json:"id"`
	Specimen     string    `json:"specimen"`
	Electrode    string    `json:"electrode"`
	CreatedAt    time.Time `json:"created_at"`
	Correlation  string    `json:"correlation"`
	Detector     string    `json:"detector"`
	Objective    string    `json:"objective"`
	Threshold    float64   `json:"threshold"`
	Resolution   float64   `json:"resolution"`
	Seed         int64     `json:"seed"`
	Communities  int       `json:"communities"`
	Labels       []int     `json:"labels"`
	ActivityPath string    `json:"activity_path,omitempty"`
}

// MotorUnitRecord is one identified motor unit of a run, with its member
// fibres and territory area when one exists.
type MotorUnitRecord struct {
	RunID  string  `json:"run_id"`
	Unit   int     `json:"unit"`
	Size   int     `json:"size"`
	Fibres []int   `json:"fibres"`
	Area   float64 `json:"area,omitempty"`
}

// CoActivation is one observation of two fibres responding to the same
// stimulation pulse.
type CoActivation struct {
	Specimen  string  `json:"specimen"`
	Electrode string  `json:"electrode"`
	Pulse     int     `json:"pulse"`
	FibreA    int     `json:"fibre_a"`
	FibreB    int     `json:"fibre_b"`
	Weight    float64 `json:"weight"`
}
