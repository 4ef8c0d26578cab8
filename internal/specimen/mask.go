// Package specimen handles recorded specimen data: fibre coordinate
// masks, known motor-unit catalogs, dead and stimulated fibre filters,
// and motor-unit territories. Recordings arrive as two horizontally
// overlapping frame halves that must be stitched into one coordinate
// frame before analysis.
package specimen

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/syrinxlab/mupool/internal/constants"
)

// Point is one fibre coordinate in frame pixels.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// LoadMask reads fibre coordinates from a CSV file with x and y columns.
// Extra columns are ignored; every row must parse to whole pixels.
func LoadMask(path string) ([]Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load mask: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("load mask %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("load mask %s: no coordinate rows", path)
	}

	xCol, yCol := -1, -1
	for i, name := range rows[0] {
		switch name {
		case "x":
			xCol = i
		case "y":
			yCol = i
		}
	}
	if xCol < 0 || yCol < 0 {
		return nil, fmt.Errorf("load mask %s: missing x or y column", path)
	}

	points := make([]Point, 0, len(rows)-1)
	for i, row := range rows[1:] {
		x, err := strconv.Atoi(row[xCol])
		if err != nil {
			return nil, fmt.Errorf("load mask %s: row %d: bad x %q", path, i+1, row[xCol])
		}
		y, err := strconv.Atoi(row[yCol])
		if err != nil {
			return nil, fmt.Errorf("load mask %s: row %d: bad y %q", path, i+1, row[yCol])
		}
		points = append(points, Point{X: x, Y: y})
	}
	return points, nil
}

// StitchOffsets aligns the right frame half onto the left one.
type StitchOffsets struct {
	// OverlapLeft is the x coordinate of the stitch edge in the left
	// half.
	OverlapLeft int `json:"overlap_left" yaml:"overlap_left"`

	// OverlapRight is the first used x coordinate of the right half;
	// columns left of it duplicate the left half.
	OverlapRight int `json:"overlap_right" yaml:"overlap_right"`

	// VerticalShift corrects y misalignment between the halves.
	VerticalShift int `json:"vertical_shift" yaml:"vertical_shift"`

	// FrameWidth is the width of the stitched frame in pixels.
	FrameWidth int `json:"frame_width" yaml:"frame_width"`
}

// Stitch merges the two mask halves into the stitched coordinate frame.
// Right-half points inside the overlap region are pushed past the frame
// edge so the later edge trim removes them instead of duplicating
// left-half fibres.
func Stitch(left, right []Point, off StitchOffsets) []Point {
	out := append([]Point(nil), left...)
	for _, p := range right {
		x := p.X
		if x < off.OverlapRight {
			x += off.FrameWidth
		}
		x += off.OverlapLeft - off.OverlapRight
		out = append(out, Point{X: x, Y: p.Y + off.VerticalShift})
	}
	return out
}

// TrimEdges drops points whose region of interest would extend past the
// horizontal frame boundaries, returning the kept points and their
// original indices.
func TrimEdges(points []Point, frameWidth int) ([]Point, []int) {
	var kept []Point
	var idx []int
	for i, p := range points {
		if p.X+constants.ROIHalfWidth > frameWidth || p.X-constants.ROIHalfWidth < 0 {
			continue
		}
		kept = append(kept, p)
		idx = append(idx, i)
	}
	return kept, idx
}
