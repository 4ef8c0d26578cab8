package specimen

import (
	"fmt"
	"math"
	"sort"

	"github.com/syrinxlab/mupool/internal/constants"
)

// Territory is the spatial extent of a motor unit: the convex hull over
// its member fibre coordinates, with area in square pixels and the hull
// centroid. MicronsPerPixel converts hull areas to physical units.
type Territory struct {
	Hull     []Point `json:"hull"`
	Area     float64 `json:"area"`
	Centroid struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"centroid"`
}

// MicronsPerPixel is the spatial calibration of the imaging setup.
const MicronsPerPixel = 1.168

// AreaMicrons returns the hull area in square micrometres.
func (t *Territory) AreaMicrons() float64 {
	return t.Area * MicronsPerPixel * MicronsPerPixel
}

// NewTerritory computes the territory of a motor unit from its member
// coordinates. Units with fewer than three fibres, or whose fibres are
// collinear, have no defined territory.
func NewTerritory(points []Point) (*Territory, error) {
	if len(points) < constants.MinHullFibres {
		return nil, fmt.Errorf("territory: need at least %d fibres, got %d", constants.MinHullFibres, len(points))
	}

	hull := convexHull(points)
	if len(hull) < 3 {
		return nil, fmt.Errorf("territory: fibres are collinear, hull is degenerate")
	}

	t := &Territory{Hull: hull, Area: shoelace(hull)}
	t.Centroid.X, t.Centroid.Y = polygonCentroid(hull, t.Area)
	return t, nil
}

// convexHull computes the convex hull with the monotone chain algorithm,
// returning vertices in counter-clockwise order. Duplicate and interior
// points are discarded.
func convexHull(points []Point) []Point {
	pts := append([]Point(nil), points...)
	sort.Slice(pts, func(a, b int) bool {
		if pts[a].X != pts[b].X {
			return pts[a].X < pts[b].X
		}
		return pts[a].Y < pts[b].Y
	})

	// Drop duplicates, they break the chain invariants.
	uniq := pts[:0]
	for i, p := range pts {
		if i == 0 || p != pts[i-1] {
			uniq = append(uniq, p)
		}
	}
	pts = uniq
	if len(pts) < 3 {
		return pts
	}

	var lower, upper []Point
	for _, p := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	for i := len(pts) - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}

// cross returns the z component of (b-a) x (c-a); positive when the turn
// a->b->c is counter-clockwise.
func cross(a, b, c Point) int {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// shoelace returns the area of a simple polygon given in vertex order.
func shoelace(hull []Point) float64 {
	sum := 0
	for i := range hull {
		j := (i + 1) % len(hull)
		sum += hull[i].X*hull[j].Y - hull[j].X*hull[i].Y
	}
	return math.Abs(float64(sum)) / 2
}

// polygonCentroid returns the area centroid of the hull.
func polygonCentroid(hull []Point, area float64) (float64, float64) {
	if area == 0 {
		// Degenerate polygon, fall back to the vertex mean.
		var sx, sy float64
		for _, p := range hull {
			sx += float64(p.X)
			sy += float64(p.Y)
		}
		n := float64(len(hull))
		return sx / n, sy / n
	}

	var cx, cy, signed float64
	for i := range hull {
		j := (i + 1) % len(hull)
		f := float64(hull[i].X*hull[j].Y - hull[j].X*hull[i].Y)
		cx += float64(hull[i].X+hull[j].X) * f
		cy += float64(hull[i].Y+hull[j].Y) * f
		signed += f
	}
	signed /= 2
	return cx / (6 * signed), cy / (6 * signed)
}

// Territories computes a territory per community over the trimmed mask.
// Communities too small or degenerate for a hull map to nil.
func Territories(communities [][]int, points []Point) ([]*Territory, error) {
	out := make([]*Territory, len(communities))
	for i, members := range communities {
		var coords []Point
		for _, f := range members {
			if f < 0 || f >= len(points) {
				return nil, fmt.Errorf("territories: community %d references fibre %d outside mask of %d", i, f, len(points))
			}
			coords = append(coords, points[f])
		}
		if len(coords) < constants.MinHullFibres {
			continue
		}
		t, err := NewTerritory(coords)
		if err != nil {
			// Collinear units simply have no hull.
			continue
		}
		out[i] = t
	}
	return out, nil
}
