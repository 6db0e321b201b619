// Package geom holds the stroke geometry used by the renderer: polyline
// simplification, smoothing, per-tool width rules, pencil textures and
// eraser outlines.
package geom

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// Point is a position in page units.
type Point struct {
	X, Y float64
}

// Simplify reduces a polyline with the Douglas-Peucker algorithm. Points
// closer than tolerance to the simplified line are dropped; the first and
// last point are always kept. A tolerance <= 0 returns the input unchanged.
func Simplify(points []Point, tolerance float64) []Point {
	if tolerance <= 0 || len(points) < 3 {
		return points
	}

	ls := make(orb.LineString, len(points))
	for i, p := range points {
		ls[i] = orb.Point{p.X, p.Y}
	}
	ls = simplify.DouglasPeucker(tolerance).LineString(ls)

	out := make([]Point, len(ls))
	for i, p := range ls {
		out[i] = Point{p.X(), p.Y()}
	}
	return out
}
