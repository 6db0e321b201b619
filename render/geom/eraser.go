package geom

import (
	"iter"
	"math"

	"honnef.co/go/curve"
)

const (
	strokeTolerance = 0.1
	dotSides        = 16
)

// EraserOutlines returns the region scrubbed by an eraser dragged along
// points with the given width, using round caps and joins. The region is
// the union of the returned polygons. Each polygon is the convex outline of
// one polyline edge, counter-clockwise, so the set has no self-intersecting
// contour and fills correctly with the non-zero rule.
func EraserOutlines(points []Point, width float64) [][]Point {
	if len(points) == 0 || width <= 0 {
		return nil
	}
	if len(points) == 1 {
		return [][]Point{dot(points[0], width/2)}
	}

	style := curve.Stroke{
		Width:    width,
		Join:     curve.RoundJoin,
		StartCap: curve.RoundCap,
		EndCap:   curve.RoundCap,
	}

	var out [][]Point
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		if a == b {
			out = append(out, dot(a, width/2))
			continue
		}
		stroked := curve.StrokePath(edge(a, b), style, curve.StrokeOpts{}, strokeTolerance)
		for _, poly := range flatten(stroked) {
			if len(poly) < 3 {
				continue
			}
			out = append(out, CounterClockwise(poly))
		}
	}
	return out
}

func edge(a, b Point) iter.Seq[curve.PathElement] {
	return func(yield func(curve.PathElement) bool) {
		if !yield(curve.MoveTo(curve.Point{X: a.X, Y: a.Y})) {
			return
		}
		yield(curve.LineTo(curve.Point{X: b.X, Y: b.Y}))
	}
}

// flatten turns path elements into polygons, one per sub-path.
func flatten(path iter.Seq[curve.PathElement]) [][]Point {
	var (
		polys [][]Point
		cur   []Point
	)
	for el := range curve.Flatten(path, strokeTolerance) {
		switch el.Kind {
		case curve.MoveToKind:
			if len(cur) > 0 {
				polys = append(polys, cur)
			}
			cur = []Point{{el.P0.X, el.P0.Y}}
		case curve.LineToKind:
			cur = append(cur, Point{el.P0.X, el.P0.Y})
		case curve.ClosePathKind:
			if len(cur) > 0 {
				polys = append(polys, cur)
			}
			cur = nil
		}
	}
	if len(cur) > 0 {
		polys = append(polys, cur)
	}
	return polys
}

// closed walks poly as one closed sub-path.
func closed(poly []Point) iter.Seq[curve.PathSegment] {
	return curve.Segments(func(yield func(curve.PathElement) bool) {
		for i, p := range poly {
			el := curve.LineTo(curve.Point{X: p.X, Y: p.Y})
			if i == 0 {
				el = curve.MoveTo(curve.Point{X: p.X, Y: p.Y})
			}
			if !yield(el) {
				return
			}
		}
		yield(curve.ClosePath())
	})
}

func dot(c Point, r float64) []Point {
	poly := make([]Point, dotSides)
	for i := range poly {
		a := 2 * math.Pi * float64(i) / dotSides
		poly[i] = Point{c.X + r*math.Cos(a), c.Y + r*math.Sin(a)}
	}
	return poly
}

// SignedArea is positive for counter-clockwise polygons in a y-up frame.
func SignedArea(poly []Point) float64 {
	if len(poly) < 3 {
		return 0
	}
	return curve.SegmentsSignedArea(closed(poly))
}

// CounterClockwise returns poly with a positive signed area.
func CounterClockwise(poly []Point) []Point {
	if SignedArea(poly) >= 0 {
		return poly
	}
	out := make([]Point, len(poly))
	for i, p := range poly {
		out[len(poly)-1-i] = p
	}
	return out
}

// Contains reports whether p lies inside poly (non-zero winding).
func Contains(poly []Point, p Point) bool {
	if len(poly) < 3 {
		return false
	}
	return curve.SegmentsWinding(closed(poly), curve.Point{X: p.X, Y: p.Y}) != 0
}
