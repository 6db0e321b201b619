package geom

import "honnef.co/go/curve"

// Cubic is one cubic Bezier piece ending at To.
type Cubic struct {
	C1, C2, To Point
}

// BezierControls computes the control points of the cubic spline through
// the values k, one axis at a time. Piece i runs from k[i] to k[i+1] with
// controls p1[i] and p2[i]. The tridiagonal system is solved with the
// Thomas algorithm.
func BezierControls(k []float64) (p1, p2 []float64) {
	n := len(k) - 1
	if n < 1 {
		return nil, nil
	}
	p1 = make([]float64, n)
	p2 = make([]float64, n)

	a := make([]float64, n)
	b := make([]float64, n)
	c := make([]float64, n)
	r := make([]float64, n)

	a[0], b[0], c[0] = 0, 2, 1
	r[0] = k[0] + 2*k[1]

	for i := 1; i < n-1; i++ {
		a[i], b[i], c[i] = 1, 4, 1
		r[i] = 4*k[i] + 2*k[i+1]
	}

	a[n-1], b[n-1], c[n-1] = 2, 7, 0
	r[n-1] = 8*k[n-1] + k[n]

	for i := 1; i < n; i++ {
		m := a[i] / b[i-1]
		b[i] -= m * c[i-1]
		r[i] -= m * r[i-1]
	}

	p1[n-1] = r[n-1] / b[n-1]
	for i := n - 2; i >= 0; i-- {
		p1[i] = (r[i] - c[i]*p1[i+1]) / b[i]
	}

	for i := 0; i < n-1; i++ {
		p2[i] = 2*k[i+1] - p1[i+1]
	}
	p2[n-1] = 0.5 * (k[n] + p1[n-1])

	return p1, p2
}

// Smooth returns the cubic pieces of a curve through every point. It needs
// at least three points; shorter inputs are drawn as straight lines by the
// caller.
func Smooth(points []Point) []Cubic {
	if len(points) < 3 {
		return nil
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.X, p.Y
	}
	px1, px2 := BezierControls(xs)
	py1, py2 := BezierControls(ys)

	out := make([]Cubic, len(points)-1)
	for i := 1; i < len(points); i++ {
		out[i-1] = Cubic{
			C1: Point{px1[i-1], py1[i-1]},
			C2: Point{px2[i-1], py2[i-1]},
			To: points[i],
		}
	}
	return out
}

// Eval evaluates the piece starting at from at parameter t.
func (c Cubic) Eval(from Point, t float64) Point {
	p := curve.CubicBez{
		P0: curve.Point{X: from.X, Y: from.Y},
		P1: curve.Point{X: c.C1.X, Y: c.C1.Y},
		P2: curve.Point{X: c.C2.X, Y: c.C2.Y},
		P3: curve.Point{X: c.To.X, Y: c.To.Y},
	}.Eval(t)
	return Point{p.X, p.Y}
}
