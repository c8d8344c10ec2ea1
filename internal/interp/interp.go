// Package interp resamples a sparse, position-ordered keyframe sequence
// into a continuous curve (spec.md §4.1 curve-band reconstruction, §3
// CurveType). Linear interpolation and its flat-extrapolation boundary
// behavior are transcribed from
// original_source/source/Tools/src/Tools.cpp's linearInterpolation; the
// other techniques are standard textbook algorithms (Akima 1970 spline,
// natural cubic spline, De Casteljau Bezier, Cox-de Boor B-spline) applied
// over the same (position, amplitude) point set, since the reference's own
// akimaInterpolation/bezier/b-spline bodies were not present in the
// retrieved sources.
package interp

import "sort"

// Point is one (x, y) sample of a curve, x monotonically non-decreasing
// across a slice passed to any function in this package.
type Point struct {
	X, Y float64
}

// Linear interpolates piecewise-linearly between the two points
// surrounding x, returning the boundary value when x falls outside the
// point range (spec.md §8 "Interpolation boundary").
func Linear(pts []Point, x float64) float64 {
	if len(pts) == 0 {
		return 0
	}
	if len(pts) == 1 {
		return pts[0].Y
	}
	if x <= pts[0].X {
		return pts[0].Y
	}
	if x >= pts[len(pts)-1].X {
		return pts[len(pts)-1].Y
	}
	i := segmentIndex(pts, x)
	a, b := pts[i], pts[i+1]
	if a.X == b.X {
		return b.Y
	}
	return (a.Y*(b.X-x) + b.Y*(x-a.X)) / (b.X - a.X)
}

// segmentIndex returns i such that pts[i].X <= x <= pts[i+1].X.
func segmentIndex(pts []Point, x float64) int {
	i := sort.Search(len(pts), func(i int) bool { return pts[i].X > x })
	if i == 0 {
		i = 1
	}
	if i >= len(pts) {
		i = len(pts) - 1
	}
	return i - 1
}

// Cubic interpolates with a natural cubic spline (zero second derivative
// at both ends) through pts, falling back to Linear's flat extrapolation
// outside the point range.
func Cubic(pts []Point, x float64) float64 {
	n := len(pts)
	if n == 0 {
		return 0
	}
	if n < 3 {
		return Linear(pts, x)
	}
	if x <= pts[0].X {
		return pts[0].Y
	}
	if x >= pts[n-1].X {
		return pts[n-1].Y
	}

	// Standard tridiagonal natural-cubic-spline second-derivative solve.
	h := make([]float64, n-1)
	for i := range h {
		h[i] = pts[i+1].X - pts[i].X
	}

	alpha := make([]float64, n)
	for i := 1; i < n-1; i++ {
		alpha[i] = 3*(pts[i+1].Y-pts[i].Y)/h[i] - 3*(pts[i].Y-pts[i-1].Y)/h[i-1]
	}

	l := make([]float64, n)
	mu := make([]float64, n)
	z := make([]float64, n)
	l[0] = 1
	for i := 1; i < n-1; i++ {
		l[i] = 2*(pts[i+1].X-pts[i-1].X) - h[i-1]*mu[i-1]
		mu[i] = h[i] / l[i]
		z[i] = (alpha[i] - h[i-1]*z[i-1]) / l[i]
	}
	l[n-1] = 1

	c := make([]float64, n)
	b := make([]float64, n-1)
	d := make([]float64, n-1)
	for j := n - 2; j >= 0; j-- {
		c[j] = z[j] - mu[j]*c[j+1]
		b[j] = (pts[j+1].Y-pts[j].Y)/h[j] - h[j]*(c[j+1]+2*c[j])/3
		d[j] = (c[j+1] - c[j]) / (3 * h[j])
	}

	i := segmentIndex(pts, x)
	dx := x - pts[i].X
	return pts[i].Y + b[i]*dx + c[i]*dx*dx + d[i]*dx*dx*dx
}

// Akima interpolates through pts using Akima's 1970 local-slope method,
// which is less prone to overshoot near sharp amplitude changes than a
// global cubic spline. Falls back to Linear when fewer than 3 points are
// available.
func Akima(pts []Point, x float64) float64 {
	n := len(pts)
	if n < 3 {
		return Linear(pts, x)
	}
	if x <= pts[0].X {
		return pts[0].Y
	}
	if x >= pts[n-1].X {
		return pts[n-1].Y
	}

	// Extend the slope sequence by two points on each side via linear
	// extrapolation of the boundary slopes, the standard Akima construction.
	m := make([]float64, n+3)
	for i := 0; i < n-1; i++ {
		dx := pts[i+1].X - pts[i].X
		if dx == 0 {
			m[i+2] = 0
		} else {
			m[i+2] = (pts[i+1].Y - pts[i].Y) / dx
		}
	}
	m[1] = 2*m[2] - m[3]
	m[0] = 2*m[1] - m[2]
	m[n+1] = 2*m[n] - m[n-1]
	m[n+2] = 2*m[n+1] - m[n]

	t := make([]float64, n)
	for i := 0; i < n; i++ {
		j := i + 2
		w1 := abs(m[j+1] - m[j])
		w2 := abs(m[j-1] - m[j-2])
		if w1+w2 == 0 {
			t[i] = (m[j-1] + m[j]) / 2
		} else {
			t[i] = (w1*m[j-1] + w2*m[j]) / (w1 + w2)
		}
	}

	i := segmentIndex(pts, x)
	h := pts[i+1].X - pts[i].X
	if h == 0 {
		return pts[i].Y
	}
	dx := x - pts[i].X
	p0 := pts[i].Y
	p1 := t[i]
	p2 := (3*m[i+2] - 2*t[i] - t[i+1]) / h
	p3 := (t[i] + t[i+1] - 2*m[i+2]) / (h * h)
	return p0 + p1*dx + p2*dx*dx + p3*dx*dx*dx
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Bezier interpolates through pts by chaining a cubic Bezier segment
// between each consecutive pair, with control points placed at 1/3 and
// 2/3 along the chord using Catmull-Rom-derived tangents so the curve
// passes through every point with continuous first derivative; x is
// resolved to the De Casteljau parameter t via bisection since the curve
// is not monotone in general, but each segment's x component is here by
// construction.
func Bezier(pts []Point, x float64) float64 {
	n := len(pts)
	if n < 3 {
		return Linear(pts, x)
	}
	if x <= pts[0].X {
		return pts[0].Y
	}
	if x >= pts[n-1].X {
		return pts[n-1].Y
	}

	i := segmentIndex(pts, x)
	p0, p3 := pts[i], pts[i+1]

	tangent := func(idx int) Point {
		switch {
		case idx == 0:
			return Point{X: pts[1].X - pts[0].X, Y: pts[1].Y - pts[0].Y}
		case idx == n-1:
			return Point{X: pts[n-1].X - pts[n-2].X, Y: pts[n-1].Y - pts[n-2].Y}
		default:
			return Point{X: (pts[idx+1].X - pts[idx-1].X) / 2, Y: (pts[idx+1].Y - pts[idx-1].Y) / 2}
		}
	}
	t0 := tangent(i)
	t1 := tangent(i + 1)

	p1 := Point{X: p0.X + t0.X/3, Y: p0.Y + t0.Y/3}
	p2 := Point{X: p3.X - t1.X/3, Y: p3.Y - t1.Y/3}

	lo, hi := 0.0, 1.0
	for iter := 0; iter < 40; iter++ {
		mid := (lo + hi) / 2
		bx := bezierAxis(p0.X, p1.X, p2.X, p3.X, mid)
		if bx < x {
			lo = mid
		} else {
			hi = mid
		}
	}
	t := (lo + hi) / 2
	return bezierAxis(p0.Y, p1.Y, p2.Y, p3.Y, t)
}

func bezierAxis(a, b, c, d, t float64) float64 {
	mt := 1 - t
	return mt*mt*mt*a + 3*mt*mt*t*b + 3*mt*t*t*c + t*t*t*d
}

// Bspline interpolates pts with a clamped cubic B-spline
// (Cox-de Boor recursion) over a knot vector built from pts' x positions,
// falling back to Linear for fewer than 4 control points.
func Bspline(pts []Point, x float64) float64 {
	n := len(pts)
	if n < 4 {
		return Linear(pts, x)
	}
	if x <= pts[0].X {
		return pts[0].Y
	}
	if x >= pts[n-1].X {
		return pts[n-1].Y
	}

	const degree = 3
	knots := clampedKnots(pts, degree)

	var y float64
	for i := 0; i < n; i++ {
		y += pts[i].Y * bSplineBasis(knots, i, degree, x)
	}
	return y
}

// clampedKnots builds a clamped knot vector of length n+degree+1 over pts'
// x range, repeating the endpoints degree+1 times.
func clampedKnots(pts []Point, degree int) []float64 {
	n := len(pts)
	knots := make([]float64, n+degree+1)
	for i := 0; i <= degree; i++ {
		knots[i] = pts[0].X
		knots[len(knots)-1-i] = pts[n-1].X
	}
	interior := len(knots) - 2*(degree+1)
	for i := 0; i < interior; i++ {
		// interior knots are the x positions of the interior points, in order
		idx := i + 1
		knots[degree+1+i] = pts[idx].X
	}
	return knots
}

func bSplineBasis(knots []float64, i, degree int, x float64) float64 {
	if degree == 0 {
		if knots[i] <= x && x < knots[i+1] {
			return 1
		}
		if x == knots[len(knots)-1] && knots[i] <= x && x <= knots[i+1] {
			return 1
		}
		return 0
	}
	var left, right float64
	d1 := knots[i+degree] - knots[i]
	if d1 != 0 {
		left = (x - knots[i]) / d1 * bSplineBasis(knots, i, degree-1, x)
	}
	d2 := knots[i+degree+1] - knots[i+1]
	if d2 != 0 {
		right = (knots[i+degree+1] - x) / d2 * bSplineBasis(knots, i+1, degree-1, x)
	}
	return left + right
}
