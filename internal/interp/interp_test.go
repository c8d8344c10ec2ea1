package interp

import (
	"math"
	"testing"
)

func TestLinearBoundary(t *testing.T) {
	pts := []Point{{X: 0, Y: 1}, {X: 10, Y: 5}}

	if got := Linear(pts, -5); got != 1 {
		t.Errorf("Linear below range = %v, want 1", got)
	}
	if got := Linear(pts, 15); got != 5 {
		t.Errorf("Linear above range = %v, want 5", got)
	}
	if got := Linear(pts, 5); math.Abs(got-3) > 1e-9 {
		t.Errorf("Linear midpoint = %v, want 3", got)
	}
}

func TestLinearExactEndpoints(t *testing.T) {
	pts := []Point{{X: 0, Y: 1}, {X: 10, Y: 5}}
	if got := Linear(pts, 0); got != 1 {
		t.Errorf("Linear at a.X = %v, want 1", got)
	}
	if got := Linear(pts, 10); got != 5 {
		t.Errorf("Linear at b.X = %v, want 5", got)
	}
}

func TestCubicPassesThroughPoints(t *testing.T) {
	pts := []Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 0}, {X: 3, Y: 1}}
	for _, p := range pts {
		if got := Cubic(pts, p.X); math.Abs(got-p.Y) > 1e-9 {
			t.Errorf("Cubic at x=%v = %v, want %v", p.X, got, p.Y)
		}
	}
}

func TestAkimaPassesThroughPoints(t *testing.T) {
	pts := []Point{{X: 0, Y: 0}, {X: 1, Y: 2}, {X: 2, Y: 1}, {X: 3, Y: 4}, {X: 4, Y: 2}}
	for _, p := range pts {
		if got := Akima(pts, p.X); math.Abs(got-p.Y) > 1e-6 {
			t.Errorf("Akima at x=%v = %v, want %v", p.X, got, p.Y)
		}
	}
}

func TestBezierPassesThroughPoints(t *testing.T) {
	pts := []Point{{X: 0, Y: 0}, {X: 1, Y: 2}, {X: 2, Y: 1}, {X: 3, Y: 4}}
	for _, p := range pts {
		if got := Bezier(pts, p.X); math.Abs(got-p.Y) > 1e-6 {
			t.Errorf("Bezier at x=%v = %v, want %v", p.X, got, p.Y)
		}
	}
}

func TestBsplineWithinRange(t *testing.T) {
	pts := []Point{{X: 0, Y: 0}, {X: 1, Y: 2}, {X: 2, Y: 1}, {X: 3, Y: 4}, {X: 4, Y: 0}}
	got := Bspline(pts, 2)
	if math.IsNaN(got) {
		t.Fatalf("Bspline returned NaN")
	}
	if got < -1 || got > 5 {
		t.Errorf("Bspline(2) = %v, outside plausible range", got)
	}
}

func TestAllTechniquesFlatOutsideRange(t *testing.T) {
	pts := []Point{{X: 0, Y: 1}, {X: 1, Y: 2}, {X: 2, Y: 1}, {X: 3, Y: 4}, {X: 4, Y: 0}}
	fns := map[string]func([]Point, float64) float64{
		"linear": Linear,
		"cubic":  Cubic,
		"akima":  Akima,
		"bezier": Bezier,
		"bspline": Bspline,
	}
	for name, fn := range fns {
		if got := fn(pts, -1); got != pts[0].Y {
			t.Errorf("%s below range = %v, want %v", name, got, pts[0].Y)
		}
		if got := fn(pts, 10); got != pts[len(pts)-1].Y {
			t.Errorf("%s above range = %v, want %v", name, got, pts[len(pts)-1].Y)
		}
	}
}
