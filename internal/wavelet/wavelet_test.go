package wavelet

import (
	"fmt"
	"math"
	"testing"
)

func maxAbsDiff(a, b []float64) float64 {
	max := 0.0
	for i := range a {
		d := math.Abs(a[i] - b[i])
		if d > max {
			max = d
		}
	}
	return max
}

func TestRoundTripPowersOfTwo(t *testing.T) {
	lengths := []int{64, 128, 256, 512, 1024, 2048}
	for _, length := range lengths {
		length := length
		maxLevels := int(math.Log2(float64(length))) - 3
		for level := 1; level <= maxLevels; level++ {
			level := level
			t.Run(fmt.Sprintf("len=%d/level=%d", length, level), func(t *testing.T) {
				x := make([]float64, length)
				for i := range x {
					x[i] = math.Sin(float64(i)*0.1) + 0.3*float64(i%7)
				}
				coded, err := DWT(x, level)
				if err != nil {
					t.Fatalf("DWT(len=%d, level=%d): %v", length, level, err)
				}
				rec, err := InvDWT(coded, level)
				if err != nil {
					t.Fatalf("InvDWT(len=%d, level=%d): %v", length, level, err)
				}
				if d := maxAbsDiff(x, rec); d > 1e-5 {
					t.Errorf("len=%d level=%d: max abs diff %g exceeds 1e-5", length, level, d)
				}
			})
		}
	}
}

// TestIdentity128 is the concrete scenario from spec.md §8: a 128-sample
// ramp, one DWT level, reconstructs to within 1e-5.
func TestIdentity128(t *testing.T) {
	x := make([]float64, 128)
	for i := range x {
		x[i] = float64(i)
	}
	coded, err := DWT(x, 1)
	if err != nil {
		t.Fatalf("DWT: %v", err)
	}
	rec, err := InvDWT(coded, 1)
	if err != nil {
		t.Fatalf("InvDWT: %v", err)
	}
	if d := maxAbsDiff(x, rec); d > 1e-5 {
		t.Errorf("max abs diff %g exceeds 1e-5", d)
	}
}

func TestLevels(t *testing.T) {
	cases := []struct {
		bl   int
		want int
	}{
		{512, 7},
		{64, 4},
		{2048, 9},
	}
	for _, c := range cases {
		if got := Levels(c.bl); got != c.want {
			t.Errorf("Levels(%d) = %d, want %d", c.bl, got, c.want)
		}
	}
}

func TestRejectsNonPowerOfTwo(t *testing.T) {
	if _, err := DWT(make([]float64, 100), 1); err == nil {
		t.Error("expected error for non-power-of-two length")
	}
}
