package filterbank

import (
	"math"
	"testing"
)

func TestLowPassAttenuatesHighFrequency(t *testing.T) {
	const fs = 8000.0
	const n = 512
	in := make([]float64, n)
	for i := range in {
		// A tone well above the cutoff should be strongly attenuated.
		in[i] = math.Sin(2 * math.Pi * 2000 * float64(i) / fs)
	}

	fb := New(fs)
	out := fb.LP(in, 72)

	if rmsOf(out) >= 0.5*rmsOf(in) {
		t.Errorf("expected low-pass to attenuate a 2000Hz tone well above a 72Hz cutoff, got rms in=%g out=%g", rmsOf(in), rmsOf(out))
	}
}

func TestHighPassAttenuatesLowFrequency(t *testing.T) {
	const fs = 8000.0
	const n = 512
	in := make([]float64, n)
	for i := range in {
		in[i] = math.Sin(2 * math.Pi * 20 * float64(i) / fs)
	}

	fb := New(fs)
	out := fb.HP(in, 500)

	if rmsOf(out) >= 0.5*rmsOf(in) {
		t.Errorf("expected high-pass to attenuate a 20Hz tone well below a 500Hz cutoff, got rms in=%g out=%g", rmsOf(in), rmsOf(out))
	}
}

func TestGetFrequency(t *testing.T) {
	got := GetFrequency(10, 1024, 8000)
	want := 10.0 * 8000 / 1024
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("GetFrequency = %g, want %g", got, want)
	}
}

func rmsOf(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}
