package filterbank

import "math"

// butterworthOrder is the fixed filter order the reference curve/wavelet
// split uses (original_source/tools/src/Filterbank.cpp: constexpr int ORDER = 8).
const butterworthOrder = 8

// biquad is one second-order section in direct-form-II-transposed layout.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	z1, z2     float64 // state
}

func (s *biquad) reset() { s.z1, s.z2 = 0, 0 }

func (s *biquad) step(x float64) float64 {
	y := s.b0*x + s.z1
	s.z1 = s.b1*x + s.z2 - s.a1*y
	s.z2 = s.b2*x - s.a2*y
	return y
}

// highpass selects whether the cascade implements a high-pass (true) or
// low-pass (false) response; both share the same Butterworth pole layout
// under the bilinear transform, differing only in the per-section
// coefficient derivation below.
func newButterworth(fs, cutoff float64, highpass bool) []biquad {
	sections := butterworthOrder / 2
	warped := math.Tan(math.Pi * cutoff / fs)

	biquads := make([]biquad, sections)
	for k := 0; k < sections; k++ {
		// Analog Butterworth pole angle for this conjugate pair
		// (standard pole placement, see e.g. any IIR filter-design text).
		theta := math.Pi * (2*float64(k) + 1) / (2 * float64(butterworthOrder))
		// Pole of the normalized analog lowpass prototype, scaled by the
		// pre-warped cutoff and rotated onto the unit circle via the
		// bilinear transform (s = (z-1)/(z+1), normalized by warped cutoff).
		realPart := -math.Sin(theta) * warped
		imagPart := math.Cos(theta) * warped

		// Bilinear-transformed denominator: |1 - s|^2 with s = realPart + i*imagPart.
		denom := (1-realPart)*(1-realPart) + imagPart*imagPart

		a1 := 2 * (realPart*realPart + imagPart*imagPart - 1) / denom
		a2 := ((1+realPart)*(1+realPart) + imagPart*imagPart) / denom

		var b0, b1, b2 float64
		if highpass {
			gain := 1 / (4 * denom)
			b0 = 4 * gain
			b1 = -8 * gain
			b2 = 4 * gain
		} else {
			gain := (warped * warped) / denom
			b0 = gain
			b1 = 2 * gain
			b2 = gain
		}

		biquads[k] = biquad{b0: b0, b1: b1, b2: b2, a1: a1, a2: a2}
	}
	return normalizeDC(biquads, highpass)
}

// normalizeDC scales the cascade's b-coefficients so the overall response is
// unity at the passband reference point (DC for lowpass, Nyquist for
// highpass), correcting for the per-section gain approximation above.
func normalizeDC(biquads []biquad, highpass bool) []biquad {
	var probe float64
	if highpass {
		probe = -1 // z = -1, Nyquist
	} else {
		probe = 1 // z = 1, DC
	}

	gain := 1.0
	for _, s := range biquads {
		num := s.b0 + s.b1*probe + s.b2*probe*probe
		den := 1 + s.a1*probe + s.a2*probe*probe
		if den != 0 {
			gain *= num / den
		}
	}
	if gain == 0 {
		return biquads
	}
	scale := math.Pow(1/gain, 1/float64(len(biquads)))
	out := make([]biquad, len(biquads))
	for i, s := range biquads {
		s.b0 *= scale
		s.b1 *= scale
		s.b2 *= scale
		out[i] = s
	}
	return out
}

func runCascade(biquads []biquad, in []float64) []float64 {
	out := make([]float64, len(in))
	copy(out, in)
	for i := range biquads {
		s := &biquads[i]
		for j, x := range out {
			out[j] = s.step(x)
		}
	}
	return out
}

// zeroPhase runs the cascade forward, resets state, then runs the result
// reversed through the same cascade, matching the reference's
// forward-then-reset-then-reversed filtering (Filterbank::LP / Filterbank::HP).
func zeroPhase(biquads []biquad, in []float64) []float64 {
	forward := runCascade(biquads, in)
	for i := range biquads {
		biquads[i].reset()
	}
	reversed := make([]float64, len(forward))
	for i, v := range forward {
		reversed[len(forward)-1-i] = v
	}
	back := runCascade(biquads, reversed)
	out := make([]float64, len(back))
	for i, v := range back {
		out[len(back)-1-i] = v
	}
	return out
}
