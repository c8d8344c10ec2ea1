// Package filterbank splits a PCM signal into a low-frequency curve band
// and a high-frequency residual (spec.md §4.1/§4.6 step 1) and provides the
// shared FFT used by internal/psychohaptic. Filter design and the
// zero-phase forward/reverse application pattern are transcribed from
// original_source/tools/src/Filterbank.cpp; the FFT itself is delegated to
// gonum.org/v1/gonum/dsp/fourier rather than hand-rolled, per
// original_source/source/FilterBank/include/FourierTools.h's API shape.
package filterbank

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Filterbank applies the fixed-order Butterworth curve/wavelet split at a
// given sample rate. It holds only the sample rate: LP and HP build a fresh
// filter cascade on every call, so no filter state is shared between calls.
type Filterbank struct {
	fs float64
}

// New returns a Filterbank operating at the given sample rate in Hz.
func New(fs float64) *Filterbank {
	return &Filterbank{fs: fs}
}

// LP zero-phase low-pass filters in at cutoff f Hz.
func (fb *Filterbank) LP(in []float64, f float64) []float64 {
	biquads := newButterworth(fb.fs, f, false)
	return zeroPhase(biquads, in)
}

// HP zero-phase high-pass filters in at cutoff f Hz.
func (fb *Filterbank) HP(in []float64, f float64) []float64 {
	biquads := newButterworth(fb.fs, f, true)
	return zeroPhase(biquads, in)
}

// GetAmplitude returns the magnitude of a complex FFT bin.
func GetAmplitude(c complex128) float64 { return cmplx.Abs(c) }

// GetPhase returns the phase, in radians, of a complex FFT bin.
func GetPhase(c complex128) float64 { return cmplx.Phase(c) }

// GetFrequency returns the center frequency, in Hz, of FFT bin index out of
// an fftSize-point transform sampled at samplerate.
func GetFrequency(index, fftSize int, samplerate float64) float64 {
	return float64(index) * samplerate / float64(fftSize)
}

// FFT computes the forward real-input FFT of in, zero-padded/truncated to
// the next power of two at least as large as len(in) if fftSize <= 0, and
// returns fftSize/2+1 complex bins (real-input spectra are conjugate
// symmetric, matching the reference's use of only the positive-frequency
// half).
func FFT(in []float64, fftSize int) []complex128 {
	if fftSize <= 0 {
		fftSize = nextPow2(len(in))
	}
	padded := make([]float64, fftSize)
	copy(padded, in)

	fft := fourier.NewFFT(fftSize)
	return fft.Coefficients(nil, padded)
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	if p == 0 {
		p = 1
	}
	return p
}

// AmplitudeSpectrumDB returns 20*log10(amplitude) for each positive-frequency
// FFT bin, with a floor to avoid -Inf for exact-zero bins (psychohaptic
// masking works entirely in dB, spec.md §4.3).
func AmplitudeSpectrumDB(in []float64, fftSize int) []float64 {
	bins := FFT(in, fftSize)
	out := make([]float64, len(bins))
	const floorDB = -300.0
	for i, c := range bins {
		a := GetAmplitude(c)
		if a <= 0 {
			out[i] = floorDB
			continue
		}
		db := 20 * math.Log10(a)
		if db < floorDB {
			db = floorDB
		}
		out[i] = db
	}
	return out
}
