// Package wavelet implements the 9/7 biorthogonal discrete wavelet
// transform used as the analysis filterbank for the high (wavelet) band
// (spec.md §4.2). Filter coefficients and the symmetric-extension
// convolution are transcribed from
// original_source/source/FilterBank/{include,src}/Wavelet.{h,cpp}.
package wavelet

import "fmt"

const (
	lp0 = 0.852698679009404
	lp1 = 0.377402855612654
	lp2 = -0.110624404418423
	lp3 = -0.023849465019380
	lp4 = 0.037828455506995

	hp0 = -0.788485616405665
	hp1 = 0.418092273222212
	hp2 = 0.040689417609559
	hp3 = -0.064538882628938
)

// Analysis and synthesis filter taps. lp/hp decompose; lpr/hpr reconstruct.
var (
	lp  = [9]float64{lp4, lp3, lp2, lp1, lp0, lp1, lp2, lp3, lp4}
	hp  = [7]float64{hp3, hp2, hp1, hp0, hp1, hp2, hp3}
	lpr = [7]float64{hp3, -hp2, hp1, -hp0, hp1, -hp2, hp3}
	hpr = [9]float64{-lp4, lp3, -lp2, lp1, -lp0, lp1, -lp2, lp3, -lp4}
)

// isPow2 reports whether n is a positive power of two.
func isPow2(n int) bool { return n > 0 && n&(n-1) == 0 }

// DWT runs `levels` recursive decomposition levels over in, which must have
// power-of-two length at least 2^(levels+2) per spec.md §4.2. The result has
// the same length as in: the final low band occupies the front, each
// successive level's high band is appended after it, coarsest first... the
// exact interleaving matches the reference's in-place layout (see InvDWT).
func DWT(in []float64, levels int) ([]float64, error) {
	if !isPow2(len(in)) {
		return nil, fmt.Errorf("wavelet: input length %d is not a power of two", len(in))
	}
	if levels < 1 {
		return nil, fmt.Errorf("wavelet: levels must be >= 1, got %d", levels)
	}
	if len(in) < 1<<uint(levels+2) {
		return nil, fmt.Errorf("wavelet: input length %d is below 2^(levels+2) for %d levels", len(in), levels)
	}

	out := make([]float64, len(in))
	x := append([]float64(nil), in...)

	for i := 0; i < levels; i++ {
		length := len(in) >> uint(i)
		if length < 4 {
			return nil, fmt.Errorf("wavelet: level %d band too short (%d samples) for a 9/7 filter", i, length)
		}
		xTemp := x[:length]

		l := symConv(xTemp, lp[:])
		h := symConv(xTemp, hp[:])

		outAdd := length >> 1
		outIdx := 0
		for j := 0; j < length; j += 2 {
			out[outIdx] = l[j]
			out[outIdx+outAdd] = h[j+1]
			x[outIdx] = l[j]
			outIdx++
		}
	}
	return out, nil
}

// InvDWT reverses DWT: it reconstructs the original samples from `levels`
// coded levels, within 1e-5 for any input DWT produced (spec.md §4.2, §8).
func InvDWT(in []float64, levels int) ([]float64, error) {
	if !isPow2(len(in)) {
		return nil, fmt.Errorf("wavelet: input length %d is not a power of two", len(in))
	}
	if levels < 1 {
		return nil, fmt.Errorf("wavelet: levels must be >= 1, got %d", levels)
	}

	out := append([]float64(nil), in...)

	for i := levels - 1; i >= 0; i-- {
		length := len(in) >> uint(i)
		l := make([]float64, length)
		h := make([]float64, length)
		for j := 0; j < length; j += 2 {
			l[j] = out[j/2]
			h[j+1] = out[j/2+length/2]
		}
		rebuilt := symConv(h, hpr[:])
		symConvAdd(l, lpr[:], rebuilt)
		copy(out[:length], rebuilt)
	}
	return out, nil
}

// symConv convolves in with filter h using whole-sample symmetric
// extension by floor(len(h)/2) samples on each end, returning a slice the
// same length as in.
func symConv(in []float64, h []float64) []float64 {
	lext := len(h) / 2
	extended := symExtend(in, lext)
	conv := conv1D(extended, h)
	out := make([]float64, len(in))
	copy(out, conv[2*lext:2*lext+len(in)])
	return out
}

// symConvAdd is symConv but accumulates into (adds to) dst rather than
// returning a fresh slice, used when reconstructing a level as the sum of
// the high- and low-band contributions.
func symConvAdd(in []float64, h []float64, dst []float64) {
	lext := len(h) / 2
	extended := symExtend(in, lext)
	conv := conv1D(extended, h)
	for i := range in {
		dst[i] += conv[i+len(h)-1]
	}
}

// symExtend mirrors lext samples off each end of in, whole-sample
// symmetric (excluding the boundary sample itself), matching the
// reference's temp_l/temp_r construction.
func symExtend(in []float64, lext int) []float64 {
	left := make([]float64, lext)
	for i := 0; i < lext; i++ {
		left[lext-1-i] = in[1+i]
	}
	right := make([]float64, lext)
	for i := 0; i < lext; i++ {
		right[i] = in[len(in)-2-i]
	}
	out := make([]float64, 0, len(in)+2*lext)
	out = append(out, left...)
	out = append(out, in...)
	out = append(out, right...)
	return out
}

// conv1D is direct (not FFT) convolution, matching the reference's
// straightforward nested-loop implementation for these short (7/9-tap)
// filters.
func conv1D(in []float64, h []float64) []float64 {
	out := make([]float64, len(in)+len(h)-1)
	for j := range in {
		out[j] = in[j] * h[0]
	}
	for i := 1; i < len(h); i++ {
		for j := i; j < len(in)+i; j++ {
			out[j] += in[j-i] * h[i]
		}
	}
	return out
}

// Levels returns the spec-fixed level count for a block of bl samples:
// floor(log2(bl)) - 2 (spec.md Open Question (b)).
func Levels(bl int) int {
	n := 0
	for v := bl; v > 1; v >>= 1 {
		n++
	}
	return n - 2
}
