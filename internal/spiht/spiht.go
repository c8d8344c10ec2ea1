// Package spiht implements the SPIHT (Set Partitioning In Hierarchical
// Trees) progressive coder for quantized wavelet coefficients (spec.md
// §4.4): LIP/LIS/LSP list bookkeeping, the sorting and refinement bitplane
// passes, and the bottom-up maxDescendant precompute. List update order,
// context assignment, and the precompute are transcribed from
// original_source/source/Spiht/src/{Spiht_Enc,Spiht_Dec}.cpp. Every emitted
// symbol is pushed straight through internal/arith's incremental
// Encode/Decode rather than buffered into an intermediate (bit, context)
// stream first, since arith.Encoder/Decoder already expose a per-symbol
// API and the reference's own separate buffering step exists only because
// its arithmetic coder batches a whole stream at once.
package spiht

import (
	"container/list"
	"math"

	"hapcodec/internal/arith"
)

// Context tags, matching spec.md §4.4 "Context assignment" (0 is reserved
// for header bits).
const (
	Context0 = 0 // max_alloc_bits, wavmax header fields
	Context1 = 1 // coefficient sign
	Context2 = 2 // LIP significance
	Context3 = 3 // LIS type-A significance
	Context4 = 4 // LIS type-A child significance
	Context5 = 5 // LIS type-B significance
	Context6 = 6 // refinement bit
)

const (
	maxAllocBitsSize = 4  // MAXALLOCBITS_SIZE
	fractionBits0     = 23 // FRACTIONBITS_0: wavmax < 1
	fractionBits1     = 19 // FRACTIONBITS_1: wavmax >= 1, fractional part of (wavmax-1)
	integerBits1      = 4  // INTEGERBITS_1: wavmax >= 1, integer part of (wavmax-1)

	// MaxBits is the per-sub-band bit-allocation cap spec.md §4.3 names
	// (MAXBITS in the reference); it doubles as the largest value the
	// 4-bit max_alloc_bits header field can hold.
	MaxBits = 15
)

type lisEntry struct {
	idx int
	typ int // 0 = type A (descendants), 1 = type B (grand-descendants)
}

// Encode progressively encodes a block of already-quantized integer
// wavelet coefficients up to maxAllocBits bitplanes, prefixed by the
// header fields spec.md §4.4 names, and returns the packed (8-bits-per-
// byte) arithmetic-coded bitstream.
func Encode(coeffs []int, level, maxAllocBits int, wavmax float64) []byte {
	enc := arith.NewEncoder()
	length := len(coeffs)

	writeBits(enc, maxAllocBits, maxAllocBitsSize, Context0)
	writeWavmax(enc, wavmax)

	bandsize := 2 << uint(ilog2(length)-level)
	lip := list.New()
	for i := 0; i < bandsize; i++ {
		lip.PushBack(i)
	}
	lis := list.New()
	for i := bandsize / 2; i < bandsize; i++ {
		lis.PushBack(lisEntry{idx: i, typ: 0})
	}
	lsp := list.New()

	maxDesc, maxDesc1 := initMaxDescendants(coeffs)

	for n := maxAllocBits; n >= 0; n-- {
		compare := 1 << uint(n)
		boundary := lsp.Len()
		sortingPassEncode(enc, coeffs, lip, lis, lsp, length, compare, maxDesc, maxDesc1)
		refinementPassEncode(enc, coeffs, lsp, boundary, n)
	}

	return arith.ConvertToBytes(enc.Finish())
}

// Decode reverses Encode: given the packed bitstream, the original block
// length, and the DWT level count, it reconstructs the coefficient vector
// together with the decoded wavmax and max_alloc_bits header fields.
func Decode(data []byte, length, level int) (coeffs []int, wavmax float64, maxAllocBits int, err error) {
	bits, err := arith.ConvertToBits(data, len(data)*8)
	if err != nil {
		return nil, 0, 0, err
	}
	dec := arith.NewDecoder()
	dec.Init(bits)

	maxAllocBits = readBits(dec, maxAllocBitsSize, Context0)
	wavmax = readWavmax(dec)

	coeffs = make([]int, length)
	bandsize := 2 << uint(ilog2(length)-level)
	lip := list.New()
	for i := 0; i < bandsize; i++ {
		lip.PushBack(i)
	}
	lis := list.New()
	for i := bandsize / 2; i < bandsize; i++ {
		lis.PushBack(lisEntry{idx: i, typ: 0})
	}
	lsp := list.New()

	for n := maxAllocBits; n >= 0; n-- {
		compare := 1 << uint(n)
		boundary := lsp.Len()
		sortingPassDecode(dec, coeffs, lip, lis, lsp, length, compare)
		refinementPassDecode(dec, coeffs, lsp, boundary, n)
	}

	return coeffs, wavmax, maxAllocBits, nil
}

func sortingPassEncode(enc *arith.Encoder, coeffs []int, lip, lis, lsp *list.List, length, compare int, maxDesc, maxDesc1 []int) {
	for e := lip.Front(); e != nil; {
		next := e.Next()
		idx := e.Value.(int)
		if iabs(coeffs[idx]) >= compare {
			enc.Encode(1, Context2)
			enc.Encode(signBit(coeffs[idx]), Context1)
			lsp.PushBack(idx)
			lip.Remove(e)
		} else {
			enc.Encode(0, Context2)
		}
		e = next
	}

	lisSize := lis.Len()
	e := lis.Front()
	for i := 0; i < lisSize && e != nil; i++ {
		next := e.Next()
		entry := e.Value.(lisEntry)
		if entry.typ == 0 {
			if maxDescendant(entry.idx, 0, maxDesc, maxDesc1) >= compare {
				enc.Encode(1, Context3)
				y := entry.idx
				for _, child := range [2]int{2 * y, 2*y + 1} {
					if iabs(coeffs[child]) >= compare {
						lsp.PushBack(child)
						enc.Encode(1, Context4)
						enc.Encode(signBit(coeffs[child]), Context1)
					} else {
						enc.Encode(0, Context4)
						lip.PushBack(child)
					}
				}
				if 4*y+3 < length {
					lis.PushBack(lisEntry{idx: y, typ: 1})
					lisSize++
				}
				lis.Remove(e)
			} else {
				enc.Encode(0, Context3)
			}
		} else {
			if maxDescendant(entry.idx, 1, maxDesc, maxDesc1) >= compare {
				enc.Encode(1, Context5)
				y := entry.idx
				lis.PushBack(lisEntry{idx: 2 * y, typ: 0})
				lis.PushBack(lisEntry{idx: 2*y + 1, typ: 0})
				lisSize += 2
				lis.Remove(e)
			} else {
				enc.Encode(0, Context5)
			}
		}
		e = next
	}
}

func refinementPassEncode(enc *arith.Encoder, coeffs []int, lsp *list.List, boundary, n int) {
	e := lsp.Front()
	for i := 0; i < boundary && e != nil; i++ {
		idx := e.Value.(int)
		enc.Encode(byte(bitGet(iabs(coeffs[idx]), n+1)), Context6)
		e = e.Next()
	}
}

func sortingPassDecode(dec *arith.Decoder, coeffs []int, lip, lis, lsp *list.List, length, compare int) {
	for e := lip.Front(); e != nil; {
		next := e.Next()
		idx := e.Value.(int)
		if dec.Decode(Context2) == 1 {
			if dec.Decode(Context1) == 1 {
				coeffs[idx] = compare
			} else {
				coeffs[idx] = -compare
			}
			lsp.PushBack(idx)
			lip.Remove(e)
		}
		e = next
	}

	lisSize := lis.Len()
	e := lis.Front()
	for i := 0; i < lisSize && e != nil; i++ {
		next := e.Next()
		entry := e.Value.(lisEntry)
		if entry.typ == 0 {
			if dec.Decode(Context3) == 1 {
				y := entry.idx
				for _, child := range [2]int{2 * y, 2*y + 1} {
					if dec.Decode(Context4) == 1 {
						lsp.PushBack(child)
						if dec.Decode(Context1) == 1 {
							coeffs[child] = compare
						} else {
							coeffs[child] = -compare
						}
					} else {
						lip.PushBack(child)
					}
				}
				if 4*y+3 < length {
					lis.PushBack(lisEntry{idx: y, typ: 1})
					lisSize++
				}
				lis.Remove(e)
			}
		} else {
			if dec.Decode(Context5) == 1 {
				y := entry.idx
				lis.PushBack(lisEntry{idx: 2 * y, typ: 0})
				lis.PushBack(lisEntry{idx: 2*y + 1, typ: 0})
				lisSize += 2
				lis.Remove(e)
			}
		}
		e = next
	}
}

func refinementPassDecode(dec *arith.Decoder, coeffs []int, lsp *list.List, boundary, n int) {
	e := lsp.Front()
	for i := 0; i < boundary && e != nil; i++ {
		idx := e.Value.(int)
		if dec.Decode(Context6) == 1 {
			coeffs[idx] += sgn(coeffs[idx]) * (1 << uint(n))
		}
		e = e.Next()
	}
}

// initMaxDescendants precomputes, bottom-up, the maximum |coefficient|
// among a node's descendants (type A) and grand-descendants (type B),
// transcribed from Spiht_Enc::initMaxDescendants.
func initMaxDescendants(signal []int) (maxDescendants, maxDescendants1 []int) {
	length := len(signal)
	start := length >> 1

	maxDescendants = make([]int, start+1)
	maxDescendants1 = make([]int, (start>>1)+1)

	p1, p2 := start, start+1
	target := start >> 1
	for i := 0; i < start>>1 && p2 < length; i++ {
		v1, v2 := iabs(signal[p1]), iabs(signal[p2])
		if v1 > v2 {
			maxDescendants[target] = v1
		} else {
			maxDescendants[target] = v2
		}
		p1 += 2
		p2 += 2
		target++
	}

	width := start >> 1
	p1, p2 = width, width+1
	target = width >> 1
	for target > 1 {
		for i := 0; i < width>>1 && p2 < len(maxDescendants); i++ {
			v1, v2 := maxDescendants[p1], maxDescendants[p2]
			var m1 int
			if v1 > v2 {
				m1 = v1
			} else {
				m1 = v2
			}
			if target < len(maxDescendants1) {
				maxDescendants1[target] = m1
			}
			sv1 := iabs(signal[p1])
			if sv1 > m1 {
				maxDescendants[target] = sv1
			} else {
				maxDescendants[target] = m1
			}
			sv2 := iabs(signal[p2])
			if sv2 > maxDescendants[target] {
				maxDescendants[target] = sv2
			}
			p1 += 2
			p2 += 2
			target++
		}
		width >>= 1
		p1, p2 = width, width+1
		target = width >> 1
	}
	return maxDescendants, maxDescendants1
}

func maxDescendant(j, typ int, maxDescendants, maxDescendants1 []int) int {
	if typ == 1 {
		if j < 0 || j >= len(maxDescendants1) {
			return 0
		}
		return maxDescendants1[j]
	}
	if j < 0 || j >= len(maxDescendants) {
		return 0
	}
	return maxDescendants[j]
}

// writeWavmax encodes the block's wavelet maximum as a 1-bit mode plus a
// fixed-width quantization, transcribed from
// Spiht_Enc::maximumWaveletCoefficient. Mode 0 (wavmax < 1) uses
// fractionBits0 fractional bits; mode 1 (wavmax >= 1) uses integerBits1 +
// fractionBits1 bits of (wavmax-1).
func writeWavmax(enc *arith.Encoder, wavmax float64) {
	if wavmax < 1 {
		enc.Encode(0, Context0)
		val := int(wavmax * math.Pow(2, fractionBits0))
		writeBits(enc, val, fractionBits0, Context0)
		return
	}
	enc.Encode(1, Context0)
	val := int((wavmax - 1) * math.Pow(2, fractionBits1))
	writeBits(enc, val, integerBits1+fractionBits1, Context0)
}

// readWavmax mirrors writeWavmax. Mode 1 is decoded against fractionBits1,
// the scale writeWavmax actually quantized with -- the retrieved reference
// decoder instead shifts by a fixed 2^-4, which does not invert its own
// encoder's 2^-19 scaling for the fractional part and was treated as a
// transcription slip rather than followed. A wavmax on the quantization grid
// (a multiple of 2^-fractionBits0 below 1, or 1 plus a multiple of
// 2^-fractionBits1, such as 1.5) comes back exactly; any other value comes
// back truncated down to that grid.
func readWavmax(dec *arith.Decoder) float64 {
	mode := dec.Decode(Context0)
	if mode == 0 {
		temp := readBits(dec, fractionBits0, Context0)
		return float64(temp) * math.Pow(2, -fractionBits0)
	}
	temp := readBits(dec, integerBits1+fractionBits1, Context0)
	return float64(temp)*math.Pow(2, -fractionBits1) + 1
}

func writeBits(enc *arith.Encoder, val, length, ctx int) {
	for i := 0; i < length; i++ {
		bit := byte((val >> uint(i)) & 1)
		enc.Encode(bit, ctx)
	}
}

func readBits(dec *arith.Decoder, length, ctx int) int {
	val := 0
	for i := 0; i < length; i++ {
		val |= int(dec.Decode(ctx)) << uint(i)
	}
	return val
}

func bitGet(v, bit int) int {
	mask := 1 << uint(bit-1)
	if v&mask != 0 {
		return 1
	}
	return 0
}

func signBit(v int) byte {
	if v >= 0 {
		return 1
	}
	return 0
}

func sgn(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func iabs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func ilog2(n int) int {
	r := 0
	for v := n; v > 1; v >>= 1 {
		r++
	}
	return r
}
