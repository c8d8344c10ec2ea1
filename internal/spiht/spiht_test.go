package spiht

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	coeffs := make([]int, 512)
	coeffs[0] = 4
	coeffs[3] = 3
	coeffs[257] = 1
	const level = 7
	const maxAllocBits = 4
	const wavmax = 1.5

	data := Encode(coeffs, level, maxAllocBits, wavmax)
	got, gotWavmax, gotMaxAllocBits, err := Decode(data, len(coeffs), level)
	require.NoError(t, err)
	require.Equal(t, coeffs, got)
	require.Equal(t, maxAllocBits, gotMaxAllocBits)
	require.InDelta(t, wavmax, gotWavmax, 1e-11)
}

func TestEncodeDecodeRandomBlocks(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		length := 128
		coeffs := make([]int, length)
		for i := range coeffs {
			if rng.Float64() < 0.1 {
				coeffs[i] = rng.Intn(31) - 15
			}
		}
		level := 5
		maxAllocBits := 4
		wavmax := 0.25 + rng.Float64()*4

		data := Encode(coeffs, level, maxAllocBits, wavmax)
		got, gotWavmax, gotMaxAllocBits, err := Decode(data, length, level)
		require.NoError(t, err)
		require.Equal(t, maxAllocBits, gotMaxAllocBits)
		require.InDelta(t, wavmax, gotWavmax, 1e-9)

		for i := range coeffs {
			if iabs(coeffs[i]) < (1 << uint(maxAllocBits)) {
				require.Equal(t, coeffs[i], got[i], "index %d", i)
			}
		}
	}
}

func TestMaxDescendantOutOfBounds(t *testing.T) {
	require.Equal(t, 0, maxDescendant(-1, 0, nil, nil))
	require.Equal(t, 0, maxDescendant(100, 1, []int{1, 2}, []int{3}))
}
