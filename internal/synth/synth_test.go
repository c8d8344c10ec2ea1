package synth

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"hapcodec/internal/scene"
	"hapcodec/internal/spiht"
	"hapcodec/internal/wavelet"
)

func TestEvaluateCurveBandInterpolatesAndClamps(t *testing.T) {
	pos0, pos1 := 0, 100
	amp0, amp1 := 0.0, 1.0
	channel := scene.Channel{
		Bands: []scene.Band{
			{
				Type:      scene.BandCurve,
				CurveType: scene.CurveLinear,
				Effects: []scene.Effect{
					{
						Position: 0,
						Keyframes: []scene.Keyframe{
							{RelativePosition: &pos0, Amplitude: &amp0},
							{RelativePosition: &pos1, Amplitude: &amp1},
						},
					},
				},
			},
		},
	}

	require.InDelta(t, 0.5, Evaluate(&channel, 50), 1e-9)
	require.Equal(t, 0.0, Evaluate(&channel, -10))
	require.Equal(t, 0.0, Evaluate(&channel, 200))
}

func TestEvaluateTransientBandSumsOverlappingPulses(t *testing.T) {
	pos0 := 0
	amp0 := 0.6
	channel := scene.Channel{
		Bands: []scene.Band{
			{
				Type: scene.BandTransient,
				Effects: []scene.Effect{
					{Position: 100, Keyframes: []scene.Keyframe{{RelativePosition: &pos0, Amplitude: &amp0}}},
					{Position: 105, Keyframes: []scene.Keyframe{{RelativePosition: &pos0, Amplitude: &amp0}}},
				},
			},
		},
	}
	require.InDelta(t, 1.2, evaluateBand(&channel.Bands[0], 102), 1e-9)
	require.Equal(t, 0.0, Evaluate(&channel, 500))
}

func TestEvaluateWaveBandSineAtZeroPhaseIsZero(t *testing.T) {
	pos0, pos1 := 0, 1000
	amp := 1.0
	freq0, freq1 := 10, 10
	channel := scene.Channel{
		Bands: []scene.Band{
			{
				Type: scene.BandWave,
				Effects: []scene.Effect{
					{
						Position: 0,
						Base:     scene.SignalSine,
						Keyframes: []scene.Keyframe{
							{RelativePosition: &pos0, Amplitude: &amp, Frequency: &freq0},
							{RelativePosition: &pos1, Frequency: &freq1},
						},
					},
				},
			},
		},
	}
	require.InDelta(t, 0, Evaluate(&channel, 0), 1e-9)
}

func TestEvaluateWaveletBandRoundTripsThroughSpihtAndDWT(t *testing.T) {
	const blockLength = 64
	level := wavelet.Levels(blockLength)

	coeffs := make([]float64, blockLength)
	for i := range coeffs {
		coeffs[i] = math.Sin(float64(i)/3) * 0.4
	}
	dwt, err := wavelet.DWT(coeffs, level)
	require.NoError(t, err)

	wavmax := 0.0
	for _, c := range dwt {
		if math.Abs(c) > wavmax {
			wavmax = math.Abs(c)
		}
	}
	maxAllocBits := 10
	scale := float64(int(1)<<uint(maxAllocBits)) / wavmax
	quantized := make([]int, len(dwt))
	for i, c := range dwt {
		quantized[i] = int(math.Round(c * scale))
	}

	data := spiht.Encode(quantized, level, maxAllocBits, wavmax)

	channel := scene.Channel{
		Bands: []scene.Band{
			{
				Type:        scene.BandWaveletWave,
				BlockLength: blockLength,
				Effects: []scene.Effect{
					{Position: 0, WaveletBlocks: [][]byte{data}},
				},
			},
		},
	}

	v := Evaluate(&channel, 10)
	require.True(t, v >= -1 && v <= 1)
}

func TestEvaluateBlockSamplesAtFsHz(t *testing.T) {
	pos0, pos1 := 0, 1000
	amp0, amp1 := 0.0, 1.0
	channel := scene.Channel{
		Bands: []scene.Band{
			{
				Type:      scene.BandCurve,
				CurveType: scene.CurveLinear,
				Effects: []scene.Effect{
					{
						Position: 0,
						Keyframes: []scene.Keyframe{
							{RelativePosition: &pos0, Amplitude: &amp0},
							{RelativePosition: &pos1, Amplitude: &amp1},
						},
					},
				},
			},
		},
	}
	samples := EvaluateBlock(&channel, 5, 5, 0)
	require.Len(t, samples, 5)
	require.Equal(t, 0.0, samples[0])
}
