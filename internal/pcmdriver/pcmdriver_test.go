package pcmdriver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"hapcodec/internal/scene"
)

func TestLocalExtremaFindsPeaksAndValleys(t *testing.T) {
	signal := []float64{0, 1, 0, -1, 0, 1, 0}
	points := LocalExtrema(signal, false)
	require.Len(t, points, 3)
	require.Equal(t, 1.0, points[0].X)
	require.Equal(t, 1.0, points[0].Y)
	require.Equal(t, 3.0, points[1].X)
	require.Equal(t, -1.0, points[1].Y)
}

func TestLocalExtremaFlatPlateauCollapsedToOnePoint(t *testing.T) {
	signal := []float64{0, 1, 1, 1, 0}
	points := LocalExtrema(signal, false)
	require.Len(t, points, 1)
	require.Equal(t, 1.0, points[0].X)
	require.Equal(t, 1.0, points[0].Y)
}

func TestLocalExtremaPlateauScenario(t *testing.T) {
	signal := []float64{0, 0, 1, 2, 3, 4, 4, 4, 3, 2, 2, 3, 4, 6, 8, 7, 8, 6, 3, 1, 0}

	points := LocalExtrema(signal, false)
	require.Len(t, points, 5)
	wantX := []float64{5, 10, 14, 15, 16}
	wantY := []float64{4, 2, 8, 7, 8}
	for i, p := range points {
		require.Equal(t, wantX[i], p.X)
		require.Equal(t, wantY[i], p.Y)
	}

	withBorder := LocalExtrema(signal, true)
	require.Len(t, withBorder, 7)
	require.Equal(t, 0.0, withBorder[0].X)
	require.Equal(t, 0.0, withBorder[0].Y)
	require.Equal(t, 20.0, withBorder[len(withBorder)-1].X)
	require.Equal(t, 0.0, withBorder[len(withBorder)-1].Y)
	for i, p := range withBorder[1 : len(withBorder)-1] {
		require.Equal(t, wantX[i], p.X)
		require.Equal(t, wantY[i], p.Y)
	}
}

func TestLocalExtremaIncludeBorder(t *testing.T) {
	signal := []float64{5, 1, 0, -1, 0, 1, 9}
	points := LocalExtrema(signal, true)
	require.Equal(t, 0.0, points[0].X)
	require.Equal(t, 5.0, points[0].Y)
	last := points[len(points)-1]
	require.Equal(t, 6.0, last.X)
	require.Equal(t, 9.0, last.Y)
}

func TestCurveTypeFor(t *testing.T) {
	require.Equal(t, scene.CurveLinear, curveTypeFor(scene.ModalityPressure))
	require.Equal(t, scene.CurveLinear, curveTypeFor(scene.ModalityStiffness))
	require.Equal(t, scene.CurveCubic, curveTypeFor(scene.ModalityVibration))
	require.Equal(t, scene.CurveCubic, curveTypeFor(scene.ModalityVibrotactileTexture))
	require.Equal(t, scene.CurveUnknown, curveTypeFor(scene.ModalityTemperature))
}

func TestBlockSamplesRoundsUpToPowerOfTwo(t *testing.T) {
	require.Equal(t, 64, blockSamples(1, 8000))
	require.Equal(t, 256, blockSamples(30, 8000))
}

func TestEncodeProducesCurveAndWaveletBands(t *testing.T) {
	const sr = 8000
	n := 1024
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * 50 * float64(i) / sr)
	}

	cfg := EncodingConfig{
		CurveFrequencyLimitHz:    72,
		WaveletWindowLengthMs:    32,
		WaveletBitBudgetPerBlock: 64,
	}

	channels, err := Encode(cfg, [][]float64{samples}, sr, scene.ModalityVibration)
	require.NoError(t, err)
	require.Len(t, channels, 1)

	ch := channels[0]
	require.Len(t, ch.Bands, 2)
	require.Equal(t, scene.BandCurve, ch.Bands[0].Type)
	require.Equal(t, scene.CurveCubic, ch.Bands[0].CurveType)
	require.NotEmpty(t, ch.Bands[0].Effects[0].Keyframes)

	waveletBand := ch.Bands[1]
	require.Equal(t, scene.BandWaveletWave, waveletBand.Type)
	require.True(t, waveletBand.BlockLength > 0)
	require.NotEmpty(t, waveletBand.Effects[0].WaveletBlocks)
	for _, blk := range waveletBand.Effects[0].WaveletBlocks {
		require.NotEmpty(t, blk)
	}

	require.NotNil(t, ch.SamplingFrequency)
	require.Equal(t, sr, *ch.SamplingFrequency)
	require.NotNil(t, ch.SampleCount)
	require.Equal(t, n, *ch.SampleCount)
}

func TestEncodeWithoutCurveBandSkipsResidual(t *testing.T) {
	samples := make([]float64, 256)
	for i := range samples {
		samples[i] = float64(i%7) / 7
	}
	cfg := EncodingConfig{
		CurveFrequencyLimitHz:    0,
		WaveletWindowLengthMs:    16,
		WaveletBitBudgetPerBlock: 32,
	}
	channels, err := Encode(cfg, [][]float64{samples}, 8000, scene.ModalityVibration)
	require.NoError(t, err)
	require.Len(t, channels[0].Bands, 1)
	require.Equal(t, scene.BandWaveletWave, channels[0].Bands[0].Type)
}

func TestEncodeMultiChannelParallel(t *testing.T) {
	samples := make([][]float64, 4)
	for c := range samples {
		samples[c] = make([]float64, 256)
		for i := range samples[c] {
			samples[c][i] = math.Sin(float64(i) * float64(c+1) / 20)
		}
	}
	cfg := EncodingConfig{
		CurveFrequencyLimitHz:    72,
		WaveletWindowLengthMs:    16,
		WaveletBitBudgetPerBlock: 32,
	}
	channels, err := Encode(cfg, samples, 8000, scene.ModalityVibration)
	require.NoError(t, err)
	require.Len(t, channels, 4)
	for i, ch := range channels {
		require.Equal(t, i, ch.ID)
	}
}
