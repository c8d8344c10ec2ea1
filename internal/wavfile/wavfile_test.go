package wavfile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	const sr = 8000
	ch0 := make([]float64, 100)
	ch1 := make([]float64, 100)
	for i := range ch0 {
		ch0[i] = math.Sin(float64(i) / 5)
		ch1[i] = -math.Sin(float64(i) / 5)
	}

	data, err := Write([][]float64{ch0, ch1}, sr)
	require.NoError(t, err)
	require.Equal(t, "RIFF", string(data[0:4]))
	require.Equal(t, "WAVE", string(data[8:12]))

	file, err := Read(data)
	require.NoError(t, err)
	require.Equal(t, sr, file.SampleRate)
	require.Len(t, file.Channels, 2)
	for i := range ch0 {
		require.InDelta(t, ch0[i], file.Channels[0][i], 5e-5)
		require.InDelta(t, ch1[i], file.Channels[1][i], 5e-5)
	}
}

func TestWriteClampsOutOfRangeSamples(t *testing.T) {
	data, err := Write([][]float64{{2, -2, 0}}, 8000)
	require.NoError(t, err)

	file, err := Read(data)
	require.NoError(t, err)
	require.InDelta(t, 1.0, file.Channels[0][0], 1e-3)
	require.InDelta(t, -1.0, file.Channels[0][1], 1e-3)
}

func TestWriteRejectsMismatchedChannelLengths(t *testing.T) {
	_, err := Write([][]float64{{1, 2, 3}, {1, 2}}, 8000)
	require.Error(t, err)
}

func TestReadRejectsNonRIFF(t *testing.T) {
	_, err := Read([]byte("not a wav file at all"))
	require.Error(t, err)
}

func TestReadRejectsNonPCMFormat(t *testing.T) {
	data, err := Write([][]float64{{0, 0}}, 8000)
	require.NoError(t, err)
	// corrupt the audio format field (offset 20) to something non-PCM
	data[20] = 3
	_, err = Read(data)
	require.Error(t, err)
}
