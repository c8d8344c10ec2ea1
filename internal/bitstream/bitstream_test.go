package bitstream

import (
	"testing"

	"github.com/stretchr/testify/require"

	"hapcodec/internal/scene"
)

func sampleScene() *scene.Haptics {
	refDeviceID := 1
	freq := 8000
	count := 256

	h := scene.NewHaptics("1.0", "2026-07-31", "round trip fixture")
	h.Avatars = []scene.Avatar{
		{ID: 0, LOD: 1, Type: scene.AvatarVibration},
		{ID: 1, LOD: 2, Type: scene.AvatarCustom, Mesh: "hand.glb"},
	}

	p := scene.NewPerception(0, 1, "palm vibration", scene.ModalityVibration)
	p.ReferenceDevices = []scene.ReferenceDevice{
		{
			ID:           1,
			Name:         "LRA-ref",
			BodyPartMask: 0x00F0,
			MaxFrequency: 320,
			MaxAmplitude: 1.2,
			Actuator:     scene.ActuatorLRA,
			Present:      scene.PresentMaxFrequency | scene.PresentMaxAmplitude | scene.PresentActuator,
		},
	}
	amp1, amp2 := 0.5, -0.25
	freqK := 200
	pos0, pos1 := 0, 120
	p.Channels = []scene.Channel{
		{
			ID:                0,
			Description:       "channel-0",
			Gain:              1.0,
			MixingWeight:      0.8,
			BodyPartMask:      0x0001,
			ReferenceDeviceID: &refDeviceID,
			SamplingFrequency: &freq,
			SampleCount:       &count,
			Direction:         &scene.Vec3{X: 0, Y: 1, Z: 0},
			BodyPartTargets:   []scene.BodyPartTarget{scene.BodyPartHandLeft},
			ActuatorTargets:   []scene.Vec3{{X: 1, Y: 2, Z: 3}},
			Vertices:          []int{10, 20, 30},
			Bands: []scene.Band{
				{
					Type:                scene.BandCurve,
					CurveType:           scene.CurveCubic,
					LowerFrequencyLimit: 0,
					UpperFrequencyLimit: 72,
					Effects: []scene.Effect{
						{
							Position: 0,
							Phase:    0,
							Base:     scene.SignalSine,
							Type:     scene.EffectBasis,
							Semantic: &scene.SemanticTag{Layer1: 2, Layer2: 9},
							Keyframes: []scene.Keyframe{
								{RelativePosition: &pos0, Amplitude: &amp1, Frequency: &freqK},
								{RelativePosition: &pos1, Amplitude: &amp2},
							},
						},
						{
							Position: 300,
							Type:     EffectTimelineHelper(),
							Children: []scene.Effect{
								{Position: 0, Type: scene.EffectReference, ReferenceID: 5},
							},
						},
					},
				},
				{
					Type:                scene.BandWaveletWave,
					BlockLength:         512,
					LowerFrequencyLimit: 72,
					UpperFrequencyLimit: 1000,
					Effects: []scene.Effect{
						{
							Position: 0,
							Type:     scene.EffectBasis,
							WaveletBlocks: [][]byte{
								{1, 2, 3, 4, 5},
								{},
								{255, 0, 128},
							},
						},
					},
				},
			},
		},
	}
	p.EffectLibrary[5] = scene.Effect{
		Position: 0,
		Base:     scene.SignalSquare,
		Type:     scene.EffectBasis,
		Keyframes: []scene.Keyframe{
			{RelativePosition: &pos0, Amplitude: &amp1},
		},
	}
	h.Perceptions = []scene.Perception{p}

	scale := 1000
	h.SyncMarkers = []scene.SyncMarker{
		{Timestamp: 0},
		{Timestamp: 500, Timescale: &scale},
	}
	return &h
}

// EffectTimelineHelper avoids importing scene.EffectTimeline twice in the
// struct literal above while keeping the fixture readable.
func EffectTimelineHelper() scene.EffectType { return scene.EffectTimeline }

func TestEncodeDecodeRoundTrip(t *testing.T) {
	h := sampleScene()

	data, err := Encode(h)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	got, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, h, got)
}

func TestEncodeDecodeEmptyScene(t *testing.T) {
	h := scene.NewHaptics("1.0", "2026-07-31", "empty")

	data, err := Encode(&h)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, &h, got)
}
