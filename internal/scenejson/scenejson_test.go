package scenejson

import (
	"testing"

	"github.com/stretchr/testify/require"

	"hapcodec/internal/scene"
)

func sampleScene() *scene.Haptics {
	refDeviceID := 2
	freq := 8000
	pos0 := 0
	amp0 := 0.75

	h := scene.NewHaptics("1.0", "2026-07-31", "json round trip fixture")
	h.Avatars = []scene.Avatar{
		{ID: 0, LOD: 1, Type: scene.AvatarPressure},
	}

	p := scene.Perception{
		ID:               0,
		AvatarID:         0,
		Description:      "pressure channel",
		Modality:         scene.ModalityPressure,
		UnitExponent:     scene.DefaultUnitExponent,
		ModalityExponent: scene.DefaultModalityExponent,
	}
	p.ReferenceDevices = []scene.ReferenceDevice{
		{
			ID:           2,
			Name:         "piezo-ref",
			MaxAmplitude: 0.9,
			Actuator:     scene.ActuatorPiezo,
			Present:      scene.PresentMaxAmplitude | scene.PresentActuator,
		},
	}
	p.Channels = []scene.Channel{
		{
			ID:                0,
			Gain:              1,
			MixingWeight:      1,
			ReferenceDeviceID: &refDeviceID,
			SamplingFrequency: &freq,
			Bands: []scene.Band{
				{
					Type:      scene.BandCurve,
					CurveType: scene.CurveLinear,
					Effects: []scene.Effect{
						{
							Position: 0,
							Type:     scene.EffectBasis,
							Semantic: &scene.SemanticTag{Layer1: 1, Layer2: 3},
							Keyframes: []scene.Keyframe{
								{RelativePosition: &pos0, Amplitude: &amp0},
							},
						},
					},
				},
			},
		},
	}
	h.Perceptions = []scene.Perception{p}
	return &h
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	h := sampleScene()

	data, err := Marshal(h)
	require.NoError(t, err)
	require.Contains(t, string(data), `"type": "pressure"`)
	require.Contains(t, string(data), `"curve_type": "linear"`)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, h, got)
}

func TestUnmarshalUnknownEnum(t *testing.T) {
	_, err := Unmarshal([]byte(`{"version":"1.0","date":"x","avatars":[{"id":0,"lod":0,"type":"not_a_type"}],"perceptions":[]}`))
	require.Error(t, err)
}
