// Package curveimport reads the parameter-curve authoring format (spec.md
// §1 "parameter curves", §6 CLI ".json|.ahap") into a scene.Perception.
// Grounded on original_source/RM0_Encoder/src/AhapEncoder.cpp: a top-level
// "Pattern" array of events, each either a "ParameterCurve" (with a
// ParameterID of "HapticIntensityControl" for amplitude or
// "HapticSharpnessControl" for frequency) or an "Event" with its own
// EventParameters -- transient or continuous basis effects placed at a
// fixed Time.
package curveimport

import (
	"encoding/json"

	"hapcodec/internal/haperr"
	"hapcodec/internal/scene"
)

type document struct {
	Version  float64       `json:"Version"`
	Metadata ahapMetadata  `json:"Metadata,omitempty"`
	Pattern  []patternItem `json:"Pattern"`
}

type ahapMetadata struct {
	Created string `json:"Created,omitempty"`
	Project string `json:"Project,omitempty"`
}

type patternItem struct {
	ParameterCurve *parameterCurve `json:"ParameterCurve,omitempty"`
	Event          *ahapEvent      `json:"Event,omitempty"`
}

type parameterCurve struct {
	ParameterID   string                `json:"ParameterID"`
	Time          float64               `json:"Time"`
	ControlPoints []parameterCurvePoint `json:"ParameterCurveControlPoints"`
}

type parameterCurvePoint struct {
	Time           float64 `json:"Time"`
	ParameterValue float64 `json:"ParameterValue"`
}

type ahapEvent struct {
	EventType       string       `json:"EventType"` // HapticTransient|HapticContinuous
	Time            float64      `json:"Time"`       // seconds
	EventDuration   float64      `json:"EventDuration,omitempty"`
	EventParameters []eventParam `json:"EventParameters,omitempty"`
}

type eventParam struct {
	ParameterID    string  `json:"ParameterID"` // HapticIntensity|HapticSharpness
	ParameterValue float64 `json:"ParameterValue"`
}

// keyframe is a (time-seconds, value) pair extracted from a
// ParameterCurve, mirroring AhapEncoder::extractKeyframes's
// std::pair<double,double> output.
type keyframe struct {
	timeSec float64
	value   float64
}

// Import parses an AHAP-style parameter-curve document into a single
// Vibration perception with one channel. Its bands, each added only when
// the document has data for it, are: a Curve band from the
// HapticIntensityControl curves, a Curve band from the
// HapticSharpnessControl curves, and a Transient band with one effect per
// transient/continuous event carrying that event's intensity/sharpness.
func Import(data []byte) (scene.Perception, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return scene.Perception{}, haperr.Wrap(haperr.Parse, err, "curveimport: decode")
	}

	var amplitudes, frequencies []keyframe
	var events []ahapEvent

	for _, item := range doc.Pattern {
		switch {
		case item.ParameterCurve != nil:
			pc := item.ParameterCurve
			kfs := extractKeyframes(pc)
			switch pc.ParameterID {
			case "HapticIntensityControl":
				amplitudes = append(amplitudes, kfs...)
			case "HapticSharpnessControl":
				frequencies = append(frequencies, kfs...)
			default:
				return scene.Perception{}, haperr.New(haperr.Parse, "curveimport: unknown ParameterID %q", pc.ParameterID)
			}
		case item.Event != nil:
			events = append(events, *item.Event)
		}
	}

	p := scene.NewPerception(0, 0, "imported from parameter curves", scene.ModalityVibration)
	channel := scene.Channel{ID: 0, Gain: 1, MixingWeight: 1}

	if len(amplitudes) > 0 {
		channel.Bands = append(channel.Bands, curveBand(amplitudes))
	}
	if len(frequencies) > 0 {
		channel.Bands = append(channel.Bands, curveBand(frequencies))
	}
	if band := eventsBand(events); len(band.Effects) > 0 {
		channel.Bands = append(channel.Bands, band)
	}

	p.Channels = append(p.Channels, channel)
	return p, nil
}

// extractKeyframes mirrors AhapEncoder::extractKeyframes: each control
// point's time is offset by the owning curve's own Time.
func extractKeyframes(pc *parameterCurve) []keyframe {
	out := make([]keyframe, len(pc.ControlPoints))
	for i, cp := range pc.ControlPoints {
		out[i] = keyframe{timeSec: cp.Time + pc.Time, value: cp.ParameterValue}
	}
	return out
}

func curveBand(kfs []keyframe) scene.Band {
	effect := scene.Effect{Position: 0, Type: scene.EffectBasis}
	for _, k := range kfs {
		pos := int(k.timeSec * 1000)
		amp := k.value
		effect.Keyframes = append(effect.Keyframes, scene.Keyframe{
			RelativePosition: &pos,
			Amplitude:        &amp,
		})
	}
	return scene.Band{
		Type:      scene.BandCurve,
		CurveType: scene.CurveCubic,
		Effects:   []scene.Effect{effect},
	}
}

// eventsBand converts discrete transient/continuous events into a
// Transient band, one effect per event, reading HapticIntensity /
// HapticSharpness from EventParameters where present.
func eventsBand(events []ahapEvent) scene.Band {
	band := scene.Band{Type: scene.BandTransient}
	for _, e := range events {
		if e.EventType != "HapticTransient" && e.EventType != "HapticContinuous" {
			continue
		}
		pos := int(e.Time * 1000)
		amp, freq := eventParams(e.EventParameters)
		ampv, zero := amp, 0
		band.Effects = append(band.Effects, scene.Effect{
			Position: pos,
			Type:     scene.EffectBasis,
			Keyframes: []scene.Keyframe{
				{RelativePosition: &zero, Amplitude: &ampv, Frequency: &freq},
			},
		})
	}
	return band
}

func eventParams(params []eventParam) (amplitude float64, frequency int) {
	amplitude = 1
	for _, p := range params {
		switch p.ParameterID {
		case "HapticIntensity":
			amplitude = p.ParameterValue
		case "HapticSharpness":
			// AHAP sharpness is a normalized [0, 1] value; map it onto the
			// MIN/MAX_AHAP_FREQUENCY range IvsEncoder/AhapEncoder use for
			// the analogous IVS magnitude sweep.
			const minFreq, maxFreq = 65, 300
			frequency = minFreq + int(p.ParameterValue*float64(maxFreq-minFreq))
		}
	}
	return amplitude, frequency
}
