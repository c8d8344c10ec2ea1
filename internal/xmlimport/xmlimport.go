// Package xmlimport reads the XML event-timeline authoring format (spec.md
// §1 "XML event timeline", §6 CLI ".xml|.ivs") into a scene.Perception.
// Grounded on original_source/source/Encoder/include/IvsEncoder.h: basis
// effects declare a waveform/envelope, launch events place them on a
// timeline at a time offset. The full repeat-node linearization
// (IvsEncoder::RepeatNode::linearize, for nested <Repeat> blocks) is not
// reproduced here -- only flat <Launch> placement -- since spec.md treats
// the importer as an external collaborator and the core's contract is the
// scene it produces, not timeline-authoring fidelity.
package xmlimport

import (
	"encoding/xml"

	"hapcodec/internal/haperr"
	"hapcodec/internal/scene"
)

// document mirrors the subset of the IVS XML shape this importer reads:
// a flat list of named basis effects plus a timeline of launch events that
// reference them by name.
type document struct {
	XMLName      xml.Name      `xml:"VibrationPattern"`
	BasisEffects []basisEffect `xml:"BasisEffect"`
	Timeline     timeline      `xml:"Timeline"`
}

type basisEffect struct {
	Name        string  `xml:"name,attr"`
	Waveform    string  `xml:"waveform,attr"` // Sine|Square|Triangle|SawtoothUp|SawtoothDown
	Period      int     `xml:"period,attr"`   // ms, 0 for a non-periodic (transient) effect
	Magnitude   float64 `xml:"magnitude,attr"` // [-1, 1]
	AttackTime  int     `xml:"attackTime,attr"`
	AttackLevel float64 `xml:"attackLevel,attr"`
	FadeTime    int     `xml:"fadeTime,attr"`
	FadeLevel   float64 `xml:"fadeLevel,attr"`
}

type timeline struct {
	Launches []launchEvent `xml:"Launch"`
}

type launchEvent struct {
	Library string `xml:"library,attr"`
	Time    int    `xml:"time,attr"` // ms
}

var waveformNames = map[string]scene.BaseSignal{
	"Sine":         scene.SignalSine,
	"Square":       scene.SignalSquare,
	"Triangle":     scene.SignalTriangle,
	"SawtoothUp":   scene.SignalSawToothUp,
	"SawtoothDown": scene.SignalSawToothDown,
}

// Import parses an IVS-style XML event timeline into a single-channel
// Vibration perception whose channel carries one Wave band (periodic
// basis effects) and one Transient band (zero-period basis effects).
func Import(data []byte) (scene.Perception, error) {
	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return scene.Perception{}, haperr.Wrap(haperr.Parse, err, "xmlimport: decode")
	}

	byName := make(map[string]basisEffect, len(doc.BasisEffects))
	for _, be := range doc.BasisEffects {
		byName[be.Name] = be
	}

	p := scene.NewPerception(0, 0, "imported from XML event timeline", scene.ModalityVibration)
	waveBand := scene.Band{Type: scene.BandWave, LowerFrequencyLimit: 0, UpperFrequencyLimit: 0}
	transientBand := scene.Band{Type: scene.BandTransient, LowerFrequencyLimit: 0, UpperFrequencyLimit: 0}

	for _, launch := range doc.Timeline.Launches {
		be, ok := byName[launch.Library]
		if !ok {
			return scene.Perception{}, haperr.New(haperr.Parse, "xmlimport: launch references unknown basis effect %q", launch.Library)
		}
		effect, err := convertToEffect(be, launch.Time)
		if err != nil {
			return scene.Perception{}, err
		}
		if be.Period > 0 {
			waveBand.Effects = append(waveBand.Effects, effect)
		} else {
			transientBand.Effects = append(transientBand.Effects, effect)
		}
	}

	channel := scene.Channel{ID: 0, Gain: 1, MixingWeight: 1}
	if len(waveBand.Effects) > 0 {
		channel.Bands = append(channel.Bands, waveBand)
	}
	if len(transientBand.Effects) > 0 {
		channel.Bands = append(channel.Bands, transientBand)
	}
	p.Channels = append(p.Channels, channel)

	return p, nil
}

// convertToEffect builds an attack/sustain/fade envelope effect from a
// basis effect placed at launchTimeMs, grounded on IvsEncoder::convertToEffect's
// attack/fade keyframe shape (getAttackTime/getAttackLevel/getFadeTime/
// getFadeLevel feeding a keyframe sequence around the sustained magnitude).
func convertToEffect(be basisEffect, launchTimeMs int) (scene.Effect, error) {
	base, ok := waveformNames[be.Waveform]
	if !ok && be.Period > 0 {
		return scene.Effect{}, haperr.New(haperr.Parse, "xmlimport: unknown waveform %q", be.Waveform)
	}

	freq := 0
	if be.Period > 0 {
		freq = 1000 / be.Period
	}

	zero, attackEnd, fadeStart := 0, be.AttackTime, be.AttackTime
	effect := scene.Effect{
		Position: launchTimeMs,
		Type:     scene.EffectBasis,
		Base:     base,
		Keyframes: []scene.Keyframe{
			{RelativePosition: &zero, Amplitude: ptr(be.AttackLevel), Frequency: ptr(freq)},
			{RelativePosition: &attackEnd, Amplitude: ptr(be.Magnitude)},
		},
	}
	if be.FadeTime > 0 {
		fadeEnd := fadeStart + be.FadeTime
		effect.Keyframes = append(effect.Keyframes,
			scene.Keyframe{RelativePosition: &fadeStart, Amplitude: ptr(be.Magnitude)},
			scene.Keyframe{RelativePosition: &fadeEnd, Amplitude: ptr(be.FadeLevel)},
		)
	}
	return effect, nil
}

func ptr[T any](v T) *T { return &v }
