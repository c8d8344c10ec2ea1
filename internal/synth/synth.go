// Package synth samples a coded haptic scene back into PCM amplitudes
// (spec.md §4.1). Evaluate never fails: an unrecognized enum value simply
// contributes 0 (logged once), since playback must degrade gracefully
// rather than abort mid-render. Per-band-type dispatch is grounded on
// original_source/source/Types/src/Band.cpp's EvaluationSwitch /
// EvaluationBand and Helper.cpp's getEffectTimeLength.
package synth

import (
	"log"
	"math"
	"sync"

	"hapcodec/internal/interp"
	"hapcodec/internal/scene"
	"hapcodec/internal/spiht"
	"hapcodec/internal/wavelet"
)

// TransientDurationMs is the fixed pulse width every transient keyframe
// expands to. The retrieved reference only ever names this constant
// (TRANSIENT_DURATION_MS) without defining it; 20ms is chosen as a
// plausible haptic pulse width and applied uniformly.
const TransientDurationMs = 20

var warnOnce sync.Map

func warnUnknown(kind string) {
	if _, loaded := warnOnce.LoadOrStore(kind, true); !loaded {
		log.Printf("synth: unknown %s, contributing 0", kind)
	}
}

// Evaluate returns channel's summed amplitude at tTicks, clamped to [-1, 1].
func Evaluate(channel *scene.Channel, tTicks int) float64 {
	sum := 0.0
	for i := range channel.Bands {
		sum += evaluateBand(&channel.Bands[i], tTicks)
	}
	if sum > 1 {
		return 1
	}
	if sum < -1 {
		return -1
	}
	return sum
}

// EvaluateBlock samples channel at sampleCount points spaced 1/fsHz apart,
// starting padTicks before position 0 (a negative pad starts -padTicks
// after position 0 instead, skipping the start of the scene).
func EvaluateBlock(channel *scene.Channel, sampleCount int, fsHz float64, padTicks int) []float64 {
	out := make([]float64, sampleCount)
	ticksPerSample := 1000.0 / fsHz // scene ticks are milliseconds at the default timescale
	for i := range out {
		t := int(math.Round(float64(i)*ticksPerSample)) - padTicks
		out[i] = Evaluate(channel, t)
	}
	return out
}

func evaluateBand(band *scene.Band, t int) float64 {
	switch band.Type {
	case scene.BandCurve:
		return evaluateCurveBand(band, t)
	case scene.BandTransient:
		return evaluateTransientBand(band, t)
	case scene.BandWave:
		return evaluateWaveBand(band, t)
	case scene.BandWaveletWave:
		return evaluateWaveletBand(band, t)
	default:
		warnUnknown("band type")
		return 0
	}
}

func evaluateCurveBand(band *scene.Band, t int) float64 {
	if len(band.Effects) == 0 {
		return 0
	}
	effect := &band.Effects[0]
	if len(effect.Keyframes) == 0 {
		return 0
	}

	points := make([]interp.Point, 0, len(effect.Keyframes))
	last := 0.0
	for _, k := range effect.Keyframes {
		if k.RelativePosition == nil {
			continue
		}
		x := float64(effect.Position + *k.RelativePosition)
		if k.Amplitude != nil {
			last = *k.Amplitude
		}
		points = append(points, interp.Point{X: x, Y: last})
	}
	if len(points) == 0 {
		return 0
	}
	if float64(t) < points[0].X || float64(t) > points[len(points)-1].X {
		return 0
	}
	return interp.Evaluate(band.CurveType, points, float64(t))
}

func evaluateTransientBand(band *scene.Band, t int) float64 {
	sum := 0.0
	for i := range band.Effects {
		effect := &band.Effects[i]
		for _, k := range effect.Keyframes {
			if k.RelativePosition == nil || k.Amplitude == nil {
				continue
			}
			center := effect.Position + *k.RelativePosition
			if t >= center-TransientDurationMs/2 && t <= center+TransientDurationMs/2 {
				sum += *k.Amplitude
			}
		}
	}
	return sum
}

func evaluateWaveBand(band *scene.Band, t int) float64 {
	sum := 0.0
	for i := range band.Effects {
		sum += evaluateWaveEffect(&band.Effects[i], t)
	}
	return sum
}

// evaluateWaveEffect implements the chirp-phase integral between the
// keyframes bracketing t (spec.md §4.1 "Wave band (vectorial)").
func evaluateWaveEffect(effect *scene.Effect, t int) float64 {
	if len(effect.Keyframes) < 2 {
		return 0
	}
	relT := t - effect.Position
	if relT < 0 {
		return 0
	}

	idx := -1
	for i := 0; i < len(effect.Keyframes)-1; i++ {
		a := effect.Keyframes[i]
		b := effect.Keyframes[i+1]
		if a.RelativePosition == nil || b.RelativePosition == nil {
			continue
		}
		if relT >= *a.RelativePosition && relT <= *b.RelativePosition {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0
	}

	a, b := effect.Keyframes[idx], effect.Keyframes[idx+1]
	t0, t1 := float64(*a.RelativePosition), float64(*b.RelativePosition)
	if t1 <= t0 {
		return 0
	}
	f0, f1 := frequencyOf(effect.Keyframes, idx), frequencyOf(effect.Keyframes, idx+1)
	amp0, amp1 := amplitudeOf(effect.Keyframes, idx), amplitudeOf(effect.Keyframes, idx+1)

	tau := float64(relT) - t0
	duration := t1 - t0
	phase := math.Pi * (f0*tau + 0.5*tau*tau*(f1-f0)/duration)
	amp := amp0 + (amp1-amp0)*tau/duration

	return amp * baseSignal(effect.Base, phase+effect.Phase)
}

// frequencyOf/amplitudeOf walk backward from idx to find the nearest
// keyframe that actually carries the field, per the "inherit from the
// previous keyframe" rule (spec.md §3 "Keyframe").
func frequencyOf(keyframes []scene.Keyframe, idx int) float64 {
	for i := idx; i >= 0; i-- {
		if keyframes[i].Frequency != nil {
			return float64(*keyframes[i].Frequency)
		}
	}
	return 0
}

func amplitudeOf(keyframes []scene.Keyframe, idx int) float64 {
	for i := idx; i >= 0; i-- {
		if keyframes[i].Amplitude != nil {
			return *keyframes[i].Amplitude
		}
	}
	return 0
}

func baseSignal(base scene.BaseSignal, phase float64) float64 {
	const twoPi = 2 * math.Pi
	norm := math.Mod(phase, twoPi)
	if norm < 0 {
		norm += twoPi
	}
	switch base {
	case scene.SignalSine:
		return math.Sin(phase)
	case scene.SignalSquare:
		if math.Sin(phase) >= 0 {
			return 1
		}
		return -1
	case scene.SignalTriangle:
		return 2 / math.Pi * math.Asin(math.Sin(phase))
	case scene.SignalSawToothUp:
		return 2*(norm/twoPi) - 1
	case scene.SignalSawToothDown:
		return 1 - 2*(norm/twoPi)
	default:
		warnUnknown("base signal")
		return 0
	}
}

// evaluateWaveletBand decodes the block containing t and returns its
// intra-block sample.
func evaluateWaveletBand(band *scene.Band, t int) float64 {
	if len(band.Effects) == 0 || band.BlockLength == 0 {
		return 0
	}
	effect := &band.Effects[0]
	if len(effect.WaveletBlocks) == 0 {
		return 0
	}
	level := wavelet.Levels(band.BlockLength)
	if level < 1 {
		return 0
	}

	relTick := t - effect.Position
	if relTick < 0 {
		return 0
	}

	// Each coded block covers band.BlockLength samples; samples and scene
	// ticks coincide 1:1 here since wavelet blocks are produced directly
	// from the per-sample signal (internal/pcmdriver never resamples).
	blockIdx := relTick / band.BlockLength
	if blockIdx >= len(effect.WaveletBlocks) {
		return 0
	}
	intra := relTick % band.BlockLength

	coeffs, wavmax, maxAllocBits, err := spiht.Decode(effect.WaveletBlocks[blockIdx], band.BlockLength, level)
	if err != nil {
		warnUnknown("wavelet block")
		return 0
	}
	samples, err := wavelet.InvDWT(dequantize(coeffs, wavmax, maxAllocBits), level)
	if err != nil {
		warnUnknown("wavelet block")
		return 0
	}
	if intra >= len(samples) {
		return 0
	}
	v := samples[intra]
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// dequantize reverses internal/pcmdriver's quantizeCoefficients exactly:
// coeff = quantized * wavmax / 2^maxAllocBits.
func dequantize(quantized []int, wavmax float64, maxAllocBits int) []float64 {
	out := make([]float64, len(quantized))
	scale := wavmax / float64(int(1)<<uint(maxAllocBits))
	for i, q := range quantized {
		out[i] = float64(q) * scale
	}
	return out
}
