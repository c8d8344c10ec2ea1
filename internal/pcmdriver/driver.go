// Package pcmdriver turns raw PCM channel data into a coded scene.Channel
// (spec.md §4.6): per channel, a low-pass/local-extrema pass produces a
// Curve band, and the high-passed residual is windowed, transformed, and
// entropy-coded into a Wavelet band. Grounded on
// original_source/source/Encoder/src/PcmEncoder.cpp's per-channel encode
// loop; multi-channel fan-out uses an indexed result slice filled by one
// goroutine per channel with a sync.WaitGroup, the shape
// tools/forge/pipeline/run.go's runASMValidation uses for per-song work.
package pcmdriver

import (
	"math"
	"sync"

	"hapcodec/internal/filterbank"
	"hapcodec/internal/haperr"
	"hapcodec/internal/interp"
	"hapcodec/internal/psychohaptic"
	"hapcodec/internal/scene"
	"hapcodec/internal/spiht"
	"hapcodec/internal/wavelet"
)

// EncodingConfig is the tunable parameter set for the PCM-to-scene driver
// (spec.md §4.6).
type EncodingConfig struct {
	CurveFrequencyLimitHz    float64 // split point; 0 disables the curve band
	WaveletWindowLengthMs    float64
	WaveletBitBudgetPerBlock int // max_alloc_bits budget, spent across a block's sub-bands
}

// Encode builds one scene.Channel per input PCM channel. samples holds one
// de-interleaved slice per channel, all the same length.
func Encode(cfg EncodingConfig, samples [][]float64, sampleRate int, modality scene.PerceptionModality) ([]scene.Channel, error) {
	results := make([]scene.Channel, len(samples))
	errs := make([]error, len(samples))

	var wg sync.WaitGroup
	for ch := range samples {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			c, err := encodeChannel(cfg, idx, samples[idx], sampleRate, modality)
			results[idx] = c
			errs[idx] = err
		}(ch)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func encodeChannel(cfg EncodingConfig, id int, samples []float64, sampleRate int, modality scene.PerceptionModality) (scene.Channel, error) {
	freq := sampleRate
	count := len(samples)
	channel := scene.Channel{
		ID:                id,
		Gain:              1,
		MixingWeight:      1,
		SamplingFrequency: &freq,
		SampleCount:       &count,
	}

	waveletSignal := samples

	if cfg.CurveFrequencyLimitHz > 0 {
		var filtered []float64
		if modality == scene.ModalityVibrotactileTexture || modality == scene.ModalityStiffness {
			filtered = samples
		} else {
			fb := filterbank.New(float64(sampleRate))
			filtered = fb.LP(samples, cfg.CurveFrequencyLimitHz)
		}

		points := LocalExtrema(filtered, true)
		curveType := curveTypeFor(modality)
		band, effectPoints := convertToCurveBand(points, sampleRate, cfg.CurveFrequencyLimitHz, curveType)
		channel.Bands = append(channel.Bands, band)

		interpolated := make([]float64, len(filtered))
		for i := range interpolated {
			interpolated[i] = interp.Evaluate(curveType, effectPoints, 1000*float64(i)/float64(sampleRate))
		}
		residual := make([]float64, len(filtered))
		for i := range residual {
			residual[i] = filtered[i] - interpolated[i]
		}

		hp := filterbank.New(float64(sampleRate))
		highPassed := hp.HP(samples, cfg.CurveFrequencyLimitHz)

		waveletSignal = make([]float64, len(samples))
		for i := range waveletSignal {
			waveletSignal[i] = highPassed[i] + residual[i]
		}
	}

	waveletBand, err := encodeWaveletBand(cfg, waveletSignal, sampleRate, cfg.CurveFrequencyLimitHz)
	if err != nil {
		return scene.Channel{}, err
	}
	channel.Bands = append(channel.Bands, waveletBand)

	return channel, nil
}

// curveTypeFor selects the curve band's interpolation kind by perception
// modality, per spec.md §4.6 step 2.
func curveTypeFor(modality scene.PerceptionModality) scene.CurveType {
	switch modality {
	case scene.ModalityPressure, scene.ModalityStiffness:
		return scene.CurveLinear
	case scene.ModalityVibration, scene.ModalityVibrotactileTexture:
		return scene.CurveCubic
	default:
		return scene.CurveUnknown
	}
}

// millisTick converts a sample index at sampleRate to a tick in the
// scene's default (millisecond-resolution) timescale.
func millisTick(index, sampleRate int) int {
	return int(math.Round(1000 * float64(index) / float64(sampleRate)))
}

// convertToCurveBand builds the Curve band the encoder emits for a set of
// extrema points, and also returns those same points (converted to
// continuous interp.Points in the same tick domain used by the keyframes)
// for residual computation.
func convertToCurveBand(points []interp.Point, sampleRate int, upperFreq float64, curveType scene.CurveType) (scene.Band, []interp.Point) {
	effect := scene.Effect{
		Position: 0,
		Type:     scene.EffectBasis,
	}
	tickPoints := make([]interp.Point, len(points))
	for i, p := range points {
		tick := millisTick(int(p.X), sampleRate)
		tickPoints[i] = interp.Point{X: float64(tick), Y: p.Y}
		amp := p.Y
		relPos := tick
		effect.Keyframes = append(effect.Keyframes, scene.Keyframe{
			RelativePosition: &relPos,
			Amplitude:        &amp,
		})
	}

	band := scene.Band{
		Type:                scene.BandCurve,
		CurveType:           curveType,
		LowerFrequencyLimit: 0,
		UpperFrequencyLimit: upperFreq,
		Effects:             []scene.Effect{effect},
	}
	return band, tickPoints
}

// blockSamples returns the smallest power-of-two sample count at least as
// large as windowMs at sampleRate, with a floor of 64 (the smallest length
// internal/wavelet supports a useful level count for).
func blockSamples(windowMs float64, sampleRate int) int {
	n := int(math.Round(windowMs / 1000 * float64(sampleRate)))
	if n < 64 {
		n = 64
	}
	pow := 64
	for pow < n {
		pow <<= 1
	}
	return pow
}

// encodeWaveletBand splits signal into fixed-length blocks and runs
// DWT -> psychohaptic bit allocation -> SPIHT -> arithmetic coding on each,
// per spec.md §4.6 step 4.
func encodeWaveletBand(cfg EncodingConfig, signal []float64, sampleRate int, lowerFreq float64) (scene.Band, error) {
	blockLength := blockSamples(cfg.WaveletWindowLengthMs, sampleRate)
	level := wavelet.Levels(blockLength)
	if level < 1 {
		return scene.Band{}, haperr.New(haperr.Config, "pcmdriver: block length %d too short for a usable wavelet level", blockLength)
	}

	model := psychohaptic.New(blockLength, float64(sampleRate))

	effect := scene.Effect{Position: 0, Type: scene.EffectBasis}

	for start := 0; start < len(signal); start += blockLength {
		block := make([]float64, blockLength)
		copy(block, signal[start:min(start+blockLength, len(signal))])

		coeffs, err := wavelet.DWT(block, level)
		if err != nil {
			return scene.Band{}, haperr.Wrap(haperr.Internal, err, "pcmdriver: DWT")
		}

		smr := model.GetSMR(block)
		alloc := psychohaptic.AllocateBits(smr.SMR, cfg.WaveletBitBudgetPerBlock, spiht.MaxBits)
		maxAllocBits := 0
		for _, a := range alloc {
			if a > maxAllocBits {
				maxAllocBits = a
			}
		}
		if maxAllocBits == 0 {
			maxAllocBits = 1
		}

		wavmax := maxAbs(coeffs)
		quantized := quantizeCoefficients(coeffs, wavmax, maxAllocBits)

		data := spiht.Encode(quantized, level, maxAllocBits, wavmax)
		effect.WaveletBlocks = append(effect.WaveletBlocks, data)
	}

	return scene.Band{
		Type:                scene.BandWaveletWave,
		BlockLength:         blockLength,
		LowerFrequencyLimit: lowerFreq,
		UpperFrequencyLimit: float64(sampleRate) / 2,
		Effects:             []scene.Effect{effect},
	}, nil
}

// quantizeCoefficients maps floating-point DWT coefficients onto integers
// scaled so the largest magnitude coefficient lands near 2^maxAllocBits,
// matching the dynamic range internal/spiht's bitplane passes (compare =
// 1<<n for n down to 0) are built to cover. Dequantization (internal/synth)
// reverses this with coeff = quantized * wavmax / 2^maxAllocBits.
func quantizeCoefficients(coeffs []float64, wavmax float64, maxAllocBits int) []int {
	out := make([]int, len(coeffs))
	if wavmax <= 0 {
		return out
	}
	scale := float64(int(1)<<uint(maxAllocBits)) / wavmax
	for i, c := range coeffs {
		out[i] = int(math.Round(c * scale))
	}
	return out
}

func maxAbs(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	if m == 0 {
		return 1e-12
	}
	return m
}

