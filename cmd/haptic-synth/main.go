// Command haptic-synth is the synthesizer CLI front end (spec.md §6): it
// decodes a binary scene, samples every channel of every perception at a
// target sample rate, and writes the result as a 16-bit PCM WAV file,
// optionally alongside an OHM metadata sidecar. Grounded on
// cmd/compress/compress.go's main for the overall shape; like the encoder,
// the narrow -f/-o/-fs/--pad/--generate_ohm surface is expressed with
// stdlib flag (see DESIGN.md).
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hapcodec/internal/bitstream"
	"hapcodec/internal/ohm"
	"hapcodec/internal/scene"
	"hapcodec/internal/synth"
	"hapcodec/internal/wavfile"
)

func main() {
	file := flag.String("f", "", "input scene file")
	output := flag.String("o", "out.wav", "output WAV file")
	fs := flag.Int("fs", 8000, "output sample rate in Hz")
	padMs := flag.Float64("pad", 0, "padding before position 0, in milliseconds (non-negative)")
	generateOHM := flag.Bool("generate_ohm", false, "also emit an OHM metadata sidecar")
	flag.Parse()

	if *file == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -f <scene> [-o out.wav] [-fs 8000] [--pad ms] [--generate_ohm]\n", os.Args[0])
		os.Exit(1)
	}
	if *padMs < 0 {
		fmt.Fprintln(os.Stderr, "haptic-synth: --pad must be non-negative")
		os.Exit(1)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "haptic-synth: %v\n", err)
		os.Exit(1)
	}

	h, err := bitstream.Decode(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "haptic-synth: %v\n", err)
		os.Exit(1)
	}

	wav, err := synthesize(h, *fs, *padMs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "haptic-synth: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*output, wav, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "haptic-synth: %v\n", err)
		os.Exit(1)
	}

	if *generateOHM {
		sidecar := buildOHM(h, *file)
		data, err := ohm.Write(sidecar)
		if err != nil {
			fmt.Fprintf(os.Stderr, "haptic-synth: %v\n", err)
			os.Exit(1)
		}
		ohmPath := strings.TrimSuffix(*output, filepath.Ext(*output)) + ".ohm"
		if err := os.WriteFile(ohmPath, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "haptic-synth: %v\n", err)
			os.Exit(1)
		}
	}
}

// synthesize samples every channel of every perception at fsHz and mixes
// them down to a multi-channel WAV (one output channel per scene
// channel, in declaration order), per spec.md §4.1/§6.
func synthesize(h *scene.Haptics, fsHz int, padMs float64) ([]byte, error) {
	padTicks := int(padMs) // scene ticks are milliseconds at the default timescale
	var channels [][]float64

	for pi := range h.Perceptions {
		for ci := range h.Perceptions[pi].Channels {
			c := &h.Perceptions[pi].Channels[ci]
			count := sampleCountFor(c, fsHz)
			samples := synth.EvaluateBlock(c, count, float64(fsHz), padTicks)
			channels = append(channels, samples)
		}
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("scene has no channels to synthesize")
	}

	maxLen := 0
	for _, c := range channels {
		if len(c) > maxLen {
			maxLen = len(c)
		}
	}
	for i, c := range channels {
		if len(c) < maxLen {
			padded := make([]float64, maxLen)
			copy(padded, c)
			channels[i] = padded
		}
	}

	return wavfile.Write(channels, fsHz)
}

// sampleCountFor uses the channel's own recorded sample count/rate when
// present (channels produced by internal/pcmdriver), resampled to fsHz;
// otherwise it falls back to one second of audio.
func sampleCountFor(c *scene.Channel, fsHz int) int {
	if c.SampleCount != nil && c.SamplingFrequency != nil && *c.SamplingFrequency > 0 {
		return *c.SampleCount * fsHz / *c.SamplingFrequency
	}
	return fsHz
}

// buildOHM extracts gain/body-part-mask metadata from every channel into
// an OHM sidecar, the direction Haptics::extractMetadataToOHM moves data
// in the original (SPEC_FULL.md §4 "OHM metadata round trip").
func buildOHM(h *scene.Haptics, sourcePath string) *ohm.File {
	el := ohm.Element{Filename: filepath.Base(sourcePath), Description: h.Description}
	for pi := range h.Perceptions {
		for ci := range h.Perceptions[pi].Channels {
			c := &h.Perceptions[pi].Channels[ci]
			el.Channels = append(el.Channels, ohm.ExtractMetadata(c, c.Description))
		}
	}
	return &ohm.File{Version: 1, Description: h.Description, Elements: []ohm.Element{el}}
}
