// Command haptic-encode is the encoder CLI front end (spec.md §6): it
// reads an authoring file (parameter-curve JSON/AHAP, XML/IVS event
// timeline, or WAV PCM), picks the importer by file extension, and
// writes the resulting scene as a binary MIHS file. Flags are parsed with
// stdlib flag (see DESIGN.md); a missing input file prints a usage message
// on stderr and exits non-zero.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hapcodec/internal/bitstream"
	"hapcodec/internal/curveimport"
	"hapcodec/internal/pcmdriver"
	"hapcodec/internal/scene"
	"hapcodec/internal/wavfile"
	"hapcodec/internal/xmlimport"
)

func main() {
	file := flag.String("f", "", "input file (.json/.ahap, .xml/.ivs, or .wav)")
	fileLong := flag.String("file", "", "same as -f")
	output := flag.String("o", "", "output scene file")
	outputLong := flag.String("output", "", "same as -o")
	curveLimit := flag.Float64("curve-limit-hz", 72, "curve/wavelet split frequency; 0 disables the curve band")
	windowMs := flag.Float64("window-ms", 16, "wavelet block window length in ms")
	bitBudget := flag.Int("bit-budget", 8, "wavelet max_alloc_bits budget per block")
	flag.Parse()

	in := firstNonEmpty(*file, *fileLong)
	if in == "" {
		usage()
		os.Exit(1)
	}
	out := firstNonEmpty(*output, *outputLong)
	if out == "" {
		out = "out.haptic"
	}

	data, err := os.ReadFile(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "haptic-encode: %v\n", err)
		os.Exit(1)
	}

	h, err := encodeFile(in, data, pcmdriver.EncodingConfig{
		CurveFrequencyLimitHz:    *curveLimit,
		WaveletWindowLengthMs:    *windowMs,
		WaveletBitBudgetPerBlock: *bitBudget,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "haptic-encode: %v\n", err)
		os.Exit(1)
	}

	if err := scene.Validate(h); err != nil {
		fmt.Fprintf(os.Stderr, "haptic-encode: %v\n", err)
		os.Exit(1)
	}

	encoded, err := bitstream.Encode(h)
	if err != nil {
		fmt.Fprintf(os.Stderr, "haptic-encode: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(out, encoded, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "haptic-encode: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s -f <input> [-o <output>]\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "  input extension selects the importer:")
	fmt.Fprintln(os.Stderr, "    .json/.ahap  parameter-curve authoring format")
	fmt.Fprintln(os.Stderr, "    .xml/.ivs    XML event-timeline authoring format")
	fmt.Fprintln(os.Stderr, "    .wav         PCM waveform, run through the codec core")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// encodeFile dispatches on the input extension (spec.md §6) and returns a
// fully-populated scene.
func encodeFile(path string, data []byte, cfg pcmdriver.EncodingConfig) (*scene.Haptics, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")

	h := scene.NewHaptics("1.0", "", fmt.Sprintf("encoded from %s", filepath.Base(path)))
	h.Avatars = append(h.Avatars, scene.Avatar{ID: 0, Type: scene.AvatarVibration})

	switch ext {
	case "json", "ahap":
		p, err := curveimport.Import(data)
		if err != nil {
			return nil, err
		}
		h.Perceptions = append(h.Perceptions, p)
	case "xml", "ivs":
		p, err := xmlimport.Import(data)
		if err != nil {
			return nil, err
		}
		h.Perceptions = append(h.Perceptions, p)
	case "wav":
		wav, err := wavfile.Read(data)
		if err != nil {
			return nil, err
		}
		channels, err := pcmdriver.Encode(cfg, wav.Channels, wav.SampleRate, scene.ModalityVibration)
		if err != nil {
			return nil, err
		}
		p := scene.NewPerception(0, 0, fmt.Sprintf("encoded from %s", filepath.Base(path)), scene.ModalityVibration)
		p.Channels = channels
		h.Perceptions = append(h.Perceptions, p)
	default:
		return nil, fmt.Errorf("haptic-encode: unsupported input extension %q", ext)
	}

	return &h, nil
}
