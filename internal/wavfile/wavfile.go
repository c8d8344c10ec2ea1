// Package wavfile reads and writes 16-bit PCM RIFF/WAVE containers, the
// format internal/synth's output and internal/pcmdriver's input are
// exchanged in (spec.md §1 "PCM container reader/writer"). Byte layout
// follows the canonical RIFF/WAVE chunk structure; field packing is done
// by hand with encoding/binary, in the teacher's fixed-offset
// byte-slice-building style (tools/forge/serialize/serializer.go).
package wavfile

import (
	"bytes"
	"encoding/binary"
	"math"

	"hapcodec/internal/haperr"
)

const (
	bitsPerSample = 16
	headerSize    = 44
)

// File is a decoded WAVE file: one []float64 per channel, each sample
// scaled to [-1, 1], plus the sample rate it was authored at.
type File struct {
	SampleRate int
	Channels   [][]float64
}

// Write encodes channels (each the same length, scaled to [-1, 1]) as a
// 16-bit little-endian PCM WAVE file. Out-of-range samples are clamped
// rather than wrapped.
func Write(channels [][]float64, sampleRate int) ([]byte, error) {
	if len(channels) == 0 {
		return nil, haperr.New(haperr.Config, "wavfile: no channels to write")
	}
	numChannels := len(channels)
	numFrames := len(channels[0])
	for _, c := range channels {
		if len(c) != numFrames {
			return nil, haperr.New(haperr.Config, "wavfile: channel length mismatch")
		}
	}

	blockAlign := numChannels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign
	dataSize := numFrames * blockAlign

	buf := bytes.NewBuffer(make([]byte, 0, headerSize+dataSize))
	buf.WriteString("RIFF")
	writeU32(buf, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	writeU32(buf, 16)
	writeU16(buf, 1) // PCM
	writeU16(buf, uint16(numChannels))
	writeU32(buf, uint32(sampleRate))
	writeU32(buf, uint32(byteRate))
	writeU16(buf, uint16(blockAlign))
	writeU16(buf, bitsPerSample)

	buf.WriteString("data")
	writeU32(buf, uint32(dataSize))

	for i := 0; i < numFrames; i++ {
		for ch := 0; ch < numChannels; ch++ {
			writeU16(buf, uint16(int16(quantizeSample(channels[ch][i]))))
		}
	}

	return buf.Bytes(), nil
}

func quantizeSample(v float64) int {
	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	return int(math.Round(v * 32767))
}

// Read parses a 16-bit PCM RIFF/WAVE container. Non-PCM or non-16-bit
// files are rejected rather than guessed at.
func Read(data []byte) (*File, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, haperr.New(haperr.Parse, "wavfile: not a RIFF/WAVE file")
	}

	var (
		numChannels int
		sampleRate  int
		bits        int
		formatSeen  bool
		samples     []byte
	)

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(data) {
			return nil, haperr.New(haperr.Parse, "wavfile: chunk %q overruns file", id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, haperr.New(haperr.Parse, "wavfile: fmt chunk too short")
			}
			audioFormat := binary.LittleEndian.Uint16(data[body : body+2])
			if audioFormat != 1 {
				return nil, haperr.New(haperr.Parse, "wavfile: unsupported audio format %d (only PCM)", audioFormat)
			}
			numChannels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			formatSeen = true
		case "data":
			samples = data[body : body+size]
		}

		pos = body + size
		if pos%2 == 1 {
			pos++ // chunks are word-aligned
		}
	}

	if !formatSeen {
		return nil, haperr.New(haperr.Parse, "wavfile: missing fmt chunk")
	}
	if bits != bitsPerSample {
		return nil, haperr.New(haperr.Parse, "wavfile: unsupported bit depth %d (only 16)", bits)
	}
	if numChannels == 0 {
		return nil, haperr.New(haperr.Parse, "wavfile: zero channels")
	}

	blockAlign := numChannels * bitsPerSample / 8
	numFrames := len(samples) / blockAlign

	channels := make([][]float64, numChannels)
	for ch := range channels {
		channels[ch] = make([]float64, numFrames)
	}
	for i := 0; i < numFrames; i++ {
		for ch := 0; ch < numChannels; ch++ {
			off := i*blockAlign + ch*2
			v := int16(binary.LittleEndian.Uint16(samples[off : off+2]))
			channels[ch][i] = float64(v) / 32768
		}
	}

	return &File{SampleRate: sampleRate, Channels: channels}, nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}
