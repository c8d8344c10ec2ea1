// Package ohm reads and writes the OHM (object/channel metadata) sidecar
// format (spec.md §6 "OHM sidecar"): a fixed-width binary header followed
// by per-element, per-channel metadata records. Byte layout is
// transcribed from original_source/source/Tools/src/OHMData.cpp
// (OHMData::loadFile/writeFile); field packing uses the same hand-rolled,
// fixed-offset style as internal/wavfile and
// tools/forge/serialize/serializer.go.
package ohm

import (
	"bytes"
	"encoding/binary"
	"math"

	"hapcodec/internal/haperr"
	"hapcodec/internal/scene"
)

const (
	header            = "OHM "
	descriptionBytes  = 64
	fileNameBytes     = 64
	channelDescBytes  = 64
	elementHeaderSize = fileNameBytes + descriptionBytes + 2
	channelRecordSize = channelDescBytes + 4 + 4
)

// Channel is one haptic channel's metadata within an Element.
type Channel struct {
	Description  string
	Gain         float32
	BodyPartMask uint32
}

// Element is the metadata for one haptic object file referenced by an OHM.
type Element struct {
	Filename    string
	Description string
	Channels    []Channel
}

// File is a decoded OHM sidecar.
type File struct {
	Version     uint16
	Description string
	Elements    []Element
}

// Write encodes f as an OHM sidecar (spec.md §6).
func Write(f *File) ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteString(header)
	writeU16(buf, f.Version)
	writeU16(buf, uint16(len(f.Elements)))
	buf.WriteString(fillString(f.Description, descriptionBytes))

	for _, el := range f.Elements {
		buf.WriteString(fillString(el.Filename, fileNameBytes))
		buf.WriteString(fillString(el.Description, descriptionBytes))
		writeU16(buf, uint16(len(el.Channels)))
		for _, ch := range el.Channels {
			buf.WriteString(fillString(ch.Description, channelDescBytes))
			writeF32(buf, ch.Gain)
			writeU32(buf, ch.BodyPartMask)
		}
	}
	return buf.Bytes(), nil
}

// Read parses an OHM sidecar (spec.md §6).
func Read(data []byte) (*File, error) {
	if len(data) < len(header)+2+2+descriptionBytes {
		return nil, haperr.New(haperr.Parse, "ohm: truncated header")
	}
	if string(data[0:4]) != header {
		return nil, haperr.New(haperr.Parse, "ohm: bad header %q", data[0:4])
	}
	pos := 4
	version := binary.BigEndian.Uint16(data[pos:])
	pos += 2
	numElements := binary.BigEndian.Uint16(data[pos:])
	pos += 2
	description := trimString(data[pos : pos+descriptionBytes])
	pos += descriptionBytes

	f := &File{Version: version, Description: description}
	for i := 0; i < int(numElements); i++ {
		if pos+elementHeaderSize > len(data) {
			return nil, haperr.New(haperr.Parse, "ohm: truncated element %d", i)
		}
		filename := trimString(data[pos : pos+fileNameBytes])
		pos += fileNameBytes
		elDesc := trimString(data[pos : pos+descriptionBytes])
		pos += descriptionBytes
		numChannels := binary.BigEndian.Uint16(data[pos:])
		pos += 2

		el := Element{Filename: filename, Description: elDesc}
		for j := 0; j < int(numChannels); j++ {
			if pos+channelRecordSize > len(data) {
				return nil, haperr.New(haperr.Parse, "ohm: truncated channel %d of element %d", j, i)
			}
			chDesc := trimString(data[pos : pos+channelDescBytes])
			pos += channelDescBytes
			gain := math.Float32frombits(binary.BigEndian.Uint32(data[pos:]))
			pos += 4
			mask := binary.BigEndian.Uint32(data[pos:])
			pos += 4
			el.Channels = append(el.Channels, Channel{Description: chDesc, Gain: gain, BodyPartMask: mask})
		}
		f.Elements = append(f.Elements, el)
	}
	return f, nil
}

// ExtractMetadata copies a channel's gain and body-part mask into an OHM
// Channel record, the direction Haptics::extractMetadataToOHM moves data
// in the original (spec.md SPEC_FULL §4 "OHM metadata round trip").
func ExtractMetadata(c *scene.Channel, description string) Channel {
	return Channel{
		Description:  description,
		Gain:         float32(c.Gain),
		BodyPartMask: c.BodyPartMask,
	}
}

// LoadMetadata copies an OHM Channel record's gain and body-part mask
// onto a scene.Channel, the direction Haptics::loadMetadataFromOHM moves
// data in the original.
func LoadMetadata(c *scene.Channel, oc Channel) {
	c.Gain = float64(oc.Gain)
	c.BodyPartMask = oc.BodyPartMask
}

func fillString(s string, n int) string {
	if len(s) > n {
		s = s[:n]
	}
	return s + string(make([]byte, n-len(s)))
}

func trimString(b []byte) string {
	i := len(b)
	for i > 0 && b[i-1] == 0 {
		i--
	}
	return string(b[:i])
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeF32(buf *bytes.Buffer, v float32) {
	writeU32(buf, math.Float32bits(v))
}
