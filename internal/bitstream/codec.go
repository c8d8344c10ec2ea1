package bitstream

import (
	"sort"

	"hapcodec/internal/haperr"
	"hapcodec/internal/scene"
)

// unitTypeScene is the single unit type this codec emits: one unit wraps
// the whole scene's packet sequence (spec.md §4.7 groups packets into
// units; this codec only ever needs one).
const unitTypeScene = 0

// Encode serializes a scene to the MIHS binary interchange form (spec.md
// §4.7): a unit header followed by the scene header, avatar, perception
// (with nested reference device/channel/band/effect/keyframe/wavelet-bytes
// packets), and sync marker packets, in that order.
func Encode(h *scene.Haptics) ([]byte, error) {
	out := newWriter()

	body := newWriter()
	if err := writeSceneHeader(body, h); err != nil {
		return nil, err
	}
	for i := range h.Avatars {
		if err := writeAvatar(body, &h.Avatars[i]); err != nil {
			return nil, err
		}
	}
	for i := range h.Perceptions {
		if err := writePacket(body, PacketPerception, func(w *Writer) error {
			return writePerceptionBody(w, &h.Perceptions[i])
		}); err != nil {
			return nil, err
		}
	}
	for i := range h.SyncMarkers {
		if err := writeSyncMarker(body, &h.SyncMarkers[i]); err != nil {
			return nil, err
		}
	}
	payload, _, err := body.finish()
	if err != nil {
		return nil, err
	}

	if err := writeUnitHeader(out, len(payload)); err != nil {
		return nil, err
	}
	for _, b := range payload {
		if err := out.writeUint(uint64(b), 8); err != nil {
			return nil, err
		}
	}

	data, _, err := out.finish()
	return data, err
}

// Decode reverses Encode, reconstructing a scene structurally equal to
// the one that produced data.
func Decode(data []byte) (*scene.Haptics, error) {
	r := newReader(data)
	if _, err := readUnitHeader(r); err != nil {
		return nil, err
	}

	h := &scene.Haptics{}
	for r.remaining() > 0 {
		err := readPacket(r, func(t PacketType, payload *Reader, nbytes int) error {
			switch t {
			case PacketSceneHeader:
				return readSceneHeader(payload, h)
			case PacketAvatar:
				a, err := readAvatar(payload)
				if err != nil {
					return err
				}
				h.Avatars = append(h.Avatars, a)
				return nil
			case PacketPerception:
				p, err := readPerceptionBody(payload)
				if err != nil {
					return err
				}
				h.Perceptions = append(h.Perceptions, p)
				return nil
			case PacketSyncMarker:
				m, err := readSyncMarker(payload)
				if err != nil {
					return err
				}
				h.SyncMarkers = append(h.SyncMarkers, m)
				return nil
			default:
				return haperr.New(haperr.Parse, "bitstream: unexpected top-level packet type %d", t)
			}
		})
		if err != nil {
			return nil, err
		}
	}
	return h, nil
}

func writeUnitHeader(w *Writer, payloadLen int) error {
	if err := w.writeUint(unitTypeScene, unitTypeBits); err != nil {
		return err
	}
	if err := w.writeUint(0, unitSyncBits); err != nil {
		return err
	}
	if err := w.writeUint(0, unitLayerBits); err != nil {
		return err
	}
	if err := w.writeUint(0, unitDurationBits); err != nil { // additive metadata only, spec.md Open Question (c)
		return err
	}
	if err := w.writeUint(uint64(payloadLen), unitLengthBits); err != nil {
		return err
	}
	return w.writeUint(0, unitReservedBits)
}

func readUnitHeader(r *Reader) (int, error) {
	if _, err := r.readUint(unitTypeBits); err != nil {
		return 0, err
	}
	if _, err := r.readUint(unitSyncBits); err != nil {
		return 0, err
	}
	if _, err := r.readUint(unitLayerBits); err != nil {
		return 0, err
	}
	if _, err := r.readUint(unitDurationBits); err != nil {
		return 0, err
	}
	n, err := r.readUint(unitLengthBits)
	if err != nil {
		return 0, err
	}
	if _, err := r.readUint(unitReservedBits); err != nil {
		return 0, err
	}
	return int(n), nil
}

func writeSceneHeader(w *Writer, h *scene.Haptics) error {
	return writePacket(w, PacketSceneHeader, func(sub *Writer) error {
		if err := sub.writeString(h.Version); err != nil {
			return err
		}
		if err := sub.writeString(h.Date); err != nil {
			return err
		}
		if err := sub.writeString(h.Description); err != nil {
			return err
		}
		return sub.writeUint(uint64(h.Timescale), 32)
	})
}

func readSceneHeader(r *Reader, h *scene.Haptics) error {
	var err error
	if h.Version, err = r.readString(); err != nil {
		return err
	}
	if h.Date, err = r.readString(); err != nil {
		return err
	}
	if h.Description, err = r.readString(); err != nil {
		return err
	}
	ts, err := r.readUint(32)
	if err != nil {
		return err
	}
	h.Timescale = int(ts)
	return nil
}

func writeAvatar(w *Writer, a *scene.Avatar) error {
	return writePacket(w, PacketAvatar, func(sub *Writer) error {
		if err := sub.writeUint(uint64(a.ID), avatarIDBits); err != nil {
			return err
		}
		if err := sub.writeUint(uint64(a.LOD), avatarLODBits); err != nil {
			return err
		}
		if err := sub.writeUint(uint64(a.Type), avatarTypeBits); err != nil {
			return err
		}
		if a.Type == scene.AvatarCustom {
			return sub.writeString(a.Mesh)
		}
		return nil
	})
}

func readAvatar(r *Reader) (scene.Avatar, error) {
	var a scene.Avatar
	id, err := r.readUint(avatarIDBits)
	if err != nil {
		return a, err
	}
	lod, err := r.readUint(avatarLODBits)
	if err != nil {
		return a, err
	}
	typ, err := r.readUint(avatarTypeBits)
	if err != nil {
		return a, err
	}
	a.ID, a.LOD, a.Type = int(id), int(lod), scene.AvatarType(typ)
	if a.Type == scene.AvatarCustom {
		if a.Mesh, err = r.readString(); err != nil {
			return a, err
		}
	}
	return a, nil
}

func writePerceptionBody(w *Writer, p *scene.Perception) error {
	if err := w.writeUint(uint64(p.ID), perceptionIDBits); err != nil {
		return err
	}
	if err := w.writeUint(uint64(p.AvatarID), perceptionIDBits); err != nil {
		return err
	}
	if err := w.writeString(p.Description); err != nil {
		return err
	}
	if err := w.writeUint(uint64(p.Modality), perceptionModalityBits); err != nil {
		return err
	}
	if err := w.writeInt(int64(p.UnitExponent), perceptionExpBits); err != nil {
		return err
	}
	if err := w.writeInt(int64(p.ModalityExponent), perceptionExpBits); err != nil {
		return err
	}
	if err := w.writeUint(uint64(len(p.ReferenceDevices)), 8); err != nil {
		return err
	}
	if err := w.writeUint(uint64(len(p.Channels)), 16); err != nil {
		return err
	}
	if err := w.writeUint(uint64(len(p.EffectLibrary)), 16); err != nil {
		return err
	}
	for i := range p.ReferenceDevices {
		if err := writeReferenceDevice(w, &p.ReferenceDevices[i]); err != nil {
			return err
		}
	}
	for i := range p.Channels {
		if err := writePacket(w, PacketChannel, func(sub *Writer) error {
			return writeChannelBody(sub, &p.Channels[i])
		}); err != nil {
			return err
		}
	}
	keys := make([]int, 0, len(p.EffectLibrary))
	for k := range p.EffectLibrary {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		e := p.EffectLibrary[k]
		if err := writePacket(w, PacketEffect, func(sub *Writer) error {
			if err := sub.writeUint(uint64(k), effectIDBits); err != nil {
				return err
			}
			return writeEffectBody(sub, &e, false)
		}); err != nil {
			return err
		}
	}
	return nil
}

func readPerceptionBody(r *Reader) (scene.Perception, error) {
	var p scene.Perception
	id, err := r.readUint(perceptionIDBits)
	if err != nil {
		return p, err
	}
	avatarID, err := r.readUint(perceptionIDBits)
	if err != nil {
		return p, err
	}
	desc, err := r.readString()
	if err != nil {
		return p, err
	}
	modality, err := r.readUint(perceptionModalityBits)
	if err != nil {
		return p, err
	}
	unitExp, err := r.readInt(perceptionExpBits)
	if err != nil {
		return p, err
	}
	modExp, err := r.readInt(perceptionExpBits)
	if err != nil {
		return p, err
	}
	refDeviceCount, err := r.readUint(8)
	if err != nil {
		return p, err
	}
	channelCount, err := r.readUint(16)
	if err != nil {
		return p, err
	}
	libraryCount, err := r.readUint(16)
	if err != nil {
		return p, err
	}

	p.ID, p.AvatarID, p.Description = int(id), int(avatarID), desc
	p.Modality = scene.PerceptionModality(modality)
	p.UnitExponent, p.ModalityExponent = int(unitExp), int(modExp)
	p.EffectLibrary = map[int]scene.Effect{}

	for i := uint64(0); i < refDeviceCount; i++ {
		d, err := readReferenceDevice(r)
		if err != nil {
			return p, err
		}
		p.ReferenceDevices = append(p.ReferenceDevices, d)
	}
	for i := uint64(0); i < channelCount; i++ {
		var c scene.Channel
		err := readPacket(r, func(t PacketType, payload *Reader, _ int) error {
			if t != PacketChannel {
				return haperr.New(haperr.Parse, "bitstream: expected channel packet, got %d", t)
			}
			var err error
			c, err = readChannelBody(payload)
			return err
		})
		if err != nil {
			return p, err
		}
		p.Channels = append(p.Channels, c)
	}
	for i := uint64(0); i < libraryCount; i++ {
		err := readPacket(r, func(t PacketType, payload *Reader, _ int) error {
			if t != PacketEffect {
				return haperr.New(haperr.Parse, "bitstream: expected effect packet, got %d", t)
			}
			id, err := payload.readUint(effectIDBits)
			if err != nil {
				return err
			}
			e, err := readEffectBody(payload, false)
			if err != nil {
				return err
			}
			p.EffectLibrary[int(id)] = e
			return nil
		})
		if err != nil {
			return p, err
		}
	}
	return p, nil
}

func writeReferenceDevice(w *Writer, d *scene.ReferenceDevice) error {
	return writePacket(w, PacketReferenceDevice, func(sub *Writer) error {
		if err := sub.writeUint(uint64(d.ID), refDeviceIDBits); err != nil {
			return err
		}
		if err := sub.writeString(d.Name); err != nil {
			return err
		}
		if err := sub.writeUint(uint64(d.BodyPartMask), refDeviceBodyMaskBits); err != nil {
			return err
		}
		if err := sub.writeUint(uint64(d.Present), refDeviceOptFields); err != nil {
			return err
		}
		fields := []struct {
			present bool
			value   float64
		}{
			{d.Present&scene.PresentMaxFrequency != 0, d.MaxFrequency},
			{d.Present&scene.PresentMinFrequency != 0, d.MinFrequency},
			{d.Present&scene.PresentResonanceFreq != 0, d.ResonanceFreq},
			{d.Present&scene.PresentMaxAmplitude != 0, d.MaxAmplitude},
			{d.Present&scene.PresentImpedance != 0, d.Impedance},
			{d.Present&scene.PresentMaxVoltage != 0, d.MaxVoltage},
			{d.Present&scene.PresentMaxCurrent != 0, d.MaxCurrent},
			{d.Present&scene.PresentMaxDisplacement != 0, d.MaxDisplacement},
			{d.Present&scene.PresentWeight != 0, d.Weight},
			{d.Present&scene.PresentSize != 0, d.Size},
			{d.Present&scene.PresentCustom != 0, d.Custom},
		}
		for _, f := range fields {
			if f.present {
				if err := sub.writeFloat32(f.value); err != nil {
					return err
				}
			}
		}
		if d.Present&scene.PresentActuator != 0 {
			if err := sub.writeUint(uint64(d.Actuator), refDeviceTypeBits); err != nil {
				return err
			}
		}
		return nil
	})
}

func readReferenceDevice(r *Reader) (scene.ReferenceDevice, error) {
	var d scene.ReferenceDevice
	err := readPacket(r, func(t PacketType, payload *Reader, _ int) error {
		if t != PacketReferenceDevice {
			return haperr.New(haperr.Parse, "bitstream: expected reference device packet, got %d", t)
		}
		id, err := payload.readUint(refDeviceIDBits)
		if err != nil {
			return err
		}
		name, err := payload.readString()
		if err != nil {
			return err
		}
		mask, err := payload.readUint(refDeviceBodyMaskBits)
		if err != nil {
			return err
		}
		present, err := payload.readUint(refDeviceOptFields)
		if err != nil {
			return err
		}
		d.ID, d.Name, d.BodyPartMask = int(id), name, uint32(mask)
		d.Present = scene.ReferenceDevicePresence(present)

		fields := []struct {
			flag   scene.ReferenceDevicePresence
			target *float64
		}{
			{scene.PresentMaxFrequency, &d.MaxFrequency},
			{scene.PresentMinFrequency, &d.MinFrequency},
			{scene.PresentResonanceFreq, &d.ResonanceFreq},
			{scene.PresentMaxAmplitude, &d.MaxAmplitude},
			{scene.PresentImpedance, &d.Impedance},
			{scene.PresentMaxVoltage, &d.MaxVoltage},
			{scene.PresentMaxCurrent, &d.MaxCurrent},
			{scene.PresentMaxDisplacement, &d.MaxDisplacement},
			{scene.PresentWeight, &d.Weight},
			{scene.PresentSize, &d.Size},
			{scene.PresentCustom, &d.Custom},
		}
		for _, f := range fields {
			if d.Present&f.flag != 0 {
				v, err := payload.readFloat32()
				if err != nil {
					return err
				}
				*f.target = v
			}
		}
		if d.Present&scene.PresentActuator != 0 {
			a, err := payload.readUint(refDeviceTypeBits)
			if err != nil {
				return err
			}
			d.Actuator = scene.ActuatorType(a)
		}
		return nil
	})
	return d, err
}

func writeChannelBody(w *Writer, c *scene.Channel) error {
	if err := w.writeUint(uint64(c.ID), channelIDBits); err != nil {
		return err
	}
	if err := w.writeString(c.Description); err != nil {
		return err
	}
	if err := w.writeFloat32(c.Gain); err != nil {
		return err
	}
	if err := w.writeFloat32(c.MixingWeight); err != nil {
		return err
	}
	if err := w.writeUint(uint64(c.BodyPartMask), channelBodyMaskBits); err != nil {
		return err
	}
	if err := w.writeBool(c.ReferenceDeviceID != nil); err != nil {
		return err
	}
	if c.ReferenceDeviceID != nil {
		if err := w.writeUint(uint64(*c.ReferenceDeviceID), refDeviceIDBits); err != nil {
			return err
		}
	}
	if err := w.writeBool(c.SamplingFrequency != nil); err != nil {
		return err
	}
	if c.SamplingFrequency != nil {
		if err := w.writeUint(uint64(*c.SamplingFrequency), channelFreqBits); err != nil {
			return err
		}
	}
	if err := w.writeBool(c.SampleCount != nil); err != nil {
		return err
	}
	if c.SampleCount != nil {
		if err := w.writeUint(uint64(*c.SampleCount), channelSampleCntBits); err != nil {
			return err
		}
	}
	if err := writeOptionalVec3(w, c.Direction); err != nil {
		return err
	}
	if err := writeOptionalVec3(w, c.ActuatorResolution); err != nil {
		return err
	}
	if err := w.writeUint(uint64(len(c.BodyPartTargets)), 8); err != nil {
		return err
	}
	for _, t := range c.BodyPartTargets {
		if err := w.writeUint(uint64(t), channelBodyTargetBits); err != nil {
			return err
		}
	}
	if err := w.writeUint(uint64(len(c.ActuatorTargets)), 8); err != nil {
		return err
	}
	for _, v := range c.ActuatorTargets {
		if err := writeVec3(w, v); err != nil {
			return err
		}
	}
	if err := w.writeUint(uint64(len(c.Vertices)), 16); err != nil {
		return err
	}
	for _, v := range c.Vertices {
		if err := w.writeUint(uint64(uint32(v)), channelVertexBits); err != nil {
			return err
		}
	}
	if err := w.writeUint(uint64(len(c.Bands)), 8); err != nil {
		return err
	}
	for i := range c.Bands {
		if err := writePacket(w, PacketBand, func(sub *Writer) error {
			return writeBandBody(sub, &c.Bands[i])
		}); err != nil {
			return err
		}
	}
	return nil
}

func readChannelBody(r *Reader) (scene.Channel, error) {
	var c scene.Channel
	id, err := r.readUint(channelIDBits)
	if err != nil {
		return c, err
	}
	desc, err := r.readString()
	if err != nil {
		return c, err
	}
	gain, err := r.readFloat32()
	if err != nil {
		return c, err
	}
	mixing, err := r.readFloat32()
	if err != nil {
		return c, err
	}
	mask, err := r.readUint(channelBodyMaskBits)
	if err != nil {
		return c, err
	}
	c.ID, c.Description, c.Gain, c.MixingWeight, c.BodyPartMask = int(id), desc, gain, mixing, uint32(mask)

	hasRefDevice, err := r.readBool()
	if err != nil {
		return c, err
	}
	if hasRefDevice {
		v, err := r.readUint(refDeviceIDBits)
		if err != nil {
			return c, err
		}
		iv := int(v)
		c.ReferenceDeviceID = &iv
	}
	hasFreq, err := r.readBool()
	if err != nil {
		return c, err
	}
	if hasFreq {
		v, err := r.readUint(channelFreqBits)
		if err != nil {
			return c, err
		}
		iv := int(v)
		c.SamplingFrequency = &iv
	}
	hasCount, err := r.readBool()
	if err != nil {
		return c, err
	}
	if hasCount {
		v, err := r.readUint(channelSampleCntBits)
		if err != nil {
			return c, err
		}
		iv := int(v)
		c.SampleCount = &iv
	}
	if c.Direction, err = readOptionalVec3(r); err != nil {
		return c, err
	}
	if c.ActuatorResolution, err = readOptionalVec3(r); err != nil {
		return c, err
	}
	targetCount, err := r.readUint(8)
	if err != nil {
		return c, err
	}
	for i := uint64(0); i < targetCount; i++ {
		v, err := r.readUint(channelBodyTargetBits)
		if err != nil {
			return c, err
		}
		c.BodyPartTargets = append(c.BodyPartTargets, scene.BodyPartTarget(v))
	}
	actuatorCount, err := r.readUint(8)
	if err != nil {
		return c, err
	}
	for i := uint64(0); i < actuatorCount; i++ {
		v, err := readVec3(r)
		if err != nil {
			return c, err
		}
		c.ActuatorTargets = append(c.ActuatorTargets, v)
	}
	vertCount, err := r.readUint(16)
	if err != nil {
		return c, err
	}
	for i := uint64(0); i < vertCount; i++ {
		v, err := r.readUint(channelVertexBits)
		if err != nil {
			return c, err
		}
		c.Vertices = append(c.Vertices, int(int32(uint32(v))))
	}
	bandCount, err := r.readUint(8)
	if err != nil {
		return c, err
	}
	for i := uint64(0); i < bandCount; i++ {
		var b scene.Band
		err := readPacket(r, func(t PacketType, payload *Reader, _ int) error {
			if t != PacketBand {
				return haperr.New(haperr.Parse, "bitstream: expected band packet, got %d", t)
			}
			var err error
			b, err = readBandBody(payload)
			return err
		})
		if err != nil {
			return c, err
		}
		c.Bands = append(c.Bands, b)
	}
	return c, nil
}

func writeVec3(w *Writer, v scene.Vec3) error {
	if err := w.writeFloat32(v.X); err != nil {
		return err
	}
	if err := w.writeFloat32(v.Y); err != nil {
		return err
	}
	return w.writeFloat32(v.Z)
}

func readVec3(r *Reader) (scene.Vec3, error) {
	var v scene.Vec3
	var err error
	if v.X, err = r.readFloat32(); err != nil {
		return v, err
	}
	if v.Y, err = r.readFloat32(); err != nil {
		return v, err
	}
	if v.Z, err = r.readFloat32(); err != nil {
		return v, err
	}
	return v, nil
}

func writeOptionalVec3(w *Writer, v *scene.Vec3) error {
	if err := w.writeBool(v != nil); err != nil {
		return err
	}
	if v != nil {
		return writeVec3(w, *v)
	}
	return nil
}

func readOptionalVec3(r *Reader) (*scene.Vec3, error) {
	has, err := r.readBool()
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, nil
	}
	v, err := readVec3(r)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func writeBandBody(w *Writer, b *scene.Band) error {
	if err := w.writeUint(uint64(b.Type), bandTypeBits); err != nil {
		return err
	}
	if err := w.writeUint(uint64(b.CurveType), curveTypeBits); err != nil {
		return err
	}
	if err := w.writeBool(b.Type == scene.BandWaveletWave); err != nil {
		return err
	}
	if b.Type == scene.BandWaveletWave {
		if err := w.writeUint(uint64(b.BlockLength), blockLenBits); err != nil {
			return err
		}
	}
	if err := w.writeFloat32(b.LowerFrequencyLimit); err != nil {
		return err
	}
	if err := w.writeFloat32(b.UpperFrequencyLimit); err != nil {
		return err
	}
	if err := w.writeBool(b.Priority != nil); err != nil {
		return err
	}
	if b.Priority != nil {
		if err := w.writeUint(uint64(*b.Priority), bandPriorityBits); err != nil {
			return err
		}
	}
	if err := w.writeUint(uint64(len(b.Effects)), 16); err != nil {
		return err
	}
	isWavelet := b.Type == scene.BandWaveletWave
	for i := range b.Effects {
		if err := writePacket(w, PacketEffect, func(sub *Writer) error {
			if err := sub.writeUint(0, effectIDBits); err != nil { // unused for inline effects, kept for framing symmetry with library effects
				return err
			}
			return writeEffectBody(sub, &b.Effects[i], isWavelet)
		}); err != nil {
			return err
		}
	}
	return nil
}

func readBandBody(r *Reader) (scene.Band, error) {
	var b scene.Band
	typ, err := r.readUint(bandTypeBits)
	if err != nil {
		return b, err
	}
	curve, err := r.readUint(curveTypeBits)
	if err != nil {
		return b, err
	}
	hasBlockLen, err := r.readBool()
	if err != nil {
		return b, err
	}
	b.Type, b.CurveType = scene.BandType(typ), scene.CurveType(curve)
	if hasBlockLen {
		v, err := r.readUint(blockLenBits)
		if err != nil {
			return b, err
		}
		b.BlockLength = int(v)
	}
	if b.LowerFrequencyLimit, err = r.readFloat32(); err != nil {
		return b, err
	}
	if b.UpperFrequencyLimit, err = r.readFloat32(); err != nil {
		return b, err
	}
	hasPriority, err := r.readBool()
	if err != nil {
		return b, err
	}
	if hasPriority {
		v, err := r.readUint(bandPriorityBits)
		if err != nil {
			return b, err
		}
		iv := int(v)
		b.Priority = &iv
	}
	effectCount, err := r.readUint(16)
	if err != nil {
		return b, err
	}
	isWavelet := b.Type == scene.BandWaveletWave
	for i := uint64(0); i < effectCount; i++ {
		var e scene.Effect
		err := readPacket(r, func(t PacketType, payload *Reader, _ int) error {
			if t != PacketEffect {
				return haperr.New(haperr.Parse, "bitstream: expected effect packet, got %d", t)
			}
			if _, err := payload.readUint(effectIDBits); err != nil {
				return err
			}
			var err error
			e, err = readEffectBody(payload, isWavelet)
			return err
		})
		if err != nil {
			return b, err
		}
		b.Effects = append(b.Effects, e)
	}
	return b, nil
}

func writeEffectBody(w *Writer, e *scene.Effect, isWavelet bool) error {
	if err := w.writeUint(uint64(uint32(e.Position)), effectPositionBits); err != nil {
		return err
	}
	if err := w.writeFloat32(e.Phase); err != nil {
		return err
	}
	if err := w.writeUint(uint64(e.Base), baseSignalBits); err != nil {
		return err
	}
	if err := w.writeUint(uint64(e.Type), effectTypeBits); err != nil {
		return err
	}
	if err := w.writeBool(e.Semantic != nil); err != nil {
		return err
	}
	if e.Semantic != nil {
		if err := w.writeUint(uint64(e.Semantic.Layer1), semanticLayer1Bits); err != nil {
			return err
		}
		if err := w.writeUint(uint64(e.Semantic.Layer2), semanticLayer2Bits); err != nil {
			return err
		}
	}

	switch e.Type {
	case scene.EffectReference:
		return w.writeUint(uint64(e.ReferenceID), referenceIDBits)
	case scene.EffectTimeline:
		if err := w.writeUint(uint64(len(e.Children)), 16); err != nil {
			return err
		}
		for i := range e.Children {
			if err := writePacket(w, PacketEffect, func(sub *Writer) error {
				if err := sub.writeUint(0, effectIDBits); err != nil {
					return err
				}
				return writeEffectBody(sub, &e.Children[i], false)
			}); err != nil {
				return err
			}
		}
		return nil
	default:
		if isWavelet {
			if err := w.writeUint(uint64(len(e.WaveletBlocks)), 16); err != nil {
				return err
			}
			for _, blk := range e.WaveletBlocks {
				if err := writePacket(w, PacketWaveletBytes, func(sub *Writer) error {
					for _, b := range blk {
						if err := sub.writeUint(uint64(b), 8); err != nil {
							return err
						}
					}
					return nil
				}); err != nil {
					return err
				}
			}
			return nil
		}
		if err := w.writeUint(uint64(len(e.Keyframes)), 16); err != nil {
			return err
		}
		for i := range e.Keyframes {
			if err := writePacket(w, PacketKeyframe, func(sub *Writer) error {
				return writeKeyframeBody(sub, &e.Keyframes[i])
			}); err != nil {
				return err
			}
		}
		return nil
	}
}

func readEffectBody(r *Reader, isWavelet bool) (scene.Effect, error) {
	var e scene.Effect
	pos, err := r.readUint(effectPositionBits)
	if err != nil {
		return e, err
	}
	e.Position = int(int32(uint32(pos)))
	if e.Phase, err = r.readFloat32(); err != nil {
		return e, err
	}
	base, err := r.readUint(baseSignalBits)
	if err != nil {
		return e, err
	}
	typ, err := r.readUint(effectTypeBits)
	if err != nil {
		return e, err
	}
	e.Base, e.Type = scene.BaseSignal(base), scene.EffectType(typ)

	hasSemantic, err := r.readBool()
	if err != nil {
		return e, err
	}
	if hasSemantic {
		l1, err := r.readUint(semanticLayer1Bits)
		if err != nil {
			return e, err
		}
		l2, err := r.readUint(semanticLayer2Bits)
		if err != nil {
			return e, err
		}
		e.Semantic = &scene.SemanticTag{Layer1: int(l1), Layer2: int(l2)}
	}

	switch e.Type {
	case scene.EffectReference:
		v, err := r.readUint(referenceIDBits)
		if err != nil {
			return e, err
		}
		e.ReferenceID = int(v)
		return e, nil
	case scene.EffectTimeline:
		count, err := r.readUint(16)
		if err != nil {
			return e, err
		}
		for i := uint64(0); i < count; i++ {
			var child scene.Effect
			err := readPacket(r, func(t PacketType, payload *Reader, _ int) error {
				if t != PacketEffect {
					return haperr.New(haperr.Parse, "bitstream: expected effect packet, got %d", t)
				}
				if _, err := payload.readUint(effectIDBits); err != nil {
					return err
				}
				var err error
				child, err = readEffectBody(payload, false)
				return err
			})
			if err != nil {
				return e, err
			}
			e.Children = append(e.Children, child)
		}
		return e, nil
	default:
		if isWavelet {
			count, err := r.readUint(16)
			if err != nil {
				return e, err
			}
			for i := uint64(0); i < count; i++ {
				var blk []byte
				err := readPacket(r, func(t PacketType, payload *Reader, nbytes int) error {
					if t != PacketWaveletBytes {
						return haperr.New(haperr.Parse, "bitstream: expected wavelet-bytes packet, got %d", t)
					}
					blk = make([]byte, nbytes)
					for j := range blk {
						b, err := payload.readUint(8)
						if err != nil {
							return err
						}
						blk[j] = byte(b)
					}
					return nil
				})
				if err != nil {
					return e, err
				}
				e.WaveletBlocks = append(e.WaveletBlocks, blk)
			}
			return e, nil
		}
		count, err := r.readUint(16)
		if err != nil {
			return e, err
		}
		for i := uint64(0); i < count; i++ {
			var k scene.Keyframe
			err := readPacket(r, func(t PacketType, payload *Reader, _ int) error {
				if t != PacketKeyframe {
					return haperr.New(haperr.Parse, "bitstream: expected keyframe packet, got %d", t)
				}
				var err error
				k, err = readKeyframeBody(payload)
				return err
			})
			if err != nil {
				return e, err
			}
			e.Keyframes = append(e.Keyframes, k)
		}
		return e, nil
	}
}

const (
	keyframeHasPosition  = 1 << 0
	keyframeHasAmplitude = 1 << 1
	keyframeHasFrequency = 1 << 2
)

func writeKeyframeBody(w *Writer, k *scene.Keyframe) error {
	var mask uint64
	if k.RelativePosition != nil {
		mask |= keyframeHasPosition
	}
	if k.Amplitude != nil {
		mask |= keyframeHasAmplitude
	}
	if k.Frequency != nil {
		mask |= keyframeHasFrequency
	}
	if err := w.writeUint(mask, keyframeMaskBits); err != nil {
		return err
	}
	if k.RelativePosition != nil {
		if err := w.writeInt(int64(*k.RelativePosition), keyframePositionBits); err != nil {
			return err
		}
	}
	if k.Amplitude != nil {
		if err := w.writeUint(uint64(quantizeAmplitude(*k.Amplitude)), keyframeAmplitudeBits); err != nil {
			return err
		}
	}
	if k.Frequency != nil {
		if err := w.writeUint(uint64(uint16(*k.Frequency)), keyframeFrequencyBits); err != nil {
			return err
		}
	}
	return nil
}

func readKeyframeBody(r *Reader) (scene.Keyframe, error) {
	var k scene.Keyframe
	mask, err := r.readUint(keyframeMaskBits)
	if err != nil {
		return k, err
	}
	if mask&keyframeHasPosition != 0 {
		v, err := r.readInt(keyframePositionBits)
		if err != nil {
			return k, err
		}
		iv := int(v)
		k.RelativePosition = &iv
	}
	if mask&keyframeHasAmplitude != 0 {
		v, err := r.readUint(keyframeAmplitudeBits)
		if err != nil {
			return k, err
		}
		a := dequantizeAmplitude(uint8(v))
		k.Amplitude = &a
	}
	if mask&keyframeHasFrequency != 0 {
		v, err := r.readUint(keyframeFrequencyBits)
		if err != nil {
			return k, err
		}
		iv := int(int16(uint16(v)))
		k.Frequency = &iv
	}
	return k, nil
}

// quantizeAmplitude/dequantizeAmplitude map [-1, 1] onto an 8-bit unsigned
// code, matching KEYFRAME_AMPLITUDE's declared width (spec.md §6).
func quantizeAmplitude(a float64) uint8 {
	if a < -1 {
		a = -1
	}
	if a > 1 {
		a = 1
	}
	return uint8((a + 1) / 2 * 255)
}

func dequantizeAmplitude(q uint8) float64 {
	return float64(q)/255*2 - 1
}

func writeSyncMarker(w *Writer, m *scene.SyncMarker) error {
	return writePacket(w, PacketSyncMarker, func(sub *Writer) error {
		if err := sub.writeUint(uint64(uint32(m.Timestamp)), 32); err != nil {
			return err
		}
		if err := sub.writeBool(m.Timescale != nil); err != nil {
			return err
		}
		if m.Timescale != nil {
			return sub.writeUint(uint64(*m.Timescale), 32)
		}
		return nil
	})
}

func readSyncMarker(r *Reader) (scene.SyncMarker, error) {
	var m scene.SyncMarker
	err := readPacket(r, func(t PacketType, payload *Reader, _ int) error {
		if t != PacketSyncMarker {
			return haperr.New(haperr.Parse, "bitstream: expected sync marker packet, got %d", t)
		}
		ts, err := payload.readUint(32)
		if err != nil {
			return err
		}
		m.Timestamp = int(int32(uint32(ts)))
		hasScale, err := payload.readBool()
		if err != nil {
			return err
		}
		if hasScale {
			v, err := payload.readUint(32)
			if err != nil {
				return err
			}
			iv := int(v)
			m.Timescale = &iv
		}
		return nil
	})
	return m, err
}
