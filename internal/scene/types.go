// Package scene is the typed in-memory model of a coded haptic scene:
// Haptics -> Avatar/Perception -> ReferenceDevice/Channel -> Band -> Effect
// -> Keyframe, plus top-level sync markers.
package scene

// AvatarType tags the kind of haptic avatar a perception is rendered on.
type AvatarType int

const (
	AvatarVibration AvatarType = iota
	AvatarPressure
	AvatarTemperature
	AvatarCustom
)

// Avatar is a rendering target. Only AvatarCustom carries a Mesh reference.
type Avatar struct {
	ID   int        `json:"id"`
	LOD  int        `json:"lod"`
	Type AvatarType `json:"type"`
	Mesh string     `json:"mesh,omitempty"` // opaque mesh reference, only meaningful when Type == AvatarCustom
}

// PerceptionModality is the closed set of haptic modalities a perception
// can encode.
type PerceptionModality int

const (
	ModalityOther PerceptionModality = iota
	ModalityPressure
	ModalityAcceleration
	ModalityVelocity
	ModalityPosition
	ModalityTemperature
	ModalityVibration
	ModalityVibrotactileTexture
	ModalityStiffness
	ModalityWater
	ModalityWind
)

// DefaultUnitExponent and DefaultModalityExponent are the spec-mandated
// defaults for Perception.UnitExponent / Perception.ModalityExponent.
const (
	DefaultUnitExponent     = -3
	DefaultModalityExponent = 0
)

// ActuatorType is the closed set of measured-device actuator kinds.
type ActuatorType int

const (
	ActuatorUnknown ActuatorType = iota
	ActuatorLRA
	ActuatorERM
	ActuatorVCM
	ActuatorPiezo
	ActuatorOther
)

// ReferenceDevice describes a physical actuator a channel is authored
// against. Every field past ID/Name is optional; Present records which
// optional fields actually carry a value so serializers don't need to
// invent a sentinel.
type ReferenceDevice struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	BodyPartMask uint32 `json:"body_part_mask"`

	MaxFrequency    float64      `json:"maximum_frequency,omitempty"`
	MinFrequency    float64      `json:"minimum_frequency,omitempty"`
	ResonanceFreq   float64      `json:"resonance_frequency,omitempty"`
	MaxAmplitude    float64      `json:"maximum_amplitude,omitempty"`
	Impedance       float64      `json:"impedance,omitempty"`
	MaxVoltage      float64      `json:"maximum_voltage,omitempty"`
	MaxCurrent      float64      `json:"maximum_current,omitempty"`
	MaxDisplacement float64      `json:"maximum_displacement,omitempty"`
	Weight          float64      `json:"weight,omitempty"`
	Size            float64      `json:"size,omitempty"`
	Custom          float64      `json:"custom,omitempty"`
	Actuator        ActuatorType `json:"actuator_type,omitempty"`

	Present ReferenceDevicePresence `json:"present_fields"`
}

// ReferenceDevicePresence is a 12-bit presence bitmask (matches the
// REFDEV_OPT_FIELDS width of the binary format) over the optional fields
// of ReferenceDevice, in fixed declaration order.
type ReferenceDevicePresence uint16

const (
	PresentMaxFrequency ReferenceDevicePresence = 1 << iota
	PresentMinFrequency
	PresentResonanceFreq
	PresentMaxAmplitude
	PresentImpedance
	PresentMaxVoltage
	PresentMaxCurrent
	PresentMaxDisplacement
	PresentWeight
	PresentSize
	PresentCustom
	PresentActuator
)

// BodyPartTarget enumerates coarse body regions a channel/vertex can target.
type BodyPartTarget int

const (
	BodyPartHead BodyPartTarget = iota
	BodyPartTorso
	BodyPartArmLeft
	BodyPartArmRight
	BodyPartHandLeft
	BodyPartHandRight
	BodyPartLegLeft
	BodyPartLegRight
	BodyPartFootLeft
	BodyPartFootRight
)

// Vec3 is a 3-axis float vector (direction, actuator resolution, ...).
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Channel carries the encoded bands for one output signal.
type Channel struct {
	ID           int     `json:"id"`
	Description  string  `json:"description,omitempty"`
	Gain         float64 `json:"gain"`
	MixingWeight float64 `json:"mixing_weight"`
	BodyPartMask uint32  `json:"body_part_mask"`

	ReferenceDeviceID *int `json:"reference_device_id,omitempty"` // nil if channel has no associated reference device

	SamplingFrequency *int `json:"sampling_frequency,omitempty"` // Hz, present only when the channel was derived from a waveform
	SampleCount       *int `json:"sample_count,omitempty"`

	Direction          *Vec3 `json:"direction,omitempty"`
	ActuatorResolution *Vec3 `json:"actuator_resolution,omitempty"`

	BodyPartTargets []BodyPartTarget `json:"body_part_target,omitempty"`
	ActuatorTargets []Vec3           `json:"actuator_target,omitempty"`
	Vertices        []int            `json:"vertices,omitempty"`

	Bands []Band `json:"bands"`
}

// CurveType selects the interpolation used to reconstruct a curve band.
type CurveType int

const (
	CurveUnknown CurveType = iota
	CurveLinear
	CurveCubic
	CurveAkima
	CurveBezier
	CurveBspline
)

// BandType tags which encoding/evaluation semantics a Band uses.
type BandType int

const (
	BandCurve BandType = iota
	BandTransient
	BandWave
	BandWaveletWave
)

// Band is one disjoint-frequency layer of a channel.
type Band struct {
	Type BandType `json:"type"`

	CurveType   CurveType `json:"curve_type,omitempty"`   // only meaningful when Type == BandCurve
	BlockLength int       `json:"block_length,omitempty"` // only meaningful when Type == BandWaveletWave; samples per coded block

	LowerFrequencyLimit float64 `json:"lower_frequency_limit"` // Hz
	UpperFrequencyLimit float64 `json:"upper_frequency_limit"` // Hz

	Priority *int `json:"priority,omitempty"`

	Effects []Effect `json:"effects"`
}

// BaseSignal selects the periodic waveform a Wave-band effect modulates.
type BaseSignal int

const (
	SignalSine BaseSignal = iota
	SignalSquare
	SignalTriangle
	SignalSawToothUp
	SignalSawToothDown
)

// EffectType distinguishes an inline effect from one that references a
// library prototype or nests a timeline of children.
type EffectType int

const (
	EffectBasis EffectType = iota
	EffectReference
	EffectTimeline
)

// SemanticTag is the two-level semantic classification an effect may carry.
// A nil *SemanticTag on Effect means no semantic tag is present.
type SemanticTag struct {
	Layer1 int `json:"semantic_layer_1"` // coarse classification (4 bits in the binary format)
	Layer2 int `json:"semantic_layer_2"` // fine classification (8 bits in the binary format)
}

// Effect is a positioned, phased contribution to a band.
type Effect struct {
	Position int        `json:"position"` // ticks, in the owning scene's timescale
	Phase    float64    `json:"phase,omitempty"`
	Base     BaseSignal `json:"base_signal,omitempty"`
	Type     EffectType `json:"type"`

	Semantic *SemanticTag `json:"semantic,omitempty"`

	ReferenceID int `json:"id,omitempty"` // valid only when Type == EffectReference: id into the owning Perception's library

	Children []Effect `json:"effects,omitempty"` // valid only when Type == EffectTimeline; each child's Position is relative to this effect

	Keyframes []Keyframe `json:"keyframes,omitempty"`

	// WaveletBlocks holds the SPIHT+arithmetic coded byte blob for each
	// fixed-length block of a wavelet band's residual signal (spec.md
	// §4.6); valid only when the owning Band.Type == BandWaveletWave, in
	// which case Keyframes is unused.
	WaveletBlocks [][]byte `json:"wavelet_blocks,omitempty"`
}

// Keyframe parametrizes an effect at a point in time. At least one of
// RelativePosition/Amplitude/Frequency must be present; an absent field inherits the
// previous keyframe's value during evaluation.
type Keyframe struct {
	RelativePosition *int     `json:"relative_position,omitempty"` // ticks, relative to the owning effect's Position
	Amplitude        *float64 `json:"amplitude_modulation,omitempty"` // in [-1, 1]
	Frequency        *int     `json:"frequency_modulation,omitempty"` // Hz
}

// HasValue reports whether the keyframe carries at least one field, which
// every keyframe must per spec.
func (k Keyframe) HasValue() bool {
	return k.RelativePosition != nil || k.Amplitude != nil || k.Frequency != nil
}

// SyncMarker is additive timeline metadata; evaluation (internal/synth)
// does not read it.
type SyncMarker struct {
	Timestamp int  `json:"timestamp"`
	Timescale *int `json:"timescale,omitempty"` // overrides the scene timescale for this marker only
}

// Perception groups the channels, reference devices, and reusable effect
// library for one modality on one avatar.
type Perception struct {
	ID               int                `json:"id"`
	AvatarID         int                `json:"avatar_id"`
	Description      string             `json:"description,omitempty"`
	Modality         PerceptionModality `json:"perception_modality"`
	UnitExponent     int                `json:"unit_exponent"`
	ModalityExponent int                `json:"perception_unit_exponent"`

	ReferenceDevices []ReferenceDevice `json:"reference_devices,omitempty"`
	Channels         []Channel         `json:"channels"`

	// EffectLibrary holds reusable effect prototypes keyed by id; a
	// Reference-type effect elsewhere in the perception points here.
	EffectLibrary map[int]Effect `json:"effect_library,omitempty"`
}

// NewPerception builds a Perception with the spec's default exponents.
func NewPerception(id, avatarID int, description string, modality PerceptionModality) Perception {
	return Perception{
		ID:               id,
		AvatarID:         avatarID,
		Description:      description,
		Modality:         modality,
		UnitExponent:     DefaultUnitExponent,
		ModalityExponent: DefaultModalityExponent,
		EffectLibrary:    map[int]Effect{},
	}
}

// DefaultTimescale is the scene-level ticks-per-second used when a scene
// does not declare its own.
const DefaultTimescale = 1000

// Haptics is the top-level scene container. It exclusively owns every
// entity reachable from it; Perception.AvatarID and Channel.ReferenceDeviceID
// are ids, not ownership.
type Haptics struct {
	Version     string `json:"version"`
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
	Timescale   int    `json:"timescale,omitempty"`

	Avatars     []Avatar     `json:"avatars"`
	Perceptions []Perception `json:"perceptions"`
	SyncMarkers []SyncMarker `json:"sync_markers,omitempty"`
}

// NewHaptics returns an empty scene with the default timescale.
func NewHaptics(version, date, description string) Haptics {
	return Haptics{
		Version:     version,
		Date:        date,
		Description: description,
		Timescale:   DefaultTimescale,
	}
}

// AvatarByID looks up an avatar by id; ok is false if no avatar has it.
func (h *Haptics) AvatarByID(id int) (Avatar, bool) {
	for _, a := range h.Avatars {
		if a.ID == id {
			return a, true
		}
	}
	return Avatar{}, false
}

// ReferenceDeviceByID looks up a reference device within a perception by id.
func (p *Perception) ReferenceDeviceByID(id int) (ReferenceDevice, bool) {
	for _, d := range p.ReferenceDevices {
		if d.ID == id {
			return d, true
		}
	}
	return ReferenceDevice{}, false
}
