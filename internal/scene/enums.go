package scene

import (
	"encoding/json"

	"hapcodec/internal/haperr"
)

// stringEnum is the shared machinery behind every enum's JSON
// representation: a name table plus generic marshal/unmarshal/parse
// helpers, so the scene-JSON form (spec.md §4.8) names an enum instead of
// spelling out its integer value.
type stringEnum interface {
	~int
}

func enumString[T stringEnum](v T, names []string) string {
	i := int(v)
	if i < 0 || i >= len(names) {
		return "unknown"
	}
	return names[i]
}

func enumMarshalJSON[T stringEnum](v T, names []string) ([]byte, error) {
	return json.Marshal(enumString(v, names))
}

func enumUnmarshalJSON[T stringEnum](data []byte, names []string, kind string) (T, error) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return 0, haperr.Wrap(haperr.Parse, err, "scene: decode %s", kind)
	}
	for i, name := range names {
		if name == s {
			return T(i), nil
		}
	}
	return 0, haperr.New(haperr.Parse, "scene: unknown %s %q", kind, s)
}

var avatarTypeNames = []string{"vibration", "pressure", "temperature", "custom"}

func (t AvatarType) String() string                { return enumString(t, avatarTypeNames) }
func (t AvatarType) MarshalJSON() ([]byte, error)  { return enumMarshalJSON(t, avatarTypeNames) }
func (t *AvatarType) UnmarshalJSON(data []byte) error {
	v, err := enumUnmarshalJSON[AvatarType](data, avatarTypeNames, "avatar type")
	if err != nil {
		return err
	}
	*t = v
	return nil
}

var perceptionModalityNames = []string{
	"other", "pressure", "acceleration", "velocity", "position",
	"temperature", "vibration", "vibrotactile_texture", "stiffness",
	"water", "wind",
}

func (m PerceptionModality) String() string { return enumString(m, perceptionModalityNames) }
func (m PerceptionModality) MarshalJSON() ([]byte, error) {
	return enumMarshalJSON(m, perceptionModalityNames)
}
func (m *PerceptionModality) UnmarshalJSON(data []byte) error {
	v, err := enumUnmarshalJSON[PerceptionModality](data, perceptionModalityNames, "perception modality")
	if err != nil {
		return err
	}
	*m = v
	return nil
}

var actuatorTypeNames = []string{"unknown", "lra", "erm", "vcm", "piezo", "other"}

func (a ActuatorType) String() string               { return enumString(a, actuatorTypeNames) }
func (a ActuatorType) MarshalJSON() ([]byte, error) { return enumMarshalJSON(a, actuatorTypeNames) }
func (a *ActuatorType) UnmarshalJSON(data []byte) error {
	v, err := enumUnmarshalJSON[ActuatorType](data, actuatorTypeNames, "actuator type")
	if err != nil {
		return err
	}
	*a = v
	return nil
}

var bodyPartTargetNames = []string{
	"head", "torso", "arm_left", "arm_right", "hand_left", "hand_right",
	"leg_left", "leg_right", "foot_left", "foot_right",
}

func (b BodyPartTarget) String() string { return enumString(b, bodyPartTargetNames) }
func (b BodyPartTarget) MarshalJSON() ([]byte, error) {
	return enumMarshalJSON(b, bodyPartTargetNames)
}
func (b *BodyPartTarget) UnmarshalJSON(data []byte) error {
	v, err := enumUnmarshalJSON[BodyPartTarget](data, bodyPartTargetNames, "body part target")
	if err != nil {
		return err
	}
	*b = v
	return nil
}

var curveTypeNames = []string{"unknown", "linear", "cubic", "akima", "bezier", "bspline"}

func (c CurveType) String() string               { return enumString(c, curveTypeNames) }
func (c CurveType) MarshalJSON() ([]byte, error) { return enumMarshalJSON(c, curveTypeNames) }
func (c *CurveType) UnmarshalJSON(data []byte) error {
	v, err := enumUnmarshalJSON[CurveType](data, curveTypeNames, "curve type")
	if err != nil {
		return err
	}
	*c = v
	return nil
}

var bandTypeNames = []string{"curve", "transient", "wave", "wavelet_wave"}

func (b BandType) String() string               { return enumString(b, bandTypeNames) }
func (b BandType) MarshalJSON() ([]byte, error) { return enumMarshalJSON(b, bandTypeNames) }
func (b *BandType) UnmarshalJSON(data []byte) error {
	v, err := enumUnmarshalJSON[BandType](data, bandTypeNames, "band type")
	if err != nil {
		return err
	}
	*b = v
	return nil
}

var baseSignalNames = []string{"sine", "square", "triangle", "sawtooth_up", "sawtooth_down"}

func (s BaseSignal) String() string               { return enumString(s, baseSignalNames) }
func (s BaseSignal) MarshalJSON() ([]byte, error) { return enumMarshalJSON(s, baseSignalNames) }
func (s *BaseSignal) UnmarshalJSON(data []byte) error {
	v, err := enumUnmarshalJSON[BaseSignal](data, baseSignalNames, "base signal")
	if err != nil {
		return err
	}
	*s = v
	return nil
}

var effectTypeNames = []string{"basis", "reference", "timeline"}

func (e EffectType) String() string               { return enumString(e, effectTypeNames) }
func (e EffectType) MarshalJSON() ([]byte, error) { return enumMarshalJSON(e, effectTypeNames) }
func (e *EffectType) UnmarshalJSON(data []byte) error {
	v, err := enumUnmarshalJSON[EffectType](data, effectTypeNames, "effect type")
	if err != nil {
		return err
	}
	*e = v
	return nil
}
