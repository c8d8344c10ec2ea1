package curveimport

import (
	"testing"

	"hapcodec/internal/scene"
)

const sampleAhap = `{
  "Version": 1.0,
  "Metadata": {"Created": "test"},
  "Pattern": [
    {
      "ParameterCurve": {
        "ParameterID": "HapticIntensityControl",
        "Time": 0,
        "ParameterCurveControlPoints": [
          {"Time": 0, "ParameterValue": 0.0},
          {"Time": 0.5, "ParameterValue": 1.0}
        ]
      }
    },
    {
      "Event": {
        "EventType": "HapticTransient",
        "Time": 0.2,
        "EventParameters": [
          {"ParameterID": "HapticIntensity", "ParameterValue": 0.7},
          {"ParameterID": "HapticSharpness", "ParameterValue": 0.5}
        ]
      }
    }
  ]
}`

func TestImport(t *testing.T) {
	p, err := Import([]byte(sampleAhap))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if p.Modality != scene.ModalityVibration {
		t.Errorf("modality = %v, want Vibration", p.Modality)
	}
	if len(p.Channels) != 1 {
		t.Fatalf("channels = %d, want 1", len(p.Channels))
	}
	ch := p.Channels[0]
	if len(ch.Bands) != 2 {
		t.Fatalf("bands = %d, want 2 (curve + transient)", len(ch.Bands))
	}
	curve := ch.Bands[0]
	if curve.Type != scene.BandCurve {
		t.Errorf("bands[0].Type = %v, want Curve", curve.Type)
	}
	if got := len(curve.Effects[0].Keyframes); got != 2 {
		t.Errorf("curve keyframes = %d, want 2", got)
	}
	transient := ch.Bands[1]
	if transient.Type != scene.BandTransient {
		t.Errorf("bands[1].Type = %v, want Transient", transient.Type)
	}
	if *transient.Effects[0].Keyframes[0].Amplitude != 0.7 {
		t.Errorf("event amplitude = %v, want 0.7", *transient.Effects[0].Keyframes[0].Amplitude)
	}
	if transient.Effects[0].Position != 200 {
		t.Errorf("event position = %d, want 200ms", transient.Effects[0].Position)
	}
}

func TestImportRejectsUnknownParameterID(t *testing.T) {
	bad := `{"Pattern": [{"ParameterCurve": {"ParameterID": "Bogus", "Time": 0, "ParameterCurveControlPoints": []}}]}`
	if _, err := Import([]byte(bad)); err == nil {
		t.Error("expected error for unknown ParameterID")
	}
}
