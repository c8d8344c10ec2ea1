package xmlimport

import (
	"testing"

	"hapcodec/internal/scene"
)

const sampleIvs = `<VibrationPattern>
  <BasisEffect name="buzz" waveform="Sine" period="10" magnitude="0.8" attackTime="0" attackLevel="0" fadeTime="50" fadeLevel="0"/>
  <BasisEffect name="click" waveform="" period="0" magnitude="1.0" attackTime="0" attackLevel="1.0" fadeTime="0" fadeLevel="0"/>
  <Timeline>
    <Launch library="buzz" time="0"/>
    <Launch library="click" time="100"/>
  </Timeline>
</VibrationPattern>`

func TestImport(t *testing.T) {
	p, err := Import([]byte(sampleIvs))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(p.Channels) != 1 {
		t.Fatalf("channels = %d, want 1", len(p.Channels))
	}
	ch := p.Channels[0]
	if len(ch.Bands) != 2 {
		t.Fatalf("bands = %d, want 2 (wave + transient)", len(ch.Bands))
	}
	if ch.Bands[0].Type != scene.BandWave {
		t.Errorf("bands[0].Type = %v, want Wave", ch.Bands[0].Type)
	}
	if ch.Bands[1].Type != scene.BandTransient {
		t.Errorf("bands[1].Type = %v, want Transient", ch.Bands[1].Type)
	}
	if ch.Bands[1].Effects[0].Position != 100 {
		t.Errorf("transient position = %d, want 100", ch.Bands[1].Effects[0].Position)
	}
}

func TestImportRejectsUnknownLibraryReference(t *testing.T) {
	bad := `<VibrationPattern><Timeline><Launch library="missing" time="0"/></Timeline></VibrationPattern>`
	if _, err := Import([]byte(bad)); err == nil {
		t.Error("expected error for dangling library reference")
	}
}
