package ohm

import "testing"

func TestRoundTrip(t *testing.T) {
	f := &File{
		Version:     1,
		Description: "demo sidecar",
		Elements: []Element{
			{
				Filename:    "rumble.haptic",
				Description: "main rumble",
				Channels: []Channel{
					{Description: "left motor", Gain: 0.8, BodyPartMask: 0x01},
					{Description: "right motor", Gain: 0.5, BodyPartMask: 0x02},
				},
			},
		},
	}

	data, err := Write(f)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(data)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if got.Version != f.Version || got.Description != f.Description {
		t.Fatalf("header mismatch: got %+v", got)
	}
	if len(got.Elements) != 1 || len(got.Elements[0].Channels) != 2 {
		t.Fatalf("unexpected shape: %+v", got)
	}
	if got.Elements[0].Filename != "rumble.haptic" {
		t.Errorf("filename = %q", got.Elements[0].Filename)
	}
	if got.Elements[0].Channels[0].Gain != 0.8 {
		t.Errorf("gain = %v, want 0.8", got.Elements[0].Channels[0].Gain)
	}
	if got.Elements[0].Channels[1].BodyPartMask != 0x02 {
		t.Errorf("mask = %v, want 2", got.Elements[0].Channels[1].BodyPartMask)
	}
}

func TestReadRejectsBadHeader(t *testing.T) {
	if _, err := Read([]byte("not an ohm file at all, definitely too short")); err == nil {
		t.Error("expected error for bad header")
	}
}
