// Package scenejson maps the scene model to and from the lossless
// structural JSON form described in spec.md §4.8. The scene types
// themselves carry the enum marshal/unmarshal logic (internal/scene's
// MarshalJSON/UnmarshalJSON methods print enum names instead of raw
// ints), so this package is a thin, explicit entry point rather than a
// second type hierarchy — mirroring how tools/forge/encode/equiv.go reads
// and writes its cache structs directly with encoding/json, no
// intermediate DTOs.
package scenejson

import (
	"encoding/json"

	"hapcodec/internal/haperr"
	"hapcodec/internal/scene"
)

// Marshal renders h as indented, human-readable JSON.
func Marshal(h *scene.Haptics) ([]byte, error) {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return nil, haperr.Wrap(haperr.Internal, err, "scenejson: marshal")
	}
	return data, nil
}

// Unmarshal parses data produced by Marshal (or any structurally
// equivalent JSON) back into a scene.
func Unmarshal(data []byte) (*scene.Haptics, error) {
	var h scene.Haptics
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, haperr.Wrap(haperr.Parse, err, "scenejson: unmarshal")
	}
	return &h, nil
}
