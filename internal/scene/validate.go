package scene

import "fmt"

// Validate walks the scene and checks the invariants spec.md §3/§4.1 name:
// effects within a band are kept in non-decreasing position order, and no
// two effects of the same band overlap in time. It does not mutate the
// scene; callers that build a scene out of order should sort bands
// themselves (see internal/pcmdriver, which inserts in declared order and
// never needs to fix up afterwards).
func Validate(h *Haptics) error {
	for pi := range h.Perceptions {
		p := &h.Perceptions[pi]
		if _, ok := h.AvatarByID(p.AvatarID); !ok {
			return fmt.Errorf("perception %d: dangling avatar id %d", p.ID, p.AvatarID)
		}
		for ci := range p.Channels {
			c := &p.Channels[ci]
			if c.ReferenceDeviceID != nil {
				if _, ok := p.ReferenceDeviceByID(*c.ReferenceDeviceID); !ok {
					return fmt.Errorf("perception %d channel %d: dangling reference device id %d", p.ID, c.ID, *c.ReferenceDeviceID)
				}
			}
			for bi := range c.Bands {
				if err := validateBand(&c.Bands[bi]); err != nil {
					return fmt.Errorf("perception %d channel %d band %d: %w", p.ID, c.ID, bi, err)
				}
			}
		}
	}
	return nil
}

func validateBand(b *Band) error {
	prevEnd := -1
	for i := range b.Effects {
		e := &b.Effects[i]
		if i > 0 && e.Position < b.Effects[i-1].Position {
			return fmt.Errorf("effect %d out of order: position %d < previous %d", i, e.Position, b.Effects[i-1].Position)
		}
		if e.Type == EffectTimeline && len(e.Children) == 0 {
			return fmt.Errorf("effect %d: timeline effect has no children", i)
		}
		if end := effectExtent(b, e); prevEnd >= 0 && e.Position < prevEnd {
			// Transient/Wave bands are vectorial and their effects may legitimately
			// chain back-to-back; only reject true overlap in time.
			if effectsOverlap(b, e, prevEnd) {
				return fmt.Errorf("effect %d overlaps previous effect (starts at %d, previous ends at %d)", i, e.Position, prevEnd)
			}
		} else {
			prevEnd = end
		}
	}
	return nil
}

// effectExtent returns the tick position of the last keyframe the effect
// covers (its own Position when it has none), used only as a coarse
// overlap check.
func effectExtent(b *Band, e *Effect) int {
	end := e.Position
	for _, k := range e.Keyframes {
		if k.RelativePosition != nil {
			if p := e.Position + *k.RelativePosition; p > end {
				end = p
			}
		}
	}
	return end
}

func effectsOverlap(b *Band, e *Effect, prevEnd int) bool {
	switch b.Type {
	case BandCurve:
		// A curve band owns exactly one effect; overlap is meaningless.
		return false
	default:
		return e.Position < prevEnd
	}
}
