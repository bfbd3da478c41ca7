package subtitles

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/media"
)

// Scoped owns at most one active renderer for a track slot (primary or
// secondary). Selecting a new track always disposes the previous renderer
// before the replacement loads, so two renderers for the same slot can never
// run concurrently.
type Scoped struct {
	logger  hclog.Logger
	slot    string
	current Renderer
}

// NewScoped creates an empty renderer slot. slot is a label for logging
// ("primary", "secondary").
func NewScoped(logger hclog.Logger, slot string) *Scoped {
	return &Scoped{logger: logger.Named("subtitle-slot"), slot: slot}
}

// Select disposes any active renderer, then loads the new one for the given
// stream. On load failure the slot ends up empty.
func (s *Scoped) Select(ctx context.Context, r Renderer, stream *media.MediaStream) error {
	s.Clear()
	if err := r.Load(ctx, stream); err != nil {
		r.Dispose()
		return fmt.Errorf("subtitle renderer %s failed to load: %w", r.Name(), err)
	}
	s.current = r
	s.logger.Debug("subtitle renderer active", "slot", s.slot, "renderer", r.Name(), "stream", stream.Index)
	return nil
}

// Clear disposes the active renderer, if any. Safe to call repeatedly.
func (s *Scoped) Clear() {
	if s.current != nil {
		s.current.Dispose()
		s.current = nil
		s.logger.Debug("subtitle renderer disposed", "slot", s.slot)
	}
}

// Active reports whether a renderer is currently attached.
func (s *Scoped) Active() bool { return s.current != nil }

// ActiveText polls the active renderer's visible cue text.
func (s *Scoped) ActiveText(positionMs int64) (string, bool) {
	if s.current == nil {
		return "", false
	}
	return s.current.ActiveText(positionMs)
}

// AdjustOffset applies a relative timing delta to the active renderer only.
// Each slot tracks its own offset, so shifting the primary track never
// perturbs the secondary one.
func (s *Scoped) AdjustOffset(deltaMs int64) {
	if s.current != nil {
		s.current.AdjustOffset(deltaMs)
	}
}

// Offset reports the active renderer's accumulated offset.
func (s *Scoped) Offset() int64 {
	if s.current == nil {
		return 0
	}
	return s.current.Offset()
}
