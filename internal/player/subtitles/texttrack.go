package subtitles

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/media"
)

// TextTrackRenderer presents plain cues through the element's native track
// machinery: cues are fetched pre-parsed from the server and shifted in
// place when the timing offset changes.
type TextTrackRenderer struct {
	logger  hclog.Logger
	fetcher CueFetcher

	// VerticalOffsetPct nudges cue placement for users who want subtitles
	// off the bottom edge.
	VerticalOffsetPct int

	cues     []Cue
	offsetMs int64
	disposed bool
}

func NewTextTrackRenderer(logger hclog.Logger, fetcher CueFetcher) *TextTrackRenderer {
	return &TextTrackRenderer{logger: logger.Named("texttrack"), fetcher: fetcher}
}

func (r *TextTrackRenderer) Name() string { return "texttrack" }

func (r *TextTrackRenderer) Load(ctx context.Context, stream *media.MediaStream) error {
	if stream.DeliveryURL == "" {
		return fmt.Errorf("subtitle stream %d has no delivery url", stream.Index)
	}
	cues, err := r.fetcher.FetchCues(ctx, stream.DeliveryURL)
	if err != nil {
		return fmt.Errorf("failed to fetch subtitle cues: %w", err)
	}
	r.cues = cues
	r.logger.Debug("text track loaded", "stream", stream.Index, "cues", len(cues))
	return nil
}

func (r *TextTrackRenderer) ActiveText(positionMs int64) (string, bool) {
	if r.disposed {
		return "", false
	}
	return cueActiveAt(r.cues, positionMs)
}

func (r *TextTrackRenderer) AdjustOffset(deltaMs int64) {
	r.offsetMs += deltaMs
	shiftCues(r.cues, deltaMs)
}

func (r *TextTrackRenderer) Offset() int64 { return r.offsetMs }

func (r *TextTrackRenderer) Dispose() {
	r.cues = nil
	r.disposed = true
}
