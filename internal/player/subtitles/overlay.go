package subtitles

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/media"
)

// OverlayRenderer presents cues through a manually positioned overlay,
// driven by polling the playback position against cached cue ranges. Used
// when styling needs exceed what native tracks can express.
type OverlayRenderer struct {
	logger  hclog.Logger
	fetcher CueFetcher

	cues     []Cue
	offsetMs int64
	disposed bool
}

func NewOverlayRenderer(logger hclog.Logger, fetcher CueFetcher) *OverlayRenderer {
	return &OverlayRenderer{logger: logger.Named("overlay"), fetcher: fetcher}
}

func (r *OverlayRenderer) Name() string { return "overlay" }

func (r *OverlayRenderer) Load(ctx context.Context, stream *media.MediaStream) error {
	if stream.DeliveryURL == "" {
		return fmt.Errorf("subtitle stream %d has no delivery url", stream.Index)
	}
	cues, err := r.fetcher.FetchCues(ctx, stream.DeliveryURL)
	if err != nil {
		return fmt.Errorf("failed to fetch subtitle cues: %w", err)
	}
	r.cues = cues
	r.logger.Debug("overlay cues cached", "stream", stream.Index, "cues", len(cues))
	return nil
}

// ActiveText is the poll point: callers invoke it on every time update.
func (r *OverlayRenderer) ActiveText(positionMs int64) (string, bool) {
	if r.disposed {
		return "", false
	}
	return cueActiveAt(r.cues, positionMs)
}

func (r *OverlayRenderer) AdjustOffset(deltaMs int64) {
	r.offsetMs += deltaMs
	shiftCues(r.cues, deltaMs)
}

func (r *OverlayRenderer) Offset() int64 { return r.offsetMs }

func (r *OverlayRenderer) Dispose() {
	r.cues = nil
	r.disposed = true
}
