package subtitles

import (
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/capabilities"
	"github.com/kinetra/kinetra/internal/media"
)

// Factory builds the right renderer for a subtitle stream. One factory per
// video session; renderer instances are one per selected track.
type Factory struct {
	logger  hclog.Logger
	caps    *capabilities.Snapshot
	fetcher CueFetcher
	spawner WorkerSpawner
	fonts   FontProvider

	// PreferOverlay selects the overlay strategy for text formats when the
	// user has custom styling enabled.
	PreferOverlay bool
}

func NewFactory(logger hclog.Logger, caps *capabilities.Snapshot, fetcher CueFetcher, spawner WorkerSpawner, fonts FontProvider) *Factory {
	return &Factory{logger: logger, caps: caps, fetcher: fetcher, spawner: spawner, fonts: fonts}
}

// RendererFor picks the strategy for a stream by codec: ASS/SSA go to the
// styled worker renderer, image-based formats to the PGS worker, and plain
// text formats to either the overlay or the native text track.
func (f *Factory) RendererFor(stream *media.MediaStream) Renderer {
	switch strings.ToLower(stream.Codec) {
	case "ass", "ssa":
		return NewAssRenderer(f.logger, f.spawner, f.fonts)
	case "pgssub", "pgs", "dvdsub", "dvbsub":
		return NewPgsRenderer(f.logger, f.spawner)
	}
	if f.PreferOverlay && f.caps.SupportsOverlayRendering {
		return NewOverlayRenderer(f.logger, f.fetcher)
	}
	if f.caps.SupportsTextTracks {
		return NewTextTrackRenderer(f.logger, f.fetcher)
	}
	return NewOverlayRenderer(f.logger, f.fetcher)
}
