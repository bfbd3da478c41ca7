package subtitles

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/media"
)

// AssRenderer drives an SSA/ASS renderer running in a worker. Embedded font
// attachments plus the server's fallback font set are resolved before the
// worker is spawned so the first rendered frame has every font available.
type AssRenderer struct {
	logger  hclog.Logger
	spawner WorkerSpawner
	fonts   FontProvider

	// AttachmentFonts are font payload URLs embedded in the media source.
	AttachmentFonts []string

	worker   Worker
	offsetMs int64
	disposed bool
}

func NewAssRenderer(logger hclog.Logger, spawner WorkerSpawner, fonts FontProvider) *AssRenderer {
	return &AssRenderer{logger: logger.Named("ass"), spawner: spawner, fonts: fonts}
}

func (r *AssRenderer) Name() string { return "ass" }

func (r *AssRenderer) Load(ctx context.Context, stream *media.MediaStream) error {
	fontURLs := append([]string(nil), r.AttachmentFonts...)
	if r.fonts != nil {
		fallback, err := r.fonts.FallbackFonts(ctx)
		if err != nil {
			r.logger.Warn("fallback fonts unavailable", "error", err)
		} else {
			fontURLs = append(fontURLs, fallback...)
		}
	}

	w, err := r.spawner.Spawn("ass")
	if err != nil {
		return fmt.Errorf("failed to start ass renderer: %w", err)
	}
	r.worker = w
	w.Post(map[string]any{
		"cmd":    "init",
		"url":    stream.DeliveryURL,
		"fonts":  fontURLs,
		"stream": stream.Index,
	})
	return nil
}

// ActiveText: worker renderers composite frames themselves, nothing to
// observe from the session side.
func (r *AssRenderer) ActiveText(int64) (string, bool) { return "", false }

func (r *AssRenderer) AdjustOffset(deltaMs int64) {
	r.offsetMs += deltaMs
	if r.worker != nil {
		r.worker.Post(map[string]any{"cmd": "timeOffset", "offsetMs": r.offsetMs})
	}
}

func (r *AssRenderer) Offset() int64 { return r.offsetMs }

func (r *AssRenderer) Dispose() {
	if r.disposed {
		return
	}
	r.disposed = true
	if r.worker != nil {
		r.worker.Terminate()
		r.worker = nil
	}
}

// PgsRenderer drives an image-based subtitle decoder in a worker.
type PgsRenderer struct {
	logger  hclog.Logger
	spawner WorkerSpawner

	worker   Worker
	offsetMs int64
	disposed bool
}

func NewPgsRenderer(logger hclog.Logger, spawner WorkerSpawner) *PgsRenderer {
	return &PgsRenderer{logger: logger.Named("pgs"), spawner: spawner}
}

func (r *PgsRenderer) Name() string { return "pgs" }

func (r *PgsRenderer) Load(ctx context.Context, stream *media.MediaStream) error {
	w, err := r.spawner.Spawn("pgs")
	if err != nil {
		return fmt.Errorf("failed to start pgs renderer: %w", err)
	}
	r.worker = w
	w.Post(map[string]any{
		"cmd":    "init",
		"url":    stream.DeliveryURL,
		"stream": stream.Index,
	})
	return nil
}

func (r *PgsRenderer) ActiveText(int64) (string, bool) { return "", false }

func (r *PgsRenderer) AdjustOffset(deltaMs int64) {
	r.offsetMs += deltaMs
	if r.worker != nil {
		r.worker.Post(map[string]any{"cmd": "timeOffset", "offsetMs": r.offsetMs})
	}
}

func (r *PgsRenderer) Offset() int64 { return r.offsetMs }

func (r *PgsRenderer) Dispose() {
	if r.disposed {
		return
	}
	r.disposed = true
	if r.worker != nil {
		r.worker.Terminate()
		r.worker = nil
	}
}
