// Package subtitles implements the subtitle rendering strategies a video
// session can attach: native text tracks, a polled overlay, and worker-backed
// ASS and PGS renderers. Renderer lifetime is managed through Scoped so a
// previous renderer is always disposed before its replacement starts.
package subtitles

import (
	"context"

	"github.com/kinetra/kinetra/internal/media"
)

// Cue is one subtitle event on the tick timeline.
type Cue struct {
	StartTicks int64
	EndTicks   int64
	Text       string
}

// CueFetcher retrieves pre-parsed cue data for a delivered subtitle track.
type CueFetcher interface {
	FetchCues(ctx context.Context, url string) ([]Cue, error)
}

// FontProvider resolves fallback font payload URLs for styled renderers.
type FontProvider interface {
	FallbackFonts(ctx context.Context) ([]string, error)
}

// Worker is an opaque asynchronous rendering resource (the WASM/worker
// analog). Terminate must be safe to call exactly once per Spawn.
type Worker interface {
	Post(msg any)
	Terminate()
}

// WorkerSpawner creates workers for the renderers that need one.
type WorkerSpawner interface {
	Spawn(kind string) (Worker, error)
}

// Renderer is one active subtitle presentation for a single track.
type Renderer interface {
	Name() string

	// Load prepares the renderer (cue fetch, font load, worker spawn).
	// A renderer must not present anything before Load returns.
	Load(ctx context.Context, stream *media.MediaStream) error

	// ActiveText returns the cue text visible at the given position, if
	// the strategy renders text the session can observe.
	ActiveText(positionMs int64) (string, bool)

	// AdjustOffset applies a relative timing delta in milliseconds.
	AdjustOffset(deltaMs int64)
	// Offset reports the accumulated timing offset in milliseconds.
	Offset() int64

	// Dispose releases all resources. Safe to call more than once.
	Dispose()
}

func cueActiveAt(cues []Cue, positionMs int64) (string, bool) {
	ticks := media.MsToTicks(positionMs)
	for _, c := range cues {
		if ticks >= c.StartTicks && ticks < c.EndTicks {
			return c.Text, true
		}
	}
	return "", false
}

func shiftCues(cues []Cue, deltaMs int64) {
	deltaTicks := media.MsToTicks(deltaMs)
	for i := range cues {
		cues[i].StartTicks += deltaTicks
		cues[i].EndTicks += deltaTicks
	}
}
