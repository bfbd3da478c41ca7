package playbackmodule

import (
	"context"

	"github.com/kinetra/kinetra/internal/media"
)

// CommandSink receives every playback command the manager's public surface
// accepts. The manager always routes through exactly one sink: the local
// sink executes directly on the active player, a group-controller sink
// relays commands to the sync group instead. Binding swaps the sink;
// unbinding restores direct execution with no residual indirection.
type CommandSink interface {
	Play(ctx context.Context, opts *media.PlayOptions) error
	Pause()
	Unpause()
	Seek(ticks int64) error
	Stop(ctx context.Context) error
}

// localSink executes commands directly on the manager's active player.
type localSink struct {
	m *Manager
}

func (s *localSink) Play(ctx context.Context, opts *media.PlayOptions) error {
	return s.m.LocalPlay(ctx, opts)
}

func (s *localSink) Pause()                         { s.m.LocalPause() }
func (s *localSink) Unpause()                       { s.m.LocalUnpause() }
func (s *localSink) Seek(ticks int64) error         { return s.m.LocalSeek(ticks) }
func (s *localSink) Stop(ctx context.Context) error { return s.m.LocalStop(ctx) }
