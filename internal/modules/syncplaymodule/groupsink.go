package syncplaymodule

import (
	"context"

	"github.com/kinetra/kinetra/internal/media"
)

// Controller is the group coordinator's command surface. Request methods
// carry a local command to the group for arbitration; OnLocal methods notify
// the group of what the local player actually did.
type Controller interface {
	RequestPlay(ctx context.Context, opts *media.PlayOptions) error
	RequestPause()
	RequestUnpause()
	RequestSeek(ticks int64) error
	RequestStop(ctx context.Context) error

	OnLocalPlaybackStart(itemID string)
	OnLocalPause(positionTicks int64)
	OnLocalUnpause(positionTicks int64)
	OnLocalStop()
}

// GroupSink relays playback commands to the group controller. While bound
// as the playback manager's command sink, no command executes locally until
// the controller decides it should.
type GroupSink struct {
	controller Controller
}

func NewGroupSink(controller Controller) *GroupSink {
	return &GroupSink{controller: controller}
}

func (s *GroupSink) Play(ctx context.Context, opts *media.PlayOptions) error {
	return s.controller.RequestPlay(ctx, opts)
}

func (s *GroupSink) Pause()                         { s.controller.RequestPause() }
func (s *GroupSink) Unpause()                       { s.controller.RequestUnpause() }
func (s *GroupSink) Seek(ticks int64) error         { return s.controller.RequestSeek(ticks) }
func (s *GroupSink) Stop(ctx context.Context) error { return s.controller.RequestStop(ctx) }
