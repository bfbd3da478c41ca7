package syncplaymodule

import (
	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/events"
	"github.com/kinetra/kinetra/internal/modules/playbackmodule"
)

// Adapter joins the local playback manager to a group session: while bound,
// every manager command is redirected to the group controller, and local
// player lifecycle events are reported back to the group. Unbinding
// restores direct local execution exactly.
type Adapter struct {
	logger     hclog.Logger
	manager    *playbackmodule.Manager
	controller Controller

	subID string
	bound bool
}

func NewAdapter(logger hclog.Logger, manager *playbackmodule.Manager, controller Controller) *Adapter {
	return &Adapter{
		logger:     logger.Named("syncplay-adapter"),
		manager:    manager,
		controller: controller,
	}
}

// BindToPlayer installs the group sink and starts relaying local lifecycle
// events to the controller. Idempotent.
func (a *Adapter) BindToPlayer() {
	if a.bound {
		return
	}
	a.manager.Bind(NewGroupSink(a.controller))
	a.subID = a.manager.Events().Subscribe(a.onManagerEvent,
		events.PlaybackStart, events.Pause, events.Unpause, events.PlaybackStop)
	a.bound = true
	a.logger.Info("bound playback manager to group controller")
}

// UnbindFromPlayer restores direct execution and stops event relaying.
// Idempotent.
func (a *Adapter) UnbindFromPlayer() {
	if !a.bound {
		return
	}
	a.manager.Unbind()
	a.manager.Events().Unsubscribe(a.subID)
	a.subID = ""
	a.bound = false
	a.logger.Info("unbound playback manager from group controller")
}

// IsBound reports whether commands are currently redirected.
func (a *Adapter) IsBound() bool { return a.bound }

func (a *Adapter) onManagerEvent(ev events.Event) {
	switch data := ev.Payload.(type) {
	case events.PlaybackStartData:
		a.controller.OnLocalPlaybackStart(data.ItemID)
	case events.PauseData:
		a.controller.OnLocalPause(data.PositionTicks)
	case events.UnpauseData:
		a.controller.OnLocalUnpause(data.PositionTicks)
	case events.PlaybackStopData:
		a.controller.OnLocalStop()
	}
}
