// Package events provides the typed publish/subscribe channel playback
// components communicate over. Each owning component constructs its own Bus;
// there is no process-global bus.
package events

import (
	"time"
)

// Type identifies a playback lifecycle event.
type Type string

// Lifecycle event vocabulary. External subscribers (the still-watching
// monitor, the sync adapter) rely on these exact names.
const (
	PlaybackStart Type = "playbackstart"
	PlaybackStop  Type = "playbackstop"
	Pause         Type = "pause"
	Unpause       Type = "unpause"
	TimeUpdate    Type = "timeupdate"
	VolumeChange  Type = "volumechange"
	PlaybackError Type = "error"
	Interaction   Type = "interaction"
	SyncUpdate    Type = "syncupdate"
	Intervention  Type = "intervention"
)

// Payload is the tagged union of event payloads. Every payload names its own
// event type so a publisher cannot attach the wrong payload to an event.
type Payload interface {
	EventType() Type
}

// Event is one published occurrence.
type Event struct {
	ID        string
	Type      Type
	Source    string
	Timestamp time.Time
	Payload   Payload
}

// PlaybackStartData is the payload for PlaybackStart.
type PlaybackStartData struct {
	ItemID     string
	SourceID   string
	PlayMethod string
	IsEpisode  bool
}

func (PlaybackStartData) EventType() Type { return PlaybackStart }

// PlaybackStopData is the payload for PlaybackStop. Src is the last active
// source URL so observers can correlate the stopped session.
type PlaybackStopData struct {
	ItemID        string
	Src           string
	PositionTicks int64
	PlayMethod    string
}

func (PlaybackStopData) EventType() Type { return PlaybackStop }

// PauseData is the payload for Pause and Unpause.
type PauseData struct {
	PositionTicks int64
}

func (PauseData) EventType() Type { return Pause }

// UnpauseData is the payload for Unpause.
type UnpauseData struct {
	PositionTicks int64
}

func (UnpauseData) EventType() Type { return Unpause }

// TimeUpdateData is the payload for TimeUpdate.
type TimeUpdateData struct {
	PositionTicks int64
	DurationTicks int64
}

func (TimeUpdateData) EventType() Type { return TimeUpdate }

// VolumeChangeData is the payload for VolumeChange.
type VolumeChangeData struct {
	Volume float64
	Muted  bool
}

func (VolumeChangeData) EventType() Type { return VolumeChange }

// ErrorData is the payload for PlaybackError. Kind carries the typed error
// taxonomy tag.
type ErrorData struct {
	Kind    string
	Message string
}

func (ErrorData) EventType() Type { return PlaybackError }

// InteractionData is the payload for Interaction (any user input observed by
// the consuming surface).
type InteractionData struct{}

func (InteractionData) EventType() Type { return Interaction }

// SyncUpdateData is the payload for SyncUpdate, published after every time
// synchronization round trip. Err is non-empty when the ping failed.
type SyncUpdateData struct {
	TimeOffset time.Duration
	Ping       time.Duration
	Err        string
}

func (SyncUpdateData) EventType() Type { return SyncUpdate }

// InterventionData is the payload for Intervention (a "still watching?"
// prompt request).
type InterventionData struct {
	EpisodeCount int
	WatchTicks   int64
}

func (InterventionData) EventType() Type { return Intervention }
