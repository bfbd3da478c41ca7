// Package playermodule defines the contract every playback back-end
// implements and the registry that resolves the best back-end for an item.
package playermodule

import (
	"context"

	"github.com/kinetra/kinetra/internal/events"
	"github.com/kinetra/kinetra/internal/media"
	"github.com/kinetra/kinetra/internal/modules/profilemodule"
)

// Feature is an optional capability a plugin may support. Callers use
// Supports instead of probing for method presence.
type Feature string

const (
	FeatureSecondarySubtitles Feature = "secondarysubtitles"
	FeaturePlaybackRate       Feature = "playbackrate"
	FeatureFullscreen         Feature = "fullscreen"
	FeatureAirPlay            Feature = "airplay"
	FeatureSetAspectRatio     Feature = "setaspectratio"
	FeatureAudioTrackSwitch   Feature = "audiotrackswitch"
)

// Plugin is the uniform playback back-end contract. One instance exists per
// back-end type for the process lifetime; per-session state is reset by Play
// and torn down by Stop.
type Plugin interface {
	// Identity and ranking.
	Name() string
	ID() string
	Priority() int
	IsLocalPlayer() bool

	// Capability queries. Pure and side-effect free: the registry calls
	// these to rank candidates.
	CanPlayMediaType(mediaType media.MediaType) bool
	CanPlayItem(item *media.Item) bool
	Supports(feature Feature) bool

	// DeviceProfile produces the negotiation document for an item. The
	// caller sends it to the server to select a playback URL.
	DeviceProfile(item *media.Item) *profilemodule.DeviceProfile

	// Play begins a playback session. It returns once the source is
	// accepted and loading, not necessarily once frames are visible. It
	// fails only on unrecoverable setup errors.
	Play(ctx context.Context, opts *media.PlayOptions) error

	// Stop ends the session. Idempotent and safe before any Play. When
	// destroy is true all native resources are released.
	Stop(ctx context.Context, destroy bool) error

	Pause()
	Unpause()
	IsPaused() bool

	// Seek moves the play position. The argument is in server ticks.
	Seek(ticks int64) error

	// CurrentTime reports the play position in milliseconds.
	CurrentTime() int64
	// SetCurrentTime moves the play position, in milliseconds.
	SetCurrentTime(ms int64)
	// Duration reports the media duration in milliseconds, 0 if unknown.
	Duration() int64

	BufferedRanges() []media.TickRange

	SetVolume(volume float64)
	Volume() float64
	SetMuted(muted bool)
	IsMuted() bool

	// Events exposes the plugin's lifecycle event channel.
	Events() *events.Bus
}
