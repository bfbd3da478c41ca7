package playermodule

import "errors"

// Error kinds carried by the error lifecycle event. Recoverable conditions
// (decode errors inside the recovery cooldown, autoplay rejection) are
// handled inside the plugin and never reach this taxonomy.
const (
	ErrKindMediaDecode  = "mediadecodeerror"
	ErrKindNotSupported = "medianotsupported"
	ErrKindNetwork      = "networkerror"
	ErrKindServer       = "servererror"
	ErrKindFatalHls     = "fatalhlserror"
	ErrKindAssRender    = "assrendererror"
	// ErrKindNoMedia: the session produced zero-dimension video for an item
	// with a non-empty expected runtime.
	ErrKindNoMedia = "nomediaerror"
)

// Setup failures returned synchronously from Play.
var (
	ErrUnsupportedContainer = errors.New("container not supported by this player")
	ErrNoMediaSource        = errors.New("play options carry no media source")
)
