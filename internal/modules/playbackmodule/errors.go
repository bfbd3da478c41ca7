package playbackmodule

import "errors"

var (
	ErrNoActivePlayer  = errors.New("no active player")
	ErrNoPlayerForItem = errors.New("no registered player can play this item")
	ErrNoPlayableSource = errors.New("server returned no playable media source")
)
