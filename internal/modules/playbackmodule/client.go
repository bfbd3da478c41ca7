package playbackmodule

import (
	"context"

	"github.com/kinetra/kinetra/internal/media"
	"github.com/kinetra/kinetra/internal/modules/profilemodule"
)

// ServerClient is the remote media server the engine negotiates playback
// with. HTTPClient implements this; tests inject fakes.
type ServerClient interface {
	// Item fetches an item's metadata by id.
	Item(ctx context.Context, itemID string) (*media.Item, error)

	// PlaybackInfo negotiates a playable source for an item given the
	// client's device profile.
	PlaybackInfo(ctx context.Context, itemID string, profile *profilemodule.DeviceProfile) (*media.PlaybackInfoResponse, error)

	// StreamURL builds the final stream URL for a negotiated source.
	StreamURL(source *media.MediaSource) string
}
