// Package photo implements the still-image back-end. Photos have no
// timeline, so most playback controls are no-ops; the plugin exists so photo
// items resolve through the same registry as everything else.
package photo

import (
	"context"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/events"
	"github.com/kinetra/kinetra/internal/media"
	"github.com/kinetra/kinetra/internal/modules/playermodule"
	"github.com/kinetra/kinetra/internal/modules/profilemodule"
)

// Player shows one photo at a time.
type Player struct {
	logger hclog.Logger
	bus    *events.Bus

	mu          sync.Mutex
	current     *media.PlayOptions
	paused      bool
	stopEmitted bool
}

func NewPlayer(logger hclog.Logger) *Player {
	return &Player{
		logger: logger.Named("photo-player"),
		bus:    events.NewBus("photoplayer"),
	}
}

func (p *Player) Name() string        { return "Photo Player" }
func (p *Player) ID() string          { return "photoplayer" }
func (p *Player) Priority() int       { return 1 }
func (p *Player) IsLocalPlayer() bool { return true }

func (p *Player) CanPlayMediaType(mediaType media.MediaType) bool {
	return mediaType == media.TypePhoto
}

func (p *Player) CanPlayItem(item *media.Item) bool {
	return item != nil && item.MediaType == media.TypePhoto
}

func (p *Player) Supports(playermodule.Feature) bool { return false }

func (p *Player) DeviceProfile(*media.Item) *profilemodule.DeviceProfile { return nil }

func (p *Player) Events() *events.Bus { return p.bus }

func (p *Player) Play(_ context.Context, opts *media.PlayOptions) error {
	p.mu.Lock()
	p.current = opts
	p.paused = false
	p.stopEmitted = false
	p.mu.Unlock()

	itemID := ""
	if opts.Item != nil {
		itemID = opts.Item.ID
	}
	p.bus.Publish(events.PlaybackStartData{ItemID: itemID})
	p.logger.Debug("photo displayed", "item", itemID)
	return nil
}

func (p *Player) Stop(_ context.Context, _ bool) error {
	p.mu.Lock()
	if p.current == nil || p.stopEmitted {
		p.mu.Unlock()
		return nil
	}
	opts := p.current
	p.current = nil
	p.stopEmitted = true
	p.mu.Unlock()

	itemID := ""
	if opts.Item != nil {
		itemID = opts.Item.ID
	}
	p.bus.Publish(events.PlaybackStopData{ItemID: itemID, Src: opts.URL})
	return nil
}

// Pause freezes a running slideshow.
func (p *Player) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
}

func (p *Player) Unpause() {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
}

func (p *Player) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *Player) Seek(int64) error                  { return nil }
func (p *Player) CurrentTime() int64                { return 0 }
func (p *Player) SetCurrentTime(int64)              {}
func (p *Player) Duration() int64                   { return 0 }
func (p *Player) BufferedRanges() []media.TickRange { return nil }
func (p *Player) SetVolume(float64)                 {}
func (p *Player) Volume() float64                   { return 1 }
func (p *Player) SetMuted(bool)                     {}
func (p *Player) IsMuted() bool                     { return false }
