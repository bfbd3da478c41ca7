// Package remote implements the remote-receiver playback back-end: the same
// plugin contract as the local players, with every command proxied to a
// receiver over an injected Sender. State queries answer from the last
// status report the receiver pushed.
package remote

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/events"
	"github.com/kinetra/kinetra/internal/media"
	"github.com/kinetra/kinetra/internal/modules/playermodule"
	"github.com/kinetra/kinetra/internal/modules/profilemodule"
)

// Command is one instruction proxied to the receiver.
type Command struct {
	Name          string
	URL           string
	PositionTicks int64
	Volume        float64
	Muted         bool
}

// Sender is the receiver transport. Connect is called once per playback
// session before the first command.
type Sender interface {
	Connect(ctx context.Context) error
	Send(cmd Command) error
	Close() error
}

// Deactivator removes this player as the active one. On connect failure the
// plugin always deactivates itself by name, so the orchestrator falls back
// to local playback with no stale remote binding.
type Deactivator interface {
	DeactivatePlayer(name string)
}

// Status is the receiver's last pushed playback state.
type Status struct {
	PositionTicks int64
	DurationTicks int64
	IsPaused      bool
	Volume        float64
	IsMuted       bool
}

// Player proxies playback to a remote receiver.
type Player struct {
	logger      hclog.Logger
	sender      Sender
	deactivator Deactivator
	bus         *events.Bus

	mu          sync.Mutex
	connected   bool
	opts        *media.PlayOptions
	status      Status
	stopEmitted bool
}

func NewPlayer(logger hclog.Logger, sender Sender, deactivator Deactivator) *Player {
	return &Player{
		logger:      logger.Named("remote-player"),
		sender:      sender,
		deactivator: deactivator,
		bus:         events.NewBus("remoteplayer"),
		status:      Status{Volume: 1},
	}
}

func (p *Player) Name() string        { return "Remote Player" }
func (p *Player) ID() string          { return "remoteplayer" }
func (p *Player) Priority() int       { return 10 }
func (p *Player) IsLocalPlayer() bool { return false }

func (p *Player) CanPlayMediaType(mediaType media.MediaType) bool {
	return mediaType == media.TypeVideo || mediaType == media.TypeAudio
}

func (p *Player) CanPlayItem(item *media.Item) bool {
	return item != nil && p.CanPlayMediaType(item.MediaType)
}

func (p *Player) Supports(playermodule.Feature) bool { return false }

// DeviceProfile: the receiver negotiates its own capabilities.
func (p *Player) DeviceProfile(*media.Item) *profilemodule.DeviceProfile { return nil }

func (p *Player) Events() *events.Bus { return p.bus }

func (p *Player) Play(ctx context.Context, opts *media.PlayOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.connected {
		if err := p.sender.Connect(ctx); err != nil {
			p.logger.Error("receiver connection failed, deactivating", "error", err)
			if p.deactivator != nil {
				p.deactivator.DeactivatePlayer(p.Name())
			}
			return fmt.Errorf("failed to connect to receiver: %w", err)
		}
		p.connected = true
	}

	if err := p.sender.Send(Command{
		Name:          "play",
		URL:           opts.URL,
		PositionTicks: opts.StartPositionTicks,
	}); err != nil {
		return fmt.Errorf("failed to send play command: %w", err)
	}
	p.opts = opts
	p.stopEmitted = false
	return nil
}

func (p *Player) Stop(_ context.Context, destroy bool) error {
	p.mu.Lock()
	if p.opts == nil {
		if destroy {
			p.closeLocked()
		}
		p.mu.Unlock()
		return nil
	}
	_ = p.sender.Send(Command{Name: "stop"})
	opts := p.opts
	p.opts = nil
	emit := !p.stopEmitted
	p.stopEmitted = true
	if destroy {
		p.closeLocked()
	}
	pos := p.status.PositionTicks
	p.mu.Unlock()

	if emit {
		itemID := ""
		if opts.Item != nil {
			itemID = opts.Item.ID
		}
		p.bus.Publish(events.PlaybackStopData{ItemID: itemID, Src: opts.URL, PositionTicks: pos})
	}
	return nil
}

func (p *Player) closeLocked() {
	if p.connected {
		_ = p.sender.Close()
		p.connected = false
	}
}

// UpdateStatus ingests a status push from the receiver.
func (p *Player) UpdateStatus(s Status) {
	p.mu.Lock()
	p.status = s
	p.mu.Unlock()
	p.bus.Publish(events.TimeUpdateData{
		PositionTicks: s.PositionTicks,
		DurationTicks: s.DurationTicks,
	})
}

func (p *Player) Pause() {
	_ = p.sender.Send(Command{Name: "pause"})
	p.mu.Lock()
	p.status.IsPaused = true
	p.mu.Unlock()
}

func (p *Player) Unpause() {
	_ = p.sender.Send(Command{Name: "unpause"})
	p.mu.Lock()
	p.status.IsPaused = false
	p.mu.Unlock()
}

func (p *Player) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status.IsPaused
}

func (p *Player) Seek(ticks int64) error {
	return p.sender.Send(Command{Name: "seek", PositionTicks: ticks})
}

func (p *Player) CurrentTime() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return media.TicksToMs(p.status.PositionTicks)
}

func (p *Player) SetCurrentTime(ms int64) {
	_ = p.sender.Send(Command{Name: "seek", PositionTicks: media.MsToTicks(ms)})
}

func (p *Player) Duration() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return media.TicksToMs(p.status.DurationTicks)
}

func (p *Player) BufferedRanges() []media.TickRange { return nil }

func (p *Player) SetVolume(volume float64) {
	_ = p.sender.Send(Command{Name: "volume", Volume: volume})
	p.mu.Lock()
	p.status.Volume = volume
	p.mu.Unlock()
}

func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status.Volume
}

func (p *Player) SetMuted(muted bool) {
	_ = p.sender.Send(Command{Name: "mute", Muted: muted})
	p.mu.Lock()
	p.status.IsMuted = muted
	p.mu.Unlock()
}

func (p *Player) IsMuted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status.IsMuted
}
