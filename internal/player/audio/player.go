// Package audio implements the local audio playback back-end. It shares the
// element helpers with the video player but needs no subtitle or HLS
// machinery: audio sources always play natively.
package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/events"
	"github.com/kinetra/kinetra/internal/media"
	"github.com/kinetra/kinetra/internal/modules/playermodule"
	"github.com/kinetra/kinetra/internal/modules/profilemodule"
	"github.com/kinetra/kinetra/internal/player/element"
)

// Player is the local audio plugin.
type Player struct {
	logger  hclog.Logger
	profile *profilemodule.Builder
	store   element.VolumeStore
	bus     *events.Bus

	newElement func() element.MediaElement

	mu             sync.Mutex
	el             element.MediaElement
	opts           *media.PlayOptions
	removeListener func()
	cancelSeek     func()
	stopEmitted    bool
}

// Options configures an audio Player.
type Options struct {
	Logger         hclog.Logger
	ProfileBuilder *profilemodule.Builder
	VolumeStore    element.VolumeStore
	NewElement     func() element.MediaElement
}

func NewPlayer(opts Options) *Player {
	newEl := opts.NewElement
	if newEl == nil {
		newEl = func() element.MediaElement { return element.NewFake() }
	}
	return &Player{
		logger:     opts.Logger.Named("audio-player"),
		profile:    opts.ProfileBuilder,
		store:      opts.VolumeStore,
		bus:        events.NewBus("htmlaudioplayer"),
		newElement: newEl,
	}
}

func (p *Player) Name() string        { return "Html Audio Player" }
func (p *Player) ID() string          { return "htmlaudioplayer" }
func (p *Player) Priority() int       { return 1 }
func (p *Player) IsLocalPlayer() bool { return true }

func (p *Player) CanPlayMediaType(mediaType media.MediaType) bool {
	return mediaType == media.TypeAudio
}

func (p *Player) CanPlayItem(item *media.Item) bool {
	return item != nil && item.MediaType == media.TypeAudio
}

func (p *Player) Supports(feature playermodule.Feature) bool {
	return feature == playermodule.FeaturePlaybackRate
}

func (p *Player) DeviceProfile(_ *media.Item) *profilemodule.DeviceProfile {
	return p.profile.Build(profilemodule.BuildOptions{})
}

func (p *Player) Events() *events.Bus { return p.bus }

func (p *Player) Play(_ context.Context, opts *media.PlayOptions) error {
	p.mu.Lock()

	if opts.MediaSource == nil {
		p.mu.Unlock()
		return playermodule.ErrNoMediaSource
	}
	if p.opts != nil {
		if stopData := p.stopLocked(false); stopData != nil {
			p.mu.Unlock()
			p.bus.Publish(*stopData)
			p.mu.Lock()
		}
	}
	if p.el == nil {
		p.el = p.newElement()
	}
	element.ApplySavedVolume(p.el, p.store)

	if err := p.el.SetSource(opts.URL); err != nil {
		p.mu.Unlock()
		return fmt.Errorf("failed to set audio source: %w", err)
	}
	p.opts = opts
	p.stopEmitted = false
	p.removeListener = p.el.Subscribe(func(ev element.Event) {
		p.onElementEvent(ev)
	})

	if err := element.PlayWithAutoplayGuard(p.logger, p.el); err != nil {
		p.stopLocked(false)
		p.mu.Unlock()
		return fmt.Errorf("playback start rejected: %w", err)
	}

	if startMs := media.TicksToMs(opts.StartPositionTicks); startMs > 0 {
		p.cancelSeek = element.SeekOnReady(p.logger, p.el, startMs, nil)
	}
	el := p.el
	p.mu.Unlock()

	itemID := ""
	if opts.Item != nil {
		itemID = opts.Item.ID
	}
	p.bus.Publish(events.PlaybackStartData{
		ItemID:     itemID,
		SourceID:   opts.MediaSource.ID,
		PlayMethod: string(opts.PlayMethod),
	})
	p.logger.Info("audio playback started", "item", itemID, "url", el.Source())
	return nil
}

func (p *Player) onElementEvent(ev element.Event) {
	switch ev.Name {
	case element.EvTimeUpdate:
		p.bus.Publish(events.TimeUpdateData{
			PositionTicks: media.MsToTicks(p.CurrentTime()),
			DurationTicks: media.MsToTicks(p.Duration()),
		})
	case element.EvPause:
		p.bus.Publish(events.PauseData{PositionTicks: media.MsToTicks(p.CurrentTime())})
	case element.EvPlaying:
		p.bus.Publish(events.UnpauseData{PositionTicks: media.MsToTicks(p.CurrentTime())})
	case element.EvVolumeChange:
		vol := p.Volume()
		if p.store != nil {
			_ = p.store.SaveVolume(vol)
		}
		p.bus.Publish(events.VolumeChangeData{Volume: vol, Muted: p.IsMuted()})
	case element.EvEnded:
		_ = p.Stop(context.Background(), false)
	case element.EvError:
		if ev.ErrorCode == element.ErrCodeAborted {
			return
		}
		kind := playermodule.ErrKindMediaDecode
		if ev.ErrorCode == element.ErrCodeNetwork {
			kind = playermodule.ErrKindNetwork
		} else if ev.ErrorCode == element.ErrCodeNotSupported {
			kind = playermodule.ErrKindNotSupported
		}
		_ = p.Stop(context.Background(), false)
		p.bus.Publish(events.ErrorData{Kind: kind, Message: "audio playback error"})
	}
}

// Stop ends the session. Idempotent.
func (p *Player) Stop(_ context.Context, destroy bool) error {
	p.mu.Lock()
	stopData := p.stopLocked(destroy)
	p.mu.Unlock()
	if stopData != nil {
		p.bus.Publish(*stopData)
	}
	return nil
}

func (p *Player) stopLocked(destroy bool) *events.PlaybackStopData {
	if p.opts == nil {
		if destroy && p.el != nil {
			p.el.RemoveSource()
			p.el = nil
		}
		return nil
	}

	if p.cancelSeek != nil {
		p.cancelSeek()
		p.cancelSeek = nil
	}
	if p.removeListener != nil {
		p.removeListener()
		p.removeListener = nil
	}
	src := p.opts.URL
	positionTicks := int64(0)
	if p.el != nil {
		positionTicks = media.MsToTicks(p.el.CurrentTime())
		p.el.Pause()
		p.el.RemoveSource()
	}
	if destroy {
		p.el = nil
	}

	opts := p.opts
	p.opts = nil
	emit := !p.stopEmitted
	p.stopEmitted = true
	if !emit {
		return nil
	}
	itemID := ""
	if opts.Item != nil {
		itemID = opts.Item.ID
	}
	return &events.PlaybackStopData{
		ItemID:        itemID,
		Src:           src,
		PositionTicks: positionTicks,
		PlayMethod:    string(opts.PlayMethod),
	}
}

func (p *Player) Pause() {
	p.mu.Lock()
	el := p.el
	p.mu.Unlock()
	if el != nil {
		el.Pause()
	}
}

func (p *Player) Unpause() {
	p.mu.Lock()
	el := p.el
	p.mu.Unlock()
	if el != nil {
		_ = element.PlayWithAutoplayGuard(p.logger, el)
	}
}

func (p *Player) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.el != nil && p.el.Paused()
}

func (p *Player) Seek(ticks int64) error {
	p.mu.Lock()
	el := p.el
	p.mu.Unlock()
	if el == nil {
		return fmt.Errorf("no active playback session")
	}
	el.SetCurrentTime(media.TicksToMs(ticks))
	return nil
}

func (p *Player) CurrentTime() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.el == nil {
		return 0
	}
	return p.el.CurrentTime()
}

func (p *Player) SetCurrentTime(ms int64) {
	p.mu.Lock()
	el := p.el
	p.mu.Unlock()
	if el != nil {
		el.SetCurrentTime(ms)
	}
}

func (p *Player) Duration() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.el == nil {
		return 0
	}
	return p.el.Duration()
}

func (p *Player) BufferedRanges() []media.TickRange {
	p.mu.Lock()
	el := p.el
	p.mu.Unlock()
	if el == nil {
		return nil
	}
	return element.BufferedToTicks(el.Buffered(), 0)
}

func (p *Player) SetVolume(volume float64) {
	p.mu.Lock()
	el := p.el
	p.mu.Unlock()
	if el != nil {
		el.SetVolume(element.ClampVolume(volume))
	}
}

func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.el == nil {
		return 1
	}
	return p.el.Volume()
}

func (p *Player) SetMuted(muted bool) {
	p.mu.Lock()
	el := p.el
	p.mu.Unlock()
	if el != nil {
		el.SetMuted(muted)
	}
}

func (p *Player) IsMuted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.el != nil && p.el.Muted()
}
