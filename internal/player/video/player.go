// Package video implements the primary local video playback back-end: a
// per-session state machine over a media element, with three source
// strategies (native, HLS session, FLV session), deferred track selection,
// subtitle renderer slots and bounded error recovery.
package video

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/capabilities"
	"github.com/kinetra/kinetra/internal/events"
	"github.com/kinetra/kinetra/internal/media"
	"github.com/kinetra/kinetra/internal/modules/playermodule"
	"github.com/kinetra/kinetra/internal/modules/profilemodule"
	"github.com/kinetra/kinetra/internal/player/element"
	"github.com/kinetra/kinetra/internal/player/hls"
	"github.com/kinetra/kinetra/internal/player/subtitles"
)

// State is the playback session state.
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StatePaused
	StateEnded
	StateStopped
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	case StateStopped:
		return "stopped"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type sourceStrategy int

const (
	strategyNative sourceStrategy = iota
	strategyHls
	strategyFlv
)

// session is the per-playback state, created by Play and discarded by Stop.
type session struct {
	opts     *media.PlayOptions
	strategy sourceStrategy
	url      string

	hls *hls.Session
	flv *flvSession

	removeListener func()
	cancelSeek     func()

	started bool
	state   State

	// Track selections applied once on the first playing event.
	audioIndexToSet        int
	subtitleIndexToSet     int
	secondarySubtitleToSet int

	primarySubs   *subtitles.Scoped
	secondarySubs *subtitles.Scoped

	stopEmitted bool
}

// Player is the flagship local video plugin.
type Player struct {
	logger  hclog.Logger
	caps    *capabilities.Snapshot
	profile *profilemodule.Builder
	subs    *subtitles.Factory
	store   element.VolumeStore
	bus     *events.Bus

	// newElement creates (or re-acquires) the playback surface for a
	// session. Injected so tests can observe the element.
	newElement func() element.MediaElement

	mu  sync.Mutex
	el  element.MediaElement
	cur *session
}

// Options configures a Player.
type Options struct {
	Logger         hclog.Logger
	Caps           *capabilities.Snapshot
	ProfileBuilder *profilemodule.Builder
	Subtitles      *subtitles.Factory
	VolumeStore    element.VolumeStore
	NewElement     func() element.MediaElement
}

// NewPlayer creates the video plugin. One instance serves the whole process;
// sessions come and go through Play/Stop.
func NewPlayer(opts Options) *Player {
	newEl := opts.NewElement
	if newEl == nil {
		newEl = func() element.MediaElement { return element.NewFake() }
	}
	return &Player{
		logger:     opts.Logger.Named("video-player"),
		caps:       opts.Caps,
		profile:    opts.ProfileBuilder,
		subs:       opts.Subtitles,
		store:      opts.VolumeStore,
		bus:        events.NewBus("htmlvideoplayer"),
		newElement: newEl,
	}
}

func (p *Player) Name() string        { return "Html Video Player" }
func (p *Player) ID() string          { return "htmlvideoplayer" }
func (p *Player) Priority() int       { return 1 }
func (p *Player) IsLocalPlayer() bool { return true }

func (p *Player) CanPlayMediaType(mediaType media.MediaType) bool {
	return mediaType == media.TypeVideo
}

func (p *Player) CanPlayItem(item *media.Item) bool {
	return item != nil && item.MediaType == media.TypeVideo
}

func (p *Player) Supports(feature playermodule.Feature) bool {
	switch feature {
	case playermodule.FeaturePlaybackRate,
		playermodule.FeatureSetAspectRatio,
		playermodule.FeatureAudioTrackSwitch:
		return true
	case playermodule.FeatureSecondarySubtitles:
		return p.caps.SupportsSecondarySubtitles
	}
	return false
}

// DeviceProfile builds the negotiation document for an item.
func (p *Player) DeviceProfile(_ *media.Item) *profilemodule.DeviceProfile {
	return p.profile.Build(profilemodule.BuildOptions{})
}

func (p *Player) Events() *events.Bus { return p.bus }

// State reports the current session state, StateIdle when no session exists.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cur == nil {
		return StateIdle
	}
	return p.cur.state
}

// Play begins a playback session. Any previous session must have been
// stopped by the caller; a leftover one is torn down first.
func (p *Player) Play(ctx context.Context, opts *media.PlayOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if opts.MediaSource == nil {
		return playermodule.ErrNoMediaSource
	}
	if p.cur != nil {
		if stopData := p.stopLocked(true, false); stopData != nil {
			p.mu.Unlock()
			p.bus.Publish(*stopData)
			p.mu.Lock()
		}
	}
	if p.el == nil {
		p.el = p.newElement()
	}
	element.ApplySavedVolume(p.el, p.store)

	sess := &session{
		opts:                   opts,
		state:                  StateLoading,
		audioIndexToSet:        opts.AudioStreamIndex,
		subtitleIndexToSet:     opts.SubtitleStreamIndex,
		secondarySubtitleToSet: p.resolveSecondarySubtitle(opts),
		cancelSeek:             func() {},
	}
	if p.subs != nil {
		sess.primarySubs = subtitles.NewScoped(p.logger, "primary")
		sess.secondarySubs = subtitles.NewScoped(p.logger, "secondary")
	}

	sess.strategy, sess.url = p.chooseStrategy(opts)

	switch sess.strategy {
	case strategyHls:
		sess.hls = hls.NewSession(p.logger)
		if err := sess.hls.Attach(p.el); err != nil {
			return err
		}
		if err := sess.hls.LoadSource(sess.url); err != nil {
			return fmt.Errorf("hls setup failed: %w", err)
		}
	case strategyFlv:
		sess.flv = newFlvSession(p.logger)
		if err := sess.flv.attach(p.el, sess.url); err != nil {
			return fmt.Errorf("flv setup failed: %w", err)
		}
	default:
		if err := p.el.SetSource(sess.url); err != nil {
			return fmt.Errorf("failed to set source: %w", err)
		}
	}

	sess.removeListener = p.el.Subscribe(func(ev element.Event) {
		p.onElementEvent(ev)
	})
	p.cur = sess

	if err := element.PlayWithAutoplayGuard(p.logger, p.el); err != nil {
		p.stopLocked(true, true)
		return fmt.Errorf("playback start rejected: %w", err)
	}

	p.logger.Info("playback session started",
		"item", itemID(opts),
		"strategy", sess.strategy,
		"method", opts.PlayMethod)
	return nil
}

func itemID(opts *media.PlayOptions) string {
	if opts.Item != nil {
		return opts.Item.ID
	}
	if len(opts.Items) > 0 {
		return opts.Items[0].ID
	}
	return ""
}

// chooseStrategy picks exactly one source strategy for the session and the
// URL it will load.
func (p *Player) chooseStrategy(opts *media.PlayOptions) (sourceStrategy, string) {
	url := opts.URL
	src := opts.MediaSource

	isHls := strings.Contains(url, ".m3u8") || src.TranscodingSubProtocol == "hls"
	if isHls {
		if p.caps.SupportsNativeHls {
			if src.IsLive {
				url = hls.RewriteLiveURL(url)
			}
			return strategyNative, url
		}
		if p.caps.SupportsMediaSource {
			return strategyHls, url
		}
		return strategyNative, url
	}
	if strings.EqualFold(src.Container, "flv") && opts.PlayMethod == media.PlayMethodDirectPlay {
		return strategyFlv, url
	}
	return strategyNative, url
}

// resolveSecondarySubtitle gates the requested secondary subtitle: it is
// honored only when the runtime renders multiple subtitle tracks and the
// primary default subtitle is itself renderable (not burned in server-side).
// Re-evaluated on every Play because the media source changes per session.
func (p *Player) resolveSecondarySubtitle(opts *media.PlayOptions) int {
	requested := opts.SecondarySubtitleStreamIndex
	if requested < 0 {
		return -1
	}
	if !p.caps.SupportsSecondarySubtitles {
		return -1
	}
	primary := opts.MediaSource.DefaultSubtitleStream()
	if primary != nil && primary.DeliveryMethod == media.DeliveryEncode {
		return -1
	}
	return requested
}

func (p *Player) onElementEvent(ev element.Event) {
	p.mu.Lock()
	sess := p.cur
	if sess == nil {
		p.mu.Unlock()
		return
	}

	switch ev.Name {
	case element.EvPlaying:
		first := !sess.started
		sess.started = true
		sess.state = StatePlaying
		p.mu.Unlock()
		if first {
			p.onStarted(sess)
		} else {
			p.bus.Publish(events.UnpauseData{PositionTicks: p.positionTicks()})
		}

	case element.EvPause:
		sess.state = StatePaused
		p.mu.Unlock()
		p.bus.Publish(events.PauseData{PositionTicks: p.positionTicks()})

	case element.EvTimeUpdate:
		p.mu.Unlock()
		p.bus.Publish(events.TimeUpdateData{
			PositionTicks: p.positionTicks(),
			DurationTicks: media.MsToTicks(p.Duration()),
		})

	case element.EvVolumeChange:
		el := p.el
		p.mu.Unlock()
		if el == nil {
			return
		}
		vol := el.Volume()
		if p.store != nil {
			_ = p.store.SaveVolume(vol)
		}
		p.bus.Publish(events.VolumeChangeData{Volume: vol, Muted: el.Muted()})

	case element.EvEnded:
		sess.state = StateEnded
		p.mu.Unlock()
		_ = p.Stop(context.Background(), false)

	case element.EvError:
		p.mu.Unlock()
		p.onNativeError(ev.ErrorCode)

	default:
		p.mu.Unlock()
	}
}

// onStarted runs once per session, on the first playing event: the start
// seek, the deferred track selections, and the zero-dimension check.
func (p *Player) onStarted(sess *session) {
	opts := sess.opts

	if w, h := p.el.VideoSize(); w == 0 && h == 0 && opts.Item != nil && opts.Item.RunTimeTicks > 0 {
		p.logger.Error("media reported zero dimensions for item with runtime", "item", opts.Item.ID)
		p.failSession(playermodule.ErrKindNoMedia, "no media in stream")
		return
	}

	startMs := media.TicksToMs(opts.StartPositionTicks - opts.TranscodingOffsetTicks)
	sess.cancelSeek = element.SeekOnReady(p.logger, p.el, startMs, nil)

	p.applyPendingTracks(sess)

	p.bus.Publish(events.PlaybackStartData{
		ItemID:     itemID(opts),
		SourceID:   opts.MediaSource.ID,
		PlayMethod: string(opts.PlayMethod),
		IsEpisode:  opts.Item != nil && opts.Item.Type == "Episode",
	})
}

func (p *Player) applyPendingTracks(sess *session) {
	src := sess.opts.MediaSource

	if sess.primarySubs != nil && sess.subtitleIndexToSet >= 0 {
		if stream := src.StreamByIndex(sess.subtitleIndexToSet); stream != nil && stream.Type == media.StreamSubtitle {
			p.attachSubtitle(sess.primarySubs, stream)
		}
	}
	if sess.secondarySubs != nil && sess.secondarySubtitleToSet >= 0 {
		if stream := src.StreamByIndex(sess.secondarySubtitleToSet); stream != nil && stream.Type == media.StreamSubtitle {
			p.attachSubtitle(sess.secondarySubs, stream)
		}
	}
	if sess.audioIndexToSet >= 0 {
		p.logger.Debug("audio track selected", "index", sess.audioIndexToSet)
	}
}

func (p *Player) attachSubtitle(slot *subtitles.Scoped, stream *media.MediaStream) {
	if stream.DeliveryMethod == media.DeliveryEncode {
		return
	}
	r := p.subs.RendererFor(stream)
	if err := slot.Select(context.Background(), r, stream); err != nil {
		p.logger.Warn("subtitle renderer failed", "stream", stream.Index, "error", err)
		if r.Name() == "ass" {
			p.bus.Publish(events.ErrorData{Kind: playermodule.ErrKindAssRender, Message: err.Error()})
		}
	}
}

// onNativeError maps a native element error code onto the error taxonomy.
// Code 1 is the benign user-abort and never surfaces.
func (p *Player) onNativeError(code int) {
	switch code {
	case element.ErrCodeAborted:
		p.logger.Debug("media fetch aborted")
	case element.ErrCodeNetwork:
		p.failSession(playermodule.ErrKindNetwork, "network error during playback")
	case element.ErrCodeDecode:
		p.mu.Lock()
		sess := p.cur
		p.mu.Unlock()
		if sess != nil && sess.hls != nil {
			p.dispatchHlsOutcome(sess.hls.HandleError(hls.ErrorData{Type: hls.ErrorTypeMedia, Fatal: true}))
			return
		}
		p.failSession(playermodule.ErrKindMediaDecode, "media decode error")
	case element.ErrCodeNotSupported:
		p.failSession(playermodule.ErrKindNotSupported, "media format not supported")
	}
}

// HandleStreamError routes streaming-layer errors (the HLS controller's
// error channel) through the session.
func (p *Player) HandleStreamError(data hls.ErrorData) {
	p.mu.Lock()
	sess := p.cur
	p.mu.Unlock()
	if sess == nil || sess.hls == nil {
		return
	}
	p.dispatchHlsOutcome(sess.hls.HandleError(data))
}

func (p *Player) dispatchHlsOutcome(out hls.Outcome) {
	switch out {
	case hls.OutcomeServerError:
		p.failSession(playermodule.ErrKindServer, "server rejected stream request")
	case hls.OutcomeNetworkError:
		p.failSession(playermodule.ErrKindNetwork, "network unavailable")
	case hls.OutcomeFatal:
		p.failSession(playermodule.ErrKindFatalHls, "hls recovery exhausted")
	}
}

// failSession releases all session resources, then surfaces the error event
// exactly once. Resources are gone before the event fires so the consumer
// can immediately call Play again.
func (p *Player) failSession(kind, message string) {
	p.mu.Lock()
	if p.cur == nil {
		p.mu.Unlock()
		return
	}
	p.cur.state = StateError
	p.stopLocked(false, true)
	p.mu.Unlock()

	p.bus.Publish(events.ErrorData{Kind: kind, Message: message})
}

// Stop ends the session. Idempotent: a second call, or a call before any
// Play, is a no-op and never emits a second stopped event.
func (p *Player) Stop(_ context.Context, destroy bool) error {
	p.mu.Lock()
	stopData := p.stopLocked(destroy, false)
	p.mu.Unlock()
	if stopData != nil {
		p.bus.Publish(*stopData)
	}
	return nil
}

// stopLocked tears the session down and returns the stop event to publish
// after the lock is released, nil when nothing should be emitted. Callers
// hold p.mu. quiet suppresses the stop event (error teardown emits its own).
func (p *Player) stopLocked(destroy, quiet bool) *events.PlaybackStopData {
	sess := p.cur
	if sess == nil {
		if destroy && p.el != nil {
			p.el.RemoveSource()
			p.el = nil
		}
		return nil
	}

	sess.cancelSeek()
	if sess.removeListener != nil {
		sess.removeListener()
	}
	if sess.primarySubs != nil {
		sess.primarySubs.Clear()
	}
	if sess.secondarySubs != nil {
		sess.secondarySubs.Clear()
	}
	if sess.hls != nil {
		sess.hls.Destroy()
	}
	if sess.flv != nil {
		sess.flv.destroy()
	}

	lastSrc := sess.url
	positionTicks := int64(0)
	if p.el != nil {
		positionTicks = media.MsToTicks(p.el.CurrentTime()) + sess.opts.TranscodingOffsetTicks
		p.el.Pause()
		p.el.RemoveSource()
	}
	if destroy {
		p.el = nil
	}

	if sess.state != StateError {
		sess.state = StateStopped
	}
	emit := !sess.stopEmitted && !quiet
	sess.stopEmitted = true
	p.cur = nil
	p.logger.Info("playback session stopped", "src", lastSrc, "destroyed", destroy)

	if !emit {
		return nil
	}
	itemID := ""
	if sess.opts.Item != nil {
		itemID = sess.opts.Item.ID
	}
	return &events.PlaybackStopData{
		ItemID:        itemID,
		Src:           lastSrc,
		PositionTicks: positionTicks,
		PlayMethod:    string(sess.opts.PlayMethod),
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

// Seek moves the play position. ticks are server ticks; the active
// transcoding offset is subtracted before converting to element time.
func (p *Player) Seek(ticks int64) error {
	p.mu.Lock()
	sess := p.cur
	el := p.el
	p.mu.Unlock()
	if sess == nil || el == nil {
		return fmt.Errorf("no active playback session")
	}
	el.SetCurrentTime(media.TicksToMs(ticks - sess.opts.TranscodingOffsetTicks))
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
	sess := p.cur
	el := p.el
	p.mu.Unlock()
	if sess == nil || el == nil {
		return nil
	}
	return element.BufferedToTicks(el.Buffered(), sess.opts.TranscodingOffsetTicks)
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

// AdjustSubtitleOffset applies a relative timing delta to the primary
// subtitle track.
func (p *Player) AdjustSubtitleOffset(deltaMs int64) {
	p.mu.Lock()
	sess := p.cur
	p.mu.Unlock()
	if sess != nil && sess.primarySubs != nil {
		sess.primarySubs.AdjustOffset(deltaMs)
	}
}

// AdjustSecondarySubtitleOffset applies a relative timing delta to the
// secondary track only.
func (p *Player) AdjustSecondarySubtitleOffset(deltaMs int64) {
	p.mu.Lock()
	sess := p.cur
	p.mu.Unlock()
	if sess != nil && sess.secondarySubs != nil {
		sess.secondarySubs.AdjustOffset(deltaMs)
	}
}

// SecondarySubtitleIndex reports the gated secondary subtitle selection for
// the active session, -1 when none.
func (p *Player) SecondarySubtitleIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cur == nil {
		return -1
	}
	return p.cur.secondarySubtitleToSet
}

func (p *Player) positionTicks() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.el == nil || p.cur == nil {
		return 0
	}
	return media.MsToTicks(p.el.CurrentTime()) + p.cur.opts.TranscodingOffsetTicks
}
