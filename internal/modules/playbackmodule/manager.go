package playbackmodule

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

// HistoryStore persists finished playback sessions.
type HistoryStore interface {
	RecordPlayback(itemID string, positionTicks int64, playMethod string) error
}

// Manager orchestrates playback: it resolves the right player for an item,
// negotiates a source with the server, and drives the session. All public
// commands flow through the bound CommandSink.
type Manager struct {
	logger hclog.Logger
	client ServerClient
	reg    *playermodule.Registry
	store  HistoryStore
	bus    *events.Bus

	mu        sync.Mutex
	sink      CommandSink
	local     *localSink
	active    playermodule.Plugin
	activeSub string
	lastOpts  *media.PlayOptions
}

// NewManager creates the playback manager. store may be nil when history
// persistence is disabled.
func NewManager(logger hclog.Logger, client ServerClient, reg *playermodule.Registry, store HistoryStore) *Manager {
	m := &Manager{
		logger: logger.Named("playback-manager"),
		client: client,
		reg:    reg,
		store:  store,
		bus:    events.NewBus("playback-manager"),
	}
	m.local = &localSink{m: m}
	m.sink = m.local
	return m
}

// Events exposes the manager's relay bus: lifecycle events of whichever
// player is active are republished here so observers survive player swaps.
func (m *Manager) Events() *events.Bus { return m.bus }

// ActivePlayer returns the plugin driving the current session, nil if none.
func (m *Manager) ActivePlayer() playermodule.Plugin {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// SetActivePlayer makes the given plugin the command target and relays its
// lifecycle events onto the manager bus.
func (m *Manager) SetActivePlayer(p playermodule.Plugin) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setActivePlayerLocked(p)
}

func (m *Manager) setActivePlayerLocked(p playermodule.Plugin) {
	if m.active != nil && m.activeSub != "" {
		m.active.Events().Unsubscribe(m.activeSub)
		m.activeSub = ""
	}
	m.active = p
	if p == nil {
		return
	}
	m.activeSub = p.Events().Subscribe(func(ev events.Event) {
		m.onPlayerEvent(ev)
	})
	m.logger.Info("active player set", "player", p.ID())
}

// DeactivatePlayer clears the active player if it matches the given name.
// Remote players call this on connection failure; the name must match so a
// racing activation of a different player is never torn down by mistake.
func (m *Manager) DeactivatePlayer(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil || m.active.Name() != name {
		return
	}
	m.logger.Warn("deactivating player", "player", name)
	m.setActivePlayerLocked(nil)
}

func (m *Manager) onPlayerEvent(ev events.Event) {
	if stop, ok := ev.Payload.(events.PlaybackStopData); ok && m.store != nil {
		if err := m.store.RecordPlayback(stop.ItemID, stop.PositionTicks, stop.PlayMethod); err != nil {
			m.logger.Warn("failed to record playback history", "error", err)
		}
	}
	m.bus.Publish(ev.Payload)
}

// Bind routes all subsequent commands through the given sink (the group
// controller). The previous local behavior is untouched and fully restored
// by Unbind.
func (m *Manager) Bind(sink CommandSink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink = sink
	m.logger.Info("command sink bound to group controller")
}

// Unbind restores direct local command execution.
func (m *Manager) Unbind() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink = m.local
	m.logger.Info("command sink restored to local execution")
}

func (m *Manager) currentSink() CommandSink {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sink
}

// PlayItem negotiates and starts playback of a server item: resolve the
// plugin, send its device profile, pick a source, and play.
func (m *Manager) PlayItem(ctx context.Context, itemID string, startTicks int64) error {
	item, err := m.client.Item(ctx, itemID)
	if err != nil {
		return fmt.Errorf("failed to fetch item %s: %w", itemID, err)
	}

	plugin, ok := m.reg.ForItem(item)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPlayerForItem, itemID)
	}

	info, err := m.client.PlaybackInfo(ctx, itemID, plugin.DeviceProfile(item))
	if err != nil {
		return fmt.Errorf("playback negotiation failed: %w", err)
	}
	source, method := pickSource(info)
	if source == nil {
		return ErrNoPlayableSource
	}

	opts := &media.PlayOptions{
		Item:                         item,
		Items:                        []*media.Item{item},
		MediaSource:                  source,
		URL:                          m.client.StreamURL(source),
		PlayMethod:                   method,
		StartPositionTicks:           startTicks,
		AudioStreamIndex:             -1,
		SubtitleStreamIndex:          source.DefaultSubtitleIndex,
		SecondarySubtitleStreamIndex: -1,
	}

	m.mu.Lock()
	m.setActivePlayerLocked(plugin)
	m.lastOpts = opts
	m.mu.Unlock()

	return m.currentSink().Play(ctx, opts)
}

// pickSource prefers direct play, then direct stream, then transcoding.
func pickSource(info *media.PlaybackInfoResponse) (*media.MediaSource, media.PlayMethod) {
	for i := range info.MediaSources {
		if info.MediaSources[i].SupportsDirectPlay {
			return &info.MediaSources[i], media.PlayMethodDirectPlay
		}
	}
	for i := range info.MediaSources {
		if info.MediaSources[i].SupportsDirectStream {
			return &info.MediaSources[i], media.PlayMethodDirectStream
		}
	}
	for i := range info.MediaSources {
		if info.MediaSources[i].SupportsTranscoding && info.MediaSources[i].TranscodingURL != "" {
			return &info.MediaSources[i], media.PlayMethodTranscode
		}
	}
	return nil, ""
}

// Public command surface. Everything routes through the bound sink.

func (m *Manager) Play(ctx context.Context, opts *media.PlayOptions) error {
	return m.currentSink().Play(ctx, opts)
}

// NoteInteraction publishes user activity on the manager bus so idle
// observers (the still-watching monitor) reset their accumulators.
func (m *Manager) NoteInteraction() { m.bus.Publish(events.InteractionData{}) }

func (m *Manager) Pause()                         { m.currentSink().Pause() }
func (m *Manager) Unpause()                       { m.currentSink().Unpause() }
func (m *Manager) Seek(ticks int64) error         { return m.currentSink().Seek(ticks) }
func (m *Manager) Stop(ctx context.Context) error { return m.currentSink().Stop(ctx) }

// NegotiationProfile returns the device profile playback would currently be
// negotiated with: the active player's, or the best local plugin's when
// idle. Nil when no plugin produces one.
func (m *Manager) NegotiationProfile() *profilemodule.DeviceProfile {
	if p := m.ActivePlayer(); p != nil {
		if profile := p.DeviceProfile(nil); profile != nil {
			return profile
		}
	}
	for _, p := range m.reg.List() {
		if !p.IsLocalPlayer() {
			continue
		}
		if profile := p.DeviceProfile(nil); profile != nil {
			return profile
		}
	}
	return nil
}

// Local execution. The local sink and the group controller land here.

func (m *Manager) LocalPlay(ctx context.Context, opts *media.PlayOptions) error {
	m.mu.Lock()
	p := m.active
	m.lastOpts = opts
	m.mu.Unlock()
	if p == nil {
		return ErrNoActivePlayer
	}
	return p.Play(ctx, opts)
}

func (m *Manager) LocalPause() {
	if p := m.ActivePlayer(); p != nil {
		p.Pause()
	}
}

func (m *Manager) LocalUnpause() {
	if p := m.ActivePlayer(); p != nil {
		p.Unpause()
	}
}

func (m *Manager) LocalSeek(ticks int64) error {
	p := m.ActivePlayer()
	if p == nil {
		return ErrNoActivePlayer
	}
	return p.Seek(ticks)
}

func (m *Manager) LocalStop(ctx context.Context) error {
	p := m.ActivePlayer()
	if p == nil {
		return nil
	}
	return p.Stop(ctx, false)
}

// Status summarizes the current session for the control API.
type Status struct {
	PlayerID      string  `json:"playerId,omitempty"`
	ItemID        string  `json:"itemId,omitempty"`
	PlayMethod    string  `json:"playMethod,omitempty"`
	PositionTicks int64   `json:"positionTicks"`
	DurationTicks int64   `json:"durationTicks"`
	IsPaused      bool    `json:"isPaused"`
	Volume        float64 `json:"volume"`
	IsMuted       bool    `json:"isMuted"`
}

// GetStatus reports the active session state.
func (m *Manager) GetStatus() Status {
	m.mu.Lock()
	p := m.active
	opts := m.lastOpts
	m.mu.Unlock()

	if p == nil {
		return Status{}
	}
	st := Status{
		PlayerID:      p.ID(),
		PositionTicks: media.MsToTicks(p.CurrentTime()),
		DurationTicks: media.MsToTicks(p.Duration()),
		IsPaused:      p.IsPaused(),
		Volume:        p.Volume(),
		IsMuted:       p.IsMuted(),
	}
	if opts != nil {
		if opts.Item != nil {
			st.ItemID = opts.Item.ID
		}
		st.PlayMethod = string(opts.PlayMethod)
	}
	return st
}
