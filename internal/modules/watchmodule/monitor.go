// Package watchmodule watches playback activity for binge sessions: it
// accumulates consecutive episodes and watch time and raises a one-shot
// "still watching?" intervention once a threshold is crossed. Any user
// interaction resets the accumulator.
package watchmodule

import (
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/events"
)

// Thresholds configures when the intervention fires. Zero values disable
// the corresponding trigger.
type Thresholds struct {
	MaxEpisodes   int
	MaxWatchTicks int64
}

// DefaultThresholds asks after three consecutive episodes or four hours.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxEpisodes:   3,
		MaxWatchTicks: 4 * 60 * 60 * 10_000_000,
	}
}

// Monitor is the still-watching accumulator. It subscribes to a playback
// event bus and raises Intervention events on its own bus.
type Monitor struct {
	logger     hclog.Logger
	thresholds Thresholds
	bus        *events.Bus

	mu              sync.Mutex
	episodeCount    int
	watchTicks      int64
	lastUpdateTicks int64
	inEpisode       bool
	intervened      bool

	subID  string
	source *events.Bus
}

// NewMonitor creates an unattached monitor.
func NewMonitor(logger hclog.Logger, thresholds Thresholds) *Monitor {
	return &Monitor{
		logger:     logger.Named("still-watching"),
		thresholds: thresholds,
		bus:        events.NewBus("still-watching"),
	}
}

// Events exposes the intervention channel.
func (m *Monitor) Events() *events.Bus { return m.bus }

// Attach subscribes the monitor to a playback event bus.
func (m *Monitor) Attach(source *events.Bus) {
	m.Detach()
	m.source = source
	m.subID = source.Subscribe(m.onEvent,
		events.PlaybackStart, events.PlaybackStop, events.TimeUpdate, events.Interaction)
}

// Detach unsubscribes. Safe when never attached.
func (m *Monitor) Detach() {
	if m.source != nil && m.subID != "" {
		m.source.Unsubscribe(m.subID)
		m.source = nil
		m.subID = ""
	}
}

// Snapshot reports the current accumulator state.
func (m *Monitor) Snapshot() (episodes int, watchTicks int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.episodeCount, m.watchTicks
}

func (m *Monitor) onEvent(ev events.Event) {
	switch data := ev.Payload.(type) {
	case events.PlaybackStartData:
		m.onStart(data)
	case events.TimeUpdateData:
		m.onTimeUpdate(data)
	case events.PlaybackStopData:
		m.onStop()
	case events.InteractionData:
		m.Reset()
	}
}

func (m *Monitor) onStart(data events.PlaybackStartData) {
	m.mu.Lock()
	if !data.IsEpisode {
		// Non-episode playback breaks the binge streak.
		m.resetLocked()
		m.mu.Unlock()
		return
	}
	m.inEpisode = true
	m.episodeCount++
	m.lastUpdateTicks = 0
	intervene := m.checkLocked()
	m.mu.Unlock()

	if intervene != nil {
		m.bus.Publish(*intervene)
	}
}

func (m *Monitor) onTimeUpdate(data events.TimeUpdateData) {
	m.mu.Lock()
	if !m.inEpisode {
		m.mu.Unlock()
		return
	}
	// Accumulate only forward progress; seeks backwards just move the
	// reference point.
	if delta := data.PositionTicks - m.lastUpdateTicks; delta > 0 {
		m.watchTicks += delta
	}
	m.lastUpdateTicks = data.PositionTicks
	intervene := m.checkLocked()
	m.mu.Unlock()

	if intervene != nil {
		m.bus.Publish(*intervene)
	}
}

func (m *Monitor) onStop() {
	m.mu.Lock()
	m.inEpisode = false
	m.lastUpdateTicks = 0
	m.mu.Unlock()
}

// checkLocked returns the intervention to raise, at most once per streak.
func (m *Monitor) checkLocked() *events.InterventionData {
	if m.intervened {
		return nil
	}
	episodesHit := m.thresholds.MaxEpisodes > 0 && m.episodeCount > m.thresholds.MaxEpisodes
	timeHit := m.thresholds.MaxWatchTicks > 0 && m.watchTicks >= m.thresholds.MaxWatchTicks
	if !episodesHit && !timeHit {
		return nil
	}
	m.intervened = true
	m.logger.Info("still watching intervention raised",
		"episodes", m.episodeCount, "watch_ticks", m.watchTicks)
	return &events.InterventionData{
		EpisodeCount: m.episodeCount,
		WatchTicks:   m.watchTicks,
	}
}

// Reset clears the accumulator, e.g. on user interaction.
func (m *Monitor) Reset() {
	m.mu.Lock()
	m.resetLocked()
	m.mu.Unlock()
}

func (m *Monitor) resetLocked() {
	m.episodeCount = 0
	m.watchTicks = 0
	m.lastUpdateTicks = 0
	m.intervened = false
}
