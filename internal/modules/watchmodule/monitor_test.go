package watchmodule

import (
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/events"
	"github.com/kinetra/kinetra/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAttachedMonitor(t *testing.T, th Thresholds) (*Monitor, *events.Bus, *[]events.InterventionData) {
	t.Helper()
	source := events.NewBus("playback")
	m := NewMonitor(hclog.NewNullLogger(), th)
	m.Attach(source)

	var raised []events.InterventionData
	m.Events().Subscribe(func(ev events.Event) {
		raised = append(raised, ev.Payload.(events.InterventionData))
	}, events.Intervention)
	return m, source, &raised
}

func startEpisode(source *events.Bus) {
	source.Publish(events.PlaybackStartData{ItemID: "ep", IsEpisode: true})
}

func TestInterventionAfterEpisodeThreshold(t *testing.T) {
	_, source, raised := newAttachedMonitor(t, Thresholds{MaxEpisodes: 3})

	for i := 0; i < 3; i++ {
		startEpisode(source)
		source.Publish(events.PlaybackStopData{ItemID: "ep"})
	}
	assert.Empty(t, *raised, "threshold itself does not trigger")

	startEpisode(source)
	require.Len(t, *raised, 1)
	assert.Equal(t, 4, (*raised)[0].EpisodeCount)
}

func TestInterventionIsOneShot(t *testing.T) {
	_, source, raised := newAttachedMonitor(t, Thresholds{MaxEpisodes: 1})

	startEpisode(source)
	startEpisode(source)
	startEpisode(source)
	assert.Len(t, *raised, 1, "intervention fires once per streak")
}

func TestInterventionAfterWatchTime(t *testing.T) {
	limit := media.MsToTicks(60_000)
	_, source, raised := newAttachedMonitor(t, Thresholds{MaxWatchTicks: limit})

	startEpisode(source)
	source.Publish(events.TimeUpdateData{PositionTicks: media.MsToTicks(30_000)})
	assert.Empty(t, *raised)

	source.Publish(events.TimeUpdateData{PositionTicks: media.MsToTicks(65_000)})
	require.Len(t, *raised, 1)
	assert.GreaterOrEqual(t, (*raised)[0].WatchTicks, limit)
}

func TestBackwardSeekDoesNotAccumulate(t *testing.T) {
	m, source, _ := newAttachedMonitor(t, Thresholds{MaxWatchTicks: media.MsToTicks(60_000)})

	startEpisode(source)
	source.Publish(events.TimeUpdateData{PositionTicks: media.MsToTicks(30_000)})
	source.Publish(events.TimeUpdateData{PositionTicks: media.MsToTicks(5_000)})
	source.Publish(events.TimeUpdateData{PositionTicks: media.MsToTicks(10_000)})

	_, ticks := m.Snapshot()
	assert.Equal(t, media.MsToTicks(35_000), ticks)
}

func TestWatchTimeSpansEpisodes(t *testing.T) {
	m, source, _ := newAttachedMonitor(t, Thresholds{MaxWatchTicks: media.MsToTicks(100_000)})

	startEpisode(source)
	source.Publish(events.TimeUpdateData{PositionTicks: media.MsToTicks(20_000)})
	source.Publish(events.PlaybackStopData{ItemID: "ep"})

	startEpisode(source)
	source.Publish(events.TimeUpdateData{PositionTicks: media.MsToTicks(20_000)})

	_, ticks := m.Snapshot()
	assert.Equal(t, media.MsToTicks(40_000), ticks, "position resets per episode, accumulator does not")
}

func TestInteractionResetsStreak(t *testing.T) {
	m, source, raised := newAttachedMonitor(t, Thresholds{MaxEpisodes: 2})

	startEpisode(source)
	startEpisode(source)
	source.Publish(events.InteractionData{})

	episodes, ticks := m.Snapshot()
	assert.Zero(t, episodes)
	assert.Zero(t, ticks)

	// The streak can trigger again after a reset.
	startEpisode(source)
	startEpisode(source)
	startEpisode(source)
	assert.Len(t, *raised, 1)
}

func TestNonEpisodePlaybackBreaksStreak(t *testing.T) {
	m, source, _ := newAttachedMonitor(t, Thresholds{MaxEpisodes: 3})

	startEpisode(source)
	startEpisode(source)
	source.Publish(events.PlaybackStartData{ItemID: "movie", IsEpisode: false})

	episodes, _ := m.Snapshot()
	assert.Zero(t, episodes)
}

func TestDetachStopsAccumulating(t *testing.T) {
	m, source, _ := newAttachedMonitor(t, Thresholds{MaxEpisodes: 3})
	m.Detach()

	startEpisode(source)
	episodes, _ := m.Snapshot()
	assert.Zero(t, episodes)
}
