package audio

import (
	"context"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/capabilities"
	"github.com/kinetra/kinetra/internal/events"
	"github.com/kinetra/kinetra/internal/media"
	"github.com/kinetra/kinetra/internal/modules/profilemodule"
	"github.com/kinetra/kinetra/internal/player/element"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPlayer(t *testing.T) (*Player, *element.Fake, *[]events.Payload) {
	t.Helper()
	logger := hclog.NewNullLogger()
	caps := capabilities.NewBuilder(capabilities.PlatformGeneric).
		Audio("mp3", "mp3", capabilities.SupportProbably).
		Build()
	el := element.NewFake()
	p := NewPlayer(Options{
		Logger:         logger,
		ProfileBuilder: profilemodule.NewBuilder(logger, caps),
		NewElement:     func() element.MediaElement { return el },
	})
	var seen []events.Payload
	p.Events().Subscribe(func(ev events.Event) { seen = append(seen, ev.Payload) })
	return p, el, &seen
}

func audioOptions() *media.PlayOptions {
	return &media.PlayOptions{
		Item:        &media.Item{ID: "song-1", MediaType: media.TypeAudio},
		MediaSource: &media.MediaSource{ID: "src-1", Container: "mp3"},
		URL:         "http://x/song.mp3",
		PlayMethod:  media.PlayMethodDirectPlay,
	}
}

func countType(seen []events.Payload, t events.Type) int {
	n := 0
	for _, p := range seen {
		if p.EventType() == t {
			n++
		}
	}
	return n
}

func TestAudioPlayStop(t *testing.T) {
	p, el, seen := newTestPlayer(t)

	require.NoError(t, p.Play(context.Background(), audioOptions()))
	assert.Equal(t, "http://x/song.mp3", el.Source())
	assert.Equal(t, 1, countType(*seen, events.PlaybackStart))

	require.NoError(t, p.Stop(context.Background(), false))
	require.NoError(t, p.Stop(context.Background(), false))
	assert.Equal(t, 1, countType(*seen, events.PlaybackStop))
	assert.Equal(t, 0, el.ListenerCount())
}

func TestAudioStartPositionSeek(t *testing.T) {
	p, el, _ := newTestPlayer(t)

	opts := audioOptions()
	opts.StartPositionTicks = media.MsToTicks(30_000)
	el.SetDuration(200_000)
	require.NoError(t, p.Play(context.Background(), opts))
	assert.Equal(t, int64(30_000), p.CurrentTime())
}

func TestAudioStopCancelsDeferredSeek(t *testing.T) {
	p, el, _ := newTestPlayer(t)

	opts := audioOptions()
	opts.StartPositionTicks = media.MsToTicks(30_000)
	require.NoError(t, p.Play(context.Background(), opts))
	require.NoError(t, p.Stop(context.Background(), false))
	assert.Equal(t, 0, el.ListenerCount(), "deferred seek listener removed on stop")

	require.NoError(t, p.Play(context.Background(), audioOptions()))
	el.SetDuration(200_000)
	assert.Equal(t, int64(0), p.CurrentTime(), "old session's start position must not leak")
}

func TestAudioErrorStopsAndSurfacesOnce(t *testing.T) {
	p, el, seen := newTestPlayer(t)
	require.NoError(t, p.Play(context.Background(), audioOptions()))

	el.Fire(element.Event{Name: element.EvError, ErrorCode: element.ErrCodeNetwork})

	assert.Equal(t, 1, countType(*seen, events.PlaybackError))
	assert.Equal(t, 1, countType(*seen, events.PlaybackStop))
	assert.Empty(t, el.Source())
}

func TestAudioEndedEmitsStop(t *testing.T) {
	p, el, seen := newTestPlayer(t)
	require.NoError(t, p.Play(context.Background(), audioOptions()))

	el.Fire(element.Event{Name: element.EvEnded})
	assert.Equal(t, 1, countType(*seen, events.PlaybackStop))
}

func TestAudioCanPlay(t *testing.T) {
	p, _, _ := newTestPlayer(t)
	assert.True(t, p.CanPlayMediaType(media.TypeAudio))
	assert.False(t, p.CanPlayMediaType(media.TypeVideo))
	assert.True(t, p.CanPlayItem(&media.Item{MediaType: media.TypeAudio}))
}
