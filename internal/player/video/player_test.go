package video

import (
	"context"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/capabilities"
	"github.com/kinetra/kinetra/internal/events"
	"github.com/kinetra/kinetra/internal/media"
	"github.com/kinetra/kinetra/internal/modules/playermodule"
	"github.com/kinetra/kinetra/internal/modules/profilemodule"
	"github.com/kinetra/kinetra/internal/player/element"
	"github.com/kinetra/kinetra/internal/player/hls"
	"github.com/kinetra/kinetra/internal/player/subtitles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCueFetcher struct{ cues []subtitles.Cue }

func (f *fakeCueFetcher) FetchCues(context.Context, string) ([]subtitles.Cue, error) {
	return f.cues, nil
}

type fakeWorker struct{ terminated int }

func (w *fakeWorker) Post(any) {}
func (w *fakeWorker) Terminate() { w.terminated++ }

type fakeSpawner struct{ workers []*fakeWorker }

func (s *fakeSpawner) Spawn(string) (subtitles.Worker, error) {
	w := &fakeWorker{}
	s.workers = append(s.workers, w)
	return w, nil
}

type testHarness struct {
	player  *Player
	el      *element.Fake
	spawner *fakeSpawner
	payload []events.Payload
}

func defaultCaps() *capabilities.Snapshot {
	return capabilities.NewBuilder(capabilities.PlatformGeneric).
		Video("mp4", "h264", capabilities.SupportProbably).
		MaxChannels(6).
		TextTracks(true).
		SecondarySubtitles(true).
		MediaSource(true).
		Build()
}

func newHarness(t *testing.T, caps *capabilities.Snapshot) *testHarness {
	t.Helper()
	if caps == nil {
		caps = defaultCaps()
	}
	logger := hclog.NewNullLogger()
	h := &testHarness{el: element.NewFake(), spawner: &fakeSpawner{}}
	h.player = NewPlayer(Options{
		Logger:         logger,
		Caps:           caps,
		ProfileBuilder: profilemodule.NewBuilder(logger, caps),
		Subtitles:      subtitles.NewFactory(logger, caps, &fakeCueFetcher{}, h.spawner, nil),
		NewElement:     func() element.MediaElement { return h.el },
	})
	h.player.Events().Subscribe(func(ev events.Event) {
		h.payload = append(h.payload, ev.Payload)
	})
	return h
}

func (h *testHarness) eventsOf(t events.Type) []events.Payload {
	var out []events.Payload
	for _, p := range h.payload {
		if p.EventType() == t {
			out = append(out, p)
		}
	}
	return out
}

func mp4Options() *media.PlayOptions {
	return &media.PlayOptions{
		Item:  &media.Item{ID: "a", MediaType: media.TypeVideo},
		Items: []*media.Item{{ID: "a", MediaType: media.TypeVideo}},
		MediaSource: &media.MediaSource{
			ID:        "src-1",
			Container: "mp4",
			MediaStreams: []media.MediaStream{
				{Index: 0, Type: media.StreamVideo, Codec: "h264"},
			},
			DefaultSubtitleIndex: -1,
		},
		URL:                          "http://x/a.mp4",
		PlayMethod:                   media.PlayMethodDirectPlay,
		StartPositionTicks:           50_000_000,
		SubtitleStreamIndex:          -1,
		SecondarySubtitleStreamIndex: -1,
		AudioStreamIndex:             -1,
	}
}

func TestPlayEndToEndNativeSource(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.player.Play(context.Background(), mp4Options()))
	assert.Equal(t, "http://x/a.mp4", h.el.Source())
	assert.Equal(t, StateLoading, h.player.State())

	h.el.SetDuration(600_000)
	h.el.Fire(element.Event{Name: element.EvPlaying})

	assert.Equal(t, StatePlaying, h.player.State())
	assert.Equal(t, int64(5000), h.player.CurrentTime())

	starts := h.eventsOf(events.PlaybackStart)
	require.Len(t, starts, 1)
	assert.Equal(t, "a", starts[0].(events.PlaybackStartData).ItemID)
}

func TestStopIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)

	// Stop before any play never errors and never emits.
	require.NoError(t, h.player.Stop(context.Background(), false))
	assert.Empty(t, h.eventsOf(events.PlaybackStop))

	require.NoError(t, h.player.Play(context.Background(), mp4Options()))
	require.NoError(t, h.player.Stop(context.Background(), false))
	require.NoError(t, h.player.Stop(context.Background(), false))

	stops := h.eventsOf(events.PlaybackStop)
	require.Len(t, stops, 1)
	assert.Equal(t, "http://x/a.mp4", stops[0].(events.PlaybackStopData).Src)
	assert.Equal(t, 0, h.el.ListenerCount(), "all element listeners removed")
	assert.Empty(t, h.el.Source())
}

func TestPlayReplacesLeftoverSession(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.player.Play(context.Background(), mp4Options()))

	second := mp4Options()
	second.URL = "http://x/b.mp4"
	require.NoError(t, h.player.Play(context.Background(), second))

	require.Len(t, h.eventsOf(events.PlaybackStop), 1, "previous session emits its stop first")
	assert.Equal(t, "http://x/b.mp4", h.el.Source())
}

func TestSecondarySubtitleGating(t *testing.T) {
	tests := []struct {
		name            string
		primaryDelivery media.DeliveryMethod
		capsMulti       bool
		requested       int
		want            int
	}{
		{"honored", media.DeliveryExternal, true, 3, 3},
		{"primary encoded resolves to none", media.DeliveryEncode, true, 3, -1},
		{"no multi-track support resolves to none", media.DeliveryExternal, false, 3, -1},
		{"nothing requested", media.DeliveryExternal, true, -1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := capabilities.NewBuilder(capabilities.PlatformGeneric).
				Video("mp4", "h264", capabilities.SupportProbably).
				TextTracks(true).
				MediaSource(true)
			if tt.capsMulti {
				b.SecondarySubtitles(true)
			}
			h := newHarness(t, b.Build())

			opts := mp4Options()
			opts.MediaSource.DefaultSubtitleIndex = 2
			opts.MediaSource.MediaStreams = append(opts.MediaSource.MediaStreams,
				media.MediaStream{Index: 2, Type: media.StreamSubtitle, Codec: "srt", DeliveryMethod: tt.primaryDelivery, DeliveryURL: "http://x/s2"},
				media.MediaStream{Index: 3, Type: media.StreamSubtitle, Codec: "srt", DeliveryMethod: media.DeliveryExternal, DeliveryURL: "http://x/s3"},
			)
			opts.SecondarySubtitleStreamIndex = tt.requested

			require.NoError(t, h.player.Play(context.Background(), opts))
			assert.Equal(t, tt.want, h.player.SecondarySubtitleIndex())
		})
	}
}

func TestNativeErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		wantKind string
	}{
		{"abort is ignored", element.ErrCodeAborted, ""},
		{"network", element.ErrCodeNetwork, playermodule.ErrKindNetwork},
		{"decode without hls", element.ErrCodeDecode, playermodule.ErrKindMediaDecode},
		{"not supported", element.ErrCodeNotSupported, playermodule.ErrKindNotSupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			require.NoError(t, h.player.Play(context.Background(), mp4Options()))

			h.el.Fire(element.Event{Name: element.EvError, ErrorCode: tt.code})

			errs := h.eventsOf(events.PlaybackError)
			if tt.wantKind == "" {
				assert.Empty(t, errs)
				assert.Equal(t, StateLoading, h.player.State(), "benign abort leaves the session alone")
				return
			}
			require.Len(t, errs, 1)
			assert.Equal(t, tt.wantKind, errs[0].(events.ErrorData).Kind)
			assert.Equal(t, StateIdle, h.player.State(), "session gone before the error event fires")
			assert.Equal(t, 0, h.el.ListenerCount())
		})
	}
}

func hlsOptions() *media.PlayOptions {
	opts := mp4Options()
	opts.URL = "http://x/videos/a/master.m3u8"
	opts.MediaSource.Container = "ts"
	opts.MediaSource.TranscodingSubProtocol = "hls"
	opts.PlayMethod = media.PlayMethodTranscode
	return opts
}

func TestHlsDecodeErrorLadderEndsFatal(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.player.Play(context.Background(), hlsOptions()))
	assert.Equal(t, "http://x/videos/a/master.m3u8", h.el.Source())

	// Two rungs recover silently, the third is fatal.
	h.el.Fire(element.Event{Name: element.EvError, ErrorCode: element.ErrCodeDecode})
	h.el.Fire(element.Event{Name: element.EvError, ErrorCode: element.ErrCodeDecode})
	assert.Empty(t, h.eventsOf(events.PlaybackError))

	h.el.Fire(element.Event{Name: element.EvError, ErrorCode: element.ErrCodeDecode})
	errs := h.eventsOf(events.PlaybackError)
	require.Len(t, errs, 1)
	assert.Equal(t, playermodule.ErrKindFatalHls, errs[0].(events.ErrorData).Kind)
	assert.Equal(t, 0, h.el.ListenerCount())
}

func TestHlsStreamErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		data     hls.ErrorData
		wantKind string
	}{
		{"server rejection", hls.ErrorData{Type: hls.ErrorTypeNetwork, Fatal: true, ResponseCode: 500}, playermodule.ErrKindServer},
		{"network down", hls.ErrorData{Type: hls.ErrorTypeNetwork, Fatal: true, NetworkDown: true}, playermodule.ErrKindNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			require.NoError(t, h.player.Play(context.Background(), hlsOptions()))

			h.player.HandleStreamError(tt.data)

			errs := h.eventsOf(events.PlaybackError)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.wantKind, errs[0].(events.ErrorData).Kind)
		})
	}
}

func TestNativeHlsLiveURLRewrite(t *testing.T) {
	caps := capabilities.NewBuilder(capabilities.PlatformApple).
		Video("mp4", "h264", capabilities.SupportProbably).
		NativeHls(true).
		MediaSource(true).
		Build()
	h := newHarness(t, caps)

	opts := hlsOptions()
	opts.MediaSource.IsLive = true
	require.NoError(t, h.player.Play(context.Background(), opts))
	assert.Equal(t, "http://x/videos/a/live.m3u8", h.el.Source())
}

func TestSubtitleRendererTornDownOnStop(t *testing.T) {
	h := newHarness(t, nil)

	opts := mp4Options()
	opts.MediaSource.MediaStreams = append(opts.MediaSource.MediaStreams,
		media.MediaStream{Index: 2, Type: media.StreamSubtitle, Codec: "ass", DeliveryMethod: media.DeliveryExternal, DeliveryURL: "http://x/s2"})
	opts.SubtitleStreamIndex = 2

	require.NoError(t, h.player.Play(context.Background(), opts))
	h.el.Fire(element.Event{Name: element.EvPlaying})
	require.Len(t, h.spawner.workers, 1, "ass renderer spawned for the selected track")

	require.NoError(t, h.player.Stop(context.Background(), true))
	assert.Equal(t, 1, h.spawner.workers[0].terminated)
}

func TestNoMediaErrorForZeroDimensionVideo(t *testing.T) {
	h := newHarness(t, nil)

	opts := mp4Options()
	opts.Item.RunTimeTicks = 600 * media.TicksPerSecond
	require.NoError(t, h.player.Play(context.Background(), opts))

	h.el.Fire(element.Event{Name: element.EvPlaying})

	errs := h.eventsOf(events.PlaybackError)
	require.Len(t, errs, 1)
	assert.Equal(t, playermodule.ErrKindNoMedia, errs[0].(events.ErrorData).Kind)
}

func TestSeekAppliesTranscodingOffset(t *testing.T) {
	h := newHarness(t, nil)
	opts := mp4Options()
	opts.TranscodingOffsetTicks = media.MsToTicks(10_000)
	require.NoError(t, h.player.Play(context.Background(), opts))

	require.NoError(t, h.player.Seek(media.MsToTicks(15_000)))
	assert.Equal(t, int64(5000), h.el.CurrentTime())

	h.el.SetBuffered([]element.Range{{StartMs: 0, EndMs: 2000}})
	ranges := h.player.BufferedRanges()
	require.Len(t, ranges, 1)
	assert.Equal(t, opts.TranscodingOffsetTicks, ranges[0].Start)
}

func TestFlvDirectPlayStrategy(t *testing.T) {
	h := newHarness(t, nil)

	opts := mp4Options()
	opts.URL = "http://x/a.flv"
	opts.MediaSource.Container = "flv"
	require.NoError(t, h.player.Play(context.Background(), opts))
	assert.Equal(t, "http://x/a.flv", h.el.Source())

	require.NoError(t, h.player.Stop(context.Background(), false))
	assert.Empty(t, h.el.Source())
}

func TestVideoSizeCheckSkippedWhenPlayable(t *testing.T) {
	h := newHarness(t, nil)
	opts := mp4Options()
	opts.Item.RunTimeTicks = 600 * media.TicksPerSecond
	require.NoError(t, h.player.Play(context.Background(), opts))

	h.el.SetVideoSize(1920, 1080)
	h.el.Fire(element.Event{Name: element.EvPlaying})
	assert.Empty(t, h.eventsOf(events.PlaybackError))
	assert.Len(t, h.eventsOf(events.PlaybackStart), 1)
}
