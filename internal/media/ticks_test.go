package media

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTickConversions(t *testing.T) {
	tests := []struct {
		name  string
		ticks int64
		ms    int64
	}{
		{name: "zero", ticks: 0, ms: 0},
		{name: "one millisecond", ticks: 10_000, ms: 1},
		{name: "one second", ticks: 10_000_000, ms: 1000},
		{name: "five seconds", ticks: 50_000_000, ms: 5000},
		{name: "typical resume position", ticks: 21_543_210_000, ms: 2_154_321},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ms, TicksToMs(tt.ticks))
			assert.Equal(t, tt.ticks, MsToTicks(tt.ms))
		})
	}
}

func TestTickRoundTrip(t *testing.T) {
	// Exact for any value on the millisecond grid.
	for _, ticks := range []int64{0, 10_000, 990_000, 50_000_000, 123_450_000} {
		assert.Equal(t, ticks, MsToTicks(TicksToMs(ticks)))
	}
}

func TestDurationConversions(t *testing.T) {
	assert.Equal(t, 2*time.Second, TicksToDuration(2*TicksPerSecond))
	assert.Equal(t, TicksPerSecond, DurationToTicks(time.Second))
	assert.Equal(t, int64(0), DurationToTicks(0))
}

func TestStreamAccessors(t *testing.T) {
	src := &MediaSource{
		DefaultSubtitleIndex: 2,
		MediaStreams: []MediaStream{
			{Index: 0, Type: StreamVideo, Codec: "h264"},
			{Index: 1, Type: StreamAudio, Codec: "aac"},
			{Index: 2, Type: StreamSubtitle, Codec: "subrip"},
			{Index: 3, Type: StreamSubtitle, Codec: "ass"},
		},
	}

	assert.Len(t, src.StreamsOfType(StreamSubtitle), 2)
	assert.Equal(t, "aac", src.StreamByIndex(1).Codec)
	assert.Nil(t, src.StreamByIndex(9))

	sub := src.DefaultSubtitleStream()
	assert.NotNil(t, sub)
	assert.Equal(t, "subrip", sub.Codec)

	src.DefaultSubtitleIndex = -1
	assert.Nil(t, src.DefaultSubtitleStream())

	// An index pointing at a non-subtitle stream is treated as no selection.
	src.DefaultSubtitleIndex = 1
	assert.Nil(t, src.DefaultSubtitleStream())
}
