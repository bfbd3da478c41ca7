package playermodule

import (
	"context"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/events"
	"github.com/kinetra/kinetra/internal/media"
	"github.com/kinetra/kinetra/internal/modules/profilemodule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubPlugin implements just enough of Plugin for registry tests.
type stubPlugin struct {
	id       string
	priority int
	types    map[media.MediaType]bool
	bus      *events.Bus
}

func newStubPlugin(id string, priority int, types ...media.MediaType) *stubPlugin {
	m := make(map[media.MediaType]bool, len(types))
	for _, t := range types {
		m[t] = true
	}
	return &stubPlugin{id: id, priority: priority, types: m, bus: events.NewBus(id)}
}

func (s *stubPlugin) Name() string        { return s.id }
func (s *stubPlugin) ID() string          { return s.id }
func (s *stubPlugin) Priority() int       { return s.priority }
func (s *stubPlugin) IsLocalPlayer() bool { return true }

func (s *stubPlugin) CanPlayMediaType(t media.MediaType) bool { return s.types[t] }
func (s *stubPlugin) CanPlayItem(item *media.Item) bool       { return s.types[item.MediaType] }
func (s *stubPlugin) Supports(Feature) bool                   { return false }

func (s *stubPlugin) DeviceProfile(*media.Item) *profilemodule.DeviceProfile { return nil }

func (s *stubPlugin) Play(context.Context, *media.PlayOptions) error { return nil }
func (s *stubPlugin) Stop(context.Context, bool) error               { return nil }
func (s *stubPlugin) Pause()                                         {}
func (s *stubPlugin) Unpause()                                       {}
func (s *stubPlugin) IsPaused() bool                                 { return false }
func (s *stubPlugin) Seek(int64) error                               { return nil }
func (s *stubPlugin) CurrentTime() int64                             { return 0 }
func (s *stubPlugin) SetCurrentTime(int64)                           {}
func (s *stubPlugin) Duration() int64                                { return 0 }
func (s *stubPlugin) BufferedRanges() []media.TickRange              { return nil }
func (s *stubPlugin) SetVolume(float64)                              {}
func (s *stubPlugin) Volume() float64                                { return 1 }
func (s *stubPlugin) SetMuted(bool)                                  {}
func (s *stubPlugin) IsMuted() bool                                  { return false }
func (s *stubPlugin) Events() *events.Bus                            { return s.bus }

func TestRegistryPicksLowestPriority(t *testing.T) {
	r := NewRegistry(hclog.NewNullLogger())
	require.NoError(t, r.Register(newStubPlugin("remote", 10, media.TypeVideo)))
	require.NoError(t, r.Register(newStubPlugin("video", 1, media.TypeVideo)))
	require.NoError(t, r.Register(newStubPlugin("audio", 1, media.TypeAudio)))

	p, ok := r.ForItem(&media.Item{ID: "a", MediaType: media.TypeVideo})
	require.True(t, ok)
	assert.Equal(t, "video", p.ID())
}

func TestRegistryTieBrokenByRegistrationOrder(t *testing.T) {
	r := NewRegistry(hclog.NewNullLogger())
	require.NoError(t, r.Register(newStubPlugin("first", 5, media.TypeVideo)))
	require.NoError(t, r.Register(newStubPlugin("second", 5, media.TypeVideo)))

	p, ok := r.ForItem(&media.Item{MediaType: media.TypeVideo})
	require.True(t, ok)
	assert.Equal(t, "first", p.ID())
}

func TestRegistryNoCandidate(t *testing.T) {
	r := NewRegistry(hclog.NewNullLogger())
	require.NoError(t, r.Register(newStubPlugin("video", 1, media.TypeVideo)))

	_, ok := r.ForItem(&media.Item{MediaType: media.TypeBook})
	assert.False(t, ok)

	_, ok = r.ForMediaType(media.TypePhoto)
	assert.False(t, ok)
}

func TestRegistryRejectsDuplicateID(t *testing.T) {
	r := NewRegistry(hclog.NewNullLogger())
	require.NoError(t, r.Register(newStubPlugin("video", 1, media.TypeVideo)))
	assert.Error(t, r.Register(newStubPlugin("video", 2, media.TypeVideo)))
	assert.Len(t, r.List(), 1)
}

func TestRegistryForMediaType(t *testing.T) {
	r := NewRegistry(hclog.NewNullLogger())
	require.NoError(t, r.Register(newStubPlugin("video", 1, media.TypeVideo)))
	require.NoError(t, r.Register(newStubPlugin("photo", 3, media.TypePhoto)))

	p, ok := r.ForMediaType(media.TypePhoto)
	require.True(t, ok)
	assert.Equal(t, "photo", p.ID())

	got, ok := r.Get("video")
	require.True(t, ok)
	assert.Equal(t, "video", got.ID())
}
