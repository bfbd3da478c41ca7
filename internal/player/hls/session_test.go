package hls

import (
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/player/element"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoadedSession(t *testing.T) (*Session, *element.Fake) {
	t.Helper()
	s := NewSession(hclog.NewNullLogger())
	el := element.NewFake()
	require.NoError(t, s.Attach(el))
	require.NoError(t, s.LoadSource("http://x/videos/1/master.m3u8"))
	return s, el
}

func TestSessionLifecycle(t *testing.T) {
	s := NewSession(hclog.NewNullLogger())
	assert.Equal(t, StateCreated, s.State())

	err := s.LoadSource("http://x/master.m3u8")
	assert.Error(t, err, "load before attach is rejected")

	el := element.NewFake()
	require.NoError(t, s.Attach(el))
	require.NoError(t, s.LoadSource("http://x/master.m3u8"))
	assert.Equal(t, StateLoading, s.State())
	assert.Equal(t, "http://x/master.m3u8", el.Source())

	s.Destroy()
	assert.Equal(t, StateDestroyed, s.State())
	assert.Empty(t, el.Source(), "destroy clears the element source")

	// Idempotent.
	s.Destroy()
	assert.Equal(t, StateDestroyed, s.State())
	assert.Error(t, s.Attach(el))
}

func TestHandleErrorServerResponseDestroysWithoutRetry(t *testing.T) {
	s, el := newLoadedSession(t)
	before := s.LoadStartCount()

	out := s.HandleError(ErrorData{Type: ErrorTypeNetwork, Fatal: true, ResponseCode: 404})
	assert.Equal(t, OutcomeServerError, out)
	assert.Equal(t, StateDestroyed, s.State())
	assert.Empty(t, el.Source())
	assert.Equal(t, before, s.LoadStartCount(), "no retry on server rejection")
}

func TestHandleErrorNetworkDownDestroysWithoutRetry(t *testing.T) {
	s, _ := newLoadedSession(t)

	out := s.HandleError(ErrorData{Type: ErrorTypeNetwork, Fatal: true, NetworkDown: true})
	assert.Equal(t, OutcomeNetworkError, out)
	assert.Equal(t, StateDestroyed, s.State())
}

func TestHandleErrorTransientNetworkRetriesBounded(t *testing.T) {
	s, _ := newLoadedSession(t)
	data := ErrorData{Type: ErrorTypeNetwork, Fatal: true, Details: "fragLoadError"}

	assert.Equal(t, OutcomeRetried, s.HandleError(data))
	assert.Equal(t, OutcomeRetried, s.HandleError(data))
	assert.Equal(t, OutcomeFatal, s.HandleError(data))
	assert.Equal(t, StateDestroyed, s.State())
}

func TestHandleErrorNonFatalIgnored(t *testing.T) {
	s, _ := newLoadedSession(t)

	out := s.HandleError(ErrorData{Type: ErrorTypeNetwork, Details: "fragLoadTimeout"})
	assert.Equal(t, OutcomeIgnored, out)
	assert.Equal(t, StateLoading, s.State())
}

func TestHandleErrorMediaLadder(t *testing.T) {
	s, _ := newLoadedSession(t)
	data := ErrorData{Type: ErrorTypeMedia, Fatal: true}

	// Two recovery rungs, then fatal; the session is torn down on fatal.
	assert.Equal(t, OutcomeRecovered, s.HandleError(data))
	assert.Equal(t, OutcomeRecovered, s.HandleError(data))
	assert.Equal(t, OutcomeFatal, s.HandleError(data))
	assert.Equal(t, StateDestroyed, s.State())
}

func TestHandleErrorUnknownFatal(t *testing.T) {
	s, _ := newLoadedSession(t)

	out := s.HandleError(ErrorData{Type: ErrorTypeMux, Fatal: true, Details: "remuxAllocError"})
	assert.Equal(t, OutcomeFatal, out)
	assert.Equal(t, StateDestroyed, s.State())
}

func TestRewriteLiveURL(t *testing.T) {
	assert.Equal(t,
		"http://x/videos/1/live.m3u8?api_key=k",
		RewriteLiveURL("http://x/videos/1/master.m3u8?api_key=k"))
	assert.Equal(t,
		"http://x/videos/1/stream.mp4",
		RewriteLiveURL("http://x/videos/1/stream.mp4"))
}
