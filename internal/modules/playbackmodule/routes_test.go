package playbackmodule

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/events"
	"github.com/kinetra/kinetra/internal/media"
	"github.com/kinetra/kinetra/internal/modules/watchmodule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Manager, *recordingPlayer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	manager, player, _ := newTestManager(t)
	mod := &Module{manager: manager}

	router := gin.New()
	mod.RegisterRoutes(router)
	return router, manager, player
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestProfileEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/api/playback/profile", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPlayEndpointRequiresItem(t *testing.T) {
	router, _, player := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/playback/play", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, player.plays)

	w = doJSON(router, http.MethodPost, "/api/playback/play", `{"itemId":"a"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, player.plays)
}

func TestSeekEndpointMsFallback(t *testing.T) {
	router, _, player := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/playback/play", `{"itemId":"a"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodPost, "/api/playback/seek", `{"positionMs":5000}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"positionTicks":50000000`)
	assert.Equal(t, 1, player.seeks)
}

func TestCommandsResetStillWatching(t *testing.T) {
	router, manager, player := newTestRouter(t)

	monitor := watchmodule.NewMonitor(hclog.NewNullLogger(), watchmodule.Thresholds{MaxEpisodes: 10})
	monitor.Attach(manager.Events())
	defer monitor.Detach()

	w := doJSON(router, http.MethodPost, "/api/playback/play", `{"itemId":"a"}`)
	require.Equal(t, http.StatusOK, w.Code)
	player.bus.Publish(events.PlaybackStartData{ItemID: "a", IsEpisode: true})
	player.bus.Publish(events.TimeUpdateData{PositionTicks: media.MsToTicks(60_000)})

	episodes, ticks := monitor.Snapshot()
	require.Equal(t, 1, episodes)
	require.Positive(t, ticks)

	w = doJSON(router, http.MethodPost, "/api/playback/pause", "")
	require.Equal(t, http.StatusOK, w.Code)

	episodes, ticks = monitor.Snapshot()
	assert.Zero(t, episodes, "user command resets the binge accumulator")
	assert.Zero(t, ticks)
}
