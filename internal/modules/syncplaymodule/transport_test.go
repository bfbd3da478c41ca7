package syncplaymodule

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/modules/playbackmodule"
	"github.com/kinetra/kinetra/internal/modules/playermodule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCoordinator serves one websocket connection and hands it to serve.
func fakeCoordinator(t *testing.T, serve func(conn *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn)
		<-done
	}))
	t.Cleanup(func() {
		close(done)
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestCoordinatorDirectivesDriveLocalPlayer(t *testing.T) {
	logger := hclog.NewNullLogger()
	reg := playermodule.NewRegistry(logger)
	player := newCountingPlayer()
	require.NoError(t, reg.Register(player))
	manager := playbackmodule.NewManager(logger, nullClient{}, reg, nil)
	manager.SetActivePlayer(player)

	url := fakeCoordinator(t, func(conn *websocket.Conn) {
		_ = conn.WriteJSON(groupCommand{Type: "command", Command: "pause"})
		_ = conn.WriteJSON(groupCommand{Type: "command", Command: "seek", PositionTicks: 500})
	})

	transport := NewTransport(logger, url)
	controller := newWireController(logger, manager, transport)
	applied := make(chan string, 4)
	transport.SetDirectiveHandler(func(cmd groupCommand) {
		assert.NoError(t, controller.ApplyCommand(context.Background(), cmd))
		applied <- cmd.Command
	})
	require.NoError(t, transport.Connect(context.Background()))
	defer transport.Close()

	for _, want := range []string{"pause", "seek"} {
		select {
		case got := <-applied:
			assert.Equal(t, want, got)
		case <-time.After(5 * time.Second):
			t.Fatalf("directive %q never arrived", want)
		}
	}
	assert.Equal(t, 1, player.pauses)
	assert.Equal(t, 1, player.seeks)
}

func TestPingSurvivesInterleavedDirective(t *testing.T) {
	logger := hclog.NewNullLogger()

	url := fakeCoordinator(t, func(conn *websocket.Conn) {
		var req pingRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		// A directive lands between the ping and its pong; the pump must
		// route it instead of handing it to the waiting ping.
		_ = conn.WriteJSON(groupCommand{Type: "command", Command: "pause"})
		now := time.Now()
		_ = conn.WriteJSON(pingResponse{Type: "pong", RequestReceived: now, ResponseSent: now})
	})

	transport := NewTransport(logger, url)
	directives := make(chan groupCommand, 1)
	transport.SetDirectiveHandler(func(cmd groupCommand) { directives <- cmd })
	require.NoError(t, transport.Connect(context.Background()))
	defer transport.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m, err := transport.Ping(ctx)
	require.NoError(t, err)
	assert.False(t, m.ResponseSent.IsZero())
	assert.False(t, m.ResponseReceived.Before(m.RequestSent))

	select {
	case cmd := <-directives:
		assert.Equal(t, "pause", cmd.Command)
	case <-time.After(5 * time.Second):
		t.Fatal("interleaved directive was lost")
	}
}
