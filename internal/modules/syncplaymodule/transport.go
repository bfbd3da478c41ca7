package syncplaymodule

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
)

// pingRequest is the wire shape of a clock ping.
type pingRequest struct {
	Type        string    `json:"type"`
	RequestSent time.Time `json:"requestSent"`
}

// pingResponse carries the coordinator's two timestamps back.
type pingResponse struct {
	Type            string    `json:"type"`
	RequestReceived time.Time `json:"requestReceived"`
	ResponseSent    time.Time `json:"responseSent"`
}

const (
	connectAttempts = 5
	connectDelay    = 500 * time.Millisecond
)

// Transport is the websocket link to the group coordinator. A single read
// pump owns the receive side and demultiplexes frames: pongs go to the
// waiting ping, command frames go to the directive handler. Writes are
// serialized so pings and group commands never interleave mid-frame.
type Transport struct {
	logger      hclog.Logger
	url         string
	onDirective func(groupCommand)

	mu   sync.Mutex
	conn *websocket.Conn
	pong chan pingResponse

	writeMu sync.Mutex
}

func NewTransport(logger hclog.Logger, url string) *Transport {
	return &Transport{logger: logger.Named("syncplay-transport"), url: url}
}

// SetDirectiveHandler installs the callback for coordinator command frames.
// Must be called before Connect.
func (t *Transport) SetDirectiveHandler(handler func(groupCommand)) {
	t.onDirective = handler
}

// Connect dials the coordinator, retrying with backoff a bounded number of
// times, and starts the read pump.
func (t *Transport) Connect(ctx context.Context) error {
	return retry.Do(
		func() error {
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, t.url, nil)
			if err != nil {
				return fmt.Errorf("failed to dial coordinator: %w", err)
			}
			t.mu.Lock()
			t.conn = conn
			t.pong = make(chan pingResponse, 1)
			t.mu.Unlock()
			go t.readLoop(conn)
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(connectAttempts),
		retry.Delay(connectDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			t.logger.Warn("coordinator dial failed, retrying", "attempt", n+1, "error", err)
		}),
	)
}

// readLoop is the sole reader of the connection. It exits when the
// connection closes.
func (t *Transport) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.logger.Debug("coordinator read loop ended", "error", err)
			return
		}

		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			t.logger.Warn("dropping malformed coordinator frame", "error", err)
			continue
		}

		switch envelope.Type {
		case "pong":
			var resp pingResponse
			if err := json.Unmarshal(data, &resp); err != nil {
				t.logger.Warn("dropping malformed pong", "error", err)
				continue
			}
			t.mu.Lock()
			pong := t.pong
			t.mu.Unlock()
			select {
			case pong <- resp:
			default:
				// No ping in flight; a late pong is worthless.
			}
		case "command":
			var cmd groupCommand
			if err := json.Unmarshal(data, &cmd); err != nil {
				t.logger.Warn("dropping malformed directive", "error", err)
				continue
			}
			if t.onDirective != nil {
				t.onDirective(cmd)
			}
		default:
			t.logger.Warn("unknown coordinator frame type", "type", envelope.Type)
		}
	}
}

// Send writes one frame to the coordinator.
func (t *Transport) Send(v any) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("transport not connected")
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return conn.WriteJSON(v)
}

// Close shuts the connection down, which also stops the read pump. Safe
// when never connected.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// Ping performs one clock round trip. Implements PingFunc. The response
// arrives through the read pump so a directive landing mid-ping is routed
// instead of being mistaken for the pong.
func (t *Transport) Ping(ctx context.Context) (Measurement, error) {
	t.mu.Lock()
	conn := t.conn
	pong := t.pong
	t.mu.Unlock()
	if conn == nil {
		return Measurement{}, fmt.Errorf("transport not connected")
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(pingTimeout)
	}

	// Drop a pong left over from a ping that timed out.
	select {
	case <-pong:
	default:
	}

	requestSent := time.Now()
	t.writeMu.Lock()
	_ = conn.SetWriteDeadline(deadline)
	err := conn.WriteJSON(pingRequest{Type: "ping", RequestSent: requestSent})
	t.writeMu.Unlock()
	if err != nil {
		return Measurement{}, fmt.Errorf("ping write failed: %w", err)
	}

	timeout := time.NewTimer(time.Until(deadline))
	defer timeout.Stop()
	select {
	case resp := <-pong:
		return Measurement{
			RequestSent:      requestSent,
			RequestReceived:  resp.RequestReceived,
			ResponseSent:     resp.ResponseSent,
			ResponseReceived: time.Now(),
		}, nil
	case <-ctx.Done():
		return Measurement{}, ctx.Err()
	case <-timeout.C:
		return Measurement{}, fmt.Errorf("ping timed out")
	}
}
