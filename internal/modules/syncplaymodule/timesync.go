// Package syncplaymodule keeps this client's playback aligned with a group
// session: an NTP-style clock offset estimator against the coordinating
// peer, a command sink that relays playback commands to the group
// controller, and the websocket transport both ride on.
package syncplaymodule

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/events"
)

// Measurement is one ping round trip, as four timestamps: two local (request
// sent, response received) and two remote (request received, response sent).
type Measurement struct {
	RequestSent      time.Time
	RequestReceived  time.Time
	ResponseSent     time.Time
	ResponseReceived time.Time
}

// Offset estimates the remote clock minus the local clock.
func (m Measurement) Offset() time.Duration {
	return (m.RequestReceived.Sub(m.RequestSent) + m.ResponseSent.Sub(m.ResponseReceived)) / 2
}

// Delay is the round-trip time with the remote processing time removed.
// Lower delay means a tighter bound on the offset estimate.
func (m Measurement) Delay() time.Duration {
	return m.ResponseReceived.Sub(m.RequestSent) - m.ResponseSent.Sub(m.RequestReceived)
}

// PingFunc performs one ping round trip against the coordinator.
type PingFunc func(ctx context.Context) (Measurement, error)

const (
	trackedMeasurements = 8
	greedyPingCount     = 3
	greedyInterval      = 1 * time.Second
	lowProfileInterval  = 60 * time.Second
	pingTimeout         = 10 * time.Second
)

// TimeSync continuously estimates the clock offset to the coordinator. The
// authoritative estimate is the minimum-delay measurement of a sliding
// window: delay correlates with estimation error, so the tightest round trip
// wins. Polling is strictly sequential; exactly one timer is outstanding.
type TimeSync struct {
	logger hclog.Logger
	ping   PingFunc
	bus    *events.Bus

	mu           sync.Mutex
	measurements []Measurement
	current      *Measurement
	successes    int
	timer        *time.Timer
	stopped      bool
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewTimeSync creates an estimator. updates are published on bus as
// SyncUpdate events after every round trip, including failed ones.
func NewTimeSync(logger hclog.Logger, ping PingFunc, bus *events.Bus) *TimeSync {
	return &TimeSync{
		logger: logger.Named("time-sync"),
		ping:   ping,
		bus:    bus,
	}
}

// Start begins polling. The first ping fires immediately.
func (t *TimeSync) Start() {
	t.mu.Lock()
	if t.ctx != nil {
		t.mu.Unlock()
		return
	}
	t.ctx, t.cancel = context.WithCancel(context.Background())
	t.stopped = false
	t.mu.Unlock()
	t.scheduleNext(0)
}

// Stop halts polling. Safe to call repeatedly.
func (t *TimeSync) Stop() {
	t.mu.Lock()
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	cancel := t.cancel
	t.ctx, t.cancel = nil, nil
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// ForceUpdate drops back to greedy polling, e.g. after a reconnect or a
// suspected clock drift.
func (t *TimeSync) ForceUpdate() {
	t.mu.Lock()
	t.successes = 0
	hadTimer := t.timer != nil && t.timer.Stop()
	t.mu.Unlock()
	if hadTimer {
		// The pending poll was cancelled; reissue immediately. If the poll
		// was already in flight it reschedules itself greedily.
		t.scheduleNext(0)
	}
}

// GetTimeOffset returns the current offset estimate (remote minus local).
func (t *TimeSync) GetTimeOffset() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return 0
	}
	return t.current.Offset()
}

// GetPing returns the delay of the authoritative measurement.
func (t *TimeSync) GetPing() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return 0
	}
	return t.current.Delay()
}

// RemoteDateToLocal converts a coordinator timestamp to local time.
func (t *TimeSync) RemoteDateToLocal(remote time.Time) time.Time {
	return remote.Add(-t.GetTimeOffset())
}

// LocalDateToRemote converts a local timestamp to coordinator time.
func (t *TimeSync) LocalDateToRemote(local time.Time) time.Time {
	return local.Add(t.GetTimeOffset())
}

func (t *TimeSync) scheduleNext(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.timer = time.AfterFunc(d, t.poll)
}

// poll runs one ping round trip, then reschedules. Failures never stop the
// poller; they are reported on the bus and the next ping is scheduled
// regardless.
func (t *TimeSync) poll() {
	t.mu.Lock()
	ctx := t.ctx
	t.mu.Unlock()
	if ctx == nil {
		return
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	m, err := t.ping(pingCtx)
	cancel()

	if err != nil {
		t.logger.Warn("time sync ping failed", "error", err)
		t.bus.Publish(events.SyncUpdateData{Err: err.Error()})
	} else {
		t.update(m)
		t.bus.Publish(events.SyncUpdateData{
			TimeOffset: t.GetTimeOffset(),
			Ping:       t.GetPing(),
		})
	}

	t.mu.Lock()
	interval := greedyInterval
	if t.successes >= greedyPingCount {
		interval = lowProfileInterval
	}
	t.mu.Unlock()
	t.scheduleNext(interval)
}

// update appends a measurement to the window and re-derives the
// authoritative minimum-delay estimate.
func (t *TimeSync) update(m Measurement) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.measurements = append(t.measurements, m)
	if len(t.measurements) > trackedMeasurements {
		t.measurements = t.measurements[1:]
	}
	t.successes++

	best := t.measurements[0]
	for _, cand := range t.measurements[1:] {
		if cand.Delay() < best.Delay() {
			best = cand
		}
	}
	t.current = &best
}
