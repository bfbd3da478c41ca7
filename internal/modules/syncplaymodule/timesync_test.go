package syncplaymodule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// measurementWith builds a round trip with the given one-way offset and
// total delay, symmetric in both directions.
func measurementWith(offset, delay time.Duration) Measurement {
	base := time.Unix(1_700_000_000, 0)
	return Measurement{
		RequestSent:      base,
		RequestReceived:  base.Add(offset + delay/2),
		ResponseSent:     base.Add(offset + delay/2),
		ResponseReceived: base.Add(delay),
	}
}

func TestMeasurementDerivations(t *testing.T) {
	m := measurementWith(5*time.Second, 100*time.Millisecond)
	assert.Equal(t, 5*time.Second, m.Offset())
	assert.Equal(t, 100*time.Millisecond, m.Delay())
}

func TestMinimumDelayMeasurementWins(t *testing.T) {
	ts := NewTimeSync(hclog.NewNullLogger(), nil, events.NewBus("test"))

	// Strictly decreasing delay: each new measurement becomes authoritative.
	for i, delay := range []time.Duration{500, 400, 300} {
		offset := time.Duration(i+1) * time.Second
		ts.update(measurementWith(offset, delay*time.Millisecond))
		assert.Equal(t, offset, ts.GetTimeOffset())
		assert.Equal(t, delay*time.Millisecond, ts.GetPing())
	}

	// A higher-delay measurement does not displace the best one.
	ts.update(measurementWith(9*time.Second, 800*time.Millisecond))
	assert.Equal(t, 3*time.Second, ts.GetTimeOffset())
}

func TestWindowEvictsOldest(t *testing.T) {
	ts := NewTimeSync(hclog.NewNullLogger(), nil, events.NewBus("test"))

	// The first measurement has the lowest delay of the first eight.
	ts.update(measurementWith(time.Second, 10*time.Millisecond))
	for i := 0; i < 7; i++ {
		ts.update(measurementWith(2*time.Second, 100*time.Millisecond))
	}
	assert.Len(t, ts.measurements, 8)
	assert.Equal(t, time.Second, ts.GetTimeOffset())

	// The ninth evicts it; the best remaining measurement takes over.
	ts.update(measurementWith(3*time.Second, 50*time.Millisecond))
	assert.Len(t, ts.measurements, 8)
	assert.Equal(t, 3*time.Second, ts.GetTimeOffset())
}

func TestDateConversionsAreInverse(t *testing.T) {
	ts := NewTimeSync(hclog.NewNullLogger(), nil, events.NewBus("test"))
	ts.update(measurementWith(42*time.Second, 20*time.Millisecond))

	local := time.Unix(1_700_000_100, 0)
	assert.Equal(t, local, ts.RemoteDateToLocal(ts.LocalDateToRemote(local)))
	assert.Equal(t, local.Add(42*time.Second), ts.LocalDateToRemote(local))
}

func TestPollerSurvivesFailuresAndReports(t *testing.T) {
	bus := events.NewBus("test")
	updates := make(chan events.SyncUpdateData, 16)
	bus.Subscribe(func(ev events.Event) {
		updates <- ev.Payload.(events.SyncUpdateData)
	}, events.SyncUpdate)

	var calls atomic.Int32
	ping := func(context.Context) (Measurement, error) {
		if calls.Add(1) == 1 {
			return Measurement{}, errors.New("coordinator unreachable")
		}
		return measurementWith(time.Second, 30*time.Millisecond), nil
	}

	ts := NewTimeSync(hclog.NewNullLogger(), ping, bus)
	ts.Start()
	defer ts.Stop()

	first := <-updates
	assert.NotEmpty(t, first.Err, "failure reported via update event")

	select {
	case second := <-updates:
		assert.Empty(t, second.Err)
		assert.Equal(t, time.Second, second.TimeOffset)
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not reschedule after a failure")
	}
}

func TestStartIsIdempotentAndStopHalts(t *testing.T) {
	var calls atomic.Int32
	ping := func(context.Context) (Measurement, error) {
		calls.Add(1)
		return measurementWith(time.Second, 30*time.Millisecond), nil
	}

	ts := NewTimeSync(hclog.NewNullLogger(), ping, events.NewBus("test"))
	ts.Start()
	ts.Start()

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	ts.Stop()
	ts.Stop()

	settled := calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, calls.Load(), settled+1, "at most the in-flight ping completes after stop")
}

func TestForceUpdateResetsGreedyMode(t *testing.T) {
	ts := NewTimeSync(hclog.NewNullLogger(), nil, events.NewBus("test"))
	for i := 0; i < 5; i++ {
		ts.update(measurementWith(time.Second, 30*time.Millisecond))
	}
	assert.GreaterOrEqual(t, ts.successes, greedyPingCount)

	ts.ForceUpdate()
	assert.Equal(t, 0, ts.successes)
}
