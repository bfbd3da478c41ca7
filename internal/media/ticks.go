package media

import "time"

// The server represents all positions and durations in 100-nanosecond ticks.
// Native players speak milliseconds; conversion happens at the plugin
// boundary and nowhere else.
const (
	TicksPerMillisecond int64 = 10_000
	TicksPerSecond      int64 = 10_000_000
)

// TicksToMs converts server ticks to player milliseconds.
func TicksToMs(ticks int64) int64 {
	return ticks / TicksPerMillisecond
}

// MsToTicks converts player milliseconds to server ticks.
func MsToTicks(ms int64) int64 {
	return ms * TicksPerMillisecond
}

// TicksToDuration converts server ticks to a time.Duration.
func TicksToDuration(ticks int64) time.Duration {
	return time.Duration(ticks * 100)
}

// DurationToTicks converts a time.Duration to server ticks.
func DurationToTicks(d time.Duration) int64 {
	return int64(d / 100)
}

// TickRange is a buffered or seekable span expressed in ticks.
type TickRange struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}
