package eventtime

import (
	"time"

	"go.uber.org/atomic"
)

// Clock is a monotonic time source measured in nanoseconds
type Clock interface {
	RelativeTimeNanos() int64
}

var epoch = time.Now()

type systemClock struct{}

// RelativeTimeNanos reads the monotonic clock, it is not related to wall time.
// Readings start at 1, an idleness timer keeps 0 for "not started".
func (systemClock) RelativeTimeNanos() int64 {
	return int64(time.Since(epoch)) + 1
}

var SystemClock Clock = systemClock{}

// ManualClock only moves when told to, tests drive time with it
type ManualClock struct {
	nanos atomic.Int64
}

func NewManualClock(startNanos int64) *ManualClock {
	m := &ManualClock{}
	m.nanos.Store(startNanos)
	return m
}

func (m *ManualClock) RelativeTimeNanos() int64 {
	return m.nanos.Load()
}

func (m *ManualClock) Advance(d time.Duration) {
	m.nanos.Add(int64(d))
}
