package eventtime

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	"vesta/vesta"
)

var (
	ErrNonPositiveIdleTimeout = fmt.Errorf("idle timeout must be greater than zero")
	ErrNilGenerator           = fmt.Errorf("watermark generator can't be nil")
	ErrNilClock               = fmt.Errorf("clock can't be nil")
)

// SaturatingDuration converts amount of unit to a Duration, clamping at the int64 bounds
func SaturatingDuration(amount int64, unit time.Duration) time.Duration {
	if amount == 0 || unit == 0 {
		return 0
	}
	result := amount * int64(unit)
	if result/int64(unit) != amount || (int64(unit) == -1 && amount == math.MinInt64) {
		if (amount > 0) == (unit > 0) {
			return time.Duration(math.MaxInt64)
		}
		return time.Duration(math.MinInt64)
	}
	return time.Duration(result)
}

// IdlenessTimer detects a partition without activity, it is owned by a single generator
type IdlenessTimer struct {
	_ noCopy

	clock Clock
	//counter overflow is harmless, only changes matter
	counter     int64
	lastCounter int64
	//0 means no timer running
	startOfInactivityNanos int64
	maxIdleTimeNanos       int64
}

func NewIdlenessTimer(clock Clock, idleTimeout time.Duration) (*IdlenessTimer, error) {
	if clock == nil {
		return nil, ErrNilClock
	}
	if idleTimeout <= 0 {
		return nil, errors.WithMessagef(ErrNonPositiveIdleTimeout, "got %s", idleTimeout)
	}
	return &IdlenessTimer{clock: clock, maxIdleTimeNanos: idleTimeout.Nanoseconds()}, nil
}

func (t *IdlenessTimer) Activity() {
	t.counter++
}

// CheckIfIdle must only be called from the periodic emit path.
// The timeout is measured from the first check that saw no activity.
func (t *IdlenessTimer) CheckIfIdle() bool {
	if t.counter != t.lastCounter {
		t.lastCounter = t.counter
		t.startOfInactivityNanos = 0
		return false
	} else if t.startOfInactivityNanos == 0 {
		t.startOfInactivityNanos = t.clock.RelativeTimeNanos()
		return false
	} else {
		return t.clock.RelativeTimeNanos()-t.startOfInactivityNanos > t.maxIdleTimeNanos
	}
}

// WatermarksWithIdleness marks the output idle when the wrapped generator saw no events for the timeout
type WatermarksWithIdleness struct {
	_ noCopy

	watermarks    WatermarkGenerator
	idlenessTimer *IdlenessTimer
}

func NewWatermarksWithIdleness(watermarks WatermarkGenerator, idleTimeout time.Duration) (*WatermarksWithIdleness, error) {
	return NewWatermarksWithIdlenessClock(watermarks, idleTimeout, SystemClock)
}

func NewWatermarksWithIdlenessClock(watermarks WatermarkGenerator, idleTimeout time.Duration, clock Clock) (*WatermarksWithIdleness, error) {
	if watermarks == nil {
		return nil, ErrNilGenerator
	}
	timer, err := NewIdlenessTimer(clock, idleTimeout)
	if err != nil {
		return nil, err
	}
	return &WatermarksWithIdleness{watermarks: watermarks, idlenessTimer: timer}, nil
}

func (w *WatermarksWithIdleness) OnEvent(event *vesta.Event, eventTimestamp int64, output WatermarkOutput) {
	w.watermarks.OnEvent(event, eventTimestamp, output)
	w.idlenessTimer.Activity()
}

// OnPeriodicEmit does not ask the wrapped generator to emit while idle
func (w *WatermarksWithIdleness) OnPeriodicEmit(output WatermarkOutput) {
	if w.idlenessTimer.CheckIfIdle() {
		output.MarkIdle()
	} else {
		w.watermarks.OnPeriodicEmit(output)
	}
}

var _ WatermarkGenerator = &WatermarksWithIdleness{}
