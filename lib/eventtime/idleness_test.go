package eventtime

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"vesta/vesta"
)

type recordingOutput struct {
	watermarks []vesta.Watermark
	idle       int
	active     int
}

func (r *recordingOutput) EmitWatermark(watermark vesta.Watermark) {
	r.watermarks = append(r.watermarks, watermark)
}

func (r *recordingOutput) MarkIdle() {
	r.idle++
}

func (r *recordingOutput) MarkActive() {
	r.active++
}

type countingGenerator struct {
	events  int
	periods int
}

func (c *countingGenerator) OnEvent(_ *vesta.Event, eventTimestamp int64, output WatermarkOutput) {
	c.events++
	output.EmitWatermark(vesta.Watermark(eventTimestamp))
}

func (c *countingGenerator) OnPeriodicEmit(_ WatermarkOutput) {
	c.periods++
}

func newTimer(t *testing.T, clock Clock, timeout time.Duration) *IdlenessTimer {
	timer, err := NewIdlenessTimer(clock, timeout)
	require.NoError(t, err)
	return timer
}

func TestIdlenessTimer(t *testing.T) {
	t.Run("idle without events", func(t *testing.T) {
		clock := NewManualClock(time.Second.Nanoseconds())
		timer := newTimer(t, clock, 10*time.Millisecond)

		assert.False(t, timer.CheckIfIdle(), "first check starts the timer")
		clock.Advance(10 * time.Millisecond)
		assert.False(t, timer.CheckIfIdle(), "exactly the timeout is not idle yet")
		clock.Advance(time.Millisecond)
		assert.True(t, timer.CheckIfIdle())
	})

	t.Run("stays idle on repeated checks", func(t *testing.T) {
		clock := NewManualClock(time.Second.Nanoseconds())
		timer := newTimer(t, clock, 122*time.Millisecond)
		timer.CheckIfIdle()
		clock.Advance(123 * time.Millisecond)
		require.True(t, timer.CheckIfIdle())
		clock.Advance(100 * time.Millisecond)
		assert.True(t, timer.CheckIfIdle())
	})

	t.Run("activity makes the next check active", func(t *testing.T) {
		clock := NewManualClock(time.Second.Nanoseconds())
		timer := newTimer(t, clock, 10*time.Millisecond)
		timer.CheckIfIdle()
		clock.Advance(11 * time.Millisecond)
		require.True(t, timer.CheckIfIdle())

		timer.Activity()
		assert.False(t, timer.CheckIfIdle())
		assert.Equal(t, int64(0), timer.startOfInactivityNanos)
	})

	t.Run("idle active idle", func(t *testing.T) {
		clock := NewManualClock(time.Second.Nanoseconds())
		timer := newTimer(t, clock, 10*time.Millisecond)
		timer.CheckIfIdle()
		clock.Advance(11 * time.Millisecond)
		require.True(t, timer.CheckIfIdle())

		timer.Activity()
		assert.False(t, timer.CheckIfIdle(), "resets the timer")
		clock.Advance(5 * time.Millisecond)
		assert.False(t, timer.CheckIfIdle(), "starts the timer")
		clock.Advance(10 * time.Millisecond)
		assert.False(t, timer.CheckIfIdle())
		clock.Advance(time.Millisecond)
		assert.True(t, timer.CheckIfIdle())
	})
}

// activity at t=0, checks every 1ms from t=1ms: the timer starts at the
// check that first sees no activity (t=2ms), so idle shows up at t=13ms.
func TestIdlenessTimerSingleActivity(t *testing.T) {
	clock := NewManualClock(time.Second.Nanoseconds())
	timer := newTimer(t, clock, 10*time.Millisecond)
	timer.Activity()

	var firstIdle time.Duration
	for elapsed := time.Millisecond; elapsed <= 15*time.Millisecond; elapsed += time.Millisecond {
		clock.Advance(time.Millisecond)
		idle := timer.CheckIfIdle()
		if elapsed < 13*time.Millisecond {
			assert.False(t, idle, "at %s", elapsed)
		} else {
			assert.True(t, idle, "at %s", elapsed)
		}
		if idle && firstIdle == 0 {
			firstIdle = elapsed
		}
	}
	assert.Equal(t, 13*time.Millisecond, firstIdle)
}

// activity at t=0 and t=5ms: the threshold counts from the first idle
// check after the last activity (t=6ms), not from t=2ms.
func TestIdlenessTimerMeasuredFromFirstIdleCheck(t *testing.T) {
	clock := NewManualClock(time.Second.Nanoseconds())
	timer := newTimer(t, clock, 10*time.Millisecond)
	timer.Activity()

	var firstIdle time.Duration
	for elapsed := time.Millisecond; elapsed <= 20*time.Millisecond; elapsed += time.Millisecond {
		clock.Advance(time.Millisecond)
		if elapsed == 5*time.Millisecond {
			timer.Activity()
		}
		idle := timer.CheckIfIdle()
		if elapsed == 10*time.Millisecond || elapsed == 13*time.Millisecond {
			assert.False(t, idle, "at %s", elapsed)
		}
		if idle && firstIdle == 0 {
			firstIdle = elapsed
		}
	}
	assert.Equal(t, 17*time.Millisecond, firstIdle)
}

// the model keeps the start of the current quiet run independently
func TestIdlenessTimerRandomSchedules(t *testing.T) {
	const timeout = 7 * time.Millisecond
	random := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		clock := NewManualClock(time.Second.Nanoseconds())
		timer := newTimer(t, clock, timeout)

		var (
			sawActivity bool
			quietSince  int64 = -1
		)
		for step := 0; step < 60; step++ {
			clock.Advance(time.Duration(random.Intn(3)+1) * time.Millisecond)
			if random.Intn(5) == 0 {
				timer.Activity()
				sawActivity = true
			}
			now := clock.RelativeTimeNanos()

			expected := false
			switch {
			case sawActivity:
				sawActivity = false
				quietSince = -1
			case quietSince < 0:
				quietSince = now
			default:
				expected = now-quietSince > int64(timeout)
			}
			require.Equal(t, expected, timer.CheckIfIdle(), "round %d step %d", round, step)
		}
	}
}

func TestIdlenessTimerConstruction(t *testing.T) {
	clock := NewManualClock(1)

	_, err := NewIdlenessTimer(clock, 0)
	assert.ErrorIs(t, err, ErrNonPositiveIdleTimeout)
	_, err = NewIdlenessTimer(clock, -time.Millisecond)
	assert.ErrorIs(t, err, ErrNonPositiveIdleTimeout)
	_, err = NewIdlenessTimer(nil, time.Millisecond)
	assert.ErrorIs(t, err, ErrNilClock)

	t.Run("overflowing timeout is clamped", func(t *testing.T) {
		timeout := SaturatingDuration(math.MaxInt64/2, time.Hour)
		require.Equal(t, time.Duration(math.MaxInt64), timeout)

		timer, err := NewIdlenessTimer(clock, timeout)
		require.NoError(t, err)
		assert.Equal(t, int64(math.MaxInt64), timer.maxIdleTimeNanos)
		timer.CheckIfIdle()
		clock.Advance(24 * 365 * time.Hour)
		assert.False(t, timer.CheckIfIdle())
	})
}

func TestSaturatingDuration(t *testing.T) {
	assert.Equal(t, 3*time.Second, SaturatingDuration(3000, time.Millisecond))
	assert.Equal(t, time.Duration(0), SaturatingDuration(0, time.Hour))
	assert.Equal(t, time.Duration(math.MaxInt64), SaturatingDuration(math.MaxInt64, time.Millisecond))
	assert.Equal(t, time.Duration(math.MinInt64), SaturatingDuration(math.MinInt64, time.Millisecond))
	assert.Equal(t, -2*time.Second, SaturatingDuration(-2, time.Second))
}

func TestWatermarksWithIdleness(t *testing.T) {
	t.Run("construction", func(t *testing.T) {
		_, err := NewWatermarksWithIdleness(nil, time.Second)
		assert.ErrorIs(t, err, ErrNilGenerator)
		_, err = NewWatermarksWithIdleness(&countingGenerator{}, 0)
		assert.ErrorIs(t, err, ErrNonPositiveIdleTimeout)
	})

	t.Run("delegates while active and marks idle instead of emitting", func(t *testing.T) {
		clock := NewManualClock(time.Second.Nanoseconds())
		base := &countingGenerator{}
		generator, err := NewWatermarksWithIdlenessClock(base, 10*time.Millisecond, clock)
		require.NoError(t, err)
		output := &recordingOutput{}

		generator.OnEvent(&vesta.Event{}, 42, output)
		assert.Equal(t, 1, base.events)
		assert.Equal(t, []vesta.Watermark{42}, output.watermarks)

		generator.OnPeriodicEmit(output)
		assert.Equal(t, 1, base.periods)

		generator.OnPeriodicEmit(output)
		assert.Equal(t, 2, base.periods, "timer started, still active")

		clock.Advance(11 * time.Millisecond)
		generator.OnPeriodicEmit(output)
		assert.Equal(t, 2, base.periods, "idle partition must not ask the base generator")
		assert.Equal(t, 1, output.idle)

		generator.OnEvent(&vesta.Event{}, 43, output)
		generator.OnPeriodicEmit(output)
		assert.Equal(t, 3, base.periods)
		assert.Equal(t, 1, output.idle)
	})
}
