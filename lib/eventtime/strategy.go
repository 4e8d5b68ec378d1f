package eventtime

import (
	"time"

	"vesta/vesta"
)

// TimestampAssigner extracts the event timestamp in unix milliseconds
type TimestampAssigner func(event *vesta.Event, recordTimestamp int64) int64

// GeneratorSupplier creates one generator per source subtask
type GeneratorSupplier func() (WatermarkGenerator, error)

// EventTimeAssigner reads Event.Time, falling back to the record timestamp for zero times
func EventTimeAssigner(event *vesta.Event, recordTimestamp int64) int64 {
	if event == nil || event.Time.IsZero() {
		return recordTimestamp
	}
	return event.Time.UnixMilli()
}

// WatermarkStrategy is an immutable recipe, every With* returns a copy
type WatermarkStrategy struct {
	supplier    GeneratorSupplier
	assigner    TimestampAssigner
	idleness    bool
	idleTimeout time.Duration
	clock       Clock
	name        string
}

func ForGenerator(name string, supplier GeneratorSupplier) WatermarkStrategy {
	return WatermarkStrategy{supplier: supplier, name: name}
}

func ForBoundedOutOfOrderness(outOfOrderness time.Duration) WatermarkStrategy {
	return ForGenerator("bounded("+outOfOrderness.String()+")", func() (WatermarkGenerator, error) {
		return NewBoundedOutOfOrderness(outOfOrderness)
	})
}

func ForMonotonousTimestamps() WatermarkStrategy {
	return ForGenerator("monotonous", func() (WatermarkGenerator, error) {
		return NewMonotonous(), nil
	})
}

func ForNoWatermarks() WatermarkStrategy {
	return WatermarkStrategy{name: "none"}
}

func (s WatermarkStrategy) WithTimestampAssigner(assigner TimestampAssigner) WatermarkStrategy {
	s.assigner = assigner
	return s
}

// WithIdleness is validated when the generator is created
func (s WatermarkStrategy) WithIdleness(idleTimeout time.Duration) WatermarkStrategy {
	s.idleness = true
	s.idleTimeout = idleTimeout
	return s
}

func (s WatermarkStrategy) WithClock(clock Clock) WatermarkStrategy {
	s.clock = clock
	return s
}

// IdleTimeout reports false when idleness detection is off
func (s WatermarkStrategy) IdleTimeout() (time.Duration, bool) {
	return s.idleTimeout, s.idleness
}

func (s WatermarkStrategy) String() string {
	name := s.name
	if name == "" {
		name = "none"
	}
	if s.idleness {
		name += ".idle(" + s.idleTimeout.String() + ")"
	}
	return name
}

func (s WatermarkStrategy) CreateWatermarkGenerator() (WatermarkGenerator, error) {
	var (
		generator WatermarkGenerator = NoWatermarks{}
		err       error
	)
	if s.supplier != nil {
		if generator, err = s.supplier(); err != nil {
			return nil, err
		}
	}
	if !s.idleness {
		return generator, nil
	}
	clock := s.clock
	if clock == nil {
		clock = SystemClock
	}
	return NewWatermarksWithIdlenessClock(generator, s.idleTimeout, clock)
}

func (s WatermarkStrategy) CreateTimestampAssigner() TimestampAssigner {
	if s.assigner == nil {
		return EventTimeAssigner
	}
	return s.assigner
}
