package eventtime

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	"vesta/vesta"
)

var ErrNegativeOutOfOrderness = fmt.Errorf("max out of orderness can't be negative")

// BoundedOutOfOrderness assumes events arrive at most outOfOrderness late
type BoundedOutOfOrderness struct {
	_ noCopy

	maxTimestamp         int64
	outOfOrdernessMillis int64
}

func NewBoundedOutOfOrderness(outOfOrderness time.Duration) (*BoundedOutOfOrderness, error) {
	if outOfOrderness < 0 {
		return nil, errors.WithMessagef(ErrNegativeOutOfOrderness, "got %s", outOfOrderness)
	}
	millis := outOfOrderness.Milliseconds()
	// start so the first emitted watermark is MinInt64
	return &BoundedOutOfOrderness{
		maxTimestamp:         math.MinInt64 + millis + 1,
		outOfOrdernessMillis: millis,
	}, nil
}

func (b *BoundedOutOfOrderness) OnEvent(_ *vesta.Event, eventTimestamp int64, _ WatermarkOutput) {
	if eventTimestamp > b.maxTimestamp {
		b.maxTimestamp = eventTimestamp
	}
}

func (b *BoundedOutOfOrderness) OnPeriodicEmit(output WatermarkOutput) {
	output.EmitWatermark(vesta.Watermark(b.maxTimestamp - b.outOfOrdernessMillis - 1))
}

// NewMonotonous is for sources whose timestamps never decrease
func NewMonotonous() *BoundedOutOfOrderness {
	b, _ := NewBoundedOutOfOrderness(0)
	return b
}

// NoWatermarks never emits, used in batch mode and for sources without event time
type NoWatermarks struct{}

func (NoWatermarks) OnEvent(*vesta.Event, int64, WatermarkOutput) {}

func (NoWatermarks) OnPeriodicEmit(WatermarkOutput) {}

var (
	_ WatermarkGenerator = &BoundedOutOfOrderness{}
	_ WatermarkGenerator = NoWatermarks{}
)
