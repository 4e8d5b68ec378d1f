package eventtime

import (
	"vesta/vesta"
)

// WatermarkOutput is how a generator signals event time progress of its partition
type WatermarkOutput interface {
	EmitWatermark(watermark vesta.Watermark)
	//MarkIdle tells the alignment that this partition must not hold back the watermark
	MarkIdle()
	MarkActive()
}

// WatermarkGenerator is driven by one task goroutine, implementations need no locking
type WatermarkGenerator interface {
	//OnEvent is called for every event, it may emit a watermark
	OnEvent(event *vesta.Event, eventTimestamp int64, output WatermarkOutput)
	//OnPeriodicEmit is called by the periodic timer of the source
	OnPeriodicEmit(output WatermarkOutput)
}

// noCopy makes go vet complain about copied generators and timers
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
