package eventtime

import (
	"vesta/vesta"
)

// OutputAdapter turns WatermarkOutput signals into stream elements.
// Only advancing watermarks and status changes reach the output.
type OutputAdapter struct {
	_ noCopy

	output            vesta.Output
	maxWatermarkSoFar vesta.Watermark
	idle              bool
}

func NewOutputAdapter(output vesta.Output) *OutputAdapter {
	return &OutputAdapter{output: output, maxWatermarkSoFar: vesta.MinWatermark}
}

func (o *OutputAdapter) EmitWatermark(watermark vesta.Watermark) {
	if watermark <= o.maxWatermarkSoFar {
		return
	}
	o.maxWatermarkSoFar = watermark
	o.MarkActive()
	o.output.EmitWatermark(watermark)
}

func (o *OutputAdapter) MarkIdle() {
	if !o.idle {
		o.idle = true
		o.output.EmitWatermarkStatus(vesta.IdleStatus)
	}
}

func (o *OutputAdapter) MarkActive() {
	if o.idle {
		o.idle = false
		o.output.EmitWatermarkStatus(vesta.ActiveStatus)
	}
}

func (o *OutputAdapter) CurrentWatermark() vesta.Watermark {
	return o.maxWatermarkSoFar
}

func (o *OutputAdapter) IsIdle() bool {
	return o.idle
}

var _ WatermarkOutput = &OutputAdapter{}
