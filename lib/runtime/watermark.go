package runtime

import (
	"vesta/vesta"
)

type partialWatermark struct {
	watermark vesta.Watermark
	idle      bool
}

// CombineWatermark merges the event time of every input channel of a subtask.
// The combined watermark is the minimum over active channels, it never goes back.
// Once every channel is idle the maximum over all channels is released.
type CombineWatermark struct {
	partials []partialWatermark
	combined vesta.Watermark
}

func NewCombineWatermark(inputs int) *CombineWatermark {
	c := &CombineWatermark{partials: make([]partialWatermark, inputs), combined: vesta.MinWatermark}
	for i := range c.partials {
		c.partials[i].watermark = vesta.MinWatermark
	}
	return c
}

// UpdateWatermark returns true when the combined watermark advanced
func (c *CombineWatermark) UpdateWatermark(watermark vesta.Watermark, input int) bool {
	partial := &c.partials[input]
	if watermark > partial.watermark {
		partial.watermark = watermark
	}
	//a watermark from an idle channel means it is active again
	partial.idle = false
	return c.update()
}

// UpdateIdle returns true when the combined watermark advanced
func (c *CombineWatermark) UpdateIdle(idle bool, input int) bool {
	c.partials[input].idle = idle
	return c.update()
}

// Finish closes event time of a channel whose upstream ended
func (c *CombineWatermark) Finish(input int) bool {
	return c.UpdateWatermark(vesta.MaxWatermark, input)
}

func (c *CombineWatermark) IsIdle() bool {
	if len(c.partials) == 0 {
		return false
	}
	for _, partial := range c.partials {
		if !partial.idle {
			return false
		}
	}
	return true
}

func (c *CombineWatermark) GetCombinedWatermark() vesta.Watermark {
	return c.combined
}

func (c *CombineWatermark) update() bool {
	var (
		lowest  = vesta.MaxWatermark
		highest = vesta.MinWatermark
		active  bool
	)
	for _, partial := range c.partials {
		if partial.watermark > highest {
			highest = partial.watermark
		}
		if !partial.idle {
			active = true
			if partial.watermark < lowest {
				lowest = partial.watermark
			}
		}
	}
	candidate := lowest
	if !active {
		candidate = highest
	}
	if candidate > c.combined {
		c.combined = candidate
		return true
	}
	return false
}
