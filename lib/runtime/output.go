package runtime

import (
	"vesta/lib/graph"
	"vesta/vesta"
)

// record is an element arriving on one input channel of a subtask
type record struct {
	channel int
	element vesta.Element
}

type target struct {
	task    *task
	channel int
}

// outputEdge is the part of a stream edge owned by one upstream subtask
type outputEdge struct {
	partitioner graph.Partitioner
	targets     []target
	next        int
}

// output routes what an operator produces, events follow the partitioner and
// event time is broadcast to every downstream subtask
type output struct {
	edges []*outputEdge
	dying <-chan struct{}
}

func (o *output) send(t target, element vesta.Element) {
	select {
	case t.task.inbox <- record{channel: t.channel, element: element}:
	case <-o.dying:
	}
}

func (o *output) Collect(event *vesta.Event) {
	for _, edge := range o.edges {
		if edge.partitioner == graph.Forward || len(edge.targets) == 1 {
			o.send(edge.targets[0], event)
			continue
		}
		o.send(edge.targets[edge.next], event)
		edge.next = (edge.next + 1) % len(edge.targets)
	}
}

func (o *output) broadcast(element vesta.Element) {
	for _, edge := range o.edges {
		for _, t := range edge.targets {
			o.send(t, element)
		}
	}
}

func (o *output) EmitWatermark(watermark vesta.Watermark) {
	o.broadcast(watermark)
}

func (o *output) EmitWatermarkStatus(status vesta.WatermarkStatus) {
	o.broadcast(status)
}

func (o *output) endOfInput() {
	o.broadcast(vesta.EndOfInput{})
}

var _ vesta.Output = &output{}
