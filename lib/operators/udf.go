package operators

import (
	"vesta/vesta"
)

type StreamMap struct {
	AbstractUdfStreamOperator
	mapper vesta.MapFunction
}

func NewStreamMap(mapper vesta.MapFunction) *StreamMap {
	return &StreamMap{AbstractUdfStreamOperator: AbstractUdfStreamOperator{function: mapper}, mapper: mapper}
}

// ProcessElement drops the event when the mapper returns nil
func (m *StreamMap) ProcessElement(event *vesta.Event) error {
	out, err := m.mapper.Map(event)
	if err != nil {
		return err
	}
	if out != nil {
		m.output.Collect(out)
	}
	return nil
}

func (m *StreamMap) Replicate() StreamOperator {
	replica := NewStreamMap(DuplicateComponent(m.mapper))
	replica.chaining = m.chaining
	return replica
}

type StreamFilter struct {
	AbstractUdfStreamOperator
	filter vesta.FilterFunction
}

func NewStreamFilter(filter vesta.FilterFunction) *StreamFilter {
	return &StreamFilter{AbstractUdfStreamOperator: AbstractUdfStreamOperator{function: filter}, filter: filter}
}

func (f *StreamFilter) ProcessElement(event *vesta.Event) error {
	keep, err := f.filter.Filter(event)
	if err != nil {
		return err
	}
	if keep {
		f.output.Collect(event)
	}
	return nil
}

func (f *StreamFilter) Replicate() StreamOperator {
	replica := NewStreamFilter(DuplicateComponent(f.filter))
	replica.chaining = f.chaining
	return replica
}

type StreamFlatMap struct {
	AbstractUdfStreamOperator
	flatMapper vesta.FlatMapFunction
}

func NewStreamFlatMap(flatMapper vesta.FlatMapFunction) *StreamFlatMap {
	return &StreamFlatMap{AbstractUdfStreamOperator: AbstractUdfStreamOperator{function: flatMapper}, flatMapper: flatMapper}
}

func (f *StreamFlatMap) ProcessElement(event *vesta.Event) error {
	return f.flatMapper.FlatMap(event, f.output)
}

func (f *StreamFlatMap) Replicate() StreamOperator {
	replica := NewStreamFlatMap(DuplicateComponent(f.flatMapper))
	replica.chaining = f.chaining
	return replica
}

// StreamSink is the end of a pipeline, event time stops here
type StreamSink struct {
	AbstractUdfStreamOperator
	sink             vesta.SinkFunction
	currentWatermark vesta.Watermark
}

func NewStreamSink(sink vesta.SinkFunction) *StreamSink {
	return &StreamSink{
		AbstractUdfStreamOperator: AbstractUdfStreamOperator{function: sink},
		sink:                      sink,
		currentWatermark:          vesta.MinWatermark,
	}
}

func (s *StreamSink) ProcessElement(event *vesta.Event) error {
	return s.sink.Invoke(event)
}

func (s *StreamSink) ProcessWatermark(watermark vesta.Watermark) error {
	s.currentWatermark = watermark
	return nil
}

func (s *StreamSink) ProcessWatermarkStatus(vesta.WatermarkStatus) error {
	return nil
}

func (s *StreamSink) CurrentWatermark() vesta.Watermark {
	return s.currentWatermark
}

func (s *StreamSink) Replicate() StreamOperator {
	replica := NewStreamSink(DuplicateComponent(s.sink))
	replica.chaining = s.chaining
	return replica
}

// MapFunc adapts a plain function to vesta.MapFunction
type MapFunc func(event *vesta.Event) (*vesta.Event, error)

func (f MapFunc) Open(vesta.Context) error                     { return nil }
func (f MapFunc) Close() error                                 { return nil }
func (f MapFunc) PropertiesDef() vesta.PropertiesDef           { return vesta.PropertiesDef{} }
func (f MapFunc) Map(event *vesta.Event) (*vesta.Event, error) { return f(event) }

// FilterFunc adapts a plain function to vesta.FilterFunction
type FilterFunc func(event *vesta.Event) (bool, error)

func (f FilterFunc) Open(vesta.Context) error                { return nil }
func (f FilterFunc) Close() error                            { return nil }
func (f FilterFunc) PropertiesDef() vesta.PropertiesDef      { return vesta.PropertiesDef{} }
func (f FilterFunc) Filter(event *vesta.Event) (bool, error) { return f(event) }

var (
	_ OneInputStreamOperator = &StreamMap{}
	_ OneInputStreamOperator = &StreamFilter{}
	_ OneInputStreamOperator = &StreamFlatMap{}
	_ OneInputStreamOperator = &StreamSink{}
	_ UdfStreamOperator      = &StreamSink{}
)
