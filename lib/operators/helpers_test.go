package operators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"vesta/lib/context"
	"vesta/vesta"
)

type recordingOutput struct {
	elements []vesta.Element
}

func (r *recordingOutput) Collect(event *vesta.Event) {
	r.elements = append(r.elements, event)
}

func (r *recordingOutput) EmitWatermark(watermark vesta.Watermark) {
	r.elements = append(r.elements, watermark)
}

func (r *recordingOutput) EmitWatermarkStatus(status vesta.WatermarkStatus) {
	r.elements = append(r.elements, status)
}

func (r *recordingOutput) events() []*vesta.Event {
	var events []*vesta.Event
	for _, element := range r.elements {
		if event, ok := element.(*vesta.Event); ok {
			events = append(events, event)
		}
	}
	return events
}

func (r *recordingOutput) watermarks() []vesta.Watermark {
	var watermarks []vesta.Watermark
	for _, element := range r.elements {
		if watermark, ok := element.(vesta.Watermark); ok {
			watermarks = append(watermarks, watermark)
		}
	}
	return watermarks
}

func newTask(name string, subtaskIndex, parallelism int) TaskHandle {
	return context.NewRuntime(context.New(nil, nil).Named(name), name, subtaskIndex, parallelism)
}

type lifecycle struct {
	opened bool
	closed bool
}

func (l *lifecycle) Open(vesta.Context) error {
	l.opened = true
	return nil
}

func (l *lifecycle) Close() error {
	l.closed = true
	return nil
}

func (l *lifecycle) PropertiesDef() vesta.PropertiesDef {
	return vesta.PropertiesDef{}
}

// queueSource hands every reader the same queue, the reader ends once end is set and the queue is empty
type queueSource struct {
	lifecycle
	queue   []*vesta.Event
	end     bool
	readers []vesta.ReaderContext
}

func (s *queueSource) Boundedness() vesta.Boundedness {
	return vesta.Bounded
}

func (s *queueSource) CreateReader(ctx vesta.ReaderContext) (vesta.SourceReader, error) {
	s.readers = append(s.readers, ctx)
	return &queueReader{source: s}, nil
}

type queueReader struct {
	source *queueSource
	closed bool
}

func (r *queueReader) PollNext(output vesta.ReaderOutput) (vesta.InputStatus, error) {
	if len(r.source.queue) == 0 {
		if r.source.end {
			return vesta.EndOfInputStatus, nil
		}
		return vesta.NothingAvailable, nil
	}
	output.Collect(r.source.queue[0])
	r.source.queue = r.source.queue[1:]
	return vesta.MoreAvailable, nil
}

func (r *queueReader) Close() error {
	r.closed = true
	return nil
}

type split int

func (s split) SplitNumber() int {
	return int(s)
}

// sliceFormat has one split per slice of messages
type sliceFormat struct {
	lifecycle
	splits       [][]string
	current      []string
	splitsOpened []int
}

func (f *sliceFormat) CreateSplits(int) ([]vesta.InputSplit, error) {
	splits := make([]vesta.InputSplit, 0, len(f.splits))
	for i := range f.splits {
		splits = append(splits, split(i))
	}
	return splits, nil
}

func (f *sliceFormat) OpenSplit(s vesta.InputSplit) error {
	f.splitsOpened = append(f.splitsOpened, s.SplitNumber())
	f.current = f.splits[s.SplitNumber()]
	return nil
}

func (f *sliceFormat) ReachedEnd() bool {
	return len(f.current) == 0
}

func (f *sliceFormat) NextRecord() (*vesta.Event, error) {
	event := &vesta.Event{Message: f.current[0]}
	f.current = f.current[1:]
	return event, nil
}

func (f *sliceFormat) CloseSplit() error {
	f.current = nil
	return nil
}

type sliceOutputFormat struct {
	lifecycle
	written []*vesta.Event
}

func (f *sliceOutputFormat) WriteRecord(event *vesta.Event) error {
	f.written = append(f.written, event)
	return nil
}

type passThrough struct {
	AbstractStreamOperator
	outType *vesta.TypeInfo
	inType  *vesta.TypeInfo
}

func (p *passThrough) ProcessElement(event *vesta.Event) error {
	p.Output().Collect(event)
	return nil
}

func (p *passThrough) SetOutputType(outType vesta.TypeInfo, _ vesta.ExecutionConfig) {
	p.outType = &outType
}

func (p *passThrough) SetInputType(inType vesta.TypeInfo, _ vesta.ExecutionConfig) {
	p.inType = &inType
}

type bareOperator struct {
	AbstractStreamOperator
}

func requireCapabilityPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		assert.ErrorIs(t, err, ErrCapabilityMismatch)
	}()
	fn()
}
