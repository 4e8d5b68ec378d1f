package operators

import (
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"vesta/vesta"
)

// SourceContext is handed to a legacy SourceFunction for the duration of Run
type SourceContext interface {
	Collect(event *vesta.Event)
	EmitWatermark(watermark vesta.Watermark)
	MarkAsTemporarilyIdle()
	//Done is closed when the task is cancelled
	Done() <-chan struct{}
}

// SourceFunction pushes records until its input is exhausted or it is cancelled
type SourceFunction interface {
	vesta.Component
	Run(ctx SourceContext) error
	Cancel()
}

type sourceContext struct {
	output vesta.Output
	done   <-chan struct{}
	idle   bool
}

func (c *sourceContext) markActive() {
	if c.idle {
		c.idle = false
		c.output.EmitWatermarkStatus(vesta.ActiveStatus)
	}
}

func (c *sourceContext) Collect(event *vesta.Event) {
	c.markActive()
	c.output.Collect(event)
}

func (c *sourceContext) EmitWatermark(watermark vesta.Watermark) {
	c.markActive()
	c.output.EmitWatermark(watermark)
}

func (c *sourceContext) MarkAsTemporarilyIdle() {
	if !c.idle {
		c.idle = true
		c.output.EmitWatermarkStatus(vesta.IdleStatus)
	}
}

func (c *sourceContext) Done() <-chan struct{} {
	return c.done
}

// StreamSource runs a legacy SourceFunction on the task goroutine
type StreamSource struct {
	AbstractUdfStreamOperator
	source SourceFunction
}

func NewStreamSource(source SourceFunction) *StreamSource {
	s := &StreamSource{AbstractUdfStreamOperator: AbstractUdfStreamOperator{function: source}, source: source}
	s.chaining = vesta.ChainHead
	return s
}

// Run blocks until the function returns. A function that finished on its own
// ends event time with vesta.MaxWatermark, a cancelled one does not.
func (s *StreamSource) Run(done <-chan struct{}) error {
	ctx := &sourceContext{output: s.output, done: done}
	if err := s.source.Run(ctx); err != nil {
		return errors.WithMessage(err, "source function failed")
	}
	select {
	case <-done:
		return nil
	default:
	}
	ctx.EmitWatermark(vesta.MaxWatermark)
	return nil
}

func (s *StreamSource) Cancel() {
	s.source.Cancel()
}

func (s *StreamSource) SourceFunction() SourceFunction {
	return s.source
}

func (s *StreamSource) Replicate() StreamOperator {
	replica := NewStreamSource(DuplicateComponent(s.source))
	replica.chaining = s.chaining
	return replica
}

// InputFormatSourceFunction reads the splits of an InputFormat assigned to its subtask
type InputFormatSourceFunction struct {
	format       vesta.InputFormat
	cancelled    atomic.Bool
	subtaskIndex int
	parallelism  int
}

func NewInputFormatSourceFunction(format vesta.InputFormat) *InputFormatSourceFunction {
	return &InputFormatSourceFunction{format: format, parallelism: 1}
}

func (f *InputFormatSourceFunction) Format() vesta.InputFormat {
	return f.format
}

func (f *InputFormatSourceFunction) Open(ctx vesta.Context) error {
	if rc, ok := ctx.(vesta.RuntimeContext); ok && rc.Parallelism() > 0 {
		f.subtaskIndex = rc.SubtaskIndex()
		f.parallelism = rc.Parallelism()
	}
	return f.format.Open(ctx)
}

func (f *InputFormatSourceFunction) Close() error {
	return f.format.Close()
}

func (f *InputFormatSourceFunction) PropertiesDef() vesta.PropertiesDef {
	return f.format.PropertiesDef()
}

func (f *InputFormatSourceFunction) Run(ctx SourceContext) error {
	splits, err := f.format.CreateSplits(f.parallelism)
	if err != nil {
		return errors.WithMessage(err, "failed to create input splits")
	}
	for _, split := range splits {
		if split.SplitNumber()%f.parallelism != f.subtaskIndex {
			continue
		}
		if err = f.readSplit(ctx, split); err != nil {
			return err
		}
		if f.isCancelled(ctx) {
			return nil
		}
	}
	return nil
}

func (f *InputFormatSourceFunction) readSplit(ctx SourceContext, split vesta.InputSplit) (err error) {
	if err = f.format.OpenSplit(split); err != nil {
		return errors.WithMessagef(err, "failed to open split %d", split.SplitNumber())
	}
	defer func() {
		if closeErr := f.format.CloseSplit(); err == nil && closeErr != nil {
			err = errors.WithMessagef(closeErr, "failed to close split %d", split.SplitNumber())
		}
	}()
	for !f.format.ReachedEnd() && !f.isCancelled(ctx) {
		record, err := f.format.NextRecord()
		if err != nil {
			return errors.WithMessagef(err, "failed to read split %d", split.SplitNumber())
		}
		if record != nil {
			ctx.Collect(record)
		}
	}
	return nil
}

func (f *InputFormatSourceFunction) isCancelled(ctx SourceContext) bool {
	if f.cancelled.Load() {
		return true
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (f *InputFormatSourceFunction) Cancel() {
	f.cancelled.Store(true)
}

func (f *InputFormatSourceFunction) Duplicate() vesta.Component {
	return NewInputFormatSourceFunction(DuplicateComponent(f.format))
}

// OutputFormatSinkFunction writes every record through an OutputFormat
type OutputFormatSinkFunction struct {
	format vesta.OutputFormat
}

func NewOutputFormatSinkFunction(format vesta.OutputFormat) *OutputFormatSinkFunction {
	return &OutputFormatSinkFunction{format: format}
}

func (f *OutputFormatSinkFunction) Format() vesta.OutputFormat {
	return f.format
}

func (f *OutputFormatSinkFunction) Open(ctx vesta.Context) error {
	return f.format.Open(ctx)
}

func (f *OutputFormatSinkFunction) Close() error {
	return f.format.Close()
}

func (f *OutputFormatSinkFunction) PropertiesDef() vesta.PropertiesDef {
	return f.format.PropertiesDef()
}

func (f *OutputFormatSinkFunction) Invoke(event *vesta.Event) error {
	return f.format.WriteRecord(event)
}

func (f *OutputFormatSinkFunction) Duplicate() vesta.Component {
	return NewOutputFormatSinkFunction(DuplicateComponent(f.format))
}

var (
	_ SourceFunction     = &InputFormatSourceFunction{}
	_ vesta.SinkFunction = &OutputFormatSinkFunction{}
	_ UdfStreamOperator  = &StreamSource{}
)
