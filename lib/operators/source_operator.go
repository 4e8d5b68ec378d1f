package operators

import (
	"math"

	"github.com/pkg/errors"
	"vesta/lib/eventtime"
	"vesta/lib/timer"
	"vesta/vesta"
)

// NoTimestamp is the record timestamp handed to assigners when the reader knows none
const NoTimestamp int64 = math.MinInt64

// SourceOperator polls a SourceReader and derives event time from what it reads.
// It is driven by the task goroutine, periodic emits arrive through the mailbox.
type SourceOperator struct {
	AbstractStreamOperator
	_ noCopy

	source                    vesta.Source
	strategy                  eventtime.WatermarkStrategy
	emitProgressiveWatermarks bool

	timeService     timer.Service
	reader          vesta.SourceReader
	generator       eventtime.WatermarkGenerator
	assigner        eventtime.TimestampAssigner
	watermarkOutput *eventtime.OutputAdapter
	periodicEmit    timer.ScheduledFuture
	finished        bool
}

type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

func newSourceOperator(source vesta.Source, strategy eventtime.WatermarkStrategy, emitProgressiveWatermarks bool) *SourceOperator {
	s := &SourceOperator{source: source, strategy: strategy, emitProgressiveWatermarks: emitProgressiveWatermarks}
	s.chaining = vesta.ChainHead
	return s
}

func (s *SourceOperator) SetProcessingTimeService(service timer.Service) {
	s.timeService = service
}

func (s *SourceOperator) Source() vesta.Source {
	return s.source
}

func (s *SourceOperator) EmitsProgressiveWatermarks() bool {
	return s.emitProgressiveWatermarks
}

func (s *SourceOperator) Open() error {
	readerContext := vesta.ReaderContext{SubtaskIndex: 0, Parallelism: 1}
	if s.task != nil {
		readerContext = vesta.ReaderContext{SubtaskIndex: s.task.SubtaskIndex(), Parallelism: s.task.Parallelism()}
	}
	if err := s.source.Open(s.task); err != nil {
		return errors.WithMessage(err, "failed to open source")
	}
	reader, err := s.source.CreateReader(readerContext)
	if err != nil {
		return errors.WithMessage(err, "failed to create source reader")
	}
	s.reader = reader
	s.watermarkOutput = eventtime.NewOutputAdapter(s.output)
	s.assigner = s.strategy.CreateTimestampAssigner()
	if !s.emitProgressiveWatermarks {
		s.generator = eventtime.NoWatermarks{}
		return nil
	}
	if s.generator, err = s.strategy.CreateWatermarkGenerator(); err != nil {
		return errors.WithMessage(err, "failed to create watermark generator")
	}
	if s.timeService != nil && s.config != nil && s.config.AutoWatermarkInterval > 0 {
		interval := s.config.AutoWatermarkInterval
		s.periodicEmit = s.timeService.ScheduleAtFixedRate(s.onPeriodicEmit, interval, interval)
	}
	return nil
}

func (s *SourceOperator) onPeriodicEmit(int64) {
	if !s.finished {
		s.generator.OnPeriodicEmit(s.watermarkOutput)
	}
}

// EmitNext reads at most one batch from the reader. At the end of the input the
// periodic emit is stopped and event time is closed with vesta.MaxWatermark.
func (s *SourceOperator) EmitNext() (vesta.InputStatus, error) {
	if s.finished {
		return vesta.EndOfInputStatus, nil
	}
	status, err := s.reader.PollNext(s)
	if err != nil {
		return status, errors.WithMessage(err, "failed to poll source reader")
	}
	if status == vesta.EndOfInputStatus {
		s.finished = true
		s.cancelPeriodicEmit()
		s.watermarkOutput.EmitWatermark(vesta.MaxWatermark)
	}
	return status, nil
}

// Collect is the vesta.ReaderOutput the reader emits into
func (s *SourceOperator) Collect(event *vesta.Event) {
	if s.emitProgressiveWatermarks {
		s.watermarkOutput.MarkActive()
	}
	timestamp := s.assigner(event, NoTimestamp)
	s.output.Collect(event)
	s.generator.OnEvent(event, timestamp, s.watermarkOutput)
}

func (s *SourceOperator) CurrentWatermark() vesta.Watermark {
	if s.watermarkOutput == nil {
		return vesta.MinWatermark
	}
	return s.watermarkOutput.CurrentWatermark()
}

func (s *SourceOperator) cancelPeriodicEmit() {
	if s.periodicEmit != nil {
		s.periodicEmit.Cancel()
		s.periodicEmit = nil
	}
}

// Close stops the periodic emit before the reader and the source go away
func (s *SourceOperator) Close() error {
	s.cancelPeriodicEmit()
	var err error
	if s.reader != nil {
		if closeErr := s.reader.Close(); closeErr != nil {
			err = errors.WithMessage(closeErr, "failed to close source reader")
		}
	}
	if closeErr := s.source.Close(); closeErr != nil && err == nil {
		err = errors.WithMessage(closeErr, "failed to close source")
	}
	return err
}

var (
	_ StreamOperator      = &SourceOperator{}
	_ ProcessingTimeAware = &SourceOperator{}
	_ Setupable           = &SourceOperator{}
	_ vesta.ReaderOutput  = &SourceOperator{}
)
