package mock

import (
	"fmt"
	"time"

	"vesta/lib/component"
	"vesta/lib/log"
	"vesta/lib/properties"
	"vesta/vesta"
)

var (
	IntervalProperty = properties.NewProperty[int]("interval", "random source generate record interval in milliseconds", 100)
	CountProperty    = properties.NewProperty[int]("count", "records per subtask, 0 never ends", 0)
	MessageProperty  = properties.NewProperty[string]("message", "message prefix of every record", "mock")
)

type source struct {
	interval time.Duration
	count    int
	message  string
	logger   vesta.Logger
}

func (s *source) PropertiesDef() vesta.PropertiesDef {
	return vesta.PropertiesDef{IntervalProperty, CountProperty, MessageProperty}
}

func (s *source) Configure(p vesta.Properties) error {
	s.interval = time.Duration(p.GetInt(IntervalProperty)) * time.Millisecond
	s.count = p.GetInt(CountProperty)
	s.message = p.GetString(MessageProperty)
	return nil
}

func (s *source) Open(ctx vesta.Context) error {
	s.logger = log.Ctx(ctx)
	if ctx != nil && ctx.Properties() != nil {
		return s.Configure(ctx.Properties())
	}
	return nil
}

func (s *source) Close() error {
	return nil
}

func (s *source) Boundedness() vesta.Boundedness {
	if s.count > 0 {
		return vesta.Bounded
	}
	return vesta.ContinuousUnbounded
}

func (s *source) CreateReader(ctx vesta.ReaderContext) (vesta.SourceReader, error) {
	s.logger.Infow("create mock reader.", "subtask", ctx.SubtaskIndex, "interval", s.interval, "count", s.count)
	return &reader{source: s, subtask: ctx.SubtaskIndex}, nil
}

type reader struct {
	source  *source
	subtask int
	emitted int
	last    time.Time
}

func (r *reader) PollNext(output vesta.ReaderOutput) (vesta.InputStatus, error) {
	if r.source.count > 0 && r.emitted >= r.source.count {
		return vesta.EndOfInputStatus, nil
	}
	now := time.Now()
	if !r.last.IsZero() && now.Sub(r.last) < r.source.interval {
		return vesta.NothingAvailable, nil
	}
	r.last = now
	r.emitted++
	output.Collect(&vesta.Event{
		Meta:    map[string]any{"subtask": r.subtask, "seq": r.emitted},
		Message: fmt.Sprintf("%s-%d-%d", r.source.message, r.subtask, r.emitted),
		Time:    now,
	})
	return vesta.MoreAvailable, nil
}

func (r *reader) Close() error {
	return nil
}

// New uses for test only
func New() vesta.Source {
	return &source{interval: 100 * time.Millisecond, message: "mock", logger: log.Global()}
}

func init() {
	component.RegisterNewSourceFunc("mock", New)
}
