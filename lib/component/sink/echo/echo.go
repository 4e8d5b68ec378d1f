package echo

import (
	"vesta/lib/component"
	"vesta/lib/log"
	"vesta/lib/properties"
	"vesta/vesta"
)

var (
	BatchSizeProperty = properties.NewProperty[int]("batch", "echo sink echo batch size", 100)
	TypeProperty      = properties.NewProperty[string]("echo", "echo type, like info debug", "info")
)

// sink logs events batch by batch, the last partial batch is logged on Close
type sink struct {
	ctx      vesta.Context
	logger   vesta.Logger
	batch    int
	buffer   []*vesta.Event
	echoFunc func(format string, args ...interface{})
}

func (s *sink) Invoke(event *vesta.Event) error {
	s.buffer = append(s.buffer, event)
	if len(s.buffer) >= s.batch {
		s.flush()
	}
	return nil
}

func (s *sink) flush() {
	for _, event := range s.buffer {
		s.echoFunc("%+v", event)
	}
	s.buffer = s.buffer[:0]
}

func (s *sink) Open(ctx vesta.Context) error {
	s.ctx = ctx
	s.logger = log.Ctx(s.ctx)
	s.batch = ctx.Properties().GetInt(BatchSizeProperty)
	if s.batch <= 0 {
		s.batch = 1
	}
	s.buffer = make([]*vesta.Event, 0, s.batch)
	echoType := ctx.Properties().GetString(TypeProperty)
	switch echoType {
	case "debug":
		s.echoFunc = s.logger.Debugf
	case "warn":
		s.echoFunc = s.logger.Warnf
	case "error":
		s.echoFunc = s.logger.Errorf
	case "info":
		s.echoFunc = s.logger.Infof
	default:
		s.logger.Warnf("unknown echo type %s, use info", echoType)
		s.echoFunc = s.logger.Infof
	}
	return nil
}

func (s *sink) Close() error {
	if s.echoFunc != nil {
		s.flush()
	}
	return nil
}

func (s *sink) PropertiesDef() vesta.PropertiesDef {
	return vesta.PropertiesDef{BatchSizeProperty, TypeProperty}
}

func New() vesta.SinkFunction {
	return &sink{}
}

func init() {
	component.RegisterNewSinkFunc("echo", New)
}
