package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"vesta/vesta"
)

type OutputEncoder string

const (
	ConsoleOutputEncoder OutputEncoder = "console"
	JSONOutputEncoder    OutputEncoder = "json"
)

type Options struct {
	level         zapcore.Level
	outputEncoder OutputEncoder
	writer        zapcore.WriteSyncer
}

func DefaultOptions() *Options {
	return &Options{
		level:         zapcore.InfoLevel,
		outputEncoder: JSONOutputEncoder,
		writer:        zapcore.Lock(os.Stderr),
	}
}

func (o *Options) WithOutputEncoder(encoder OutputEncoder) *Options {
	o.outputEncoder = encoder
	return o
}

// WithLevel ignores unknown levels and keeps the current one
func (o *Options) WithLevel(level string) *Options {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err == nil {
		o.level = l
	}
	return o
}

func (o *Options) WithWriter(writer zapcore.WriteSyncer) *Options {
	o.writer = writer
	return o
}

var (
	mutex sync.RWMutex
	root  = zap.NewNop().Sugar()
)

func Setup(options *Options) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	var encoder zapcore.Encoder
	switch options.outputEncoder {
	case ConsoleOutputEncoder:
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}
	core := zapcore.NewCore(encoder, options.writer, zap.NewAtomicLevelAt(options.level))
	mutex.Lock()
	defer mutex.Unlock()
	root = zap.New(core, zap.AddCaller()).Sugar()
}

func Global() vesta.Logger {
	mutex.RLock()
	defer mutex.RUnlock()
	return root
}

func Named(name string) vesta.Logger {
	mutex.RLock()
	defer mutex.RUnlock()
	return root.Named(name)
}

// Ctx returns a logger named after the context, like "operator.filter"
func Ctx(ctx vesta.Context) vesta.Logger {
	if ctx == nil || ctx.Name() == "" {
		return Global()
	}
	return Named(ctx.Name())
}
