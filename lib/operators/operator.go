package operators

import (
	"fmt"
	"reflect"
	"time"

	"vesta/lib/timer"
	"vesta/vesta"
)

var (
	ErrNilOperator        = fmt.Errorf("operator is nil")
	ErrNilSource          = fmt.Errorf("source is nil")
	ErrFactorySealed      = fmt.Errorf("operator factory is sealed")
	ErrCapabilityMismatch = fmt.Errorf("operator capability mismatch")
	ErrNotReplicable      = fmt.Errorf("operator can not be replicated for another subtask")
)

// TaskHandle is the subtask an operator is deployed in
type TaskHandle = vesta.RuntimeContext

// StreamConfig is what the graph knows about the node of an operator
type StreamConfig struct {
	NodeID                int
	OperatorName          string
	UID                   string
	InputType             *vesta.TypeInfo
	OutputType            vesta.TypeInfo
	ChainingStrategy      vesta.ChainingStrategy
	AutoWatermarkInterval time.Duration
	RuntimeMode           vesta.RuntimeMode
}

type Parameters struct {
	ContainingTask        TaskHandle
	Config                *StreamConfig
	Output                vesta.Output
	ProcessingTimeService timer.Service
}

type StreamOperator interface {
	Open() error
	Close() error
	ChainingStrategy() vesta.ChainingStrategy
	SetChainingStrategy(strategy vesta.ChainingStrategy)
}

type OneInputStreamOperator interface {
	StreamOperator
	ProcessElement(event *vesta.Event) error
	ProcessWatermark(watermark vesta.Watermark) error
	ProcessWatermarkStatus(status vesta.WatermarkStatus) error
	//EndInput is called once every upstream subtask has finished
	EndInput() error
}

type Setupable interface {
	Setup(task TaskHandle, config *StreamConfig, output vesta.Output)
}

type ProcessingTimeAware interface {
	SetProcessingTimeService(service timer.Service)
}

type OutputTypeConfigurable interface {
	SetOutputType(outType vesta.TypeInfo, config vesta.ExecutionConfig)
}

type InputTypeConfigurable interface {
	SetInputType(inType vesta.TypeInfo, config vesta.ExecutionConfig)
}

// UdfStreamOperator runs a user function
type UdfStreamOperator interface {
	StreamOperator
	UserFunction() vesta.Component
}

// Replicable operators hand out an unopened copy for another subtask
type Replicable interface {
	Replicate() StreamOperator
}

// Duplicator is implemented by components that need more than a shallow copy per subtask
type Duplicator interface {
	Duplicate() vesta.Component
}

// DuplicateComponent copies an unopened component for another subtask.
// Pointers to structs are copied shallowly, anything else is shared.
func DuplicateComponent[T any](c T) T {
	if d, ok := any(c).(Duplicator); ok {
		if dup, ok := d.Duplicate().(T); ok {
			return dup
		}
	}
	v := reflect.ValueOf(c)
	if !v.IsValid() || v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return c
	}
	cp := reflect.New(v.Elem().Type())
	cp.Elem().Set(v.Elem())
	return cp.Interface().(T)
}
