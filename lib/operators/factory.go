package operators

import (
	"github.com/pkg/errors"
	"vesta/lib/eventtime"
	"vesta/vesta"
)

// Capability is what a factory can hand out besides the operator, decided once in Of
type Capability uint8

const (
	Plain Capability = iota
	InputFormatSource
	OutputFormatSink
	UserFunction
)

func (c Capability) String() string {
	switch c {
	case InputFormatSource:
		return "source"
	case OutputFormatSink:
		return "sink"
	case UserFunction:
		return "user-function"
	default:
		return "plain"
	}
}

// OperatorFactory owns one operator. It is configured while the graph is built and
// sealed once its node is registered, after which only Create may be called.
type OperatorFactory interface {
	//Create sets the operator up for one subtask, the first call returns the owned
	//operator and later calls a replica of it
	Create(parameters Parameters) (StreamOperator, error)
	Capability() Capability
	ChainingStrategy() vesta.ChainingStrategy
	SetChainingStrategy(strategy vesta.ChainingStrategy) error
	IsStreamSource() bool
	IsOutputTypeConfigurable() bool
	IsInputTypeConfigurable() bool
	//SetOutputType panics with ErrCapabilityMismatch when the operator can not take it
	SetOutputType(outType vesta.TypeInfo, config vesta.ExecutionConfig) error
	//SetInputType panics with ErrCapabilityMismatch when the operator can not take it
	SetInputType(inType vesta.TypeInfo, config vesta.ExecutionConfig) error
	Seal()
	IsSealed() bool
}

// SimpleOperatorFactory is the Plain variant and the base of the other ones
type SimpleOperatorFactory struct {
	operator     StreamOperator
	capability   Capability
	chaining     vesta.ChainingStrategy
	streamSource bool
	outputTarget OutputTypeConfigurable
	inputTarget  InputTypeConfigurable
	created      int
	sealed       bool
}

// Of wraps operator into the factory variant matching what it runs
func Of(operator StreamOperator) (OperatorFactory, error) {
	if operator == nil {
		return nil, ErrNilOperator
	}
	base := newSimpleOperatorFactory(operator)
	switch op := operator.(type) {
	case *StreamSource:
		if function, ok := op.SourceFunction().(*InputFormatSourceFunction); ok {
			base.capability = InputFormatSource
			return &InputFormatOperatorFactory{SimpleOperatorFactory: base, format: function.Format()}, nil
		}
	case *StreamSink:
		if function, ok := op.UserFunction().(*OutputFormatSinkFunction); ok {
			base.capability = OutputFormatSink
			return &OutputFormatOperatorFactory{SimpleOperatorFactory: base, format: function.Format()}, nil
		}
	}
	if udf, ok := operator.(UdfStreamOperator); ok {
		base.capability = UserFunction
		return &UdfOperatorFactory{SimpleOperatorFactory: base, function: udf.UserFunction()}, nil
	}
	return base, nil
}

func newSimpleOperatorFactory(operator StreamOperator) *SimpleOperatorFactory {
	f := &SimpleOperatorFactory{operator: operator, capability: Plain, chaining: operator.ChainingStrategy()}
	_, f.streamSource = operator.(*StreamSource)
	if target, ok := operator.(OutputTypeConfigurable); ok {
		f.outputTarget = target
	}
	if target, ok := operator.(InputTypeConfigurable); ok {
		f.inputTarget = target
	}
	if udf, ok := operator.(UdfStreamOperator); ok {
		if target, ok := udf.UserFunction().(OutputTypeConfigurable); ok && f.outputTarget == nil {
			f.outputTarget = target
		}
		if target, ok := udf.UserFunction().(InputTypeConfigurable); ok && f.inputTarget == nil {
			f.inputTarget = target
		}
	}
	return f
}

func (f *SimpleOperatorFactory) Operator() StreamOperator {
	return f.operator
}

func (f *SimpleOperatorFactory) Create(parameters Parameters) (StreamOperator, error) {
	operator := f.operator
	if f.created > 0 {
		replicable, ok := operator.(Replicable)
		if !ok {
			return nil, errors.WithMessagef(ErrNotReplicable, "%T", operator)
		}
		operator = replicable.Replicate()
	}
	f.created++
	return setup(operator, parameters), nil
}

func setup(operator StreamOperator, parameters Parameters) StreamOperator {
	if aware, ok := operator.(ProcessingTimeAware); ok && parameters.ProcessingTimeService != nil {
		aware.SetProcessingTimeService(parameters.ProcessingTimeService)
	}
	if setupable, ok := operator.(Setupable); ok {
		setupable.Setup(parameters.ContainingTask, parameters.Config, parameters.Output)
	}
	return operator
}

func (f *SimpleOperatorFactory) Capability() Capability {
	return f.capability
}

func (f *SimpleOperatorFactory) ChainingStrategy() vesta.ChainingStrategy {
	return f.chaining
}

func (f *SimpleOperatorFactory) SetChainingStrategy(strategy vesta.ChainingStrategy) error {
	if f.sealed {
		return errors.WithMessage(ErrFactorySealed, "can't change chaining strategy")
	}
	f.chaining = strategy
	f.operator.SetChainingStrategy(strategy)
	return nil
}

func (f *SimpleOperatorFactory) IsStreamSource() bool {
	return f.streamSource
}

func (f *SimpleOperatorFactory) IsOutputTypeConfigurable() bool {
	return f.outputTarget != nil
}

func (f *SimpleOperatorFactory) IsInputTypeConfigurable() bool {
	return f.inputTarget != nil
}

func (f *SimpleOperatorFactory) SetOutputType(outType vesta.TypeInfo, config vesta.ExecutionConfig) error {
	if f.outputTarget == nil {
		panic(errors.WithMessagef(ErrCapabilityMismatch, "%T is not output type configurable", f.operator))
	}
	if f.sealed {
		return errors.WithMessage(ErrFactorySealed, "can't change output type")
	}
	f.outputTarget.SetOutputType(outType, config)
	return nil
}

func (f *SimpleOperatorFactory) SetInputType(inType vesta.TypeInfo, config vesta.ExecutionConfig) error {
	if f.inputTarget == nil {
		panic(errors.WithMessagef(ErrCapabilityMismatch, "%T is not input type configurable", f.operator))
	}
	if f.sealed {
		return errors.WithMessage(ErrFactorySealed, "can't change input type")
	}
	f.inputTarget.SetInputType(inType, config)
	return nil
}

func (f *SimpleOperatorFactory) Seal() {
	f.sealed = true
}

func (f *SimpleOperatorFactory) IsSealed() bool {
	return f.sealed
}

type InputFormatOperatorFactory struct {
	*SimpleOperatorFactory
	format vesta.InputFormat
}

func (f *InputFormatOperatorFactory) InputFormat() vesta.InputFormat {
	return f.format
}

type OutputFormatOperatorFactory struct {
	*SimpleOperatorFactory
	format vesta.OutputFormat
}

func (f *OutputFormatOperatorFactory) OutputFormat() vesta.OutputFormat {
	return f.format
}

type UdfOperatorFactory struct {
	*SimpleOperatorFactory
	function vesta.Component
}

func (f *UdfOperatorFactory) UserFunction() vesta.Component {
	return f.function
}

func InputFormatOf(factory OperatorFactory) vesta.InputFormat {
	if f, ok := factory.(*InputFormatOperatorFactory); ok {
		return f.InputFormat()
	}
	panic(errors.WithMessagef(ErrCapabilityMismatch, "%T has no input format", factory))
}

func OutputFormatOf(factory OperatorFactory) vesta.OutputFormat {
	if f, ok := factory.(*OutputFormatOperatorFactory); ok {
		return f.OutputFormat()
	}
	panic(errors.WithMessagef(ErrCapabilityMismatch, "%T has no output format", factory))
}

func UserFunctionOf(factory OperatorFactory) vesta.Component {
	if f, ok := factory.(*UdfOperatorFactory); ok {
		return f.UserFunction()
	}
	panic(errors.WithMessagef(ErrCapabilityMismatch, "%T has no user function", factory))
}

// SourceOperatorFactory creates a fresh SourceOperator per subtask
type SourceOperatorFactory struct {
	source                    vesta.Source
	strategy                  eventtime.WatermarkStrategy
	emitProgressiveWatermarks bool
	chaining                  vesta.ChainingStrategy
	created                   int
	sealed                    bool
}

func NewSourceOperatorFactory(source vesta.Source, strategy eventtime.WatermarkStrategy, emitProgressiveWatermarks bool) (*SourceOperatorFactory, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	return &SourceOperatorFactory{
		source:                    source,
		strategy:                  strategy,
		emitProgressiveWatermarks: emitProgressiveWatermarks,
		chaining:                  vesta.ChainHead,
	}, nil
}

func (f *SourceOperatorFactory) Source() vesta.Source {
	return f.source
}

func (f *SourceOperatorFactory) WatermarkStrategy() eventtime.WatermarkStrategy {
	return f.strategy
}

func (f *SourceOperatorFactory) EmitsProgressiveWatermarks() bool {
	return f.emitProgressiveWatermarks
}

func (f *SourceOperatorFactory) Create(parameters Parameters) (StreamOperator, error) {
	source := f.source
	if f.created > 0 {
		source = DuplicateComponent(source)
	}
	f.created++
	operator := newSourceOperator(source, f.strategy, f.emitProgressiveWatermarks)
	operator.SetChainingStrategy(f.chaining)
	return setup(operator, parameters), nil
}

func (f *SourceOperatorFactory) Capability() Capability {
	return Plain
}

func (f *SourceOperatorFactory) ChainingStrategy() vesta.ChainingStrategy {
	return f.chaining
}

func (f *SourceOperatorFactory) SetChainingStrategy(strategy vesta.ChainingStrategy) error {
	if f.sealed {
		return errors.WithMessage(ErrFactorySealed, "can't change chaining strategy")
	}
	f.chaining = strategy
	return nil
}

func (f *SourceOperatorFactory) IsStreamSource() bool {
	return false
}

func (f *SourceOperatorFactory) IsOutputTypeConfigurable() bool {
	return false
}

func (f *SourceOperatorFactory) IsInputTypeConfigurable() bool {
	return false
}

func (f *SourceOperatorFactory) SetOutputType(vesta.TypeInfo, vesta.ExecutionConfig) error {
	panic(errors.WithMessage(ErrCapabilityMismatch, "source operator is not output type configurable"))
}

func (f *SourceOperatorFactory) SetInputType(vesta.TypeInfo, vesta.ExecutionConfig) error {
	panic(errors.WithMessage(ErrCapabilityMismatch, "source operator has no input"))
}

func (f *SourceOperatorFactory) Seal() {
	f.sealed = true
}

func (f *SourceOperatorFactory) IsSealed() bool {
	return f.sealed
}

var (
	_ OperatorFactory = &SimpleOperatorFactory{}
	_ OperatorFactory = &InputFormatOperatorFactory{}
	_ OperatorFactory = &OutputFormatOperatorFactory{}
	_ OperatorFactory = &UdfOperatorFactory{}
	_ OperatorFactory = &SourceOperatorFactory{}
)
