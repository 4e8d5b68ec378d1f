package transformation

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"vesta/lib/eventtime"
	"vesta/lib/operators"
	"vesta/vesta"
)

var (
	ErrNilInput       = fmt.Errorf("transformation input is nil")
	ErrNilOperator    = fmt.Errorf("transformation operator is nil")
	ErrNilSource      = fmt.Errorf("transformation source is nil")
	ErrBadParallelism = fmt.Errorf("parallelism must be positive or default")
	ErrTypeMismatch   = fmt.Errorf("union inputs have different output types")
)

var idCounter atomic.Int64

// NextID hands out process wide unique transformation ids
func NextID() int {
	return int(idCounter.Inc())
}

// Transformation is an immutable node of the logical pipeline
type Transformation interface {
	ID() int
	Name() string
	UID() string
	Parallelism() int
	MaxParallelism() int
	ChainingStrategy() vesta.ChainingStrategy
	SlotSharingGroup() string
	CoLocationGroupKey() string
	OutputType() vesta.TypeInfo
	Inputs() []Transformation
}

type base struct {
	id                 int
	name               string
	uid                string
	parallelism        int
	maxParallelism     int
	chaining           vesta.ChainingStrategy
	slotSharingGroup   string
	coLocationGroupKey string
	outputType         vesta.TypeInfo
}

func (b *base) ID() int                                  { return b.id }
func (b *base) Name() string                             { return b.name }
func (b *base) UID() string                              { return b.uid }
func (b *base) Parallelism() int                         { return b.parallelism }
func (b *base) MaxParallelism() int                      { return b.maxParallelism }
func (b *base) ChainingStrategy() vesta.ChainingStrategy { return b.chaining }
func (b *base) SlotSharingGroup() string                 { return b.slotSharingGroup }
func (b *base) CoLocationGroupKey() string               { return b.coLocationGroupKey }
func (b *base) OutputType() vesta.TypeInfo               { return b.outputType }

type Option func(b *base)

func WithParallelism(parallelism int) Option {
	return func(b *base) {
		b.parallelism = parallelism
	}
}

func WithMaxParallelism(maxParallelism int) Option {
	return func(b *base) {
		b.maxParallelism = maxParallelism
	}
}

func WithChainingStrategy(strategy vesta.ChainingStrategy) Option {
	return func(b *base) {
		b.chaining = strategy
	}
}

func WithSlotSharingGroup(group string) Option {
	return func(b *base) {
		b.slotSharingGroup = group
	}
}

func WithCoLocationGroupKey(key string) Option {
	return func(b *base) {
		b.coLocationGroupKey = key
	}
}

func WithOutputType(outputType vesta.TypeInfo) Option {
	return func(b *base) {
		b.outputType = outputType
	}
}

// WithUID names the configuration section the components of this transformation read
func WithUID(uid string) Option {
	return func(b *base) {
		b.uid = uid
	}
}

func newBase(name string, chaining vesta.ChainingStrategy, options []Option) (base, error) {
	b := base{
		id:             NextID(),
		name:           name,
		parallelism:    vesta.ParallelismDefault,
		maxParallelism: vesta.ParallelismDefault,
		chaining:       chaining,
		outputType:     vesta.EventType,
	}
	for _, option := range options {
		option(&b)
	}
	if b.parallelism != vesta.ParallelismDefault && b.parallelism < 1 {
		return b, errors.WithMessagef(ErrBadParallelism, "%s: %d", name, b.parallelism)
	}
	if b.maxParallelism != vesta.ParallelismDefault && b.maxParallelism < 1 {
		return b, errors.WithMessagef(ErrBadParallelism, "%s max: %d", name, b.maxParallelism)
	}
	return b, nil
}

// Source reads a vesta.Source and derives event time with its watermark strategy
type Source struct {
	base
	source   vesta.Source
	strategy eventtime.WatermarkStrategy
}

func NewSource(name string, source vesta.Source, strategy eventtime.WatermarkStrategy, options ...Option) (*Source, error) {
	if source == nil {
		return nil, errors.WithMessage(ErrNilSource, name)
	}
	b, err := newBase(name, vesta.ChainHead, options)
	if err != nil {
		return nil, err
	}
	return &Source{base: b, source: source, strategy: strategy}, nil
}

func (s *Source) Source() vesta.Source {
	return s.source
}

func (s *Source) WatermarkStrategy() eventtime.WatermarkStrategy {
	return s.strategy
}

func (s *Source) Boundedness() vesta.Boundedness {
	return s.source.Boundedness()
}

func (s *Source) Inputs() []Transformation {
	return nil
}

// LegacySource runs a pre built source operator, usually a StreamSource
type LegacySource struct {
	base
	operator operators.StreamOperator
	bounded  vesta.Boundedness
}

func NewLegacySource(name string, operator operators.StreamOperator, boundedness vesta.Boundedness, options ...Option) (*LegacySource, error) {
	if operator == nil {
		return nil, errors.WithMessage(ErrNilOperator, name)
	}
	b, err := newBase(name, operator.ChainingStrategy(), options)
	if err != nil {
		return nil, err
	}
	return &LegacySource{base: b, operator: operator, bounded: boundedness}, nil
}

func (s *LegacySource) Operator() operators.StreamOperator {
	return s.operator
}

func (s *LegacySource) Boundedness() vesta.Boundedness {
	return s.bounded
}

func (s *LegacySource) Inputs() []Transformation {
	return nil
}

// OneInput applies an operator to every element of its input
type OneInput struct {
	base
	input    Transformation
	operator operators.OneInputStreamOperator
}

func NewOneInput(name string, input Transformation, operator operators.OneInputStreamOperator, options ...Option) (*OneInput, error) {
	if input == nil {
		return nil, errors.WithMessage(ErrNilInput, name)
	}
	if operator == nil {
		return nil, errors.WithMessage(ErrNilOperator, name)
	}
	b, err := newBase(name, operator.ChainingStrategy(), options)
	if err != nil {
		return nil, err
	}
	return &OneInput{base: b, input: input, operator: operator}, nil
}

func (o *OneInput) Input() Transformation {
	return o.input
}

func (o *OneInput) Operator() operators.OneInputStreamOperator {
	return o.operator
}

func (o *OneInput) InputType() vesta.TypeInfo {
	return o.input.OutputType()
}

func (o *OneInput) Inputs() []Transformation {
	return []Transformation{o.input}
}

// Sink ends a pipeline, its output type is the input type
type Sink struct {
	base
	input    Transformation
	operator operators.OneInputStreamOperator
}

func NewSink(name string, input Transformation, operator operators.OneInputStreamOperator, options ...Option) (*Sink, error) {
	if input == nil {
		return nil, errors.WithMessage(ErrNilInput, name)
	}
	if operator == nil {
		return nil, errors.WithMessage(ErrNilOperator, name)
	}
	options = append([]Option{WithOutputType(input.OutputType())}, options...)
	b, err := newBase(name, operator.ChainingStrategy(), options)
	if err != nil {
		return nil, err
	}
	return &Sink{base: b, input: input, operator: operator}, nil
}

func (s *Sink) Input() Transformation {
	return s.input
}

func (s *Sink) Operator() operators.OneInputStreamOperator {
	return s.operator
}

func (s *Sink) Inputs() []Transformation {
	return []Transformation{s.input}
}

// Union merges the streams of its inputs, it becomes edges rather than a node
type Union struct {
	base
	inputs []Transformation
}

func NewUnion(name string, inputs ...Transformation) (*Union, error) {
	if len(inputs) == 0 {
		return nil, errors.WithMessage(ErrNilInput, name)
	}
	for _, input := range inputs {
		if input == nil {
			return nil, errors.WithMessage(ErrNilInput, name)
		}
		if input.OutputType() != inputs[0].OutputType() {
			return nil, errors.WithMessagef(ErrTypeMismatch, "%s: %s and %s", name, inputs[0].OutputType(), input.OutputType())
		}
	}
	b, err := newBase(name, vesta.ChainAlways, []Option{WithOutputType(inputs[0].OutputType())})
	if err != nil {
		return nil, err
	}
	return &Union{base: b, inputs: append([]Transformation(nil), inputs...)}, nil
}

func (u *Union) Inputs() []Transformation {
	return append([]Transformation(nil), u.inputs...)
}

var (
	_ Transformation = &Union{}
	_ Transformation = &Source{}
	_ Transformation = &LegacySource{}
	_ Transformation = &OneInput{}
	_ Transformation = &Sink{}
)
