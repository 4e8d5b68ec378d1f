package transformation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"vesta/lib/eventtime"
	"vesta/lib/operators"
	"vesta/vesta"
)

type emptySource struct{}

func (emptySource) Open(vesta.Context) error           { return nil }
func (emptySource) Close() error                       { return nil }
func (emptySource) PropertiesDef() vesta.PropertiesDef { return vesta.PropertiesDef{} }
func (emptySource) Boundedness() vesta.Boundedness     { return vesta.ContinuousUnbounded }
func (emptySource) CreateReader(vesta.ReaderContext) (vesta.SourceReader, error) {
	return nil, nil
}

func identity() operators.OneInputStreamOperator {
	return operators.NewStreamMap(operators.MapFunc(func(event *vesta.Event) (*vesta.Event, error) {
		return event, nil
	}))
}

func TestSource(t *testing.T) {
	strategy := eventtime.ForMonotonousTimestamps()
	source, err := NewSource("gen", emptySource{}, strategy,
		WithUID("source.gen"), WithSlotSharingGroup("g"), WithCoLocationGroupKey("c"))
	require.NoError(t, err)

	assert.Greater(t, source.ID(), 0)
	assert.Equal(t, "gen", source.Name())
	assert.Equal(t, "source.gen", source.UID())
	assert.Equal(t, vesta.ParallelismDefault, source.Parallelism())
	assert.Equal(t, vesta.ParallelismDefault, source.MaxParallelism())
	assert.Equal(t, vesta.ChainHead, source.ChainingStrategy())
	assert.Equal(t, "g", source.SlotSharingGroup())
	assert.Equal(t, "c", source.CoLocationGroupKey())
	assert.Equal(t, vesta.EventType, source.OutputType())
	assert.Equal(t, vesta.ContinuousUnbounded, source.Boundedness())
	assert.Equal(t, strategy.String(), source.WatermarkStrategy().String())
	assert.Empty(t, source.Inputs())

	_, err = NewSource("nil", nil, strategy)
	assert.ErrorIs(t, err, ErrNilSource)
}

func TestIDsAreUnique(t *testing.T) {
	first, err := NewSource("a", emptySource{}, eventtime.ForNoWatermarks())
	require.NoError(t, err)
	second, err := NewSource("b", emptySource{}, eventtime.ForNoWatermarks())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID())
}

func TestOneInputAndSink(t *testing.T) {
	source, err := NewSource("gen", emptySource{}, eventtime.ForNoWatermarks(), WithOutputType(vesta.TypeOf[string]()))
	require.NoError(t, err)

	mapped, err := NewOneInput("map", source, identity(), WithParallelism(4), WithMaxParallelism(8))
	require.NoError(t, err)
	assert.Equal(t, 4, mapped.Parallelism())
	assert.Equal(t, 8, mapped.MaxParallelism())
	assert.Equal(t, "string", mapped.InputType().Name)
	assert.Equal(t, vesta.EventType, mapped.OutputType())
	assert.Equal(t, []Transformation{source}, mapped.Inputs())
	assert.Equal(t, vesta.ChainAlways, mapped.ChainingStrategy())

	sink, err := NewSink("print", mapped, identity(), WithChainingStrategy(vesta.ChainNever))
	require.NoError(t, err)
	assert.Equal(t, vesta.EventType, sink.OutputType())
	assert.Equal(t, vesta.ChainNever, sink.ChainingStrategy())
	assert.Same(t, mapped, sink.Input())
}

func TestValidation(t *testing.T) {
	source, err := NewSource("gen", emptySource{}, eventtime.ForNoWatermarks())
	require.NoError(t, err)

	_, err = NewOneInput("map", nil, identity())
	assert.ErrorIs(t, err, ErrNilInput)
	_, err = NewOneInput("map", source, nil)
	assert.ErrorIs(t, err, ErrNilOperator)
	_, err = NewSink("sink", nil, identity())
	assert.ErrorIs(t, err, ErrNilInput)
	_, err = NewLegacySource("legacy", nil, vesta.Bounded)
	assert.ErrorIs(t, err, ErrNilOperator)

	for _, parallelism := range []int{0, -2} {
		_, err = NewOneInput("map", source, identity(), WithParallelism(parallelism))
		assert.ErrorIs(t, err, ErrBadParallelism)
	}
	_, err = NewOneInput("map", source, identity(), WithMaxParallelism(0))
	assert.ErrorIs(t, err, ErrBadParallelism)
}

func TestLegacySource(t *testing.T) {
	operator := operators.NewStreamSource(operators.NewInputFormatSourceFunction(nil))
	legacy, err := NewLegacySource("files", operator, vesta.Bounded, WithParallelism(2))
	require.NoError(t, err)
	assert.Equal(t, vesta.ChainHead, legacy.ChainingStrategy())
	assert.Equal(t, vesta.Bounded, legacy.Boundedness())
	assert.Same(t, operator, legacy.Operator())
	assert.Equal(t, 2, legacy.Parallelism())
}

func TestUnion(t *testing.T) {
	first, err := NewSource("a", emptySource{}, eventtime.ForNoWatermarks())
	require.NoError(t, err)
	second, err := NewSource("b", emptySource{}, eventtime.ForNoWatermarks())
	require.NoError(t, err)

	union, err := NewUnion("a+b", first, second)
	require.NoError(t, err)
	assert.Equal(t, vesta.EventType, union.OutputType())
	inputs := union.Inputs()
	require.Len(t, inputs, 2)
	inputs[0] = nil
	assert.NotNil(t, union.Inputs()[0])

	_, err = NewUnion("empty")
	assert.ErrorIs(t, err, ErrNilInput)
	_, err = NewUnion("nil", first, nil)
	assert.ErrorIs(t, err, ErrNilInput)

	typed, err := NewSource("typed", emptySource{}, eventtime.ForNoWatermarks(), WithOutputType(vesta.TypeOf[string]()))
	require.NoError(t, err)
	_, err = NewUnion("mixed", first, typed)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}
