package translator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"vesta/lib/eventtime"
	"vesta/lib/operators"
	"vesta/lib/transformation"
	"vesta/vesta"
)

// unknown is a transformation kind without a translator
type unknown struct {
	transformation.Transformation
	id int
}

func newUnknown(t transformation.Transformation) unknown {
	return unknown{Transformation: t, id: transformation.NextID()}
}

func (u unknown) ID() int {
	return u.id
}

type countingTranslator struct {
	Translator
	batch, streaming int
}

func (c *countingTranslator) TranslateForBatch(t transformation.Transformation, ctx Context) ([]int, error) {
	c.batch++
	return c.Translator.TranslateForBatch(t, ctx)
}

func (c *countingTranslator) TranslateForStreaming(t transformation.Transformation, ctx Context) ([]int, error) {
	c.streaming++
	return c.Translator.TranslateForStreaming(t, ctx)
}

func pipeline(t *testing.T, boundedness vesta.Boundedness) (*transformation.Source, *transformation.OneInput, *transformation.Sink) {
	t.Helper()
	source, err := transformation.NewSource("gen", testSource{boundedness: boundedness}, eventtime.ForMonotonousTimestamps(),
		transformation.WithSlotSharingGroup("sources"))
	require.NoError(t, err)
	mapped, err := transformation.NewOneInput("map", source, identity())
	require.NoError(t, err)
	sink, err := transformation.NewSink("print", mapped, identity(), transformation.WithSlotSharingGroup("sinks"))
	require.NoError(t, err)
	return source, mapped, sink
}

func TestGenerate(t *testing.T) {
	source, mapped, sink := pipeline(t, vesta.ContinuousUnbounded)
	counter := &countingTranslator{Translator: NewSourceTranslator()}
	generator := NewGenerator(vesta.DefaultExecutionConfig(), sink)
	generator.Register(&transformation.Source{}, counter)

	g, err := generator.Generate()
	require.NoError(t, err)
	assert.Equal(t, 1, counter.streaming)
	assert.Equal(t, 0, counter.batch)

	nodes := g.Nodes()
	require.Len(t, nodes, 3)
	assert.Equal(t, []int{source.ID()}, g.SourceIDs())
	assert.Equal(t, []int{sink.ID()}, g.SinkIDs())
	assert.Equal(t, "sources", g.Node(source.ID()).SlotSharingGroup())
	assert.Equal(t, "sources", g.Node(mapped.ID()).SlotSharingGroup())
	assert.Equal(t, "sinks", g.Node(sink.ID()).SlotSharingGroup())

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, source.ID(), order[0].ID())
	assert.Equal(t, sink.ID(), order[2].ID())

	factory := g.Node(source.ID()).Factory().(*operators.SourceOperatorFactory)
	assert.True(t, factory.EmitsProgressiveWatermarks())
}

func TestGenerateMemoizesSharedInputs(t *testing.T) {
	source, mapped, sink := pipeline(t, vesta.Bounded)
	second, err := transformation.NewSink("audit", source, identity())
	require.NoError(t, err)

	counter := &countingTranslator{Translator: NewSourceTranslator()}
	config := vesta.DefaultExecutionConfig()
	config.RuntimeMode = vesta.Batch
	generator := NewGenerator(config, sink, second, mapped)
	generator.Register(&transformation.Source{}, counter)

	g, err := generator.Generate()
	require.NoError(t, err)
	assert.Equal(t, 1, counter.batch)
	assert.Len(t, g.Nodes(), 4)
	assert.Len(t, g.Node(source.ID()).OutEdges(), 2)

	factory := g.Node(source.ID()).Factory().(*operators.SourceOperatorFactory)
	assert.False(t, factory.EmitsProgressiveWatermarks())
}

func TestGenerateFailures(t *testing.T) {
	t.Run("unsupported kind aborts", func(t *testing.T) {
		source, _, _ := pipeline(t, vesta.Bounded)
		bad := newUnknown(source)
		g, err := NewGenerator(vesta.DefaultExecutionConfig(), source, bad).Generate()
		assert.Nil(t, g)
		assert.ErrorIs(t, err, ErrUnsupportedTransformation)
	})

	t.Run("unsupported input aborts", func(t *testing.T) {
		source, _, _ := pipeline(t, vesta.Bounded)
		sink, err := transformation.NewSink("print", newUnknown(source), identity())
		require.NoError(t, err)
		g, err := NewGenerator(vesta.DefaultExecutionConfig(), sink).Generate()
		assert.Nil(t, g)
		assert.ErrorIs(t, err, ErrUnsupportedTransformation)
	})

	t.Run("nil transformation", func(t *testing.T) {
		g, err := NewGenerator(vesta.DefaultExecutionConfig(), nil).Generate()
		assert.Nil(t, g)
		assert.ErrorIs(t, err, ErrNilTransformation)
	})

	t.Run("unbounded source in batch", func(t *testing.T) {
		_, _, sink := pipeline(t, vesta.ContinuousUnbounded)
		config := vesta.DefaultExecutionConfig()
		config.RuntimeMode = vesta.Batch
		g, err := NewGenerator(config, sink).Generate()
		assert.Nil(t, g)
		assert.ErrorIs(t, err, ErrUnboundedSourceInBatch)
	})
}

func TestGenerateIsRepeatable(t *testing.T) {
	_, _, sink := pipeline(t, vesta.Bounded)
	generator := NewGenerator(vesta.DefaultExecutionConfig(), sink)
	first, err := generator.Generate()
	require.NoError(t, err)
	assert.Len(t, first.Nodes(), 3)

	// every factory of the first graph is sealed, the second run builds new ones
	second, err := generator.Generate()
	require.NoError(t, err)
	assert.Len(t, second.Nodes(), 3)
	assert.NotSame(t, first, second)
	for _, node := range second.Nodes() {
		assert.True(t, node.Factory().IsSealed())
	}
}

func TestGenerateUnion(t *testing.T) {
	first, err := transformation.NewSource("a", testSource{boundedness: vesta.Bounded}, eventtime.ForMonotonousTimestamps(),
		transformation.WithSlotSharingGroup("sources"))
	require.NoError(t, err)
	second, err := transformation.NewSource("b", testSource{boundedness: vesta.Bounded}, eventtime.ForMonotonousTimestamps(),
		transformation.WithSlotSharingGroup("sources"))
	require.NoError(t, err)
	union, err := transformation.NewUnion("a+b", first, second, first)
	require.NoError(t, err)
	sink, err := transformation.NewSink("print", union, identity())
	require.NoError(t, err)

	g, err := NewGenerator(vesta.DefaultExecutionConfig(), sink).Generate()
	require.NoError(t, err)
	assert.Len(t, g.Nodes(), 3)
	in := g.Node(sink.ID()).InEdges()
	require.Len(t, in, 2)
	assert.ElementsMatch(t, []int{first.ID(), second.ID()}, []int{in[0].SourceID(), in[1].SourceID()})
	assert.Equal(t, "sources", g.Node(sink.ID()).SlotSharingGroup())
}
