package translator

import (
	"fmt"

	"github.com/pkg/errors"
	"vesta/lib/graph"
	"vesta/lib/operators"
	"vesta/lib/transformation"
	"vesta/vesta"
)

var (
	ErrNilTransformation         = fmt.Errorf("transformation is nil")
	ErrNilContext                = fmt.Errorf("translation context is nil")
	ErrUnsupportedTransformation = fmt.Errorf("no translator for transformation")
)

// Context is what a translator sees of the graph being generated
type Context interface {
	StreamGraph() *graph.StreamGraph
	//SlotSharingGroup is the group resolved for the transformation being translated
	SlotSharingGroup() string
	ExecutionConfig() vesta.ExecutionConfig
	//StreamNodeIDs returns the nodes an already translated transformation became
	StreamNodeIDs(t transformation.Transformation) []int
}

// Translator turns one kind of transformation into stream nodes.
// Batch and streaming only differ in whether sources emit progressive watermarks.
type Translator interface {
	TranslateForBatch(t transformation.Transformation, ctx Context) ([]int, error)
	TranslateForStreaming(t transformation.Transformation, ctx Context) ([]int, error)
}

type translateFunc func(t transformation.Transformation, ctx Context, emitProgressiveWatermarks bool) ([]int, error)

type translator struct {
	translate translateFunc
}

func (tr translator) TranslateForBatch(t transformation.Transformation, ctx Context) ([]int, error) {
	return tr.translate(t, ctx, false)
}

func (tr translator) TranslateForStreaming(t transformation.Transformation, ctx Context) ([]int, error) {
	return tr.translate(t, ctx, true)
}

func checkArgs(t transformation.Transformation, ctx Context) error {
	if t == nil {
		return ErrNilTransformation
	}
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

func unsupported(t transformation.Transformation) error {
	return errors.WithMessagef(ErrUnsupportedTransformation, "%T", t)
}

// resolveParallelism falls back to the execution default, max parallelism has no fallback
func resolveParallelism(t transformation.Transformation, ctx Context) (int, int) {
	parallelism := t.Parallelism()
	if parallelism == vesta.ParallelismDefault {
		parallelism = ctx.ExecutionConfig().Parallelism
	}
	return parallelism, t.MaxParallelism()
}

func configureNode(t transformation.Transformation, ctx Context) error {
	g := ctx.StreamGraph()
	parallelism, maxParallelism := resolveParallelism(t, ctx)
	if err := g.SetParallelism(t.ID(), parallelism); err != nil {
		return err
	}
	if err := g.SetMaxParallelism(t.ID(), maxParallelism); err != nil {
		return err
	}
	return g.SetUID(t.ID(), t.UID())
}

func wireInputs(t transformation.Transformation, ctx Context) error {
	for _, input := range t.Inputs() {
		for _, upstreamID := range ctx.StreamNodeIDs(input) {
			if err := ctx.StreamGraph().AddEdge(upstreamID, t.ID()); err != nil {
				return err
			}
		}
	}
	return nil
}

// NewSourceTranslator translates *transformation.Source into a SourceOperatorFactory node
func NewSourceTranslator() Translator {
	return translator{translate: func(t transformation.Transformation, ctx Context, emitProgressiveWatermarks bool) ([]int, error) {
		if err := checkArgs(t, ctx); err != nil {
			return nil, err
		}
		source, ok := t.(*transformation.Source)
		if !ok || source == nil {
			return nil, unsupported(t)
		}
		factory, err := operators.NewSourceOperatorFactory(source.Source(), source.WatermarkStrategy(), emitProgressiveWatermarks)
		if err != nil {
			return nil, err
		}
		if err = factory.SetChainingStrategy(source.ChainingStrategy()); err != nil {
			return nil, err
		}
		if err = ctx.StreamGraph().AddSource(source.ID(), ctx.SlotSharingGroup(), source.CoLocationGroupKey(),
			factory, nil, source.OutputType(), "Source: "+source.Name()); err != nil {
			return nil, err
		}
		if err = configureNode(source, ctx); err != nil {
			return nil, err
		}
		return []int{source.ID()}, nil
	}}
}

func NewLegacySourceTranslator() Translator {
	return translator{translate: func(t transformation.Transformation, ctx Context, _ bool) ([]int, error) {
		if err := checkArgs(t, ctx); err != nil {
			return nil, err
		}
		source, ok := t.(*transformation.LegacySource)
		if !ok || source == nil {
			return nil, unsupported(t)
		}
		factory, err := operators.Of(source.Operator())
		if err != nil {
			return nil, err
		}
		if err = factory.SetChainingStrategy(source.ChainingStrategy()); err != nil {
			return nil, err
		}
		if err = ctx.StreamGraph().AddSource(source.ID(), ctx.SlotSharingGroup(), source.CoLocationGroupKey(),
			factory, nil, source.OutputType(), "Source: "+source.Name()); err != nil {
			return nil, err
		}
		if err = configureNode(source, ctx); err != nil {
			return nil, err
		}
		return []int{source.ID()}, nil
	}}
}

func NewOneInputTranslator() Translator {
	return translator{translate: func(t transformation.Transformation, ctx Context, _ bool) ([]int, error) {
		if err := checkArgs(t, ctx); err != nil {
			return nil, err
		}
		oneInput, ok := t.(*transformation.OneInput)
		if !ok || oneInput == nil {
			return nil, unsupported(t)
		}
		factory, err := operators.Of(oneInput.Operator())
		if err != nil {
			return nil, err
		}
		if err = factory.SetChainingStrategy(oneInput.ChainingStrategy()); err != nil {
			return nil, err
		}
		inputType := oneInput.InputType()
		if err = ctx.StreamGraph().AddOperator(oneInput.ID(), ctx.SlotSharingGroup(), oneInput.CoLocationGroupKey(),
			factory, &inputType, oneInput.OutputType(), oneInput.Name()); err != nil {
			return nil, err
		}
		if err = configureNode(oneInput, ctx); err != nil {
			return nil, err
		}
		if err = wireInputs(oneInput, ctx); err != nil {
			return nil, err
		}
		return []int{oneInput.ID()}, nil
	}}
}

func NewSinkTranslator() Translator {
	return translator{translate: func(t transformation.Transformation, ctx Context, _ bool) ([]int, error) {
		if err := checkArgs(t, ctx); err != nil {
			return nil, err
		}
		sink, ok := t.(*transformation.Sink)
		if !ok || sink == nil {
			return nil, unsupported(t)
		}
		factory, err := operators.Of(sink.Operator())
		if err != nil {
			return nil, err
		}
		if err = factory.SetChainingStrategy(sink.ChainingStrategy()); err != nil {
			return nil, err
		}
		inputType := sink.Input().OutputType()
		if err = ctx.StreamGraph().AddSink(sink.ID(), ctx.SlotSharingGroup(), sink.CoLocationGroupKey(),
			factory, &inputType, sink.OutputType(), "Sink: "+sink.Name()); err != nil {
			return nil, err
		}
		if err = configureNode(sink, ctx); err != nil {
			return nil, err
		}
		if err = wireInputs(sink, ctx); err != nil {
			return nil, err
		}
		return []int{sink.ID()}, nil
	}}
}

// NewUnionTranslator adds no node, consumers of a union are wired to every node of its inputs
func NewUnionTranslator() Translator {
	return translator{translate: func(t transformation.Transformation, ctx Context, _ bool) ([]int, error) {
		if err := checkArgs(t, ctx); err != nil {
			return nil, err
		}
		union, ok := t.(*transformation.Union)
		if !ok || union == nil {
			return nil, unsupported(t)
		}
		var ids []int
		seen := map[int]bool{}
		for _, input := range union.Inputs() {
			for _, id := range ctx.StreamNodeIDs(input) {
				if !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
			}
		}
		return ids, nil
	}}
}
