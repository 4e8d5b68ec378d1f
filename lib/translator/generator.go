package translator

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
	"vesta/lib/graph"
	"vesta/lib/log"
	"vesta/lib/transformation"
	"vesta/vesta"
)

// DefaultSlotSharingGroup is used when neither the transformation nor its inputs name one
const DefaultSlotSharingGroup = "default"

var ErrUnboundedSourceInBatch = fmt.Errorf("unbounded source in batch mode")

type context struct {
	graph            *graph.StreamGraph
	slotSharingGroup string
	nodeIDs          map[int][]int
}

// NewContext is a Context over g where nodeIDs maps transformation ids to their node ids
func NewContext(g *graph.StreamGraph, slotSharingGroup string, nodeIDs map[int][]int) Context {
	if nodeIDs == nil {
		nodeIDs = map[int][]int{}
	}
	return &context{graph: g, slotSharingGroup: slotSharingGroup, nodeIDs: nodeIDs}
}

func (c *context) StreamGraph() *graph.StreamGraph {
	return c.graph
}

func (c *context) SlotSharingGroup() string {
	return c.slotSharingGroup
}

func (c *context) ExecutionConfig() vesta.ExecutionConfig {
	return c.graph.ExecutionConfig()
}

func (c *context) StreamNodeIDs(t transformation.Transformation) []int {
	return c.nodeIDs[t.ID()]
}

// Generator translates transformations into a StreamGraph, inputs before their consumers
type Generator struct {
	config          vesta.ExecutionConfig
	transformations []transformation.Transformation
	translators     map[reflect.Type]Translator
	logger          vesta.Logger

	graph              *graph.StreamGraph
	alreadyTransformed map[int][]int
}

func NewGenerator(config vesta.ExecutionConfig, transformations ...transformation.Transformation) *Generator {
	g := &Generator{
		config:          config,
		transformations: transformations,
		translators:     map[reflect.Type]Translator{},
		logger:          log.Named("translator"),
	}
	g.Register(&transformation.Source{}, NewSourceTranslator())
	g.Register(&transformation.LegacySource{}, NewLegacySourceTranslator())
	g.Register(&transformation.OneInput{}, NewOneInputTranslator())
	g.Register(&transformation.Sink{}, NewSinkTranslator())
	g.Register(&transformation.Union{}, NewUnionTranslator())
	return g
}

// Register binds translator to the concrete type of kind, replacing any previous one
func (g *Generator) Register(kind transformation.Transformation, translator Translator) {
	g.translators[reflect.TypeOf(kind)] = translator
}

// Generate aborts on the first failing transformation, no partial graph is returned
func (g *Generator) Generate() (*graph.StreamGraph, error) {
	g.graph = graph.New(g.config)
	g.alreadyTransformed = map[int][]int{}
	defer func() {
		g.graph = nil
		g.alreadyTransformed = nil
	}()
	for _, t := range g.transformations {
		if _, err := g.transform(t); err != nil {
			return nil, err
		}
	}
	return g.graph, nil
}

func (g *Generator) transform(t transformation.Transformation) ([]int, error) {
	if t == nil {
		return nil, ErrNilTransformation
	}
	if ids, ok := g.alreadyTransformed[t.ID()]; ok {
		return ids, nil
	}
	translator, ok := g.translators[reflect.TypeOf(t)]
	if !ok {
		return nil, unsupported(t)
	}
	if err := g.checkBoundedness(t); err != nil {
		return nil, err
	}
	for _, input := range t.Inputs() {
		if _, err := g.transform(input); err != nil {
			return nil, err
		}
	}

	ctx := NewContext(g.graph, g.slotSharingGroup(t), g.alreadyTransformed)
	var (
		ids []int
		err error
	)
	if g.config.RuntimeMode == vesta.Batch {
		ids, err = translator.TranslateForBatch(t, ctx)
	} else {
		ids, err = translator.TranslateForStreaming(t, ctx)
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to translate %s", t.Name())
	}
	g.alreadyTransformed[t.ID()] = ids
	g.logger.Debugw("transformation translated.", "name", t.Name(), "id", t.ID(), "nodes", ids, "mode", g.config.RuntimeMode)
	return ids, nil
}

type bounded interface {
	Boundedness() vesta.Boundedness
}

func (g *Generator) checkBoundedness(t transformation.Transformation) error {
	if g.config.RuntimeMode != vesta.Batch {
		return nil
	}
	if b, ok := t.(bounded); ok && b.Boundedness() != vesta.Bounded {
		return errors.WithMessage(ErrUnboundedSourceInBatch, t.Name())
	}
	return nil
}

// slotSharingGroup prefers the declared group, then the group all inputs agree on
func (g *Generator) slotSharingGroup(t transformation.Transformation) string {
	if group := t.SlotSharingGroup(); group != "" {
		return group
	}
	group := ""
	for _, input := range t.Inputs() {
		for _, id := range g.alreadyTransformed[input.ID()] {
			inputGroup := g.graph.Node(id).SlotSharingGroup()
			if group == "" {
				group = inputGroup
			} else if group != inputGroup {
				return DefaultSlotSharingGroup
			}
		}
	}
	if group == "" {
		return DefaultSlotSharingGroup
	}
	return group
}
