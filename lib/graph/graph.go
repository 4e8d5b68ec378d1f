package graph

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"vesta/lib/operators"
	"vesta/vesta"
)

var (
	ErrDuplicateNode = fmt.Errorf("node already exists")
	ErrNodeNotFound  = fmt.Errorf("node not found")
	ErrNilFactory    = fmt.Errorf("operator factory is nil")
	ErrSelfLoop      = fmt.Errorf("edge connects a node to itself")
	ErrCycle         = fmt.Errorf("cycle detected")
	ErrParallelism   = fmt.Errorf("parallelism must be positive")
)

// StreamGraph is the physical plan the translators build, it is not safe for concurrent use
type StreamGraph struct {
	config  vesta.ExecutionConfig
	nodes   map[int]*StreamNode
	sources []int
	sinks   []int
}

func New(config vesta.ExecutionConfig) *StreamGraph {
	return &StreamGraph{config: config, nodes: map[int]*StreamNode{}}
}

func (g *StreamGraph) ExecutionConfig() vesta.ExecutionConfig {
	return g.config
}

func (g *StreamGraph) AddSource(id int, slotSharingGroup, coLocationGroup string, factory operators.OperatorFactory,
	inType *vesta.TypeInfo, outType vesta.TypeInfo, name string) error {
	if err := g.addNode(SourceNode, id, slotSharingGroup, coLocationGroup, factory, inType, outType, name); err != nil {
		return err
	}
	g.sources = append(g.sources, id)
	return nil
}

func (g *StreamGraph) AddOperator(id int, slotSharingGroup, coLocationGroup string, factory operators.OperatorFactory,
	inType *vesta.TypeInfo, outType vesta.TypeInfo, name string) error {
	return g.addNode(OperatorNode, id, slotSharingGroup, coLocationGroup, factory, inType, outType, name)
}

func (g *StreamGraph) AddSink(id int, slotSharingGroup, coLocationGroup string, factory operators.OperatorFactory,
	inType *vesta.TypeInfo, outType vesta.TypeInfo, name string) error {
	if err := g.addNode(SinkNode, id, slotSharingGroup, coLocationGroup, factory, inType, outType, name); err != nil {
		return err
	}
	g.sinks = append(g.sinks, id)
	return nil
}

// addNode hands the types to the factory and seals it
func (g *StreamGraph) addNode(kind NodeKind, id int, slotSharingGroup, coLocationGroup string, factory operators.OperatorFactory,
	inType *vesta.TypeInfo, outType vesta.TypeInfo, name string) error {
	if _, ok := g.nodes[id]; ok {
		return errors.WithMessagef(ErrDuplicateNode, "%d (%s)", id, name)
	}
	if factory == nil {
		return errors.WithMessagef(ErrNilFactory, "%d (%s)", id, name)
	}
	if inType != nil && factory.IsInputTypeConfigurable() {
		if err := factory.SetInputType(*inType, g.config); err != nil {
			return err
		}
	}
	if factory.IsOutputTypeConfigurable() {
		if err := factory.SetOutputType(outType, g.config); err != nil {
			return err
		}
	}
	factory.Seal()
	g.nodes[id] = &StreamNode{
		id:               id,
		name:             name,
		kind:             kind,
		factory:          factory,
		inputType:        inType,
		outputType:       outType,
		parallelism:      g.config.Parallelism,
		maxParallelism:   vesta.ParallelismDefault,
		slotSharingGroup: slotSharingGroup,
		coLocationGroup:  coLocationGroup,
	}
	return nil
}

func (g *StreamGraph) AddEdge(upstreamID, downstreamID int) error {
	if upstreamID == downstreamID {
		return errors.WithMessagef(ErrSelfLoop, "%d", upstreamID)
	}
	upstream, downstream := g.nodes[upstreamID], g.nodes[downstreamID]
	if upstream == nil {
		return errors.WithMessagef(ErrNodeNotFound, "upstream %d", upstreamID)
	}
	if downstream == nil {
		return errors.WithMessagef(ErrNodeNotFound, "downstream %d", downstreamID)
	}
	edge := &StreamEdge{source: upstream, target: downstream}
	upstream.outEdges = append(upstream.outEdges, edge)
	downstream.inEdges = append(downstream.inEdges, edge)
	return nil
}

func (g *StreamGraph) SetParallelism(id, parallelism int) error {
	node := g.nodes[id]
	if node == nil {
		return errors.WithMessagef(ErrNodeNotFound, "%d", id)
	}
	if parallelism < 1 {
		return errors.WithMessagef(ErrParallelism, "%s: %d", node.name, parallelism)
	}
	node.parallelism = parallelism
	return nil
}

// SetMaxParallelism accepts vesta.ParallelismDefault for unset
func (g *StreamGraph) SetMaxParallelism(id, maxParallelism int) error {
	node := g.nodes[id]
	if node == nil {
		return errors.WithMessagef(ErrNodeNotFound, "%d", id)
	}
	if maxParallelism != vesta.ParallelismDefault && maxParallelism < 1 {
		return errors.WithMessagef(ErrParallelism, "%s max: %d", node.name, maxParallelism)
	}
	node.maxParallelism = maxParallelism
	return nil
}

// SetUID records the configuration section of the node
func (g *StreamGraph) SetUID(id int, uid string) error {
	node := g.nodes[id]
	if node == nil {
		return errors.WithMessagef(ErrNodeNotFound, "%d", id)
	}
	node.uid = uid
	return nil
}

func (g *StreamGraph) Node(id int) *StreamNode {
	return g.nodes[id]
}

// Nodes are ordered by id
func (g *StreamGraph) Nodes() []*StreamNode {
	nodes := make([]*StreamNode, 0, len(g.nodes))
	for _, node := range g.nodes {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].id < nodes[j].id
	})
	return nodes
}

func (g *StreamGraph) SourceIDs() []int {
	return append([]int(nil), g.sources...)
}

func (g *StreamGraph) SinkIDs() []int {
	return append([]int(nil), g.sinks...)
}

// IsChainable tells whether the target of edge could run in the task of its source
func (g *StreamGraph) IsChainable(edge *StreamEdge) bool {
	upstream, downstream := edge.source, edge.target
	if len(downstream.inEdges) != 1 || upstream.parallelism != downstream.parallelism {
		return false
	}
	if upstream.slotSharingGroup != downstream.slotSharingGroup {
		return false
	}
	if downstream.factory.ChainingStrategy() != vesta.ChainAlways {
		return false
	}
	switch upstream.factory.ChainingStrategy() {
	case vesta.ChainAlways, vesta.ChainHead:
		return true
	case vesta.ChainHeadWithSources:
		return upstream.kind == SourceNode
	default:
		return false
	}
}

// TopologicalOrder returns upstream nodes before their consumers
func (g *StreamGraph) TopologicalOrder() ([]*StreamNode, error) {
	visiting := make(map[int]bool)
	visited := make(map[int]bool)
	order := make([]*StreamNode, 0, len(g.nodes))

	var visit func(node *StreamNode) error
	visit = func(node *StreamNode) error {
		visiting[node.id] = true
		for _, edge := range node.inEdges {
			upstream := edge.source
			if visiting[upstream.id] {
				return errors.WithMessagef(ErrCycle, "involving %s", upstream.name)
			}
			if !visited[upstream.id] {
				if err := visit(upstream); err != nil {
					return err
				}
			}
		}
		delete(visiting, node.id)
		visited[node.id] = true
		order = append(order, node)
		return nil
	}

	for _, node := range g.Nodes() {
		if !visited[node.id] {
			if err := visit(node); err != nil {
				return nil, err
			}
		}
	}
	return order, nil
}

// Render prints the plan as a table
func (g *StreamGraph) Render() string {
	buffer := &bytes.Buffer{}
	tWriter := tablewriter.NewWriter(buffer)
	tWriter.SetHeader([]string{"id", "name", "kind", "factory", "parallelism", "max-parallelism", "chaining", "slot-sharing-group", "inputs"})
	tWriter.SetAutoFormatHeaders(false)
	tWriter.SetAutoWrapText(false)
	for _, node := range g.Nodes() {
		inputs := make([]string, 0, len(node.inEdges))
		for _, edge := range node.inEdges {
			input := fmt.Sprintf("%d(%s)", edge.source.id, edge.Partitioner())
			if g.IsChainable(edge) {
				input += "*"
			}
			inputs = append(inputs, input)
		}
		maxParallelism := "-"
		if node.maxParallelism != vesta.ParallelismDefault {
			maxParallelism = strconv.Itoa(node.maxParallelism)
		}
		tWriter.Append([]string{
			strconv.Itoa(node.id),
			node.name,
			node.kind.String(),
			node.factory.Capability().String(),
			strconv.Itoa(node.parallelism),
			maxParallelism,
			node.factory.ChainingStrategy().String(),
			node.slotSharingGroup,
			strings.Join(inputs, ","),
		})
	}
	tWriter.Render()
	return buffer.String()
}
