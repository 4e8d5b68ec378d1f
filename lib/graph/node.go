package graph

import (
	"vesta/lib/operators"
	"vesta/vesta"
)

type NodeKind uint8

const (
	SourceNode NodeKind = iota
	OperatorNode
	SinkNode
)

func (k NodeKind) String() string {
	switch k {
	case SourceNode:
		return "source"
	case SinkNode:
		return "sink"
	default:
		return "operator"
	}
}

// StreamNode is one physical operator of the graph, only StreamGraph mutates it
type StreamNode struct {
	id               int
	name             string
	uid              string
	kind             NodeKind
	factory          operators.OperatorFactory
	inputType        *vesta.TypeInfo
	outputType       vesta.TypeInfo
	parallelism      int
	maxParallelism   int
	slotSharingGroup string
	coLocationGroup  string
	inEdges          []*StreamEdge
	outEdges         []*StreamEdge
}

func (n *StreamNode) ID() int                            { return n.id }
func (n *StreamNode) Name() string                       { return n.name }
func (n *StreamNode) UID() string                        { return n.uid }
func (n *StreamNode) Kind() NodeKind                     { return n.kind }
func (n *StreamNode) Factory() operators.OperatorFactory { return n.factory }
func (n *StreamNode) OutputType() vesta.TypeInfo         { return n.outputType }
func (n *StreamNode) Parallelism() int                   { return n.parallelism }
func (n *StreamNode) MaxParallelism() int                { return n.maxParallelism }
func (n *StreamNode) SlotSharingGroup() string           { return n.slotSharingGroup }
func (n *StreamNode) CoLocationGroup() string            { return n.coLocationGroup }

// InputType is nil for sources
func (n *StreamNode) InputType() *vesta.TypeInfo {
	return n.inputType
}

func (n *StreamNode) InEdges() []*StreamEdge {
	return append([]*StreamEdge(nil), n.inEdges...)
}

func (n *StreamNode) OutEdges() []*StreamEdge {
	return append([]*StreamEdge(nil), n.outEdges...)
}

type Partitioner uint8

const (
	//Forward keeps subtask i talking to subtask i
	Forward Partitioner = iota
	//Rebalance distributes round robin over every downstream subtask
	Rebalance
)

func (p Partitioner) String() string {
	if p == Rebalance {
		return "rebalance"
	}
	return "forward"
}

type StreamEdge struct {
	source *StreamNode
	target *StreamNode
}

func (e *StreamEdge) SourceID() int {
	return e.source.id
}

func (e *StreamEdge) TargetID() int {
	return e.target.id
}

// Partitioner is forward between nodes of equal parallelism
func (e *StreamEdge) Partitioner() Partitioner {
	if e.source.parallelism == e.target.parallelism {
		return Forward
	}
	return Rebalance
}
