package vesta

// Component is the lifecycle every user provided piece of logic shares
type Component interface {
	//Open initialize the component
	Open(ctx Context) error
	//Close cleaning up after the context done.
	Close() error
	//PropertiesDef return Component properties defend
	PropertiesDef() PropertiesDef
}

type Boundedness uint8

const (
	Bounded Boundedness = iota
	ContinuousUnbounded
)

type InputStatus uint8

const (
	MoreAvailable InputStatus = iota
	NothingAvailable
	EndOfInputStatus
)

// ReaderContext identifies the subtask a SourceReader reads for
type ReaderContext struct {
	SubtaskIndex int
	Parallelism  int
}

type ReaderOutput interface {
	Collect(event *Event)
}

// SourceReader is owned by exactly one subtask
type SourceReader interface {
	//PollNext must not block, NothingAvailable asks the task to come back later
	PollNext(output ReaderOutput) (InputStatus, error)
	Close() error
}

// Source is the pull based source, one SourceReader per subtask
type Source interface {
	Component
	Boundedness() Boundedness
	CreateReader(ctx ReaderContext) (SourceReader, error)
}

type InputSplit interface {
	SplitNumber() int
}

// InputFormat reads a bounded input split by split
type InputFormat interface {
	Component
	CreateSplits(minNumSplits int) ([]InputSplit, error)
	OpenSplit(split InputSplit) error
	ReachedEnd() bool
	NextRecord() (*Event, error)
	CloseSplit() error
}

type OutputFormat interface {
	Component
	WriteRecord(event *Event) error
}

type SinkFunction interface {
	Component
	Invoke(event *Event) error
}

type Collector interface {
	Collect(event *Event)
}

type MapFunction interface {
	Component
	Map(event *Event) (*Event, error)
}

type FilterFunction interface {
	Component
	Filter(event *Event) (bool, error)
}

type FlatMapFunction interface {
	Component
	FlatMap(event *Event, out Collector) error
}

type NewSourceFunc func() Source
type NewInputFormatFunc func() InputFormat
type NewOutputFormatFunc func() OutputFormat
type NewSinkFunc func() SinkFunction

// NewFunctionFunc returns a MapFunction, FilterFunction or FlatMapFunction
type NewFunctionFunc func() Component

// Configurable components receive their validated properties while the pipeline is built,
// before the graph is compiled and long before Open
type Configurable interface {
	Configure(properties Properties) error
}
