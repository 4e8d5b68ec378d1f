package vesta

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// ParallelismDefault marks a transformation that did not declare its parallelism
const ParallelismDefault = -1

type RuntimeMode uint8

const (
	Streaming RuntimeMode = iota
	Batch
)

func (m RuntimeMode) String() string {
	if m == Batch {
		return "batch"
	}
	return "streaming"
}

func ParseRuntimeMode(s string) (RuntimeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "streaming":
		return Streaming, nil
	case "batch":
		return Batch, nil
	default:
		return Streaming, fmt.Errorf("unknown runtime mode %q", s)
	}
}

// ChainingStrategy tells whether an operator may be fused with its neighbours
type ChainingStrategy uint8

const (
	ChainAlways ChainingStrategy = iota
	ChainNever
	ChainHead
	ChainHeadWithSources
)

var chainingStrategyNames = map[ChainingStrategy]string{
	ChainAlways:          "always",
	ChainNever:           "never",
	ChainHead:            "head",
	ChainHeadWithSources: "head-with-sources",
}

func (c ChainingStrategy) String() string {
	if name, ok := chainingStrategyNames[c]; ok {
		return name
	}
	return fmt.Sprintf("chaining(%d)", uint8(c))
}

func ParseChainingStrategy(s string) (ChainingStrategy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for strategy, name := range chainingStrategyNames {
		if name == s {
			return strategy, nil
		}
	}
	return ChainAlways, fmt.Errorf("unknown chaining strategy %q", s)
}

// TypeInfo describes the records flowing out of (or into) a node
type TypeInfo struct {
	Name string
}

func (t TypeInfo) String() string {
	return t.Name
}

func TypeOf[T any]() TypeInfo {
	var t T
	return TypeInfo{Name: reflect.TypeOf(&t).Elem().String()}
}

// EventType is the type of every record produced by the built-in components
var EventType = TypeOf[*Event]()

type ExecutionConfig struct {
	Parallelism           int
	MaxParallelism        int
	AutoWatermarkInterval time.Duration
	RuntimeMode           RuntimeMode
}

func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{
		Parallelism:           1,
		MaxParallelism:        ParallelismDefault,
		AutoWatermarkInterval: 200 * time.Millisecond,
		RuntimeMode:           Streaming,
	}
}
