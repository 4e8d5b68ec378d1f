package vesta

import (
	"fmt"
	"math"
	"time"
)

// Event is not thread safety
type Event struct {
	Meta    map[string]any `json:"meta"`
	Message any            `json:"message"`
	Time    time.Time      `json:"time"`
}

func (e *Event) Type() ElementType {
	return EventElement
}

type ElementType uint8

const (
	EventElement ElementType = iota
	WatermarkElement
	WatermarkStatusElement
	EndOfInputElement
)

// Element is anything that travels on an edge of the stream graph
type Element interface {
	Type() ElementType
}

// Watermark is an event time in unix milliseconds, no event with a smaller timestamp is expected after it
type Watermark int64

const (
	MinWatermark Watermark = math.MinInt64
	MaxWatermark Watermark = math.MaxInt64
)

func (w Watermark) Type() ElementType {
	return WatermarkElement
}

func (w Watermark) String() string {
	switch w {
	case MinWatermark:
		return "-inf"
	case MaxWatermark:
		return "+inf"
	default:
		return fmt.Sprintf("%d", int64(w))
	}
}

type WatermarkStatus uint8

const (
	ActiveStatus WatermarkStatus = iota
	IdleStatus
)

func (s WatermarkStatus) Type() ElementType {
	return WatermarkStatusElement
}

func (s WatermarkStatus) IsIdle() bool {
	return s == IdleStatus
}

func (s WatermarkStatus) String() string {
	if s == IdleStatus {
		return "idle"
	}
	return "active"
}

// EndOfInput is sent downstream once an upstream subtask has finished
type EndOfInput struct{}

func (EndOfInput) Type() ElementType {
	return EndOfInputElement
}

// Output is where an operator pushes what it produced
type Output interface {
	Collect(event *Event)
	EmitWatermark(watermark Watermark)
	EmitWatermarkStatus(status WatermarkStatus)
}
