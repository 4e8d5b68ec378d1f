package vesta

import (
	_c "context"
)

type Context interface {
	//Ctx is origin context
	Ctx() _c.Context
	//Name is current context name
	Name() string
	Named(string) Context
	Properties() Properties

	//Store and Load is kv Storage function
	Store(key string, value interface{})
	Load(key string) (interface{}, bool)

	Done() <-chan struct{}
	Cancel()
}

// RuntimeContext is the Context handed to user functions of a running subtask
type RuntimeContext interface {
	Context
	TaskName() string
	SubtaskIndex() int
	Parallelism() int
}
