package context

import (
	_c "context"
	"strings"
	"sync"

	"vesta/vesta"
)

type context struct {
	ctx    _c.Context
	v      vesta.Properties
	cancel _c.CancelFunc
	kv     *sync.Map
	name   string
}

func (c *context) Done() <-chan struct{} {
	return c.ctx.Done()
}

func (c *context) Cancel() {
	c.cancel()
}

func (c *context) Ctx() _c.Context {
	return c.ctx
}

func (c *context) Name() string {
	return c.name
}

// Named derives a child context, cancelling the parent cancels the child
func (c *context) Named(value string) vesta.Context {
	ctx, cancel := _c.WithCancel(c.ctx)
	name := value
	if c.name != "" {
		name = strings.Join([]string{c.name, value}, ".")
	}
	var v vesta.Properties
	if c.v != nil {
		v = c.v.Sub(value)
	}
	return &context{v: v, ctx: ctx, cancel: cancel, name: name, kv: &sync.Map{}}
}

func (c *context) Properties() vesta.Properties {
	return c.v
}

func (c *context) Store(key string, value interface{}) {
	c.kv.Store(key, value)
}

func (c *context) Load(key string) (interface{}, bool) {
	return c.kv.Load(key)
}

func New(ctx _c.Context, properties vesta.Properties) vesta.Context {
	if ctx == nil {
		ctx = _c.Background()
	}
	parent, cancelFunc := _c.WithCancel(ctx)
	return &context{ctx: parent, v: properties, cancel: cancelFunc, name: "", kv: &sync.Map{}}
}

type runtimeContext struct {
	vesta.Context
	taskName     string
	subtaskIndex int
	parallelism  int
}

func (r *runtimeContext) TaskName() string {
	return r.taskName
}

func (r *runtimeContext) SubtaskIndex() int {
	return r.subtaskIndex
}

func (r *runtimeContext) Parallelism() int {
	return r.parallelism
}

// NewRuntime wraps the context of one subtask of the task named taskName
func NewRuntime(ctx vesta.Context, taskName string, subtaskIndex, parallelism int) vesta.RuntimeContext {
	return &runtimeContext{Context: ctx, taskName: taskName, subtaskIndex: subtaskIndex, parallelism: parallelism}
}
