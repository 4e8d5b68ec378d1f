package runtime

import (
	_c "context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"gopkg.in/tomb.v2"
	"vesta/lib/context"
	"vesta/lib/graph"
	"vesta/lib/log"
	"vesta/lib/operators"
	"vesta/lib/pipeline"
	"vesta/lib/properties"
	"vesta/lib/timer"
	"vesta/pkg/constant"
	"vesta/vesta"
)

var ErrNoInputs = fmt.Errorf("node has no inputs")

// Options are the runtime settings of the global section that the graph does not carry
type Options struct {
	IdleBackoff   time.Duration
	ChannelBuffer int
	MailboxSize   int
}

func DefaultOptions() Options {
	return Options{
		IdleBackoff:   constant.RuntimeIdleBackoffProperty.Default().(time.Duration),
		ChannelBuffer: constant.RuntimeChannelBufferProperty.Default().(int),
		MailboxSize:   constant.RuntimeMailboxSizeProperty.Default().(int),
	}
}

// OptionsFrom reads an initialized global section
func OptionsFrom(global vesta.Properties) Options {
	options := DefaultOptions()
	if global == nil {
		return options
	}
	if backoff := global.GetDuration(constant.RuntimeIdleBackoffProperty); backoff > 0 {
		options.IdleBackoff = backoff
	}
	options.ChannelBuffer = global.GetInt(constant.RuntimeChannelBufferProperty)
	if size := global.GetInt(constant.RuntimeMailboxSizeProperty); size > 0 {
		options.MailboxSize = size
	}
	return options
}

// Runtime executes a stream graph locally, one goroutine per node subtask
type Runtime struct {
	ctx     vesta.Context
	logger  vesta.Logger
	graph   *graph.StreamGraph
	options Options
	life    *tomb.Tomb
	pool    *ants.Pool
	tasks   []*task
}

// New creates and sets up the operators of every subtask of g. Subtasks read their
// properties from the section named after the node uid, like "source.gen".
func New(ctx vesta.Context, g *graph.StreamGraph, options Options) (_ *Runtime, err error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	r := &Runtime{
		ctx:     ctx,
		logger:  log.Named("runtime"),
		graph:   g,
		options: options,
	}
	r.life, _ = tomb.WithContext(ctx.Ctx())
	defer func() {
		if err != nil {
			for _, t := range r.tasks {
				t.timeService.Shutdown()
			}
		}
	}()

	tasksOf := map[int][]*task{}
	for _, node := range order {
		for i := 0; i < node.Parallelism(); i++ {
			t, err := r.newTask(node, i)
			if err != nil {
				return nil, err
			}
			tasksOf[node.ID()] = append(tasksOf[node.ID()], t)
			r.tasks = append(r.tasks, t)
		}
	}
	for _, node := range order {
		for _, edge := range node.OutEdges() {
			downstream := tasksOf[edge.TargetID()]
			for i, upstream := range tasksOf[node.ID()] {
				outEdge := &outputEdge{partitioner: edge.Partitioner()}
				if outEdge.partitioner == graph.Forward {
					outEdge.targets = []target{{task: downstream[i], channel: downstream[i].newChannel()}}
				} else {
					for _, down := range downstream {
						outEdge.targets = append(outEdge.targets, target{task: down, channel: down.newChannel()})
					}
					outEdge.next = i % len(downstream)
				}
				upstream.output.edges = append(upstream.output.edges, outEdge)
			}
		}
	}
	for _, t := range r.tasks {
		if t.node.Kind() != graph.SourceNode && t.inputs == 0 {
			return nil, errors.WithMessage(ErrNoInputs, t.String())
		}
	}

	if r.pool, err = ants.NewPool(len(r.tasks),
		ants.WithLogger(&log.StdLogger{Logger: r.logger}),
		ants.WithPanicHandler(func(p interface{}) {
			r.logger.Errorw("task panic.", "panic", p)
		})); err != nil {
		return nil, errors.WithMessage(err, "failed to create task pool")
	}
	return r, nil
}

func (r *Runtime) newTask(node *graph.StreamNode, subtaskIndex int) (*task, error) {
	name := node.UID()
	if name == "" {
		name = fmt.Sprintf("node-%d", node.ID())
	}
	ctx := context.NewRuntime(r.ctx.Named(name), node.Name(), subtaskIndex, node.Parallelism())
	logger := log.Ctx(ctx)
	mailbox := timer.NewMailbox(r.options.MailboxSize)
	t := &task{
		name:         node.Name(),
		node:         node,
		subtaskIndex: subtaskIndex,
		ctx:          ctx,
		logger:       logger,
		output:       &output{dying: r.life.Dying()},
		inbox:        make(chan record, r.options.ChannelBuffer),
		mailbox:      mailbox,
		timeService:  timer.New(mailbox, logger),
		idleBackoff:  r.options.IdleBackoff,
	}
	config := r.graph.ExecutionConfig()
	operator, err := node.Factory().Create(operators.Parameters{
		ContainingTask: ctx,
		Config: &operators.StreamConfig{
			NodeID:                node.ID(),
			OperatorName:          node.Name(),
			UID:                   node.UID(),
			InputType:             node.InputType(),
			OutputType:            node.OutputType(),
			ChainingStrategy:      node.Factory().ChainingStrategy(),
			AutoWatermarkInterval: config.AutoWatermarkInterval,
			RuntimeMode:           config.RuntimeMode,
		},
		Output:                t.output,
		ProcessingTimeService: t.timeService,
	})
	if err != nil {
		t.timeService.Shutdown()
		return nil, errors.WithMessagef(err, "failed to create operator of %s", t)
	}
	t.operator = operator
	return t, nil
}

// Run blocks until every subtask finished, one failed or the runtime was stopped
func (r *Runtime) Run() error {
	defer r.pool.Release()
	r.logger.Infow("starting runtime.", "tasks", len(r.tasks), "mode", r.graph.ExecutionConfig().RuntimeMode)
	for _, t := range r.tasks {
		_task := t
		r.life.Go(func() error {
			done := make(chan error, 1)
			if err := r.pool.Submit(func() {
				defer func() {
					if p := recover(); p != nil {
						done <- errors.Errorf("%s panic: %v", _task, p)
					}
				}()
				done <- _task.run(r.life.Dying())
			}); err != nil {
				return errors.WithMessagef(err, "failed to submit %s", _task)
			}
			err := <-done
			if err != nil {
				r.logger.Errorw("failed run task.", "task", _task.String(), "err", err)
			}
			return err
		})
	}
	err := r.life.Wait()
	if errors.Is(err, _c.Canceled) {
		err = nil
	}
	if err != nil {
		return err
	}
	r.logger.Info("runtime is complete.")
	return nil
}

// Stop cancels every subtask, Run returns once they have closed
func (r *Runtime) Stop() {
	r.life.Kill(nil)
}

// NotifySignal stops the runtime on SIGHUP, SIGINT, SIGTERM or SIGQUIT
func (r *Runtime) NotifySignal() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		defer signal.Stop(c)
		select {
		case s := <-c:
			r.logger.Infof("notify system signal %s, done.", s)
			r.Stop()
		case <-r.life.Dead():
		}
	}()
}

// Load builds, compiles and sets up the pipeline declared in a properties file
func Load(originCtx _c.Context, propertiesName string, propertiesType string, propertiesPath ...string) (*Runtime, error) {
	ps, err := properties.Load(propertiesName, propertiesType, propertiesPath...)
	if err != nil {
		return nil, err
	}
	return NewFromProperties(originCtx, ps)
}

func NewFromProperties(originCtx _c.Context, ps vesta.Properties) (*Runtime, error) {
	p, err := pipeline.Build(ps)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to build pipeline")
	}
	g, err := p.Compile()
	if err != nil {
		return nil, errors.WithMessage(err, "failed to compile pipeline")
	}
	log.Named("runtime").Infof("stream graph:\n%s", g.Render())
	return New(context.New(originCtx, ps), g, OptionsFrom(ps.Global()))
}
