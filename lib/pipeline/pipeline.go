package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"vesta/lib/component"
	"vesta/lib/eventtime"
	"vesta/lib/graph"
	"vesta/lib/log"
	"vesta/lib/operators"
	"vesta/lib/properties"
	"vesta/lib/transformation"
	"vesta/lib/translator"
	"vesta/pkg/constant"
	"vesta/vesta"
)

const (
	SourcePrefix   = "source"
	OperatorPrefix = "operator"
	SinkPrefix     = "sink"
	WatermarkKey   = "watermark"
)

var (
	ErrNoSource            = fmt.Errorf("source has to have at least one")
	ErrNoSink              = fmt.Errorf("sink has to have at least one")
	ErrUnknownType         = fmt.Errorf("unknown component type")
	ErrUnknownInput        = fmt.Errorf("unknown input")
	ErrNoInputs            = fmt.Errorf("inputs is empty")
	ErrSourceInputs        = fmt.Errorf("source can't have inputs")
	ErrCycle               = fmt.Errorf("inputs form a cycle")
	ErrUnknownStrategy     = fmt.Errorf("unknown watermark strategy")
	ErrUnsupportedFunction = fmt.Errorf("function is neither map, filter nor flat map")
)

// Pipeline is the logical topology declared by the source, operator and sink sections
type Pipeline struct {
	config          vesta.ExecutionConfig
	properties      vesta.Properties
	logger          vesta.Logger
	transformations map[string]transformation.Transformation
	building        map[string]bool
	sinks           []transformation.Transformation
}

// ExecutionConfig reads the global section, defaults are applied to it
func ExecutionConfig(global vesta.Properties) (vesta.ExecutionConfig, error) {
	config := vesta.DefaultExecutionConfig()
	if global == nil {
		return config, nil
	}
	if _, err := properties.InitAndRender(global, constant.RuntimePropertiesDef); err != nil {
		return config, errors.WithMessage(err, "can't init global properties")
	}
	mode, err := vesta.ParseRuntimeMode(global.GetString(constant.RuntimeModeProperty))
	if err != nil {
		return config, errors.WithMessage(constant.ErrUnsupportedMode, err.Error())
	}
	config.RuntimeMode = mode
	config.Parallelism = global.GetInt(constant.RuntimeParallelismProperty)
	config.MaxParallelism = global.GetInt(constant.RuntimeMaxParallelismProperty)
	config.AutoWatermarkInterval = global.GetDuration(constant.RuntimeWatermarkIntervalProperty)
	return config, nil
}

// Build creates every declared component and the transformations between them.
// Only transformations reachable from a sink are part of the pipeline.
func Build(ps vesta.Properties) (*Pipeline, error) {
	config, err := ExecutionConfig(ps.Global())
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		config:          config,
		properties:      ps,
		logger:          log.Named("pipeline"),
		transformations: map[string]transformation.Transformation{},
		building:        map[string]bool{},
	}
	if len(p.names(SourcePrefix)) == 0 {
		return nil, ErrNoSource
	}
	sinkNames := p.names(SinkPrefix)
	if len(sinkNames) == 0 {
		return nil, ErrNoSink
	}
	for _, uid := range sinkNames {
		sink, err := p.transformation(uid)
		if err != nil {
			return nil, err
		}
		p.sinks = append(p.sinks, sink)
	}
	for _, uid := range append(p.names(SourcePrefix), p.names(OperatorPrefix)...) {
		if _, ok := p.transformations[uid]; !ok {
			p.logger.Warnw("component is not an input of any sink, skip it.", "component", uid)
		}
	}
	return p, nil
}

func (p *Pipeline) Config() vesta.ExecutionConfig {
	return p.config
}

func (p *Pipeline) Properties() vesta.Properties {
	return p.properties
}

func (p *Pipeline) Sinks() []transformation.Transformation {
	return append([]transformation.Transformation(nil), p.sinks...)
}

// Transformation returns the transformation built for uid, like "operator.filter"
func (p *Pipeline) Transformation(uid string) transformation.Transformation {
	return p.transformations[uid]
}

// Compile translates the pipeline into a stream graph
func (p *Pipeline) Compile() (*graph.StreamGraph, error) {
	return translator.NewGenerator(p.config, p.sinks...).Generate()
}

// names returns the sorted uids of a section, like "source.gen"
func (p *Pipeline) names(prefix string) []string {
	keys := p.properties.PrefixKeys(prefix)
	uids := make([]string, 0, len(keys))
	for _, key := range keys {
		uids = append(uids, prefix+"."+key)
	}
	sort.Strings(uids)
	return uids
}

func (p *Pipeline) transformation(uid string) (transformation.Transformation, error) {
	if t, ok := p.transformations[uid]; ok {
		return t, nil
	}
	if p.building[uid] {
		return nil, errors.WithMessage(ErrCycle, uid)
	}
	p.building[uid] = true
	defer delete(p.building, uid)

	prefix, name, _ := strings.Cut(uid, ".")
	ps := p.properties.Sub(uid)
	if ps == nil || name == "" {
		return nil, errors.WithMessage(ErrUnknownInput, uid)
	}
	var (
		t   transformation.Transformation
		err error
	)
	switch prefix {
	case SourcePrefix:
		t, err = p.source(uid, name, ps)
	case OperatorPrefix:
		t, err = p.operator(uid, name, ps)
	case SinkPrefix:
		t, err = p.sink(uid, name, ps)
	default:
		err = errors.WithMessage(ErrUnknownInput, uid)
	}
	if err != nil {
		return nil, err
	}
	p.transformations[uid] = t
	return t, nil
}

// initAndRender validates the node and component properties of a section together
func (p *Pipeline) initAndRender(uid string, ps vesta.Properties, def vesta.PropertiesDef) error {
	all := append(append(vesta.PropertiesDef{}, constant.NodePropertiesDef...), def...)
	renderText, err := properties.InitAndRender(ps, all)
	if err != nil {
		return errors.WithMessagef(err, "failed to init %s properties", uid)
	}
	p.logger.Infof("init %s:\n%s", uid, renderText)
	return nil
}

func configure(component any, ps vesta.Properties) error {
	if configurable, ok := component.(vesta.Configurable); ok {
		return configurable.Configure(ps)
	}
	return nil
}

func options(uid string, ps vesta.Properties) ([]transformation.Option, error) {
	opts := []transformation.Option{
		transformation.WithUID(uid),
		transformation.WithParallelism(ps.GetInt(constant.ParallelismProperty)),
		transformation.WithMaxParallelism(ps.GetInt(constant.MaxParallelismProperty)),
		transformation.WithSlotSharingGroup(ps.GetString(constant.SlotSharingGroupProperty)),
		transformation.WithCoLocationGroupKey(ps.GetString(constant.CoLocationGroupProperty)),
	}
	if chaining := ps.GetString(constant.ChainingProperty); chaining != "" {
		strategy, err := vesta.ParseChainingStrategy(chaining)
		if err != nil {
			return nil, errors.WithMessage(err, uid)
		}
		opts = append(opts, transformation.WithChainingStrategy(strategy))
	}
	return opts, nil
}

// WatermarkStrategy reads the watermark section of a source, no section means no watermarks
func WatermarkStrategy(ps vesta.Properties) (eventtime.WatermarkStrategy, error) {
	if ps == nil {
		return eventtime.ForNoWatermarks(), nil
	}
	if _, err := properties.InitAndRender(ps, constant.WatermarkPropertiesDef); err != nil {
		return eventtime.WatermarkStrategy{}, err
	}
	var strategy eventtime.WatermarkStrategy
	switch name := ps.GetString(constant.WatermarkStrategyProperty); name {
	case "bounded":
		strategy = eventtime.ForBoundedOutOfOrderness(ps.GetDuration(constant.OutOfOrdernessProperty))
	case "monotonous":
		strategy = eventtime.ForMonotonousTimestamps()
	case "none":
		strategy = eventtime.ForNoWatermarks()
	default:
		return eventtime.WatermarkStrategy{}, errors.WithMessage(ErrUnknownStrategy, name)
	}
	idleTimeout, err := eventtime.ParseDuration(ps.GetString(constant.IdleTimeoutProperty))
	if err != nil {
		return eventtime.WatermarkStrategy{}, err
	}
	if idleTimeout > 0 {
		strategy = strategy.WithIdleness(idleTimeout)
	}
	return strategy, nil
}

func (p *Pipeline) source(uid, name string, ps vesta.Properties) (transformation.Transformation, error) {
	if len(ps.GetStringSlice(constant.InputsProperty)) > 0 {
		return nil, errors.WithMessage(ErrSourceInputs, uid)
	}
	_type := ps.GetString(constant.TypeProperty)
	if newSource := component.NewSourceFunc(_type); newSource != nil {
		source := newSource()
		if err := p.initAndRender(uid, ps, source.PropertiesDef()); err != nil {
			return nil, err
		}
		if err := configure(source, ps); err != nil {
			return nil, errors.WithMessagef(err, "failed to configure %s", uid)
		}
		strategy, err := WatermarkStrategy(ps.Sub(WatermarkKey))
		if err != nil {
			return nil, errors.WithMessagef(err, "%s watermark", uid)
		}
		opts, err := options(uid, ps)
		if err != nil {
			return nil, err
		}
		return transformation.NewSource(name, source, strategy, opts...)
	}
	if newInputFormat := component.NewInputFormatFunc(_type); newInputFormat != nil {
		format := newInputFormat()
		if err := p.initAndRender(uid, ps, format.PropertiesDef()); err != nil {
			return nil, err
		}
		if err := configure(format, ps); err != nil {
			return nil, errors.WithMessagef(err, "failed to configure %s", uid)
		}
		opts, err := options(uid, ps)
		if err != nil {
			return nil, err
		}
		source := operators.NewStreamSource(operators.NewInputFormatSourceFunction(format))
		return transformation.NewLegacySource(name, source, vesta.Bounded, opts...)
	}
	return nil, errors.WithMessagef(ErrUnknownType, "%s: %q", uid, _type)
}

// input unions the declared inputs when there is more than one
func (p *Pipeline) input(uid string, ps vesta.Properties) (transformation.Transformation, error) {
	names := ps.GetStringSlice(constant.InputsProperty)
	if len(names) == 0 {
		return nil, errors.WithMessage(ErrNoInputs, uid)
	}
	inputs := make([]transformation.Transformation, 0, len(names))
	for _, name := range names {
		if strings.HasPrefix(name, SinkPrefix+".") {
			return nil, errors.WithMessagef(ErrUnknownInput, "%s: %s is a sink", uid, name)
		}
		input, err := p.transformation(name)
		if err != nil {
			return nil, errors.WithMessage(err, uid)
		}
		inputs = append(inputs, input)
	}
	if len(inputs) == 1 {
		return inputs[0], nil
	}
	return transformation.NewUnion(uid+".inputs", inputs...)
}

func (p *Pipeline) operator(uid, name string, ps vesta.Properties) (transformation.Transformation, error) {
	_type := ps.GetString(constant.TypeProperty)
	var (
		operator operators.OneInputStreamOperator
		def      vesta.PropertiesDef
		target   any
	)
	if newOperator := component.NewOperatorFunc(_type); newOperator != nil {
		o := newOperator()
		operator, def, target = o, o.PropertiesDef(), o
	} else if newFunction := component.NewFunctionFunc(_type); newFunction != nil {
		function := newFunction()
		switch f := function.(type) {
		case vesta.MapFunction:
			operator = operators.NewStreamMap(f)
		case vesta.FilterFunction:
			operator = operators.NewStreamFilter(f)
		case vesta.FlatMapFunction:
			operator = operators.NewStreamFlatMap(f)
		default:
			return nil, errors.WithMessagef(ErrUnsupportedFunction, "%s: %T", uid, function)
		}
		def, target = function.PropertiesDef(), function
	} else {
		return nil, errors.WithMessagef(ErrUnknownType, "%s: %q", uid, _type)
	}
	if err := p.initAndRender(uid, ps, def); err != nil {
		return nil, err
	}
	if err := configure(target, ps); err != nil {
		return nil, errors.WithMessagef(err, "failed to configure %s", uid)
	}
	input, err := p.input(uid, ps)
	if err != nil {
		return nil, err
	}
	opts, err := options(uid, ps)
	if err != nil {
		return nil, err
	}
	return transformation.NewOneInput(name, input, operator, opts...)
}

func (p *Pipeline) sink(uid, name string, ps vesta.Properties) (transformation.Transformation, error) {
	_type := ps.GetString(constant.TypeProperty)
	var (
		function vesta.SinkFunction
		target   any
	)
	if newSink := component.NewSinkFunc(_type); newSink != nil {
		function = newSink()
		target = function
	} else if newOutputFormat := component.NewOutputFormatFunc(_type); newOutputFormat != nil {
		format := newOutputFormat()
		function, target = operators.NewOutputFormatSinkFunction(format), format
	} else {
		return nil, errors.WithMessagef(ErrUnknownType, "%s: %q", uid, _type)
	}
	if err := p.initAndRender(uid, ps, function.PropertiesDef()); err != nil {
		return nil, err
	}
	if err := configure(target, ps); err != nil {
		return nil, errors.WithMessagef(err, "failed to configure %s", uid)
	}
	input, err := p.input(uid, ps)
	if err != nil {
		return nil, err
	}
	opts, err := options(uid, ps)
	if err != nil {
		return nil, err
	}
	return transformation.NewSink(name, input, operators.NewStreamSink(function), opts...)
}
