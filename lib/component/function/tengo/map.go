package tengo

import (
	"github.com/d5/tengo/v2"
	"vesta/lib/component"
	"vesta/lib/log"
	"vesta/lib/properties"
	"vesta/vesta"
)

var (
	ScriptProperty = properties.NewRequiredProperty[string]("script", "tengo script rewriting event, event = undefined drops it")
)

type mapFunction struct {
	ctx      vesta.Context
	logger   vesta.Logger
	compiled *tengo.Compiled
}

func (m *mapFunction) Open(ctx vesta.Context) error {
	m.ctx = ctx
	m.logger = log.Ctx(m.ctx)
	compiled, err := compile(m.ctx.Properties().GetString(ScriptProperty))
	if err != nil {
		m.logger.Errorw("can't compile script.", "err", err)
		return err
	}
	m.compiled = compiled
	return nil
}

func (m *mapFunction) Close() error {
	return nil
}

func (m *mapFunction) PropertiesDef() vesta.PropertiesDef {
	return vesta.PropertiesDef{ScriptProperty}
}

func (m *mapFunction) Map(event *vesta.Event) (*vesta.Event, error) {
	if err := run(m.ctx, m.compiled, event); err != nil {
		m.logger.Errorw("run script error.", "event", event, "err", err)
		return nil, err
	}
	switch result := m.compiled.Get("event").Object().(type) {
	case *_struct:
		return fromTengoEvent(result), nil
	default:
		m.logger.Debugw("script did not return an event, drop event.", "type", result.TypeName())
		return nil, nil
	}
}

func NewMap() vesta.Component {
	return &mapFunction{}
}

func init() {
	component.RegisterNewFunctionFunc("tengo-map", NewMap)
}
