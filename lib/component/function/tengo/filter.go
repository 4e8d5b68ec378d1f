package tengo

import (
	"fmt"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/pkg/errors"
	"vesta/lib/component"
	"vesta/lib/log"
	"vesta/lib/properties"
	"vesta/vesta"
)

var (
	ConditionProperty = properties.NewRequiredProperty[string]("condition", "tengo expression evaluated against event, false drops it")

	ErrNotBool = fmt.Errorf("condition result is not bool")
)

type filterFunction struct {
	ctx      vesta.Context
	logger   vesta.Logger
	compiled *tengo.Compiled
}

func (f *filterFunction) Open(ctx vesta.Context) error {
	f.ctx = ctx
	f.logger = log.Ctx(f.ctx)
	conditionStr := f.ctx.Properties().GetString(ConditionProperty)
	compiled, err := compile(fmt.Sprintf("__res__ := (%s)", strings.TrimSpace(conditionStr)))
	if err != nil {
		f.logger.Errorw("can't compile condition.", "condition", conditionStr, "err", err)
		return err
	}
	f.compiled = compiled
	return nil
}

func (f *filterFunction) Close() error {
	return nil
}

func (f *filterFunction) PropertiesDef() vesta.PropertiesDef {
	return vesta.PropertiesDef{ConditionProperty}
}

func (f *filterFunction) Filter(event *vesta.Event) (bool, error) {
	if err := run(f.ctx, f.compiled, event); err != nil {
		f.logger.Errorw("run condition error.", "event", event, "err", err)
		return false, err
	}
	switch keep := f.compiled.Get("__res__").Value().(type) {
	case bool:
		if !keep {
			f.logger.Debugw("filter event.", "event", event)
		}
		return keep, nil
	default:
		return false, errors.WithMessagef(ErrNotBool, "got %T", keep)
	}
}

func NewFilter() vesta.Component {
	return &filterFunction{}
}

func init() {
	component.RegisterNewFunctionFunc("tengo-filter", NewFilter)
}
