package split

import (
	"strings"

	"github.com/spf13/cast"
	"vesta/lib/component"
	"vesta/lib/log"
	"vesta/lib/properties"
	"vesta/vesta"
)

var (
	SeparatorProperty = properties.NewProperty("separator", "message is split on separator, one event per part", "\n")
	TrimProperty      = properties.NewProperty("trim", "trim spaces of every part and drop empty parts", true)
	IndexMetaKey      = "part"
)

// function emits one event per part of a string message, meta and time are copied
type function struct {
	logger    vesta.Logger
	separator string
	trim      bool
}

func (f *function) Open(ctx vesta.Context) error {
	f.logger = log.Ctx(ctx)
	f.separator = ctx.Properties().GetString(SeparatorProperty)
	f.trim = ctx.Properties().GetBool(TrimProperty)
	return nil
}

func (f *function) Close() error {
	return nil
}

func (f *function) PropertiesDef() vesta.PropertiesDef {
	return vesta.PropertiesDef{SeparatorProperty, TrimProperty}
}

func (f *function) FlatMap(event *vesta.Event, out vesta.Collector) error {
	message, err := cast.ToStringE(event.Message)
	if err != nil {
		f.logger.Warnw("message is not a string, pass through.", "err", err)
		out.Collect(event)
		return nil
	}
	index := 0
	for _, part := range strings.Split(message, f.separator) {
		if f.trim {
			if part = strings.TrimSpace(part); part == "" {
				continue
			}
		}
		meta := make(map[string]any, len(event.Meta)+1)
		for k, v := range event.Meta {
			meta[k] = v
		}
		meta[IndexMetaKey] = index
		index++
		out.Collect(&vesta.Event{Meta: meta, Message: part, Time: event.Time})
	}
	return nil
}

func New() vesta.Component {
	return &function{}
}

func init() {
	component.RegisterNewFunctionFunc("split", New)
}
