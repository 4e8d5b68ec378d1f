package tengo

import (
	"fmt"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/pkg/errors"
	"vesta/vesta"
)

var (
	emptyTime  = time.Time{}
	emptyEvent = &_struct{
		Meta:    &tengo.Map{Value: map[string]tengo.Object{}},
		Message: tengo.UndefinedValue,
		Time:    &tengo.Time{Value: emptyTime},
	}
)

// _struct exposes an event to scripts as event.meta, event.message and event.time
type _struct struct {
	tengo.ObjectImpl
	Meta    *tengo.Map
	Message tengo.Object
	Time    *tengo.Time
}

func (s *_struct) TypeName() string {
	return "event"
}

func (s *_struct) String() string {
	return "<event>"
}

func (s *_struct) IsFalsy() bool {
	return s.Message.IsFalsy() && s.Meta.IsFalsy() && s.Time.IsFalsy()
}

func (s *_struct) Copy() tengo.Object {
	return &_struct{
		Meta:    s.Meta.Copy().(*tengo.Map),
		Message: s.Message.Copy(),
		Time:    s.Time.Copy().(*tengo.Time),
	}
}

func (s *_struct) IndexGet(o tengo.Object) (tengo.Object, error) {
	strIdx, ok := tengo.ToString(o)
	if !ok {
		return nil, tengo.ErrInvalidIndexType
	}
	switch strIdx {
	case "meta":
		return s.Meta, nil
	case "message":
		return s.Message, nil
	case "time":
		return s.Time, nil
	default:
		return tengo.UndefinedValue, fmt.Errorf("unknown key %s", strIdx)
	}
}

func (s *_struct) IndexSet(index, value tengo.Object) error {
	strIdx, ok := tengo.ToString(index)
	if !ok {
		return tengo.ErrInvalidIndexType
	}

	switch strIdx {
	case "meta":
		if v, ok := value.(*tengo.Map); !ok {
			return fmt.Errorf("meta only support map, but received is %s", value.TypeName())
		} else {
			s.Meta = v
		}
	case "message":
		s.Message = value
	case "time":
		if v, ok := value.(*tengo.Time); !ok {
			return fmt.Errorf("time only support time.Time, but received is %s", value.TypeName())
		} else {
			s.Time = v
		}
	default:
		return fmt.Errorf("unknown key %s", strIdx)
	}
	return nil
}

func toTengoEvent(event *vesta.Event) (tengo.Object, error) {
	tengoMessage, err := tengo.FromInterface(event.Message)
	if err != nil {
		return nil, errors.WithMessage(err, "message can't convert to tengo type.")
	}
	tengoMetaValue := make(map[string]tengo.Object, len(event.Meta))
	for key, value := range event.Meta {
		object, err := tengo.FromInterface(value)
		if err != nil {
			return nil, errors.WithMessagef(err, "meta %s key can't convert to tengo type.", key)
		}
		tengoMetaValue[key] = object
	}
	return &_struct{
		Meta:    &tengo.Map{Value: tengoMetaValue},
		Message: tengoMessage,
		Time:    &tengo.Time{Value: event.Time},
	}, nil
}

func fromTengoEvent(s *_struct) *vesta.Event {
	meta := make(map[string]any, len(s.Meta.Value))
	for key, v := range s.Meta.Value {
		meta[key] = tengo.ToInterface(v)
	}
	return &vesta.Event{
		Meta:    meta,
		Message: tengo.ToInterface(s.Message),
		Time:    s.Time.Value,
	}
}

// Object exposes an event the way filter and map scripts see it
func Object(event *vesta.Event) (tengo.Object, error) {
	return toTengoEvent(event)
}
