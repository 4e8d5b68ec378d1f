package properties

import (
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/cast"
	"vesta/vesta"
)

var ErrPropertyInvalid = fmt.Errorf("property value is invalid")

type property[T any] struct {
	name        string
	description string
	_default    interface{}
	validate    func(T) error
}

func (p *property[T]) Required() bool {
	return p._default == nil
}

func (p *property[T]) Name() string {
	return p.name
}

func (p *property[T]) Description() string {
	return p.description
}

func (p *property[T]) Default() interface{} {
	return p._default
}

func (p *property[T]) Type() string {
	var t T
	return reflect.TypeOf(&t).Elem().String()
}

// Validate coerces the raw value to T and runs the validator, if any
func (p *property[T]) Validate(raw interface{}) error {
	if p.validate == nil || raw == nil {
		return nil
	}
	var t T
	value, err := coerce(raw, t)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPropertyInvalid, p.name, err)
	}
	if err = p.validate(value.(T)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPropertyInvalid, p.name, err)
	}
	return nil
}

func coerce(raw interface{}, target interface{}) (interface{}, error) {
	switch target.(type) {
	case int:
		return cast.ToIntE(raw)
	case int64:
		return cast.ToInt64E(raw)
	case uint64:
		return cast.ToUint64E(raw)
	case string:
		return cast.ToStringE(raw)
	case bool:
		return cast.ToBoolE(raw)
	case []string:
		return cast.ToStringSliceE(raw)
	case time.Duration:
		return cast.ToDurationE(raw)
	default:
		return raw, nil
	}
}

func NewProperty[T any](name, description string, _default T) vesta.Property {
	return &property[T]{
		name:        name,
		description: description,
		_default:    _default,
	}
}

func NewRequiredProperty[T any](name, description string) vesta.Property {
	return &property[T]{
		name:        name,
		description: description,
	}
}

// NewValidatedProperty is NewProperty whose value is checked by InitAndRender
func NewValidatedProperty[T any](name, description string, _default T, validate func(T) error) vesta.Property {
	return &property[T]{
		name:        name,
		description: description,
		_default:    _default,
		validate:    validate,
	}
}
