package tengo

import (
	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/spf13/cast"
	"vesta/pkg/function"
)

var parseModule = map[string]tengo.Object{
	"fields":     &tengo.UserFunction{Name: "fields", Value: parseFields},
	"key_values": &tengo.UserFunction{Name: "key_values", Value: parseKeyValues},
}

// Modules is the stdlib plus the "parse" module
func Modules() *tengo.ModuleMap {
	modules := stdlib.GetModuleMap(stdlib.AllModuleNames()...)
	modules.AddBuiltinModule("parse", parseModule)
	return modules
}

func wrapError(err error) tengo.Object {
	return &tengo.Error{Value: &tengo.String{Value: err.Error()}}
}

func stringArg(args []tengo.Object, i int, name string) (string, error) {
	s, ok := tengo.ToString(args[i])
	if !ok {
		return "", tengo.ErrInvalidArgumentType{
			Name:     name,
			Expected: "string(compatible)",
			Found:    args[i].TypeName(),
		}
	}
	return s, nil
}

// parseFields is parse.fields(raw, separator, names)
func parseFields(args ...tengo.Object) (tengo.Object, error) {
	if len(args) != 3 {
		return nil, tengo.ErrWrongNumArguments
	}
	raw, err := stringArg(args, 0, "first")
	if err != nil {
		return nil, err
	}
	separator, err := stringArg(args, 1, "second")
	if err != nil {
		return nil, err
	}
	names, err := cast.ToStringSliceE(tengo.ToInterface(args[2]))
	if err != nil {
		return nil, tengo.ErrInvalidArgumentType{
			Name:     "third",
			Expected: "array(string)",
			Found:    args[2].TypeName(),
		}
	}
	fields, err := function.Fields(raw, separator, names)
	if err != nil {
		return wrapError(err), nil
	}
	return tengo.FromInterface(fields)
}

// parseKeyValues is parse.key_values(raw, pair_separator, kv_separator)
func parseKeyValues(args ...tengo.Object) (tengo.Object, error) {
	if len(args) != 3 {
		return nil, tengo.ErrWrongNumArguments
	}
	raw, err := stringArg(args, 0, "first")
	if err != nil {
		return nil, err
	}
	pairSeparator, err := stringArg(args, 1, "second")
	if err != nil {
		return nil, err
	}
	kvSeparator, err := stringArg(args, 2, "third")
	if err != nil {
		return nil, err
	}
	return tengo.FromInterface(function.KeyValues(raw, pairSeparator, kvSeparator))
}
