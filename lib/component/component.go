package component

import (
	"sort"

	"vesta/lib/operators"
	"vesta/vesta"
)

// Operator is a plain operator configured from properties
type Operator interface {
	operators.OneInputStreamOperator
	PropertiesDef() vesta.PropertiesDef
}

type NewOperator func() Operator

var (
	sourceMap       = map[string]vesta.NewSourceFunc{}
	inputFormatMap  = map[string]vesta.NewInputFormatFunc{}
	operatorMap     = map[string]NewOperator{}
	functionMap     = map[string]vesta.NewFunctionFunc{}
	sinkMap         = map[string]vesta.NewSinkFunc{}
	outputFormatMap = map[string]vesta.NewOutputFormatFunc{}
)

func RegisterNewSourceFunc(_type string, sourceFunc vesta.NewSourceFunc) {
	sourceMap[_type] = sourceFunc
}

func RegisterNewInputFormatFunc(_type string, inputFormatFunc vesta.NewInputFormatFunc) {
	inputFormatMap[_type] = inputFormatFunc
}

func RegisterNewOperatorFunc(_type string, operatorFunc NewOperator) {
	operatorMap[_type] = operatorFunc
}

// RegisterNewFunctionFunc registers a map, filter or flat map function
func RegisterNewFunctionFunc(_type string, functionFunc vesta.NewFunctionFunc) {
	functionMap[_type] = functionFunc
}

func RegisterNewSinkFunc(_type string, sinkFunc vesta.NewSinkFunc) {
	sinkMap[_type] = sinkFunc
}

func RegisterNewOutputFormatFunc(_type string, outputFormatFunc vesta.NewOutputFormatFunc) {
	outputFormatMap[_type] = outputFormatFunc
}

func NewSourceFunc(_type string) vesta.NewSourceFunc {
	return sourceMap[_type]
}

func NewInputFormatFunc(_type string) vesta.NewInputFormatFunc {
	return inputFormatMap[_type]
}

func NewOperatorFunc(_type string) NewOperator {
	return operatorMap[_type]
}

func NewFunctionFunc(_type string) vesta.NewFunctionFunc {
	return functionMap[_type]
}

func NewSinkFunc(_type string) vesta.NewSinkFunc {
	return sinkMap[_type]
}

func NewOutputFormatFunc(_type string) vesta.NewOutputFormatFunc {
	return outputFormatMap[_type]
}

// Def is a registered component type with its properties
type Def struct {
	Type          string
	Kind          string
	PropertiesDef vesta.PropertiesDef
}

func sorted(defs []Def) []Def {
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Type < defs[j].Type
	})
	return defs
}

func ListSourceDef() []Def {
	defs := make([]Def, 0, len(sourceMap)+len(inputFormatMap))
	for name, sourceFunc := range sourceMap {
		defs = append(defs, Def{Type: name, Kind: "source", PropertiesDef: sourceFunc().PropertiesDef()})
	}
	for name, inputFormatFunc := range inputFormatMap {
		defs = append(defs, Def{Type: name, Kind: "input-format", PropertiesDef: inputFormatFunc().PropertiesDef()})
	}
	return sorted(defs)
}

func ListOperatorDef() []Def {
	defs := make([]Def, 0, len(operatorMap)+len(functionMap))
	for name, operatorFunc := range operatorMap {
		defs = append(defs, Def{Type: name, Kind: "operator", PropertiesDef: operatorFunc().PropertiesDef()})
	}
	for name, functionFunc := range functionMap {
		defs = append(defs, Def{Type: name, Kind: "function", PropertiesDef: functionFunc().PropertiesDef()})
	}
	return sorted(defs)
}

func ListSinkDef() []Def {
	defs := make([]Def, 0, len(sinkMap)+len(outputFormatMap))
	for name, sinkFunc := range sinkMap {
		defs = append(defs, Def{Type: name, Kind: "sink", PropertiesDef: sinkFunc().PropertiesDef()})
	}
	for name, outputFormatFunc := range outputFormatMap {
		defs = append(defs, Def{Type: name, Kind: "output-format", PropertiesDef: outputFormatFunc().PropertiesDef()})
	}
	return sorted(defs)
}
