package sample

import (
	"vesta/lib/component"
	"vesta/lib/operators"
	"vesta/lib/properties"
	"vesta/vesta"
)

var (
	RateProperty = properties.NewValidatedProperty[uint64]("rate", "keep one of every rate events", 10,
		func(rate uint64) error {
			if rate == 0 {
				return errRateZero
			}
			return nil
		})
)

// operator keeps one of every rate events and forwards event time untouched
type operator struct {
	operators.AbstractStreamOperator

	rate       uint64
	ops        uint64
	inputType  vesta.TypeInfo
	outputType vesta.TypeInfo
}

func (o *operator) Open() error {
	o.rate = RateProperty.Default().(uint64)
	if ctx := o.Task(); ctx != nil && ctx.Properties() != nil {
		if rate := ctx.Properties().GetUint64(RateProperty); rate > 0 {
			o.rate = rate
		}
	}
	o.Logger().Infow("open sample operator.", "rate", o.rate, "in", o.inputType, "out", o.outputType)
	return nil
}

func (o *operator) PropertiesDef() vesta.PropertiesDef {
	return vesta.PropertiesDef{RateProperty}
}

func (o *operator) ProcessElement(event *vesta.Event) error {
	o.ops++
	if o.ops == o.rate {
		o.ops = 0
		o.Output().Collect(event)
	}
	return nil
}

func (o *operator) SetInputType(inType vesta.TypeInfo, _ vesta.ExecutionConfig) {
	o.inputType = inType
}

func (o *operator) SetOutputType(outType vesta.TypeInfo, _ vesta.ExecutionConfig) {
	o.outputType = outType
}

func (o *operator) Replicate() operators.StreamOperator {
	replica := &operator{inputType: o.inputType, outputType: o.outputType}
	replica.SetChainingStrategy(o.ChainingStrategy())
	return replica
}

func New() component.Operator {
	return &operator{}
}

func init() {
	component.RegisterNewOperatorFunc("sample", New)
}
