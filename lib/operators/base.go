package operators

import (
	"vesta/lib/log"
	"vesta/vesta"
)

// AbstractStreamOperator keeps what Setup hands in and forwards event time downstream
type AbstractStreamOperator struct {
	task     TaskHandle
	config   *StreamConfig
	output   vesta.Output
	logger   vesta.Logger
	chaining vesta.ChainingStrategy
}

func (a *AbstractStreamOperator) Setup(task TaskHandle, config *StreamConfig, output vesta.Output) {
	a.task = task
	a.config = config
	a.output = output
	a.logger = log.Ctx(task)
}

func (a *AbstractStreamOperator) Open() error {
	return nil
}

func (a *AbstractStreamOperator) Close() error {
	return nil
}

func (a *AbstractStreamOperator) ChainingStrategy() vesta.ChainingStrategy {
	return a.chaining
}

func (a *AbstractStreamOperator) SetChainingStrategy(strategy vesta.ChainingStrategy) {
	a.chaining = strategy
}

func (a *AbstractStreamOperator) Task() TaskHandle {
	return a.task
}

func (a *AbstractStreamOperator) Config() *StreamConfig {
	return a.config
}

func (a *AbstractStreamOperator) Output() vesta.Output {
	return a.output
}

func (a *AbstractStreamOperator) Logger() vesta.Logger {
	if a.logger == nil {
		return log.Global()
	}
	return a.logger
}

func (a *AbstractStreamOperator) ProcessWatermark(watermark vesta.Watermark) error {
	if a.output != nil {
		a.output.EmitWatermark(watermark)
	}
	return nil
}

func (a *AbstractStreamOperator) ProcessWatermarkStatus(status vesta.WatermarkStatus) error {
	if a.output != nil {
		a.output.EmitWatermarkStatus(status)
	}
	return nil
}

func (a *AbstractStreamOperator) EndInput() error {
	return nil
}

// AbstractUdfStreamOperator opens and closes the user function with the task
type AbstractUdfStreamOperator struct {
	AbstractStreamOperator
	function vesta.Component
}

func (a *AbstractUdfStreamOperator) UserFunction() vesta.Component {
	return a.function
}

func (a *AbstractUdfStreamOperator) Open() error {
	return a.function.Open(a.task)
}

func (a *AbstractUdfStreamOperator) Close() error {
	return a.function.Close()
}
