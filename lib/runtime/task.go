package runtime

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"vesta/lib/graph"
	"vesta/lib/operators"
	"vesta/lib/timer"
	"vesta/vesta"
)

var ErrUnsupportedOperator = fmt.Errorf("operator can't be run by a task")

// task runs one subtask of a stream node, it exclusively owns its operator
type task struct {
	name         string
	node         *graph.StreamNode
	subtaskIndex int
	ctx          vesta.RuntimeContext
	logger       vesta.Logger

	operator    operators.StreamOperator
	output      *output
	inbox       chan record
	inputs      int
	mailbox     timer.Mailbox
	timeService timer.Service
	idleBackoff time.Duration
}

func (t *task) String() string {
	return fmt.Sprintf("%s (%d/%d)", t.name, t.subtaskIndex+1, t.node.Parallelism())
}

// newChannel reserves an input channel for one upstream subtask
func (t *task) newChannel() int {
	t.inputs++
	return t.inputs - 1
}

// run opens, drives and closes the operator. EndOfInput is only sent downstream
// when the operator finished its input, not when the task was cancelled.
func (t *task) run(dying <-chan struct{}) (err error) {
	defer t.timeService.Shutdown()
	if err = t.operator.Open(); err != nil {
		_ = t.operator.Close()
		return errors.WithMessagef(err, "failed to open %s", t)
	}
	t.logger.Infow("task is running.", "task", t.String())

	var finished bool
	switch operator := t.operator.(type) {
	case *operators.SourceOperator:
		finished, err = t.runSource(operator, dying)
	case *operators.StreamSource:
		finished, err = t.runLegacySource(operator, dying)
	case operators.OneInputStreamOperator:
		finished, err = t.runOneInput(operator, dying)
	default:
		err = errors.WithMessagef(ErrUnsupportedOperator, "%T", t.operator)
	}

	if closeErr := t.operator.Close(); closeErr != nil && err == nil {
		err = errors.WithMessagef(closeErr, "failed to close %s", t)
	}
	if err != nil {
		return err
	}
	if finished {
		t.output.endOfInput()
		t.logger.Infow("task is finished.", "task", t.String())
	}
	return nil
}

func (t *task) runMail() {
	for {
		select {
		case mail := <-t.mailbox:
			mail()
		default:
			return
		}
	}
}

func (t *task) runSource(operator *operators.SourceOperator, dying <-chan struct{}) (bool, error) {
	backoff := time.NewTimer(t.idleBackoff)
	defer backoff.Stop()
	for {
		t.runMail()
		select {
		case <-dying:
			return false, nil
		default:
		}
		status, err := operator.EmitNext()
		if err != nil {
			return false, err
		}
		switch status {
		case vesta.MoreAvailable:
		case vesta.NothingAvailable:
			if !backoff.Stop() {
				select {
				case <-backoff.C:
				default:
				}
			}
			backoff.Reset(t.idleBackoff)
			select {
			case mail := <-t.mailbox:
				mail()
			case <-backoff.C:
			case <-dying:
				return false, nil
			}
		case vesta.EndOfInputStatus:
			return true, nil
		}
	}
}

func (t *task) runLegacySource(operator *operators.StreamSource, dying <-chan struct{}) (bool, error) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-dying:
			operator.Cancel()
		case <-stop:
		}
	}()
	if err := operator.Run(dying); err != nil {
		return false, err
	}
	select {
	case <-dying:
		return false, nil
	default:
		return true, nil
	}
}

func (t *task) runOneInput(operator operators.OneInputStreamOperator, dying <-chan struct{}) (bool, error) {
	var (
		combine  = NewCombineWatermark(t.inputs)
		finished = 0
	)
	processStatus := func(wasIdle bool) error {
		if isIdle := combine.IsIdle(); isIdle != wasIdle {
			status := vesta.ActiveStatus
			if isIdle {
				status = vesta.IdleStatus
			}
			return operator.ProcessWatermarkStatus(status)
		}
		return nil
	}
	for {
		select {
		case <-dying:
			return false, nil
		case mail := <-t.mailbox:
			mail()
		case r := <-t.inbox:
			var err error
			switch element := r.element.(type) {
			case *vesta.Event:
				err = operator.ProcessElement(element)
			case vesta.Watermark:
				wasIdle := combine.IsIdle()
				if combine.UpdateWatermark(element, r.channel) {
					err = operator.ProcessWatermark(combine.GetCombinedWatermark())
				}
				if err == nil {
					err = processStatus(wasIdle)
				}
			case vesta.WatermarkStatus:
				wasIdle := combine.IsIdle()
				if combine.UpdateIdle(element.IsIdle(), r.channel) {
					err = operator.ProcessWatermark(combine.GetCombinedWatermark())
				}
				if err == nil {
					err = processStatus(wasIdle)
				}
			case vesta.EndOfInput:
				wasIdle := combine.IsIdle()
				if combine.Finish(r.channel) {
					err = operator.ProcessWatermark(combine.GetCombinedWatermark())
				}
				if err == nil {
					err = processStatus(wasIdle)
				}
				if finished++; err == nil && finished == t.inputs {
					if err = operator.EndInput(); err == nil {
						return true, nil
					}
				}
			}
			if err != nil {
				return false, errors.WithMessagef(err, "%s failed to process %T", t, r.element)
			}
		}
	}
}
