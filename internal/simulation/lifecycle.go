package simulation

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"

	"combatsim/broker/internal/logging"
)

// Status is the lifecycle state of a simulation run.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusAborted   Status = "aborted"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the run can no longer change state.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusAborted, StatusFailed:
		return true
	}
	return false
}

const (
	eventStart    = "start"
	eventComplete = "complete"
	eventCancel   = "cancel"
	eventAbort    = "abort"
	eventFail     = "fail"
)

// lifecycle guards the legal status transitions of one run.
type lifecycle struct {
	machine *fsm.FSM
}

func newLifecycle(logger *logging.Logger) *lifecycle {
	running := []string{string(StatusRunning)}
	machine := fsm.NewFSM(
		string(StatusIdle),
		fsm.Events{
			{Name: eventStart, Src: []string{string(StatusIdle)}, Dst: string(StatusRunning)},
			{Name: eventComplete, Src: running, Dst: string(StatusCompleted)},
			{Name: eventCancel, Src: running, Dst: string(StatusCancelled)},
			{Name: eventAbort, Src: running, Dst: string(StatusAborted)},
			{Name: eventFail, Src: []string{string(StatusIdle), string(StatusRunning)}, Dst: string(StatusFailed)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				logger.Debug("run state changed", logging.String("from", e.Src), logging.String("to", e.Dst))
			},
		},
	)
	return &lifecycle{machine: machine}
}

// fire applies the event. Transitions are bookkeeping only, so they never observe the
// caller's cancellation.
func (l *lifecycle) fire(event string) error {
	if err := l.machine.Event(context.Background(), event); err != nil {
		return fmt.Errorf("run lifecycle %s from %s: %w", event, l.machine.Current(), err)
	}
	return nil
}

func (l *lifecycle) status() Status {
	return Status(l.machine.Current())
}
