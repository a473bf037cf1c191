package gosched

import (
	"errors"
	"fmt"
)

// Standard errors returned by Scheduler methods.
var (
	// ErrSchedulerClosed is returned when operations are attempted on a
	// scheduler that has already been closed.
	ErrSchedulerClosed = errors.New("gosched: scheduler is closed")

	// ErrReentrantRun is the panic value raised if the work loop is somehow
	// invoked recursively from within itself (should never surface given the
	// performingWork latch, but is retained as a defensive invariant check).
	ErrReentrantRun = errors.New("gosched: cannot re-enter the work loop")
)

// RangeError reports that a value was outside its accepted range, mirroring
// the teacher's ES2022-flavored error types. [Scheduler.ForceFrameRate] logs
// one of these rather than returning it, per the force-frame-rate contract.
type RangeError struct {
	Message string
	Cause   error
}

func (e *RangeError) Error() string {
	if e.Message == "" {
		return "range error"
	}
	return e.Message
}

func (e *RangeError) Unwrap() error { return e.Cause }

// TaskPanicError wraps a panic value recovered while observing (not
// swallowing) a user callback's execution. The scheduler never returns this
// type to a caller: it is only passed to a [Profiler]'s TaskErrored hook
// and to the scheduler's [Logger] before the original panic is re-raised, so the panic still propagates out
// of the work loop per the error-handling design.
type TaskPanicError struct {
	TaskID uint64
	Value  any
}

func (e *TaskPanicError) Error() string {
	return fmt.Sprintf("gosched: task %d panicked: %v", e.TaskID, e.Value)
}

func (e *TaskPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
