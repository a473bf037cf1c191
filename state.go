package gosched

// SchedulerState is a human-readable snapshot of a Scheduler's latches, for
// logging and diagnostics only — it is derived, not authoritative; the
// scheduler itself is driven by the individual boolean latches described in
// spec.md §3 invariants 5-7 (performingWork, hostCallbackScheduled,
// hostTimeoutScheduled, paused).
//
// Unlike the teacher's FastState (an atomic CAS state machine for a
// multi-goroutine reactor), this is a plain derived enum: spec.md §5 is
// explicit that the scheduler's core has no locks or atomics, since only
// one logical execution context ever runs it at a time.
type SchedulerState int

const (
	// StateIdle: not closed, not paused, and no work loop activation in
	// progress (tasks may still be queued).
	StateIdle SchedulerState = iota
	// StateRunning: the work loop's body is currently executing.
	StateRunning
	// StatePaused: pauseExecution's latch is set.
	StatePaused
	// StateClosed: the scheduler has been closed and rejects new work.
	StateClosed
)

func (s SchedulerState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StatePaused:
		return "Paused"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// state derives the current SchedulerState from the scheduler's latches,
// for diagnostics.
func (s *Scheduler) state() SchedulerState {
	switch {
	case s.closed:
		return StateClosed
	case s.performingWork:
		return StateRunning
	case s.paused:
		return StatePaused
	default:
		return StateIdle
	}
}
