package gosched

// Callback is a user-supplied unit of work. It receives didTimeout (true if
// the task's deadline had already passed when it was dispatched) and
// returns either nil (done) or another Callback of the same shape — a
// continuation indicating the task wants another slice.
type Callback func(didTimeout bool) Continuation

// Continuation is the value a Callback may return to request another
// slice. It is a tagged union in spirit (spec.md's "NoContinuation" vs.
// "Continuation(fn)"), modeled here as a nil-able function type: a nil
// Continuation means the task is complete.
type Continuation = Callback

// TaskHandle is the opaque handle returned by Scheduler.Schedule, usable
// with Scheduler.Cancel. It is a thin wrapper so callers cannot reach into
// a *task's internals directly.
type TaskHandle struct {
	t *task
}

// Cancel is a convenience equivalent to calling Scheduler.Cancel(handle).
func (h TaskHandle) Cancel() {
	if h.t != nil {
		h.t.callback = nil
	}
}

// task is the internal record stored in the ready/pending heaps.
//
// id is a strictly increasing tie-break assigned at submission; it must
// not wrap in practice, hence the 64-bit counter (spec.md §9).
type task struct {
	callback       Callback
	id             uint64
	priority       Priority
	startTime      int64 // ms, earliest time the task may run
	expirationTime int64 // ms, startTime + priority timeout
	sortIndex      int64 // ready: expirationTime; pending: startTime
	heapIndex      int   // maintained by container/heap for O(log n) fixups
	isQueued       bool  // observability only, per spec.md §3
}

// less implements the ordering relation from spec.md §3: primary sort by
// sortIndex, secondary by insertion id, both ascending.
func (t *task) less(o *task) bool {
	if t.sortIndex != o.sortIndex {
		return t.sortIndex < o.sortIndex
	}
	return t.id < o.id
}

// cancelled reports whether the task's callback slot has been nulled,
// either by Scheduler.Cancel (or TaskHandle.Cancel) or by having already
// been taken for dispatch.
func (t *task) cancelled() bool {
	return t.callback == nil
}
