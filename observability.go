package gosched

// TaskInfo is the read-only snapshot of a task passed to a [Profiler].
type TaskInfo struct {
	ID       uint64
	Priority Priority
	QueuedAt int64 // ms
}

// Profiler is the narrow observability hook the work loop calls when
// non-nil. spec.md §1 treats profiling hooks as an external collaborator,
// not part of the core — so the core only ever calls through this
// interface, never implements instrumentation itself. [Metrics] (via
// WithMetrics) is one built-in implementation; callers may supply their
// own (e.g. to forward into a tracing system).
type Profiler interface {
	// TaskStarted is called just before a task's callback is invoked.
	TaskStarted(info TaskInfo)
	// TaskFinished is called after a task's callback returns normally,
	// carrying how long that single invocation took. A task that returns a
	// continuation is finished once per invocation, not once per
	// continuation chain.
	TaskFinished(info TaskInfo, durationMs int64)
	// TaskErrored is called when a task's callback panics, before the
	// panic is re-raised (the scheduler never swallows it, per spec.md §7).
	TaskErrored(info TaskInfo, err error)
}

// eventListenerFunc receives a dispatched taskEvent.
type eventListenerFunc func(evt *taskEvent)

// listenerID uniquely identifies a registered listener.
type listenerID uint64

// taskEvent is a lifecycle notification, grounded on the teacher's
// DOM-style Event (eventtarget.go), trimmed of bubbling/propagation/
// cancellation semantics that have no analogue in a task scheduler.
type taskEvent struct {
	Type       string // "started", "finished", "errored"
	Info       TaskInfo
	DurationMs int64
	Err        error
}

// taskObserver is a minimal pub-sub primitive used to fan a single
// Profiler-shaped event out to multiple independent subscribers (e.g. both
// a Metrics recorder and a caller-supplied tracing hook), adapted from the
// teacher's EventTarget/AddEventListener/DispatchEvent API.
type taskObserver struct {
	listeners map[string][]listenerEntry
	nextID    listenerID
}

type listenerEntry struct {
	id       listenerID
	listener eventListenerFunc
}

func newTaskObserver() *taskObserver {
	return &taskObserver{listeners: make(map[string][]listenerEntry)}
}

// on registers a listener for eventType, returning an ID usable with off.
func (o *taskObserver) on(eventType string, l eventListenerFunc) listenerID {
	if l == nil {
		return 0
	}
	o.nextID++
	id := o.nextID
	o.listeners[eventType] = append(o.listeners[eventType], listenerEntry{id: id, listener: l})
	return id
}

// off removes a previously registered listener by ID.
func (o *taskObserver) off(eventType string, id listenerID) {
	entries := o.listeners[eventType]
	for i, e := range entries {
		if e.id == id {
			o.listeners[eventType] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// dispatch synchronously invokes every listener registered for evt.Type.
func (o *taskObserver) dispatch(evt *taskEvent) {
	for _, e := range o.listeners[evt.Type] {
		e.listener(evt)
	}
}

// observerProfiler adapts the taskObserver to the Profiler interface so the
// work loop has exactly one call site (s.profiler) regardless of how many
// sinks are actually subscribed underneath — zero, one, or both of a
// caller-supplied Profiler and the built-in Metrics recorder.
type observerProfiler struct {
	obs *taskObserver
}

func (p *observerProfiler) TaskStarted(info TaskInfo) {
	p.obs.dispatch(&taskEvent{Type: "started", Info: info})
}

func (p *observerProfiler) TaskFinished(info TaskInfo, durationMs int64) {
	p.obs.dispatch(&taskEvent{Type: "finished", Info: info, DurationMs: durationMs})
}

func (p *observerProfiler) TaskErrored(info TaskInfo, err error) {
	p.obs.dispatch(&taskEvent{Type: "errored", Info: info, Err: err})
}

// subscribeProfiler registers p against obs under all three lifecycle event
// types, so multiple independent Profiler-shaped sinks (a user's own tracer
// alongside the built-in [Metrics] recorder) can each observe every task
// without either one replacing the other.
func subscribeProfiler(obs *taskObserver, p Profiler) {
	if p == nil {
		return
	}
	obs.on("started", func(evt *taskEvent) { p.TaskStarted(evt.Info) })
	obs.on("finished", func(evt *taskEvent) { p.TaskFinished(evt.Info, evt.DurationMs) })
	obs.on("errored", func(evt *taskEvent) { p.TaskErrored(evt.Info, evt.Err) })
}
