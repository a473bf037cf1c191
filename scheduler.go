package gosched

import "time"

// msToDuration converts a millisecond count (possibly computed from two
// Clock readings) to a time.Duration for use with a HostAdapter's
// RequestHostTimeout.
func msToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Scheduler is a cooperative, single-threaded, priority-based task queue,
// modeled on spec.md §2-§4. All exported methods are documented as callable
// only from the goroutine driving the work loop (i.e. the one that called
// New and, directly or via a task's own callback, Schedule/Cancel/etc.) —
// the core itself holds no locks, mirroring the "no locks, no atomics"
// design note in spec.md §5. The one exception is Metrics, which takes a
// snapshot safe to read from another goroutine (see metrics.go).
type Scheduler struct {
	ready   *taskQueue
	pending *taskQueue

	clock       Clock
	hostAdapter HostAdapter
	logger      Logger
	observer    *taskObserver
	profiler    Profiler
	metrics     *Metrics
	yield       *yieldPolicy

	nextTaskID uint64

	// priorityStack backs RunWithPriority/GetCurrentPriorityLevel: a plain
	// slice, not a sync.Map or atomic, since only one execution context
	// drives a Scheduler at a time (spec.md §5).
	priorityStack []Priority

	performingWork       bool
	hostCallbackScheduled bool
	hostTimeoutScheduled  Timer
	paused                bool
	closed                bool

	sliceStart int64
}

// New constructs a Scheduler, applying opts over the defaults described in
// options.go (a real-time [Clock] and a goroutine-backed [HostAdapter]).
func New(opts ...Option) (*Scheduler, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	observer := newTaskObserver()
	s := &Scheduler{
		ready:         &taskQueue{},
		pending:       &taskQueue{},
		clock:         cfg.clock,
		hostAdapter:   cfg.hostAdapter,
		logger:        cfg.logger,
		observer:      observer,
		profiler:      &observerProfiler{obs: observer},
		yield:         newYieldPolicy(),
		priorityStack: []Priority{Normal},
	}
	if cfg.frameIntervalMs > 0 {
		s.yield.frameIntervalMs = int64(cfg.frameIntervalMs)
	}
	// Both a caller-supplied Profiler and the built-in Metrics recorder (if
	// enabled) subscribe to the same fan-out, so they observe every task
	// independently of one another rather than one replacing the other.
	subscribeProfiler(observer, cfg.profiler)
	if cfg.metricsEnabled {
		s.metrics = NewMetrics()
		subscribeProfiler(observer, s.metrics)
	}
	return s, nil
}

// ScheduleOptions carries optional per-task parameters to Schedule.
type ScheduleOptions struct {
	// DelayMs defers a task's start time by this many milliseconds
	// (spec.md §4.2's "delay" parameter) before its priority timeout begins
	// counting down.
	DelayMs int64
}

// Schedule enqueues cb to run under priority, returning a handle usable with
// Cancel. A nil or zero-value opts is equivalent to no delay. Schedule
// returns the zero TaskHandle and ErrSchedulerClosed once Close has been
// called (spec.md §7).
func (s *Scheduler) Schedule(priority Priority, cb Callback, opts *ScheduleOptions) (TaskHandle, error) {
	if s.closed {
		return TaskHandle{}, ErrSchedulerClosed
	}
	if cb == nil {
		return TaskHandle{}, nil
	}
	priority = priority.Normalize()

	var delayMs int64
	if opts != nil {
		delayMs = opts.DelayMs
	}

	now := s.clock.NowMs()
	if delayMs < 0 {
		delayMs = 0
	}
	startTime := now + delayMs
	timeout := priority.Timeout()
	expirationTime := startTime + timeout

	s.nextTaskID++
	t := &task{
		callback:       cb,
		id:             s.nextTaskID,
		priority:       priority,
		startTime:      startTime,
		expirationTime: expirationTime,
		isQueued:       true,
	}

	if delayMs > 0 {
		t.sortIndex = startTime
		s.pending.push(t)
		if s.pending.peek() == t {
			// This task became the earliest pending start; re-arm the
			// single outstanding timeout (spec.md §3 invariant 6).
			s.rearmTimeout()
		}
	} else {
		t.sortIndex = expirationTime
		s.ready.push(t)
		s.requestCallbackIfNeeded()
	}

	s.logger.Log(LogEntry{Level: LevelDebug, Message: "task scheduled", Fields: []LogField{
		F("taskID", t.id), F("priority", priority.String()), F("delayMs", delayMs),
	}})

	return TaskHandle{t: t}, nil
}

// Cancel nulls the task's callback slot; the task is skipped lazily the
// next time it reaches the head of its queue (spec.md §4.1, §9). Cancelling
// an already-cancelled or already-run handle is a no-op.
func (s *Scheduler) Cancel(h TaskHandle) {
	if h.t == nil {
		return
	}
	h.t.callback = nil
}

// advanceTimers moves every pending task whose start time has arrived into
// the ready queue, dropping cancelled pending heads on the way (spec.md
// §4.3 step 1, §4.6). It does not touch the host timeout; callers re-arm it
// via rearmTimeout.
func (s *Scheduler) advanceTimers(now int64) {
	for {
		t := s.pending.peek()
		if t == nil {
			return
		}
		if t.cancelled() {
			s.pending.pop()
			continue
		}
		if t.startTime > now {
			return
		}
		s.pending.pop()
		t.sortIndex = t.expirationTime
		s.ready.push(t)
	}
}

// rearmTimeout cancels any outstanding host timeout and, if a pending task
// remains, arranges a new one to fire at its start time (spec.md §3
// invariant 6: at most one timeout outstanding).
func (s *Scheduler) rearmTimeout() {
	if s.hostTimeoutScheduled != nil {
		s.hostTimeoutScheduled.Cancel()
		s.hostTimeoutScheduled = nil
	}
	t := s.pending.peek()
	if t == nil || s.closed {
		return
	}
	now := s.clock.NowMs()
	delay := t.startTime - now
	if delay < 0 {
		delay = 0
	}
	s.hostTimeoutScheduled = s.hostAdapter.RequestHostTimeout(msToDuration(delay), func() {
		s.hostTimeoutScheduled = nil
		s.handleTimeout()
	})
}

// handleTimeout is the host timer's callback: it moves due pending tasks
// into ready, requests a host callback if work is now available, then
// re-arms the timeout for whatever pending work remains.
func (s *Scheduler) handleTimeout() {
	if s.closed {
		return
	}
	s.advanceTimers(s.clock.NowMs())
	s.requestCallbackIfNeeded()
	s.rearmTimeout()
}

// requestCallbackIfNeeded arranges a host callback activation if the ready
// queue is non-empty, one isn't already scheduled, and the scheduler isn't
// paused (spec.md §4.2, §3 invariant 5).
func (s *Scheduler) requestCallbackIfNeeded() {
	if s.closed || s.paused || s.hostCallbackScheduled || s.performingWork {
		return
	}
	if s.ready.peek() == nil {
		return
	}
	s.hostCallbackScheduled = true
	s.hostAdapter.RequestHostCallback(func(hasTimeRemaining bool, initialNowMs int64) bool {
		s.hostCallbackScheduled = false
		return s.workLoop(hasTimeRemaining, initialNowMs)
	})
}

// workLoop is the central routine (spec.md §4.3): it repeatedly pops the
// ready queue's head, skipping cancelled entries, dispatches the callback,
// re-queues a returned continuation under the same priority, and yields
// back to the host once the slice budget (or an input-pending hint) says
// to. Returns whether more ready work remains, so the caller (the
// HostAdapter) knows whether to re-arm a continuation.
func (s *Scheduler) workLoop(hasTimeRemaining bool, initialNowMs int64) (moreWork bool) {
	if s.performingWork {
		panic(ErrReentrantRun)
	}
	s.performingWork = true
	s.sliceStart = initialNowMs
	defer func() {
		s.performingWork = false
		s.yield.resetPaintRequested()
	}()

	s.advanceTimers(initialNowMs)
	if s.metrics != nil {
		s.metrics.recordQueueDepths(s.ready.len(), s.pending.len())
	}

	for {
		if s.paused {
			break
		}
		t := s.ready.peek()
		if t == nil {
			s.rearmTimeout()
			return false
		}
		if t.cancelled() {
			s.ready.pop()
			continue
		}

		now := s.clock.NowMs()
		elapsed := now - s.sliceStart
		if t.expirationTime > now && (!hasTimeRemaining || s.yield.shouldYield(elapsed)) {
			break
		}

		didTimeout := t.expirationTime <= now
		s.ready.pop()
		t.isQueued = false
		s.runTask(t, didTimeout)

		// Re-run advanceTimers before looping (spec.md §4.3 step 4, §5
		// ordering guarantee 4): a pending task whose startTime matured
		// during this slice must be promoted so it can preempt the
		// continuation just re-queued by runTask, rather than waiting for
		// the next host timeout to notice it.
		s.advanceTimers(s.clock.NowMs())
		if s.metrics != nil {
			s.metrics.recordQueueDepths(s.ready.len(), s.pending.len())
		}
	}

	more := s.ready.peek() != nil
	if !more {
		s.rearmTimeout()
	}
	return more
}

// runTask invokes t's callback, observing start/error via the Profiler
// fan-out (every subscriber — a caller's own tracer and/or the built-in
// Metrics recorder — sees every event independently), and re-enqueues a
// returned continuation under the same priority and original expiration
// (spec.md §4.3 step 4, §4.6). A panic is observed then re-raised — the
// scheduler never swallows one (spec.md §7).
func (s *Scheduler) runTask(t *task, didTimeout bool) {
	info := TaskInfo{ID: t.id, Priority: t.priority, QueuedAt: t.startTime}
	start := s.clock.NowMs()
	s.profiler.TaskStarted(info)

	s.priorityStack = append(s.priorityStack, t.priority)
	defer func() { s.priorityStack = s.priorityStack[:len(s.priorityStack)-1] }()

	defer func() {
		if r := recover(); r != nil {
			s.profiler.TaskErrored(info, &TaskPanicError{TaskID: t.id, Value: r})
			s.logger.Log(LogEntry{Level: LevelError, Message: "task panicked", Fields: []LogField{
				F("taskID", t.id),
			}, Err: &TaskPanicError{TaskID: t.id, Value: r}})
			panic(r)
		}
	}()

	cb := t.callback
	t.callback = nil
	cont := cb(didTimeout)
	if cont != nil {
		t.callback = cont
		t.isQueued = true
		s.ready.push(t)
	}

	s.profiler.TaskFinished(info, s.clock.NowMs()-start)
}

// RunWithPriority pushes level as the current ambient priority, runs fn,
// then restores the previous level — even if fn panics (spec.md §4.2's
// runWithPriority/unstable_wrapCallback design). Tasks scheduled from
// within fn with no explicit priority should consult
// GetCurrentPriorityLevel.
func (s *Scheduler) RunWithPriority(level Priority, fn func()) {
	level = level.Normalize()
	s.priorityStack = append(s.priorityStack, level)
	defer func() { s.priorityStack = s.priorityStack[:len(s.priorityStack)-1] }()
	fn()
}

// Next schedules fn to run under the current ambient priority level, a
// shorthand for Schedule(s.GetCurrentPriorityLevel(), ...) that discards
// the handle (spec.md §4.2's unstable_next).
func (s *Scheduler) Next(fn func()) {
	_, _ = s.Schedule(s.GetCurrentPriorityLevel(), func(bool) Continuation {
		fn()
		return nil
	}, nil)
}

// WrapCallback captures the current ambient priority level and returns a
// Callback that, when eventually invoked, temporarily restores that level
// for the duration of fn — so deferred work (e.g. a promise continuation)
// still observes the priority in effect when it was captured.
func (s *Scheduler) WrapCallback(fn Callback) Callback {
	level := s.GetCurrentPriorityLevel()
	return func(didTimeout bool) Continuation {
		var cont Continuation
		s.RunWithPriority(level, func() {
			cont = fn(didTimeout)
		})
		return cont
	}
}

// GetCurrentPriorityLevel returns the ambient priority in effect — the
// priority of the task currently executing, or Normal outside of any task
// (spec.md §4.2).
func (s *Scheduler) GetCurrentPriorityLevel() Priority {
	if len(s.priorityStack) == 0 {
		return Normal
	}
	return s.priorityStack[len(s.priorityStack)-1]
}

// GetFirstCallbackNode peeks the ready queue's head without removing it,
// for diagnostics (spec.md §4.2). Returns zero values if the ready queue is
// empty or its head is cancelled.
func (s *Scheduler) GetFirstCallbackNode() (id uint64, priority Priority, ok bool) {
	t := s.ready.peek()
	if t == nil || t.cancelled() {
		return 0, 0, false
	}
	return t.id, t.priority, true
}

// Now returns the scheduler's current time reading in milliseconds, via its
// configured [Clock].
func (s *Scheduler) Now() int64 { return s.clock.NowMs() }

// ShouldYield reports whether the caller — typically a task's own callback
// mid-slice — should return a continuation and give control back to the
// host, per the current slice's elapsed time and input-pending hint
// (spec.md §4.4). Only meaningful while called from within a running task.
func (s *Scheduler) ShouldYield() bool {
	if !s.performingWork {
		return false
	}
	elapsed := s.clock.NowMs() - s.sliceStart
	return s.yield.shouldYield(elapsed)
}

// RequestPaint marks the current slice as having a pending paint, which the
// yield policy treats as an immediate yield request once the frame-interval
// floor has been crossed (spec.md §4.4).
func (s *Scheduler) RequestPaint() { s.yield.requestPaint() }

// ForceFrameRate sets the yield-slice budget to 1000/fps milliseconds. fps
// must be in [0, 125]; 0 resets the default. An out-of-range value is
// logged as a RangeError rather than returned, per spec.md §4.2/§7.
func (s *Scheduler) ForceFrameRate(fps int) {
	if err := s.yield.forceFrameRate(fps); err != nil {
		s.logger.Log(LogEntry{Level: LevelWarn, Message: "ForceFrameRate rejected", Err: err})
	}
}

// PauseExecution sets the paused latch: the work loop's drain exits at the
// top of its next iteration (spec.md §4.3 step 4, §4.6) rather than
// completing the whole slice, and Schedule requests no new host callback
// until ContinueExecution (spec.md §4.2's unstable_pauseExecution). A task
// already dispatched still runs to completion before the latch is observed.
// An activation that stops on the latch still reports remaining ready work,
// so the host adapter re-arms it; each such activation returns at once
// without running a task until ContinueExecution.
func (s *Scheduler) PauseExecution() {
	s.paused = true
}

// ContinueExecution clears the paused latch and, if ready work is waiting,
// requests a host callback to resume it (spec.md §4.2's
// unstable_continueExecution).
func (s *Scheduler) ContinueExecution() {
	s.paused = false
	s.requestCallbackIfNeeded()
}

// ReadyLen returns the number of tasks currently in the ready queue,
// including any not-yet-skipped cancelled entries.
func (s *Scheduler) ReadyLen() int { return s.ready.len() }

// PendingLen returns the number of tasks currently in the pending (delayed)
// queue.
func (s *Scheduler) PendingLen() int { return s.pending.len() }

// Metrics returns a snapshot of the built-in recorder's state, or the zero
// value if WithMetrics(true) was not passed to New. Safe to call from a
// goroutine other than the one driving the work loop (see metrics.go).
func (s *Scheduler) Metrics() MetricsSnapshot {
	if s.metrics == nil {
		return MetricsSnapshot{}
	}
	return s.metrics.Snapshot()
}

// Close stops the host adapter and marks the scheduler closed: further
// Schedule calls return ErrSchedulerClosed. Any outstanding timeout is
// cancelled. Close does not drain or run remaining ready/pending tasks.
func (s *Scheduler) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.hostTimeoutScheduled != nil {
		s.hostTimeoutScheduled.Cancel()
		s.hostTimeoutScheduled = nil
	}
	s.hostAdapter.Close()
}
