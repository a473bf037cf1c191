package alttransport

import (
	"sync"
	"time"

	"github.com/taskwell/gosched"
)

// HostPriority is the priority vocabulary of the host-provided prioritized
// task API that Transport delegates to (spec.md §6).
type HostPriority string

const (
	HostUserBlocking HostPriority = "user-blocking"
	HostUserVisible  HostPriority = "user-visible"
	HostBackground   HostPriority = "background"
)

// translatePriority maps a gosched.Priority onto the host's three-level
// vocabulary: Immediate and UserBlocking both map to user-blocking (the
// host has no tier above it), Normal maps to user-visible, and Low and
// Idle both map to background.
func translatePriority(p gosched.Priority) HostPriority {
	switch p.Normalize() {
	case gosched.Immediate, gosched.UserBlocking:
		return HostUserBlocking
	case gosched.Normal:
		return HostUserVisible
	default:
		return HostBackground
	}
}

// Host is the capability a host environment must supply: a prioritized
// task queue that Transport posts into instead of maintaining its own
// ready/pending heaps. This is the host-integrated counterpart to
// gosched.HostAdapter's post_self_message/set_timer pair (spec.md §9), but
// priority-aware and owned entirely by the host.
type Host interface {
	// PostTask schedules fn to run at priority after delay (zero for
	// immediate dispatch). Returns a cancel function; calling it after fn
	// has already started running is a no-op.
	PostTask(priority HostPriority, delay time.Duration, fn func()) (cancel func())
}

// ShouldYieldIntervalMs is the fixed slice budget for this transport
// (spec.md §6): simpler than the core scheduler's refined yield.go policy,
// ShouldYield here is always exactly elapsed-time-since-taskStart >= this
// constant, with no input-pending refinement.
const ShouldYieldIntervalMs = 5

// hostTask is the internal record backing a TaskHandle: a mutex-protected
// abort controller (swapped on each re-post, per spec.md §6) and the
// wall-clock start time of whichever invocation is currently in flight,
// tracked per-task since the host may run tasks concurrently across
// goroutines, unlike the core scheduler's single-threaded work loop.
type hostTask struct {
	mu         sync.Mutex
	controller *AbortController
	cancel     func()
	start      time.Time
}

// TaskHandle is the opaque handle returned by Transport.Schedule, usable
// with Transport.Cancel and Transport.ShouldYield.
type TaskHandle struct {
	t *hostTask
}

// Transport is the alternate scheduler front-end: it accepts the same
// gosched.Priority/gosched.Callback submission shape as gosched.Scheduler,
// but every submission is immediately handed to a Host instead of being
// queued in a ready/pending heap.
type Transport struct {
	host Host
}

// New returns a Transport that delegates to host.
func New(host Host) *Transport {
	return &Transport{host: host}
}

// Schedule posts cb to the host under priority, after delay (zero for
// immediate). A continuation returned by cb is re-posted as a new host
// task tied to the same handle, with the handle's abort controller
// swapped for a fresh one (spec.md §6).
func (tr *Transport) Schedule(priority gosched.Priority, delay time.Duration, cb gosched.Callback) TaskHandle {
	priority = priority.Normalize()
	t := &hostTask{controller: NewAbortController()}
	tr.post(t, priority, delay, cb)
	return TaskHandle{t: t}
}

// Cancel aborts the task's current abort signal and calls the host's cancel
// function for the latest post. A posted invocation that has not started yet
// does not run; one already running is not interrupted, but a continuation
// it returns is not re-posted.
func (tr *Transport) Cancel(h TaskHandle) {
	if h.t == nil {
		return
	}
	h.t.mu.Lock()
	controller, cancel := h.t.controller, h.t.cancel
	h.t.mu.Unlock()
	controller.Abort(nil)
	if cancel != nil {
		cancel()
	}
}

// ShouldYield reports whether h's currently in-flight invocation has run
// for at least ShouldYieldIntervalMs, per spec.md §6's fixed threshold.
// Returns false for the zero handle or if no invocation of h has started
// yet. The start time is kept after an invocation returns, so afterwards
// this measures from the start of the most recent invocation.
func (tr *Transport) ShouldYield(h TaskHandle) bool {
	if h.t == nil {
		return false
	}
	h.t.mu.Lock()
	start := h.t.start
	h.t.mu.Unlock()
	if start.IsZero() {
		return false
	}
	return time.Since(start).Milliseconds() >= ShouldYieldIntervalMs
}

// post submits a single invocation of cb to the host, capturing the abort
// signal in effect at post time. A Cancel aborts that signal, which skips
// the invocation if it has not started and stops its continuation from
// being re-posted. Each re-post swaps in a fresh controller first.
func (tr *Transport) post(t *hostTask, priority gosched.Priority, delay time.Duration, cb gosched.Callback) {
	hp := translatePriority(priority)
	signal := func() *AbortSignal {
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.controller.Signal()
	}()

	cancel := tr.host.PostTask(hp, delay, func() {
		if signal.Aborted() {
			return
		}

		t.mu.Lock()
		t.start = time.Now()
		t.mu.Unlock()

		// didTimeout has no meaning here: the host, not this transport,
		// owns deadline tracking (spec.md §6 omits the pending queue and
		// its expirationTime bookkeeping entirely), so every invocation
		// reports false.
		cont := tr.runSafely(cb, priority)
		if cont == nil || signal.Aborted() {
			return
		}

		t.mu.Lock()
		t.controller = NewAbortController()
		t.mu.Unlock()
		tr.post(t, priority, 0, cont)
	})

	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()
}

// runSafely invokes cb, rethrowing any panic inside a freshly posted host
// task rather than letting it propagate out of the host's own dispatch
// call — matching spec.md §6's "errors are rethrown inside a fresh host
// task to avoid swallowing into a promise rejection."
func (tr *Transport) runSafely(cb gosched.Callback, priority gosched.Priority) (cont gosched.Continuation) {
	defer func() {
		if r := recover(); r != nil {
			tr.host.PostTask(translatePriority(priority), 0, func() {
				panic(r)
			})
		}
	}()
	return cb(false)
}
