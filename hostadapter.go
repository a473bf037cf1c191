package gosched

import (
	"sync"
	"time"
)

// WorkFunc is the signature the host adapter invokes to re-enter the work
// loop: hasTimeRemaining is always true in this implementation (the host
// primitives below never interrupt mid-slice), and initialNowMs is the
// time read at the start of the activation. It returns whether more work
// remains (the host should re-arm a continuation).
type WorkFunc func(hasTimeRemaining bool, initialNowMs int64) bool

// HostAdapter abstracts the two host primitives spec.md §4.5 requires:
// posting a zero-delay "continuation" message to self, and setting a
// single cancellable timer. The scheduler depends only on this interface
// (spec.md §9's "Host adapter abstraction" design note); environments
// (browser main thread, a goroutine-backed default, a test double) supply
// their own implementation.
type HostAdapter interface {
	// RequestHostCallback stores work as the pending continuation and
	// arranges for it to be invoked on the host's own schedule — a
	// macrotask boundary, not a microtask: every turn must yield fully
	// back to the host between activations (spec.md §4.5).
	RequestHostCallback(work WorkFunc)

	// RequestHostTimeout arranges for callback to be invoked after delay.
	// Returns a [Timer] whose Cancel stops it. At most one timeout may be outstanding;
	// callers must cancel a previous one (via Timer.Cancel) before
	// requesting another, matching spec.md §3 invariant 6.
	RequestHostTimeout(delay time.Duration, callback func()) Timer

	// Close releases any resources (goroutines, channels) held by the
	// adapter. Further RequestHostCallback/RequestHostTimeout calls after
	// Close are no-ops.
	Close()
}

// Timer is a single cancellable timer handle.
type Timer interface {
	// Cancel stops the timer if it has not already fired. Safe to call
	// more than once.
	Cancel()
}

// goroutineHostAdapter is the default [HostAdapter]: a dedicated goroutine
// that blocks on a buffered "wakeup" channel, grounded on the teacher's
// fastWakeupCh pattern (loop.go) — a size-1 buffered channel used as a
// deduplicating zero-delay self-message, avoiding the pipe-based wakeup the
// teacher falls back to only when OS-level I/O readiness is involved,
// which is explicitly out of scope here (spec.md §1 non-goals).
type goroutineHostAdapter struct {
	wake    chan struct{}
	closeCh chan struct{}
	clock   Clock

	mu      sync.Mutex
	pending WorkFunc
}

// NewGoroutineHostAdapter returns the default HostAdapter: continuations
// run on a single dedicated goroutine, woken by a buffered "wakeup"
// channel (grounded on the teacher's fastWakeupCh dedup pattern); timeouts
// use time.AfterFunc. Suitable for tests and for embedding the scheduler
// in a larger Go program that itself acts as "the host."
func NewGoroutineHostAdapter(clock Clock) HostAdapter {
	a := &goroutineHostAdapter{
		wake:    make(chan struct{}, 1),
		closeCh: make(chan struct{}),
		clock:   clock,
	}
	go a.run()
	return a
}

// run is the adapter's single dedicated goroutine: each pass through the
// select is one macrotask turn, matching RequestHostCallback's doc
// contract. A WorkFunc reporting more work available is re-armed as the
// next turn's pending work rather than looped synchronously in place, so
// every continuation still crosses a real turn boundary.
func (a *goroutineHostAdapter) run() {
	for {
		select {
		case <-a.closeCh:
			return
		case <-a.wake:
		}

		a.mu.Lock()
		work := a.pending
		a.pending = nil
		a.mu.Unlock()
		if work == nil {
			continue
		}

		if work(true, a.clock.NowMs()) {
			a.mu.Lock()
			a.pending = work
			a.mu.Unlock()
			a.signalWake()
		}
	}
}

func (a *goroutineHostAdapter) signalWake() {
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

func (a *goroutineHostAdapter) RequestHostCallback(work WorkFunc) {
	a.mu.Lock()
	a.pending = work
	a.mu.Unlock()
	a.signalWake()
}

func (a *goroutineHostAdapter) RequestHostTimeout(delay time.Duration, callback func()) Timer {
	t := time.AfterFunc(delay, func() {
		select {
		case <-a.closeCh:
			return
		default:
		}
		callback()
	})
	return timerFunc(func() { t.Stop() })
}

func (a *goroutineHostAdapter) Close() {
	select {
	case <-a.closeCh:
	default:
		close(a.closeCh)
	}
}

// timerFunc adapts a plain cancel closure to the Timer interface.
type timerFunc func()

func (f timerFunc) Cancel() { f() }

// SyncHostAdapter is a synchronous, single-goroutine HostAdapter intended
// for deterministic tests: RequestHostCallback stores the work function
// instead of invoking it, and Pump runs it exactly once, returning whether
// more work remains. RequestHostTimeout similarly stores a pending
// callback that the test fires via FireTimer rather than a real
// timer, so scenarios like S3/S6 (spec.md §8) don't depend on wall time.
type SyncHostAdapter struct {
	pending     WorkFunc
	timerCB     func()
	timerActive bool
}

// NewSyncHostAdapter returns a HostAdapter whose continuations and timeouts
// are driven manually by test code via Pump/FireTimer.
func NewSyncHostAdapter() *SyncHostAdapter {
	return &SyncHostAdapter{}
}

func (a *SyncHostAdapter) RequestHostCallback(work WorkFunc) {
	a.pending = work
}

func (a *SyncHostAdapter) RequestHostTimeout(_ time.Duration, callback func()) Timer {
	a.timerCB = callback
	a.timerActive = true
	return timerFunc(func() { a.timerActive = false; a.timerCB = nil })
}

// Close does nothing: a SyncHostAdapter keeps storing work and timer
// callbacks passed to it afterwards, and Pump/FireTimer still run them.
func (a *SyncHostAdapter) Close() {}

// HasPendingCallback reports whether a continuation is currently armed.
func (a *SyncHostAdapter) HasPendingCallback() bool { return a.pending != nil }

// TimerActive reports whether a timeout is currently armed.
func (a *SyncHostAdapter) TimerActive() bool { return a.timerActive }

// Pump invokes the pending continuation (if any) exactly once, clearing it
// first so a re-arm requested from inside the call (e.g. a new task
// becoming ready) is observed as a fresh pending callback rather than lost.
// If the invocation itself reports more work remains, Pump re-arms it as
// the pending callback for the next Pump call — mirroring how
// [goroutineHostAdapter] re-posts a WorkFunc that returns true — so a test
// drives each work-loop activation one at a time by calling Pump in a
// loop. Returns ran=false if there was nothing pending.
func (a *SyncHostAdapter) Pump(nowMs int64) (more bool, ran bool) {
	work := a.pending
	if work == nil {
		return false, false
	}
	a.pending = nil
	more = work(true, nowMs)
	if more {
		a.pending = work
	}
	return more, true
}

// FireTimer invokes the armed timer callback (if any) and clears the latch.
func (a *SyncHostAdapter) FireTimer() (ran bool) {
	if !a.timerActive || a.timerCB == nil {
		return false
	}
	cb := a.timerCB
	a.timerActive = false
	a.timerCB = nil
	cb()
	return true
}
