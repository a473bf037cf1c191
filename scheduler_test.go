package gosched

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestScheduler wires a Scheduler to a FakeClock and a SyncHostAdapter so
// every scenario below is driven deterministically by the test, never by
// wall-clock sleeps.
func newTestScheduler(t *testing.T, startMs int64) (*Scheduler, *FakeClock, *SyncHostAdapter) {
	t.Helper()
	clock := NewFakeClock(startMs)
	host := NewSyncHostAdapter()
	s, err := New(WithClock(clock), WithHostAdapter(host))
	require.NoError(t, err)
	return s, clock, host
}

// TestS1_FIFOAtEqualPriority: Submit three Normal-priority tasks A, B, C at
// t=0 with no delay. Execute. Order of callback invocation: A, B, C.
func TestS1_FIFOAtEqualPriority(t *testing.T) {
	s, _, host := newTestScheduler(t, 0)

	var order []string
	record := func(name string) Callback {
		return func(bool) Continuation {
			order = append(order, name)
			return nil
		}
	}

	_, err := s.Schedule(Normal, record("A"), nil)
	require.NoError(t, err)
	_, err = s.Schedule(Normal, record("B"), nil)
	require.NoError(t, err)
	_, err = s.Schedule(Normal, record("C"), nil)
	require.NoError(t, err)

	_, ran := host.Pump(0)
	require.True(t, ran)
	require.Equal(t, []string{"A", "B", "C"}, order)
}

// TestS2_PriorityOrdering: at t=0 submit Normal task N, then Immediate task
// I. Execute. Order: I, then N.
func TestS2_PriorityOrdering(t *testing.T) {
	s, _, host := newTestScheduler(t, 0)

	var order []string
	record := func(name string) Callback {
		return func(bool) Continuation {
			order = append(order, name)
			return nil
		}
	}

	_, err := s.Schedule(Normal, record("N"), nil)
	require.NoError(t, err)
	_, err = s.Schedule(Immediate, record("I"), nil)
	require.NoError(t, err)

	host.Pump(0)
	require.Equal(t, []string{"I", "N"}, order)
}

// TestS3_DeferredPromotion: at t=0 submit Normal N with delay=100; at t=0
// submit Idle X with no delay. Advance clock to t=50. Execute. Order: X
// first. Continue; at t=100 the timer fires, advanceTimers promotes N, N
// runs next.
func TestS3_DeferredPromotion(t *testing.T) {
	s, clock, host := newTestScheduler(t, 0)

	var order []string
	record := func(name string) Callback {
		return func(bool) Continuation {
			order = append(order, name)
			return nil
		}
	}

	_, err := s.Schedule(Normal, record("N"), &ScheduleOptions{DelayMs: 100})
	require.NoError(t, err)
	_, err = s.Schedule(Idle, record("X"), nil)
	require.NoError(t, err)

	require.True(t, host.TimerActive(), "a pending task should arm the host timeout")

	clock.Set(50)
	host.Pump(50)
	require.Equal(t, []string{"X"}, order)

	clock.Set(100)
	require.True(t, host.FireTimer())
	require.True(t, host.HasPendingCallback(), "promoting N into ready should request a host callback")
	host.Pump(100)
	require.Equal(t, []string{"X", "N"}, order)
}

// TestS4_ContinuationPreemption: at t=0 submit Normal N returning a
// continuation after 1 unit of work. Before returning, submit UserBlocking
// U with no delay. The next iteration of the work loop should run U
// (deadline 250 < N's 5000) before N's continuation.
func TestS4_ContinuationPreemption(t *testing.T) {
	s, _, host := newTestScheduler(t, 0)

	var order []string
	first := true

	var nCallback Callback
	nCallback = func(bool) Continuation {
		order = append(order, "N")
		if first {
			first = false
			_, err := s.Schedule(UserBlocking, func(bool) Continuation {
				order = append(order, "U")
				return nil
			}, nil)
			require.NoError(t, err)
			return nCallback
		}
		return nil
	}

	_, err := s.Schedule(Normal, nCallback, nil)
	require.NoError(t, err)

	host.Pump(0)
	require.Equal(t, []string{"N", "U", "N"}, order)
}

// TestS5_CancellationAtHead: Submit Normal N1, N2. Cancel N1 before
// dispatch. Execute. Order: only N2 runs; N1's callback is never invoked.
func TestS5_CancellationAtHead(t *testing.T) {
	s, _, host := newTestScheduler(t, 0)

	var order []string
	h1, err := s.Schedule(Normal, func(bool) Continuation {
		order = append(order, "N1")
		return nil
	}, nil)
	require.NoError(t, err)
	_, err = s.Schedule(Normal, func(bool) Continuation {
		order = append(order, "N2")
		return nil
	}, nil)
	require.NoError(t, err)

	s.Cancel(h1)

	host.Pump(0)
	require.Equal(t, []string{"N2"}, order)
}

// TestS6_YieldUnderBudgetPressure: with frameInterval = 5ms, submit one
// Normal task whose callback busy-loops 6ms and returns a continuation.
// First activation runs it once; shouldYield returns true; work loop
// returns true; host adapter reposts; second activation runs the
// continuation.
func TestS6_YieldUnderBudgetPressure(t *testing.T) {
	s, clock, host := newTestScheduler(t, 0)

	calls := 0
	var cb Callback
	cb = func(bool) Continuation {
		calls++
		clock.Advance(6) // simulate 6ms of work, past the 5ms frame interval
		if calls == 1 {
			return cb
		}
		return nil
	}

	_, err := s.Schedule(Normal, cb, nil)
	require.NoError(t, err)

	more, ran := host.Pump(0)
	require.True(t, ran)
	require.Equal(t, 1, calls, "first activation should run the callback exactly once before yielding")
	require.True(t, more, "the work loop should report more work remains")

	require.True(t, host.HasPendingCallback(), "yielding with more work should leave a continuation armed")
	host.Pump(clock.NowMs())
	require.Equal(t, 2, calls, "second activation should run the continuation")
}

// TestScheduler_ExpiredHeadTaskRunsDespiteYieldPressure: a busy Normal task
// burns past the frame interval in a single slice; an Immediate task
// (timeout -1, so it is always already "expired") is submitted from inside
// that callback. Per spec.md §4.3 step 4's deadline guard, an expired head
// task must run even when the yield predicate would otherwise stop the
// loop, so the Immediate task must not be postponed to the next host turn.
func TestScheduler_ExpiredHeadTaskRunsDespiteYieldPressure(t *testing.T) {
	s, clock, host := newTestScheduler(t, 0)

	var order []string
	first := true
	var busy Callback
	busy = func(bool) Continuation {
		order = append(order, "busy")
		clock.Advance(int64(defaultFrameIntervalMs) + 1) // blow the slice budget
		if first {
			first = false
			_, err := s.Schedule(Immediate, func(bool) Continuation {
				order = append(order, "urgent")
				return nil
			}, nil)
			require.NoError(t, err)
			return busy
		}
		return nil
	}

	_, err := s.Schedule(Normal, busy, nil)
	require.NoError(t, err)

	host.Pump(0)
	require.Equal(t, []string{"busy", "urgent"}, order,
		"an already-expired Immediate task must run in the same slice, not be deferred by yield pressure")
}

// TestScheduler_MaturedPendingTaskPreemptsContinuation: a Normal task with a
// delayed UserBlocking sibling (delay=1ms) returns a continuation after
// advancing the clock past that delay. Per spec.md §4.3 step 4's re-run of
// advanceTimers (§5 ordering guarantee 4), the newly-matured higher-priority
// task must preempt the re-queued continuation within the same slice.
func TestScheduler_MaturedPendingTaskPreemptsContinuation(t *testing.T) {
	s, clock, host := newTestScheduler(t, 0)

	var order []string
	_, err := s.Schedule(UserBlocking, func(bool) Continuation {
		order = append(order, "U")
		return nil
	}, &ScheduleOptions{DelayMs: 1})
	require.NoError(t, err)

	var cont Callback
	ran := false
	cont = func(bool) Continuation {
		order = append(order, "N-continuation")
		return nil
	}
	_, err = s.Schedule(Normal, func(bool) Continuation {
		order = append(order, "N")
		ran = true
		clock.Advance(1) // matures U's delay before this slice loops again
		return cont
	}, nil)
	require.NoError(t, err)

	host.Pump(0)
	require.True(t, ran)
	require.Equal(t, []string{"N", "U", "N-continuation"}, order,
		"U should mature and preempt N's continuation instead of running after it")
}

func TestScheduler_Cancel_IsIdempotentAndNoOpOnZeroHandle(t *testing.T) {
	s, _, _ := newTestScheduler(t, 0)
	var zero TaskHandle
	s.Cancel(zero) // must not panic

	ran := false
	h, err := s.Schedule(Normal, func(bool) Continuation { ran = true; return nil }, nil)
	require.NoError(t, err)
	s.Cancel(h)
	s.Cancel(h) // idempotent
	_ = ran
}

func TestScheduler_DelayZeroOrNegative_StartsImmediately(t *testing.T) {
	s, _, host := newTestScheduler(t, 0)
	_, err := s.Schedule(Normal, func(bool) Continuation { return nil }, &ScheduleOptions{DelayMs: -5})
	require.NoError(t, err)
	require.Equal(t, 1, s.ReadyLen(), "a non-positive delay should enqueue directly to ready")
	require.False(t, host.TimerActive())
}

func TestScheduler_ScheduleAfterClose_ReturnsError(t *testing.T) {
	s, _, _ := newTestScheduler(t, 0)
	s.Close()
	_, err := s.Schedule(Normal, func(bool) Continuation { return nil }, nil)
	require.ErrorIs(t, err, ErrSchedulerClosed)
}

func TestScheduler_GetCurrentPriorityLevel_DefaultsToNormal(t *testing.T) {
	s, _, _ := newTestScheduler(t, 0)
	require.Equal(t, Normal, s.GetCurrentPriorityLevel())
}

func TestScheduler_GetCurrentPriorityLevel_ReflectsRunningTask(t *testing.T) {
	s, _, host := newTestScheduler(t, 0)
	var observed Priority
	_, err := s.Schedule(Idle, func(bool) Continuation {
		observed = s.GetCurrentPriorityLevel()
		return nil
	}, nil)
	require.NoError(t, err)
	host.Pump(0)
	require.Equal(t, Idle, observed)
	require.Equal(t, Normal, s.GetCurrentPriorityLevel(), "ambient priority must be restored after the task returns")
}

func TestScheduler_RunWithPriority_RestoresOnPanic(t *testing.T) {
	s, _, _ := newTestScheduler(t, 0)
	func() {
		defer func() { _ = recover() }()
		s.RunWithPriority(Low, func() {
			panic("boom")
		})
	}()
	require.Equal(t, Normal, s.GetCurrentPriorityLevel(), "ambient priority must be restored even if fn panics")
}

func TestScheduler_GetFirstCallbackNode(t *testing.T) {
	s, _, _ := newTestScheduler(t, 0)
	_, _, ok := s.GetFirstCallbackNode()
	require.False(t, ok, "empty ready queue should report not-ok")

	h, err := s.Schedule(UserBlocking, func(bool) Continuation { return nil }, nil)
	require.NoError(t, err)
	id, priority, ok := s.GetFirstCallbackNode()
	require.True(t, ok)
	require.Equal(t, UserBlocking, priority)
	require.Equal(t, h.t.id, id)
}

func TestScheduler_PauseExecution_BlocksNewCallbackRequests(t *testing.T) {
	s, _, host := newTestScheduler(t, 0)
	s.PauseExecution()
	_, err := s.Schedule(Normal, func(bool) Continuation { return nil }, nil)
	require.NoError(t, err)
	require.False(t, host.HasPendingCallback(), "paused scheduler must not request a host callback")

	s.ContinueExecution()
	require.True(t, host.HasPendingCallback(), "resuming should request a host callback for existing ready work")
}

func TestScheduler_TaskPanic_PropagatesAndIsNotRetried(t *testing.T) {
	s, _, host := newTestScheduler(t, 0)
	ran2 := false
	_, err := s.Schedule(Normal, func(bool) Continuation { panic("kaboom") }, nil)
	require.NoError(t, err)
	_, err = s.Schedule(Normal, func(bool) Continuation { ran2 = true; return nil }, nil)
	require.NoError(t, err)

	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r, "a user callback panic must propagate out of the work loop")
		}()
		host.Pump(0)
	}()
	require.False(t, ran2, "the work loop stops at the panicking task; it does not continue past it")
	require.Equal(t, 1, s.ReadyLen(), "the panicking task is consumed, not re-queued; only the second task remains")
}

func TestScheduler_ForceFrameRate_OutOfRange_LogsAndKeepsState(t *testing.T) {
	s, _, _ := newTestScheduler(t, 0)
	s.ForceFrameRate(999) // should not panic; logged via the no-op logger
	require.Equal(t, int64(defaultFrameIntervalMs), s.yield.frameIntervalMs)
}

func TestScheduler_Metrics_ZeroValueWithoutWithMetrics(t *testing.T) {
	s, _, _ := newTestScheduler(t, 0)
	snap := s.Metrics()
	require.Equal(t, 0, snap.SliceCount)
}

func TestScheduler_Metrics_RecordsSliceDurationAndQueueDepth(t *testing.T) {
	clock := NewFakeClock(0)
	host := NewSyncHostAdapter()
	s, err := New(WithClock(clock), WithHostAdapter(host), WithMetrics(true))
	require.NoError(t, err)

	_, err = s.Schedule(Normal, func(bool) Continuation {
		clock.Advance(2)
		return nil
	}, nil)
	require.NoError(t, err)
	_, err = s.Schedule(Normal, func(bool) Continuation { return nil }, nil)
	require.NoError(t, err)

	host.Pump(0)

	snap := s.Metrics()
	require.Equal(t, 2, snap.SliceCount)
	require.Equal(t, int64(2), snap.TasksStarted)
	require.Equal(t, int64(2), snap.TasksFinished)
	require.Equal(t, 2, snap.MaxReadyQueueDepth)
	require.Equal(t, 0, snap.ReadyQueueDepth)
}

// recordingProfiler is a user-supplied Profiler test double, independent of
// the built-in Metrics recorder.
type recordingProfiler struct {
	started, finished, errored int
}

func (p *recordingProfiler) TaskStarted(TaskInfo)         { p.started++ }
func (p *recordingProfiler) TaskFinished(TaskInfo, int64) { p.finished++ }
func (p *recordingProfiler) TaskErrored(TaskInfo, error)  { p.errored++ }

func TestScheduler_ProfilerAndMetrics_BothObserveEveryTask(t *testing.T) {
	clock := NewFakeClock(0)
	host := NewSyncHostAdapter()
	profiler := &recordingProfiler{}
	s, err := New(WithClock(clock), WithHostAdapter(host), WithProfiler(profiler), WithMetrics(true))
	require.NoError(t, err)

	_, err = s.Schedule(Normal, func(bool) Continuation { return nil }, nil)
	require.NoError(t, err)
	_, err = s.Schedule(Normal, func(bool) Continuation { panic("boom") }, nil)
	require.NoError(t, err)

	require.Panics(t, func() { host.Pump(0) })

	// The caller's own Profiler must see every task, not just the one
	// wired in by WithMetrics(true).
	require.Equal(t, 2, profiler.started)
	require.Equal(t, 1, profiler.finished)
	require.Equal(t, 1, profiler.errored)

	// Metrics must independently see the same events, not be starved by
	// the presence of a caller-supplied Profiler.
	snap := s.Metrics()
	require.Equal(t, int64(2), snap.TasksStarted)
	require.Equal(t, int64(1), snap.TasksFinished)
	require.Equal(t, int64(1), snap.TasksErrored)
}
