// Package gosched implements a cooperative, priority-based task scheduler
// that interleaves user-supplied callbacks with a host event loop so that
// long-running computations do not monopolize the main execution thread.
//
// # Architecture
//
// A [Scheduler] accepts callbacks tagged with one of five [Priority] levels,
// assigns each an effective deadline, and dispatches them in deadline order
// on a single logical execution context. Tasks scheduled with a future start
// time wait in a pending heap (ordered by start time) until they mature,
// then migrate into a ready heap (ordered by deadline).
//
// The [Scheduler.workLoop] drains the ready heap until the yield policy
// says to stop or the heap empties, then hands control back to a
// [HostAdapter] — an abstraction over "schedule me a continuation as soon
// as the host is idle" and "call me back after N milliseconds."
//
// # Priority Levels
//
// Five levels exist: [Immediate], [UserBlocking], [Normal], [Low], and
// [Idle]. Each carries a fixed timeout added to a task's start time to
// compute its deadline; see [Priority.Timeout].
//
// # Concurrency Model
//
// The scheduler is single-threaded and cooperative: all scheduler state is
// owned by one logical execution context, with no locks or atomics in the
// core dispatch path. A running callback cannot be preempted; it must
// return a continuation if it wants another slice.
//
// # Alternate Transport
//
// Package [github.com/taskwell/gosched/alttransport] provides a drop-in
// variant that delegates to a host-provided prioritized task API instead
// of owning the ready/pending heaps, per the host-integrated design
// described alongside this package.
//
// # Usage
//
//	sched, err := gosched.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sched.Close()
//
//	sched.Schedule(gosched.Normal, func(didTimeout bool) gosched.Continuation {
//	    fmt.Println("ran")
//	    return nil
//	}, nil)
package gosched
