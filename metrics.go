package gosched

import "sync"

// Metrics is the built-in [Profiler] implementation enabled by
// WithMetrics(true): it tracks slice-duration percentiles (how long each
// individual task invocation ran for, spec.md §4.4's time-slice concept)
// and ready/pending queue-depth gauges, using the same P-Square streaming
// estimator the teacher's eventloop package uses for request latency.
//
// Metrics is the one type in this package safe to read from a goroutine
// other than the one driving the work loop: Snapshot takes a lock, since a
// caller typically wants to poll it (e.g. for a /metrics endpoint) from
// outside the scheduler's own single-threaded execution context.
type Metrics struct {
	mu sync.Mutex

	sliceDuration *pSquareMultiQuantile

	readyDepth      int
	pendingDepth    int
	maxReadyDepth   int
	maxPendingDepth int

	tasksStarted  int64
	tasksFinished int64
	tasksErrored  int64
}

// sliceDurationPercentiles are the quantiles tracked for slice duration,
// matching the teacher's latency percentile set.
var sliceDurationPercentiles = []float64{0.50, 0.90, 0.95, 0.99}

// NewMetrics returns a Metrics recorder ready to be attached as a
// [Profiler] (directly, or via [WithMetrics]).
func NewMetrics() *Metrics {
	return &Metrics{sliceDuration: newPSquareMultiQuantile(sliceDurationPercentiles...)}
}

// TaskStarted implements [Profiler].
func (m *Metrics) TaskStarted(TaskInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasksStarted++
}

// TaskFinished implements [Profiler], recording the invocation's duration.
func (m *Metrics) TaskFinished(_ TaskInfo, durationMs int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasksFinished++
	if durationMs < 0 {
		durationMs = 0
	}
	m.sliceDuration.Update(float64(durationMs))
}

// TaskErrored implements [Profiler].
func (m *Metrics) TaskErrored(TaskInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasksErrored++
}

// recordQueueDepths is called by the work loop (never by user code) once
// per dispatch to update the queue-depth gauges.
func (m *Metrics) recordQueueDepths(ready, pending int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readyDepth = ready
	m.pendingDepth = pending
	if ready > m.maxReadyDepth {
		m.maxReadyDepth = ready
	}
	if pending > m.maxPendingDepth {
		m.maxPendingDepth = pending
	}
}

// MetricsSnapshot is a point-in-time, concurrency-safe copy of a
// [Metrics] recorder's state.
type MetricsSnapshot struct {
	SliceDurationP50  float64
	SliceDurationP90  float64
	SliceDurationP95  float64
	SliceDurationP99  float64
	SliceDurationMax  float64
	SliceDurationMean float64
	SliceCount        int

	ReadyQueueDepth      int
	PendingQueueDepth    int
	MaxReadyQueueDepth   int
	MaxPendingQueueDepth int

	TasksStarted  int64
	TasksFinished int64
	TasksErrored  int64
}

// Snapshot returns a copy of the current recorder state. Safe to call
// concurrently with the scheduler's own single-threaded work loop.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MetricsSnapshot{
		SliceDurationP50:  m.sliceDuration.Quantile(0),
		SliceDurationP90:  m.sliceDuration.Quantile(1),
		SliceDurationP95:  m.sliceDuration.Quantile(2),
		SliceDurationP99:  m.sliceDuration.Quantile(3),
		SliceDurationMax:  m.sliceDuration.Max(),
		SliceDurationMean: m.sliceDuration.Mean(),
		SliceCount:        m.sliceDuration.Count(),

		ReadyQueueDepth:      m.readyDepth,
		PendingQueueDepth:    m.pendingDepth,
		MaxReadyQueueDepth:   m.maxReadyDepth,
		MaxPendingQueueDepth: m.maxPendingDepth,

		TasksStarted:  m.tasksStarted,
		TasksFinished: m.tasksFinished,
		TasksErrored:  m.tasksErrored,
	}
}
