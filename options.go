// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package gosched

// schedulerOptions holds configuration accumulated from Option values,
// mirroring the teacher's options.go loopOptions/LoopOption split.
type schedulerOptions struct {
	clock           Clock
	hostAdapter     HostAdapter
	logger          Logger
	metricsEnabled  bool
	profiler        Profiler
	frameIntervalMs int
}

// Option configures a Scheduler at construction time.
type Option interface {
	applyScheduler(*schedulerOptions) error
}

type optionFunc func(*schedulerOptions) error

func (f optionFunc) applyScheduler(o *schedulerOptions) error { return f(o) }

// WithClock overrides the time source. Tests typically pass a [*FakeClock].
func WithClock(c Clock) Option {
	return optionFunc(func(o *schedulerOptions) error {
		o.clock = c
		return nil
	})
}

// WithHostAdapter overrides the host bridge. Tests typically pass a
// [*SyncHostAdapter].
func WithHostAdapter(h HostAdapter) Option {
	return optionFunc(func(o *schedulerOptions) error {
		o.hostAdapter = h
		return nil
	})
}

// WithLogger attaches a structured [Logger]. See [NewDefaultLogger] and
// [NewLogifaceLogger].
func WithLogger(l Logger) Option {
	return optionFunc(func(o *schedulerOptions) error {
		o.logger = l
		return nil
	})
}

// WithMetrics enables the built-in slice-latency/queue-depth recorder,
// retrievable afterward via Scheduler.Metrics.
func WithMetrics(enabled bool) Option {
	return optionFunc(func(o *schedulerOptions) error {
		o.metricsEnabled = enabled
		return nil
	})
}

// WithProfiler attaches an observability hook invoked on task start and
// task error (spec.md §4.3/§4.6's "if profiling enabled" events). The core
// scheduler never implements a profiler itself — per spec.md §1, profiling
// hooks are an external collaborator — it only calls this hook when set.
func WithProfiler(p Profiler) Option {
	return optionFunc(func(o *schedulerOptions) error {
		o.profiler = p
		return nil
	})
}

// WithFrameInterval sets the initial yield-slice budget in milliseconds.
// ms must be positive. The value is used as given; unlike ForceFrameRate it
// is not limited to intervals that a frame rate in [1, 125] fps produces.
func WithFrameInterval(ms int) Option {
	return optionFunc(func(o *schedulerOptions) error {
		if ms <= 0 {
			return &RangeError{Message: "WithFrameInterval: ms must be positive"}
		}
		o.frameIntervalMs = ms
		return nil
	})
}

// resolveOptions applies opts over sane defaults.
func resolveOptions(opts []Option) (*schedulerOptions, error) {
	cfg := &schedulerOptions{
		clock: NewMonotonicClock(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyScheduler(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.hostAdapter == nil {
		cfg.hostAdapter = NewGoroutineHostAdapter(cfg.clock)
	}
	if cfg.logger == nil {
		cfg.logger = NewNoOpLogger()
	}
	return cfg, nil
}
