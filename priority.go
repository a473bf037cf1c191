package gosched

// Priority is a coarse scheduling priority. Lower-latency levels receive a
// shorter timeout (added to a task's start time to compute its deadline),
// so they sort earlier in the ready heap than work submitted at the same
// time under a lower priority.
type Priority int

const (
	// Immediate must run before the next paint; its timeout is negative so
	// it is always already "expired" and therefore never deferred by the
	// yield policy.
	Immediate Priority = iota
	// UserBlocking corresponds to a direct result of user interaction.
	UserBlocking
	// Normal is the default priority for ordinary work.
	Normal
	// Low is for work the user is not actively waiting on.
	Low
	// Idle is for background work with no deadline pressure; it runs only
	// when nothing else is ready.
	Idle
)

// timeout in milliseconds, added to startTime to compute expirationTime.
// Unknown priorities fall back to Normal's timeout (see Priority.Timeout).
const (
	timeoutImmediate     = -1
	timeoutUserBlocking  = 250
	timeoutNormal        = 5000
	timeoutLow           = 10000
	timeoutIdle          = 1073741823 // ~2^30 - 1, "never"
)

// Timeout returns the number of milliseconds added to a task's start time
// to compute its expiration (deadline). Priorities outside the five known
// levels are treated as Normal.
func (p Priority) Timeout() int64 {
	switch p {
	case Immediate:
		return timeoutImmediate
	case UserBlocking:
		return timeoutUserBlocking
	case Normal:
		return timeoutNormal
	case Low:
		return timeoutLow
	case Idle:
		return timeoutIdle
	default:
		return timeoutNormal
	}
}

// Normalize maps an out-of-range priority value to Normal, per the
// malformed-priority error-handling rule: unrecognized priorities are
// silently normalized rather than rejected.
func (p Priority) Normalize() Priority {
	switch p {
	case Immediate, UserBlocking, Normal, Low, Idle:
		return p
	default:
		return Normal
	}
}

// String returns a human-readable name, used in log fields and the demo.
func (p Priority) String() string {
	switch p {
	case Immediate:
		return "Immediate"
	case UserBlocking:
		return "UserBlocking"
	case Normal:
		return "Normal"
	case Low:
		return "Low"
	case Idle:
		return "Idle"
	default:
		return "Unknown"
	}
}
