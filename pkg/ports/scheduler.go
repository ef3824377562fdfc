package ports

import "time"

// CancelFunc stops a pending or repeating scheduled callback. Calling it more
// than once is safe.
type CancelFunc func()

// Scheduler is the cooperative foreground timer contract. The completion poll
// and the output drain loop are built on it instead of self-rescheduling
// closures, so shutdown ordering is explicit and tests can drive ticks
// manually.
//
// Callbacks scheduled through one Scheduler must all run on the same
// goroutine; the core relies on this to keep the state store single-writer.
type Scheduler interface {
	// Schedule runs fn once after delay.
	Schedule(delay time.Duration, fn func()) CancelFunc

	// Repeat runs fn every interval until cancelled. The first invocation
	// happens after one interval, not immediately.
	Repeat(interval time.Duration, fn func()) CancelFunc
}
