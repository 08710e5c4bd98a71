package scheduler

import "time"

// Scheduler runs tasks later or right away on goroutines it owns.
// Callers never start goroutines of their own for deferred work.
type Scheduler interface {
	// Schedule runs task once after delay elapses.
	// The returned Handle cancels the task if it has not started.
	Schedule(task func(), delay time.Duration) (Handle, error)

	// Submit runs task as soon as possible.
	Submit(task func()) error
}

// Handle refers to a scheduled task.
type Handle interface {
	// Cancel prevents the task from running. It reports whether it did so:
	// false means the task already ran, is running, or was cancelled before.
	// Cancel is safe to call concurrently with the task firing.
	Cancel() bool
}
