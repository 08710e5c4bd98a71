package scheduler

import "errors"

var (
	// ErrRejected is returned when the scheduler does not accept new tasks,
	// typically because it is stopped.
	ErrRejected = errors.New("scheduler: task rejected")

	// ErrAlreadyStarted is returned when starting a running scheduler.
	ErrAlreadyStarted = errors.New("scheduler: already started")

	// ErrNotStarted is returned when stopping a scheduler that is not running.
	ErrNotStarted = errors.New("scheduler: not started")

	// ErrNilTask is returned when scheduling a nil task.
	ErrNilTask = errors.New("scheduler: nil task")
)
