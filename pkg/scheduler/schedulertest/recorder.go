// Package schedulertest provides a controllable scheduler.Scheduler for tests.
package schedulertest

import (
	"sync"
	"time"

	"github.com/dmitrymomot/gatecache/pkg/scheduler"
)

// Recorder is a scheduler.Scheduler that records every call and never runs
// anything on its own. Tests fire recorded tasks explicitly.
type Recorder struct {
	mu        sync.Mutex
	scheduled []*Entry
	submitted []func()
	reject    error
}

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{}
}

// Entry is a task recorded by Schedule.
type Entry struct {
	Delay time.Duration

	mu        sync.Mutex
	task      func()
	fired     bool
	cancelled bool
}

// Schedule records task and delay.
func (r *Recorder) Schedule(task func(), delay time.Duration) (scheduler.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.reject != nil {
		return nil, r.reject
	}
	e := &Entry{Delay: delay, task: task}
	r.scheduled = append(r.scheduled, e)
	return e, nil
}

// Submit records task.
func (r *Recorder) Submit(task func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.reject != nil {
		return r.reject
	}
	r.submitted = append(r.submitted, task)
	return nil
}

// Reject makes subsequent Schedule and Submit calls fail with err.
// A nil err accepts tasks again.
func (r *Recorder) Reject(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reject = err
}

// Scheduled returns the entries recorded by Schedule, oldest first.
func (r *Recorder) Scheduled() []*Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Entry(nil), r.scheduled...)
}

// Submitted returns the number of tasks recorded by Submit.
func (r *Recorder) Submitted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.submitted)
}

// Interactions returns the total number of Schedule and Submit calls accepted.
func (r *Recorder) Interactions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scheduled) + len(r.submitted)
}

// RunSubmitted runs and forgets all submitted tasks, returning how many ran.
func (r *Recorder) RunSubmitted() int {
	r.mu.Lock()
	tasks := r.submitted
	r.submitted = nil
	r.mu.Unlock()

	for _, task := range tasks {
		task()
	}
	return len(tasks)
}

// FireAll fires every scheduled entry that is still pending.
func (r *Recorder) FireAll() int {
	n := 0
	for _, e := range r.Scheduled() {
		if e.Fire() {
			n++
		}
	}
	return n
}

// Fire runs the task unless it was cancelled or already fired.
func (e *Entry) Fire() bool {
	e.mu.Lock()
	if e.fired || e.cancelled {
		e.mu.Unlock()
		return false
	}
	e.fired = true
	e.mu.Unlock()

	e.task()
	return true
}

// Run runs the task regardless of cancellation, simulating a timer that
// fired while Cancel was racing with it.
func (e *Entry) Run() {
	e.mu.Lock()
	e.fired = true
	e.mu.Unlock()

	e.task()
}

// Cancel implements scheduler.Handle.
func (e *Entry) Cancel() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.fired || e.cancelled {
		return false
	}
	e.cancelled = true
	return true
}

// Cancelled reports whether Cancel succeeded on this entry.
func (e *Entry) Cancelled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancelled
}

var _ scheduler.Scheduler = (*Recorder)(nil)
