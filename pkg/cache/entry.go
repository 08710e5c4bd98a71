package cache

import (
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/gatecache/pkg/scheduler"
)

// Stage is the lifecycle stage of a cache entry.
type Stage uint32

const (
	// StagePending means the value is being computed.
	StagePending Stage = iota
	// StageResolved means the value is available.
	StageResolved
	// StageFailed means the computation returned an error.
	// Failed entries are removed before waiters observe the error.
	StageFailed
	// StageEvicted means the entry was expired, invalidated or not stored.
	StageEvicted
)

func (s Stage) String() string {
	switch s {
	case StagePending:
		return "pending"
	case StageResolved:
		return "resolved"
	case StageFailed:
		return "failed"
	case StageEvicted:
		return "evicted"
	}
	return "unknown"
}

// entry is the per-key unit of state. value and err are written once by
// the computing goroutine before done is closed and never change after.
type entry[V any] struct {
	generation uint64
	done       chan struct{}
	value      V
	err        error
	// abandoned is set when the computing caller's context ended before
	// compute returned; waiters with a live context start over.
	abandoned bool
	stage     atomic.Uint32

	mu     sync.Mutex
	handle scheduler.Handle
}

func newEntry[V any](generation uint64) *entry[V] {
	return &entry[V]{
		generation: generation,
		done:       make(chan struct{}),
	}
}

func (e *entry[V]) Stage() Stage {
	return Stage(e.stage.Load())
}

func (e *entry[V]) resolve(v V) {
	e.value = v
	e.stage.Store(uint32(StageResolved))
	close(e.done)
}

func (e *entry[V]) fail(err error, abandoned bool) {
	e.err = err
	e.abandoned = abandoned
	e.stage.Store(uint32(StageFailed))
}

// retire moves a resolved entry to StageEvicted. Only the first caller
// succeeds; it receives the pending eviction handle, if any, to cancel.
func (e *entry[V]) retire() (scheduler.Handle, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.stage.CompareAndSwap(uint32(StageResolved), uint32(StageEvicted)) {
		return nil, false
	}
	h := e.handle
	e.handle = nil
	return h, true
}

// attach stores the eviction handle. It fails if the entry was retired
// while the handle was being scheduled; the caller must cancel it then.
func (e *entry[V]) attach(h scheduler.Handle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.Stage() != StageResolved {
		return false
	}
	e.handle = h
	return true
}

func (e *entry[V]) live() bool {
	return e.Stage() == StageResolved
}
