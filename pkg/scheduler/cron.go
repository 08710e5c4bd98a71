package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Cron is a Scheduler backed by robfig/cron. Every task becomes a one-shot
// cron entry that removes itself once it fires or is cancelled.
//
// Tasks run on goroutines owned by the cron runner. A panicking task is
// recovered and logged; it does not affect other tasks.
type Cron struct {
	cron   *cron.Cron
	logger *slog.Logger
	live   sync.Map // *cronHandle -> struct{}

	mu      sync.RWMutex
	started bool
}

// NewCron creates a scheduler. Call Start before scheduling tasks;
// a scheduler that is not running rejects them with ErrRejected.
func NewCron(opts ...Option) *Cron {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	l := cronLogger{logger: o.logger}
	return &Cron{
		cron: cron.New(
			cron.WithLocation(o.location),
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l)),
		),
		logger: o.logger,
	}
}

// Start begins running scheduled tasks.
func (c *Cron) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return ErrAlreadyStarted
	}

	c.cron.Start()
	c.started = true
	c.logger.Debug("scheduler started")
	return nil
}

// Stop stops accepting tasks, drops the ones that have not fired yet and
// waits for running tasks to return or ctx to be done.
func (c *Cron) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return ErrNotStarted
	}
	c.started = false
	c.mu.Unlock()

	done := c.cron.Stop()

	dropped := 0
	c.live.Range(func(k, _ any) bool {
		if k.(*cronHandle).Cancel() {
			dropped++
		}
		return true
	})
	c.logger.Debug("scheduler stopped", slog.Int("dropped", dropped))

	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Schedule runs task once after delay. A non-positive delay runs it as soon
// as the cron runner wakes up.
func (c *Cron) Schedule(task func(), delay time.Duration) (Handle, error) {
	if task == nil {
		return nil, ErrNilTask
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.started {
		return nil, ErrRejected
	}

	h := &cronHandle{owner: c, ready: make(chan struct{})}
	c.live.Store(h, struct{}{})
	h.id = c.cron.Schedule(&onceSchedule{at: time.Now().Add(max(delay, 0))}, cron.FuncJob(func() {
		h.run(task)
	}))
	close(h.ready)

	return h, nil
}

// Submit runs task without delay.
func (c *Cron) Submit(task func()) error {
	_, err := c.Schedule(task, 0)
	return err
}

// Pending returns the number of tasks that have neither fired nor been cancelled.
func (c *Cron) Pending() int {
	n := 0
	c.live.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// StartFunc returns a startup hook for the scheduler.
func (c *Cron) StartFunc() func(context.Context) error {
	return func(context.Context) error {
		return c.Start()
	}
}

// Shutdown returns a shutdown hook for the scheduler.
func (c *Cron) Shutdown() func(context.Context) error {
	return func(ctx context.Context) error {
		return c.Stop(ctx)
	}
}

// release removes the handle's cron entry. It runs exactly once per handle,
// from whichever of run or Cancel wins the state transition.
func (c *Cron) release(h *cronHandle) {
	<-h.ready
	c.cron.Remove(h.id)
	c.live.Delete(h)
}

const (
	statePending int32 = iota
	stateFired
	stateCancelled
)

type cronHandle struct {
	owner *Cron
	ready chan struct{} // closed once id is assigned
	id    cron.EntryID
	state atomic.Int32
}

func (h *cronHandle) run(task func()) {
	if !h.state.CompareAndSwap(statePending, stateFired) {
		return
	}
	h.owner.release(h)
	task()
}

func (h *cronHandle) Cancel() bool {
	if !h.state.CompareAndSwap(statePending, stateCancelled) {
		return false
	}
	h.owner.release(h)
	return true
}

// onceSchedule yields its activation time to the first Next call and the
// zero time afterwards, which cron treats as "never again".
type onceSchedule struct {
	at    time.Time
	fired atomic.Bool
}

func (s *onceSchedule) Next(time.Time) time.Time {
	if s.fired.CompareAndSwap(false, true) {
		return s.at
	}
	return time.Time{}
}

// cronLogger routes cron's chatty lifecycle messages to debug level.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

var _ Scheduler = (*Cron)(nil)
