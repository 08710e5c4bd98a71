// Package scheduler defines the delayed-task facility caches use to expire
// entries, and a robfig/cron backed implementation of it.
//
// Components that need deferred work take a [Scheduler] instead of starting
// goroutines or timers themselves. That keeps goroutine ownership in one
// place and lets tests substitute a fake (see package schedulertest) that
// records delays without real time passing.
//
// # Cron
//
//	s := scheduler.NewCron(scheduler.WithLogger(log))
//	if err := s.Start(); err != nil {
//	    return err
//	}
//	defer s.Stop(ctx)
//
//	h, err := s.Schedule(func() { evict(key) }, 30*time.Second)
//	if err != nil {
//	    // ErrRejected: the scheduler is stopped
//	}
//	h.Cancel()
//
// A stopped scheduler rejects new tasks with [ErrRejected] and drops the
// ones that have not fired yet.
package scheduler
