package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatecache/pkg/scheduler"
)

func newStartedCron(t *testing.T) *scheduler.Cron {
	t.Helper()

	s := scheduler.NewCron()
	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s
}

func TestCron_Schedule(t *testing.T) {
	t.Parallel()

	t.Run("runs task after delay", func(t *testing.T) {
		t.Parallel()

		s := newStartedCron(t)
		start := time.Now()
		ran := make(chan time.Time, 1)

		_, err := s.Schedule(func() { ran <- time.Now() }, 30*time.Millisecond)
		require.NoError(t, err)

		select {
		case at := <-ran:
			require.GreaterOrEqual(t, at.Sub(start), 30*time.Millisecond)
		case <-time.After(2 * time.Second):
			t.Fatal("task did not run")
		}
	})

	t.Run("runs each task once", func(t *testing.T) {
		t.Parallel()

		s := newStartedCron(t)
		var runs atomic.Int32

		for range 20 {
			_, err := s.Schedule(func() { runs.Add(1) }, 5*time.Millisecond)
			require.NoError(t, err)
		}

		require.Eventually(t, func() bool { return runs.Load() == 20 }, 2*time.Second, 5*time.Millisecond)
		time.Sleep(30 * time.Millisecond)
		require.Equal(t, int32(20), runs.Load())
		require.Eventually(t, func() bool { return s.Pending() == 0 }, time.Second, 5*time.Millisecond)
	})

	t.Run("rejects nil task", func(t *testing.T) {
		t.Parallel()

		s := newStartedCron(t)
		_, err := s.Schedule(nil, time.Second)
		require.ErrorIs(t, err, scheduler.ErrNilTask)
	})

	t.Run("rejects before start", func(t *testing.T) {
		t.Parallel()

		s := scheduler.NewCron()
		_, err := s.Schedule(func() {}, time.Second)
		require.ErrorIs(t, err, scheduler.ErrRejected)
		require.ErrorIs(t, s.Submit(func() {}), scheduler.ErrRejected)
	})
}

func TestCron_Cancel(t *testing.T) {
	t.Parallel()

	t.Run("prevents task from running", func(t *testing.T) {
		t.Parallel()

		s := newStartedCron(t)
		var ran atomic.Bool

		h, err := s.Schedule(func() { ran.Store(true) }, 20*time.Millisecond)
		require.NoError(t, err)
		require.Equal(t, 1, s.Pending())

		require.True(t, h.Cancel())
		require.False(t, h.Cancel(), "second cancel is a no-op")
		require.Equal(t, 0, s.Pending())

		time.Sleep(60 * time.Millisecond)
		require.False(t, ran.Load())
	})

	t.Run("reports false after task ran", func(t *testing.T) {
		t.Parallel()

		s := newStartedCron(t)
		done := make(chan struct{})

		h, err := s.Schedule(func() { close(done) }, time.Millisecond)
		require.NoError(t, err)
		<-done

		require.False(t, h.Cancel())
	})

	t.Run("racing cancel and fire runs task at most once", func(t *testing.T) {
		t.Parallel()

		s := newStartedCron(t)
		var runs, cancels atomic.Int32

		for range 50 {
			h, err := s.Schedule(func() { runs.Add(1) }, 0)
			require.NoError(t, err)
			if h.Cancel() {
				cancels.Add(1)
			}
		}

		require.Eventually(t, func() bool { return runs.Load()+cancels.Load() == 50 }, 2*time.Second, 5*time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		require.Equal(t, int32(50), runs.Load()+cancels.Load())
	})
}

func TestCron_Submit(t *testing.T) {
	t.Parallel()

	s := newStartedCron(t)
	done := make(chan struct{})

	require.NoError(t, s.Submit(func() { close(done) }))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("submitted task did not run")
	}
}

func TestCron_PanickingTask(t *testing.T) {
	t.Parallel()

	s := newStartedCron(t)
	done := make(chan struct{})

	require.NoError(t, s.Submit(func() { panic("boom") }))
	require.NoError(t, s.Submit(func() { close(done) }))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler stopped running tasks after a panic")
	}
}

func TestCron_Lifecycle(t *testing.T) {
	t.Parallel()

	t.Run("start twice", func(t *testing.T) {
		t.Parallel()

		s := newStartedCron(t)
		require.ErrorIs(t, s.Start(), scheduler.ErrAlreadyStarted)
	})

	t.Run("stop without start", func(t *testing.T) {
		t.Parallel()

		s := scheduler.NewCron()
		require.ErrorIs(t, s.Stop(context.Background()), scheduler.ErrNotStarted)
	})

	t.Run("stop drops pending tasks and rejects new ones", func(t *testing.T) {
		t.Parallel()

		s := scheduler.NewCron()
		require.NoError(t, s.StartFunc()(context.Background()))

		var ran atomic.Bool
		h, err := s.Schedule(func() { ran.Store(true) }, 20*time.Millisecond)
		require.NoError(t, err)

		require.NoError(t, s.Shutdown()(context.Background()))
		require.Equal(t, 0, s.Pending())
		require.False(t, h.Cancel(), "stop already cancelled the task")

		_, err = s.Schedule(func() {}, time.Millisecond)
		require.ErrorIs(t, err, scheduler.ErrRejected)

		time.Sleep(50 * time.Millisecond)
		require.False(t, ran.Load())
	})
}
