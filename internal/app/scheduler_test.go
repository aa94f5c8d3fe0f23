package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

func TestSyncScheduler_TicksWithTimerTrigger(t *testing.T) {
	var (
		calls    atomic.Int32
		triggers = make(chan domain.SyncTrigger, 16)
	)

	run := func(ctx context.Context, trigger domain.SyncTrigger) (SyncResult, error) {
		calls.Add(1)

		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)

		select {
		case triggers <- trigger:
		default:
		}

		return SyncResult{Trigger: trigger}, nil
	}

	s := NewSyncScheduler(run, 10*time.Millisecond, time.Second, discardLogger())
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.Running())

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	s.Stop()
	assert.False(t, s.Running())
	assert.Equal(t, domain.TriggerTimer, <-triggers)

	stopped := calls.Load()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load(), "no cycles after Stop")
}

func TestSyncScheduler_StartTwiceConflicts(t *testing.T) {
	s := NewSyncScheduler(func(context.Context, domain.SyncTrigger) (SyncResult, error) {
		return SyncResult{}, nil
	}, time.Hour, 0, discardLogger())

	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)

	err := s.Start(context.Background())
	assert.True(t, domain.IsConflict(err))
}

func TestSyncScheduler_StopWithoutStart(t *testing.T) {
	s := NewSyncScheduler(nil, time.Hour, 0, nil)

	assert.NotPanics(t, s.Stop)
	assert.False(t, s.Running())
}

func TestSyncScheduler_SurvivesPanickingCycle(t *testing.T) {
	var calls atomic.Int32

	s := NewSyncScheduler(func(context.Context, domain.SyncTrigger) (SyncResult, error) {
		calls.Add(1)
		panic("boom")
	}, 5*time.Millisecond, 0, discardLogger())

	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestSyncScheduler_DrivesCoordinator(t *testing.T) {
	remote := &gatedRemote{
		quotes:  serverQuotes("tick"),
		started: make(chan struct{}, 1024),
		release: make(chan struct{}),
	}
	close(remote.release)

	coord, store, _ := newTestCoordinator(t, remote)

	s := NewSyncScheduler(coord.Sync, 5*time.Millisecond, time.Second, discardLogger())
	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool { return len(remote.started) >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	assert.Equal(t, 4, store.Len(), "repeated cycles merge the remote quote once")
}
