package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

// SyncFunc runs one sync cycle.
type SyncFunc func(ctx context.Context, trigger domain.SyncTrigger) (SyncResult, error)

// SyncScheduler triggers a sync cycle on a fixed interval. Ticks that fire
// while a cycle is still running are dropped rather than queued.
type SyncScheduler struct {
	run      SyncFunc
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSyncScheduler creates a stopped scheduler. A zero timeout leaves cycles unbounded.
func NewSyncScheduler(run SyncFunc, interval, timeout time.Duration, logger *slog.Logger) *SyncScheduler {
	if logger == nil {
		logger = slog.Default()
	}

	return &SyncScheduler{run: run, interval: interval, timeout: timeout, logger: logger}
}

// Start begins ticking. The first cycle runs one interval after Start.
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return domain.NewConflictError("sync scheduler", "already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx, s.done)

	s.logger.InfoContext(ctx, "sync scheduler started", slog.Duration("interval", s.interval))

	return nil
}

// Stop halts future ticks and waits for the loop to exit. An in-flight cycle
// is allowed to finish. Stop on a stopped scheduler is a no-op.
func (s *SyncScheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done

	s.logger.Info("sync scheduler stopped")
}

// Running reports whether the scheduler has been started and not stopped.
func (s *SyncScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cancel != nil
}

func (s *SyncScheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *SyncScheduler) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "sync cycle panicked", slog.Any("panic", fmt.Sprint(r)))
		}
	}()

	// Stop only prevents future ticks; the running cycle keeps its own deadline.
	cycleCtx := context.WithoutCancel(ctx)

	if s.timeout > 0 {
		var cancel context.CancelFunc

		cycleCtx, cancel = context.WithTimeout(cycleCtx, s.timeout)
		defer cancel()
	}

	if _, err := s.run(cycleCtx, domain.TriggerTimer); err != nil {
		s.logger.ErrorContext(ctx, "scheduled sync failed", slog.Any("error", err))
	}
}
