package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/telemetry"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// SyncState is the coordinator's externally visible state.
type SyncState string

const (
	SyncIdle    SyncState = "idle"
	SyncSyncing SyncState = "syncing"
)

// SyncedMessage is the notification for a cycle that merged n quotes.
func SyncedMessage(n int) string {
	return fmt.Sprintf("%d new quote(s) synced from server!", n)
}

// SyncResult describes one completed cycle.
type SyncResult struct {
	Trigger  domain.SyncTrigger `json:"trigger"`
	Fetched  int                `json:"fetched"`
	Merged   []domain.Quote     `json:"merged"`
	Duration time.Duration      `json:"duration"`
}

// SyncCoordinator runs fetch, dedup, append and notify cycles against the
// remote collection. Fetches may overlap; the snapshot-diff-append step is
// serialized so overlapping cycles cannot both append the same remote quote.
type SyncCoordinator struct {
	store    *QuoteStore
	remote   ports.RemoteQuoteSource
	notifier ports.Notifier
	metrics  *telemetry.SyncMetrics
	logger   *slog.Logger

	mergeMu  sync.Mutex
	inFlight atomic.Int32
}

// SyncCoordinatorConfig holds the coordinator's dependencies.
type SyncCoordinatorConfig struct {
	Store    *QuoteStore
	Remote   ports.RemoteQuoteSource
	Notifier ports.Notifier
	Metrics  *telemetry.SyncMetrics
	Logger   *slog.Logger
}

// NewSyncCoordinator creates a coordinator. Store, Remote and Notifier are required.
func NewSyncCoordinator(cfg SyncCoordinatorConfig) *SyncCoordinator {
	if cfg.Store == nil || cfg.Remote == nil || cfg.Notifier == nil {
		panic("app: SyncCoordinator requires Store, Remote and Notifier")
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &SyncCoordinator{
		store:    cfg.Store,
		remote:   cfg.Remote,
		notifier: cfg.Notifier,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}
}

// State reports Syncing while any cycle is in flight.
func (c *SyncCoordinator) State() SyncState {
	if c.inFlight.Load() > 0 {
		return SyncSyncing
	}

	return SyncIdle
}

// Sync runs one cycle. Remote failures surface as an empty fetch, so the only
// error Sync returns is a failure to persist merged quotes.
func (c *SyncCoordinator) Sync(ctx context.Context, trigger domain.SyncTrigger) (SyncResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "sync.cycle",
		trace.WithAttributes(attribute.String("sync.trigger", string(trigger))))
	defer span.End()

	logger := c.logger.With(slog.String("trigger", string(trigger)))
	start := time.Now()
	done := c.metrics.CycleStarted(string(trigger))

	c.inFlight.Add(1)
	defer c.inFlight.Add(-1)

	fetched := c.remote.FetchRemoteQuotes(ctx)
	result := SyncResult{Trigger: trigger, Fetched: len(fetched)}

	merged, err := c.merge(ctx, fetched)
	result.Duration = time.Since(start)

	span.SetAttributes(attribute.Int("sync.fetched", len(fetched)), attribute.Int("sync.merged", len(merged)))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "merge failed")
		done("failed", 0)
		logger.ErrorContext(ctx, "sync merge failed", slog.Any("error", err))

		return result, err
	}

	result.Merged = merged

	if len(merged) == 0 {
		done("empty", 0)
		logger.DebugContext(ctx, "sync found nothing new", slog.Int("fetched", len(fetched)))

		return result, nil
	}

	done("merged", len(merged))
	logger.InfoContext(ctx, "sync merged remote quotes",
		slog.Int("fetched", len(fetched)),
		slog.Int("merged", len(merged)),
		slog.Duration("duration", result.Duration),
	)
	c.notifier.Notify(ctx, domain.LevelSuccess, SyncedMessage(len(merged)))

	return result, nil
}

// merge is the critical section: the snapshot, the diff and the append all
// happen under mergeMu.
func (c *SyncCoordinator) merge(ctx context.Context, fetched []domain.Quote) ([]domain.Quote, error) {
	if len(fetched) == 0 {
		return nil, nil
	}

	c.mergeMu.Lock()
	defer c.mergeMu.Unlock()

	newQuotes := domain.NewQuotes(c.store.Snapshot(), fetched)
	if len(newQuotes) == 0 {
		return nil, nil
	}

	if err := c.store.Append(ctx, newQuotes...); err != nil {
		return nil, err
	}

	return newQuotes, nil
}
