package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients"
	"github.com/jsamuelsen/quotesync/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quotesync/internal/adapters/export"
	"github.com/jsamuelsen/quotesync/internal/adapters/session"
	"github.com/jsamuelsen/quotesync/internal/adapters/storage"
	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
	"github.com/jsamuelsen/quotesync/internal/platform/telemetry"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// components is the assembled application. Every command builds one and
// closes it when done.
type components struct {
	cfg    *config.Config
	logger *slog.Logger

	telemetry   *telemetry.Provider
	metricsReg  *prometheus.Registry
	storage     storage.Store
	remote      *acl.RemoteClient
	health      *ports.DefaultHealthRegistry
	store       *app.QuoteStore
	notifier    *app.Notifier
	service     *app.QuoteService
	coordinator *app.SyncCoordinator
}

// buildOptions adjusts assembly for a single command.
type buildOptions struct {
	// forceBucket adds the bucket sink even when export.bucket.enabled is false.
	forceBucket bool
}

func build(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts buildOptions) (*components, error) {
	c := &components{cfg: cfg, logger: logger}

	tp, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	c.telemetry = tp

	c.metricsReg = prometheus.NewRegistry()
	c.metricsReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewSyncMetrics(c.metricsReg)

	c.storage, err = storage.Open(cfg.Storage)
	if err != nil {
		c.Close(ctx)
		return nil, fmt.Errorf("opening %s storage: %w", cfg.Storage.Driver, err)
	}

	httpClient, err := clients.New(clients.Config{
		ServiceName: cfg.Remote.Name,
		BaseURL:     cfg.Remote.BaseURL,
		HTTP:        cfg.Client,
		Logger:      logger,
	})
	if err != nil {
		c.Close(ctx)
		return nil, fmt.Errorf("creating remote client: %w", err)
	}

	c.remote = acl.NewRemoteClient(acl.RemoteClientConfig{
		Client:  httpClient,
		Remote:  cfg.Remote,
		Timeout: cfg.Client.Timeout,
		Logger:  logger,
	})

	sinks, bucket, err := exportSinks(cfg.Export, opts)
	if err != nil {
		c.Close(ctx)
		return nil, err
	}

	c.health = ports.NewHealthRegistry()

	checkers := []ports.HealthChecker{c.storage, c.remote}
	if bucket != nil {
		checkers = append(checkers, ports.CheckerFunc{CheckName: "bucket", Fn: bucket.Check})
	}

	for _, checker := range checkers {
		if err := c.health.Register(checker); err != nil {
			c.Close(ctx)
			return nil, fmt.Errorf("registering health check: %w", err)
		}
	}

	c.store = app.NewQuoteStore(c.storage, logger)
	c.store.Load(ctx)

	c.notifier = app.NewNotifier(cfg.Notifications.DisplayDuration, logger)

	c.service = app.NewQuoteService(app.QuoteServiceConfig{
		Store:          c.store,
		Remote:         c.remote,
		Notifier:       c.notifier,
		Sessions:       session.New(cfg.Session, logger),
		Sinks:          sinks,
		Metrics:        metrics,
		Logger:         logger,
		PublishTimeout: cfg.Client.Timeout,
		ExportFilename: cfg.Export.Filename,
	})

	c.coordinator = app.NewSyncCoordinator(app.SyncCoordinatorConfig{
		Store:    c.store,
		Remote:   c.remote,
		Notifier: c.notifier,
		Metrics:  metrics,
		Logger:   logger,
	})

	return c, nil
}

func exportSinks(cfg config.ExportConfig, opts buildOptions) ([]ports.ExportSink, *export.BucketSink, error) {
	sinks := []ports.ExportSink{export.NewFileSink(cfg.Dir)}

	if !cfg.Bucket.Enabled && !opts.forceBucket {
		return sinks, nil, nil
	}

	bucket, err := export.NewBucketSink(cfg.Bucket)
	if err != nil {
		return nil, nil, fmt.Errorf("configuring export bucket: %w", err)
	}

	return append(sinks, bucket), bucket, nil
}

// Close waits for background publishes, then releases storage and flushes telemetry.
func (c *components) Close(ctx context.Context) {
	if c.service != nil {
		c.service.Wait()
	}

	var errs []error

	if c.storage != nil {
		if err := c.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing storage: %w", err))
		}
	}

	if c.telemetry != nil {
		if err := c.telemetry.Shutdown(context.WithoutCancel(ctx)); err != nil {
			errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		c.logger.Error("shutdown error", slog.Any("error", err))
	}
}
