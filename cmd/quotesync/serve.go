package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/jsamuelsen/quotesync/internal/adapters/http"
	"github.com/jsamuelsen/quotesync/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotesync/internal/adapters/inbox"
	"github.com/jsamuelsen/quotesync/internal/app"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		GroupID: "server",
		Short:   "Run the HTTP API, the sync scheduler and the import inbox",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), c)
		},
	}
}

// serve runs until ctx is canceled. Shutdown order: scheduler, HTTP server,
// background publishes, storage.
func serve(ctx context.Context, c *cli) error {
	cfg, logger := c.cfg, c.logger

	logger.InfoContext(ctx, "starting quotesync",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
		slog.String("storage", cfg.Storage.Driver),
		slog.String("remote", cfg.Remote.BaseURL),
	)

	comp, err := build(ctx, cfg, logger, buildOptions{})
	if err != nil {
		return err
	}
	defer comp.Close(ctx)

	server := httpadapter.New(cfg.Server, logger)
	httpadapter.SetupRouter(server.Engine(), httpadapter.RouterConfig{
		Logger:      logger,
		ServiceName: cfg.App.Name,
		Timeout:     cfg.Server.RequestTimeout,
		Health: handlers.NewHealthHandler(comp.health,
			handlers.NewBuildInfo(Version, Commit, BuildTime), comp.metricsReg),
		Quotes:        handlers.NewQuoteHandler(comp.service),
		Sync:          handlers.NewSyncHandler(comp.coordinator),
		Notifications: handlers.NewNotificationHandler(comp.notifier, nil),
	})

	scheduler := app.NewSyncScheduler(comp.coordinator.Sync, cfg.Sync.Interval, cfg.Client.Timeout*2, logger)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Sync.Enabled {
		if err := scheduler.Start(gctx); err != nil {
			return err
		}
	}

	// httpCtx is canceled only after the scheduler has stopped.
	httpCtx, stopHTTP := context.WithCancel(context.WithoutCancel(ctx))
	defer stopHTTP()

	g.Go(func() error {
		<-gctx.Done()
		scheduler.Stop()
		stopHTTP()

		return nil
	})

	g.Go(func() error {
		return server.Run(httpCtx)
	})

	if cfg.Inbox.Enabled {
		watcher := inbox.New(cfg.Inbox.Dir, comp.service, logger)

		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	err = g.Wait()

	logger.Info("shutdown complete")

	return err
}
