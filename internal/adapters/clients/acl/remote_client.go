package acl

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients"
	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
)

// RemoteClientConfig configures a RemoteClient.
type RemoteClientConfig struct {
	// Client must have the remote's base URL.
	Client *clients.Client
	Remote config.RemoteConfig

	// Timeout bounds each fetch or publish. Zero leaves only the client's own timeout.
	Timeout time.Duration

	Logger *slog.Logger
}

// RemoteClient implements ports.RemoteQuoteSource and ports.HealthChecker
// against a posts-style JSON collection.
type RemoteClient struct {
	client  *clients.Client
	remote  config.RemoteConfig
	timeout time.Duration
	logger  *slog.Logger
}

// NewRemoteClient creates the adapter. Panics without a Client.
func NewRemoteClient(cfg RemoteClientConfig) *RemoteClient {
	if cfg.Client == nil {
		panic("acl: RemoteClient requires a Client")
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.Remote.Name == "" {
		cfg.Remote.Name = "remote"
	}

	return &RemoteClient{
		client:  cfg.Client,
		remote:  cfg.Remote,
		timeout: cfg.Timeout,
		logger:  cfg.Logger.With(slog.String("remote", cfg.Remote.Name)),
	}
}

// FetchRemoteQuotes returns up to one batch of remote quotes. Failures are
// logged and yield an empty slice.
func (r *RemoteClient) FetchRemoteQuotes(ctx context.Context) []domain.Quote {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	query := url.Values{"_limit": {strconv.Itoa(r.remote.BatchSize)}}

	var posts []post
	if err := r.client.GetJSON(ctx, r.remote.ListPath, query, &posts); err != nil {
		r.logger.WarnContext(ctx, "fetching remote quotes failed",
			slog.Any("error", MapError(err, r.remote.Name, "fetch")))

		return []domain.Quote{}
	}

	quotes := toQuotes(posts, r.remote.BatchSize)

	r.logger.Log(ctx, logging.LevelTrace, "fetched remote quotes",
		slog.Int("received", len(posts)),
		slog.Int("translated", len(quotes)))

	return quotes
}

// Publish posts q to the remote collection in a single attempt. A failed
// POST may still have been stored remotely, so it is never resent.
func (r *RemoteClient) Publish(ctx context.Context, q domain.Quote) domain.PublishOutcome {
	ctx, cancel := r.bound(clients.WithoutRetry(ctx))
	defer cancel()

	var created createdPost
	if err := r.client.PostJSON(ctx, r.remote.PublishPath, toNewPost(q), &created); err != nil {
		r.logger.WarnContext(ctx, "publishing quote failed",
			slog.Any("error", MapError(err, r.remote.Name, "publish")))

		return domain.PublishFailed
	}

	r.logger.InfoContext(ctx, "quote published", slog.Int("remote_id", created.ID))

	return domain.PublishOK
}

// Name implements ports.HealthChecker.
func (r *RemoteClient) Name() string {
	return r.remote.Name
}

// Check implements ports.HealthChecker by fetching a single record.
func (r *RemoteClient) Check(ctx context.Context) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	var posts []post
	if err := r.client.GetJSON(ctx, r.remote.ListPath, url.Values{"_limit": {"1"}}, &posts); err != nil {
		return MapError(err, r.remote.Name, "health check")
	}

	return nil
}

func (r *RemoteClient) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, r.timeout)
}
