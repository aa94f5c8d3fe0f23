//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients"
	"github.com/jsamuelsen/quotesync/internal/adapters/clients/acl"
	httpserver "github.com/jsamuelsen/quotesync/internal/adapters/http"
	"github.com/jsamuelsen/quotesync/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotesync/internal/adapters/session"
	"github.com/jsamuelsen/quotesync/internal/adapters/storage"
	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
	"github.com/jsamuelsen/quotesync/internal/platform/telemetry"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type remotePost struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// fakeRemote is a posts-style JSON collection.
type fakeRemote struct {
	srv *httptest.Server

	mu        sync.Mutex
	posts     []remotePost
	published []remotePost
	headers   []http.Header

	failing atomic.Bool
	calls   atomic.Int32
}

func newFakeRemote() *fakeRemote {
	r := &fakeRemote{}
	r.srv = httptest.NewServer(http.HandlerFunc(r.serve))

	return r
}

func (r *fakeRemote) serve(w http.ResponseWriter, req *http.Request) {
	r.calls.Add(1)

	r.mu.Lock()
	r.headers = append(r.headers, req.Header.Clone())
	r.mu.Unlock()

	if r.failing.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	switch req.Method {
	case http.MethodGet:
		limit, _ := strconv.Atoi(req.URL.Query().Get("_limit"))

		r.mu.Lock()
		posts := append([]remotePost(nil), r.posts...)
		r.mu.Unlock()

		if limit > 0 && len(posts) > limit {
			posts = posts[:limit]
		}

		_ = json.NewEncoder(w).Encode(posts)
	case http.MethodPost:
		var p remotePost
		if err := json.NewDecoder(req.Body).Decode(&p); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		r.mu.Lock()
		r.published = append(r.published, p)
		r.mu.Unlock()

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":101}`))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (r *fakeRemote) setPosts(titles ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.posts = r.posts[:0]
	for i, title := range titles {
		r.posts = append(r.posts, remotePost{ID: i + 1, Title: title, Body: "body"})
	}
}

func (r *fakeRemote) publishedTitles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	titles := make([]string, 0, len(r.published))
	for _, p := range r.published {
		titles = append(titles, p.Title)
	}

	return titles
}

func (r *fakeRemote) lastHeader(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.headers) == 0 {
		return ""
	}

	return r.headers[len(r.headers)-1].Get(name)
}

func (r *fakeRemote) Close() {
	r.srv.Close()
}

// testApp is the quotesync API wired to a fakeRemote.
type testApp struct {
	remote      *fakeRemote
	server      *httptest.Server
	service     *app.QuoteService
	coordinator *app.SyncCoordinator
	notifier    *app.Notifier
	client      *clients.Client
}

type appOptions struct {
	maxFailures int
	batchSize   int
}

func newTestApp(remote *fakeRemote, opts appOptions) (*testApp, error) {
	if opts.maxFailures == 0 {
		opts.maxFailures = 100
	}

	if opts.batchSize == 0 {
		opts.batchSize = 10
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	remoteCfg := config.RemoteConfig{
		Name:        "posts",
		BaseURL:     remote.srv.URL,
		ListPath:    "/posts",
		PublishPath: "/posts",
		BatchSize:   opts.batchSize,
	}

	client, err := clients.New(clients.Config{
		ServiceName: remoteCfg.Name,
		BaseURL:     remoteCfg.BaseURL,
		HTTP: config.ClientConfig{
			Timeout: 2 * time.Second,
			Retry: config.RetryConfig{
				MaxAttempts:     1,
				InitialInterval: 10 * time.Millisecond,
				MaxInterval:     50 * time.Millisecond,
				Multiplier:      2,
			},
			CircuitBreaker: config.CircuitBreakerConfig{
				MaxFailures:   opts.maxFailures,
				Timeout:       100 * time.Millisecond,
				HalfOpenLimit: 1,
			},
			Transport: config.TransportConfig{MaxIdleConns: 10, MaxIdleConnsPerHost: 10, IdleConnTimeout: time.Minute},
		},
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	rc := acl.NewRemoteClient(acl.RemoteClientConfig{
		Client:  client,
		Remote:  remoteCfg,
		Timeout: 2 * time.Second,
		Logger:  logger,
	})

	reg := prometheus.NewRegistry()
	metrics := telemetry.NewSyncMetrics(reg)

	store := app.NewQuoteStore(storage.NewMemoryStore(), logger)
	store.Load(context.Background())

	notifier := app.NewNotifier(5*time.Second, logger)

	service := app.NewQuoteService(app.QuoteServiceConfig{
		Store:    store,
		Remote:   rc,
		Notifier: notifier,
		Sessions: session.New(config.SessionConfig{MaxEntries: 64, TTL: time.Minute}, logger),
		Metrics:  metrics,
		Logger:   logger,
	})

	coordinator := app.NewSyncCoordinator(app.SyncCoordinatorConfig{
		Store:    store,
		Remote:   rc,
		Notifier: notifier,
		Metrics:  metrics,
		Logger:   logger,
	})

	health := ports.NewHealthRegistry()
	if err := health.Register(rc); err != nil {
		return nil, err
	}

	engine := gin.New()
	httpserver.SetupRouter(engine, httpserver.RouterConfig{
		Logger:        logger,
		ServiceName:   "quotesync-test",
		Health:        handlers.NewHealthHandler(health, handlers.NewBuildInfo("test", "none", "unknown"), reg),
		Quotes:        handlers.NewQuoteHandler(service),
		Sync:          handlers.NewSyncHandler(coordinator),
		Notifications: handlers.NewNotificationHandler(notifier, nil),
	})

	return &testApp{
		remote:      remote,
		server:      httptest.NewServer(engine),
		service:     service,
		coordinator: coordinator,
		notifier:    notifier,
		client:      client,
	}, nil
}

func mustTestApp(t *testing.T, opts appOptions) *testApp {
	t.Helper()

	remote := newFakeRemote()
	t.Cleanup(remote.Close)

	a, err := newTestApp(remote, opts)
	if err != nil {
		t.Fatalf("building app: %v", err)
	}

	t.Cleanup(a.Close)

	return a
}

// Close waits for in-flight publishes before stopping the server.
func (a *testApp) Close() {
	a.service.Wait()
	a.server.Close()
}
