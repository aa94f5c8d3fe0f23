package acl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients"
	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRemote(t *testing.T, handler http.Handler) *RemoteClient {
	t.Helper()

	return newRemoteWithAttempts(t, handler, 1)
}

func newRemoteWithAttempts(t *testing.T, handler http.Handler, attempts int) *RemoteClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := clients.New(clients.Config{
		ServiceName: "posts",
		BaseURL:     srv.URL,
		HTTP: config.ClientConfig{
			Timeout: time.Second,
			Retry:   config.RetryConfig{MaxAttempts: attempts, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, Multiplier: 2},
			CircuitBreaker: config.CircuitBreakerConfig{
				MaxFailures: 100, Timeout: time.Second, HalfOpenLimit: 1,
			},
		},
		Logger: discardLogger(),
	})
	require.NoError(t, err)

	return NewRemoteClient(RemoteClientConfig{
		Client: client,
		Remote: config.RemoteConfig{
			Name:        "posts",
			BaseURL:     srv.URL,
			ListPath:    "/posts",
			PublishPath: "/posts",
			BatchSize:   10,
		},
		Timeout: time.Second,
		Logger:  discardLogger(),
	})
}

func postsJSON(n int) string {
	parts := make([]string, 0, n)
	for i := range n {
		parts = append(parts, fmt.Sprintf(`{"userId":1,"id":%d,"title":"title %d","body":"body"}`, i+1, i+1))
	}

	return "[" + strings.Join(parts, ",") + "]"
}

func TestNewRemoteClient_PanicsWithoutClient(t *testing.T) {
	assert.Panics(t, func() { NewRemoteClient(RemoteClientConfig{}) })
}

func TestRemoteClient_FetchRemoteQuotes(t *testing.T) {
	var gotLimit string

	remote := newRemote(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("_limit")

		// Ignores _limit, as some servers do.
		_, _ = w.Write([]byte(postsJSON(25)))
	}))

	quotes := remote.FetchRemoteQuotes(context.Background())

	assert.Equal(t, "10", gotLimit)
	require.Len(t, quotes, 10)
	assert.Equal(t, domain.Quote{Text: "title 1", Category: domain.CategoryServer}, quotes[0])
	assert.Equal(t, "title 10", quotes[9].Text)
}

func TestRemoteClient_FetchSkipsBlankTitles(t *testing.T) {
	remote := newRemote(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"title":"  "},{"id":2,"title":" kept "},{"id":3}]`))
	}))

	assert.Equal(t, []domain.Quote{{Text: "kept", Category: domain.CategoryServer}},
		remote.FetchRemoteQuotes(context.Background()))
}

func TestRemoteClient_FetchFailuresYieldEmpty(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("<html>maintenance</html>"))
			},
		},
		{
			name: "object instead of array",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"id":1}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := newRemote(t, tt.handler)

			quotes := remote.FetchRemoteQuotes(context.Background())

			assert.NotNil(t, quotes)
			assert.Empty(t, quotes)
		})
	}
}

func TestRemoteClient_Publish(t *testing.T) {
	var got map[string]any

	remote := newRemote(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/posts", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":101}`))
	}))

	outcome := remote.Publish(context.Background(), domain.Quote{Text: "Ship it", Category: "Work"})

	assert.Equal(t, domain.PublishOK, outcome)
	assert.Equal(t, map[string]any{"title": "Ship it", "body": "Work"}, got)
}

func TestRemoteClient_PublishFailures(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusServiceUnavailable} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			remote := newRemote(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(status)
			}))

			assert.Equal(t, domain.PublishFailed, remote.Publish(context.Background(), domain.Quote{Text: "a", Category: "b"}))
		})
	}
}

func TestRemoteClient_PublishIsNeverRetried(t *testing.T) {
	var posts, gets atomic.Int32

	remote := newRemoteWithAttempts(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posts.Add(1)
		} else {
			gets.Add(1)
		}

		w.WriteHeader(http.StatusBadGateway)
	}), config.DefaultClientRetryMaxAttempts)

	assert.Equal(t, domain.PublishFailed, remote.Publish(context.Background(), domain.Quote{Text: "once", Category: "Ops"}))
	assert.Equal(t, int32(1), posts.Load())

	// Fetches still use the configured retries.
	assert.Empty(t, remote.FetchRemoteQuotes(context.Background()))
	assert.Equal(t, int32(config.DefaultClientRetryMaxAttempts), gets.Load())
}

func TestRemoteClient_Check(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)

	remote := newRemote(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("_limit"))

		if !healthy.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		_, _ = w.Write([]byte(postsJSON(1)))
	}))

	assert.Equal(t, "posts", remote.Name())
	require.NoError(t, remote.Check(context.Background()))

	healthy.Store(false)
	assert.True(t, domain.IsUnavailable(remote.Check(context.Background())))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"circuit open", clients.ErrCircuitOpen, domain.IsUnavailable},
		{"retries", fmt.Errorf("%w: boom", clients.ErrMaxRetriesExceeded), domain.IsUnavailable},
		{"404", &clients.StatusError{StatusCode: http.StatusNotFound}, domain.IsNotFound},
		{"409", &clients.StatusError{StatusCode: http.StatusConflict}, domain.IsConflict},
		{"401", &clients.StatusError{StatusCode: http.StatusUnauthorized}, domain.IsForbidden},
		{"422", &clients.StatusError{StatusCode: http.StatusUnprocessableEntity}, domain.IsValidation},
		{"429", &clients.StatusError{StatusCode: http.StatusTooManyRequests}, domain.IsUnavailable},
		{"decode", fmt.Errorf("decoding response: %w", &json.SyntaxError{}), domain.IsMalformed},
		{"other", errors.New("dial tcp: refused"), domain.IsUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(MapError(tt.err, "posts", "fetch")))
		})
	}

	assert.NoError(t, MapError(nil, "posts", "fetch"))
}

func TestToQuotes_LimitAppliesBeforeFiltering(t *testing.T) {
	posts := []post{{Title: ""}, {Title: "a"}, {Title: "b"}}

	assert.Equal(t, []domain.Quote{{Text: "a", Category: domain.CategoryServer}}, toQuotes(posts, 2))
	assert.Len(t, toQuotes(posts, 0), 2)
}
