package clients

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
)

func testClientConfig() config.ClientConfig {
	return config.ClientConfig{
		Timeout: time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     3,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
			Multiplier:      2,
		},
		CircuitBreaker: config.CircuitBreakerConfig{
			MaxFailures:   2,
			Timeout:       time.Minute,
			HalfOpenLimit: 1,
		},
		Transport: config.TransportConfig{
			MaxIdleConns:        4,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     time.Second,
		},
	}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	c, err := New(Config{
		ServiceName: "remote",
		BaseURL:     baseURL,
		HTTP:        testClientConfig(),
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	return c
}

func TestNew_RequiresServiceName(t *testing.T) {
	_, err := New(Config{BaseURL: "http://example.com"})
	assert.Error(t, err)
}

func TestClient_GetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/posts", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("_limit"))
		assert.Equal(t, "req-1", r.Header.Get(middleware.HeaderRequestID))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"title":"a"}]`))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL+"/")
	ctx := middleware.ContextWithRequestID(context.Background(), "req-1")

	var out []map[string]string
	require.NoError(t, c.GetJSON(ctx, "posts", url.Values{"_limit": {"10"}}, &out))
	assert.Equal(t, []map[string]string{{"title": "a"}}, out)
}

func TestClient_PostJSONRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["title"], "body is replayed on retry")

		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":101}`))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL)

	var out struct {
		ID int `json:"id"`
	}
	require.NoError(t, c.PostJSON(context.Background(), "/posts", map[string]string{"title": "hello"}, &out))

	assert.Equal(t, 101, out.ID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_WithoutRetrySendsOnce(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL)

	err := c.PostJSON(WithoutRetry(context.Background()), "/posts", map[string]string{"title": "hello"}, nil)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_ClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL)

	err := c.GetJSON(context.Background(), "/missing", nil, nil)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, "nope", statusErr.Body)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, StateClosed, c.CircuitState(), "4xx is not a transport failure")
}

func TestClient_ExhaustedRetriesOpenCircuit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	for range 2 {
		err := c.GetJSON(ctx, "/", nil, nil)
		require.ErrorIs(t, err, ErrMaxRetriesExceeded)

		var statusErr *StatusError
		assert.ErrorAs(t, err, &statusErr)
	}

	assert.Equal(t, StateOpen, c.CircuitState())
	assert.ErrorIs(t, c.GetJSON(ctx, "/", nil, nil), ErrCircuitOpen)
}

func TestClient_UnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := newTestClient(t, base)

	err := c.GetJSON(context.Background(), "/", nil, nil)
	assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
}

func TestClient_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.GetJSON(ctx, "/", nil, nil)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClient_DecodeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL)

	var out []string
	err := c.GetJSON(context.Background(), "/", nil, &out)
	assert.ErrorContains(t, err, "decoding response")
}

func TestClient_Backoff(t *testing.T) {
	c := newTestClient(t, "http://example.com")

	assert.Equal(t, time.Millisecond, c.backoff(1))
	assert.Equal(t, 2*time.Millisecond, c.backoff(2))
	assert.Equal(t, 5*time.Millisecond, c.backoff(10), "capped at max interval")
}
