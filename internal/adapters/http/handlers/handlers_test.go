package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotesync/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotesync/internal/adapters/session"
	"github.com/jsamuelsen/quotesync/internal/adapters/storage"
	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/mocks"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiFixture struct {
	router   *gin.Engine
	remote   *mocks.MockRemoteQuoteSource
	service  *app.QuoteService
	notifier *app.Notifier
}

func newAPIFixture(t *testing.T) apiFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	remote := mocks.NewMockRemoteQuoteSource(t)

	store := app.NewQuoteStore(storage.NewMemoryStore(), logger)
	store.Load(context.Background())

	notifier := app.NewNotifier(5*time.Second, logger)
	service := app.NewQuoteService(app.QuoteServiceConfig{
		Store:    store,
		Remote:   remote,
		Notifier: notifier,
		Sessions: session.New(config.SessionConfig{MaxEntries: 16, TTL: time.Minute}, logger),
		Logger:   logger,
		Intn:     func(int) int { return 0 },
	})
	t.Cleanup(service.Wait)

	coordinator := app.NewSyncCoordinator(app.SyncCoordinatorConfig{
		Store:    store,
		Remote:   remote,
		Notifier: notifier,
		Logger:   logger,
	})

	router := gin.New()
	router.Use(middleware.SessionID())

	api := router.Group("/api/v1")
	NewQuoteHandler(service).Register(api)
	NewSyncHandler(coordinator).Register(api)
	NewNotificationHandler(notifier, nil).Register(api)

	return apiFixture{router: router, remote: remote, service: service, notifier: notifier}
}

func (f apiFixture) do(method, target, body string, header ...string) *httptest.ResponseRecorder {
	var reader io.Reader = http.NoBody
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))

	return v
}

func TestQuoteHandler_List(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name      string
		target    string
		wantTotal int
		wantFirst string
	}{
		{"all", "/api/v1/quotes", 3, "Stay hungry, stay foolish."},
		{"all keyword", "/api/v1/quotes?category=all", 3, "Stay hungry, stay foolish."},
		{"filtered", "/api/v1/quotes?category=Motivation", 1, "In the middle of every difficulty lies opportunity."},
		{"unknown category", "/api/v1/quotes?category=Nope", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodGet, tt.target, "")
			require.Equal(t, http.StatusOK, w.Code)

			page := decode[dto.PaginatedResponse[dto.QuoteResponse]](t, w)
			assert.Equal(t, tt.wantTotal, page.Total)
			assert.NotNil(t, page.Items)

			if tt.wantFirst != "" {
				assert.Equal(t, tt.wantFirst, page.Items[0].Text)
			}
		})
	}
}

func TestQuoteHandler_ListPaging(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodGet, "/api/v1/quotes?limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)

	first := decode[dto.PaginatedResponse[dto.QuoteResponse]](t, w)
	require.True(t, first.HasMore)
	require.Len(t, first.Items, 2)

	w = f.do(http.MethodGet, "/api/v1/quotes?limit=2&cursor="+first.NextCursor, "")
	require.Equal(t, http.StatusOK, w.Code)

	second := decode[dto.PaginatedResponse[dto.QuoteResponse]](t, w)
	assert.False(t, second.HasMore)
	assert.Equal(t, []dto.QuoteResponse{{Text: "In the middle of every difficulty lies opportunity.", Category: "Motivation"}}, second.Items)

	w = f.do(http.MethodGet, "/api/v1/quotes?category=Motivation&cursor="+first.NextCursor, "")
	assert.Equal(t, http.StatusBadRequest, w.Code, "cursor issued for another filter")

	w = f.do(http.MethodGet, "/api/v1/quotes?limit=500", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrorCodeValidation, decode[dto.ErrorResponse](t, w).Error.Code)
}

func TestQuoteHandler_Create(t *testing.T) {
	f := newAPIFixture(t)
	f.remote.On("Publish", mock.Anything, domain.Quote{Text: "Ship it", Category: "Work"}).
		Return(domain.PublishOK).Once()

	w := f.do(http.MethodPost, "/api/v1/quotes", `{"text":"  Ship it ","category":"Work"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	resp := decode[dto.CreateQuoteResponse](t, w)
	assert.Equal(t, app.MsgQuoteAdded, resp.Message)
	assert.Equal(t, dto.QuoteResponse{Text: "Ship it", Category: "Work"}, resp.Quote)

	f.service.Wait()

	w = f.do(http.MethodGet, "/api/v1/categories", "")
	assert.Contains(t, decode[dto.CategoriesResponse](t, w).Categories, "Work")
}

func TestQuoteHandler_CreateValidation(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name     string
		body     string
		wantCode string
		field    string
	}{
		{"blank text", `{"text":"   ","category":"Work"}`, dto.ErrorCodeValidation, "text"},
		{"missing category", `{"text":"hello"}`, dto.ErrorCodeValidation, "category"},
		{"not json", `text=hello`, dto.ErrorCodeBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodPost, "/api/v1/quotes", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)

			resp := decode[dto.ErrorResponse](t, w)
			assert.Equal(t, tt.wantCode, resp.Error.Code)

			if tt.field != "" {
				assert.Contains(t, resp.Error.Details, tt.field)
			}
		})
	}

	w := f.do(http.MethodGet, "/api/v1/quotes", "")
	assert.Equal(t, 3, decode[dto.PaginatedResponse[dto.QuoteResponse]](t, w).Total, "nothing stored")
}

func TestQuoteHandler_RandomAndLast(t *testing.T) {
	f := newAPIFixture(t)
	session := []string{middleware.HeaderSessionID, "session-1"}

	w := f.do(http.MethodGet, "/api/v1/quotes/last", "", session...)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodGet, "/api/v1/quotes/random?category=Programming", "", session...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Programming", decode[dto.QuoteResponse](t, w).Category)

	w = f.do(http.MethodGet, "/api/v1/quotes/last", "", session...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Programming", decode[dto.QuoteResponse](t, w).Category)

	w = f.do(http.MethodGet, "/api/v1/quotes/last", "", middleware.HeaderSessionID, "session-2")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodGet, "/api/v1/categories", "")
	assert.Equal(t, "Programming", decode[dto.CategoriesResponse](t, w).Selected)
}

func TestQuoteHandler_RandomEmptyCategory(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodGet, "/api/v1/quotes/random?category=Nope", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrorCodeNotFound, decode[dto.ErrorResponse](t, w).Error.Code)
}

func TestQuoteHandler_SelectCategory(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodPut, "/api/v1/categories/selected", `{"category":"Motivation"}`)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[dto.CategoriesResponse](t, w)
	assert.Equal(t, "Motivation", resp.Selected)
	assert.Equal(t, []string{"Inspiration", "Programming", "Motivation"}, resp.Categories)

	w = f.do(http.MethodPut, "/api/v1/categories/selected", `{"category":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuoteHandler_ImportExport(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodPost, "/api/v1/import", `[{"text":"a","category":"x"},{"text":"a","category":"x"}]`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.ImportResponse{Imported: 2, Message: app.MsgQuotesImported}, decode[dto.ImportResponse](t, w))

	w = f.do(http.MethodGet, "/api/v1/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="quotes.json"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "[\n  {\n    \"text\""))

	var exported []dto.QuoteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &exported))
	assert.Len(t, exported, 5)
}

func TestQuoteHandler_ImportRejected(t *testing.T) {
	f := newAPIFixture(t)

	for _, body := range []string{`{"text":"a","category":"b"}`, `[{"text":"a"}]`, `[not json`} {
		w := f.do(http.MethodPost, "/api/v1/import", body)
		require.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, dto.ErrorCodeMalformed, decode[dto.ErrorResponse](t, w).Error.Code, body)
	}

	w := f.do(http.MethodGet, "/api/v1/export", "")
	var exported []dto.QuoteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &exported))
	assert.Len(t, exported, 3)
}

func TestQuoteHandler_ExportToSinksUnconfigured(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodPost, "/api/v1/export", "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSyncHandler(t *testing.T) {
	f := newAPIFixture(t)
	f.remote.On("FetchRemoteQuotes", mock.Anything).Return([]domain.Quote{
		{Text: "brand new", Category: "Server"},
		{Text: "brand new", Category: "Server"},
	})

	w := f.do(http.MethodGet, "/api/v1/sync", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"state":"idle"}`, w.Body.String())

	w = f.do(http.MethodPost, "/api/v1/sync", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[dto.SyncResponse](t, w)
	assert.Equal(t, "manual", resp.Trigger)
	assert.Equal(t, 2, resp.Fetched)
	assert.Equal(t, []dto.QuoteResponse{{Text: "brand new", Category: "Server"}}, resp.Merged)
	assert.Equal(t, "1 new quote(s) synced from server!", resp.Message)

	w = f.do(http.MethodPost, "/api/v1/sync", "")
	resp = decode[dto.SyncResponse](t, w)
	assert.Empty(t, resp.Merged)
	assert.Empty(t, resp.Message)
}

func TestNotificationHandler_Current(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodGet, "/api/v1/notifications", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	f.notifier.Notify(context.Background(), domain.LevelSuccess, "hello")

	w = f.do(http.MethodGet, "/api/v1/notifications", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[dto.NotificationResponse](t, w)
	assert.Equal(t, "hello", resp.Message)
	assert.Equal(t, "success", resp.Level)
}

func TestNotificationHandler_Stream(t *testing.T) {
	f := newAPIFixture(t)
	f.notifier.Notify(context.Background(), domain.LevelInfo, "already visible")

	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/notifications/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = resp.Body.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var first dto.NotificationResponse
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "already visible", first.Message)

	// The subscription is registered before the first write, so this is not lost.
	f.notifier.Notify(context.Background(), domain.LevelError, "next")

	var second dto.NotificationResponse
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, "next", second.Message)
	assert.Equal(t, "error", second.Level)
}

func TestNotificationHandler_StreamRejectsPlainGET(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodGet, "/api/v1/notifications/ws", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

