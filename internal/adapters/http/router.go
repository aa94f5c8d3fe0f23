package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotesync/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotesync/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotesync/internal/platform/telemetry"
)

// DefaultRequestTimeout applies when RouterConfig.Timeout is zero.
const DefaultRequestTimeout = 30 * time.Second

// streamPath is long-lived and exempt from the request deadline and access log.
const streamPath = "/api/v1/notifications/ws"

// RouterConfig holds the handlers and settings for SetupRouter. Nil handlers
// are not mounted.
type RouterConfig struct {
	Logger      *slog.Logger
	ServiceName string
	Timeout     time.Duration

	Health        *handlers.HealthHandler
	Quotes        *handlers.QuoteHandler
	Sync          *handlers.SyncHandler
	Notifications *handlers.NotificationHandler
}

// SetupRouter installs the middleware chain and routes on engine.
//
// Middleware order:
//  1. Logger - seeds the request logger
//  2. Recovery - catches panics from everything below
//  3. Request, correlation and session IDs
//  4. OpenTelemetry tracing, then request metrics
//  5. Access logging (skips /-/ and the notification stream)
//  6. Timeout - /api/v1 only, except the stream
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}

	engine.Use(
		middleware.Logger(cfg.Logger),
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.CorrelationID(),
		middleware.SessionID(),
		telemetry.TracingMiddleware(cfg.ServiceName),
		telemetry.Middleware(),
		middleware.Logging(streamPath),
	)

	if cfg.Health != nil {
		cfg.Health.Register(engine.Group("/-"))
	}

	api := engine.Group("/api/v1")
	api.Use(middleware.Timeout(cfg.Timeout, streamPath))

	if cfg.Quotes != nil {
		cfg.Quotes.Register(api)
	}

	if cfg.Sync != nil {
		cfg.Sync.Register(api)
	}

	if cfg.Notifications != nil {
		cfg.Notifications.Register(api)
	}
}
