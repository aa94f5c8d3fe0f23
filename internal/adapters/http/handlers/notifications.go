package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/jsamuelsen/quotesync/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

// NotificationSource exposes the visible notification and a live feed.
// Implemented by *app.Notifier.
type NotificationSource interface {
	Current() (domain.Notification, bool)
	Subscribe(ctx context.Context) <-chan domain.Notification
}

// NotificationHandler serves the current notification and the websocket stream.
type NotificationHandler struct {
	source   NotificationSource
	upgrader websocket.Upgrader
}

// NewNotificationHandler creates the handler. checkOrigin may be nil to
// accept every origin.
func NewNotificationHandler(source NotificationSource, checkOrigin func(*http.Request) bool) *NotificationHandler {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}

	return &NotificationHandler{
		source: source,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// Current handles GET /api/v1/notifications. 204 when nothing is visible.
func (h *NotificationHandler) Current(c *gin.Context) {
	n, ok := h.source.Current()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, dto.FromNotification(n))
}

// Stream handles GET /api/v1/notifications/ws. The visible notification, if
// any, is sent first, then every new one until the client disconnects.
func (h *NotificationHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		return
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	logger := logging.FromContext(ctx)
	logger.DebugContext(ctx, "notification stream opened")

	feed := h.source.Subscribe(ctx)

	// The reader only services control frames and notices the close.
	go func() {
		defer cancel()

		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if n, ok := h.source.Current(); ok {
		if err := writeJSON(conn, dto.FromNotification(n)); err != nil {
			return
		}
	}

	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.DebugContext(ctx, "notification stream closed")
			return

		case n, ok := <-feed:
			if !ok {
				return
			}

			if err := writeJSON(conn, dto.FromNotification(n)); err != nil {
				logger.DebugContext(ctx, "notification stream write failed", slog.Any("error", err))
				return
			}

		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}

			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}

	return conn.WriteJSON(v)
}

// Register mounts the routes on the /api/v1 group.
func (h *NotificationHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/notifications", h.Current)
	rg.GET("/notifications/ws", h.Stream)
}
