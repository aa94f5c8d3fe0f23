package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jsamuelsen/quotesync/internal/platform/logging"
)

// Headers carrying the IDs. Each is echoed on the response.
const (
	HeaderRequestID     = "X-Request-ID"
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderSessionID     = "X-Session-ID"
)

// maxIDLength bounds client-supplied IDs; longer values are replaced.
const maxIDLength = 128

type idMiddleware struct {
	header string
	store  func(ctx context.Context, id string) context.Context
	log    func(ctx context.Context, id string) context.Context
}

// handler reads the ID from the request header, generating a UUID when it is
// absent or oversized, and stores it in the request context, the context
// logger and the response header.
func (m idMiddleware) handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(m.header)
		if id == "" || len(id) > maxIDLength {
			id = uuid.NewString()
		}

		c.Header(m.header, id)

		ctx := m.store(c.Request.Context(), id)
		ctx = m.log(ctx, id)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequestID identifies a single request.
func RequestID() gin.HandlerFunc {
	return idMiddleware{HeaderRequestID, ContextWithRequestID, logging.WithRequestID}.handler()
}

// CorrelationID identifies a chain of requests across services.
func CorrelationID() gin.HandlerFunc {
	return idMiddleware{HeaderCorrelationID, ContextWithCorrelationID, logging.WithCorrelationID}.handler()
}

// SessionID identifies a client session. Session-scoped state such as the
// last quote shown is keyed by it.
func SessionID() gin.HandlerFunc {
	return idMiddleware{HeaderSessionID, ContextWithSessionID, logging.WithSessionID}.handler()
}

// GetRequestID returns the request ID of c, or "".
func GetRequestID(c *gin.Context) string {
	return RequestIDFromContext(c.Request.Context())
}

// GetSessionID returns the session ID of c, or "".
func GetSessionID(c *gin.Context) string {
	return SessionIDFromContext(c.Request.Context())
}
