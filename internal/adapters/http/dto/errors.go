// Package dto holds the HTTP request and response shapes and the helpers that
// bind, validate and render them.
package dto

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
)

// ErrorResponse is the envelope for every error response.
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	TraceID string      `json:"traceId,omitempty"`
}

// ErrorDetail is the machine- and human-readable part of an error.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Error codes.
const (
	ErrorCodeNotFound    = "NOT_FOUND"
	ErrorCodeConflict    = "CONFLICT"
	ErrorCodeValidation  = "VALIDATION_ERROR"
	ErrorCodeMalformed   = "MALFORMED_PAYLOAD"
	ErrorCodeForbidden   = "FORBIDDEN"
	ErrorCodeUnavailable = "SERVICE_UNAVAILABLE"
	ErrorCodeInternal    = "INTERNAL_ERROR"
	ErrorCodeTimeout     = "TIMEOUT"
	ErrorCodeBadRequest  = "BAD_REQUEST"
)

// NewErrorResponse creates an error envelope.
func NewErrorResponse(code, message string) *ErrorResponse {
	return &ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}

// NewErrorResponseWithDetails creates an error envelope with per-field details.
func NewErrorResponseWithDetails(code, message string, details map[string]string) *ErrorResponse {
	return &ErrorResponse{Error: ErrorDetail{Code: code, Message: message, Details: details}}
}

// HTTPStatusFromCode maps an error code to its HTTP status.
func HTTPStatusFromCode(code string) int {
	switch code {
	case ErrorCodeNotFound:
		return http.StatusNotFound
	case ErrorCodeConflict:
		return http.StatusConflict
	case ErrorCodeValidation, ErrorCodeBadRequest, ErrorCodeMalformed:
		return http.StatusBadRequest
	case ErrorCodeForbidden:
		return http.StatusForbidden
	case ErrorCodeUnavailable:
		return http.StatusServiceUnavailable
	case ErrorCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// FromError maps err to a status and envelope. Unknown errors become a
// generic 500 so internals are not leaked.
func FromError(err error) (int, *ErrorResponse) {
	var (
		code    string
		message = err.Error()
		details map[string]string
	)

	switch {
	case domain.IsMalformed(err):
		code = ErrorCodeMalformed
	case domain.IsValidation(err):
		code = ErrorCodeValidation

		var vErr *domain.ValidationError
		if errors.As(err, &vErr) && vErr.Field != "" {
			details = map[string]string{vErr.Field: vErr.Message}
		}
	case domain.IsNotFound(err):
		code = ErrorCodeNotFound
	case domain.IsConflict(err):
		code = ErrorCodeConflict
	case domain.IsForbidden(err):
		code = ErrorCodeForbidden
	case domain.IsUnavailable(err):
		code = ErrorCodeUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		code, message = ErrorCodeTimeout, "request timeout exceeded"
	default:
		code, message = ErrorCodeInternal, "an internal error occurred"
	}

	return HTTPStatusFromCode(code), NewErrorResponseWithDetails(code, message, details)
}

// TraceID returns the trace ID of the span in ctx, if any.
func TraceID(ctx context.Context) string {
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.HasTraceID() {
		return sc.TraceID().String()
	}

	return ""
}

// RespondError writes err as an error envelope. 5xx errors are logged with
// their full detail.
func RespondError(c *gin.Context, err error) {
	status, resp := FromError(err)
	resp.TraceID = TraceID(c.Request.Context())

	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).ErrorContext(c.Request.Context(), "request failed",
			slog.Any("error", err),
			slog.String("trace_id", resp.TraceID))
	}

	c.JSON(status, resp)
}

// RespondCode writes an error envelope for an adapter-level failure.
func RespondCode(c *gin.Context, code, message string) {
	resp := NewErrorResponse(code, message)
	resp.TraceID = TraceID(c.Request.Context())

	c.JSON(HTTPStatusFromCode(code), resp)
}

// RespondValidation writes a 400 with field-level details.
func RespondValidation(c *gin.Context, err error) {
	details := ValidationErrors(err)
	if len(details) == 0 {
		RespondCode(c, ErrorCodeBadRequest, "request body could not be parsed")
		return
	}

	resp := NewErrorResponseWithDetails(ErrorCodeValidation, "request validation failed", details)
	resp.TraceID = TraceID(c.Request.Context())

	c.JSON(http.StatusBadRequest, resp)
}

// AbortCode aborts the chain with an error envelope. Nothing is written if
// the response has already started.
func AbortCode(c *gin.Context, code, message string) {
	if c.Writer.Written() {
		c.Abort()
		return
	}

	resp := NewErrorResponse(code, message)
	resp.TraceID = TraceID(c.Request.Context())

	c.AbortWithStatusJSON(HTTPStatusFromCode(code), resp)
}
