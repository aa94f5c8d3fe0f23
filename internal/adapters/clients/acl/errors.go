package acl

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients"
	"github.com/jsamuelsen/quotesync/internal/domain"
)

// MapError classifies a failed remote call as a domain error.
func MapError(err error, service, operation string) error {
	if err == nil {
		return nil
	}

	var (
		statusErr *clients.StatusError
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)

	switch {
	case errors.Is(err, clients.ErrCircuitOpen):
		return domain.NewUnavailableError(service, "circuit breaker open during "+operation)
	case errors.Is(err, clients.ErrMaxRetriesExceeded):
		return domain.NewUnavailableError(service, fmt.Sprintf("%s: retries exhausted: %v", operation, err))
	case errors.As(err, &statusErr):
		return mapStatus(statusErr, service, operation)
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return domain.NewMalformedError(service, operation+" returned an undecodable body", err)
	default:
		return domain.NewUnavailableError(service, fmt.Sprintf("%s failed: %v", operation, err))
	}
}

func mapStatus(e *clients.StatusError, service, operation string) error {
	reason := fmt.Sprintf("%s returned %d", operation, e.StatusCode)

	switch {
	case e.StatusCode == http.StatusNotFound:
		return domain.NewNotFoundError(service, operation)
	case e.StatusCode == http.StatusConflict:
		return domain.NewConflictError(service, reason)
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return domain.NewForbiddenError(operation, reason)
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode >= http.StatusInternalServerError:
		return domain.NewUnavailableError(service, reason)
	default:
		return domain.NewValidationError("", reason)
	}
}
