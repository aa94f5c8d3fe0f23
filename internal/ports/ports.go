// Package ports defines the contracts between the quote application services
// and the adapters that back them: persistent storage, session storage, the
// remote collection, notification delivery, and export destinations.
//
// Conventions:
//   - context.Context is the first parameter of anything that may block
//   - methods accept and return domain types, never wire DTOs
//   - failures are reported with domain errors (domain.ErrNotFound etc.)
package ports

import (
	"context"
	"io"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

// Storage keys used by the application.
const (
	KeyQuotes           = "quotes"
	KeySelectedCategory = "selectedCategory"
	KeyLastQuote        = "lastQuote"
)

// KeyValueStore is durable string-keyed storage for serialized application state.
type KeyValueStore interface {
	// Get returns the stored value. Returns domain.ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error

	// Close releases the underlying resources.
	Close() error
}

// SessionStore holds per-session values that are not authoritative and may expire.
type SessionStore interface {
	// Get returns domain.ErrNotFound when the session or key is unknown or expired.
	Get(ctx context.Context, sessionID, key string) ([]byte, error)
	Set(ctx context.Context, sessionID, key string, value []byte) error
}

// RemoteQuoteSource is the remote collection used for synchronization.
// Neither method returns an error: transport failures are absorbed by the adapter.
type RemoteQuoteSource interface {
	// FetchRemoteQuotes returns at most one batch of remote quotes.
	// Any failure yields an empty slice.
	FetchRemoteQuotes(ctx context.Context) []domain.Quote

	// Publish appends q to the remote collection.
	Publish(ctx context.Context, q domain.Quote) domain.PublishOutcome
}

// Notifier delivers transient user-facing messages.
type Notifier interface {
	Notify(ctx context.Context, level domain.NotificationLevel, message string)
}

// ExportSink writes an exported document to a destination and returns where it went.
type ExportSink interface {
	Name() string
	Write(ctx context.Context, filename string, body io.Reader, size int64) (string, error)
}
