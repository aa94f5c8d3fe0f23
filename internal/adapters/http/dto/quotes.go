package dto

import (
	"time"

	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/domain"
)

// QuoteResponse is the wire form of a quote.
type QuoteResponse struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// FromQuote converts a domain quote.
func FromQuote(q domain.Quote) QuoteResponse {
	return QuoteResponse{Text: q.Text, Category: q.Category}
}

// FromQuotes converts a slice of domain quotes. The result is never nil.
func FromQuotes(quotes []domain.Quote) []QuoteResponse {
	out := make([]QuoteResponse, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, FromQuote(q))
	}

	return out
}

// ListQuotesRequest is the query of GET /quotes.
type ListQuotesRequest struct {
	PageRequest

	Category string `form:"category"`
}

// RandomQuoteRequest is the query of GET /quotes/random.
type RandomQuoteRequest struct {
	Category string `form:"category"`
}

// CreateQuoteRequest is the body of POST /quotes.
type CreateQuoteRequest struct {
	Text     string `json:"text"     validate:"notblank,max=1000"`
	Category string `json:"category" validate:"notblank,max=100"`
}

// CreateQuoteResponse echoes the stored quote.
type CreateQuoteResponse struct {
	Quote   QuoteResponse `json:"quote"`
	Message string        `json:"message"`
}

// CategoriesResponse lists the categories and the persisted selection.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
	Selected   string   `json:"selected"`
}

// SelectCategoryRequest is the body of PUT /categories/selected.
type SelectCategoryRequest struct {
	Category string `json:"category" validate:"notblank,max=100"`
}

// SyncResponse reports one sync cycle.
type SyncResponse struct {
	Trigger    string          `json:"trigger"`
	Fetched    int             `json:"fetched"`
	Merged     []QuoteResponse `json:"merged"`
	DurationMS int64           `json:"durationMs"`
	Message    string          `json:"message,omitempty"`
}

// FromSyncResult converts a sync result.
func FromSyncResult(r app.SyncResult, message string) SyncResponse {
	return SyncResponse{
		Trigger:    string(r.Trigger),
		Fetched:    r.Fetched,
		Merged:     FromQuotes(r.Merged),
		DurationMS: r.Duration.Milliseconds(),
		Message:    message,
	}
}

// ImportResponse reports an import.
type ImportResponse struct {
	Imported int    `json:"imported"`
	Message  string `json:"message"`
}

// ExportLocationsResponse lists where an export was stored.
type ExportLocationsResponse struct {
	Locations []app.ExportLocation `json:"locations"`
}

// NotificationResponse is the wire form of a notification.
type NotificationResponse struct {
	Message   string    `json:"message"`
	Level     string    `json:"level"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// FromNotification converts a notification.
func FromNotification(n domain.Notification) NotificationResponse {
	return NotificationResponse{
		Message:   n.Message,
		Level:     string(n.Level),
		CreatedAt: n.CreatedAt,
		ExpiresAt: n.ExpiresAt,
	}
}
