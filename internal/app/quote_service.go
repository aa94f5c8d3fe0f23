// Package app contains the application services that orchestrate the quote
// use cases: the quote store, synchronization, scheduling, notifications and
// the user-facing quote operations.
package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/telemetry"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// User-facing messages.
const (
	MsgQuoteAdded      = "Quote added successfully!"
	MsgQuotePublished  = "Quote published to server."
	MsgPublishFailed   = "Failed to publish quote to server."
	MsgQuotesImported  = "Quotes imported successfully!"
	MsgNoQuotesInGroup = "No quotes in this category."
)

// DefaultPublishTimeout bounds a detached publish when no timeout is configured.
const DefaultPublishTimeout = 10 * time.Second

// QuoteService implements the user-facing quote operations.
type QuoteService struct {
	store          *QuoteStore
	remote         ports.RemoteQuoteSource
	notifier       ports.Notifier
	sessions       ports.SessionStore
	sinks          []ports.ExportSink
	executor       *Executor
	metrics        *telemetry.SyncMetrics
	logger         *slog.Logger
	publishTimeout time.Duration
	exportFilename string
	intn           func(n int) int

	publishes sync.WaitGroup
}

// QuoteServiceConfig contains the dependencies of the quote service.
type QuoteServiceConfig struct {
	Store          *QuoteStore
	Remote         ports.RemoteQuoteSource
	Notifier       ports.Notifier
	Sessions       ports.SessionStore
	Sinks          []ports.ExportSink
	Metrics        *telemetry.SyncMetrics
	Logger         *slog.Logger
	PublishTimeout time.Duration
	ExportFilename string

	// Intn picks a random index in [0, n). Defaults to math/rand/v2.
	Intn func(n int) int
}

// NewQuoteService creates the service. Store, Remote and Notifier are required.
func NewQuoteService(cfg QuoteServiceConfig) *QuoteService {
	if cfg.Store == nil || cfg.Remote == nil || cfg.Notifier == nil {
		panic("app: QuoteService requires Store, Remote and Notifier")
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultPublishTimeout
	}

	if cfg.ExportFilename == "" {
		cfg.ExportFilename = "quotes.json"
	}

	if cfg.Intn == nil {
		cfg.Intn = rand.IntN
	}

	return &QuoteService{
		store:          cfg.Store,
		remote:         cfg.Remote,
		notifier:       cfg.Notifier,
		sessions:       cfg.Sessions,
		sinks:          cfg.Sinks,
		executor:       NewExecutor(cfg.Logger),
		metrics:        cfg.Metrics,
		logger:         cfg.Logger,
		publishTimeout: cfg.PublishTimeout,
		exportFilename: cfg.ExportFilename,
		intn:           cfg.Intn,
	}
}

// Create validates and appends a quote, then publishes it in the background.
// The returned error only reflects validation and local persistence.
func (s *QuoteService) Create(ctx context.Context, text, category string) (domain.Quote, error) {
	q, err := domain.NewQuote(text, category)
	if err != nil {
		return domain.Quote{}, err
	}

	if err := s.store.Append(ctx, q); err != nil {
		return domain.Quote{}, err
	}

	s.logger.InfoContext(ctx, "quote created", slog.String("category", q.Category))
	s.notifier.Notify(ctx, domain.LevelSuccess, MsgQuoteAdded)

	s.publishes.Go(func() {
		s.publish(context.WithoutCancel(ctx), q)
	})

	return q, nil
}

func (s *QuoteService) publish(ctx context.Context, q domain.Quote) {
	ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()

	outcome := s.remote.Publish(ctx, q)
	s.metrics.Published(string(outcome))

	if outcome != domain.PublishOK {
		s.logger.WarnContext(ctx, "publishing quote failed", slog.String("category", q.Category))
		s.notifier.Notify(ctx, domain.LevelError, MsgPublishFailed)

		return
	}

	s.notifier.Notify(ctx, domain.LevelInfo, MsgQuotePublished)
}

// Wait blocks until every background publish has finished.
func (s *QuoteService) Wait() {
	s.publishes.Wait()
}

type importedQuote struct {
	Text     *string `json:"text"`
	Category *string `json:"category"`
}

// Import appends every quote in a JSON array payload. Nothing is appended
// unless the whole payload is valid. Duplicates are kept as given.
func (s *QuoteService) Import(ctx context.Context, payload []byte) (int, error) {
	op := Operation[[]byte, []importedQuote, []domain.Quote, int]{
		Name: "import",
		Validate: func(_ context.Context, payload []byte) error {
			trimmed := bytes.TrimSpace(payload)
			if len(trimmed) == 0 || trimmed[0] != '[' {
				return domain.NewMalformedError("import", "expected a JSON array", nil)
			}

			return nil
		},
		Perform: func(_ context.Context, payload []byte) ([]importedQuote, error) {
			var items []importedQuote
			if err := json.Unmarshal(payload, &items); err != nil {
				return nil, domain.NewMalformedError("import", "invalid JSON", err)
			}

			return items, nil
		},
		Verify: func(_ context.Context, _ []byte, items []importedQuote) ([]domain.Quote, error) {
			quotes := make([]domain.Quote, 0, len(items))

			for i, item := range items {
				if item.Text == nil || item.Category == nil {
					return nil, domain.NewMalformedError("import",
						fmt.Sprintf("element %d must have text and category", i), nil)
				}

				q, err := domain.NewQuote(*item.Text, *item.Category)
				if err != nil {
					return nil, domain.NewMalformedError("import", fmt.Sprintf("element %d is invalid", i), err)
				}

				quotes = append(quotes, q)
			}

			return quotes, nil
		},
		Archive: func(ctx context.Context, _ []byte, quotes []domain.Quote) error {
			return s.store.Append(ctx, quotes...)
		},
		Respond: func(_ context.Context, _ []byte, quotes []domain.Quote) (int, error) {
			return len(quotes), nil
		},
	}

	n, err := Execute(ctx, s.executor, op, payload)
	if err != nil {
		return 0, err
	}

	s.notifier.Notify(ctx, domain.LevelSuccess, MsgQuotesImported)

	return n, nil
}

// Export renders the whole collection as an indented JSON array.
func (s *QuoteService) Export(_ context.Context) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(s.store.Snapshot()); err != nil {
		return nil, fmt.Errorf("encoding export: %w", err)
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ExportFilename is the name exported documents are saved under.
func (s *QuoteService) ExportFilename() string {
	return s.exportFilename
}

// ExportLocation is where one sink stored an export.
type ExportLocation struct {
	Sink     string `json:"sink"`
	Location string `json:"location"`
}

// ExportToSinks writes the export to every configured sink concurrently.
func (s *QuoteService) ExportToSinks(ctx context.Context) ([]ExportLocation, error) {
	if len(s.sinks) == 0 {
		return nil, domain.NewUnavailableError("export", "no export destinations configured")
	}

	body, err := s.Export(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu        sync.Mutex
		locations = make([]ExportLocation, 0, len(s.sinks))
	)

	err = FanOut(ctx, len(s.sinks), s.sinks, func(ctx context.Context, sink ports.ExportSink) error {
		location, err := sink.Write(ctx, s.exportFilename, bytes.NewReader(body), int64(len(body)))
		if err != nil {
			return fmt.Errorf("%s: %w", sink.Name(), err)
		}

		mu.Lock()
		locations = append(locations, ExportLocation{Sink: sink.Name(), Location: location})
		mu.Unlock()

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "quotes exported", slog.Int("sinks", len(locations)), slog.Int("bytes", len(body)))

	return locations, nil
}

// Random picks a quote from category. An empty category uses the persisted
// selection; any other value becomes the new selection.
func (s *QuoteService) Random(ctx context.Context, category string) (domain.Quote, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		category = s.store.SelectedCategory(ctx)
	} else if err := s.store.SetSelectedCategory(ctx, category); err != nil {
		return domain.Quote{}, err
	}

	candidates := domain.Filter(s.store.Snapshot(), category)
	if len(candidates) == 0 {
		return domain.Quote{}, domain.NewNotFoundError("quotes in category", category)
	}

	return candidates[s.intn(len(candidates))], nil
}

// List returns the quotes matching category, or all of them.
func (s *QuoteService) List(_ context.Context, category string) []domain.Quote {
	return domain.Filter(s.store.Snapshot(), strings.TrimSpace(category))
}

// Categories returns the distinct categories in first-seen order.
func (s *QuoteService) Categories(_ context.Context) []string {
	return domain.Categories(s.store.Snapshot())
}

// SelectedCategory returns the persisted category filter.
func (s *QuoteService) SelectedCategory(ctx context.Context) string {
	return s.store.SelectedCategory(ctx)
}

// SetSelectedCategory persists the category filter.
func (s *QuoteService) SetSelectedCategory(ctx context.Context, category string) error {
	return s.store.SetSelectedCategory(ctx, category)
}

// RememberLastQuote records the last quote shown to a session. Without a
// session store or session ID it does nothing.
func (s *QuoteService) RememberLastQuote(ctx context.Context, sessionID string, q domain.Quote) {
	if s.sessions == nil || sessionID == "" {
		return
	}

	data, err := json.Marshal(q)
	if err != nil {
		return
	}

	if err := s.sessions.Set(ctx, sessionID, ports.KeyLastQuote, data); err != nil {
		s.logger.WarnContext(ctx, "remembering last quote failed", slog.Any("error", err))
	}
}

// LastQuote returns the last quote shown to a session.
func (s *QuoteService) LastQuote(ctx context.Context, sessionID string) (domain.Quote, error) {
	if s.sessions == nil || sessionID == "" {
		return domain.Quote{}, domain.NewNotFoundError("last quote", sessionID)
	}

	data, err := s.sessions.Get(ctx, sessionID, ports.KeyLastQuote)
	if err != nil {
		return domain.Quote{}, err
	}

	var q domain.Quote
	if err := json.Unmarshal(data, &q); err != nil {
		return domain.Quote{}, domain.NewNotFoundError("last quote", sessionID)
	}

	return q, nil
}
