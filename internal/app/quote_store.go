package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// QuoteStore owns the ordered quote collection and keeps it reconciled with
// durable storage. Every mutation is persisted before the lock is released;
// a failed write rolls the in-memory change back.
type QuoteStore struct {
	kv     ports.KeyValueStore
	logger *slog.Logger

	mu     sync.RWMutex
	quotes []domain.Quote
}

// NewQuoteStore creates a store over kv. Call Load before use.
func NewQuoteStore(kv ports.KeyValueStore, logger *slog.Logger) *QuoteStore {
	if kv == nil {
		panic("app: QuoteStore requires a KeyValueStore")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &QuoteStore{kv: kv, logger: logger, quotes: domain.DefaultQuotes()}
}

// Load reads the persisted collection. An absent, unreadable or unparseable
// snapshot falls back to the default quotes; Load itself never fails.
func (s *QuoteStore) Load(ctx context.Context) []domain.Quote {
	quotes := s.read(ctx)

	s.mu.Lock()
	s.quotes = quotes
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "quote store loaded", slog.Int("count", len(quotes)))

	return domain.Clone(quotes)
}

func (s *QuoteStore) read(ctx context.Context) []domain.Quote {
	data, err := s.kv.Get(ctx, ports.KeyQuotes)
	if domain.IsNotFound(err) {
		return domain.DefaultQuotes()
	}

	if err != nil {
		s.logger.WarnContext(ctx, "reading stored quotes failed, using defaults", slog.Any("error", err))
		return domain.DefaultQuotes()
	}

	var quotes []domain.Quote
	if err := json.Unmarshal(data, &quotes); err != nil || quotes == nil {
		s.logger.WarnContext(ctx, "stored quotes unparseable, using defaults", slog.Any("error", err))
		return domain.DefaultQuotes()
	}

	valid := quotes[:0]

	for i, q := range quotes {
		q, err := domain.NewQuote(q.Text, q.Category)
		if err != nil {
			s.logger.WarnContext(ctx, "dropping invalid stored quote", slog.Int("index", i), slog.Any("error", err))
			continue
		}

		valid = append(valid, q)
	}

	if len(valid) == 0 && len(quotes) > 0 {
		s.logger.WarnContext(ctx, "no valid stored quotes, using defaults")
		return domain.DefaultQuotes()
	}

	return valid
}

// Append adds quotes in order and persists the whole collection with one write.
func (s *QuoteStore) Append(ctx context.Context, quotes ...domain.Quote) error {
	if len(quotes) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.quotes
	next := make([]domain.Quote, 0, len(prev)+len(quotes))
	next = append(next, prev...)
	next = append(next, quotes...)

	if err := s.persist(ctx, next); err != nil {
		return err
	}

	s.quotes = next

	return nil
}

// ReplaceAll swaps the whole collection.
func (s *QuoteStore) ReplaceAll(ctx context.Context, quotes []domain.Quote) error {
	next := domain.Clone(quotes)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(ctx, next); err != nil {
		return err
	}

	s.quotes = next

	return nil
}

// Snapshot returns a copy of the current collection.
func (s *QuoteStore) Snapshot() []domain.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.Clone(s.quotes)
}

// Len returns the collection size.
func (s *QuoteStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.quotes)
}

func (s *QuoteStore) persist(ctx context.Context, quotes []domain.Quote) error {
	data, err := json.Marshal(quotes)
	if err != nil {
		return fmt.Errorf("encoding quotes: %w", err)
	}

	if err := s.kv.Set(ctx, ports.KeyQuotes, data); err != nil {
		return fmt.Errorf("persisting quotes: %w", err)
	}

	return nil
}

// SelectedCategory returns the persisted category filter, defaulting to "all".
func (s *QuoteStore) SelectedCategory(ctx context.Context) string {
	data, err := s.kv.Get(ctx, ports.KeySelectedCategory)
	if err != nil {
		if !domain.IsNotFound(err) {
			s.logger.WarnContext(ctx, "reading selected category failed", slog.Any("error", err))
		}

		return domain.CategoryAll
	}

	if c := strings.TrimSpace(string(data)); c != "" {
		return c
	}

	return domain.CategoryAll
}

// SetSelectedCategory persists the category filter. Empty means "all".
func (s *QuoteStore) SetSelectedCategory(ctx context.Context, category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		category = domain.CategoryAll
	}

	if err := s.kv.Set(ctx, ports.KeySelectedCategory, []byte(category)); err != nil {
		return fmt.Errorf("persisting selected category: %w", err)
	}

	return nil
}
