// Package session keeps per-session values in a bounded, expiring LRU cache.
// Nothing in it is authoritative: a lost entry is never an error the user sees.
package session

import (
	"context"
	"log/slog"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
)

type entryKey struct {
	session string
	key     string
}

// Store implements ports.SessionStore.
type Store struct {
	cache *expirable.LRU[entryKey, []byte]
}

// New creates a Store holding at most cfg.MaxEntries values, each for cfg.TTL.
func New(cfg config.SessionConfig, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	onEvict := func(k entryKey, _ []byte) {
		logger.Debug("session entry evicted", slog.String("session_id", k.session), slog.String("key", k.key))
	}

	return &Store{cache: expirable.NewLRU[entryKey, []byte](cfg.MaxEntries, onEvict, cfg.TTL)}
}

// Get returns domain.ErrNotFound for an unknown or expired entry.
func (s *Store) Get(_ context.Context, sessionID, key string) ([]byte, error) {
	v, ok := s.cache.Get(entryKey{session: sessionID, key: key})
	if !ok {
		return nil, domain.NewNotFoundError("session value", sessionID+"/"+key)
	}

	return append([]byte(nil), v...), nil
}

// Set stores a copy of value. A blank session id is rejected.
func (s *Store) Set(_ context.Context, sessionID, key string, value []byte) error {
	if sessionID == "" {
		return domain.NewValidationError("session_id", "is required")
	}

	s.cache.Add(entryKey{session: sessionID, key: key}, append([]byte(nil), value...))

	return nil
}

// Len reports the number of live entries.
func (s *Store) Len() int {
	return s.cache.Len()
}
