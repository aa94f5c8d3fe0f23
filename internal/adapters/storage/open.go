package storage

import (
	"fmt"

	"github.com/jsamuelsen/quotesync/internal/platform/config"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// Driver names accepted in storage.driver.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverBadger = "badger"
)

// Store is a KeyValueStore that can also report readiness.
type Store interface {
	ports.KeyValueStore
	ports.HealthChecker
}

// Open returns the driver selected by cfg.
func Open(cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverFile:
		return NewFileStore(cfg.Path)
	case DriverBadger:
		return NewBadgerStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
