// Package preferences persists client-local reader preferences such as the
// font size.
//
// Two key/value backends are available: SQLite through gorm (default) and
// bbolt.
//
// # Usage
//
//	store, err := preferences.Open(preferences.BackendSQLite, "./reader.db")
//	prefs := preferences.New(store)
//	size, ok := prefs.FontSize()
package preferences

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates a preference key has no stored value.
var ErrNotFound = errors.New("preference not found")

// Backend names a storage implementation.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendBolt   Backend = "bolt"
)

// Store is a string key/value store.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
	Close() error
}

// Open opens the backend at path.
func Open(backend Backend, path string) (Store, error) {
	switch backend {
	case BackendSQLite, "":
		return NewSQLiteStore(path)
	case BackendBolt:
		return NewBoltStore(path)
	default:
		return nil, fmt.Errorf("unknown preferences backend %q", backend)
	}
}
