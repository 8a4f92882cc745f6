package storage

import (
	"path/filepath"

	cwerrors "github.com/abatilo/clockwork/internal/errors"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open returns the LocalStore for backend rooted in dataDir. The returned
// close function releases any handles and is never nil.
func Open(backend, dataDir string) (LocalStore, func() error, error) {
	noop := func() error { return nil }

	switch backend {
	case "", BackendFile:
		fs := NewFileStore(filepath.Join(dataDir, "tasks"))
		if !fs.IsInitialized() {
			return nil, noop, cwerrors.NotInitializedError{Path: dataDir}
		}
		return fs, noop, nil
	case BackendSQLite:
		s, err := NewSQLiteStore(filepath.Join(dataDir, "clockwork.db"))
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case BackendMemory:
		return NewMemoryStore(), noop, nil
	default:
		return nil, noop, cwerrors.ValidationError{Field: "store", Reason: "unknown backend " + backend}
	}
}
