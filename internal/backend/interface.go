package backend

import (
	"context"

	"timeledger/internal/remote"
	"timeledger/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// StoreResult contains the local store instance and optional cleanup function
type StoreResult struct {
	Store   storage.Store
	Cleanup CleanupFunc
}

// RemoteResult contains the remote store instance and optional cleanup function
type RemoteResult struct {
	Store   remote.Store
	Cleanup CleanupFunc
}

// Factory opens local and remote stores based on configuration
type Factory interface {
	// OpenStore opens the local store selected by the provided config
	OpenStore(ctx context.Context, config Config) (*StoreResult, error)

	// OpenRemote opens the remote store selected by the provided config
	OpenRemote(ctx context.Context, config Config) (*RemoteResult, error)
}

// Config holds configuration for store creation
type Config struct {
	// Local store type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Badger specific
	BadgerDBPath string

	// Remote store type
	Remote RemoteType

	// Postgres specific
	PostgresDSN string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// BackendType represents the type of local store
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	BadgerBackend BackendType = "badger"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, BadgerBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// RemoteType represents the type of remote store
type RemoteType string

const (
	SheetsRemote   RemoteType = "sheets"
	PostgresRemote RemoteType = "postgres"
	MemoryRemote   RemoteType = "memory"
)

// String implements fmt.Stringer
func (rt RemoteType) String() string {
	return string(rt)
}

// IsValid returns true if the remote type is valid
func (rt RemoteType) IsValid() bool {
	switch rt {
	case SheetsRemote, PostgresRemote, MemoryRemote:
		return true
	default:
		return false
	}
}
