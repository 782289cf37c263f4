package backend

import (
	"fmt"

	"timeledger/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	remoteType := RemoteType(appConfig.RemoteBackend)
	if !remoteType.IsValid() {
		return Config{}, fmt.Errorf("invalid remote type in config: %s", appConfig.RemoteBackend)
	}

	return Config{
		Type: backendType,

		// SQLite configuration
		SQLiteDBPath: appConfig.SQLiteDBPath,

		// Badger configuration
		BadgerDBPath: appConfig.BadgerDBPath,

		Remote: remoteType,

		// Postgres configuration
		PostgresDSN: appConfig.PostgresDSN,

		// Google Sheets configuration
		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if !c.Remote.IsValid() {
		return fmt.Errorf("invalid remote type: %s", c.Remote)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}

	case BadgerBackend:
		if c.BadgerDBPath == "" {
			return fmt.Errorf("Badger database path is required for badger backend")
		}

	case MemoryBackend:
		// Memory store doesn't require additional validation
	}

	switch c.Remote {
	case SheetsRemote:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets remote")
		}

		// Must have either service account file or JSON
		hasAccountFile := c.GoogleServiceAccountFile != ""
		hasAccountJSON := c.GoogleServiceAccountJSON != ""
		if !hasAccountFile && !hasAccountJSON {
			return fmt.Errorf("either GoogleServiceAccountFile or GoogleServiceAccountJSON must be provided for sheets remote")
		}

	case PostgresRemote:
		if c.PostgresDSN == "" {
			return fmt.Errorf("Postgres DSN is required for postgres remote")
		}

	case MemoryRemote:
		// Memory remote doesn't require additional validation
	}

	return nil
}

// StoreTypes returns all valid local store types
func StoreTypes() []BackendType {
	return []BackendType{SQLiteBackend, BadgerBackend, MemoryBackend}
}

// RemoteTypes returns all valid remote store types
func RemoteTypes() []RemoteType {
	return []RemoteType{SheetsRemote, PostgresRemote, MemoryRemote}
}
