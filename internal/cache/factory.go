package cache

import (
	"fmt"
	"strings"
)

// StoreConfig selects and configures the storage backend.
type StoreConfig struct {
	Type             string // "sqlite" or "postgres"
	ConnectionString string // file path for SQLite, DSN for Postgres
}

// NewStore creates a Store from configuration. SQLite is the default and
// needs no external service; Postgres is for shared deployments.
func NewStore(config StoreConfig) (Store, error) {
	switch strings.ToLower(config.Type) {
	case "postgres", "postgresql":
		if config.ConnectionString == "" {
			return nil, fmt.Errorf("postgres connection string is required")
		}
		return NewPostgresStore(config.ConnectionString)
	case "sqlite", "sqlite3", "":
		if config.ConnectionString == "" {
			config.ConnectionString = ".dementor.db"
		}
		return NewSQLiteStore(config.ConnectionString)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}
