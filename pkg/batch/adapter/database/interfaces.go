// Package database defines the connection abstractions shared by the gorm-backed providers.
package database

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/temperature-etl/pkg/batch/adapter/database/config"
)

// DBConnection is one open, named database connection.
type DBConnection interface {
	// Name returns the connection name as configured under `surfin.adapter.database`.
	Name() string
	// Type returns the database type ("sqlite", "postgres", "mysql").
	Type() string
	// Config returns the settings the connection was opened with.
	Config() dbconfig.DatabaseConfig
	// DB returns the gorm handle bound to ctx.
	DB(ctx context.Context) *gorm.DB
	// GetSQLDB returns the underlying *sql.DB connection.
	GetSQLDB() (*sql.DB, error)
	// Close releases the connection pool.
	Close() error
}

// DBProvider opens and caches connections of a single database type.
type DBProvider interface {
	// GetConnection retrieves a database connection with the specified name.
	GetConnection(name string) (DBConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the database type handled by this provider.
	Type() string
	// ForceReconnect closes and re-establishes the connection with the specified name.
	ForceReconnect(name string) (DBConnection, error)
}

// DBConnectionResolver resolves a named connection by delegating to the provider of its type.
type DBConnectionResolver interface {
	// ResolveDBConnection returns a live connection, reconnecting when the cached one fails a ping.
	ResolveDBConnection(ctx context.Context, name string) (DBConnection, error)
}

// DBProviderGroup is the fx group name shared by all DBProvider implementations.
const DBProviderGroup = "db_providers"
