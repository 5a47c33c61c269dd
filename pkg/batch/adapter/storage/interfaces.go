// Package storage defines the object storage abstraction used to read and write job files.
// Backends (local file system, GCS) live in sub-packages and register a StorageProvider in
// the "storage_providers" fx group.
package storage

import (
	"context"
	"io"

	storageConfig "github.com/tigerroll/temperature-etl/pkg/batch/adapter/storage/config"
)

// StorageExecutor defines generic storage operations.
type StorageExecutor interface {
	// Upload writes data to objectName in bucket, replacing any existing object.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download opens objectName in bucket. The caller closes the returned reader.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn for every object under prefix, in lexical order.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject removes objectName. Deleting a missing object is not an error.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection is one named storage connection.
type StorageConnection interface {
	StorageExecutor
	// Name returns the connection name as configured under `surfin.adapter.storage`.
	Name() string
	// Type returns the backend type ("local", "gcs").
	Type() string
	// Config returns the settings the connection was created with.
	Config() storageConfig.StorageConfig
	// Close releases the backend client.
	Close() error
}

// StorageProvider creates and caches connections of a single backend type.
type StorageProvider interface {
	// GetConnection retrieves the connection with the specified name, creating it on first use.
	GetConnection(name string) (StorageConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the backend type handled by this provider.
	Type() string
	// ForceReconnect closes and re-creates the connection with the specified name.
	ForceReconnect(name string) (StorageConnection, error)
}

// StorageConnectionResolver resolves a named connection by delegating to the provider of its type.
type StorageConnectionResolver interface {
	ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error)
}

// StorageProviderGroup is the fx group name shared by all StorageProvider implementations.
const StorageProviderGroup = "storage_providers"
