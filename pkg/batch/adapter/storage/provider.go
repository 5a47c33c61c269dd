package storage

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	storageConfig "github.com/tigerroll/temperature-etl/pkg/batch/adapter/storage/config"
	coreConfig "github.com/tigerroll/temperature-etl/pkg/batch/core/config"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/logger"
)

// ConnectionFactory creates a connection from its decoded settings.
type ConnectionFactory func(cfg storageConfig.StorageConfig, name string) (StorageConnection, error)

// LookupStorageConfig decodes the settings of connection name from `surfin.adapter.storage`.
func LookupStorageConfig(cfg *coreConfig.Config, name string) (storageConfig.StorageConfig, error) {
	var storageCfg storageConfig.StorageConfig
	namedConfig, ok := cfg.AdapterSection("storage")[name]
	if !ok {
		return storageCfg, fmt.Errorf("storage configuration for name '%s' not found", name)
	}
	if err := configbinder.DecodeSettings(namedConfig, &storageCfg); err != nil {
		return storageCfg, fmt.Errorf("failed to decode storage config for '%s': %w", name, err)
	}
	return storageCfg, nil
}

// BaseProvider caches connections created by a ConnectionFactory. Backends embed it.
type BaseProvider struct {
	cfg          *coreConfig.Config
	providerType string
	factory      ConnectionFactory
	connections  map[string]StorageConnection
	mu           sync.RWMutex
}

// NewBaseProvider creates a BaseProvider for providerType.
func NewBaseProvider(cfg *coreConfig.Config, providerType string, factory ConnectionFactory) *BaseProvider {
	return &BaseProvider{
		cfg:          cfg,
		providerType: providerType,
		factory:      factory,
		connections:  make(map[string]StorageConnection),
	}
}

// Type returns the backend type.
func (p *BaseProvider) Type() string {
	return p.providerType
}

// GetConnection retrieves a connection by name, creating it if it does not exist yet.
func (p *BaseProvider) GetConnection(name string) (StorageConnection, error) {
	p.mu.RLock()
	conn, ok := p.connections[name]
	p.mu.RUnlock()
	if ok {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check after acquiring lock
	if conn, ok = p.connections[name]; ok {
		return conn, nil
	}
	return p.create(name)
}

func (p *BaseProvider) create(name string) (StorageConnection, error) {
	storageCfg, err := LookupStorageConfig(p.cfg, name)
	if err != nil {
		return nil, err
	}
	if storageCfg.Type != p.providerType {
		return nil, fmt.Errorf("storage config type mismatch for '%s': expected '%s', got '%s'", name, p.providerType, storageCfg.Type)
	}

	conn, err := p.factory(storageCfg, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s storage connection '%s': %w", p.providerType, name, err)
	}
	p.connections[name] = conn
	logger.Debugf("Created new %s storage connection '%s'.", p.providerType, name)
	return conn, nil
}

// ForceReconnect closes the existing connection, if any, and creates a new one.
func (p *BaseProvider) ForceReconnect(name string) (StorageConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if conn, ok := p.connections[name]; ok {
		if err := conn.Close(); err != nil {
			logger.Warnf("Failed to gracefully close storage connection '%s' during force reconnect: %v", name, err)
		}
		delete(p.connections, name)
	}
	logger.Debugf("Forcing reconnect for storage connection '%s'.", name)
	return p.create(name)
}

// CloseAll closes all connections managed by this provider.
func (p *BaseProvider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result error
	for name, conn := range p.connections {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close storage connection '%s': %w", name, err))
		}
		delete(p.connections, name)
	}
	return result
}

var _ StorageProvider = (*BaseProvider)(nil)
