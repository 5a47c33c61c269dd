package gorm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/temperature-etl/pkg/batch/adapter/database"
	gormadapter "github.com/tigerroll/temperature-etl/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/temperature-etl/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/config"
)

func newConfig(dbs map[string]interface{}) *config.Config {
	cfg := config.NewConfig()
	cfg.Surfin.AdapterConfigs["database"] = dbs
	return cfg
}

func memorySQLite() map[string]interface{} {
	return map[string]interface{}{
		"type":     "sqlite",
		"database": ":memory:",
		"pool":     map[string]interface{}{"max_open_conns": 1},
	}
}

func TestResolveDBConnection_SQLite(t *testing.T) {
	cfg := newConfig(map[string]interface{}{"metadata": memorySQLite()})
	resolver := gormadapter.NewGormDBConnectionResolver(gormadapter.DBConnectionResolverParams{
		DBProviders: []database.DBProvider{sqlite.NewProvider(cfg)},
		Cfg:         cfg,
	})
	t.Cleanup(func() { _ = resolver.CloseAll() })

	conn, err := resolver.ResolveDBConnection(context.Background(), "metadata")
	require.NoError(t, err)
	assert.Equal(t, "metadata", conn.Name())
	assert.Equal(t, "sqlite", conn.Type())
	assert.Equal(t, 1, conn.Config().Pool.MaxOpenConns)

	var one int
	require.NoError(t, conn.DB(context.Background()).Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)

	again, err := resolver.ResolveDBConnection(context.Background(), "metadata")
	require.NoError(t, err)
	assert.Same(t, conn, again)
}

func TestResolveDBConnection_ReconnectsClosedConnection(t *testing.T) {
	cfg := newConfig(map[string]interface{}{"metadata": memorySQLite()})
	resolver := gormadapter.NewGormDBConnectionResolver(gormadapter.DBConnectionResolverParams{
		DBProviders: []database.DBProvider{sqlite.NewProvider(cfg)},
		Cfg:         cfg,
	})
	t.Cleanup(func() { _ = resolver.CloseAll() })

	conn, err := resolver.ResolveDBConnection(context.Background(), "metadata")
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	fresh, err := resolver.ResolveDBConnection(context.Background(), "metadata")
	require.NoError(t, err)
	assert.NotSame(t, conn, fresh)
}

func TestResolveDBConnection_Errors(t *testing.T) {
	cfg := newConfig(map[string]interface{}{
		"warehouse": map[string]interface{}{"type": "postgres", "host": "localhost"},
	})
	resolver := gormadapter.NewGormDBConnectionResolver(gormadapter.DBConnectionResolverParams{
		DBProviders: []database.DBProvider{sqlite.NewProvider(cfg)},
		Cfg:         cfg,
	})

	_, err := resolver.ResolveDBConnection(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = resolver.ResolveDBConnection(context.Background(), "warehouse")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no provider registered for database type 'postgres'")
}

func TestBaseProvider_TypeMismatch(t *testing.T) {
	cfg := newConfig(map[string]interface{}{
		"warehouse": map[string]interface{}{"type": "postgres"},
	})
	_, err := sqlite.NewProvider(cfg).GetConnection("warehouse")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider type mismatch")
}

func TestGetDialectorFactory_Unknown(t *testing.T) {
	_, err := gormadapter.GetDialectorFactory("oracle")
	assert.Error(t, err)
}
