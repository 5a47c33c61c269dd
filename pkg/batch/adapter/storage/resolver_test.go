package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/temperature-etl/pkg/batch/adapter/storage"
	"github.com/tigerroll/temperature-etl/pkg/batch/adapter/storage/gcs"
	"github.com/tigerroll/temperature-etl/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/temperature-etl/pkg/batch/core/config"
)

func newResolver(t *testing.T, connections map[string]interface{}) *storage.ConnectionResolver {
	cfg := config.NewConfig()
	cfg.Surfin.AdapterConfigs["storage"] = connections
	r := storage.NewConnectionResolver(storage.ConnectionResolverParams{
		Providers: []storage.StorageProvider{local.NewLocalProvider(cfg), gcs.NewGCSProvider(cfg)},
		Cfg:       cfg,
	})
	t.Cleanup(func() { _ = r.CloseAll() })
	return r
}

func TestResolveStorageConnection_Local(t *testing.T) {
	r := newResolver(t, map[string]interface{}{
		"local": map[string]interface{}{"type": "local", "base_dir": t.TempDir()},
	})

	conn, err := r.ResolveStorageConnection(context.Background(), "local")
	require.NoError(t, err)
	assert.Equal(t, "local", conn.Name())
	assert.Equal(t, "local", conn.Type())

	again, err := r.ResolveStorageConnection(context.Background(), "local")
	require.NoError(t, err)
	assert.Same(t, conn, again)
}

func TestResolveStorageConnection_Errors(t *testing.T) {
	r := newResolver(t, map[string]interface{}{
		"s3":       map[string]interface{}{"type": "s3"},
		"nobucket": map[string]interface{}{"type": "gcs"},
	})

	_, err := r.ResolveStorageConnection(context.Background(), "missing")
	assert.ErrorContains(t, err, "not found")

	_, err = r.ResolveStorageConnection(context.Background(), "s3")
	assert.ErrorContains(t, err, "no storage provider found for type 's3'")

	_, err = r.ResolveStorageConnection(context.Background(), "nobucket")
	assert.ErrorContains(t, err, "bucket_name must be specified")
}

func TestBaseProvider_ForceReconnect(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Surfin.AdapterConfigs["storage"] = map[string]interface{}{
		"local": map[string]interface{}{"type": "local", "base_dir": t.TempDir()},
	}
	p := local.NewLocalProvider(cfg)

	first, err := p.GetConnection("local")
	require.NoError(t, err)
	second, err := p.ForceReconnect("local")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.NoError(t, p.CloseAll())
}
