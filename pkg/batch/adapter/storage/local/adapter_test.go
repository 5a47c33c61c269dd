package local_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageConfig "github.com/tigerroll/temperature-etl/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/temperature-etl/pkg/batch/adapter/storage/local"
)

func TestLocalAdapter_UploadDownloadListDelete(t *testing.T) {
	base := t.TempDir()
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: base}, "local")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, conn.Upload(ctx, "", "out/table.parquet/part-00000.parquet", strings.NewReader("PAR1"), "application/octet-stream"))
	require.NoError(t, conn.Upload(ctx, "", "out/table.parquet/_SUCCESS", strings.NewReader(""), "text/plain"))
	require.NoError(t, conn.Upload(ctx, "", "other.txt", strings.NewReader("x"), "text/plain"))

	r, err := conn.Download(ctx, "", "out/table.parquet/part-00000.parquet")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, r.Close())
	require.NoError(t, err)
	assert.Equal(t, "PAR1", string(data))

	var names []string
	require.NoError(t, conn.ListObjects(ctx, "", "out/table.parquet/", func(name string) error {
		names = append(names, name)
		return nil
	}))
	assert.Equal(t, []string{"out/table.parquet/_SUCCESS", "out/table.parquet/part-00000.parquet"}, names)

	require.NoError(t, conn.DeleteObject(ctx, "", "out/table.parquet/_SUCCESS"))
	require.NoError(t, conn.DeleteObject(ctx, "", "out/table.parquet/_SUCCESS"))
	_, err = os.Stat(filepath.Join(base, "out", "table.parquet", "_SUCCESS"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalAdapter_BucketIsSubdirectory(t *testing.T) {
	base := t.TempDir()
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: base, BucketName: "default"}, "local")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, conn.Upload(ctx, "", "a.txt", strings.NewReader("a"), "text/plain"))
	require.NoError(t, conn.Upload(ctx, "explicit", "b.txt", strings.NewReader("b"), "text/plain"))

	assert.FileExists(t, filepath.Join(base, "default", "a.txt"))
	assert.FileExists(t, filepath.Join(base, "explicit", "b.txt"))
}

func TestLocalAdapter_ListMissingDirectory(t *testing.T) {
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: t.TempDir(), BucketName: "absent"}, "local")
	require.NoError(t, err)

	called := false
	require.NoError(t, conn.ListObjects(context.Background(), "", "", func(string) error {
		called = true
		return nil
	}))
	assert.False(t, called)
}

func TestLocalAdapter_RejectsEscapingPaths(t *testing.T) {
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: t.TempDir()}, "local")
	require.NoError(t, err)

	err = conn.Upload(context.Background(), "", "../escape.txt", strings.NewReader("x"), "text/plain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside of BaseDir")
}

func TestNewLocalAdapter_Validation(t *testing.T) {
	_, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local"}, "local")
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: file}, "local")
	assert.Error(t, err)

	created := filepath.Join(t.TempDir(), "nested", "dir")
	_, err = local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: created}, "local")
	require.NoError(t, err)
	assert.DirExists(t, created)
}

func listAll(t *testing.T, conn interface {
	ListObjects(ctx context.Context, bucket, prefix string, fn func(string) error) error
}, prefix string) []string {
	t.Helper()
	names := []string{}
	require.NoError(t, conn.ListObjects(context.Background(), "", prefix, func(name string) error {
		names = append(names, name)
		return nil
	}))
	return names
}

func TestLocalAdapter_ListStartsAtPrefixDirectory(t *testing.T) {
	base := t.TempDir()
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: base}, "local")
	require.NoError(t, err)
	ctx := context.Background()

	for _, name := range []string{
		"out/table.parquet/part-00000.parquet",
		"out/table.parquet/_SUCCESS",
		"out/table.parquet.bak/part-00000.parquet",
		"out/part-00001.parquet",
		"out/sub/part-00002.parquet",
		"elsewhere/out/table.parquet/part-00000.parquet",
	} {
		require.NoError(t, conn.Upload(ctx, "", name, strings.NewReader("x"), "application/octet-stream"))
	}

	// A sibling the walk must never enter.
	locked := filepath.Join(base, "locked")
	require.NoError(t, os.MkdirAll(filepath.Join(locked, "deep"), 0o755))
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	assert.Equal(t, []string{"out/table.parquet/_SUCCESS", "out/table.parquet/part-00000.parquet"}, listAll(t, conn, "out/table.parquet/"))
	assert.Equal(t, []string{"out/part-00001.parquet"}, listAll(t, conn, "out/part-"))
	assert.Equal(t, []string{"out/table.parquet/_SUCCESS", "out/table.parquet/part-00000.parquet", "out/table.parquet.bak/part-00000.parquet"}, listAll(t, conn, "out/table"))
	assert.Empty(t, listAll(t, conn, "absent/table.parquet/"))
}

func TestLocalAdapter_ListUnderRootBaseDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("BaseDir '/' is a POSIX layout")
	}
	dir := strings.TrimPrefix(filepath.ToSlash(t.TempDir()), "/")
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: "/"}, "root")
	require.NoError(t, err)

	object := dir + "/processed_temperature.parquet/part-00000.parquet"
	require.NoError(t, conn.Upload(context.Background(), "", object, strings.NewReader("PAR1"), "application/octet-stream"))

	assert.Equal(t, []string{object}, listAll(t, conn, dir+"/processed_temperature.parquet/"))
	assert.Empty(t, listAll(t, conn, dir+"/absent.parquet/"))
}
