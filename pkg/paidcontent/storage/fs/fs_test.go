package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paywalled/paid-content/pkg/paidcontent"
	fsstorage "github.com/paywalled/paid-content/pkg/paidcontent/storage/fs"
)

func newBackend(t *testing.T) (*fsstorage.Backend, string) {
	t.Helper()
	dir := t.TempDir()
	backend, err := fsstorage.New(fsstorage.Config{BaseDir: dir})
	require.NoError(t, err)
	return backend, dir
}

func TestNewRequiresBaseDir(t *testing.T) {
	_, err := fsstorage.New(fsstorage.Config{})
	assert.Error(t, err)
}

func TestNewCreatesBaseDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "blobs")
	_, err := fsstorage.New(fsstorage.Config{BaseDir: dir})
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWriteReadDelete(t *testing.T) {
	backend, dir := newBackend(t)
	ctx := context.Background()
	data := []byte("encrypted payload")

	ref, err := backend.WriteBlob(ctx, data)
	require.NoError(t, err)
	require.Len(t, ref, 64)

	// Blobs shard one directory level deep by reference prefix.
	path := filepath.Join(dir, ref[:2], ref)
	_, err = os.Stat(path)
	require.NoError(t, err)

	// No temp file left behind.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	got, err := backend.ReadBlob(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	require.NoError(t, backend.DeleteBlob(ctx, ref))
	_, err = backend.ReadBlob(ctx, ref)
	assert.ErrorIs(t, err, paidcontent.ErrBlobNotFound)
}

func TestMissingBlob(t *testing.T) {
	backend, _ := newBackend(t)
	ctx := context.Background()

	_, err := backend.ReadBlob(ctx, "0000000000000000000000000000000000000000000000000000000000000000")
	assert.ErrorIs(t, err, paidcontent.ErrBlobNotFound)
	assert.ErrorIs(t, backend.DeleteBlob(ctx, "deadbeef"), paidcontent.ErrBlobNotFound)
}

func TestSurvivesReopen(t *testing.T) {
	backend, dir := newBackend(t)
	ctx := context.Background()

	ref, err := backend.WriteBlob(ctx, []byte("durable bytes"))
	require.NoError(t, err)

	reopened, err := fsstorage.New(fsstorage.Config{BaseDir: dir})
	require.NoError(t, err)

	got, err := reopened.ReadBlob(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("durable bytes"), got)
}
