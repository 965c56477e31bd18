package ledger_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paywalled/paid-content/pkg/paidcontent"
	"github.com/paywalled/paid-content/pkg/paidcontent/ledger"
)

func TestFileStoreMissingFileIsEmptyRegistry(t *testing.T) {
	store, err := ledger.NewFileStore(filepath.Join(t.TempDir(), "registry.json"))
	require.NoError(t, err)

	records, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFileStoreSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "registry.json")
	store, err := ledger.NewFileStore(path)
	require.NoError(t, err)
	ctx := context.Background()

	records := map[string]json.RawMessage{
		"ref-1": json.RawMessage(`{"id":"ref-1","title":"A","owner":"0xabc"}`),
		"ref-2": json.RawMessage(`{"id":"ref-2","title":"B","owner":"0xdef"}`),
	}
	require.NoError(t, store.Save(ctx, records))

	// Save replaced the whole file; no temp file may linger.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
	assert.JSONEq(t, string(records["ref-1"]), string(loaded["ref-1"]))
}

func TestFileStoreEverySaveRewritesWholeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	store, err := ledger.NewFileStore(path)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, map[string]json.RawMessage{
		"ref-1": json.RawMessage(`{"id":"ref-1"}`),
	}))
	require.NoError(t, store.Save(ctx, map[string]json.RawMessage{
		"ref-2": json.RawMessage(`{"id":"ref-2"}`),
	}))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 1, "second save fully replaced the first")
	assert.Contains(t, loaded, "ref-2")
}

func TestFileStoreLoadsOlderSchemaThroughRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")

	// A registry file written by an older version: version 1 envelope,
	// records missing price, blob pointer and access log.
	old := `{"version":1,"items":{"legacy-1":{"title":"Old Post","owner":"0xabc"}}}`
	require.NoError(t, os.WriteFile(path, []byte(old), 0o644))

	store, err := ledger.NewFileStore(path)
	require.NoError(t, err)
	reg, err := ledger.New(context.Background(), store)
	require.NoError(t, err)

	item, err := reg.Get(context.Background(), "legacy-1")
	require.NoError(t, err)
	assert.Equal(t, "Old Post", item.Title)
	assert.Equal(t, paidcontent.BlobStatusLocalOnly, item.Blob.Status)
	assert.NotNil(t, item.AccessLog)
}

func TestFileStoreRequiresPath(t *testing.T) {
	_, err := ledger.NewFileStore("")
	assert.Error(t, err)
}
