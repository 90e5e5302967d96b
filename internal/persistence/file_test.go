package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "fallback")
	store := NewFileStore(dir)
	ctx := context.Background()

	_, err := store.Get(ctx, Properties)
	assert.ErrorIs(t, err, ErrNoDocument)

	require.NoError(t, store.Put(ctx, Properties, []byte(`[{"id":"p1"}]`)))
	require.NoError(t, store.Put(ctx, Properties, []byte(`[{"id":"p2"}]`)))

	doc, err := store.Get(ctx, Properties)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"p2"}]`, string(doc))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Properties.json", entries[0].Name())
}

func TestFileStore_PutFailsOnUnwritableDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	store := NewFileStore(filepath.Join(blocker, "sub"))
	assert.Error(t, store.Put(context.Background(), Leads, []byte(`[]`)))
}
