package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestKVGetSet(t *testing.T) {
	ctx := context.Background()
	kv := openTestDB(t).Table("config")

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Set(ctx, "k", "v1"))
	value, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", value)

	// Upsert replaces.
	require.NoError(t, kv.Set(ctx, "k", "v2"))
	value, err = kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", value)
}

func TestKVDelete(t *testing.T) {
	ctx := context.Background()
	kv := openTestDB(t).Table("config")

	require.NoError(t, kv.Set(ctx, "k", "v"))
	require.NoError(t, kv.Delete(ctx, "k"))

	_, err := kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting an absent key is fine.
	require.NoError(t, kv.Delete(ctx, "k"))
}

func TestKVContains(t *testing.T) {
	ctx := context.Background()
	kv := openTestDB(t).Table("config")

	ok, err := kv.Contains(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "k", "v"))
	ok, err = kv.Contains(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestKVEnumeration(t *testing.T) {
	ctx := context.Background()
	kv := openTestDB(t).Table("params")
	want := map[string]string{"a": "1", "b": "2", "c": "3"}
	for k, v := range want {
		require.NoError(t, kv.Set(ctx, k, v))
	}

	keys, err := kv.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, keys)

	values, err := kv.Values(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "2", "3"}, values)

	items, err := kv.Items(ctx)
	require.NoError(t, err)
	got := make(map[string]string, len(items))
	for _, it := range items {
		got[it.Key] = it.Value
	}
	assert.Equal(t, want, got)
}

func TestKVTableIsolation(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	config := db.Table("config")
	state := db.Table("state")

	require.NoError(t, config.Set(ctx, "k", "from config"))
	require.NoError(t, state.Set(ctx, "k", "from state"))

	value, err := config.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "from config", value)

	value, err = state.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "from state", value)

	require.NoError(t, config.Delete(ctx, "k"))
	_, err = state.Get(ctx, "k")
	require.NoError(t, err, "delete must not cross tables")
}

func TestKVReopenPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "persist.db")

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Table("config").Set(ctx, "k", "v"))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	value, err := db.Table("config").Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)
}

func TestOpenCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dirs", "test.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}
