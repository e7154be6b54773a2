package local

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeramey/parci/pkg/params"
)

func testStore() (*ParameterStore, *memTable) {
	kv := newMemTable()
	keys := &KeyPair{Name: testKey(0x11), Value: testKey(0x22)}
	return NewParameterStore(kv, keys), kv
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := testStore()

	require.NoError(t, store.Set(ctx, "database-url", "postgres://localhost/ci"))

	value, err := store.Get(ctx, "database-url")
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/ci", value)
}

func TestStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	store, kv := testStore()

	require.NoError(t, store.Set(ctx, "token", "old"))
	require.NoError(t, store.Set(ctx, "token", "new"))
	assert.Len(t, kv.data, 1, "overwrite must not grow the table")

	value, err := store.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "new", value)
}

func TestStoreGetMissing(t *testing.T) {
	ctx := context.Background()
	store, _ := testStore()

	_, err := store.Get(ctx, "nope")
	require.Error(t, err)
	assert.True(t, params.IsCode(err, params.ErrCodeNotFound))
}

func TestStoreDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	store, _ := testStore()

	require.NoError(t, store.Set(ctx, "token", "v"))
	require.NoError(t, store.Delete(ctx, "token"))

	ok, err := store.Contains(ctx, "token")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting an absent parameter is not an error.
	require.NoError(t, store.Delete(ctx, "token"))
	require.NoError(t, store.Delete(ctx, "never-existed"))
}

func TestStoreContains(t *testing.T) {
	ctx := context.Background()
	store, _ := testStore()
	require.NoError(t, store.Set(ctx, "token", "v"))

	ok, err := store.Contains(ctx, "token")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Contains(ctx, "other")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreEnumeration(t *testing.T) {
	ctx := context.Background()
	store, _ := testStore()
	want := map[string]any{"a": "1", "b": 2.0, "c": true}
	for name, value := range want {
		require.NoError(t, store.Set(ctx, name, value))
	}

	got := make(map[string]any, len(want))
	for it, err := range store.Items(ctx) {
		require.NoError(t, err)
		got[it.Name] = it.Value
	}
	assert.Equal(t, want, got)

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, keys)

	values, err := store.Values(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{"1", 2.0, true}, values)
}

func TestStoreEncryptedAtRest(t *testing.T) {
	ctx := context.Background()
	store, kv := testStore()
	require.NoError(t, store.Set(ctx, "github-token", "ghp_abc123"))

	for key, value := range kv.data {
		assert.NotContains(t, key, "github-token", "lookup key must not leak the name")
		assert.NotContains(t, value, "github-token")
		assert.NotContains(t, value, "ghp_abc123")
	}
}

func TestStoreKeysIsolateNames(t *testing.T) {
	ctx := context.Background()
	kv := newMemTable()
	a := NewParameterStore(kv, &KeyPair{Name: testKey(0x11), Value: testKey(0x22)})
	b := NewParameterStore(kv, &KeyPair{Name: testKey(0x33), Value: testKey(0x22)})

	require.NoError(t, a.Set(ctx, "token", "v"))

	// Same table, different NameKey: the digest misses.
	_, err := b.Get(ctx, "token")
	require.Error(t, err)
	assert.True(t, params.IsCode(err, params.ErrCodeNotFound))
}

func TestStoreTamperedValue(t *testing.T) {
	ctx := context.Background()
	store, kv := testStore()
	require.NoError(t, store.Set(ctx, "token", "v"))

	for key := range kv.data {
		kv.data[key] = kv.data[key][:len(kv.data[key])-4] + "AAA="
	}

	_, err := store.Get(ctx, "token")
	require.Error(t, err)
	assert.True(t, params.IsCode(err, params.ErrCodeAuthFailed))

	var itemsErr error
	for _, err := range store.Items(ctx) {
		if err != nil {
			itemsErr = err
			break
		}
	}
	require.Error(t, itemsErr)
	assert.True(t, params.IsCode(itemsErr, params.ErrCodeAuthFailed))
}

func TestStoreItemsEarlyStop(t *testing.T) {
	ctx := context.Background()
	store, _ := testStore()
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, store.Set(ctx, name, name))
	}

	// Breaking out of the stream is clean; nothing past the break is
	// decrypted or yielded.
	count := 0
	for _, err := range store.Items(ctx) {
		require.NoError(t, err)
		count++
		break
	}
	assert.Equal(t, 1, count)
}
