package docstore_test

import (
	"context"
	"fmt"
	"testing"

	"printshop/pkg/docstore"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) *docstore.RedisStore {
	mr := miniredis.RunT(t)
	store := docstore.NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { store.Close() })
	return store
}

func newGormStore(t *testing.T) *docstore.GormStore {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := docstore.OpenGorm("sqlite", dsn)
	require.NoError(t, err)
	store, err := docstore.NewGormStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func storeVariants(t *testing.T) map[string]docstore.Store {
	return map[string]docstore.Store{
		"memory": docstore.NewMemoryStore(),
		"redis":  newRedisStore(t),
		"gorm":   newGormStore(t),
	}
}

func TestStore_FieldMaps(t *testing.T) {
	ctx := context.Background()
	for name, store := range storeVariants(t) {
		t.Run(name, func(t *testing.T) {
			fields, err := store.ReadFields(ctx, "order:missing")
			require.NoError(t, err)
			assert.Empty(t, fields, "missing key reads as an empty map")

			require.NoError(t, store.WriteFields(ctx, "order:1", map[string]string{
				"status":   "pending",
				"quantity": "2",
			}))
			require.NoError(t, store.WriteFields(ctx, "order:1", map[string]string{
				"status": "processing",
			}))

			fields, err = store.ReadFields(ctx, "order:1")
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"status": "processing", "quantity": "2"}, fields)
		})
	}
}

func TestStore_Sets(t *testing.T) {
	ctx := context.Background()
	for name, store := range storeVariants(t) {
		t.Run(name, func(t *testing.T) {
			n, err := store.SetCardinality(ctx, "orders")
			require.NoError(t, err)
			assert.Zero(t, n)

			require.NoError(t, store.AddToSet(ctx, "orders", "a"))
			require.NoError(t, store.AddToSet(ctx, "orders", "b"))
			require.NoError(t, store.AddToSet(ctx, "orders", "a"))

			members, err := store.ListSet(ctx, "orders")
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"a", "b"}, members)

			n, err = store.SetCardinality(ctx, "orders")
			require.NoError(t, err)
			assert.Equal(t, int64(2), n)
		})
	}
}

func TestStore_WriteIndexed(t *testing.T) {
	ctx := context.Background()
	for name, store := range storeVariants(t) {
		t.Run(name, func(t *testing.T) {
			err := store.WriteIndexed(ctx, "order:o1", map[string]string{"status": "pending"}, "o1", "orders", "user:u1:orders")
			require.NoError(t, err)

			fields, err := store.ReadFields(ctx, "order:o1")
			require.NoError(t, err)
			assert.Equal(t, "pending", fields["status"])

			for _, set := range []string{"orders", "user:u1:orders"} {
				members, err := store.ListSet(ctx, set)
				require.NoError(t, err)
				assert.Equal(t, []string{"o1"}, members)
			}
		})
	}
}

func TestMemoryStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	store.SetAvailable(false)

	_, err := store.ReadFields(ctx, "k")
	assert.ErrorIs(t, err, docstore.ErrStoreUnavailable)
	assert.ErrorIs(t, store.WriteFields(ctx, "k", map[string]string{"a": "b"}), docstore.ErrStoreUnavailable)
	assert.ErrorIs(t, store.AddToSet(ctx, "s", "m"), docstore.ErrStoreUnavailable)
	_, err = store.ListSet(ctx, "s")
	assert.ErrorIs(t, err, docstore.ErrStoreUnavailable)
	_, err = store.SetCardinality(ctx, "s")
	assert.ErrorIs(t, err, docstore.ErrStoreUnavailable)
	assert.ErrorIs(t, store.WriteIndexed(ctx, "k", nil, "m", "s"), docstore.ErrStoreUnavailable)

	store.SetAvailable(true)
	_, err = store.ReadFields(ctx, "k")
	assert.NoError(t, err)
}

func TestRedisStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	store := docstore.NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}))
	defer store.Close()
	mr.Close()

	_, err = store.ReadFields(ctx, "order:1")
	assert.ErrorIs(t, err, docstore.ErrStoreUnavailable)
	_, err = store.ListSet(ctx, "orders")
	assert.ErrorIs(t, err, docstore.ErrStoreUnavailable)
	err = store.WriteIndexed(ctx, "order:1", map[string]string{"a": "b"}, "1", "orders")
	assert.ErrorIs(t, err, docstore.ErrStoreUnavailable)
}
