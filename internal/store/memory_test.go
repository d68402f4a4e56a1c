package store_test

import (
	"context"
	"testing"

	"kiranakart/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGateway_SetGetDelete(t *testing.T) {
	gw := store.NewMemoryGateway()
	ctx := context.Background()

	require.NoError(t, gw.Set(ctx, "users/u1/cart", "c1", store.Document{"status": "active"}))

	doc, err := gw.Get(ctx, "users/u1/cart", "c1")
	require.NoError(t, err)
	assert.Equal(t, "active", doc["status"])

	// Mutating the returned document must not leak into the store.
	doc["status"] = "mutated"
	doc2, err := gw.Get(ctx, "users/u1/cart", "c1")
	require.NoError(t, err)
	assert.Equal(t, "active", doc2["status"])

	require.NoError(t, gw.Delete(ctx, "users/u1/cart", "c1"))
	_, err = gw.Get(ctx, "users/u1/cart", "c1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Deleting an absent document is not an error.
	assert.NoError(t, gw.Delete(ctx, "users/u1/cart", "c1"))
}

func TestMemoryGateway_QueryFilters(t *testing.T) {
	gw := store.NewMemoryGateway()
	ctx := context.Background()

	require.NoError(t, gw.Set(ctx, "users/u1/cart", "c1", store.Document{"status": "active"}))
	require.NoError(t, gw.Set(ctx, "users/u1/cart", "c2", store.Document{"status": "inactive"}))
	require.NoError(t, gw.Set(ctx, "users/u2/cart", "c3", store.Document{"status": "active"}))

	docs, err := gw.Query(ctx, "users/u1/cart", []store.Filter{store.Eq("status", "active")})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "active", docs[0]["status"])

	all, err := gw.Query(ctx, "users/u1/cart", nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemoryGateway_UpdateMergesAndClears(t *testing.T) {
	gw := store.NewMemoryGateway()
	ctx := context.Background()

	require.NoError(t, gw.Set(ctx, "orders", "o1", store.Document{"status": "pending", "notes": "x"}))
	require.NoError(t, gw.Update(ctx, "orders", "o1", store.Document{"status": "confirmed", "notes": nil}))

	doc, err := gw.Get(ctx, "orders", "o1")
	require.NoError(t, err)
	assert.Equal(t, "confirmed", doc["status"])
	assert.NotContains(t, doc, "notes", "a nil field value clears the field")

	assert.ErrorIs(t, gw.Update(ctx, "orders", "missing", store.Document{"status": "x"}), store.ErrNotFound)
}

func TestMemoryGateway_RunTransaction_UpsertsAbsentDocument(t *testing.T) {
	gw := store.NewMemoryGateway()
	ctx := context.Background()

	err := gw.RunTransaction(ctx, "restaurants/r1/menu_items", "m1", func(doc store.Document) (store.Document, error) {
		assert.Empty(t, doc, "absent document reads as empty")
		return store.Document{"ratingCount": 1}, nil
	})
	require.NoError(t, err)

	doc, err := gw.Get(ctx, "restaurants/r1/menu_items", "m1")
	require.NoError(t, err)
	assert.Equal(t, 1, store.AsInt(doc["ratingCount"]))
}
