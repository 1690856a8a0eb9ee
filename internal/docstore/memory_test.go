package docstore_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/kickerhub/kickerstats/internal/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetAndBatchWrite(t *testing.T) {
	store := docstore.NewMemory()
	ctx := context.Background()
	key := docstore.Key{Collection: "things", ID: "t1"}

	_, err := store.Get(ctx, key)
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	err = store.BatchWrite(ctx, []docstore.WriteOp{
		docstore.Put(key, docstore.Document{"name": "first", "count": int64(3)}),
	})
	require.NoError(t, err)

	doc, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "first", doc["name"])

	err = store.BatchWrite(ctx, []docstore.WriteOp{docstore.Delete(key)})
	require.NoError(t, err)
	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestMemoryMultiGetOmitsAbsent(t *testing.T) {
	store := docstore.NewMemory()
	ctx := context.Background()
	k1 := docstore.Key{Collection: "things", ID: "a"}
	k2 := docstore.Key{Collection: "things", ID: "b"}

	require.NoError(t, store.BatchWrite(ctx, []docstore.WriteOp{
		docstore.Put(k1, docstore.Document{"v": int64(1)}),
	}))

	docs, err := store.MultiGet(ctx, []docstore.Key{k1, k2})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Contains(t, docs, k1)
	assert.NotContains(t, docs, k2)
}

func TestMemoryFieldOps(t *testing.T) {
	store := docstore.NewMemory()
	ctx := context.Background()
	key := docstore.Key{Collection: "counters", ID: "c1"}

	t.Run("merge creates the document and honors SetOnInsert", func(t *testing.T) {
		err := store.BatchWrite(ctx, []docstore.WriteOp{
			docstore.Merge(key, map[string]docstore.FieldOp{
				"owner": docstore.SetOnInsert("p1"),
				"count": docstore.Inc(2),
			}),
		})
		require.NoError(t, err)

		doc, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "p1", doc["owner"])
		assert.Equal(t, int64(2), doc["count"])
	})

	t.Run("SetOnInsert is a no-op on an existing document", func(t *testing.T) {
		err := store.BatchWrite(ctx, []docstore.WriteOp{
			docstore.Merge(key, map[string]docstore.FieldOp{
				"owner": docstore.SetOnInsert("p2"),
				"count": docstore.Inc(-1),
			}),
		})
		require.NoError(t, err)

		doc, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "p1", doc["owner"])
		assert.Equal(t, int64(1), doc["count"])
	})

	t.Run("Max only raises", func(t *testing.T) {
		err := store.BatchWrite(ctx, []docstore.WriteOp{
			docstore.Merge(key, map[string]docstore.FieldOp{"best": docstore.Max(5)}),
		})
		require.NoError(t, err)
		err = store.BatchWrite(ctx, []docstore.WriteOp{
			docstore.Merge(key, map[string]docstore.FieldOp{"best": docstore.Max(3)}),
		})
		require.NoError(t, err)

		doc, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(5), doc["best"])
	})

	t.Run("Set overwrites", func(t *testing.T) {
		err := store.BatchWrite(ctx, []docstore.WriteOp{
			docstore.Merge(key, map[string]docstore.FieldOp{"owner": docstore.Set("p9")}),
		})
		require.NoError(t, err)

		doc, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "p9", doc["owner"])
	})
}

func TestMemoryTransact(t *testing.T) {
	ctx := context.Background()
	key := docstore.Key{Collection: "counters", ID: "c1"}

	t.Run("reads then writes commit atomically", func(t *testing.T) {
		store := docstore.NewMemory()
		err := store.Transact(ctx, func(tx docstore.Tx) error {
			docs, err := tx.MultiGet([]docstore.Key{key})
			if err != nil {
				return err
			}
			assert.Empty(t, docs)
			tx.Write(docstore.Put(key, docstore.Document{"count": int64(1)}))
			return nil
		})
		require.NoError(t, err)

		doc, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(1), doc["count"])
	})

	t.Run("read after a staged write is rejected", func(t *testing.T) {
		store := docstore.NewMemory()
		err := store.Transact(ctx, func(tx docstore.Tx) error {
			tx.Write(docstore.Put(key, docstore.Document{"count": int64(1)}))
			_, err := tx.MultiGet([]docstore.Key{key})
			return err
		})
		assert.ErrorIs(t, err, docstore.ErrReadAfterWrite)
	})

	t.Run("callback error discards staged writes", func(t *testing.T) {
		store := docstore.NewMemory()
		wantErr := fmt.Errorf("boom")
		err := store.Transact(ctx, func(tx docstore.Tx) error {
			tx.Write(docstore.Put(key, docstore.Document{"count": int64(1)}))
			return wantErr
		})
		assert.ErrorIs(t, err, wantErr)
		_, err = store.Get(ctx, key)
		assert.ErrorIs(t, err, docstore.ErrNotFound)
	})

	t.Run("concurrent modification of a read document conflicts", func(t *testing.T) {
		store := docstore.NewMemory()
		require.NoError(t, store.BatchWrite(ctx, []docstore.WriteOp{
			docstore.Put(key, docstore.Document{"count": int64(1)}),
		}))

		err := store.Transact(ctx, func(tx docstore.Tx) error {
			if _, err := tx.MultiGet([]docstore.Key{key}); err != nil {
				return err
			}
			// Sneak in a write between the read and the commit.
			require.NoError(t, store.BatchWrite(ctx, []docstore.WriteOp{
				docstore.Merge(key, map[string]docstore.FieldOp{"count": docstore.Inc(1)}),
			}))
			tx.Write(docstore.Merge(key, map[string]docstore.FieldOp{"count": docstore.Inc(10)}))
			return nil
		})
		assert.ErrorIs(t, err, docstore.ErrConflict)

		doc, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(2), doc["count"], "the losing transaction left no trace")
	})

	t.Run("creation of a document read as absent conflicts", func(t *testing.T) {
		store := docstore.NewMemory()
		err := store.Transact(ctx, func(tx docstore.Tx) error {
			if _, err := tx.MultiGet([]docstore.Key{key}); err != nil {
				return err
			}
			require.NoError(t, store.BatchWrite(ctx, []docstore.WriteOp{
				docstore.Put(key, docstore.Document{"count": int64(7)}),
			}))
			tx.Write(docstore.Put(key, docstore.Document{"count": int64(1)}))
			return nil
		})
		assert.ErrorIs(t, err, docstore.ErrConflict)
	})
}

func TestMemoryQuery(t *testing.T) {
	store := docstore.NewMemory()
	ctx := context.Background()

	var ops []docstore.WriteOp
	for i := 1; i <= 5; i++ {
		ops = append(ops, docstore.Put(
			docstore.Key{Collection: "events", ID: fmt.Sprintf("e%d", i)},
			docstore.Document{
				"date": fmt.Sprintf("2025-06-%02d", i),
				"kind": map[bool]string{true: "odd", false: "even"}[i%2 == 1],
			},
		))
	}
	ops = append(ops, docstore.Put(
		docstore.Key{Collection: "other", ID: "x"},
		docstore.Document{"date": "2025-06-01"},
	))
	require.NoError(t, store.BatchWrite(ctx, ops))

	t.Run("orders and scopes to the collection", func(t *testing.T) {
		page, err := store.Query(ctx, docstore.Query{
			Collection: "events",
			OrderBy:    "date",
		})
		require.NoError(t, err)
		require.Len(t, page.Docs, 5)
		assert.Equal(t, "e1", page.Keys[0].ID)
		assert.Equal(t, "e5", page.Keys[4].ID)
		assert.Empty(t, page.NextCursor)
	})

	t.Run("filters", func(t *testing.T) {
		page, err := store.Query(ctx, docstore.Query{
			Collection: "events",
			Filters: []docstore.Filter{
				{Field: "kind", Op: docstore.OpEqual, Value: "odd"},
				{Field: "date", Op: docstore.OpGreaterEqual, Value: "2025-06-02"},
			},
			OrderBy: "date",
		})
		require.NoError(t, err)
		require.Len(t, page.Docs, 2)
		assert.Equal(t, "e3", page.Keys[0].ID)
		assert.Equal(t, "e5", page.Keys[1].ID)
	})

	t.Run("paginates with a cursor", func(t *testing.T) {
		var got []string
		cursor := ""
		for {
			page, err := store.Query(ctx, docstore.Query{
				Collection: "events",
				OrderBy:    "date",
				Limit:      2,
				Cursor:     cursor,
			})
			require.NoError(t, err)
			for _, key := range page.Keys {
				got = append(got, key.ID)
			}
			if page.NextCursor == "" {
				break
			}
			cursor = page.NextCursor
		}
		assert.Equal(t, []string{"e1", "e2", "e3", "e4", "e5"}, got)
	})

	t.Run("descending order", func(t *testing.T) {
		page, err := store.Query(ctx, docstore.Query{
			Collection: "events",
			OrderBy:    "date",
			Descending: true,
			Limit:      1,
		})
		require.NoError(t, err)
		require.Len(t, page.Docs, 1)
		assert.Equal(t, "e5", page.Keys[0].ID)
		assert.Empty(t, page.NextCursor, "descending pages are not resumable")
	})

	t.Run("rejects a cursor on a descending query", func(t *testing.T) {
		_, err := store.Query(ctx, docstore.Query{
			Collection: "events",
			OrderBy:    "date",
			Descending: true,
			Cursor:     "2025-06-03|e3",
		})
		assert.ErrorIs(t, err, docstore.ErrDescendingCursor)
	})
}
