package docstore_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/kickerhub/kickerstats/internal/database"
	"github.com/kickerhub/kickerstats/internal/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a sqlite-backed store on a temporary in-memory
// database with the real migrations applied.
func setupTestStore(t *testing.T) docstore.Store {
	t.Helper()

	db, err := database.InitDB(":memory:", "", "")
	require.NoError(t, err)

	store := docstore.NewSQLite(db)
	t.Cleanup(func() { store.Close(context.Background()) })
	return store
}

func TestSQLiteGetAndPut(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	key := docstore.Key{Collection: "things", ID: "t1"}

	_, err := store.Get(ctx, key)
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	require.NoError(t, store.BatchWrite(ctx, []docstore.WriteOp{
		docstore.Put(key, docstore.Document{"name": "first", "count": int64(3)}),
	}))

	doc, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "first", doc["name"])
	// JSON decoding yields float64 for numbers.
	assert.EqualValues(t, 3, doc["count"])

	require.NoError(t, store.BatchWrite(ctx, []docstore.WriteOp{docstore.Delete(key)}))
	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestSQLiteFieldMerges(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	key := docstore.Key{Collection: "counters", ID: "c1"}

	require.NoError(t, store.BatchWrite(ctx, []docstore.WriteOp{
		docstore.Merge(key, map[string]docstore.FieldOp{
			"owner": docstore.SetOnInsert("p1"),
			"count": docstore.Inc(2),
			"best":  docstore.Max(4),
		}),
	}))
	require.NoError(t, store.BatchWrite(ctx, []docstore.WriteOp{
		docstore.Merge(key, map[string]docstore.FieldOp{
			"owner": docstore.SetOnInsert("p2"),
			"count": docstore.Inc(-1),
			"best":  docstore.Max(2),
		}),
	}))

	doc, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "p1", doc["owner"])
	assert.EqualValues(t, 1, doc["count"])
	assert.EqualValues(t, 4, doc["best"])
}

func TestSQLiteTransact(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	key := docstore.Key{Collection: "counters", ID: "c1"}

	t.Run("commits reads-then-writes", func(t *testing.T) {
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
		assert.EqualValues(t, 1, doc["count"])
	})

	t.Run("rejects a read after a staged write", func(t *testing.T) {
		err := store.Transact(ctx, func(tx docstore.Tx) error {
			tx.Write(docstore.Merge(key, map[string]docstore.FieldOp{"count": docstore.Inc(1)}))
			_, err := tx.MultiGet([]docstore.Key{key})
			return err
		})
		assert.ErrorIs(t, err, docstore.ErrReadAfterWrite)
	})

	t.Run("callback error rolls the transaction back", func(t *testing.T) {
		before, err := store.Get(ctx, key)
		require.NoError(t, err)

		wantErr := fmt.Errorf("boom")
		err = store.Transact(ctx, func(tx docstore.Tx) error {
			tx.Write(docstore.Merge(key, map[string]docstore.FieldOp{"count": docstore.Inc(100)}))
			return wantErr
		})
		assert.ErrorIs(t, err, wantErr)

		after, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, before["count"], after["count"])
	})
}

func TestSQLiteQuery(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	var ops []docstore.WriteOp
	for i := 1; i <= 5; i++ {
		ops = append(ops, docstore.Put(
			docstore.Key{Collection: "events", ID: fmt.Sprintf("e%d", i)},
			docstore.Document{"matchDate": fmt.Sprintf("2025-06-%02dT10:00:00Z", i)},
		))
	}
	require.NoError(t, store.BatchWrite(ctx, ops))

	t.Run("range filter", func(t *testing.T) {
		page, err := store.Query(ctx, docstore.Query{
			Collection: "events",
			Filters: []docstore.Filter{
				{Field: "matchDate", Op: docstore.OpGreaterEqual, Value: "2025-06-02T00:00:00Z"},
				{Field: "matchDate", Op: docstore.OpLessEqual, Value: "2025-06-04T23:59:59Z"},
			},
			OrderBy: "matchDate",
		})
		require.NoError(t, err)
		require.Len(t, page.Docs, 3)
		assert.Equal(t, "e2", page.Keys[0].ID)
		assert.Equal(t, "e4", page.Keys[2].ID)
	})

	t.Run("cursor pagination never skips or repeats", func(t *testing.T) {
		var got []string
		cursor := ""
		for {
			page, err := store.Query(ctx, docstore.Query{
				Collection: "events",
				OrderBy:    "matchDate",
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

	t.Run("descending", func(t *testing.T) {
		page, err := store.Query(ctx, docstore.Query{
			Collection: "events",
			OrderBy:    "matchDate",
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
			OrderBy:    "matchDate",
			Descending: true,
			Cursor:     "2025-06-03T00:00:00Z|e3",
		})
		assert.ErrorIs(t, err, docstore.ErrDescendingCursor)
	})
}
