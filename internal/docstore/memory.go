package docstore

import (
	"context"
	"sort"
	"sync"
)

// memoryStore is an in-process Store with per-document versions and
// optimistic-concurrency transactions. It backs tests and the memory backend.
type memoryStore struct {
	mu   sync.Mutex
	docs map[Key]*memoryDoc
}

type memoryDoc struct {
	data    Document
	version uint64
}

// NewMemory creates an empty in-memory store.
func NewMemory() Store {
	return &memoryStore{docs: make(map[Key]*memoryDoc)}
}

func (s *memoryStore) Get(ctx context.Context, key Key) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDocument(entry.data), nil
}

func (s *memoryStore) MultiGet(ctx context.Context, keys []Key) (map[Key]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Key]Document, len(keys))
	for _, key := range keys {
		if entry, ok := s.docs[key]; ok {
			out[key] = copyDocument(entry.data)
		}
	}
	return out, nil
}

// memoryTx records the versions it read so commit can detect concurrent
// modifications, and stages writes until the callback returns.
type memoryTx struct {
	store    *memoryStore
	reads    map[Key]uint64
	writes   []WriteOp
	writeSet bool
}

func (tx *memoryTx) MultiGet(keys []Key) (map[Key]Document, error) {
	if tx.writeSet {
		return nil, ErrReadAfterWrite
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	out := make(map[Key]Document, len(keys))
	for _, key := range keys {
		if entry, ok := tx.store.docs[key]; ok {
			out[key] = copyDocument(entry.data)
			tx.reads[key] = entry.version
		} else {
			tx.reads[key] = 0
		}
	}
	return out, nil
}

func (tx *memoryTx) Write(op WriteOp) {
	tx.writeSet = true
	tx.writes = append(tx.writes, op)
}

func (s *memoryStore) Transact(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memoryTx{store: s, reads: make(map[Key]uint64)}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, version := range tx.reads {
		current := uint64(0)
		if entry, ok := s.docs[key]; ok {
			current = entry.version
		}
		if current != version {
			return ErrConflict
		}
	}
	for _, op := range tx.writes {
		s.applyLocked(op)
	}
	return nil
}

func (s *memoryStore) BatchWrite(ctx context.Context, ops []WriteOp) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range ops {
		s.applyLocked(op)
	}
	return nil
}

func (s *memoryStore) applyLocked(op WriteOp) {
	switch {
	case op.Remove:
		delete(s.docs, op.Key)
	case op.Replace != nil:
		s.docs[op.Key] = &memoryDoc{data: copyDocument(op.Replace), version: s.nextVersion(op.Key)}
	default:
		entry, exists := s.docs[op.Key]
		var data Document
		if exists {
			data = entry.data
		}
		merged := applyFields(data, exists, op.Fields)
		s.docs[op.Key] = &memoryDoc{data: merged, version: s.nextVersion(op.Key)}
	}
}

func (s *memoryStore) nextVersion(key Key) uint64 {
	if entry, ok := s.docs[key]; ok {
		return entry.version + 1
	}
	return 1
}

func (s *memoryStore) Query(ctx context.Context, q Query) (*Page, error) {
	if q.Descending && q.Cursor != "" {
		return nil, ErrDescendingCursor
	}
	s.mu.Lock()
	type row struct {
		key Key
		doc Document
	}
	var rows []row
	for key, entry := range s.docs {
		if key.Collection != q.Collection {
			continue
		}
		if !matchesFilters(entry.data, q.Filters) {
			continue
		}
		rows = append(rows, row{key: key, doc: copyDocument(entry.data)})
	}
	s.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool {
		if q.OrderBy != "" {
			if cmp := compareValues(rows[i].doc[q.OrderBy], rows[j].doc[q.OrderBy]); cmp != 0 {
				if q.Descending {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		if q.Descending {
			return rows[i].key.ID > rows[j].key.ID
		}
		return rows[i].key.ID < rows[j].key.ID
	})

	if q.Cursor != "" {
		cursorValue, cursorID, err := decodeCursor(q.Cursor)
		if err != nil {
			return nil, err
		}
		filtered := rows[:0]
		for _, r := range rows {
			value, _ := r.doc[q.OrderBy].(string)
			if afterCursor(value, r.key.ID, cursorValue, cursorID) {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}

	page := &Page{}
	for _, r := range rows {
		if q.Limit > 0 && len(page.Docs) >= q.Limit {
			break
		}
		page.Keys = append(page.Keys, r.key)
		page.Docs = append(page.Docs, r.doc)
	}
	if q.Limit > 0 && len(rows) > q.Limit && !q.Descending {
		last := page.Docs[len(page.Docs)-1]
		value, _ := last[q.OrderBy].(string)
		page.NextCursor = encodeCursor(value, page.Keys[len(page.Keys)-1].ID)
	}
	return page, nil
}

func (s *memoryStore) Close(ctx context.Context) error {
	return nil
}

func copyDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		if nested, ok := v.([]any); ok {
			items := make([]any, len(nested))
			copy(items, nested)
			out[k] = items
			continue
		}
		out[k] = v
	}
	return out
}
