package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// sqliteStore keeps every document as a JSON blob in a single table with a
// per-row version, giving the sqlite/libsql backend the same merge and
// conflict semantics as the other adapters.
type sqliteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLite wraps an initialized sqlite/libsql database. The documents table
// is created by the goose migrations (see internal/database).
func NewSQLite(db *sql.DB) Store {
	return &sqliteStore{db: db}
}

func (s *sqliteStore) Get(ctx context.Context, key Key) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE collection = ? AND id = ?",
		key.Collection, key.ID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", key.Collection, key.ID, err)
	}
	return decodeDocument(raw)
}

func (s *sqliteStore) MultiGet(ctx context.Context, keys []Key) (map[Key]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return multiGetSQL(ctx, s.db, keys)
}

type rowQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func multiGetSQL(ctx context.Context, q rowQuerier, keys []Key) (map[Key]Document, error) {
	out := make(map[Key]Document, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		clauses = append(clauses, "(collection = ? AND id = ?)")
		args = append(args, key.Collection, key.ID)
	}
	rows, err := q.QueryContext(ctx,
		"SELECT collection, id, data FROM documents WHERE "+strings.Join(clauses, " OR "), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var key Key
		var raw string
		if err := rows.Scan(&key.Collection, &key.ID, &raw); err != nil {
			log.Error("Failed to scan document row", "error", err)
			continue
		}
		doc, err := decodeDocument(raw)
		if err != nil {
			log.Error("Failed to decode document", "error", err, "collection", key.Collection, "id", key.ID)
			continue
		}
		out[key] = doc
	}
	return out, rows.Err()
}

// sqliteTx stages writes until the Transact callback returns; reads after the
// first staged write are rejected to keep the two phases separate.
type sqliteTx struct {
	ctx      context.Context
	tx       *sql.Tx
	writes   []WriteOp
	writeSet bool
}

func (t *sqliteTx) MultiGet(keys []Key) (map[Key]Document, error) {
	if t.writeSet {
		return nil, ErrReadAfterWrite
	}
	return multiGetSQL(t.ctx, t.tx, keys)
}

func (t *sqliteTx) Write(op WriteOp) {
	t.writeSet = true
	t.writes = append(t.writes, op)
}

func (s *sqliteStore) Transact(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapSQLiteErr(err)
	}
	handle := &sqliteTx{ctx: ctx, tx: tx}
	if err := fn(handle); err != nil {
		tx.Rollback()
		return err
	}
	for _, op := range handle.writes {
		if err := applyWriteSQL(ctx, tx, op); err != nil {
			tx.Rollback()
			return mapSQLiteErr(err)
		}
	}
	return mapSQLiteErr(tx.Commit())
}

func (s *sqliteStore) BatchWrite(ctx context.Context, ops []WriteOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapSQLiteErr(err)
	}
	for _, op := range ops {
		if err := applyWriteSQL(ctx, tx, op); err != nil {
			tx.Rollback()
			return mapSQLiteErr(err)
		}
	}
	return mapSQLiteErr(tx.Commit())
}

func applyWriteSQL(ctx context.Context, tx *sql.Tx, op WriteOp) error {
	if op.Remove {
		_, err := tx.ExecContext(ctx,
			"DELETE FROM documents WHERE collection = ? AND id = ?",
			op.Key.Collection, op.Key.ID)
		return err
	}

	doc := op.Replace
	if doc == nil {
		var raw string
		var existing Document
		exists := true
		err := tx.QueryRowContext(ctx,
			"SELECT data FROM documents WHERE collection = ? AND id = ?",
			op.Key.Collection, op.Key.ID).Scan(&raw)
		switch {
		case err == sql.ErrNoRows:
			exists = false
		case err != nil:
			return err
		default:
			if existing, err = decodeDocument(raw); err != nil {
				return err
			}
		}
		doc = applyFields(existing, exists, op.Fields)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, version, updated_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			data = excluded.data,
			version = documents.version + 1,
			updated_at = excluded.updated_at;
	`, op.Key.Collection, op.Key.ID, string(data), time.Now().Unix())
	return err
}

func (s *sqliteStore) Query(ctx context.Context, q Query) (*Page, error) {
	if q.Descending && q.Cursor != "" {
		return nil, ErrDescendingCursor
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Field names in filters and ordering come from package constants, never
	// caller input, so interpolating them into json_extract paths is safe.
	sb := strings.Builder{}
	sb.WriteString("SELECT id, data FROM documents WHERE collection = ?")
	args := []any{q.Collection}

	for _, f := range q.Filters {
		sqlOp, ok := sqlFilterOps[f.Op]
		if !ok {
			return nil, fmt.Errorf("docstore: unsupported filter op %q", f.Op)
		}
		fmt.Fprintf(&sb, " AND json_extract(data, '$.%s') %s ?", f.Field, sqlOp)
		args = append(args, f.Value)
	}

	if q.Cursor != "" {
		cursorValue, cursorID, err := decodeCursor(q.Cursor)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&sb,
			" AND (json_extract(data, '$.%s') > ? OR (json_extract(data, '$.%s') = ? AND id > ?))",
			q.OrderBy, q.OrderBy)
		args = append(args, cursorValue, cursorValue, cursorID)
	}

	dir := "ASC"
	if q.Descending {
		dir = "DESC"
	}
	if q.OrderBy != "" {
		fmt.Fprintf(&sb, " ORDER BY json_extract(data, '$.%s') %s, id %s", q.OrderBy, dir, dir)
	} else {
		fmt.Fprintf(&sb, " ORDER BY id %s", dir)
	}
	if q.Limit > 0 {
		// One extra row decides whether a next page exists.
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit+1)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	page := &Page{}
	more := false
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			log.Error("Failed to scan document row", "error", err)
			continue
		}
		if q.Limit > 0 && len(page.Docs) >= q.Limit {
			more = true
			break
		}
		doc, err := decodeDocument(raw)
		if err != nil {
			log.Error("Failed to decode document", "error", err, "collection", q.Collection, "id", id)
			continue
		}
		page.Keys = append(page.Keys, Key{Collection: q.Collection, ID: id})
		page.Docs = append(page.Docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if more && len(page.Docs) > 0 && !q.Descending {
		last := page.Docs[len(page.Docs)-1]
		value, _ := last[q.OrderBy].(string)
		page.NextCursor = encodeCursor(value, page.Keys[len(page.Keys)-1].ID)
	}
	return page, nil
}

func (s *sqliteStore) Close(ctx context.Context) error {
	return s.db.Close()
}

var sqlFilterOps = map[string]string{
	OpEqual:        "=",
	OpGreaterEqual: ">=",
	OpLessEqual:    "<=",
}

func decodeDocument(raw string) (Document, error) {
	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// mapSQLiteErr translates sqlite write contention into the store-agnostic
// conflict error the engine retries on.
func mapSQLiteErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY") {
		return fmt.Errorf("%w: %s", ErrConflict, msg)
	}
	return err
}
