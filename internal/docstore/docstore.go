// Package docstore defines the transactional key-document store contract the
// aggregation engine is written against: batched multi-reads, single-phase
// transactions with all reads before the first staged write, blind field
// merges, and cursor-paged queries.
package docstore

import (
	"context"
	"errors"
)

var (
	// ErrConflict reports a transaction that lost an optimistic-concurrency
	// race and can be retried with fresh reads.
	ErrConflict = errors.New("docstore: transaction conflict")
	// ErrNotFound reports a missing document on a single-document read.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrReadAfterWrite reports a transaction read issued after a write was
	// staged. The store forbids interleaving the two phases.
	ErrReadAfterWrite = errors.New("docstore: read issued after a staged write")
	// ErrDescendingCursor reports a cursor passed to a descending query.
	// Cursor positions encode the ascending sort only.
	ErrDescendingCursor = errors.New("docstore: cursor pagination requires ascending order")
)

// Key addresses one document.
type Key struct {
	Collection string
	ID         string
}

// Document is the decoded persisted state of one document.
type Document map[string]any

// Tx is the handle passed to a Transact callback. All reads must complete
// before the first Write; writes are staged and committed atomically when the
// callback returns nil.
type Tx interface {
	MultiGet(keys []Key) (map[Key]Document, error)
	Write(op WriteOp)
}

// Store is the capability contract of the underlying document store.
type Store interface {
	// Get reads one document, returning ErrNotFound when absent.
	Get(ctx context.Context, key Key) (Document, error)
	// MultiGet reads a batch of documents; absent keys are omitted from the
	// result map.
	MultiGet(ctx context.Context, keys []Key) (map[Key]Document, error)
	// Transact runs fn once against a transaction handle. It returns
	// ErrConflict when a concurrent modification invalidated the reads; the
	// caller owns the retry policy.
	Transact(ctx context.Context, fn func(tx Tx) error) error
	// BatchWrite applies a batch of writes atomically, outside any read set.
	BatchWrite(ctx context.Context, ops []WriteOp) error
	// Query returns one page of documents matching q.
	Query(ctx context.Context, q Query) (*Page, error)
	Close(ctx context.Context) error
}

// Filter ops supported by Query.
const (
	OpEqual        = "=="
	OpGreaterEqual = ">="
	OpLessEqual    = "<="
)

// Filter constrains one document field.
type Filter struct {
	Field string
	Op    string
	Value any
}

// Query describes a cursor-paged scan over one collection. OrderBy must name
// a string-valued field when Cursor is used; document ids break ties so a
// cursor never skips or repeats documents. Cursors resume the ascending sort
// only; a descending query with a cursor is rejected with ErrDescendingCursor.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
	Cursor     string
}

// Page is one window of query results.
type Page struct {
	Keys       []Key
	Docs       []Document
	NextCursor string
}
