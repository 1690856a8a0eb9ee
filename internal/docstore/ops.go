package docstore

import (
	"fmt"
	"strings"
)

type fieldOpKind int

const (
	opInc fieldOpKind = iota
	opSet
	opSetOnInsert
	opMax
)

// FieldOp is one blind merge operation on a single document field.
type FieldOp struct {
	kind  fieldOpKind
	delta int64
	value any
}

// Inc adds n to a numeric field, treating an absent field as 0.
func Inc(n int64) FieldOp { return FieldOp{kind: opInc, delta: n} }

// Set overwrites a field unconditionally.
func Set(v any) FieldOp { return FieldOp{kind: opSet, value: v} }

// SetOnInsert writes a field only when the document does not exist yet.
func SetOnInsert(v any) FieldOp { return FieldOp{kind: opSetOnInsert, value: v} }

// Max raises a numeric field to n when n is larger, treating absent as 0.
func Max(n int64) FieldOp { return FieldOp{kind: opMax, delta: n} }

// WriteOp is one staged write. Exactly one of Fields, Replace or Remove is
// used: Fields merges into the (possibly absent) document, Replace overwrites
// the whole document, Remove deletes it.
type WriteOp struct {
	Key     Key
	Fields  map[string]FieldOp
	Replace Document
	Remove  bool
}

// Merge builds a field-merge write.
func Merge(key Key, fields map[string]FieldOp) WriteOp {
	return WriteOp{Key: key, Fields: fields}
}

// Put builds a whole-document overwrite.
func Put(key Key, doc Document) WriteOp {
	return WriteOp{Key: key, Replace: doc}
}

// Delete builds a document removal.
func Delete(key Key) WriteOp {
	return WriteOp{Key: key, Remove: true}
}

// applyFields merges the field ops of a WriteOp into doc. exists reports
// whether the document was present before the write; doc may be nil.
func applyFields(doc Document, exists bool, fields map[string]FieldOp) Document {
	if doc == nil {
		doc = Document{}
	}
	for field, op := range fields {
		switch op.kind {
		case opInc:
			doc[field] = toInt64(doc[field]) + op.delta
		case opSet:
			doc[field] = op.value
		case opSetOnInsert:
			if !exists {
				doc[field] = op.value
			}
		case opMax:
			if cur := toInt64(doc[field]); op.delta > cur {
				doc[field] = op.delta
			}
		}
	}
	return doc
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

// compareValues orders two field values for query sorting. Numbers order
// numerically, strings lexically; mixed or unknown types compare as equal.
func compareValues(a, b any) int {
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs)
	}
	an, aNum := asFloat(a)
	bn, bNum := asFloat(b)
	if aNum && bNum {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	}
	return 0
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// matchesFilters reports whether doc satisfies every filter.
func matchesFilters(doc Document, filters []Filter) bool {
	for _, f := range filters {
		cmp := compareValues(doc[f.Field], f.Value)
		switch f.Op {
		case OpEqual:
			if cmp != 0 {
				return false
			}
		case OpGreaterEqual:
			if cmp < 0 {
				return false
			}
		case OpLessEqual:
			if cmp > 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Cursors encode the order value and id of the last document of a page. The
// separator cannot appear in RFC 3339 dates or uuids, the only order fields
// paged queries use.
const cursorSep = "|"

func encodeCursor(orderValue, id string) string {
	return orderValue + cursorSep + id
}

func decodeCursor(cursor string) (orderValue, id string, err error) {
	idx := strings.LastIndex(cursor, cursorSep)
	if idx < 0 {
		return "", "", fmt.Errorf("docstore: malformed cursor %q", cursor)
	}
	return cursor[:idx], cursor[idx+1:], nil
}

// afterCursor reports whether (value, id) sorts strictly after the cursor
// position in ascending order.
func afterCursor(value, id, cursorValue, cursorID string) bool {
	if value != cursorValue {
		return value > cursorValue
	}
	return id > cursorID
}
