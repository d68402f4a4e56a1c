package store

import (
	"context"
	"errors"
)

// Document is the wire shape of everything the gateway reads and writes.
// Field names inside a Document are a persisted contract shared with other
// consumers of the database, so callers must not rename keys casually.
type Document = map[string]any

var (
	// ErrNotFound is returned by Get when no document exists at the given path/id.
	ErrNotFound = errors.New("document not found")
	// ErrPermissionDenied is returned when the backing store rejects an
	// operation because of access rules.
	ErrPermissionDenied = errors.New("permission denied")
)

// Filter is an equality predicate for Query.
type Filter struct {
	Field string
	Value any
}

// Eq builds an equality filter.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// Gateway abstracts the remote document database. Paths are slash-joined
// collection/subcollection paths, e.g. "users/u1/cart" or "orders/ORD_123/order_items".
type Gateway interface {
	// Get returns the document at path/id, or ErrNotFound.
	Get(ctx context.Context, path, id string) (Document, error)
	// Set writes the full document keyed by id, overwriting any existing one.
	Set(ctx context.Context, path, id string, doc Document) error
	// Add writes a document under a store-generated id and returns that id.
	Add(ctx context.Context, path string, doc Document) (string, error)
	// Update merges the given fields into an existing document. A nil field
	// value clears that field.
	Update(ctx context.Context, path, id string, fields Document) error
	// Delete removes the document at path/id. Deleting an absent document is
	// not an error.
	Delete(ctx context.Context, path, id string) error
	// Query returns every document under path matching all filters.
	Query(ctx context.Context, path string, filters []Filter) ([]Document, error)
	// RunTransaction executes a read-modify-write cycle on a single document.
	// fn receives the current document (empty if absent) and returns the
	// fields to merge back; the read and write commit atomically.
	RunTransaction(ctx context.Context, path, id string, fn func(doc Document) (Document, error)) error
}

// AsString coerces a document value to string, returning "" for nil or
// non-string values.
func AsString(v any) string {
	s, _ := v.(string)
	return s
}

// AsFloat coerces a document value to float64. Numeric values round-trip
// through the store as different widths depending on the backend.
func AsFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

// AsInt coerces a document value to int.
func AsInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// AsBool coerces a document value to bool.
func AsBool(v any) bool {
	b, _ := v.(bool)
	return b
}
