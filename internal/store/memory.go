package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryGateway is an in-memory implementation of Gateway backed by nested
// maps. It is used by tests and by local runs without a database.
type MemoryGateway struct {
	mu   sync.RWMutex
	docs map[string]map[string]Document // path -> id -> document
}

// NewMemoryGateway creates a new instance of MemoryGateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		docs: make(map[string]map[string]Document),
	}
}

func (g *MemoryGateway) Get(ctx context.Context, path, id string) (Document, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	doc, ok := g.docs[path][id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDocument(doc), nil
}

func (g *MemoryGateway) Set(ctx context.Context, path, id string, doc Document) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.collection(path)[id] = cloneDocument(doc)
	return nil
}

func (g *MemoryGateway) Add(ctx context.Context, path string, doc Document) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := uuid.New().String()
	g.collection(path)[id] = cloneDocument(doc)
	return id, nil
}

func (g *MemoryGateway) Update(ctx context.Context, path, id string, fields Document) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	doc, ok := g.docs[path][id]
	if !ok {
		return ErrNotFound
	}
	mergeFields(doc, fields)
	return nil
}

func (g *MemoryGateway) Delete(ctx context.Context, path, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.docs[path], id)
	return nil
}

func (g *MemoryGateway) Query(ctx context.Context, path string, filters []Filter) ([]Document, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var result []Document
	for _, doc := range g.docs[path] {
		if matchesFilters(doc, filters) {
			result = append(result, cloneDocument(doc))
		}
	}
	return result, nil
}

func (g *MemoryGateway) RunTransaction(ctx context.Context, path, id string, fn func(doc Document) (Document, error)) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	current, ok := g.docs[path][id]
	if !ok {
		current = Document{}
	}
	updated, err := fn(cloneDocument(current))
	if err != nil {
		return err
	}
	doc := g.collection(path)[id]
	if doc == nil {
		doc = Document{}
		g.docs[path][id] = doc
	}
	mergeFields(doc, updated)
	return nil
}

// collection returns the id map for path, creating it if needed. Callers must
// hold the write lock.
func (g *MemoryGateway) collection(path string) map[string]Document {
	coll, ok := g.docs[path]
	if !ok {
		coll = make(map[string]Document)
		g.docs[path] = coll
	}
	return coll
}

func matchesFilters(doc Document, filters []Filter) bool {
	for _, f := range filters {
		if doc[f.Field] != f.Value {
			return false
		}
	}
	return true
}

func mergeFields(doc, fields Document) {
	for k, v := range fields {
		if v == nil {
			delete(doc, k)
			continue
		}
		doc[k] = v
	}
}

func cloneDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case Document:
		return cloneDocument(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}
