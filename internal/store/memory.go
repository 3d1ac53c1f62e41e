package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Store with the same semantics as Postgres,
// including all-or-nothing BatchUpdate. Used by tests and the seed tool.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	order []string
	docs  map[string]json.RawMessage
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]*memoryCollection)}
}

func (s *Memory) collection(name string) *memoryCollection {
	col, ok := s.collections[name]
	if !ok {
		col = &memoryCollection{docs: make(map[string]json.RawMessage)}
		s.collections[name] = col
	}
	return col
}

// List returns every document in insertion order.
func (s *Memory) List(_ context.Context, collection string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[collection]
	if !ok {
		return nil, nil
	}
	docs := make([]Document, 0, len(col.order))
	for _, id := range col.order {
		docs = append(docs, Document{ID: id, Data: clone(col.docs[id])})
	}
	return docs, nil
}

// Create inserts a new document and returns its generated id.
func (s *Memory) Create(_ context.Context, collection string, data json.RawMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	col := s.collection(collection)
	col.docs[id] = clone(data)
	col.order = append(col.order, id)
	return id, nil
}

// Update merges the patch into an existing document.
func (s *Memory) Update(_ context.Context, collection, id string, patch json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[collection]
	if !ok {
		return ErrNotFound
	}
	current, ok := col.docs[id]
	if !ok {
		return ErrNotFound
	}
	merged, err := mergePatch(current, patch)
	if err != nil {
		return err
	}
	col.docs[id] = merged
	return nil
}

// Delete permanently removes a document.
func (s *Memory) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[collection]
	if !ok {
		return ErrNotFound
	}
	if _, ok := col.docs[id]; !ok {
		return ErrNotFound
	}
	delete(col.docs, id)
	for i, existing := range col.order {
		if existing == id {
			col.order = append(col.order[:i], col.order[i+1:]...)
			break
		}
	}
	return nil
}

// BatchUpdate applies the patch to every named document or to none of them.
func (s *Memory) BatchUpdate(_ context.Context, collection string, ids []string, patch json.RawMessage) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[collection]
	if !ok {
		return ErrNotFound
	}
	merged := make(map[string]json.RawMessage, len(ids))
	for _, id := range ids {
		current, ok := col.docs[id]
		if !ok {
			return ErrNotFound
		}
		next, err := mergePatch(current, patch)
		if err != nil {
			return err
		}
		merged[id] = next
	}
	for id, data := range merged {
		col.docs[id] = data
	}
	return nil
}

// QueryByField returns documents whose top-level field equals value.
func (s *Memory) QueryByField(_ context.Context, collection, field, value string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[collection]
	if !ok {
		return nil, nil
	}
	var docs []Document
	for _, id := range col.order {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(col.docs[id], &fields); err != nil {
			return nil, fmt.Errorf("store: decode %s/%s: %w", collection, id, err)
		}
		raw, ok := fields[field]
		if !ok {
			continue
		}
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			continue
		}
		if str == value {
			docs = append(docs, Document{ID: id, Data: clone(col.docs[id])})
		}
	}
	return docs, nil
}

func mergePatch(current, patch json.RawMessage) (json.RawMessage, error) {
	var base map[string]json.RawMessage
	if err := json.Unmarshal(current, &base); err != nil {
		return nil, fmt.Errorf("store: merge: %w", err)
	}
	var delta map[string]json.RawMessage
	if err := json.Unmarshal(patch, &delta); err != nil {
		return nil, fmt.Errorf("store: merge patch: %w", err)
	}
	for key, value := range delta {
		base[key] = value
	}
	return json.Marshal(base)
}

func clone(data json.RawMessage) json.RawMessage {
	out := make(json.RawMessage, len(data))
	copy(out, data)
	return out
}
