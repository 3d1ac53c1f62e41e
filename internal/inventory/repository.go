package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lumbung-erp/lumbung-erp/internal/store"
)

// Repository reads and writes items in the inventory collection.
type Repository struct {
	store store.Store
}

// NewRepository constructs Repository.
func NewRepository(st store.Store) *Repository {
	return &Repository{store: st}
}

// List returns every item in the collection.
func (r *Repository) List(ctx context.Context) ([]Item, error) {
	docs, err := r.store.List(ctx, store.CollectionInventory)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(docs))
	for _, doc := range docs {
		var item Item
		if err := json.Unmarshal(doc.Data, &item); err != nil {
			return nil, fmt.Errorf("inventory: decode item %s: %w", doc.ID, err)
		}
		item.ID = doc.ID
		items = append(items, item)
	}
	return items, nil
}

// Get returns one item by id. The store contract has no point lookup, so this
// scans the collection the same way the views do.
func (r *Repository) Get(ctx context.Context, id string) (Item, error) {
	items, err := r.List(ctx)
	if err != nil {
		return Item{}, err
	}
	for _, item := range items {
		if item.ID == id {
			return item, nil
		}
	}
	return Item{}, ErrNotFound
}

// Create persists a new item and returns its id.
func (r *Repository) Create(ctx context.Context, item Item) (string, error) {
	item.ID = ""
	data, err := json.Marshal(item)
	if err != nil {
		return "", fmt.Errorf("inventory: encode item: %w", err)
	}
	return r.store.Create(ctx, store.CollectionInventory, data)
}

// Update merges the given fields into the stored item.
func (r *Repository) Update(ctx context.Context, id string, fields map[string]any) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("inventory: encode patch: %w", err)
	}
	if err := r.store.Update(ctx, store.CollectionInventory, id, patch); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Delete permanently removes an item.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, store.CollectionInventory, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
