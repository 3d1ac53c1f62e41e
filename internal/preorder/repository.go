package preorder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lumbung-erp/lumbung-erp/internal/store"
)

// Repository reads and writes pre-order records.
type Repository struct {
	store store.Store
}

// NewRepository constructs Repository.
func NewRepository(st store.Store) *Repository {
	return &Repository{store: st}
}

// List returns every pre-order in the collection.
func (r *Repository) List(ctx context.Context) ([]PreOrder, error) {
	docs, err := r.store.List(ctx, store.CollectionPreOrders)
	if err != nil {
		return nil, err
	}
	return decodeDocuments(docs)
}

// Get returns one pre-order by record id.
func (r *Repository) Get(ctx context.Context, id string) (PreOrder, error) {
	orders, err := r.List(ctx)
	if err != nil {
		return PreOrder{}, err
	}
	for _, order := range orders {
		if order.ID == id {
			return order, nil
		}
	}
	return PreOrder{}, ErrNotFound
}

// ListByOrderID returns the members of one order group.
func (r *Repository) ListByOrderID(ctx context.Context, orderID string) ([]PreOrder, error) {
	docs, err := r.store.QueryByField(ctx, store.CollectionPreOrders, "orderId", orderID)
	if err != nil {
		return nil, err
	}
	return decodeDocuments(docs)
}

// Create persists a new pre-order and returns its record id.
func (r *Repository) Create(ctx context.Context, order PreOrder) (string, error) {
	order.ID = ""
	data, err := json.Marshal(order)
	if err != nil {
		return "", fmt.Errorf("preorder: encode record: %w", err)
	}
	return r.store.Create(ctx, store.CollectionPreOrders, data)
}

// BatchUpdateStatus moves every named record to the given status in one
// atomic store operation.
func (r *Repository) BatchUpdateStatus(ctx context.Context, ids []string, status Status) error {
	patch, err := json.Marshal(map[string]any{"status": status})
	if err != nil {
		return fmt.Errorf("preorder: encode patch: %w", err)
	}
	if err := r.store.BatchUpdate(ctx, store.CollectionPreOrders, ids, patch); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func decodeDocuments(docs []store.Document) ([]PreOrder, error) {
	orders := make([]PreOrder, 0, len(docs))
	for _, doc := range docs {
		var order PreOrder
		if err := json.Unmarshal(doc.Data, &order); err != nil {
			return nil, fmt.Errorf("preorder: decode record %s: %w", doc.ID, err)
		}
		order.ID = doc.ID
		orders = append(orders, order)
	}
	return orders, nil
}
