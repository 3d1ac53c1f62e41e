// Package store implements the schema-on-read record store backing the
// application's collections. Records are opaque JSON documents; collections
// are logical namespaces, not typed tables.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

// Collection names persisted by the application.
const (
	CollectionInventory    = "inventory"
	CollectionTransactions = "transactions"
	CollectionPreOrders    = "pre-orders"
)

// Document is a raw record held in a collection.
type Document struct {
	ID   string
	Data json.RawMessage
}

// ErrNotFound indicates a missing document id.
var ErrNotFound = errors.New("store: document not found")

// Store is the record-store contract consumed by the domain services.
// BatchUpdate is atomic: either every named document receives the patch or
// none does. Update and BatchUpdate merge the patch into the stored document
// at the top level; they never replace the whole record.
type Store interface {
	List(ctx context.Context, collection string) ([]Document, error)
	Create(ctx context.Context, collection string, data json.RawMessage) (string, error)
	Update(ctx context.Context, collection, id string, patch json.RawMessage) error
	Delete(ctx context.Context, collection, id string) error
	BatchUpdate(ctx context.Context, collection string, ids []string, patch json.RawMessage) error
	QueryByField(ctx context.Context, collection, field, value string) ([]Document, error)
}
