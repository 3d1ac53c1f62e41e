package movement

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lumbung-erp/lumbung-erp/internal/store"
)

// Repository appends and reads the transactions collection. Records are never
// updated or deleted; the collection is the audit trail.
type Repository struct {
	store store.Store
}

// NewRepository constructs Repository.
func NewRepository(st store.Store) *Repository {
	return &Repository{store: st}
}

// List returns every transaction.
func (r *Repository) List(ctx context.Context) ([]Transaction, error) {
	docs, err := r.store.List(ctx, store.CollectionTransactions)
	if err != nil {
		return nil, err
	}
	txs := make([]Transaction, 0, len(docs))
	for _, doc := range docs {
		var tx Transaction
		if err := json.Unmarshal(doc.Data, &tx); err != nil {
			return nil, fmt.Errorf("movement: decode transaction %s: %w", doc.ID, err)
		}
		tx.ID = doc.ID
		txs = append(txs, tx)
	}
	return txs, nil
}

// Create appends a transaction and returns its id.
func (r *Repository) Create(ctx context.Context, tx Transaction) (string, error) {
	tx.ID = ""
	data, err := json.Marshal(tx)
	if err != nil {
		return "", fmt.Errorf("movement: encode transaction: %w", err)
	}
	return r.store.Create(ctx, store.CollectionTransactions, data)
}
