package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryCreateListDelete(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	first, err := s.Create(ctx, CollectionInventory, json.RawMessage(`{"name":"Wireless Mouse","stock":120}`))
	require.NoError(t, err)
	second, err := s.Create(ctx, CollectionInventory, json.RawMessage(`{"name":"Standing Desk","stock":5}`))
	require.NoError(t, err)

	docs, err := s.List(ctx, CollectionInventory)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, first, docs[0].ID)
	require.Equal(t, second, docs[1].ID)

	require.NoError(t, s.Delete(ctx, CollectionInventory, first))
	docs, err = s.List(ctx, CollectionInventory)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, second, docs[0].ID)

	require.ErrorIs(t, s.Delete(ctx, CollectionInventory, first), ErrNotFound)
}

func TestMemoryUpdateMergesTopLevel(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	id, err := s.Create(ctx, CollectionInventory, json.RawMessage(`{"name":"USB-C Hub","stock":250,"location":"R1B2T1"}`))
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, CollectionInventory, id, json.RawMessage(`{"stock":9,"status":"Low Stock"}`)))

	docs, err := s.List(ctx, CollectionInventory)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(docs[0].Data, &got))
	require.Equal(t, "USB-C Hub", got["name"])
	require.Equal(t, "R1B2T1", got["location"])
	require.Equal(t, float64(9), got["stock"])
	require.Equal(t, "Low Stock", got["status"])
}

func TestMemoryBatchUpdateAtomic(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	a, err := s.Create(ctx, CollectionPreOrders, json.RawMessage(`{"status":"Pending"}`))
	require.NoError(t, err)
	b, err := s.Create(ctx, CollectionPreOrders, json.RawMessage(`{"status":"Pending"}`))
	require.NoError(t, err)

	err = s.BatchUpdate(ctx, CollectionPreOrders, []string{a, b, "missing"}, json.RawMessage(`{"status":"Approved"}`))
	require.ErrorIs(t, err, ErrNotFound)

	docs, err := s.List(ctx, CollectionPreOrders)
	require.NoError(t, err)
	for _, doc := range docs {
		var got map[string]string
		require.NoError(t, json.Unmarshal(doc.Data, &got))
		require.Equal(t, "Pending", got["status"], "no document may change when the batch fails")
	}

	require.NoError(t, s.BatchUpdate(ctx, CollectionPreOrders, []string{a, b}, json.RawMessage(`{"status":"Approved"}`)))
	docs, err = s.List(ctx, CollectionPreOrders)
	require.NoError(t, err)
	for _, doc := range docs {
		var got map[string]string
		require.NoError(t, json.Unmarshal(doc.Data, &got))
		require.Equal(t, "Approved", got["status"])
	}
}

func TestMemoryQueryByField(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	_, err := s.Create(ctx, CollectionPreOrders, json.RawMessage(`{"orderId":"PO-001","company":"Alpha Corp"}`))
	require.NoError(t, err)
	_, err = s.Create(ctx, CollectionPreOrders, json.RawMessage(`{"orderId":"PO-002","company":"Beta LLC"}`))
	require.NoError(t, err)
	_, err = s.Create(ctx, CollectionPreOrders, json.RawMessage(`{"orderId":"PO-001","company":"Alpha Corp"}`))
	require.NoError(t, err)

	docs, err := s.QueryByField(ctx, CollectionPreOrders, "orderId", "PO-001")
	require.NoError(t, err)
	require.Len(t, docs, 2)

	docs, err = s.QueryByField(ctx, CollectionPreOrders, "orderId", "PO-009")
	require.NoError(t, err)
	require.Empty(t, docs)
}
