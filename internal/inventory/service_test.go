package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumbung-erp/lumbung-erp/internal/store"
)

func newTestService() *Service {
	return NewService(NewRepository(store.NewMemory()), nil, nil)
}

func TestCreateDerivesStatus(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	item, err := svc.Create(ctx, CreateInput{Name: "Mechanical Keyboard", Stock: 8, Location: "R1B1T2"})
	require.NoError(t, err)
	require.NotEmpty(t, item.ID)
	require.Equal(t, StatusLowStock, item.Status)
	require.Equal(t, PlaceholderImageURL, item.ImageURL)

	item, err = svc.Create(ctx, CreateInput{Name: "Ergonomic Office Chair", Stock: 0, Location: "R1B1T4"})
	require.NoError(t, err)
	require.Equal(t, StatusOutOfStock, item.Status)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "", Stock: 1, Location: "R1B1T1"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, CreateInput{Name: "Hub", Stock: -1, Location: "R1B1T1"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, CreateInput{Name: "Hub", Stock: 1, Location: "R1B1T1", ImageURL: "not-a-url"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdateRederivesStatus(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	item, err := svc.Create(ctx, CreateInput{Name: "Wireless Mouse", Stock: 120, Location: "R1B1T1"})
	require.NoError(t, err)
	require.Equal(t, StatusInStock, item.Status)

	updated, err := svc.Update(ctx, item.ID, UpdateInput{Name: "Wireless Mouse", Stock: 0, Location: "R1B1T1"})
	require.NoError(t, err)
	require.Equal(t, StatusOutOfStock, updated.Status)

	_, err = svc.Update(ctx, "missing", UpdateInput{Name: "X", Stock: 1, Location: "R1B1T1"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAdjustStock(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	item, err := svc.Create(ctx, CreateInput{Name: "USB-C Hub", Stock: 12, Location: "R1B2T1"})
	require.NoError(t, err)

	adjusted, err := svc.AdjustStock(ctx, item.ID, -3)
	require.NoError(t, err)
	require.Equal(t, 9, adjusted.Stock)
	require.Equal(t, StatusLowStock, adjusted.Status)

	_, err = svc.AdjustStock(ctx, item.ID, -10)
	require.ErrorIs(t, err, ErrInsufficientStock)

	// the failed adjustment must not have touched the record
	current, err := svc.Get(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, 9, current.Stock)
}

func TestDeleteIsPermanent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	item, err := svc.Create(ctx, CreateInput{Name: "Standing Desk", Stock: 5, Location: "R1B2T2"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, item.ID, "Admin"))
	_, err = svc.Get(ctx, item.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, item.ID, "Admin"), ErrNotFound)
}
