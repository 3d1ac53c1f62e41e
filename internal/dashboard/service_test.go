package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/lumbung-erp/lumbung-erp/internal/inventory"
	"github.com/lumbung-erp/lumbung-erp/internal/movement"
	"github.com/lumbung-erp/lumbung-erp/internal/preorder"
	"github.com/lumbung-erp/lumbung-erp/internal/store"
)

type fixture struct {
	dashboard *Service
	items     *inventory.Service
	orders    *preorder.Service
	movements *movement.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	st := store.NewMemory()
	items := inventory.NewService(inventory.NewRepository(st), nil, nil)
	orders := preorder.NewService(preorder.NewRepository(st), items, nil, nil, nil)
	movements := movement.NewService(movement.NewRepository(st), items, nil, nil, nil)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	dash := NewService(items, orders, movements, client, time.Minute, nil)
	return fixture{dashboard: dash, items: items, orders: orders, movements: movements}
}

func TestSummaryAggregates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.items.Create(ctx, inventory.CreateInput{Name: "Wireless Mouse", Stock: 120, Location: "R1B1T1"})
	require.NoError(t, err)
	_, err = f.items.Create(ctx, inventory.CreateInput{Name: "USB-C Hub", Stock: 8, Location: "R1B2T1"})
	require.NoError(t, err)
	_, err = f.items.Create(ctx, inventory.CreateInput{Name: "HDMI Cable", Stock: 0, Location: "R1B1T1"})
	require.NoError(t, err)

	order, err := f.orders.Create(ctx, preorder.CreateInput{Company: "PT Maju Jaya", ItemID: a.ID, Quantity: 2, Location: preorder.LocationJakarta})
	require.NoError(t, err)
	require.NoError(t, f.orders.SubmitForApproval(ctx, []string{order.ID}, "Admin"))
	// still awaiting approval, must not count as pending
	_, err = f.orders.Create(ctx, preorder.CreateInput{Company: "CV Sentosa", ItemID: a.ID, Quantity: 1, Location: preorder.LocationSurabaya})
	require.NoError(t, err)

	summary, err := f.dashboard.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 128, summary.TotalStock)
	require.Equal(t, 2, summary.LowStockItems, "zero stock counts as low by the raw threshold")
	require.Equal(t, 1, summary.PendingPreOrders)
	require.Equal(t, map[string]int{"R1B1T1": 120, "R1B2T1": 8}, summary.StockByLocation)
}

func TestSummaryRecentTransactionsCapped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.items.Create(ctx, inventory.CreateInput{Name: "Wireless Mouse", Stock: 10, Location: "R1B1T1"})
	require.NoError(t, err)
	for i := 0; i < 7; i++ {
		_, err := f.movements.StockIn(ctx, movement.StockInInput{ItemID: item.ID, Quantity: 1, Supplier: "TechSupplies Inc.", User: "Admin"})
		require.NoError(t, err)
	}

	summary, err := f.dashboard.Summary(ctx)
	require.NoError(t, err)
	require.Len(t, summary.RecentTransactions, 5)
}

func TestSummaryCacheHitMatchesRebuild(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.items.Create(ctx, inventory.CreateInput{Name: "Wireless Mouse", Stock: 25, Location: "R1B1T1"})
	require.NoError(t, err)

	first, err := f.dashboard.Summary(ctx)
	require.NoError(t, err)
	second, err := f.dashboard.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, first, second, "cache hit and rebuild paths agree")
}

func TestSummaryRecomputedAfterInvalidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.items.Create(ctx, inventory.CreateInput{Name: "Wireless Mouse", Stock: 25, Location: "R1B1T1"})
	require.NoError(t, err)

	before, err := f.dashboard.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 25, before.TotalStock)

	_, err = f.items.AdjustStock(ctx, item.ID, 5)
	require.NoError(t, err)

	// cached value still served until invalidated
	stale, err := f.dashboard.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 25, stale.TotalStock)

	require.NoError(t, f.dashboard.Invalidate(ctx))
	fresh, err := f.dashboard.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 30, fresh.TotalStock)
}
