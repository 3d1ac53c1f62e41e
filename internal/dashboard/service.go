package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/lumbung-erp/lumbung-erp/internal/inventory"
	"github.com/lumbung-erp/lumbung-erp/internal/movement"
	"github.com/lumbung-erp/lumbung-erp/internal/preorder"
)

const (
	summaryKey  = "dashboard:summary"
	recentLimit = 5
)

// ItemPort lists inventory items.
type ItemPort interface {
	List(ctx context.Context) ([]inventory.Item, error)
}

// PreOrderPort lists pre-orders.
type PreOrderPort interface {
	List(ctx context.Context, location string) ([]preorder.PreOrder, error)
}

// MovementPort returns the newest transactions.
type MovementPort interface {
	Recent(ctx context.Context, n int) ([]movement.Transaction, error)
}

// Summary is the aggregate the dashboard page renders.
type Summary struct {
	TotalStock         int                    `json:"totalStock"`
	PendingPreOrders   int                    `json:"pendingPreOrders"`
	LowStockItems      int                    `json:"lowStockItems"`
	StockByLocation    map[string]int         `json:"stockByLocation"`
	RecentTransactions []movement.Transaction `json:"recentTransactions"`
}

// Service aggregates the dashboard summary over the three collections and
// caches the result in redis. Concurrent rebuilds collapse through
// singleflight.
type Service struct {
	items     ItemPort
	orders    PreOrderPort
	movements MovementPort
	cache     *redis.Client
	ttl       time.Duration
	logger    *slog.Logger
	group     singleflight.Group
}

// NewService builds Service. A nil redis client disables caching.
func NewService(items ItemPort, orders PreOrderPort, movements MovementPort, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{items: items, orders: orders, movements: movements, cache: cache, ttl: ttl, logger: logger}
}

// Summary returns the cached summary, rebuilding it from the store on a miss.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	if s.cache != nil {
		payload, err := s.cache.Get(ctx, summaryKey).Bytes()
		if err == nil {
			var cached Summary
			if err := json.Unmarshal(payload, &cached); err == nil {
				return cached, nil
			}
			// corrupt entry, fall through to rebuild
		} else if !errors.Is(err, redis.Nil) {
			s.warn(ctx, "dashboard cache read", err)
		}
	}
	value, err, _ := s.group.Do(summaryKey, func() (any, error) {
		summary, err := s.build(ctx)
		if err != nil {
			return Summary{}, err
		}
		if s.cache != nil {
			raw, err := json.Marshal(summary)
			if err == nil {
				if err := s.cache.Set(ctx, summaryKey, raw, s.ttl).Err(); err != nil {
					s.warn(ctx, "dashboard cache write", err)
				}
			}
		}
		return summary, nil
	})
	if err != nil {
		return Summary{}, err
	}
	return value.(Summary), nil
}

// Invalidate drops the cached summary. Mutation paths call this so the next
// read recomputes.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Del(ctx, summaryKey).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func (s *Service) build(ctx context.Context) (Summary, error) {
	items, err := s.items.List(ctx)
	if err != nil {
		return Summary{}, err
	}
	orders, err := s.orders.List(ctx, "")
	if err != nil {
		return Summary{}, err
	}
	recent, err := s.movements.Recent(ctx, recentLimit)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		StockByLocation:    make(map[string]int),
		RecentTransactions: recent,
	}
	for _, item := range items {
		summary.TotalStock += item.Stock
		// raw threshold comparison, a stock of zero counts as low too
		if item.Stock < inventory.LowStockThreshold {
			summary.LowStockItems++
		}
		summary.StockByLocation[item.Location] += item.Stock
	}
	for _, order := range orders {
		if order.Status == preorder.StatusPending {
			summary.PendingPreOrders++
		}
	}
	return summary, nil
}

func (s *Service) warn(ctx context.Context, msg string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.WarnContext(ctx, msg, slog.Any("error", err))
}
