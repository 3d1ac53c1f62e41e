package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/lumbung-erp/lumbung-erp/internal/inventory"
	"github.com/lumbung-erp/lumbung-erp/internal/observability"
	"github.com/lumbung-erp/lumbung-erp/internal/preorder"
	"github.com/lumbung-erp/lumbung-erp/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeLowStockScan triggers the daily low-stock scan.
	TaskTypeLowStockScan = "stock:low_scan"
	// TaskTypePreOrderReminder reports order groups waiting too long for a
	// decision.
	TaskTypePreOrderReminder = "preorder:reminder"
	// TaskTypeTokenCleanup purges expired idempotency tokens.
	TaskTypeTokenCleanup = "maintenance:token_cleanup"
)

// LowStockScanPayload carries scheduling metadata.
type LowStockScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLowStockScanTask constructs an Asynq task for the low-stock scan.
func NewLowStockScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeLowStockScan, body, asynq.Queue(QueueDefault)), nil
}

// ItemLister lists inventory items for the scan. Read-only: the scan never
// mutates domain state.
type ItemLister interface {
	List(ctx context.Context) ([]inventory.Item, error)
}

// AuditPort records scan results.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// NewLowStockScanHandler builds the asynq handler for TaskTypeLowStockScan.
func NewLowStockScanHandler(items ItemLister, audit AuditPort, metrics *observability.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload LowStockScanPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		all, err := items.List(ctx)
		if err != nil {
			return err
		}
		low := 0
		for _, item := range all {
			if item.Stock >= inventory.LowStockThreshold {
				continue
			}
			low++
			logger.WarnContext(ctx, "stok rendah",
				slog.String("item", item.Name),
				slog.String("location", item.Location),
				slog.Int("stock", item.Stock))
		}
		metrics.SetLowStockItems(low)
		if audit != nil {
			scanAt := payload.ScheduledFor
			if scanAt.IsZero() {
				scanAt = time.Now().UTC()
			}
			if err := audit.Record(ctx, shared.AuditLog{
				Actor:    "worker",
				Action:   "LOW_STOCK_SCAN",
				Entity:   "inventory",
				EntityID: scanAt.UTC().Format(time.RFC3339),
				Meta:     map[string]any{"lowStockItems": low, "scheduledFor": payload.ScheduledFor},
			}); err != nil {
				logger.ErrorContext(ctx, "catat audit scan", slog.Any("error", err))
			}
		}
		return nil
	}
}

// PreOrderReminderPayload carries scheduling metadata and the minimum age a
// Pending group must reach before it is reported.
type PreOrderReminderPayload struct {
	ScheduledFor time.Time     `json:"scheduled_for"`
	OlderThan    time.Duration `json:"older_than"`
}

// NewPreOrderReminderTask constructs an Asynq task for the reminder scan.
func NewPreOrderReminderTask(at time.Time, olderThan time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(PreOrderReminderPayload{ScheduledFor: at, OlderThan: olderThan})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePreOrderReminder, body, asynq.Queue(QueueDefault)), nil
}

// GroupLister returns the current approval queue.
type GroupLister interface {
	PendingGroups(ctx context.Context) ([]preorder.Group, error)
}

// NewPreOrderReminderHandler builds the asynq handler for
// TaskTypePreOrderReminder.
func NewPreOrderReminderHandler(orders GroupLister, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload PreOrderReminderPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		groups, err := orders.PendingGroups(ctx)
		if err != nil {
			return err
		}
		cutoff := time.Now().Add(-payload.OlderThan)
		for _, group := range groups {
			if group.OrderDate.After(cutoff) {
				continue
			}
			logger.WarnContext(ctx, "pre-order menunggu persetujuan",
				slog.String("orderId", group.OrderID),
				slog.String("company", group.Company),
				slog.Time("orderDate", group.OrderDate))
		}
		return nil
	}
}

// TokenCleanupPayload carries scheduling metadata and the token retention
// window.
type TokenCleanupPayload struct {
	ScheduledFor time.Time     `json:"scheduled_for"`
	Retention    time.Duration `json:"retention"`
}

// NewTokenCleanupTask constructs an Asynq task for the token purge.
func NewTokenCleanupTask(at time.Time, retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(TokenCleanupPayload{ScheduledFor: at, Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeTokenCleanup, body, asynq.Queue(QueueDefault)), nil
}

// TokenCleaner purges idempotency tokens past their retention.
type TokenCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// NewTokenCleanupHandler builds the asynq handler for TaskTypeTokenCleanup.
func NewTokenCleanupHandler(tokens TokenCleaner, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload TokenCleanupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.Retention <= 0 {
			return asynq.SkipRetry
		}
		if err := tokens.Cleanup(ctx, payload.Retention); err != nil {
			return err
		}
		logger.InfoContext(ctx, "token idempotensi kedaluwarsa dibersihkan",
			slog.Duration("retention", payload.Retention))
		return nil
	}
}
