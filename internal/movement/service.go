package movement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/lumbung-erp/lumbung-erp/internal/inventory"
	"github.com/lumbung-erp/lumbung-erp/internal/shared"
)

// RepositoryPort abstracts the transaction log for the service.
type RepositoryPort interface {
	List(ctx context.Context) ([]Transaction, error)
	Create(ctx context.Context, tx Transaction) (string, error)
}

// ItemPort exposes the inventory operations movements need.
type ItemPort interface {
	Get(ctx context.Context, id string) (inventory.Item, error)
	List(ctx context.Context) ([]inventory.Item, error)
	AdjustStock(ctx context.Context, id string, delta int) (inventory.Item, error)
}

// TokenPort guards against double submission of the same form.
type TokenPort interface {
	CheckAndInsert(ctx context.Context, token, module string) error
	Delete(ctx context.Context, token string) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts posted movements.
type MetricsPort interface {
	CountMovement(movementType string)
}

// Service posts stock movements and serves the filtered history view.
type Service struct {
	repo    RepositoryPort
	items   ItemPort
	tokens  TokenPort
	audit   AuditPort
	metrics MetricsPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, items ItemPort, tokens TokenPort, audit AuditPort, metrics MetricsPort) *Service {
	return &Service{repo: repo, items: items, tokens: tokens, audit: audit, metrics: metrics}
}

// StockInInput describes an inbound movement.
type StockInInput struct {
	ItemID      string
	Quantity    int
	Supplier    string
	User        string
	ClientToken string
}

// StockOutInput describes an outbound movement. Status is recorded as given
// for movements routed through approval; plain issues leave it empty.
type StockOutInput struct {
	ItemID      string
	Quantity    int
	Destination string
	Description string
	Status      ApprovalStatus
	User        string
	ClientToken string
}

// StockIn posts an inbound movement: the item's stock grows by the quantity
// and an IN transaction is appended with the item name snapshotted.
func (s *Service) StockIn(ctx context.Context, input StockInInput) (Transaction, error) {
	if input.Quantity <= 0 {
		return Transaction{}, ErrInvalidQuantity
	}
	if input.Supplier == "" {
		return Transaction{}, fmt.Errorf("%w: supplier required", ErrValidation)
	}
	item, err := s.resolveItem(ctx, input.ItemID)
	if err != nil {
		return Transaction{}, err
	}
	release, err := s.claimToken(ctx, input.ClientToken, "movement.in")
	if err != nil {
		return Transaction{}, err
	}
	tx := Transaction{
		Type:     TypeIn,
		Item:     item.Name,
		ItemID:   item.ID,
		Quantity: input.Quantity,
		Date:     time.Now().UTC(),
		User:     input.User,
		Supplier: input.Supplier,
	}
	posted, err := s.post(ctx, tx, input.Quantity)
	if err != nil {
		release()
		return Transaction{}, err
	}
	s.countMovement(TypeIn)
	s.recordAudit(ctx, input.User, "STOCK_IN", posted.ID, map[string]any{"item": posted.Item, "quantity": posted.Quantity})
	return posted, nil
}

// StockOut posts an outbound movement: the item's stock shrinks by the
// quantity (never below zero) and an OUT transaction is appended.
func (s *Service) StockOut(ctx context.Context, input StockOutInput) (Transaction, error) {
	if input.Quantity <= 0 {
		return Transaction{}, ErrInvalidQuantity
	}
	if input.Destination == "" && input.Description == "" {
		return Transaction{}, fmt.Errorf("%w: destination or description required", ErrValidation)
	}
	if input.Status != "" && input.Status != ApprovalPending && input.Status != ApprovalApproved && input.Status != ApprovalRejected {
		return Transaction{}, fmt.Errorf("%w: unknown approval status", ErrValidation)
	}
	item, err := s.resolveItem(ctx, input.ItemID)
	if err != nil {
		return Transaction{}, err
	}
	release, err := s.claimToken(ctx, input.ClientToken, "movement.out")
	if err != nil {
		return Transaction{}, err
	}
	tx := Transaction{
		Type:        TypeOut,
		Item:        item.Name,
		ItemID:      item.ID,
		Quantity:    input.Quantity,
		Date:        time.Now().UTC(),
		User:        input.User,
		Status:      input.Status,
		Destination: input.Destination,
		Description: input.Description,
	}
	posted, err := s.post(ctx, tx, -input.Quantity)
	if err != nil {
		release()
		return Transaction{}, err
	}
	s.countMovement(TypeOut)
	s.recordAudit(ctx, input.User, "STOCK_OUT", posted.ID, map[string]any{"item": posted.Item, "quantity": posted.Quantity})
	return posted, nil
}

// post adjusts the item's stock, then appends the transaction. When the
// append fails the stock adjustment is compensated so the ledger and the item
// cannot drift apart.
func (s *Service) post(ctx context.Context, tx Transaction, delta int) (Transaction, error) {
	if _, err := s.items.AdjustStock(ctx, tx.ItemID, delta); err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			return Transaction{}, ErrUnknownItemReference
		}
		return Transaction{}, err
	}
	id, err := s.repo.Create(ctx, tx)
	if err != nil {
		if _, compErr := s.items.AdjustStock(ctx, tx.ItemID, -delta); compErr != nil {
			return Transaction{}, fmt.Errorf("movement: append failed (%w), compensation failed: %v", err, compErr)
		}
		return Transaction{}, err
	}
	tx.ID = id
	return tx, nil
}

// History returns transactions matching the filter, newest first, with the
// active-filter count for the view badge. The location predicate resolves
// against each item's current location.
func (s *Service) History(ctx context.Context, filter Filter) ([]Transaction, int, error) {
	txs, err := s.repo.List(ctx)
	if err != nil {
		return nil, 0, err
	}
	var locationOf func(string) (string, bool)
	if filter.Location != "" {
		items, err := s.items.List(ctx)
		if err != nil {
			return nil, 0, err
		}
		locations := make(map[string]string, len(items))
		for _, item := range items {
			locations[item.ID] = item.Location
		}
		locationOf = func(itemID string) (string, bool) {
			location, ok := locations[itemID]
			return location, ok
		}
	}
	filtered := filter.Apply(txs, locationOf)
	sortNewestFirst(filtered)
	return filtered, filter.ActiveCount(), nil
}

// ListByType returns all transactions of one direction, newest first.
func (s *Service) ListByType(ctx context.Context, txType Type) ([]Transaction, error) {
	txs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []Transaction
	for _, tx := range txs {
		if tx.Type == txType {
			out = append(out, tx)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// Recent returns the n newest transactions across both directions.
func (s *Service) Recent(ctx context.Context, n int) ([]Transaction, error) {
	txs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(txs)
	if len(txs) > n {
		txs = txs[:n]
	}
	return txs, nil
}

func (s *Service) resolveItem(ctx context.Context, itemID string) (inventory.Item, error) {
	if itemID == "" {
		return inventory.Item{}, fmt.Errorf("%w: item required", ErrValidation)
	}
	item, err := s.items.Get(ctx, itemID)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			return inventory.Item{}, ErrUnknownItemReference
		}
		return inventory.Item{}, err
	}
	return item, nil
}

// claimToken consumes the client submission token. The returned release func
// frees the token again when the guarded operation fails, so a retry after a
// genuine failure is not treated as a duplicate.
func (s *Service) claimToken(ctx context.Context, token, module string) (func(), error) {
	if s.tokens == nil || token == "" {
		return func() {}, nil
	}
	if err := s.tokens.CheckAndInsert(ctx, token, module); err != nil {
		return nil, err
	}
	return func() { _ = s.tokens.Delete(ctx, token) }, nil
}

func (s *Service) recordAudit(ctx context.Context, actor, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   action,
		Entity:   "transaction",
		EntityID: entityID,
		Meta:     meta,
	})
}

func (s *Service) countMovement(txType Type) {
	if s.metrics == nil {
		return
	}
	s.metrics.CountMovement(string(txType))
}

func sortNewestFirst(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.After(txs[j].Date)
	})
}
