package preorder

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/lumbung-erp/lumbung-erp/internal/inventory"
	"github.com/lumbung-erp/lumbung-erp/internal/shared"
)

// RepositoryPort abstracts pre-order persistence for the service.
type RepositoryPort interface {
	List(ctx context.Context) ([]PreOrder, error)
	Get(ctx context.Context, id string) (PreOrder, error)
	ListByOrderID(ctx context.Context, orderID string) ([]PreOrder, error)
	Create(ctx context.Context, order PreOrder) (string, error)
	BatchUpdateStatus(ctx context.Context, ids []string, status Status) error
}

// ItemPort resolves inventory items for name snapshots.
type ItemPort interface {
	Get(ctx context.Context, id string) (inventory.Item, error)
}

// ApprovalPort records and reads approval history.
type ApprovalPort interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
	List(ctx context.Context, module, ref string) ([]shared.ApprovalLog, error)
	EnsureSubmit(ctx context.Context, module, ref, actor, note string) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CachePort invalidates derived read models after a mutation.
type CachePort interface {
	Invalidate(ctx context.Context) error
}

const approvalModule = "preorder"

// Service owns the pre-order lifecycle: creation and order grouping, batch
// submission, and the approval decision.
type Service struct {
	repo      RepositoryPort
	items     ItemPort
	approvals ApprovalPort
	audit     AuditPort
	cache     CachePort
}

// NewService builds Service.
func NewService(repo RepositoryPort, items ItemPort, approvals ApprovalPort, audit AuditPort, cache CachePort) *Service {
	return &Service{repo: repo, items: items, approvals: approvals, audit: audit, cache: cache}
}

// SetCache installs the invalidation hook after construction. The dashboard
// aggregates over this service, so it cannot be passed to NewService.
func (s *Service) SetCache(cache CachePort) {
	s.cache = cache
}

// CreateInput describes a new pre-order line item. OrderID is optional; when
// set, the line joins an existing order group.
type CreateInput struct {
	Company  string
	ItemID   string
	Quantity int
	Location string
	OrderID  string
	Actor    string
}

// List returns pre-orders, optionally restricted to one location.
func (s *Service) List(ctx context.Context, location string) ([]PreOrder, error) {
	orders, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if location == "" {
		return orders, nil
	}
	filtered := make([]PreOrder, 0, len(orders))
	for _, order := range orders {
		if order.Location == location {
			filtered = append(filtered, order)
		}
	}
	return filtered, nil
}

// Create validates and persists a new line item in the initial state. Without
// an OrderID a fresh sequential order id is synthesized; with one, company,
// location and order date are inherited from the existing group.
func (s *Service) Create(ctx context.Context, input CreateInput) (PreOrder, error) {
	if input.Company == "" {
		return PreOrder{}, fmt.Errorf("%w: company required", ErrValidation)
	}
	if input.Quantity <= 0 {
		return PreOrder{}, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	if !ValidLocation(input.Location) {
		return PreOrder{}, fmt.Errorf("%w: unknown location %q", ErrValidation, input.Location)
	}
	if input.ItemID == "" {
		return PreOrder{}, fmt.Errorf("%w: item required", ErrValidation)
	}
	item, err := s.items.Get(ctx, input.ItemID)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			return PreOrder{}, ErrUnknownItemReference
		}
		return PreOrder{}, err
	}

	order := PreOrder{
		Company:   input.Company,
		Item:      item.Name,
		ItemID:    item.ID,
		Quantity:  input.Quantity,
		OrderDate: time.Now().UTC(),
		Status:    StatusAwaitingApproval,
		Location:  input.Location,
	}
	if input.OrderID != "" {
		siblings, err := s.repo.ListByOrderID(ctx, input.OrderID)
		if err != nil {
			return PreOrder{}, err
		}
		if len(siblings) == 0 {
			return PreOrder{}, fmt.Errorf("%w: order %s", ErrNotFound, input.OrderID)
		}
		head := siblings[0]
		if head.Company != input.Company || head.Location != input.Location {
			return PreOrder{}, ErrGroupConflict
		}
		for _, sib := range siblings {
			// a group that already entered approval no longer accepts lines
			if sib.Status != StatusAwaitingApproval {
				return PreOrder{}, ErrGroupConflict
			}
		}
		order.OrderID = input.OrderID
		order.OrderDate = head.OrderDate
	} else {
		orderID, err := s.nextOrderID(ctx)
		if err != nil {
			return PreOrder{}, err
		}
		order.OrderID = orderID
	}

	id, err := s.repo.Create(ctx, order)
	if err != nil {
		return PreOrder{}, err
	}
	order.ID = id
	s.recordAudit(ctx, input.Actor, "PREORDER_CREATE", id, map[string]any{"orderId": order.OrderID, "item": order.Item, "quantity": order.Quantity})
	s.invalidate(ctx)
	return order, nil
}

// SubmitForApproval moves the selected records from Awaiting Approval to
// Pending. Selecting any member of an order group submits the whole group; the
// batch update is atomic.
func (s *Service) SubmitForApproval(ctx context.Context, ids []string, actor string) error {
	if len(ids) == 0 {
		return ErrEmptySelection
	}
	orders, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	byID := make(map[string]PreOrder, len(orders))
	for _, order := range orders {
		byID[order.ID] = order
	}

	selected := make(map[string]bool, len(ids))
	groups := make(map[string]bool)
	for _, id := range ids {
		order, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: record %s", ErrNotFound, id)
		}
		selected[order.ID] = true
		if order.OrderID != "" {
			groups[order.OrderID] = true
		}
	}
	// expand the selection to full order groups
	for _, order := range orders {
		if order.OrderID != "" && groups[order.OrderID] {
			selected[order.ID] = true
		}
	}

	expanded := make([]string, 0, len(selected))
	for id := range selected {
		if !canTransition(byID[id].Status, StatusPending) {
			return fmt.Errorf("%w: record %s is %s", ErrInvalidTransition, id, byID[id].Status)
		}
		expanded = append(expanded, id)
	}
	sort.Strings(expanded)

	if err := s.repo.BatchUpdateStatus(ctx, expanded, StatusPending); err != nil {
		return err
	}
	// one approval and audit entry per submitted ref: the order id for
	// grouped records, the record id for ungrouped ones
	refs := make(map[string][]string)
	for _, id := range expanded {
		ref := byID[id].OrderID
		if ref == "" {
			ref = id
		}
		refs[ref] = append(refs[ref], id)
	}
	for ref, members := range refs {
		s.recordApproval(ctx, shared.ApprovalSubmit, ref, actor, "")
		s.recordAudit(ctx, actor, "PREORDER_SUBMIT", ref, map[string]any{"ids": members})
	}
	s.invalidate(ctx)
	return nil
}

// Decide applies the approval outcome to every Pending member of the order
// group in one atomic batch. The ref may also be a bare record id for
// ungrouped pre-orders.
func (s *Service) Decide(ctx context.Context, ref string, outcome Status, actor string) error {
	if outcome != StatusApproved && outcome != StatusRejected {
		return fmt.Errorf("%w: outcome must be Approved or Rejected", ErrValidation)
	}
	members, err := s.repo.ListByOrderID(ctx, ref)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		order, err := s.repo.Get(ctx, ref)
		if err != nil {
			return err
		}
		if order.OrderID != "" {
			// the record is grouped; decisions go through its order id
			return fmt.Errorf("%w: record %s belongs to order %s", ErrValidation, ref, order.OrderID)
		}
		members = []PreOrder{order}
	}

	ids := make([]string, 0, len(members))
	for _, member := range members {
		if !canTransition(member.Status, outcome) {
			return fmt.Errorf("%w: record %s is %s", ErrInvalidTransition, member.ID, member.Status)
		}
		ids = append(ids, member.ID)
	}
	sort.Strings(ids)

	if err := s.repo.BatchUpdateStatus(ctx, ids, outcome); err != nil {
		return err
	}
	action := shared.ApprovalApprove
	if outcome == StatusRejected {
		action = shared.ApprovalReject
	}
	// a decision on a ref that never went through submit still gets its
	// SUBMIT row, so the trail always starts at the beginning
	s.ensureSubmit(ctx, ref, actor)
	s.recordApproval(ctx, action, ref, actor, "")
	s.recordAudit(ctx, actor, "PREORDER_DECIDE", ref, map[string]any{"outcome": outcome, "ids": ids})
	s.invalidate(ctx)
	return nil
}

// PendingGroups builds the approval queue: Pending records partitioned by
// order id, summarized per group. Records without an order id form
// single-member groups keyed by their record id.
func (s *Service) PendingGroups(ctx context.Context) ([]Group, error) {
	orders, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	grouped := make(map[string]*Group)
	var keys []string
	for _, order := range orders {
		if order.Status != StatusPending {
			continue
		}
		key := order.OrderID
		if key == "" {
			key = order.ID
		}
		group, ok := grouped[key]
		if !ok {
			group = &Group{
				OrderID:   key,
				Company:   order.Company,
				Location:  order.Location,
				OrderDate: order.OrderDate,
			}
			grouped[key] = group
			keys = append(keys, key)
		}
		group.Items = append(group.Items, order.Item)
		group.Quantity += order.Quantity
		group.MemberIDs = append(group.MemberIDs, order.ID)
	}
	sort.Strings(keys)
	out := make([]Group, 0, len(keys))
	for _, key := range keys {
		out = append(out, *grouped[key])
	}
	return out, nil
}

var orderIDPattern = regexp.MustCompile(`^PO-(\d+)$`)

// nextOrderID scans existing order ids for the highest numeric suffix and
// returns the next one, zero-padded to three digits.
func (s *Service) nextOrderID(ctx context.Context) (string, error) {
	orders, err := s.repo.List(ctx)
	if err != nil {
		return "", err
	}
	max := 0
	for _, order := range orders {
		m := orderIDPattern.FindStringSubmatch(order.OrderID)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("PO-%03d", max+1), nil
}

func (s *Service) recordApproval(ctx context.Context, action shared.ApprovalAction, ref, actor, note string) {
	if s.approvals == nil {
		return
	}
	_ = s.approvals.Record(ctx, shared.ApprovalLog{
		Module: approvalModule,
		RefID:  ref,
		Actor:  actor,
		Action: action,
		Note:   note,
		At:     time.Now().UTC(),
	})
}

func (s *Service) ensureSubmit(ctx context.Context, ref, actor string) {
	if s.approvals == nil {
		return
	}
	_ = s.approvals.EnsureSubmit(ctx, approvalModule, ref, actor, "")
}

// ApprovalHistory returns the recorded approval trail for an order ref,
// oldest first.
func (s *Service) ApprovalHistory(ctx context.Context, ref string) ([]shared.ApprovalLog, error) {
	if s.approvals == nil {
		return nil, nil
	}
	return s.approvals.List(ctx, approvalModule, ref)
}

func (s *Service) recordAudit(ctx context.Context, actor, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   action,
		Entity:   "preorder",
		EntityID: entityID,
		Meta:     meta,
	})
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx)
}
