package inventory

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/lumbung-erp/lumbung-erp/internal/shared"
)

// RepositoryPort abstracts item persistence for the service.
type RepositoryPort interface {
	List(ctx context.Context) ([]Item, error)
	Get(ctx context.Context, id string) (Item, error)
	Create(ctx context.Context, item Item) (string, error)
	Update(ctx context.Context, id string, fields map[string]any) error
	Delete(ctx context.Context, id string) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CachePort invalidates derived read models after a mutation.
type CachePort interface {
	Invalidate(ctx context.Context) error
}

// Service owns the inventory collection. Status is recomputed from stock on
// every write path; callers never supply it.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	cache CachePort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, cache CachePort) *Service {
	return &Service{repo: repo, audit: audit, cache: cache}
}

// SetCache installs the invalidation hook after construction. The dashboard
// aggregates over this service, so it cannot be passed to NewService.
func (s *Service) SetCache(cache CachePort) {
	s.cache = cache
}

// CreateInput describes a new item.
type CreateInput struct {
	Name     string
	Stock    int
	ImageURL string
	Location string
	Actor    string
}

// UpdateInput describes an item edit. All fields are written; the edit form
// always submits the full record.
type UpdateInput struct {
	Name     string
	Stock    int
	ImageURL string
	Location string
	Actor    string
}

// List returns all items.
func (s *Service) List(ctx context.Context) ([]Item, error) {
	return s.repo.List(ctx)
}

// Get returns one item.
func (s *Service) Get(ctx context.Context, id string) (Item, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and persists a new item, deriving its status.
func (s *Service) Create(ctx context.Context, input CreateInput) (Item, error) {
	if err := validateItemInput(input.Name, input.Stock, input.ImageURL, input.Location); err != nil {
		return Item{}, err
	}
	imageURL := input.ImageURL
	if imageURL == "" {
		imageURL = PlaceholderImageURL
	}
	item := Item{
		Name:     strings.TrimSpace(input.Name),
		Stock:    input.Stock,
		Status:   DeriveStatus(input.Stock),
		ImageURL: imageURL,
		Location: strings.TrimSpace(input.Location),
	}
	id, err := s.repo.Create(ctx, item)
	if err != nil {
		return Item{}, err
	}
	item.ID = id
	s.recordAudit(ctx, input.Actor, "ITEM_CREATE", id, map[string]any{"name": item.Name, "stock": item.Stock})
	s.invalidate(ctx)
	return item, nil
}

// Update rewrites an item's fields, re-deriving the status from the new stock.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (Item, error) {
	if err := validateItemInput(input.Name, input.Stock, input.ImageURL, input.Location); err != nil {
		return Item{}, err
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return Item{}, err
	}
	imageURL := input.ImageURL
	if imageURL == "" {
		imageURL = PlaceholderImageURL
	}
	fields := map[string]any{
		"name":     strings.TrimSpace(input.Name),
		"stock":    input.Stock,
		"status":   DeriveStatus(input.Stock),
		"imageUrl": imageURL,
		"location": strings.TrimSpace(input.Location),
	}
	if err := s.repo.Update(ctx, id, fields); err != nil {
		return Item{}, err
	}
	s.recordAudit(ctx, input.Actor, "ITEM_UPDATE", id, map[string]any{"name": input.Name, "stock": input.Stock})
	s.invalidate(ctx)
	return s.repo.Get(ctx, id)
}

// Delete permanently removes an item.
func (s *Service) Delete(ctx context.Context, id, actor string) error {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "ITEM_DELETE", id, map[string]any{"name": item.Name})
	s.invalidate(ctx)
	return nil
}

// AdjustStock applies a movement delta to an item's stock and re-derives its
// status. The adjustment refuses to take stock negative.
func (s *Service) AdjustStock(ctx context.Context, id string, delta int) (Item, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}
	next := item.Stock + delta
	if next < 0 {
		return Item{}, ErrInsufficientStock
	}
	fields := map[string]any{
		"stock":  next,
		"status": DeriveStatus(next),
	}
	if err := s.repo.Update(ctx, id, fields); err != nil {
		return Item{}, err
	}
	item.Stock = next
	item.Status = DeriveStatus(next)
	s.invalidate(ctx)
	return item, nil
}

func (s *Service) recordAudit(ctx context.Context, actor, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   action,
		Entity:   "inventory_item",
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

func validateItemInput(name string, stock int, imageURL, location string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name required", ErrValidation)
	}
	if stock < 0 {
		return fmt.Errorf("%w: stock must be >= 0", ErrValidation)
	}
	if strings.TrimSpace(location) == "" {
		return fmt.Errorf("%w: location required", ErrValidation)
	}
	if imageURL != "" {
		parsed, err := url.Parse(imageURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%w: image url not valid", ErrValidation)
		}
	}
	return nil
}
