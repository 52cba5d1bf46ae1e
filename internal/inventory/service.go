// Package inventory keeps stock counts, edited by hand or topped up from
// receipt line items.
package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/ministry-backoffice/internal/audit"
	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/dvloznov/ministry-backoffice/internal/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Service manages inventory items.
type Service struct {
	repo  repository.InventoryRepository
	audit audit.Recorder
	log   zerolog.Logger
	now   func() time.Time
}

// NewService creates an inventory service.
func NewService(repo repository.InventoryRepository, rec audit.Recorder, log zerolog.Logger) *Service {
	return &Service{repo: repo, audit: rec, log: log, now: time.Now}
}

// CreateInput is the payload of Create.
type CreateInput struct {
	Name     string           `json:"name"`
	Quantity *decimal.Decimal `json:"quantity"`
	Unit     *string          `json:"unit"`
}

// List returns all items ordered by name.
func (s *Service) List(ctx context.Context) ([]*domain.InventoryItem, error) {
	items, err := s.repo.ListInventory(ctx)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return items, nil
}

// Create adds an item. Quantity defaults to zero.
func (s *Service) Create(ctx context.Context, actor *domain.User, in CreateInput) (*domain.InventoryItem, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	item := &domain.InventoryItem{
		Name: name,
		Unit: blankToNil(in.Unit),
	}
	if in.Quantity != nil {
		item.Quantity = *in.Quantity
	}
	s.stamp(item, actor)

	if err := s.repo.CreateInventoryItem(ctx, item); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	s.audit.Record(ctx, audit.Event{
		UserID:     actor.ID,
		Action:     "inventory.create",
		EntityType: "inventory",
		EntityID:   &item.ID,
		Details:    fmt.Sprintf("Added item: %s (qty %s)", item.Name, item.Quantity.String()),
	})
	return item, nil
}

// Update applies patch. A blank name is ignored; a blank unit clears it.
func (s *Service) Update(ctx context.Context, actor *domain.User, id int64, patch domain.InventoryPatch) (*domain.InventoryItem, error) {
	item, err := s.repo.GetInventoryItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}
	if patch.Quantity != nil {
		item.Quantity = *patch.Quantity
	}
	if patch.Name != nil {
		if name := strings.TrimSpace(*patch.Name); name != "" {
			item.Name = name
		}
	}
	if patch.Unit != nil {
		item.Unit = blankToNil(patch.Unit)
	}
	s.stamp(item, actor)

	if err := s.repo.UpdateInventoryItem(ctx, item); err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}
	item.LastEditorName = &actor.Name

	s.audit.Record(ctx, audit.Event{
		UserID:     actor.ID,
		Action:     "inventory.update",
		EntityType: "inventory",
		EntityID:   &item.ID,
		Details:    fmt.Sprintf("Updated %s to qty %s", item.Name, item.Quantity.String()),
	})
	return item, nil
}

// Delete removes an item.
func (s *Service) Delete(ctx context.Context, actor *domain.User, id int64) error {
	item, err := s.repo.GetInventoryItem(ctx, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if err := s.repo.DeleteInventoryItem(ctx, id); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}

	s.audit.Record(ctx, audit.Event{
		UserID:     actor.ID,
		Action:     "inventory.delete",
		EntityType: "inventory",
		EntityID:   &id,
		Details:    fmt.Sprintf("Removed item: %s", item.Name),
	})
	return nil
}

// AddReceiptItems adds each named line item to stock in one transaction.
// Blank names are skipped and a missing quantity counts as one.
func (s *Service) AddReceiptItems(ctx context.Context, actor *domain.User, items []domain.LineItem) ([]*domain.InventoryItem, error) {
	deltas := make([]domain.StockDelta, 0, len(items))
	for _, it := range items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			continue
		}
		qty := decimal.NewFromInt(1)
		if it.Quantity != nil {
			qty = decimal.NewFromFloat(*it.Quantity)
		}
		deltas = append(deltas, domain.StockDelta{Name: name, Quantity: qty})
	}
	if len(deltas) == 0 {
		return nil, nil
	}

	updated, err := s.repo.ApplyStockDeltas(ctx, deltas, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("AddReceiptItems: %w", err)
	}
	s.log.Debug().Int64("user_id", actor.ID).Int("items", len(updated)).Msg("Added receipt items to inventory")
	return updated, nil
}

func (s *Service) stamp(item *domain.InventoryItem, actor *domain.User) {
	now := s.now()
	editor := actor.ID
	item.LastEditedBy = &editor
	item.LastEditedAt = &now
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
