package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/dvloznov/ministry-backoffice/internal/domain"
)

func (s *Store) ListInventory(ctx context.Context) ([]*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.InventoryItem, 0, len(s.inventory))
	for _, item := range s.inventory {
		out = append(out, s.itemCopy(item))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetInventoryItem(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.inventory[id]
	if !ok {
		return nil, fmt.Errorf("GetInventoryItem: item %d: %w", id, domain.ErrNotFound)
	}
	return s.itemCopy(item), nil
}

func (s *Store) CreateInventoryItem(ctx context.Context, item *domain.InventoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.itemByName(item.Name) != nil {
		return fmt.Errorf("CreateInventoryItem: %q: %w", item.Name, domain.ErrConflict)
	}
	item.ID = s.id()
	item.CreatedAt = s.stamp()
	cp := *item
	s.inventory[item.ID] = &cp
	return nil
}

func (s *Store) UpdateInventoryItem(ctx context.Context, item *domain.InventoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.inventory[item.ID]; !ok {
		return fmt.Errorf("UpdateInventoryItem: item %d: %w", item.ID, domain.ErrNotFound)
	}
	if other := s.itemByName(item.Name); other != nil && other.ID != item.ID {
		return fmt.Errorf("UpdateInventoryItem: %q: %w", item.Name, domain.ErrConflict)
	}
	cp := *item
	s.inventory[item.ID] = &cp
	return nil
}

func (s *Store) DeleteInventoryItem(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.inventory[id]; !ok {
		return fmt.Errorf("DeleteInventoryItem: item %d: %w", id, domain.ErrNotFound)
	}
	delete(s.inventory, id)
	return nil
}

func (s *Store) ApplyStockDeltas(ctx context.Context, deltas []domain.StockDelta, editorID int64) ([]*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.stamp()
	var out []*domain.InventoryItem
	for _, d := range deltas {
		item := s.itemByName(d.Name)
		if item == nil {
			item = &domain.InventoryItem{ID: s.id(), Name: d.Name, CreatedAt: now}
			s.inventory[item.ID] = item
		}
		editor := editorID
		edited := now
		item.Quantity = item.Quantity.Add(d.Quantity)
		item.LastEditedBy = &editor
		item.LastEditedAt = &edited
		out = append(out, s.itemCopy(item))
	}
	return out, nil
}

func (s *Store) itemByName(name string) *domain.InventoryItem {
	for _, item := range s.inventory {
		if item.Name == name {
			return item
		}
	}
	return nil
}

func (s *Store) itemCopy(item *domain.InventoryItem) *domain.InventoryItem {
	cp := *item
	if item.LastEditedBy != nil {
		cp.LastEditorName = s.userName(*item.LastEditedBy)
	}
	return &cp
}
