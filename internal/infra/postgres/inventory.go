package postgres

import (
	"context"
	"fmt"

	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/jackc/pgx/v5"
)

const inventorySelect = `
	SELECT i.id, i.name, i.quantity, i.unit, i.last_edited_by, u.name, i.last_edited_at, i.created_at
	FROM inventory_items i
	LEFT JOIN users u ON u.id = i.last_edited_by`

func scanInventoryItem(row pgx.Row) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := row.Scan(&item.ID, &item.Name, &item.Quantity, &item.Unit, &item.LastEditedBy,
		&item.LastEditorName, &item.LastEditedAt, &item.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListInventory(ctx context.Context) ([]*domain.InventoryItem, error) {
	rows, err := s.db.Query(ctx, inventorySelect+` ORDER BY i.name`)
	if err != nil {
		return nil, mapErr("ListInventory", err)
	}
	defer rows.Close()

	var out []*domain.InventoryItem
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, mapErr("ListInventory: scanning", err)
		}
		out = append(out, item)
	}
	return out, mapErr("ListInventory", rows.Err())
}

func (s *Store) GetInventoryItem(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	item, err := scanInventoryItem(s.db.QueryRow(ctx, inventorySelect+` WHERE i.id = $1`, id))
	if err != nil {
		return nil, mapErr(fmt.Sprintf("GetInventoryItem: item %d", id), err)
	}
	return item, nil
}

func (s *Store) CreateInventoryItem(ctx context.Context, item *domain.InventoryItem) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO inventory_items (name, quantity, unit, last_edited_by, last_edited_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		item.Name, item.Quantity, item.Unit, item.LastEditedBy, item.LastEditedAt,
	).Scan(&item.ID, &item.CreatedAt)
	return mapErr("CreateInventoryItem", err)
}

func (s *Store) UpdateInventoryItem(ctx context.Context, item *domain.InventoryItem) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE inventory_items
		SET name = $2, quantity = $3, unit = $4, last_edited_by = $5, last_edited_at = $6
		WHERE id = $1`,
		item.ID, item.Name, item.Quantity, item.Unit, item.LastEditedBy, item.LastEditedAt)
	return requireRow(fmt.Sprintf("UpdateInventoryItem: item %d", item.ID), tag, err)
}

func (s *Store) DeleteInventoryItem(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM inventory_items WHERE id = $1`, id)
	return requireRow(fmt.Sprintf("DeleteInventoryItem: item %d", id), tag, err)
}

// ApplyStockDeltas upserts by name so concurrent uploads add up instead of
// overwriting each other.
func (s *Store) ApplyStockDeltas(ctx context.Context, deltas []domain.StockDelta, editorID int64) ([]*domain.InventoryItem, error) {
	ids := make([]int64, 0, len(deltas))
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		for _, d := range deltas {
			var id int64
			err := tx.QueryRow(ctx, `
				INSERT INTO inventory_items (name, quantity, last_edited_by, last_edited_at)
				VALUES ($1, $2, $3, now())
				ON CONFLICT (name) DO UPDATE
				SET quantity = inventory_items.quantity + EXCLUDED.quantity,
				    last_edited_by = EXCLUDED.last_edited_by,
				    last_edited_at = EXCLUDED.last_edited_at
				RETURNING id`,
				d.Name, d.Quantity, editorID,
			).Scan(&id)
			if err != nil {
				return fmt.Errorf("upserting %q: %w", d.Name, err)
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, mapErr("ApplyStockDeltas", err)
	}

	out := make([]*domain.InventoryItem, 0, len(ids))
	for _, id := range ids {
		item, err := s.GetInventoryItem(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("ApplyStockDeltas: %w", err)
		}
		out = append(out, item)
	}
	return out, nil
}
