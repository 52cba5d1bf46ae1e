package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/ministry-backoffice/internal/domain"
)

func (s *Store) InsertActivity(ctx context.Context, a *domain.ActivityLog) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO activity_logs (user_id, action, entity_type, entity_id, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		a.UserID, a.Action, a.EntityType, a.EntityID, a.Details,
	).Scan(&a.ID, &a.CreatedAt)
	return mapErr("InsertActivity", err)
}

// ListActivity builds its WHERE clause from the filter fields that are set.
// The date bounds apply to created_at as [start, end + 1 day) in UTC.
func (s *Store) ListActivity(ctx context.Context, f domain.ActivityFilter) ([]*domain.ActivityLog, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Range.Start != nil {
		add("a.created_at >= $%d", f.Range.Start.In(time.UTC))
	}
	if end := f.Range.ExclusiveEnd(); end != nil {
		add("a.created_at < $%d", end.In(time.UTC))
	}
	if f.EntityType != "" {
		add("a.entity_type = $%d", f.EntityType)
	}
	if f.UserID != nil {
		add("a.user_id = $%d", *f.UserID)
	}

	query := `
		SELECT a.id, a.user_id, u.name, a.action, a.entity_type, a.entity_id, a.details, a.created_at
		FROM activity_logs a
		LEFT JOIN users u ON u.id = a.user_id`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY a.created_at DESC, a.id DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr("ListActivity", err)
	}
	defer rows.Close()

	var out []*domain.ActivityLog
	for rows.Next() {
		var a domain.ActivityLog
		err := rows.Scan(&a.ID, &a.UserID, &a.UserName, &a.Action, &a.EntityType, &a.EntityID, &a.Details, &a.CreatedAt)
		if err != nil {
			return nil, mapErr("ListActivity: scanning", err)
		}
		out = append(out, &a)
	}
	return out, mapErr("ListActivity", rows.Err())
}
