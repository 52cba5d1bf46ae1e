package memory

import (
	"context"
	"sort"

	"github.com/dvloznov/ministry-backoffice/internal/domain"
)

func (s *Store) InsertActivity(ctx context.Context, a *domain.ActivityLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = s.id()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.stamp()
	}
	cp := *a
	s.activity = append(s.activity, &cp)
	return nil
}

func (s *Store) ListActivity(ctx context.Context, f domain.ActivityFilter) ([]*domain.ActivityLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.ActivityLog
	for _, a := range s.activity {
		if !f.Matches(a.CreatedAt) {
			continue
		}
		if f.EntityType != "" && (a.EntityType == nil || *a.EntityType != f.EntityType) {
			continue
		}
		if f.UserID != nil && a.UserID != *f.UserID {
			continue
		}
		cp := *a
		cp.UserName = s.userName(a.UserID)
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
