package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/dvloznov/ministry-backoffice/internal/domain"
)

func (s *Store) ListRecipes(ctx context.Context, category string) ([]*domain.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Recipe
	for _, r := range s.recipes {
		if category != "" && (r.Category == nil || *r.Category != category) {
			continue
		}
		cp := *r
		cp.CreatorName = s.userName(r.CreatedBy)
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetRecipe(ctx context.Context, id int64) (*domain.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.recipes[id]
	if !ok {
		return nil, fmt.Errorf("GetRecipe: recipe %d: %w", id, domain.ErrNotFound)
	}
	cp := *r
	cp.CreatorName = s.userName(r.CreatedBy)
	return &cp, nil
}

func (s *Store) CreateRecipe(ctx context.Context, r *domain.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.ID = s.id()
	r.CreatedAt = s.stamp()
	cp := *r
	s.recipes[r.ID] = &cp
	r.CreatorName = s.userName(r.CreatedBy)
	return nil
}

func (s *Store) UpdateRecipe(ctx context.Context, r *domain.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recipes[r.ID]; !ok {
		return fmt.Errorf("UpdateRecipe: recipe %d: %w", r.ID, domain.ErrNotFound)
	}
	updated := s.stamp()
	r.UpdatedAt = &updated
	cp := *r
	s.recipes[r.ID] = &cp
	return nil
}

func (s *Store) DeleteRecipe(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recipes[id]; !ok {
		return fmt.Errorf("DeleteRecipe: recipe %d: %w", id, domain.ErrNotFound)
	}
	delete(s.recipes, id)
	return nil
}
