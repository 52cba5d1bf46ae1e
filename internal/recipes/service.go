// Package recipes manages the recipe catalog.
package recipes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/ministry-backoffice/internal/audit"
	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/dvloznov/ministry-backoffice/internal/gcs"
	"github.com/dvloznov/ministry-backoffice/internal/repository"
	"github.com/rs/zerolog"
)

// Service manages recipes. Reads are open to every user; writes are admin
// only.
type Service struct {
	repo   repository.RecipeRepository
	images gcs.ObjectStore
	audit  audit.Recorder
	log    zerolog.Logger
	now    func() time.Time
}

// NewService creates a recipe service.
func NewService(repo repository.RecipeRepository, images gcs.ObjectStore, rec audit.Recorder, log zerolog.Logger) *Service {
	return &Service{repo: repo, images: images, audit: rec, log: log, now: time.Now}
}

// CreateInput is the payload of Create.
type CreateInput struct {
	Title        string   `json:"title"`
	Category     *string  `json:"category"`
	Description  *string  `json:"description"`
	Ingredients  []string `json:"ingredients"`
	Instructions *string  `json:"instructions"`
	PrepTime     *int     `json:"prep_time"`
	CookTime     *int     `json:"cook_time"`
	Servings     *int     `json:"servings"`
}

// ParseIngredients reads a JSON list of strings, falling back to a
// comma-separated list.
func ParseIngredients(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return list
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// List returns recipes newest first, optionally for one category.
func (s *Service) List(ctx context.Context, category string) ([]*domain.Recipe, error) {
	recipes, err := s.repo.ListRecipes(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return recipes, nil
}

// Create stores a recipe and its optional image.
func (s *Service) Create(ctx context.Context, actor *domain.User, in CreateInput, image *gcs.File) (*domain.Recipe, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}

	r := &domain.Recipe{
		Title:        title,
		Category:     in.Category,
		Description:  in.Description,
		Ingredients:  in.Ingredients,
		Instructions: in.Instructions,
		PrepTime:     in.PrepTime,
		CookTime:     in.CookTime,
		Servings:     in.Servings,
		CreatedBy:    actor.ID,
	}
	if r.Ingredients == nil {
		r.Ingredients = []string{}
	}

	if image != nil {
		name, err := gcs.ImageObjectName("recipes", image.Filename, s.now())
		if err != nil {
			return nil, err
		}
		if err := s.images.Put(ctx, name, gcs.ContentType(name), image.Data); err != nil {
			return nil, fmt.Errorf("Create: storing image: %w", err)
		}
		r.ImagePath = &name
	}

	if err := s.repo.CreateRecipe(ctx, r); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	s.audit.Record(ctx, audit.Event{
		UserID:     actor.ID,
		Action:     "recipe.create",
		EntityType: "recipe",
		EntityID:   &r.ID,
		Details:    fmt.Sprintf("Created recipe: %s", r.Title),
	})
	return r, nil
}

// Update applies patch to a recipe.
func (s *Service) Update(ctx context.Context, actor *domain.User, id int64, patch domain.RecipePatch) (*domain.Recipe, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, fmt.Errorf("%w: title must not be blank", domain.ErrValidation)
	}

	r, err := s.repo.GetRecipe(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}
	if patch.Title != nil {
		r.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Category != nil {
		r.Category = patch.Category
	}
	if patch.Description != nil {
		r.Description = patch.Description
	}
	if patch.Ingredients != nil {
		r.Ingredients = *patch.Ingredients
	}
	if patch.Instructions != nil {
		r.Instructions = patch.Instructions
	}
	if patch.PrepTime != nil {
		r.PrepTime = patch.PrepTime
	}
	if patch.CookTime != nil {
		r.CookTime = patch.CookTime
	}
	if patch.Servings != nil {
		r.Servings = patch.Servings
	}

	if err := s.repo.UpdateRecipe(ctx, r); err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}

	s.audit.Record(ctx, audit.Event{
		UserID:     actor.ID,
		Action:     "recipe.update",
		EntityType: "recipe",
		EntityID:   &r.ID,
		Details:    fmt.Sprintf("Updated recipe: %s", r.Title),
	})
	return r, nil
}

// Delete removes a recipe. Its image object is left in place.
func (s *Service) Delete(ctx context.Context, actor *domain.User, id int64) error {
	if err := domain.RequireAdmin(actor); err != nil {
		return err
	}
	r, err := s.repo.GetRecipe(ctx, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if err := s.repo.DeleteRecipe(ctx, id); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}

	s.audit.Record(ctx, audit.Event{
		UserID:     actor.ID,
		Action:     "recipe.delete",
		EntityType: "recipe",
		EntityID:   &id,
		Details:    fmt.Sprintf("Deleted recipe: %s", r.Title),
	})
	return nil
}
