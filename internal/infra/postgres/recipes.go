package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/jackc/pgx/v5"
)

const recipeSelect = `
	SELECT r.id, r.title, r.category, r.description, r.ingredients, r.instructions,
	       r.prep_time, r.cook_time, r.servings, r.image_path, r.created_by, u.name,
	       r.created_at, r.updated_at
	FROM recipes r
	LEFT JOIN users u ON u.id = r.created_by`

func scanRecipe(row pgx.Row) (*domain.Recipe, error) {
	var (
		r           domain.Recipe
		ingredients []byte
	)
	err := row.Scan(&r.ID, &r.Title, &r.Category, &r.Description, &ingredients, &r.Instructions,
		&r.PrepTime, &r.CookTime, &r.Servings, &r.ImagePath, &r.CreatedBy, &r.CreatorName,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Ingredients = []string{}
	if len(ingredients) > 0 {
		if err := json.Unmarshal(ingredients, &r.Ingredients); err != nil {
			return nil, fmt.Errorf("decoding ingredients of recipe %d: %w", r.ID, err)
		}
	}
	return &r, nil
}

func encodeIngredients(list []string) ([]byte, error) {
	if list == nil {
		list = []string{}
	}
	return json.Marshal(list)
}

func (s *Store) ListRecipes(ctx context.Context, category string) ([]*domain.Recipe, error) {
	rows, err := s.db.Query(ctx, recipeSelect+`
		WHERE ($1 = '' OR r.category = $1)
		ORDER BY r.created_at DESC, r.id DESC`, category)
	if err != nil {
		return nil, mapErr("ListRecipes", err)
	}
	defer rows.Close()

	var out []*domain.Recipe
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, mapErr("ListRecipes: scanning", err)
		}
		out = append(out, r)
	}
	return out, mapErr("ListRecipes", rows.Err())
}

func (s *Store) GetRecipe(ctx context.Context, id int64) (*domain.Recipe, error) {
	r, err := scanRecipe(s.db.QueryRow(ctx, recipeSelect+` WHERE r.id = $1`, id))
	if err != nil {
		return nil, mapErr(fmt.Sprintf("GetRecipe: recipe %d", id), err)
	}
	return r, nil
}

func (s *Store) CreateRecipe(ctx context.Context, r *domain.Recipe) error {
	ingredients, err := encodeIngredients(r.Ingredients)
	if err != nil {
		return fmt.Errorf("CreateRecipe: %w", err)
	}
	err = s.db.QueryRow(ctx, `
		INSERT INTO recipes (title, category, description, ingredients, instructions,
		                     prep_time, cook_time, servings, image_path, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`,
		r.Title, r.Category, r.Description, ingredients, r.Instructions,
		r.PrepTime, r.CookTime, r.Servings, r.ImagePath, r.CreatedBy,
	).Scan(&r.ID, &r.CreatedAt)
	return mapErr("CreateRecipe", err)
}

func (s *Store) UpdateRecipe(ctx context.Context, r *domain.Recipe) error {
	ingredients, err := encodeIngredients(r.Ingredients)
	if err != nil {
		return fmt.Errorf("UpdateRecipe: %w", err)
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE recipes
		SET title = $2, category = $3, description = $4, ingredients = $5, instructions = $6,
		    prep_time = $7, cook_time = $8, servings = $9, image_path = $10, updated_at = now()
		WHERE id = $1`,
		r.ID, r.Title, r.Category, r.Description, ingredients, r.Instructions,
		r.PrepTime, r.CookTime, r.Servings, r.ImagePath)
	return requireRow(fmt.Sprintf("UpdateRecipe: recipe %d", r.ID), tag, err)
}

func (s *Store) DeleteRecipe(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM recipes WHERE id = $1`, id)
	return requireRow(fmt.Sprintf("DeleteRecipe: recipe %d", id), tag, err)
}
