package domain

import "time"

// Recipe is a catalog entry. Ingredients is an ordered list of lines.
type Recipe struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Category     *string    `json:"category"`
	Description  *string    `json:"description"`
	Ingredients  []string   `json:"ingredients"`
	Instructions *string    `json:"instructions"`
	PrepTime     *int       `json:"prep_time"`
	CookTime     *int       `json:"cook_time"`
	Servings     *int       `json:"servings"`
	ImagePath    *string    `json:"image_path"`
	CreatedBy    int64      `json:"created_by"`
	CreatorName  *string    `json:"creator_name"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

// RecipePatch carries the optional fields of a recipe update.
type RecipePatch struct {
	Title        *string   `json:"title"`
	Category     *string   `json:"category"`
	Description  *string   `json:"description"`
	Ingredients  *[]string `json:"ingredients"`
	Instructions *string   `json:"instructions"`
	PrepTime     *int      `json:"prep_time"`
	CookTime     *int      `json:"cook_time"`
	Servings     *int      `json:"servings"`
}
