package handlers

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/dvloznov/ministry-backoffice/internal/api/middleware"
	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/dvloznov/ministry-backoffice/internal/gcs"
	"github.com/dvloznov/ministry-backoffice/internal/recipes"
	"github.com/rs/zerolog"
)

// RecipesHandler serves the recipe catalog.
type RecipesHandler struct {
	svc *recipes.Service
	log zerolog.Logger
}

func NewRecipesHandler(svc *recipes.Service, log zerolog.Logger) *RecipesHandler {
	return &RecipesHandler{svc: svc, log: log}
}

// ingredients accepts either a JSON list or a string holding one.
type ingredients []string

func (in *ingredients) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*in = list
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("ingredients must be a list or a string")
	}
	*in = recipes.ParseIngredients(raw)
	return nil
}

type recipeRequest struct {
	Title        string      `json:"title"`
	Category     *string     `json:"category"`
	Description  *string     `json:"description"`
	Ingredients  ingredients `json:"ingredients"`
	Instructions *string     `json:"instructions"`
	PrepTime     *int        `json:"prep_time"`
	CookTime     *int        `json:"cook_time"`
	Servings     *int        `json:"servings"`
}

func (req recipeRequest) input() recipes.CreateInput {
	return recipes.CreateInput{
		Title:        req.Title,
		Category:     req.Category,
		Description:  req.Description,
		Ingredients:  req.Ingredients,
		Instructions: req.Instructions,
		PrepTime:     req.PrepTime,
		CookTime:     req.CookTime,
		Servings:     req.Servings,
	}
}

// List handles GET /api/recipes?category=
func (h *RecipesHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list recipes")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, orEmpty(list))
}

// Create handles POST /api/recipes with a JSON body, or multipart form
// fields plus an optional "image" file.
func (h *RecipesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var (
		req   recipeRequest
		image *gcs.File
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		var err error
		if image, err = formFile(r, "image"); err != nil {
			writeServiceError(w, h.log, err, "Failed to read upload")
			return
		}
		if req, err = recipeFromForm(r); err != nil {
			writeServiceError(w, h.log, err, "Failed to read form")
			return
		}
	} else if !decodeJSON(w, r, &req) {
		return
	}

	recipe, err := h.svc.Create(r.Context(), middleware.UserFromContext(r.Context()), req.input(), image)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create recipe")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, recipe)
}

func recipeFromForm(r *http.Request) (recipeRequest, error) {
	req := recipeRequest{
		Title:        r.FormValue("title"),
		Category:     optionalForm(r, "category"),
		Description:  optionalForm(r, "description"),
		Ingredients:  recipes.ParseIngredients(r.FormValue("ingredients")),
		Instructions: optionalForm(r, "instructions"),
	}
	for _, f := range []struct {
		key string
		dst **int
	}{{"prep_time", &req.PrepTime}, {"cook_time", &req.CookTime}, {"servings", &req.Servings}} {
		raw := strings.TrimSpace(r.FormValue(f.key))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return recipeRequest{}, fmt.Errorf("%w: %s must be a whole number", domain.ErrValidation, f.key)
		}
		*f.dst = &n
	}
	return req, nil
}

func optionalForm(r *http.Request, key string) *string {
	v := r.FormValue(key)
	if v == "" {
		return nil
	}
	return &v
}

// Update handles PATCH /api/recipes/{id}
func (h *RecipesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch domain.RecipePatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	recipe, err := h.svc.Update(r.Context(), middleware.UserFromContext(r.Context()), id, patch)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update recipe")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, recipe)
}

// Delete handles DELETE /api/recipes/{id}
func (h *RecipesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), middleware.UserFromContext(r.Context()), id); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete recipe")
		return
	}
	message(w, "Recipe deleted")
}
