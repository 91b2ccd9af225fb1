package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/streamhive/content-core/pkg/contentcore"
)

// CategoryHandler handles HTTP requests for categories.
type CategoryHandler struct {
	svc contentcore.Service
}

// NewCategoryHandler creates a new category handler.
func NewCategoryHandler(svc contentcore.Service) *CategoryHandler {
	return &CategoryHandler{svc: svc}
}

// Routes returns the routes for categories.
func (h *CategoryHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateCategory)
	r.Get("/", h.ListCategories)
	r.Get("/{idOrSlug}", h.GetCategory)
	r.Patch("/{id}", h.UpdateCategory)
	r.Delete("/{id}", h.DeleteCategory)

	return r
}

type categoryPayload struct {
	Name string `json:"name"`
}

// CreateCategory creates a new category.
func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var payload categoryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, contentcore.Validationf("invalid payload"))
		return
	}

	category, err := h.svc.CreateCategory(r.Context(), contentcore.CreateCategoryRequest{
		Name: payload.Name,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, category)
}

// GetCategory retrieves one category by id or slug.
func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.svc.GetCategory(r.Context(), chi.URLParam(r, "idOrSlug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, category)
}

// ListCategories lists a page of categories.
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	result, err := h.svc.ListCategories(r.Context(), contentcore.ListCategoriesRequest{
		Filter: contentcore.CategoryFilter{
			Name:  q.Get("name"),
			Page:  page,
			Limit: limit,
		},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// UpdateCategory renames a category.
func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, contentcore.Validationf("category id is not valid"))
		return
	}
	var payload categoryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, contentcore.Validationf("invalid payload"))
		return
	}

	category, err := h.svc.UpdateCategory(r.Context(), contentcore.UpdateCategoryRequest{
		ID:   id,
		Name: payload.Name,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, category)
}

// DeleteCategory removes a category with no remaining content.
func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, contentcore.Validationf("category id is not valid"))
		return
	}

	if err := h.svc.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
