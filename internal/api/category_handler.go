package api

import (
	"errors"
	"net/http"
	"strings"
)

type CreateCategoryRequest struct {
	Name string `json:"name"`
}

func (r *CreateCategoryRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

type CreateCategoryResponse struct {
	Name    string `json:"name"`
	Created bool   `json:"created"`
	Warning string `json:"warning,omitempty"`
}

// createCategory adds a custom category.
// @Summary      Create a category
// @Description  Adds a custom favorites category. Default names are reserved.
// @Tags         Categories
// @Accept       json
// @Produce      json
// @Param        body  body      CreateCategoryRequest  true  "Category to create"
// @Success      201   {object}  CreateCategoryResponse
// @Success      200   {object}  CreateCategoryResponse  "already exists"
// @Failure      400   {object}  ErrorResponse
// @Router       /categories [post]
func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	created, res, err := h.tracker.AddCategory(r.Context(), req.Name)
	if h.handleError(w, err) {
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, CreateCategoryResponse{
		Name:    strings.TrimSpace(req.Name),
		Created: created,
		Warning: res.Warning,
	})
}

// listCategories lists the default and custom categories.
// @Summary      List categories
// @Tags         Categories
// @Produce      json
// @Success      200  {array}  category.Category
// @Router       /categories [get]
func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.tracker.Categories())
}

// deleteCategory removes a custom category and clears it from questions.
// @Summary      Delete a category
// @Tags         Categories
// @Param        name  path  string  true  "Category name"
// @Success      204
// @Failure      400  {object}  ErrorResponse  "default categories cannot be removed"
// @Failure      404  {object}  ErrorResponse
// @Router       /categories/{name} [delete]
func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	removed, _, err := h.tracker.RemoveCategory(r.Context(), r.PathValue("name"))
	if h.handleError(w, err) {
		return
	}
	if !removed {
		respondError(w, http.StatusNotFound, "category not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
