package api

import (
	"net/http"
)

type SetNoteRequest struct {
	Note string `json:"note"`
}

type SetCategoryRequest struct {
	// Category is a default or custom category name; empty clears it.
	Category string `json:"category"`
}

type ExamFavoritesResponse struct {
	ExamCode  string `json:"examCode"`
	Filter    string `json:"filter"`
	Questions []int  `json:"questions"`
}

// listFavorites returns the whole favorites document.
// @Summary      Get favorites
// @Tags         Favorites
// @Produce      json
// @Success      200  {object}  favorites.Data
// @Router       /favorites [get]
func (h *Handler) listFavorites(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.tracker.Favorites())
}

// examFavorites lists the question numbers of an exam matching a filter.
// @Summary      Query favorites of an exam
// @Tags         Favorites
// @Produce      json
// @Param        examCode  path      string  true   "Exam code"
// @Param        filter    query     string  false  "favorites (default), notes or category"
// @Param        category  query     string  false  "Category name for the category filter"
// @Success      200       {object}  ExamFavoritesResponse
// @Failure      400       {object}  ErrorResponse
// @Router       /favorites/{examCode} [get]
func (h *Handler) examFavorites(w http.ResponseWriter, r *http.Request) {
	examCode := r.PathValue("examCode")
	filter := r.URL.Query().Get("filter")

	questions, err := h.tracker.FavoriteQuestions(examCode, filter, r.URL.Query().Get("category"))
	if h.handleError(w, err) {
		return
	}
	if filter == "" {
		filter = "favorites"
	}
	if questions == nil {
		questions = []int{}
	}
	respondJSON(w, http.StatusOK, ExamFavoritesResponse{ExamCode: examCode, Filter: filter, Questions: questions})
}

// toggleFavorite flips the favorite flag of a question.
// @Summary      Toggle favorite
// @Tags         Favorites
// @Produce      json
// @Param        examCode        path      string  true  "Exam code"
// @Param        questionNumber  path      int     true  "Question number"
// @Success      200             {object}  SavedResponse
// @Failure      400             {object}  ErrorResponse
// @Router       /favorites/{examCode}/{questionNumber}/favorite [post]
func (h *Handler) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	qn, ok := questionNumberParam(w, r)
	if !ok {
		return
	}

	e, res, err := h.tracker.ToggleFavorite(r.Context(), r.PathValue("examCode"), qn)
	if h.handleError(w, err) {
		return
	}
	respondSaved(w, http.StatusOK, e, res)
}

// setNote replaces the note of a question.
// @Summary      Set note
// @Tags         Favorites
// @Accept       json
// @Produce      json
// @Param        examCode        path      string          true  "Exam code"
// @Param        questionNumber  path      int             true  "Question number"
// @Param        body            body      SetNoteRequest  true  "Note"
// @Success      200             {object}  SavedResponse
// @Failure      400             {object}  ErrorResponse
// @Router       /favorites/{examCode}/{questionNumber}/note [put]
func (h *Handler) setNote(w http.ResponseWriter, r *http.Request) {
	qn, ok := questionNumberParam(w, r)
	if !ok {
		return
	}
	var req SetNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	e, res, err := h.tracker.SetNote(r.Context(), r.PathValue("examCode"), qn, req.Note)
	if h.handleError(w, err) {
		return
	}
	respondSaved(w, http.StatusOK, e, res)
}

// setCategory assigns a category to a question.
// @Summary      Set category
// @Tags         Favorites
// @Accept       json
// @Produce      json
// @Param        examCode        path      string              true  "Exam code"
// @Param        questionNumber  path      int                 true  "Question number"
// @Param        body            body      SetCategoryRequest  true  "Category"
// @Success      200             {object}  SavedResponse
// @Failure      400             {object}  ErrorResponse  "unknown category"
// @Router       /favorites/{examCode}/{questionNumber}/category [put]
func (h *Handler) setCategory(w http.ResponseWriter, r *http.Request) {
	qn, ok := questionNumberParam(w, r)
	if !ok {
		return
	}
	var req SetCategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	e, res, err := h.tracker.SetCategory(r.Context(), r.PathValue("examCode"), qn, req.Category)
	if h.handleError(w, err) {
		return
	}
	respondSaved(w, http.StatusOK, e, res)
}

// resetFavorites deletes every favorite, note and custom category.
// @Summary      Reset favorites
// @Tags         Favorites
// @Param        confirm  query  bool  true  "Must be true"
// @Success      204
// @Failure      428  {object}  ErrorResponse  "confirmation required"
// @Router       /favorites [delete]
func (h *Handler) resetFavorites(w http.ResponseWriter, r *http.Request) {
	if !confirmed(w, r) {
		return
	}
	if h.handleError(w, h.tracker.ResetFavorites(r.Context())) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
