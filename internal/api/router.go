package api

import "net/http"

// RegisterRoutes wires every API route onto mux.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	// Sessions
	mux.HandleFunc("POST /sessions", h.startSession)
	mux.HandleFunc("GET /sessions/current", h.getCurrentSession)
	mux.HandleFunc("POST /sessions/current/end", h.endSession)
	mux.HandleFunc("POST /sessions/current/attempts", h.recordAttempt)
	mux.HandleFunc("POST /sessions/current/visits", h.recordVisit)
	mux.HandleFunc("POST /sessions/current/highlights", h.recordHighlight)
	mux.HandleFunc("POST /sessions/current/resets", h.resetQuestion)

	// Statistics
	mux.HandleFunc("GET /statistics", h.getStatistics)
	mux.HandleFunc("DELETE /statistics", h.resetStatistics)
	mux.HandleFunc("POST /statistics/clean", h.cleanStatistics)
	mux.HandleFunc("GET /statistics/export", h.exportStatistics)
	mux.HandleFunc("GET /exams/{examCode}/questions/{questionNumber}/status", h.questionStatus)

	// Favorites
	mux.HandleFunc("GET /favorites", h.listFavorites)
	mux.HandleFunc("DELETE /favorites", h.resetFavorites)
	mux.HandleFunc("GET /favorites/export", h.exportFavorites)
	mux.HandleFunc("POST /favorites/import", h.importFavorites)
	mux.HandleFunc("GET /favorites/{examCode}", h.examFavorites)
	mux.HandleFunc("POST /favorites/{examCode}/{questionNumber}/favorite", h.toggleFavorite)
	mux.HandleFunc("PUT /favorites/{examCode}/{questionNumber}/note", h.setNote)
	mux.HandleFunc("PUT /favorites/{examCode}/{questionNumber}/category", h.setCategory)

	// Categories
	mux.HandleFunc("GET /categories", h.listCategories)
	mux.HandleFunc("POST /categories", h.createCategory)
	mux.HandleFunc("DELETE /categories/{name}", h.deleteCategory)

	// Resume positions
	mux.HandleFunc("DELETE /resume", h.resetResume)
	mux.HandleFunc("PUT /resume/{examCode}", h.saveResume)
	mux.HandleFunc("GET /resume/{examCode}", h.getResume)
	mux.HandleFunc("DELETE /resume/{examCode}", h.clearResume)
}
