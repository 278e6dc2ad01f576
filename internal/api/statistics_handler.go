package api

import (
	"net/http"
	"strconv"

	"github.com/JohanDevl/Exams-Viewer/internal/service"
)

type CleanStatisticsResponse struct {
	Removed int    `json:"removed"`
	Kept    int    `json:"kept"`
	Warning string `json:"warning,omitempty"`
}

// getStatistics returns the whole statistics document.
// @Summary      Get statistics
// @Tags         Statistics
// @Produce      json
// @Success      200  {object}  statistics.Statistics
// @Router       /statistics [get]
func (h *Handler) getStatistics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.tracker.Statistics())
}

// resetStatistics deletes every session.
// @Summary      Reset statistics
// @Tags         Statistics
// @Param        confirm  query  bool  true  "Must be true"
// @Success      204
// @Failure      428  {object}  ErrorResponse  "confirmation required"
// @Router       /statistics [delete]
func (h *Handler) resetStatistics(w http.ResponseWriter, r *http.Request) {
	if !confirmed(w, r) {
		return
	}
	if h.handleError(w, h.tracker.ResetStatistics(r.Context())) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// cleanStatistics keeps only the most recent sessions.
// @Summary      Clean old statistics
// @Tags         Statistics
// @Produce      json
// @Param        keep  query     int  false  "Sessions to keep (default 20)"
// @Success      200   {object}  CleanStatisticsResponse
// @Failure      400   {object}  ErrorResponse
// @Router       /statistics/clean [post]
func (h *Handler) cleanStatistics(w http.ResponseWriter, r *http.Request) {
	keep := service.DefaultCleanKeep
	if v := r.URL.Query().Get("keep"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "keep must be a non-negative integer")
			return
		}
		keep = n
	}

	removed, res, err := h.tracker.CleanOldStatistics(r.Context(), keep)
	if h.handleError(w, err) {
		return
	}
	respondJSON(w, http.StatusOK, CleanStatisticsResponse{Removed: removed, Kept: keep, Warning: res.Warning})
}

// questionStatus returns the combined status of one question.
// @Summary      Question status
// @Description  Progress across the current and previous sessions plus favorite data.
// @Tags         Statistics
// @Produce      json
// @Param        examCode        path      string  true  "Exam code"
// @Param        questionNumber  path      int     true  "Question number"
// @Success      200             {object}  service.QuestionStatus
// @Failure      400             {object}  ErrorResponse
// @Router       /exams/{examCode}/questions/{questionNumber}/status [get]
func (h *Handler) questionStatus(w http.ResponseWriter, r *http.Request) {
	qn, ok := questionNumberParam(w, r)
	if !ok {
		return
	}

	st, err := h.tracker.QuestionStatus(r.PathValue("examCode"), qn)
	if h.handleError(w, err) {
		return
	}
	respondJSON(w, http.StatusOK, st)
}
