package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
)

type SaveResumeRequest struct {
	QuestionIndex  int            `json:"questionIndex"`
	QuestionNumber QuestionNumber `json:"questionNumber" swaggertype:"integer"`
	TotalQuestions int            `json:"totalQuestions"`
}

func (r *SaveResumeRequest) Validate() error {
	if r.TotalQuestions < 1 {
		return errors.New("totalQuestions must be positive")
	}
	return nil
}

// parseQuestionList reads a comma-separated list of question numbers.
func parseQuestionList(v string) ([]int, error) {
	if v == "" {
		return nil, nil
	}
	parts := strings.Split(v, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// saveResume records the current position in an exam.
// @Summary      Save resume position
// @Tags         Resume
// @Accept       json
// @Produce      json
// @Param        examCode  path      string             true  "Exam code"
// @Param        body      body      SaveResumeRequest  true  "Position"
// @Success      200       {object}  SavedResponse
// @Failure      400       {object}  ErrorResponse
// @Router       /resume/{examCode} [put]
func (h *Handler) saveResume(w http.ResponseWriter, r *http.Request) {
	var req SaveResumeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	info, res, err := h.tracker.SaveResumePosition(r.Context(), r.PathValue("examCode"), req.QuestionIndex, int(req.QuestionNumber), req.TotalQuestions)
	if h.handleError(w, err) {
		return
	}
	respondSaved(w, http.StatusOK, info, res)
}

// getResume returns the saved position of an exam.
// @Summary      Get resume position
// @Description  With questions (the current ordered question numbers) the position is checked for validity.
// @Tags         Resume
// @Produce      json
// @Param        examCode   path      string  true   "Exam code"
// @Param        questions  query     string  false  "Comma-separated question numbers"
// @Success      200        {object}  service.ResumeInfo
// @Failure      404        {object}  ErrorResponse
// @Router       /resume/{examCode} [get]
func (h *Handler) getResume(w http.ResponseWriter, r *http.Request) {
	questions, err := parseQuestionList(r.URL.Query().Get("questions"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "questions must be a comma-separated list of numbers")
		return
	}

	info, ok := h.tracker.ResumePosition(r.PathValue("examCode"), questions)
	if !ok {
		respondError(w, http.StatusNotFound, "no saved position")
		return
	}
	respondJSON(w, http.StatusOK, info)
}

// clearResume forgets the saved position of an exam.
// @Summary      Clear resume position
// @Tags         Resume
// @Param        examCode  path  string  true  "Exam code"
// @Success      204
// @Failure      404  {object}  ErrorResponse
// @Router       /resume/{examCode} [delete]
func (h *Handler) clearResume(w http.ResponseWriter, r *http.Request) {
	cleared, _, err := h.tracker.ClearResumePosition(r.Context(), r.PathValue("examCode"))
	if h.handleError(w, err) {
		return
	}
	if !cleared {
		respondError(w, http.StatusNotFound, "no saved position")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// resetResume deletes every saved position.
// @Summary      Reset resume positions
// @Tags         Resume
// @Param        confirm  query  bool  true  "Must be true"
// @Success      204
// @Failure      428  {object}  ErrorResponse  "confirmation required"
// @Router       /resume [delete]
func (h *Handler) resetResume(w http.ResponseWriter, r *http.Request) {
	if !confirmed(w, r) {
		return
	}
	if h.handleError(w, h.tracker.ResetResumePositions(r.Context())) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
