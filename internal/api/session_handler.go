package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/JohanDevl/Exams-Viewer/internal/service"
)

// ── Request types ───────────────────────────────────────────────────────────

type StartSessionRequest struct {
	ExamCode string `json:"examCode"`
	ExamName string `json:"examName"`
	Resume   bool   `json:"resume"`
}

func (r *StartSessionRequest) Validate() error {
	if strings.TrimSpace(r.ExamCode) == "" {
		return errors.New("examCode is required")
	}
	return nil
}

type RecordAttemptRequest struct {
	QuestionNumber      QuestionNumber `json:"questionNumber" swaggertype:"integer"`
	CorrectAnswers      []string       `json:"correctAnswers"`
	SelectedAnswers     []string       `json:"selectedAnswers"`
	IsCorrect           bool           `json:"isCorrect"`
	TimeSpent           int            `json:"timeSpent"`
	WasHighlightEnabled bool           `json:"wasHighlightEnabled"`
}

func (r *RecordAttemptRequest) Validate() error {
	if r.QuestionNumber < 1 {
		return errors.New("questionNumber must be positive")
	}
	if len(r.SelectedAnswers) == 0 && !r.WasHighlightEnabled {
		return errors.New("selectedAnswers is required")
	}
	return nil
}

type QuestionRequest struct {
	QuestionNumber QuestionNumber `json:"questionNumber" swaggertype:"integer"`
}

func (r *QuestionRequest) Validate() error {
	if r.QuestionNumber < 1 {
		return errors.New("questionNumber must be positive")
	}
	return nil
}

type RecordHighlightRequest struct {
	QuestionNumber QuestionNumber `json:"questionNumber" swaggertype:"integer"`
	Kind           string         `json:"kind"`
}

func (r *RecordHighlightRequest) Validate() error {
	if r.QuestionNumber < 1 {
		return errors.New("questionNumber must be positive")
	}
	if r.Kind == "" {
		r.Kind = "button_click"
	}
	return nil
}

// ── Handlers ────────────────────────────────────────────────────────────────

// startSession starts a study session, ending any current one.
// @Summary      Start a session
// @Description  Ends the current session, if any, and starts a new one for an exam.
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        body  body      StartSessionRequest  true  "Exam to study"
// @Success      201   {object}  SavedResponse
// @Failure      400   {object}  ErrorResponse
// @Router       /sessions [post]
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	sess, res, err := h.tracker.StartSession(r.Context(), req.ExamCode, req.ExamName, req.Resume)
	if h.handleError(w, err) {
		return
	}
	respondSaved(w, http.StatusCreated, sess, res)
}

// getCurrentSession returns the active session.
// @Summary      Get the current session
// @Tags         Sessions
// @Produce      json
// @Success      200  {object}  session.Session
// @Failure      409  {object}  ErrorResponse  "no active session"
// @Router       /sessions/current [get]
func (h *Handler) getCurrentSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.tracker.CurrentSession()
	if h.handleError(w, err) {
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

// endSession closes the active session and moves it to history.
// @Summary      End the current session
// @Tags         Sessions
// @Produce      json
// @Success      200  {object}  SavedResponse
// @Failure      409  {object}  ErrorResponse  "no active session"
// @Router       /sessions/current/end [post]
func (h *Handler) endSession(w http.ResponseWriter, r *http.Request) {
	sess, res, err := h.tracker.EndSession(r.Context())
	if h.handleError(w, err) {
		return
	}
	respondSaved(w, http.StatusOK, sess, res)
}

// recordAttempt records a validated answer.
// @Summary      Record an answer
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        body  body      RecordAttemptRequest  true  "Answer"
// @Success      200   {object}  SavedResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse  "no active session"
// @Router       /sessions/current/attempts [post]
func (h *Handler) recordAttempt(w http.ResponseWriter, r *http.Request) {
	var req RecordAttemptRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	q, res, err := h.tracker.RecordAttempt(r.Context(), service.AttemptInput{
		QuestionNumber:  int(req.QuestionNumber),
		CorrectAnswers:  req.CorrectAnswers,
		SelectedAnswers: req.SelectedAnswers,
		IsCorrect:       req.IsCorrect,
		TimeSpent:       req.TimeSpent,
		WasPreview:      req.WasHighlightEnabled,
	})
	if h.handleError(w, err) {
		return
	}
	respondSaved(w, http.StatusOK, q, res)
}

// recordVisit marks a question as seen.
// @Summary      Record a visit
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        body  body      QuestionRequest  true  "Visited question"
// @Success      200   {object}  SavedResponse
// @Failure      409   {object}  ErrorResponse  "no active session"
// @Router       /sessions/current/visits [post]
func (h *Handler) recordVisit(w http.ResponseWriter, r *http.Request) {
	var req QuestionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	q, res, err := h.tracker.RecordVisit(r.Context(), int(req.QuestionNumber))
	if h.handleError(w, err) {
		return
	}
	respondSaved(w, http.StatusOK, q, res)
}

// recordHighlight counts a preview interaction.
// @Summary      Record a highlight
// @Description  kind is "button_click" (default) or "view".
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        body  body      RecordHighlightRequest  true  "Highlight"
// @Success      200   {object}  SavedResponse
// @Failure      409   {object}  ErrorResponse  "no active session"
// @Router       /sessions/current/highlights [post]
func (h *Handler) recordHighlight(w http.ResponseWriter, r *http.Request) {
	var req RecordHighlightRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	q, res, err := h.tracker.RecordHighlight(r.Context(), int(req.QuestionNumber), req.Kind)
	if h.handleError(w, err) {
		return
	}
	respondSaved(w, http.StatusOK, q, res)
}

// resetQuestion clears the answer of a question; its first action is kept.
// @Summary      Reset a question
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        body  body      QuestionRequest  true  "Question to reset"
// @Success      200   {object}  SavedResponse
// @Failure      409   {object}  ErrorResponse  "no active session"
// @Router       /sessions/current/resets [post]
func (h *Handler) resetQuestion(w http.ResponseWriter, r *http.Request) {
	var req QuestionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	q, res, err := h.tracker.ResetAttempt(r.Context(), int(req.QuestionNumber))
	if h.handleError(w, err) {
		return
	}
	respondSaved(w, http.StatusOK, q, res)
}
