package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JohanDevl/Exams-Viewer/internal/domain/session"
	"github.com/JohanDevl/Exams-Viewer/internal/domain/statistics"
	"github.com/JohanDevl/Exams-Viewer/internal/persistence"
	"github.com/JohanDevl/Exams-Viewer/internal/service"
)

// maxBodyBytes bounds request bodies; favorites imports are the largest.
const maxBodyBytes = 8 << 20

// Handler holds all dependencies needed by HTTP handlers.
type Handler struct {
	tracker *service.Tracker
	logger  *slog.Logger
}

func NewHandler(tracker *service.Tracker, logger *slog.Logger) *Handler {
	return &Handler{
		tracker: tracker,
		logger:  logger,
	}
}

// SavedResponse wraps the result of a mutation with what the store had to
// do to keep it.
type SavedResponse struct {
	Result  any    `json:"result"`
	Trimmed int    `json:"trimmed,omitempty"`
	Warning string `json:"warning,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, ErrorResponse{Error: msg})
}

func respondSaved(w http.ResponseWriter, status int, result any, res persistence.SaveResult) {
	respondJSON(w, status, SavedResponse{Result: result, Trimmed: res.Trimmed, Warning: res.Warning})
}

// decodeJSON reads the request body into v. It writes a 400 and returns
// false when the body is not valid JSON.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// QuestionNumber accepts a question number sent as a JSON number or as a
// numeric string.
type QuestionNumber int

func (n *QuestionNumber) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	qn, err := session.ParseQuestionNumber(v)
	if err != nil {
		return err
	}
	*n = QuestionNumber(qn)
	return nil
}

type validatable interface {
	Validate() error
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, v validatable) bool {
	if !decodeJSON(w, r, v) {
		return false
	}
	if err := v.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// handleError maps service errors to HTTP responses. Returns true if an
// error was handled (caller should return).
func (h *Handler) handleError(w http.ResponseWriter, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, statistics.ErrNoActiveSession):
		respondError(w, http.StatusConflict, "no active session")
	case errors.Is(err, service.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
	return true
}

// questionNumberParam reads the {questionNumber} path value.
func questionNumberParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	qn, err := session.ParseQuestionNumber(r.PathValue("questionNumber"))
	if err != nil || qn < 1 {
		respondError(w, http.StatusBadRequest, "invalid question number")
		return 0, false
	}
	return qn, true
}

// confirmed guards destructive endpoints: the client must send
// ?confirm=true after asking the user.
func confirmed(w http.ResponseWriter, r *http.Request) bool {
	if r.URL.Query().Get("confirm") != "true" {
		respondError(w, http.StatusPreconditionRequired, "confirmation required: repeat the request with confirm=true")
		return false
	}
	return true
}
