package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JohanDevl/Exams-Viewer/internal/api"
	"github.com/JohanDevl/Exams-Viewer/internal/persistence"
	"github.com/JohanDevl/Exams-Viewer/internal/service"
	"github.com/JohanDevl/Exams-Viewer/internal/store"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	now     time.Time
}

func newTestServer(t *testing.T, quota int64) *testServer {
	t.Helper()
	ts := &testServer{t: t, now: time.UnixMilli(1750000000000)}
	clock := func() time.Time { return ts.now }

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	gw := persistence.New(store.NewMemory(quota), persistence.DefaultOptions(), logger).WithClock(clock)
	tracker, _ := service.NewTracker(context.Background(), gw, logger)
	tracker.WithClock(clock)

	mux := http.NewServeMux()
	api.RegisterRoutes(mux, api.NewHandler(tracker, logger))
	ts.handler = api.Logging(logger)(api.CORS(mux))
	return ts
}

func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestSessionFlow(t *testing.T) {
	ts := newTestServer(t, 0)

	rec := ts.do(http.MethodPost, "/sessions", map[string]any{"examCode": "AZ-900", "examName": "Azure Fundamentals"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = ts.do(http.MethodPost, "/sessions/current/attempts", map[string]any{
		"questionNumber":  3,
		"correctAnswers":  []string{"A", "C"},
		"selectedAnswers": []string{"A", "C"},
		"isCorrect":       true,
		"timeSpent":       20,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var saved struct {
		Result struct {
			QuestionNumber int    `json:"qn"`
			FirstAction    string `json:"fat"`
			FinalScore     int    `json:"fs"`
		} `json:"result"`
		Warning string `json:"warning"`
	}
	decode(t, rec, &saved)
	assert.Equal(t, 3, saved.Result.QuestionNumber)
	assert.Equal(t, "c", saved.Result.FirstAction)
	assert.Equal(t, 100, saved.Result.FinalScore)
	assert.Empty(t, saved.Warning)

	rec = ts.do(http.MethodPost, "/sessions/current/highlights", map[string]any{"questionNumber": 4, "kind": "view"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	ts.now = ts.now.Add(2 * time.Minute)
	rec = ts.do(http.MethodPost, "/sessions/current/end", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodGet, "/statistics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		Sessions   []json.RawMessage `json:"sessions"`
		TotalStats struct {
			TotalQuestions         int `json:"totalQuestions"`
			TotalCorrect           int `json:"totalCorrect"`
			TotalHighlightAttempts int `json:"totalHighlightAttempts"`
		} `json:"totalStats"`
	}
	decode(t, rec, &stats)
	assert.Len(t, stats.Sessions, 1)
	// The highlighted question counts as previewed.
	assert.Equal(t, 2, stats.TotalStats.TotalQuestions)
	assert.Equal(t, 1, stats.TotalStats.TotalCorrect)
	assert.Equal(t, 1, stats.TotalStats.TotalHighlightAttempts)

	rec = ts.do(http.MethodGet, "/exams/AZ-900/questions/3/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status struct {
		Primary string `json:"primaryStatus"`
	}
	decode(t, rec, &status)
	assert.Equal(t, "correct", status.Primary)
}

func TestQuestionNumberAsString(t *testing.T) {
	ts := newTestServer(t, 0)
	require.Equal(t, http.StatusCreated, ts.do(http.MethodPost, "/sessions", map[string]any{"examCode": "AZ-900"}).Code)

	rec := ts.do(http.MethodPost, "/sessions/current/attempts", map[string]any{
		"questionNumber":  "3",
		"correctAnswers":  []string{"A"},
		"selectedAnswers": []string{"B"},
		"isCorrect":       false,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var saved struct {
		Result struct {
			QuestionNumber int    `json:"qn"`
			FirstAction    string `json:"fat"`
		} `json:"result"`
	}
	decode(t, rec, &saved)
	assert.Equal(t, 3, saved.Result.QuestionNumber)
	assert.Equal(t, "i", saved.Result.FirstAction)

	rec = ts.do(http.MethodPost, "/sessions/current/visits", map[string]any{"questionNumber": "4"})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodPost, "/sessions/current/highlights", map[string]any{"questionNumber": "x1", "kind": "view"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNoActiveSessionConflict(t *testing.T) {
	ts := newTestServer(t, 0)

	for _, path := range []string{"/sessions/current/visits", "/sessions/current/resets"} {
		rec := ts.do(http.MethodPost, path, map[string]any{"questionNumber": 1})
		assert.Equal(t, http.StatusConflict, rec.Code, path)
	}
	assert.Equal(t, http.StatusConflict, ts.do(http.MethodGet, "/sessions/current", nil).Code)
}

func TestBadRequests(t *testing.T) {
	ts := newTestServer(t, 0)
	ts.do(http.MethodPost, "/sessions", map[string]any{"examCode": "AZ-900"})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"missing exam code", http.MethodPost, "/sessions", map[string]any{"examName": "x"}},
		{"bad question number", http.MethodPost, "/sessions/current/visits", map[string]any{"questionNumber": 0}},
		{"unknown highlight kind", http.MethodPost, "/sessions/current/highlights", map[string]any{"questionNumber": 1, "kind": "hover"}},
		{"non numeric path", http.MethodGet, "/exams/AZ-900/questions/abc/status", nil},
		{"unknown category", http.MethodPut, "/favorites/AZ-900/1/category", map[string]any{"category": "Nope"}},
		{"bad keep", http.MethodPost, "/statistics/clean?keep=-1", nil},
		{"reserved category", http.MethodPost, "/categories", map[string]any{"name": "important"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestResetRequiresConfirmation(t *testing.T) {
	ts := newTestServer(t, 0)

	for _, path := range []string{"/statistics", "/favorites", "/resume"} {
		assert.Equal(t, http.StatusPreconditionRequired, ts.do(http.MethodDelete, path, nil).Code, path)
		assert.Equal(t, http.StatusNoContent, ts.do(http.MethodDelete, path+"?confirm=true", nil).Code, path)
	}
}

func TestFavoritesRoutes(t *testing.T) {
	ts := newTestServer(t, 0)

	require.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/favorites/AZ-900/2/favorite", nil).Code)
	require.Equal(t, http.StatusOK, ts.do(http.MethodPut, "/favorites/AZ-900/2/note", map[string]any{"note": "tricky"}).Code)
	require.Equal(t, http.StatusCreated, ts.do(http.MethodPost, "/categories", map[string]any{"name": "Networking"}).Code)
	require.Equal(t, http.StatusOK, ts.do(http.MethodPut, "/favorites/AZ-900/2/category", map[string]any{"category": "Networking"}).Code)

	rec := ts.do(http.MethodGet, "/favorites/AZ-900?filter=category&category=Networking", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var query struct {
		Questions []int `json:"questions"`
	}
	decode(t, rec, &query)
	assert.Equal(t, []int{2}, query.Questions)

	rec = ts.do(http.MethodGet, "/favorites/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	exported := rec.Body.Bytes()

	// Import the export into a fresh server.
	other := newTestServer(t, 0)
	req := httptest.NewRequest(http.MethodPost, "/favorites/import", bytes.NewReader(exported))
	rec = httptest.NewRecorder()
	other.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var imported struct {
		Imported int `json:"imported"`
	}
	decode(t, rec, &imported)
	assert.Equal(t, 1, imported.Imported)

	assert.Equal(t, http.StatusNoContent, ts.do(http.MethodDelete, "/categories/Networking", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodDelete, "/categories/Networking", nil).Code)
}

func TestResumeRoutes(t *testing.T) {
	ts := newTestServer(t, 0)

	rec := ts.do(http.MethodPut, "/resume/AZ-900", map[string]any{"questionIndex": 1, "questionNumber": 2, "totalQuestions": 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodGet, "/resume/AZ-900?questions=1,2,3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var info struct {
		QuestionNumber int   `json:"questionNumber"`
		Valid          *bool `json:"valid"`
	}
	decode(t, rec, &info)
	assert.Equal(t, 2, info.QuestionNumber)
	require.NotNil(t, info.Valid)
	assert.True(t, *info.Valid)

	assert.Equal(t, http.StatusNoContent, ts.do(http.MethodDelete, "/resume/AZ-900", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/resume/AZ-900", nil).Code)
}

func TestQuotaWarningInResponse(t *testing.T) {
	ts := newTestServer(t, 64)

	rec := ts.do(http.MethodPost, "/sessions", map[string]any{"examCode": "AZ-900"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var saved struct {
		Warning string `json:"warning"`
	}
	decode(t, rec, &saved)
	assert.NotEmpty(t, saved.Warning)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, 0)

	rec := ts.do(http.MethodOptions, "/statistics", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
