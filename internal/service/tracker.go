// Package service owns the in-memory application state and serializes
// every change to it. Handlers call the Tracker; the Tracker mutates the
// domain documents, recomputes aggregates and persists the result.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/JohanDevl/Exams-Viewer/internal/domain/favorites"
	"github.com/JohanDevl/Exams-Viewer/internal/domain/resume"
	"github.com/JohanDevl/Exams-Viewer/internal/domain/session"
	"github.com/JohanDevl/Exams-Viewer/internal/domain/statistics"
	"github.com/JohanDevl/Exams-Viewer/internal/metrics"
	"github.com/JohanDevl/Exams-Viewer/internal/persistence"
)

// ErrInvalidInput wraps request validation failures.
var ErrInvalidInput = errors.New("invalid input")

// DefaultCleanKeep is how many sessions CleanOldStatistics keeps by default.
const DefaultCleanKeep = 20

// Tracker is the single owner of the statistics, favorites and resume
// documents. All methods are safe for concurrent use.
type Tracker struct {
	gw     *persistence.Gateway
	logger *slog.Logger
	cache  *StatusCache
	now    func() time.Time

	mu        sync.Mutex
	stats     *statistics.Statistics
	favorites *favorites.Data
	positions resume.Positions
}

// NewTracker loads every document through the gateway.
func NewTracker(ctx context.Context, gw *persistence.Gateway, logger *slog.Logger) (*Tracker, persistence.LoadReport) {
	stats, report := gw.LoadStatistics(ctx)
	t := &Tracker{
		gw:        gw,
		logger:    logger,
		cache:     NewStatusCache(StatusCacheSize),
		now:       time.Now,
		stats:     stats,
		favorites: gw.LoadFavorites(ctx),
		positions: gw.LoadResumePositions(ctx),
	}
	logger.Info("statistics loaded",
		"source", report.Source,
		"sessions", len(stats.Sessions),
		"migrated", report.Migration.SessionsUpgraded,
		"resaved", report.Resaved,
	)
	return t, report
}

// WithClock replaces the clock used for timestamps and the fresh-session rule.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// clone returns a deep copy so callers can encode results after the lock
// is released.
func clone[T any](v T) T {
	var out T
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

// persistStatistics writes the statistics document. A quota warning is not
// an error for the caller: the in-memory state stays authoritative and the
// warning travels back in the result.
func (t *Tracker) persistStatistics(ctx context.Context) (persistence.SaveResult, error) {
	res, err := t.gw.SaveStatistics(ctx, t.stats)
	if errors.Is(err, persistence.ErrQuotaWarning) {
		t.logger.Warn("statistics kept in memory only", "error", err)
		return res, nil
	}
	if err != nil {
		t.logger.Error("failed to save statistics", "error", err)
		return res, err
	}
	if res.Trimmed > 0 {
		t.cache.Clear()
	}
	return res, nil
}

// mutateStatistics applies fn and persists the document when fn succeeds.
func (t *Tracker) mutateStatistics(ctx context.Context, fn func(now time.Time) error) (persistence.SaveResult, error) {
	timer := time.Now()
	defer func() { metrics.RecalculateDuration.Observe(time.Since(timer).Seconds()) }()

	if err := fn(t.now()); err != nil {
		return persistence.SaveResult{}, err
	}
	return t.persistStatistics(ctx)
}

func validQuestionNumber(qn int) error {
	if qn < 1 {
		return fmt.Errorf("%w: question number must be positive, got %d", ErrInvalidInput, qn)
	}
	return nil
}

func validExamCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("%w: exam code is required", ErrInvalidInput)
	}
	return code, nil
}

// StartSession ends any current session and starts a new one.
func (t *Tracker) StartSession(ctx context.Context, examCode, examName string, resumed bool) (*session.Session, persistence.SaveResult, error) {
	examCode, err := validExamCode(examCode)
	if err != nil {
		return nil, persistence.SaveResult{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var started *session.Session
	res, err := t.mutateStatistics(ctx, func(now time.Time) error {
		started = t.stats.StartSession(examCode, examName, resumed, now)
		return nil
	})
	t.cache.Clear()
	t.logger.Info("session started", "session_id", started.ID, "exam", examCode, "resumed", resumed)
	return clone(started), res, err
}

// CurrentSession returns a copy of the current session.
func (t *Tracker) CurrentSession() (*session.Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stats.CurrentSession == nil {
		return nil, statistics.ErrNoActiveSession
	}
	return clone(t.stats.CurrentSession), nil
}

func (t *Tracker) EndSession(ctx context.Context) (*session.Session, persistence.SaveResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var ended *session.Session
	res, err := t.mutateStatistics(ctx, func(now time.Time) error {
		var err error
		ended, err = t.stats.EndSession(now)
		return err
	})
	if ended == nil {
		return nil, res, err
	}
	t.cache.Clear()
	t.logger.Info("session ended", "session_id", ended.ID, "exam", ended.ExamCode, "questions", ended.TotalQuestions)
	return clone(ended), res, err
}

// AttemptInput is one validated answer.
type AttemptInput struct {
	QuestionNumber  int
	CorrectAnswers  []string
	SelectedAnswers []string
	IsCorrect       bool
	TimeSpent       int // seconds
	WasPreview      bool
}

func (t *Tracker) RecordAttempt(ctx context.Context, in AttemptInput) (*session.QuestionAttempt, persistence.SaveResult, error) {
	if err := validQuestionNumber(in.QuestionNumber); err != nil {
		return nil, persistence.SaveResult{}, err
	}
	if in.TimeSpent < 0 {
		return nil, persistence.SaveResult{}, fmt.Errorf("%w: time spent must not be negative", ErrInvalidInput)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var q *session.QuestionAttempt
	res, err := t.mutateStatistics(ctx, func(now time.Time) error {
		var err error
		q, err = t.stats.RecordAttempt(in.QuestionNumber, in.CorrectAnswers, in.SelectedAnswers, in.IsCorrect, in.TimeSpent, in.WasPreview, now)
		return err
	})
	return t.questionResult(q, res, err)
}

func (t *Tracker) RecordVisit(ctx context.Context, questionNumber int) (*session.QuestionAttempt, persistence.SaveResult, error) {
	if err := validQuestionNumber(questionNumber); err != nil {
		return nil, persistence.SaveResult{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var q *session.QuestionAttempt
	res, err := t.mutateStatistics(ctx, func(now time.Time) error {
		var err error
		q, err = t.stats.RecordVisit(questionNumber, now)
		return err
	})
	return t.questionResult(q, res, err)
}

func (t *Tracker) RecordHighlight(ctx context.Context, questionNumber int, kind string) (*session.QuestionAttempt, persistence.SaveResult, error) {
	if err := validQuestionNumber(questionNumber); err != nil {
		return nil, persistence.SaveResult{}, err
	}
	k, err := session.ParseHighlightKind(kind)
	if err != nil {
		return nil, persistence.SaveResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var q *session.QuestionAttempt
	res, err := t.mutateStatistics(ctx, func(now time.Time) error {
		var err error
		q, err = t.stats.RecordHighlight(questionNumber, k, now)
		return err
	})
	return t.questionResult(q, res, err)
}

// ResetAttempt clears the answers of a question in the current session.
// The first recorded action survives the reset.
func (t *Tracker) ResetAttempt(ctx context.Context, questionNumber int) (*session.QuestionAttempt, persistence.SaveResult, error) {
	if err := validQuestionNumber(questionNumber); err != nil {
		return nil, persistence.SaveResult{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var q *session.QuestionAttempt
	res, err := t.mutateStatistics(ctx, func(now time.Time) error {
		var err error
		q, err = t.stats.ResetAttempt(questionNumber, now)
		return err
	})
	return t.questionResult(q, res, err)
}

// questionResult invalidates the cached status of a touched question of
// the current session. Callers hold t.mu.
func (t *Tracker) questionResult(q *session.QuestionAttempt, res persistence.SaveResult, err error) (*session.QuestionAttempt, persistence.SaveResult, error) {
	if q == nil {
		return nil, res, err
	}
	t.cache.Invalidate(StatusKey{ExamCode: t.stats.CurrentSession.ExamCode, QuestionNumber: q.QuestionNumber})
	return clone(q), res, err
}

// Statistics returns a copy of the whole statistics document.
func (t *Tracker) Statistics() *statistics.Statistics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return clone(t.stats)
}

// ResetStatistics discards every session, including the current one.
func (t *Tracker) ResetStatistics(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.gw.ResetStatistics(ctx); err != nil {
		return err
	}
	t.stats = statistics.Default()
	t.cache.Clear()
	return nil
}

// CleanOldStatistics keeps the keep most recent sessions.
func (t *Tracker) CleanOldStatistics(ctx context.Context, keep int) (int, persistence.SaveResult, error) {
	if keep < 0 {
		return 0, persistence.SaveResult{}, fmt.Errorf("%w: keep must not be negative", ErrInvalidInput)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := t.stats.Trim(keep)
	if removed == 0 {
		return 0, persistence.SaveResult{}, nil
	}
	metrics.SessionsTrimmed.Add(float64(removed))
	t.cache.Clear()
	t.logger.Info("cleaned old statistics", "kept", keep, "removed", removed)

	res, err := t.persistStatistics(ctx)
	return removed, res, err
}

// StatisticsExport is the downloadable statistics projection.
type StatisticsExport struct {
	ExportDate    string                    `json:"exportDate"`
	SchemaVersion int                       `json:"schemaVersion"`
	Statistics    *statistics.Statistics    `json:"statistics"`
	Summary       statistics.AggregateStats `json:"summary"`
}

func (t *Tracker) ExportStatistics() StatisticsExport {
	st := t.Statistics()
	return StatisticsExport{
		ExportDate:    t.now().UTC().Format(time.RFC3339),
		SchemaVersion: st.SchemaVersion,
		Statistics:    st,
		Summary:       st.TotalStats,
	}
}

// QuestionStatus combines progress from the statistics with the favorite
// data of one question.
type QuestionStatus struct {
	ExamCode       string `json:"examCode"`
	QuestionNumber int    `json:"questionNumber"`
	Status         string `json:"primaryStatus"`
	statistics.Progress
	IsFavorite    bool   `json:"isFavorite"`
	HasNotes      bool   `json:"hasNotes"`
	IsCategorized bool   `json:"isCategorized"`
	Category      string `json:"category,omitempty"`
}

func (t *Tracker) QuestionStatus(examCode string, questionNumber int) (QuestionStatus, error) {
	examCode, err := validExamCode(examCode)
	if err != nil {
		return QuestionStatus{}, err
	}
	if err := validQuestionNumber(questionNumber); err != nil {
		return QuestionStatus{}, err
	}

	key := StatusKey{ExamCode: examCode, QuestionNumber: questionNumber}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	// The fresh-session window ends without any write, so statuses
	// computed inside it are not cached.
	fresh := t.stats.HidesHistory(now)
	if !fresh {
		if st, ok := t.cache.Get(key); ok {
			return st, nil
		}
	}

	progress := t.stats.QuestionProgress(examCode, questionNumber, now)
	fav := t.favorites.Get(examCode, questionNumber)
	st := QuestionStatus{
		ExamCode:       examCode,
		QuestionNumber: questionNumber,
		Status:         progress.Primary(),
		Progress:       progress,
		IsFavorite:     fav.IsFavorite,
		HasNotes:       fav.HasNote(),
		IsCategorized:  fav.Category != nil,
		Category:       fav.CategoryName(),
	}
	if !fresh {
		t.cache.Put(key, st)
	}
	return st, nil
}
