package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/JohanDevl/Exams-Viewer/internal/domain/resume"
	"github.com/JohanDevl/Exams-Viewer/internal/persistence"
)

// ResumeInfo is a saved position checked against the exam as it is now.
type ResumeInfo struct {
	ExamCode string `json:"examCode"`
	resume.Position
	// Valid and Completed are only set when the caller supplied the
	// current question list.
	Valid     *bool `json:"valid,omitempty"`
	Completed bool  `json:"completed"`
}

func (t *Tracker) persistPositions(ctx context.Context) (persistence.SaveResult, error) {
	res, err := t.gw.SaveResumePositions(ctx, t.positions)
	if errors.Is(err, persistence.ErrQuotaWarning) {
		t.logger.Warn("resume positions kept in memory only", "error", err)
		return res, nil
	}
	if err != nil {
		t.logger.Error("failed to save resume positions", "error", err)
	}
	return res, err
}

// SaveResumePosition records where the user is in an exam. The current
// session id is attached when a session of that exam is active.
func (t *Tracker) SaveResumePosition(ctx context.Context, examCode string, questionIndex, questionNumber, totalQuestions int) (ResumeInfo, persistence.SaveResult, error) {
	examCode, err := validExamCode(examCode)
	if err != nil {
		return ResumeInfo{}, persistence.SaveResult{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var sessionID string
	if cur := t.stats.CurrentSession; cur != nil && cur.ExamCode == examCode {
		sessionID = cur.ID
	}
	pos, err := t.positions.Save(examCode, questionIndex, questionNumber, totalQuestions, sessionID, t.now())
	if err != nil {
		return ResumeInfo{}, persistence.SaveResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	res, err := t.persistPositions(ctx)
	return ResumeInfo{ExamCode: examCode, Position: pos, Completed: pos.Completed()}, res, err
}

// ResumePosition returns the saved position of an exam. When
// questionNumbers is not empty the position is validated against it.
func (t *Tracker) ResumePosition(examCode string, questionNumbers []int) (ResumeInfo, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos, ok := t.positions.Get(examCode)
	if !ok {
		return ResumeInfo{}, false
	}
	info := ResumeInfo{ExamCode: examCode, Position: pos, Completed: pos.Completed()}
	if len(questionNumbers) > 0 {
		valid := pos.Valid(questionNumbers)
		info.Valid = &valid
	}
	return info, true
}

// ClearResumePosition forgets the position of an exam and reports whether
// one was saved.
func (t *Tracker) ClearResumePosition(ctx context.Context, examCode string) (bool, persistence.SaveResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.positions.Clear(examCode) {
		return false, persistence.SaveResult{}, nil
	}
	res, err := t.persistPositions(ctx)
	return true, res, err
}

func (t *Tracker) ResetResumePositions(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.gw.ResetResumePositions(ctx); err != nil {
		return err
	}
	t.positions = resume.Positions{}
	return nil
}
