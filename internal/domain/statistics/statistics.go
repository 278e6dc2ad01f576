package statistics

import (
	"errors"
	"time"

	"github.com/JohanDevl/Exams-Viewer/internal/domain/session"
)

// SchemaVersion is the shape written by this release. Documents without a
// version are upgraded by the migrate package.
const SchemaVersion = 3

// ErrNoActiveSession is returned by operations that need a current
// session. UI races produce it routinely; callers may ignore it.
var ErrNoActiveSession = errors.New("no active session")

// Statistics is the persisted statistics document. The session list is
// the source of truth; TotalStats is rebuilt from it by Recalculate.
type Statistics struct {
	SchemaVersion  int                `json:"schemaVersion"`
	Sessions       []*session.Session `json:"sessions"`
	CurrentSession *session.Session   `json:"currentSession"`
	TotalStats     AggregateStats     `json:"totalStats"`
}

// Default returns the empty statistics document.
func Default() *Statistics {
	return &Statistics{
		SchemaVersion: SchemaVersion,
		Sessions:      []*session.Session{},
		TotalStats:    emptyAggregate(),
	}
}

// Recalculate rebuilds TotalStats from the session history.
func (s *Statistics) Recalculate() {
	s.TotalStats = Recalculate(s.Sessions)
}

// StartSession makes a new session current. A session that is still
// current is ended first and moved to history.
func (s *Statistics) StartSession(examCode, examName string, resumed bool, now time.Time) *session.Session {
	if s.CurrentSession != nil {
		_, _ = s.EndSession(now)
	}
	cur := session.New(examCode, examName, now)
	cur.IsResumeSession = resumed
	s.CurrentSession = cur
	return cur
}

// EndSession closes the current session, appends it to history and
// recalculates the aggregates.
func (s *Statistics) EndSession(now time.Time) (*session.Session, error) {
	cur := s.CurrentSession
	if cur == nil {
		return nil, ErrNoActiveSession
	}
	cur.End(now)
	s.Sessions = append(s.Sessions, cur)
	s.CurrentSession = nil
	s.Recalculate()
	return cur, nil
}

// RecordAttempt records a validated answer in the current session.
func (s *Statistics) RecordAttempt(questionNumber int, correctAnswers, selected []string, isCorrect bool, timeSpent int, wasPreview bool, now time.Time) (*session.QuestionAttempt, error) {
	if s.CurrentSession == nil {
		return nil, ErrNoActiveSession
	}
	return s.CurrentSession.RecordAttempt(questionNumber, correctAnswers, selected, isCorrect, timeSpent, wasPreview, now), nil
}

// RecordVisit marks a question of the current session as seen.
func (s *Statistics) RecordVisit(questionNumber int, now time.Time) (*session.QuestionAttempt, error) {
	if s.CurrentSession == nil {
		return nil, ErrNoActiveSession
	}
	return s.CurrentSession.RecordVisit(questionNumber, now), nil
}

// RecordHighlight counts a preview interaction in the current session.
func (s *Statistics) RecordHighlight(questionNumber int, kind session.HighlightKind, now time.Time) (*session.QuestionAttempt, error) {
	if s.CurrentSession == nil {
		return nil, ErrNoActiveSession
	}
	return s.CurrentSession.RecordHighlight(questionNumber, kind, now), nil
}

// ResetAttempt resets the current answer of a question in the current session.
func (s *Statistics) ResetAttempt(questionNumber int, now time.Time) (*session.QuestionAttempt, error) {
	if s.CurrentSession == nil {
		return nil, ErrNoActiveSession
	}
	return s.CurrentSession.ResetQuestion(questionNumber, now), nil
}

// Trim keeps only the keep most recent sessions and returns how many were
// removed. Aggregates are recalculated when anything was removed.
func (s *Statistics) Trim(keep int) int {
	if keep < 0 || len(s.Sessions) <= keep {
		return 0
	}
	removed := len(s.Sessions) - keep
	kept := make([]*session.Session, keep)
	copy(kept, s.Sessions[removed:])
	s.Sessions = kept
	s.Recalculate()
	return removed
}

// RepairCounters recounts every session when any stored total is
// implausibly high (more than ten times the questions actually answered),
// which older releases could produce. Sessions without question records
// have nothing to recount from and are left alone. It reports whether a
// repair ran.
func (s *Statistics) RepairCounters() bool {
	corrupted := false
	for _, sess := range s.Sessions {
		if len(sess.Questions) > 0 && sess.TotalQuestions > sess.AnsweredQuestions()*10 {
			corrupted = true
			break
		}
	}
	if !corrupted {
		return false
	}
	for _, sess := range s.Sessions {
		if len(sess.Questions) > 0 {
			sess.Recount()
		}
	}
	s.Recalculate()
	return true
}
