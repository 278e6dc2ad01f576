package statistics

import (
	"time"

	"github.com/JohanDevl/Exams-Viewer/internal/domain/session"
)

// FreshSessionWindow is how long a newly started, non-resumed session hides
// progress from earlier sessions, so "start fresh" really looks fresh.
const FreshSessionWindow = 30 * time.Second

// Primary statuses of a question, in precedence order.
const (
	StatusCorrect   = "correct"
	StatusIncorrect = "incorrect"
	StatusPreview   = "preview"
	StatusViewed    = "viewed"
	StatusNew       = "new"
)

// Answer is the last validated answer found for a question.
type Answer struct {
	SelectedAnswers []string `json:"selectedAnswers"`
	IsCorrect       bool     `json:"isCorrect"`
	SessionStart    int64    `json:"sessionStart"`
}

// Progress summarizes what the user has done with one question of one exam.
type Progress struct {
	Visited   bool    `json:"isVisited"`
	Answered  bool    `json:"isAnswered"`
	Correct   bool    `json:"isAnsweredCorrectly"`
	Incorrect bool    `json:"isAnsweredIncorrectly"`
	Preview   bool    `json:"isAnsweredInPreview"`
	Recent    *Answer `json:"mostRecentAnswer,omitempty"`
}

// Primary returns the single status shown for the question.
func (p Progress) Primary() string {
	switch {
	case p.Correct:
		return StatusCorrect
	case p.Incorrect:
		return StatusIncorrect
	case p.Preview:
		return StatusPreview
	case p.Visited && !p.Answered:
		return StatusViewed
	default:
		return StatusNew
	}
}

// QuestionProgress looks a question up in the current session first and
// then in earlier sessions of the same exam.
func (s *Statistics) QuestionProgress(examCode string, questionNumber int, now time.Time) Progress {
	var p Progress
	cur := s.currentFor(examCode)

	var curQ *session.QuestionAttempt
	if cur != nil {
		p.Visited = cur.Visited(questionNumber)
		curQ = cur.Question(questionNumber)
	}

	hidePrevious := s.HidesHistory(now)
	p.Recent = s.MostRecentAnswer(examCode, questionNumber)
	if hidePrevious && p.Recent != nil && (cur == nil || p.Recent.SessionStart != cur.StartTime) {
		p.Recent = nil
	}

	if curQ != nil && curQ.Interacted() {
		p.Answered = true
	} else if !hidePrevious {
		p.Answered = s.anyPrevious(examCode, questionNumber, (*session.QuestionAttempt).Interacted)
	}

	if curQ != nil && curQ.FirstActionType == session.FirstActionPreview {
		p.Preview = true
	} else if !hidePrevious {
		p.Preview = s.anyPrevious(examCode, questionNumber, func(q *session.QuestionAttempt) bool {
			return q.FirstActionType == session.FirstActionPreview
		})
	}

	if last, ok := lastAttemptOf(curQ); ok {
		p.Correct = last.IsCorrect
		p.Incorrect = !last.IsCorrect
	} else if p.Recent != nil {
		p.Correct = p.Recent.IsCorrect
		p.Incorrect = !p.Recent.IsCorrect
	}

	return p
}

// MostRecentAnswer returns the last attempt of the question in the newest
// session of the exam that has one. The current session wins over history
// unless a historical session started later.
func (s *Statistics) MostRecentAnswer(examCode string, questionNumber int) *Answer {
	var best *Answer

	if cur := s.currentFor(examCode); cur != nil {
		if last, ok := lastAttemptOf(cur.Question(questionNumber)); ok {
			best = answerFrom(last, cur.StartTime)
		}
	}

	for _, sess := range s.Sessions {
		if sess.ExamCode != examCode {
			continue
		}
		if best != nil && sess.StartTime <= best.SessionStart {
			continue
		}
		if last, ok := lastAttemptOf(sess.Question(questionNumber)); ok {
			best = answerFrom(last, sess.StartTime)
		}
	}

	return best
}

func (s *Statistics) currentFor(examCode string) *session.Session {
	if s.CurrentSession == nil || s.CurrentSession.ExamCode != examCode {
		return nil
	}
	return s.CurrentSession
}

// HidesHistory reports whether the current session is a fresh start, in
// which case progress from earlier sessions is not shown.
func (s *Statistics) HidesHistory(now time.Time) bool {
	cur := s.CurrentSession
	if cur == nil || cur.IsResumeSession {
		return false
	}
	return now.UnixMilli()-cur.StartTime < FreshSessionWindow.Milliseconds()
}

func (s *Statistics) anyPrevious(examCode string, questionNumber int, match func(*session.QuestionAttempt) bool) bool {
	for _, sess := range s.Sessions {
		if sess.ExamCode != examCode {
			continue
		}
		if q := sess.Question(questionNumber); q != nil && match(q) {
			return true
		}
	}
	return false
}

func lastAttemptOf(q *session.QuestionAttempt) (session.Attempt, bool) {
	if q == nil {
		return session.Attempt{}, false
	}
	return q.LastAttempt()
}

func answerFrom(a session.Attempt, sessionStart int64) *Answer {
	selected := make([]string, len(a.SelectedAnswers))
	copy(selected, a.SelectedAnswers)
	return &Answer{SelectedAnswers: selected, IsCorrect: a.IsCorrect, SessionStart: sessionStart}
}
