package session

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/JohanDevl/Exams-Viewer/internal/id"
)

// Session is one continuous study sitting for one exam.
// Timestamps are epoch milliseconds; TotalTime is in seconds.
type Session struct {
	ID                     string             `json:"id"`
	ExamCode               string             `json:"ec"`
	ExamName               string             `json:"en"`
	StartTime              int64              `json:"st"`
	EndTime                *int64             `json:"et"`
	Questions              []*QuestionAttempt `json:"q"`
	VisitedQuestions       []int              `json:"vq"`
	TotalQuestions         int                `json:"tq"`
	CorrectAnswers         int                `json:"ca"`
	IncorrectAnswers       int                `json:"ia"`
	PreviewAnswers         int                `json:"pa"`
	TotalTime              int                `json:"tt"`
	Completed              bool               `json:"c"`
	TotalResets            int                `json:"totalResets"`
	TotalHighlightAttempts int                `json:"totalHighlightAttempts"`
	IsResumeSession        bool               `json:"isResumeSession,omitempty"`
}

// New creates an active session starting at now.
func New(examCode, examName string, now time.Time) *Session {
	return &Session{
		ID:               id.CompactID(now),
		ExamCode:         examCode,
		ExamName:         examName,
		StartTime:        now.UnixMilli(),
		Questions:        []*QuestionAttempt{},
		VisitedQuestions: []int{},
	}
}

// End closes the session. Ended sessions are history and are not mutated again.
func (s *Session) End(now time.Time) {
	end := now.UnixMilli()
	s.EndTime = &end
	s.Completed = true
	s.TotalTime = int(math.Round(float64(end-s.StartTime) / 1000))
}

// Question returns the record for a question number, or nil.
func (s *Session) Question(questionNumber int) *QuestionAttempt {
	for _, q := range s.Questions {
		if q.QuestionNumber == questionNumber {
			return q
		}
	}
	return nil
}

// ensureQuestion finds or creates the record for a question number,
// keeping insertion order as the order questions were first touched.
func (s *Session) ensureQuestion(questionNumber int, correctAnswers []string, now time.Time) *QuestionAttempt {
	if q := s.Question(questionNumber); q != nil {
		if len(q.CorrectAnswers) == 0 && len(correctAnswers) > 0 {
			q.CorrectAnswers = cloneStrings(correctAnswers)
		}
		return q
	}
	q := NewQuestionAttempt(questionNumber, correctAnswers, now)
	s.Questions = append(s.Questions, q)
	return q
}

func (s *Session) markVisited(questionNumber int) {
	for _, v := range s.VisitedQuestions {
		if v == questionNumber {
			return
		}
	}
	s.VisitedQuestions = append(s.VisitedQuestions, questionNumber)
}

// Visited reports whether the question number is in the visited set.
func (s *Session) Visited(questionNumber int) bool {
	for _, v := range s.VisitedQuestions {
		if v == questionNumber {
			return true
		}
	}
	return false
}

// RecordAttempt appends a validated answer for a question and recounts.
func (s *Session) RecordAttempt(questionNumber int, correctAnswers, selected []string, isCorrect bool, timeSpent int, wasPreview bool, now time.Time) *QuestionAttempt {
	q := s.ensureQuestion(questionNumber, correctAnswers, now)
	q.AddAttempt(selected, isCorrect, timeSpent, wasPreview, now)
	s.markVisited(questionNumber)
	s.Recount()
	return q
}

// RecordVisit marks a question as seen without recording a first action.
func (s *Session) RecordVisit(questionNumber int, now time.Time) *QuestionAttempt {
	s.markVisited(questionNumber)
	return s.ensureQuestion(questionNumber, nil, now)
}

// RecordHighlight counts a preview interaction and recounts.
func (s *Session) RecordHighlight(questionNumber int, kind HighlightKind, now time.Time) *QuestionAttempt {
	q := s.ensureQuestion(questionNumber, nil, now)
	q.AddHighlight(kind)
	s.markVisited(questionNumber)
	s.Recount()
	return q
}

// ResetQuestion resets the current answer of a question and recounts.
func (s *Session) ResetQuestion(questionNumber int, now time.Time) *QuestionAttempt {
	q := s.ensureQuestion(questionNumber, nil, now)
	q.Reset()
	s.Recount()
	return q
}

// Recount derives the session counters from the first action of each
// question. Only questions with a recorded first action are counted, so
// CorrectAnswers+IncorrectAnswers+PreviewAnswers == TotalQuestions.
func (s *Session) Recount() {
	var total, correct, incorrect, preview, resets, highlights int
	for _, q := range s.Questions {
		if q.FirstActionRecorded {
			switch q.FirstActionType {
			case FirstActionCorrect:
				correct++
				total++
			case FirstActionIncorrect:
				incorrect++
				total++
			case FirstActionPreview:
				preview++
				total++
			}
		}
		resets += q.ResetCount
		highlights += q.TotalHighlightInteractions()
	}
	s.TotalQuestions = total
	s.CorrectAnswers = correct
	s.IncorrectAnswers = incorrect
	s.PreviewAnswers = preview
	s.TotalResets = resets
	s.TotalHighlightAttempts = highlights
}

// Score is the rounded percentage of correct first actions among all
// counted questions, 0 when nothing was attempted.
func (s *Session) Score() int {
	return Percent(s.CorrectAnswers, s.CorrectAnswers+s.IncorrectAnswers+s.PreviewAnswers)
}

// AnsweredQuestions counts questions with at least one non-preview attempt.
func (s *Session) AnsweredQuestions() int {
	n := 0
	for _, q := range s.Questions {
		for _, a := range q.Attempts {
			if !a.HighlightEnabled {
				n++
				break
			}
		}
	}
	return n
}

// Percent returns round(100*part/whole), or 0 when whole is 0.
func Percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(whole)))
}

// ParseQuestionNumber accepts a question number given as a JSON number or
// a numeric string. Either form must hold an integral value, so 3, 3.0
// and "3.0" all read as 3.
func ParseQuestionNumber(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		return integral(t, v)
	case json.Number:
		return parseNumeric(t.String(), v)
	case string:
		return parseNumeric(strings.TrimSpace(t), v)
	}
	return 0, fmt.Errorf("question number has unsupported type %T", v)
}

func parseNumeric(s string, orig any) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("question number %q is not a number", orig)
	}
	return integral(f, orig)
}

func integral(f float64, orig any) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) ||
		f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("question number %v is not an integer", orig)
	}
	return int(f), nil
}
