package session

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// FirstAction classifies the first interaction with a question.
type FirstAction string

const (
	FirstActionNone      FirstAction = ""
	FirstActionCorrect   FirstAction = "c"
	FirstActionIncorrect FirstAction = "i"
	FirstActionPreview   FirstAction = "p"
)

// MarshalJSON stores an unrecorded first action as null.
func (f FirstAction) MarshalJSON() ([]byte, error) {
	if f == FirstActionNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(f))
}

func (f *FirstAction) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = FirstActionNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = FirstAction(s)
	return nil
}

// String returns the long name used by the API and exports.
func (f FirstAction) String() string {
	switch f {
	case FirstActionCorrect:
		return "correct"
	case FirstActionIncorrect:
		return "incorrect"
	case FirstActionPreview:
		return "preview"
	default:
		return ""
	}
}

// HighlightKind is the kind of preview interaction on a question.
type HighlightKind string

const (
	HighlightButtonClick HighlightKind = "button_click"
	HighlightView        HighlightKind = "view"
)

// ParseHighlightKind accepts the API spellings of a highlight kind.
func ParseHighlightKind(s string) (HighlightKind, error) {
	switch s {
	case "button_click", "buttonClick":
		return HighlightButtonClick, nil
	case "view":
		return HighlightView, nil
	}
	return "", fmt.Errorf("unknown highlight kind %q", s)
}

// Attempt is one validated answer in a question's log.
type Attempt struct {
	SelectedAnswers  []string `json:"a"`
	IsCorrect        bool     `json:"c"`
	HighlightEnabled bool     `json:"h"`
}

// QuestionAttempt accumulates every interaction with one question number
// inside a session. Timestamps are epoch milliseconds.
type QuestionAttempt struct {
	QuestionNumber        int         `json:"qn"`
	CorrectAnswers        []string    `json:"ca"`
	UserAnswers           []string    `json:"ua"`
	Attempts              []Attempt   `json:"att"`
	StartTime             int64       `json:"st"`
	EndTime               *int64      `json:"et"`
	TimeSpent             int         `json:"ts"` // seconds
	IsCorrect             bool        `json:"ic"`
	FinalScore            int         `json:"fs"` // 0-100
	ResetCount            int         `json:"rc"`
	HighlightButtonClicks int         `json:"hbc"`
	HighlightViewCount    int         `json:"hvc"`
	FirstActionType       FirstAction `json:"fat"`
	FirstActionRecorded   bool        `json:"far"`
}

// NewQuestionAttempt creates an empty record for a question.
// correctAnswers may be empty when the question was only visited.
func NewQuestionAttempt(questionNumber int, correctAnswers []string, now time.Time) *QuestionAttempt {
	return &QuestionAttempt{
		QuestionNumber: questionNumber,
		CorrectAnswers: cloneStrings(correctAnswers),
		UserAnswers:    []string{},
		Attempts:       []Attempt{},
		StartTime:      now.UnixMilli(),
	}
}

// AddAttempt appends a validated answer. The first action is recorded
// here only if no earlier interaction recorded it.
func (q *QuestionAttempt) AddAttempt(selected []string, isCorrect bool, timeSpent int, wasPreview bool, now time.Time) {
	if !q.FirstActionRecorded {
		switch {
		case wasPreview:
			q.FirstActionType = FirstActionPreview
		case isCorrect:
			q.FirstActionType = FirstActionCorrect
		default:
			q.FirstActionType = FirstActionIncorrect
		}
		q.FirstActionRecorded = true
	}

	q.Attempts = append(q.Attempts, Attempt{
		SelectedAnswers:  cloneStrings(selected),
		IsCorrect:        isCorrect,
		HighlightEnabled: wasPreview,
	})

	end := now.UnixMilli()
	q.UserAnswers = cloneStrings(selected)
	q.IsCorrect = isCorrect
	q.EndTime = &end
	q.TimeSpent += timeSpent

	if !wasPreview {
		q.FinalScore = Score(q.CorrectAnswers, selected, isCorrect)
	}
}

// Reset clears the current answer state. The attempt log and the first
// action classification are kept.
func (q *QuestionAttempt) Reset() {
	q.ResetCount++
	q.UserAnswers = []string{}
	q.IsCorrect = false
	q.EndTime = nil
}

// AddHighlight counts a preview interaction and, when it is the first
// interaction with the question, classifies the question as previewed.
func (q *QuestionAttempt) AddHighlight(kind HighlightKind) {
	switch kind {
	case HighlightButtonClick:
		q.HighlightButtonClicks++
	case HighlightView:
		q.HighlightViewCount++
	}
	if !q.FirstActionRecorded {
		q.FirstActionType = FirstActionPreview
		q.FirstActionRecorded = true
	}
}

func (q *QuestionAttempt) TotalHighlightInteractions() int {
	return q.HighlightButtonClicks + q.HighlightViewCount
}

// Interacted reports whether the question was answered or previewed,
// as opposed to only visited.
func (q *QuestionAttempt) Interacted() bool {
	return len(q.Attempts) > 0 || q.FirstActionRecorded
}

// LastAttempt returns the most recent attempt, if any.
func (q *QuestionAttempt) LastAttempt() (Attempt, bool) {
	if len(q.Attempts) == 0 {
		return Attempt{}, false
	}
	return q.Attempts[len(q.Attempts)-1], true
}

// Score is 100 for a fully correct answer, otherwise the rounded
// percentage of correct answer letters present in the selection.
func Score(correct, selected []string, isCorrect bool) int {
	if isCorrect {
		return 100
	}
	if len(correct) == 0 {
		return 0
	}
	chosen := make(map[string]bool, len(selected))
	for _, s := range selected {
		chosen[s] = true
	}
	hits := 0
	for _, c := range correct {
		if chosen[c] {
			hits++
		}
	}
	return int(math.Round(100 * float64(hits) / float64(len(correct))))
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
