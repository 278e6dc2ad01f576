// Package resume tracks the last viewed question of each exam so a study
// session can be continued later.
package resume

import (
	"encoding/json"
	"errors"
	"sort"
	"time"
)

const (
	// MaxAge is how long a saved position stays valid.
	MaxAge = 30 * 24 * time.Hour
	// TotalTolerance is how much the question count of an exam may change
	// before a saved position is considered stale.
	TotalTolerance = 10
)

var (
	ErrInvalidPosition = errors.New("invalid resume position")
	ErrNotObject       = errors.New("resume positions document is not an object")
)

// Position is the saved place in one exam. Timestamp is epoch ms.
type Position struct {
	QuestionIndex  int     `json:"questionIndex"`
	QuestionNumber int     `json:"questionNumber"`
	TotalQuestions int     `json:"totalQuestions"`
	Timestamp      int64   `json:"timestamp"`
	LastSessionID  *string `json:"lastSessionId"`
}

// Positions maps exam codes to their saved position.
type Positions map[string]Position

// Save records the position of questionNumber at questionIndex in a list
// of totalQuestions questions.
func (p Positions) Save(examCode string, questionIndex, questionNumber, totalQuestions int, sessionID string, now time.Time) (Position, error) {
	if totalQuestions < 1 || questionIndex < 0 || questionIndex >= totalQuestions || questionNumber < 1 {
		return Position{}, ErrInvalidPosition
	}
	pos := Position{
		QuestionIndex:  questionIndex,
		QuestionNumber: questionNumber,
		TotalQuestions: totalQuestions,
		Timestamp:      now.UnixMilli(),
	}
	if sessionID != "" {
		pos.LastSessionID = &sessionID
	}
	p[examCode] = pos
	return pos, nil
}

func (p Positions) Get(examCode string) (Position, bool) {
	pos, ok := p[examCode]
	return pos, ok
}

// Clear removes the position of an exam and reports whether one existed.
func (p Positions) Clear(examCode string) bool {
	if _, ok := p[examCode]; !ok {
		return false
	}
	delete(p, examCode)
	return true
}

// Valid checks a saved position against the exam as it is now, given as
// the ordered list of its question numbers.
func (pos Position) Valid(questionNumbers []int) bool {
	n := len(questionNumbers)
	if n == 0 || pos.QuestionIndex < 0 || pos.QuestionIndex >= n {
		return false
	}
	if questionNumbers[pos.QuestionIndex] != pos.QuestionNumber {
		return false
	}
	diff := pos.TotalQuestions - n
	if diff < 0 {
		diff = -diff
	}
	return diff <= TotalTolerance
}

// Completed reports whether the position is on the last question.
func (pos Position) Completed() bool {
	return pos.QuestionIndex >= pos.TotalQuestions-1
}

// Cleanup drops positions that are too old or out of bounds and returns
// the exam codes removed.
func (p Positions) Cleanup(now time.Time) []string {
	var removed []string
	for code, pos := range p {
		expired := now.UnixMilli()-pos.Timestamp > MaxAge.Milliseconds()
		outOfBounds := pos.QuestionIndex < 0 || pos.QuestionNumber < 1 ||
			pos.TotalQuestions < 1 || pos.QuestionIndex >= pos.TotalQuestions
		if expired || outOfBounds {
			delete(p, code)
			removed = append(removed, code)
		}
	}
	sort.Strings(removed)
	return removed
}

// KeepRecent keeps the n most recently saved positions and returns how
// many were dropped.
func (p Positions) KeepRecent(n int) int {
	if len(p) <= n {
		return 0
	}
	codes := make([]string, 0, len(p))
	for code := range p {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		a, b := p[codes[i]], p[codes[j]]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp > b.Timestamp
		}
		return codes[i] < codes[j]
	})
	for _, code := range codes[n:] {
		delete(p, code)
	}
	return len(codes) - n
}

// Decode reads a stored positions document. Entries that are not objects
// or lack a numeric questionIndex, questionNumber or timestamp are
// skipped and their exam codes returned. A document that is not a JSON
// object is an error.
func Decode(data []byte) (Positions, []string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, err
	}
	if raw == nil {
		return nil, nil, ErrNotObject
	}

	out := make(Positions, len(raw))
	var dropped []string
	for code, msg := range raw {
		pos, ok := decodeEntry(msg)
		if !ok {
			dropped = append(dropped, code)
			continue
		}
		out[code] = pos
	}
	sort.Strings(dropped)
	return out, dropped, nil
}

// WellFormed reports whether every entry of a stored document passes the
// checks Decode applies.
func WellFormed(data []byte) bool {
	_, dropped, err := Decode(data)
	return err == nil && len(dropped) == 0
}

func decodeEntry(msg json.RawMessage) (Position, bool) {
	var fields map[string]any
	if err := json.Unmarshal(msg, &fields); err != nil || fields == nil {
		return Position{}, false
	}
	for _, k := range []string{"questionIndex", "questionNumber", "timestamp"} {
		if _, ok := fields[k].(float64); !ok {
			return Position{}, false
		}
	}
	var pos Position
	if err := json.Unmarshal(msg, &pos); err != nil {
		return Position{}, false
	}
	return pos, true
}
