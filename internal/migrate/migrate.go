// Package migrate upgrades statistics documents written by any earlier
// release to the current shape. Every step is idempotent, so running the
// whole pipeline on an up-to-date document changes nothing.
package migrate

import (
	"errors"
	"fmt"
	"time"

	"github.com/JohanDevl/Exams-Viewer/internal/domain/session"
	"github.com/JohanDevl/Exams-Viewer/internal/domain/statistics"
)

// ErrNotObject is returned when the stored document is not a JSON object.
// The caller still receives a usable default document.
var ErrNotObject = errors.New("migrate: statistics document is not an object")

// Shape generations recognized when no schemaVersion tag is present.
const (
	VersionVerbose = 1 // long field names, textual first action
	VersionAliased = 2 // short field names, no version tag
)

// Report describes what a migration run found and changed.
type Report struct {
	FromVersion       int      `json:"fromVersion"`
	SessionsUpgraded  int      `json:"sessionsUpgraded"`
	DroppedSessions   int      `json:"droppedSessions"`
	DroppedQuestions  int      `json:"droppedQuestions"`
	RecountedSessions int      `json:"recountedSessions"`
	Problems          []string `json:"problems,omitempty"`
}

// Changed reports whether the document was not already current.
func (r Report) Changed() bool {
	return r.FromVersion != statistics.SchemaVersion || r.SessionsUpgraded > 0 ||
		r.DroppedSessions > 0 || r.DroppedQuestions > 0 || r.RecountedSessions > 0
}

func (r *Report) problem(format string, args ...any) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// Statistics migrates a decoded document and returns the typed result with
// aggregates recalculated. now fills start times that cannot be recovered.
func Statistics(doc any, now time.Time) (*statistics.Statistics, Report, error) {
	obj, ok := doc.(map[string]any)
	if !ok {
		return statistics.Default(), Report{FromVersion: statistics.SchemaVersion}, ErrNotObject
	}

	report := Report{FromVersion: detectVersion(obj)}
	st := statistics.Default()

	list, _ := obj["sessions"].([]any)
	for i, raw := range list {
		m, ok := raw.(map[string]any)
		if !ok {
			report.DroppedSessions++
			report.problem("session %d is %T, not an object", i, raw)
			continue
		}
		st.Sessions = append(st.Sessions, Session(m, now, &report))
	}

	if m, ok := obj["currentSession"].(map[string]any); ok {
		st.CurrentSession = Session(m, now, &report)
	}

	st.Recalculate()
	return st, report, nil
}

func detectVersion(obj map[string]any) int {
	if v, ok := toInt64(obj["schemaVersion"]); ok {
		return int(v)
	}
	for _, m := range toObjects(obj["sessions"]) {
		if has(m, "examCode") && !has(m, "ec") {
			return VersionVerbose
		}
	}
	return VersionAliased
}

// Session runs the upgrade steps on one stored session and builds the
// typed value. The map is modified in place. Sessions with question
// records get their counters recounted; stored counters are kept only
// when there is nothing to count from.
func Session(m map[string]any, now time.Time, report *Report) *session.Session {
	if upgradeSessionKeys(m, now) {
		report.SessionsUpgraded++
	}
	defaultSessionCounters(m)
	for _, q := range toObjects(m["q"]) {
		upgradeAttempts(q)
		upgradeQuestionKeys(q, now)
		defaultQuestionFields(q)
	}

	s := buildSession(m, now, report)
	if len(s.Questions) > 0 {
		stored := counters(s)
		s.Recount()
		if counters(s) != stored {
			report.RecountedSessions++
		}
	}
	return s
}

func counters(s *session.Session) [6]int {
	return [6]int{s.TotalQuestions, s.CorrectAnswers, s.IncorrectAnswers,
		s.PreviewAnswers, s.TotalResets, s.TotalHighlightAttempts}
}

// upgradeSessionKeys renames long session fields to their short form.
func upgradeSessionKeys(m map[string]any, now time.Time) bool {
	if has(m, "visitedQuestions") && !has(m, "vq") {
		m["vq"] = m["visitedQuestions"]
		delete(m, "visitedQuestions")
	}
	if !has(m, "examCode") || has(m, "ec") {
		return false
	}

	m["ec"] = m["examCode"]
	m["en"] = m["examName"]
	if st, ok := toMillis(m["startTime"]); ok && truthy(m["startTime"]) {
		m["st"] = float64(st)
	} else {
		m["st"] = float64(now.UnixMilli())
	}
	if et, ok := toMillis(m["endTime"]); ok && truthy(m["endTime"]) {
		m["et"] = float64(et)
	} else {
		m["et"] = nil
	}
	m["q"] = orDefault(m["questions"], []any{})
	m["tq"] = float64(toInt(m["totalQuestions"]))
	m["ca"] = float64(toInt(m["correctAnswers"]))
	m["ia"] = float64(toInt(m["incorrectAnswers"]))
	m["pa"] = float64(toInt(m["previewAnswers"]))
	m["tt"] = float64(toInt(m["totalTime"]))
	m["c"] = truthy(m["completed"])

	deleteKeys(m, "examCode", "examName", "startTime", "endTime", "questions",
		"totalQuestions", "correctAnswers", "incorrectAnswers", "previewAnswers",
		"totalTime", "completed")
	return true
}

func defaultSessionCounters(m map[string]any) {
	for _, k := range []string{"totalResets", "totalHighlightAttempts", "pa"} {
		if !has(m, k) {
			m[k] = float64(0)
		}
	}
}

// upgradeQuestionKeys renames long question fields to their short form.
// Documents that went through the old compact encoding carry the question
// time under "totalStats", a side effect of its shared alias.
func upgradeQuestionKeys(q map[string]any, now time.Time) {
	if !has(q, "questionNumber") || has(q, "qn") {
		return
	}

	q["qn"] = q["questionNumber"]
	q["ca"] = orDefault(q["correctAnswers"], []any{})
	q["ua"] = orDefault(q["userAnswers"], []any{})
	q["att"] = orDefault(q["attempts"], []any{})
	if st, ok := toMillis(q["startTime"]); ok && truthy(q["startTime"]) {
		q["st"] = float64(st)
	} else {
		q["st"] = float64(now.UnixMilli())
	}
	if et, ok := toMillis(q["endTime"]); ok && truthy(q["endTime"]) {
		q["et"] = float64(et)
	} else {
		q["et"] = nil
	}
	q["ts"] = float64(toInt(firstOf(q, "timeSpent", "totalStats")))
	q["ic"] = truthy(q["isCorrect"])
	q["fs"] = float64(toInt(q["finalScore"]))
	q["rc"] = float64(toInt(q["resetCount"]))
	q["hbc"] = float64(toInt(q["highlightButtonClicks"]))
	q["hvc"] = float64(toInt(q["highlightViewCount"]))
	if has(q, "firstActionType") {
		if fat := firstAction(q["firstActionType"]); fat != session.FirstActionNone {
			q["fat"] = string(fat)
		} else {
			q["fat"] = nil
		}
	}
	if has(q, "firstActionRecorded") {
		q["far"] = truthy(q["firstActionRecorded"])
	}

	deleteKeys(q, "questionNumber", "questionText", "correctAnswers", "mostVoted",
		"userAnswers", "attempts", "startTime", "endTime", "timeSpent", "totalStats",
		"isCorrect", "finalScore", "resetCount", "highlightButtonClicks",
		"highlightViewCount", "firstActionType", "firstActionRecorded")
}

// defaultQuestionFields fills counters added after the first release and
// infers the first action of old questions from their first attempt. A
// stored first action without the recorded flag is taken as recorded.
func defaultQuestionFields(q map[string]any) {
	if answers, ok := q["highlightAnswers"].([]any); ok {
		q["hvc"] = float64(toInt(q["hvc"]) + len(answers))
	}
	delete(q, "highlightAnswers")

	for _, k := range []string{"hbc", "hvc"} {
		if !has(q, k) {
			q[k] = float64(0)
		}
	}
	if !has(q, "fat") {
		q["fat"] = nil
	}
	if has(q, "far") {
		return
	}
	if fat := firstAction(q["fat"]); fat != session.FirstActionNone {
		q["fat"] = string(fat)
		q["far"] = true
		return
	}

	q["far"] = false
	attempts := toObjects(q["att"])
	if len(attempts) == 0 {
		return
	}
	first := attempts[0]
	switch {
	case truthy(first["h"]):
		q["fat"] = string(session.FirstActionPreview)
	case truthy(first["c"]):
		q["fat"] = string(session.FirstActionCorrect)
	default:
		q["fat"] = string(session.FirstActionIncorrect)
	}
	q["far"] = true
}

// upgradeAttempts brings every attempt record to {a, c, h} and drops the
// per-attempt timestamps older writers stored.
func upgradeAttempts(q map[string]any) {
	list := firstOf(q, "att", "attempts")
	for _, a := range toObjects(list) {
		if !has(a, "a") {
			a["a"] = orDefault(firstOf(a, "answers", "selectedAnswers"), []any{})
		}
		if !has(a, "c") {
			a["c"] = truthy(firstOf(a, "isCorrect", "completed"))
		}
		if !has(a, "h") {
			a["h"] = truthy(firstOf(a, "highlightEnabled", "wasHighlightEnabled", "whe"))
		}
		deleteKeys(a, "answers", "selectedAnswers", "isCorrect", "completed",
			"highlightEnabled", "wasHighlightEnabled", "whe",
			"timestamp", "tms", "timeSpent", "tsp", "t", "ts")
	}
}

func orDefault(v, fallback any) any {
	if v == nil {
		return fallback
	}
	return v
}
