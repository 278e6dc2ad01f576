package migrate

import (
	"time"

	"github.com/JohanDevl/Exams-Viewer/internal/domain/session"
	"github.com/JohanDevl/Exams-Viewer/internal/id"
)

// buildSession reads an upgraded session map into the typed model. Fields
// that cannot be read fall back to their zero value; questions without a
// usable number are dropped and reported.
func buildSession(m map[string]any, now time.Time, report *Report) *session.Session {
	s := &session.Session{
		ExamCode:               stringOf(m["ec"]),
		ExamName:               stringOf(m["en"]),
		Questions:              []*session.QuestionAttempt{},
		VisitedQuestions:       toQuestionNumbers(m["vq"]),
		TotalQuestions:         toInt(m["tq"]),
		CorrectAnswers:         toInt(m["ca"]),
		IncorrectAnswers:       toInt(m["ia"]),
		PreviewAnswers:         toInt(m["pa"]),
		TotalTime:              toInt(m["tt"]),
		Completed:              truthy(m["c"]),
		TotalResets:            toInt(m["totalResets"]),
		TotalHighlightAttempts: toInt(m["totalHighlightAttempts"]),
		IsResumeSession:        truthy(m["isResumeSession"]),
	}

	if st, ok := toMillis(m["st"]); ok {
		s.StartTime = st
	} else {
		s.StartTime = now.UnixMilli()
	}
	s.EndTime = optionalMillis(m["et"])

	s.ID = stringOf(m["id"])
	if s.ID == "" {
		s.ID = id.CompactID(time.UnixMilli(s.StartTime))
	}

	for i, qm := range toObjects(m["q"]) {
		q, ok := buildQuestion(qm, s.StartTime)
		if !ok {
			report.DroppedQuestions++
			report.problem("session %s: question %d has no usable number", s.ID, i)
			continue
		}
		s.Questions = append(s.Questions, q)
	}

	return s
}

func buildQuestion(m map[string]any, sessionStart int64) (*session.QuestionAttempt, bool) {
	qn, err := session.ParseQuestionNumber(m["qn"])
	if err != nil {
		return nil, false
	}

	q := &session.QuestionAttempt{
		QuestionNumber:        qn,
		CorrectAnswers:        toStrings(m["ca"]),
		UserAnswers:           toStrings(m["ua"]),
		Attempts:              []session.Attempt{},
		EndTime:               optionalMillis(m["et"]),
		TimeSpent:             toInt(m["ts"]),
		IsCorrect:             truthy(m["ic"]),
		FinalScore:            clampScore(toInt(m["fs"])),
		ResetCount:            toInt(m["rc"]),
		HighlightButtonClicks: toInt(m["hbc"]),
		HighlightViewCount:    toInt(m["hvc"]),
		FirstActionType:       firstAction(m["fat"]),
		FirstActionRecorded:   truthy(m["far"]),
	}
	if st, ok := toMillis(m["st"]); ok {
		q.StartTime = st
	} else {
		q.StartTime = sessionStart
	}

	for _, a := range toObjects(m["att"]) {
		q.Attempts = append(q.Attempts, session.Attempt{
			SelectedAnswers:  toStrings(a["a"]),
			IsCorrect:        truthy(a["c"]),
			HighlightEnabled: truthy(a["h"]),
		})
	}

	// A recorded flag without a usable type would break the count balance.
	if q.FirstActionRecorded && q.FirstActionType == session.FirstActionNone {
		q.FirstActionRecorded = false
	}

	return q, true
}

func optionalMillis(v any) *int64 {
	if v == nil {
		return nil
	}
	ms, ok := toMillis(v)
	if !ok || ms == 0 {
		return nil
	}
	return &ms
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}

func clampScore(n int) int {
	switch {
	case n < 0:
		return 0
	case n > 100:
		return 100
	}
	return n
}
