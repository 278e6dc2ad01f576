package migrate_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/JohanDevl/Exams-Viewer/internal/codec"
	"github.com/JohanDevl/Exams-Viewer/internal/domain/session"
	"github.com/JohanDevl/Exams-Viewer/internal/domain/statistics"
	"github.com/JohanDevl/Exams-Viewer/internal/migrate"
)

var now = time.UnixMilli(1750000000000)

func parse(t *testing.T, text string) any {
	t.Helper()
	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return doc
}

const verboseDoc = `{
  "sessions": [{
    "id": "s1",
    "examCode": "AZ-900",
    "examName": "Azure Fundamentals",
    "startTime": "2024-01-01T10:00:00.000Z",
    "endTime": "2024-01-01T10:30:00.000Z",
    "totalQuestions": 2,
    "correctAnswers": 1,
    "incorrectAnswers": 1,
    "totalTime": 1800,
    "completed": true,
    "questions": [{
      "questionNumber": 1,
      "questionText": "dropped",
      "correctAnswers": ["A"],
      "userAnswers": ["A"],
      "attempts": [{"answers": ["A"], "isCorrect": true, "timestamp": "2024-01-01T10:01:00.000Z", "timeSpent": 12}],
      "startTime": "2024-01-01T10:00:30.000Z",
      "timeSpent": 12,
      "isCorrect": true,
      "finalScore": 100,
      "firstActionType": "correct",
      "firstActionRecorded": true
    }, {
      "questionNumber": "2",
      "correctAnswers": ["B", "C"],
      "attempts": [{"answers": ["B"], "isCorrect": false}],
      "highlightAnswers": ["B", "C"],
      "firstActionType": "incorrect",
      "firstActionRecorded": true
    }]
  }],
  "currentSession": null,
  "totalStats": {"totalQuestions": 999}
}`

func TestStatistics_VerboseGeneration(t *testing.T) {
	st, report, err := migrate.Statistics(parse(t, verboseDoc), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.FromVersion != migrate.VersionVerbose || report.SessionsUpgraded != 1 {
		t.Errorf("unexpected report: %+v", report)
	}
	if st.SchemaVersion != statistics.SchemaVersion {
		t.Errorf("expected schema version %d, got %d", statistics.SchemaVersion, st.SchemaVersion)
	}
	if len(st.Sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(st.Sessions))
	}

	s := st.Sessions[0]
	wantStart := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC).UnixMilli()
	if s.ExamCode != "AZ-900" || s.StartTime != wantStart {
		t.Errorf("unexpected session header: %q %d", s.ExamCode, s.StartTime)
	}
	if s.EndTime == nil || *s.EndTime != wantStart+30*60*1000 {
		t.Errorf("unexpected end time %v", s.EndTime)
	}
	if !s.Completed || s.TotalTime != 1800 || s.PreviewAnswers != 0 {
		t.Errorf("unexpected counters: %+v", s)
	}

	q1 := s.Question(1)
	if q1 == nil || q1.FirstActionType != session.FirstActionCorrect || !q1.FirstActionRecorded {
		t.Fatalf("unexpected question 1: %+v", q1)
	}
	if len(q1.Attempts) != 1 || !q1.Attempts[0].IsCorrect || q1.Attempts[0].SelectedAnswers[0] != "A" {
		t.Errorf("unexpected attempts: %+v", q1.Attempts)
	}
	if q1.TimeSpent != 12 || q1.FinalScore != 100 {
		t.Errorf("unexpected question state: ts=%d fs=%d", q1.TimeSpent, q1.FinalScore)
	}

	q2 := s.Question(2)
	if q2 == nil {
		t.Fatal("string question number was not recovered")
	}
	if q2.HighlightViewCount != 2 {
		t.Errorf("expected highlight answers folded into views, got %d", q2.HighlightViewCount)
	}

	if st.TotalStats.TotalQuestions != 2 {
		t.Errorf("stored aggregates must be ignored, got %d", st.TotalStats.TotalQuestions)
	}
	if st.TotalStats.TotalHighlightAttempts != 2 {
		t.Errorf("expected 2 highlight attempts, got %d", st.TotalStats.TotalHighlightAttempts)
	}
}

func TestStatistics_InfersFirstAction(t *testing.T) {
	doc := parse(t, `{"sessions": [{
      "ec": "AZ-900", "en": "Azure", "st": 1700000000000, "et": null,
      "q": [
        {"qn": 1, "att": [{"a": ["A"], "c": false, "h": true}, {"a": ["A"], "c": true}]},
        {"qn": 2, "att": [{"a": ["A"], "c": true}]},
        {"qn": 3, "att": [{"a": ["B"], "c": false, "t": 1, "ts": 2}]},
        {"qn": 4, "att": []}
      ],
      "tq": 3, "ca": 1, "ia": 1, "tt": 0, "c": false
    }]}`)

	st, report, err := migrate.Statistics(doc, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.FromVersion != migrate.VersionAliased {
		t.Errorf("expected aliased generation, got %d", report.FromVersion)
	}

	s := st.Sessions[0]
	tests := []struct {
		qn       int
		want     session.FirstAction
		recorded bool
	}{
		{1, session.FirstActionPreview, true},
		{2, session.FirstActionCorrect, true},
		{3, session.FirstActionIncorrect, true},
		{4, session.FirstActionNone, false},
	}
	for _, tt := range tests {
		q := s.Question(tt.qn)
		if q == nil {
			t.Fatalf("question %d missing", tt.qn)
		}
		if q.FirstActionType != tt.want || q.FirstActionRecorded != tt.recorded {
			t.Errorf("question %d: got %q/%v, want %q/%v", tt.qn, q.FirstActionType, q.FirstActionRecorded, tt.want, tt.recorded)
		}
	}
	if s.TotalResets != 0 || s.TotalHighlightAttempts != 0 {
		t.Errorf("new counters must default to zero")
	}
}

func TestStatistics_LegacyCompactArtifacts(t *testing.T) {
	// Written by the old compact encoder from short-keyed data, so several
	// short keys come back under the wrong long name.
	payload := `{"s":[{"ec":"AZ-900","en":"Azure","st":1700000000000,"et":"_N",` +
		`"q":[{"qn":5,"ca":["A"],"ua":["A"],"ts":42,"ic":"_T","fs":100,` +
		`"att":[{"a":["A"],"c":"_T","tms":1700000001000}]}],` +
		`"tq":1,"ca":1,"ia":0,"tt":60,"c":"_T"}],"cs":"_N","ts":{}}`

	doc, err := codec.Decode(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	st, _, err := migrate.Statistics(doc, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := st.Sessions[0]
	if s.ExamCode != "AZ-900" || !s.Completed || s.TotalTime != 60 {
		t.Errorf("unexpected session: %+v", s)
	}
	q := s.Question(5)
	if q == nil {
		t.Fatal("question 5 missing")
	}
	if q.TimeSpent != 42 {
		t.Errorf("expected time spent recovered, got %d", q.TimeSpent)
	}
	if len(q.Attempts) != 1 || !q.Attempts[0].IsCorrect || len(q.Attempts[0].SelectedAnswers) != 1 {
		t.Errorf("unexpected attempts: %+v", q.Attempts)
	}
	if q.FirstActionType != session.FirstActionCorrect {
		t.Errorf("expected inferred correct, got %q", q.FirstActionType)
	}
}

func TestStatistics_InfersFirstActionForVerboseQuestions(t *testing.T) {
	doc := parse(t, `{"sessions": [{
      "examCode": "AZ-900", "examName": "Azure",
      "startTime": 1700000000000, "endTime": 1700000600000,
      "totalQuestions": 0, "completed": true,
      "questions": [
        {"questionNumber": 1, "attempts": [{"answers": ["A"], "isCorrect": true}]},
        {"questionNumber": 2, "attempts": [{"answers": ["B"], "isCorrect": false}]},
        {"questionNumber": 3, "firstActionType": "preview", "attempts": [{"answers": ["C"], "isCorrect": true}]},
        {"questionNumber": 4, "firstActionRecorded": false, "attempts": [{"answers": ["D"], "isCorrect": true}]}
      ]
    }]}`)

	st, _, err := migrate.Statistics(doc, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := st.Sessions[0]
	tests := []struct {
		qn       int
		want     session.FirstAction
		recorded bool
	}{
		{1, session.FirstActionCorrect, true},
		{2, session.FirstActionIncorrect, true},
		{3, session.FirstActionPreview, true},
		{4, session.FirstActionNone, false},
	}
	for _, tt := range tests {
		q := s.Question(tt.qn)
		if q == nil {
			t.Fatalf("question %d missing", tt.qn)
		}
		if q.FirstActionType != tt.want || q.FirstActionRecorded != tt.recorded {
			t.Errorf("question %d: got %q/%v, want %q/%v", tt.qn, q.FirstActionType, q.FirstActionRecorded, tt.want, tt.recorded)
		}
	}
	if s.TotalQuestions != 3 || s.CorrectAnswers != 1 || s.IncorrectAnswers != 1 || s.PreviewAnswers != 1 {
		t.Errorf("unexpected counters: tq=%d ca=%d ia=%d pa=%d", s.TotalQuestions, s.CorrectAnswers, s.IncorrectAnswers, s.PreviewAnswers)
	}
}

func TestStatistics_InfersFirstActionForLegacyCompact(t *testing.T) {
	// Encoded from long-named data, so the question expands to long names
	// without any first-action fields.
	payload := `{"s":[{"ec":"AZ-900","en":"Azure","st":1700000000000,"et":1700000600000,` +
		`"q":[{"qn":7,"ca":["B"],"ua":["A"],"att":[{"a":["A"],"ic":"_F"}]}],` +
		`"tq":1,"ca":0,"ia":1,"tt":600,"c":"_T"}],"cs":"_N"}`

	doc, err := codec.Decode(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	st, _, err := migrate.Statistics(doc, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	q := st.Sessions[0].Question(7)
	if q == nil {
		t.Fatal("question 7 missing")
	}
	if !q.FirstActionRecorded || q.FirstActionType != session.FirstActionIncorrect {
		t.Errorf("expected inferred incorrect, got %q/%v", q.FirstActionType, q.FirstActionRecorded)
	}
	if st.TotalStats.TotalIncorrect != 1 {
		t.Errorf("expected the question counted, got %d incorrect", st.TotalStats.TotalIncorrect)
	}
}

func TestStatistics_CountersMatchQuestionRecords(t *testing.T) {
	doc := parse(t, `{"sessions": [
      {"ec": "AZ-900", "en": "Azure", "st": 1700000000000, "et": 1700000600000, "c": true,
       "q": [{"qn": 1, "fat": "c", "far": true, "att": [{"a": ["A"], "c": true}]}],
       "tq": 5, "ca": 1, "ia": 0, "pa": 0, "tt": 600},
      {"ec": "AZ-900", "en": "Azure", "st": 1700001000000, "et": 1700001600000, "c": true,
       "q": [], "tq": 4, "ca": 3, "ia": 1, "pa": 0, "tt": 600}
    ]}`)

	st, report, err := migrate.Statistics(doc, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.RecountedSessions != 1 {
		t.Errorf("expected 1 recounted session, got %d", report.RecountedSessions)
	}

	for i, s := range st.Sessions {
		if s.CorrectAnswers+s.IncorrectAnswers+s.PreviewAnswers != s.TotalQuestions {
			t.Errorf("session %d: ca+ia+pa=%d, tq=%d", i, s.CorrectAnswers+s.IncorrectAnswers+s.PreviewAnswers, s.TotalQuestions)
		}
	}
	if st.Sessions[0].TotalQuestions != 1 {
		t.Errorf("expected recounted tq 1, got %d", st.Sessions[0].TotalQuestions)
	}
	// Without question records the stored counters are all there is.
	if st.Sessions[1].TotalQuestions != 4 || st.Sessions[1].CorrectAnswers != 3 {
		t.Errorf("expected stored counters kept, got %+v", st.Sessions[1])
	}
	if st.TotalStats.TotalQuestions != 5 {
		t.Errorf("expected aggregate 5, got %d", st.TotalStats.TotalQuestions)
	}
}

func TestStatistics_Idempotent(t *testing.T) {
	first, _, err := migrate.Statistics(parse(t, verboseDoc), now)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	once, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	second, report, err := migrate.Statistics(parse(t, string(once)), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	twice, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if string(once) != string(twice) {
		t.Errorf("migration is not idempotent:\n%s\n%s", once, twice)
	}
	if report.Changed() {
		t.Errorf("current document reported as changed: %+v", report)
	}
}

func TestStatistics_NotObject(t *testing.T) {
	st, _, err := migrate.Statistics([]any{1, 2}, now)

	if !errors.Is(err, migrate.ErrNotObject) {
		t.Errorf("expected ErrNotObject, got %v", err)
	}
	if !reflect.DeepEqual(st, statistics.Default()) {
		t.Errorf("expected default statistics, got %+v", st)
	}
}

func TestStatistics_DropsUnreadableEntries(t *testing.T) {
	doc := parse(t, `{"sessions": ["garbage", {"ec": "AZ-900", "st": 1, "q": [{"qn": "x"}, {"qn": 3}]}]}`)

	st, report, err := migrate.Statistics(doc, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(st.Sessions) != 1 || report.DroppedSessions != 1 {
		t.Errorf("expected one session dropped, got %d kept / %+v", len(st.Sessions), report)
	}
	if report.DroppedQuestions != 1 || len(st.Sessions[0].Questions) != 1 {
		t.Errorf("expected one question dropped, got %+v", report)
	}
	if st.Sessions[0].ID == "" {
		t.Error("expected a generated session id")
	}
}

func TestStatistics_CurrentSessionMigrated(t *testing.T) {
	doc := parse(t, `{"sessions": [], "currentSession": {
      "examCode": "AZ-104", "examName": "Admin", "startTime": 1700000000000,
      "questions": [], "isResumeSession": true}}`)

	st, _, err := migrate.Statistics(doc, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cur := st.CurrentSession
	if cur == nil || cur.ExamCode != "AZ-104" || cur.EndTime != nil || !cur.IsResumeSession {
		t.Errorf("unexpected current session: %+v", cur)
	}
}
