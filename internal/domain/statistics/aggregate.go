package statistics

import "github.com/JohanDevl/Exams-Viewer/internal/domain/session"

// AggregateStats is the global roll-up over the session history.
type AggregateStats struct {
	TotalQuestions         int                   `json:"totalQuestions"`
	TotalCorrect           int                   `json:"totalCorrect"`
	TotalIncorrect         int                   `json:"totalIncorrect"`
	TotalPreview           int                   `json:"totalPreview"`
	TotalTime              int                   `json:"totalTime"`
	TotalResets            int                   `json:"totalResets"`
	TotalHighlightAttempts int                   `json:"totalHighlightAttempts"`
	ExamStats              map[string]*ExamStats `json:"examStats"`
}

// ExamStats is the roll-up for one exam code.
type ExamStats struct {
	ExamName               string `json:"examName"`
	TotalQuestions         int    `json:"totalQuestions"`
	TotalCorrect           int    `json:"totalCorrect"`
	TotalIncorrect         int    `json:"totalIncorrect"`
	TotalPreview           int    `json:"totalPreview"`
	TotalTime              int    `json:"totalTime"`
	TotalResets            int    `json:"totalResets"`
	TotalHighlightAttempts int    `json:"totalHighlightAttempts"`
	Sessions               int    `json:"sessions"`
	AverageScore           int    `json:"averageScore"`
	BestScore              int    `json:"bestScore"`
	LastAttempt            *int64 `json:"lastAttempt"`
}

func emptyAggregate() AggregateStats {
	return AggregateStats{ExamStats: map[string]*ExamStats{}}
}

// Recalculate computes the aggregates from scratch. It is a pure sum/max
// fold, so the result does not depend on the order of sessions, and it is
// the only way aggregates are produced.
func Recalculate(sessions []*session.Session) AggregateStats {
	agg := emptyAggregate()

	for _, s := range sessions {
		resets, highlights := 0, 0
		for _, q := range s.Questions {
			resets += q.ResetCount
			highlights += q.TotalHighlightInteractions()
		}

		agg.TotalQuestions += s.TotalQuestions
		agg.TotalCorrect += s.CorrectAnswers
		agg.TotalIncorrect += s.IncorrectAnswers
		agg.TotalPreview += s.PreviewAnswers
		agg.TotalTime += s.TotalTime
		agg.TotalResets += resets
		agg.TotalHighlightAttempts += highlights

		exam, ok := agg.ExamStats[s.ExamCode]
		if !ok {
			exam = &ExamStats{ExamName: s.ExamName}
			agg.ExamStats[s.ExamCode] = exam
		}
		exam.TotalQuestions += s.TotalQuestions
		exam.TotalCorrect += s.CorrectAnswers
		exam.TotalIncorrect += s.IncorrectAnswers
		exam.TotalPreview += s.PreviewAnswers
		exam.TotalTime += s.TotalTime
		exam.TotalResets += resets
		exam.TotalHighlightAttempts += highlights
		exam.Sessions++

		exam.AverageScore = session.Percent(exam.TotalCorrect, exam.TotalCorrect+exam.TotalIncorrect+exam.TotalPreview)
		if score := s.Score(); score > exam.BestScore {
			exam.BestScore = score
		}
		if exam.LastAttempt == nil || s.StartTime > *exam.LastAttempt {
			start := s.StartTime
			exam.LastAttempt = &start
		}
	}

	return agg
}
