package service_test

import (
	"testing"

	"github.com/JohanDevl/Exams-Viewer/internal/service"
)

func TestStatusCache_EvictsOldest(t *testing.T) {
	c := service.NewStatusCache(3)
	for qn := 1; qn <= 4; qn++ {
		c.Put(service.StatusKey{ExamCode: "AZ-900", QuestionNumber: qn}, service.QuestionStatus{QuestionNumber: qn})
	}

	if c.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", c.Len())
	}
	if _, ok := c.Get(service.StatusKey{ExamCode: "AZ-900", QuestionNumber: 1}); ok {
		t.Error("oldest entry should have been evicted")
	}
	if st, ok := c.Get(service.StatusKey{ExamCode: "AZ-900", QuestionNumber: 4}); !ok || st.QuestionNumber != 4 {
		t.Errorf("expected newest entry cached, got %+v %v", st, ok)
	}
}

func TestStatusCache_Invalidate(t *testing.T) {
	c := service.NewStatusCache(0)
	a1 := service.StatusKey{ExamCode: "AZ-900", QuestionNumber: 1}
	a2 := service.StatusKey{ExamCode: "AZ-900", QuestionNumber: 2}
	b1 := service.StatusKey{ExamCode: "AZ-104", QuestionNumber: 1}
	for _, k := range []service.StatusKey{a1, a2, b1} {
		c.Put(k, service.QuestionStatus{})
	}

	c.Invalidate(a1)
	if _, ok := c.Get(a1); ok {
		t.Error("invalidated key still cached")
	}
	if _, ok := c.Get(a2); !ok {
		t.Error("other question of the same exam must stay cached")
	}

	c.InvalidateExam("AZ-900")
	if _, ok := c.Get(a2); ok {
		t.Error("exam invalidation left an entry behind")
	}
	if _, ok := c.Get(b1); !ok {
		t.Error("other exams must stay cached")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d", c.Len())
	}
}
