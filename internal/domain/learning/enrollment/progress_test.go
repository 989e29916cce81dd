package enrollment

import (
	"testing"

	"github.com/google/uuid"
)

func TestComputeProgressPartial(t *testing.T) {
	l1, l2, l3 := uuid.New(), uuid.New(), uuid.New()
	got := ComputeProgress([]uuid.UUID{l1, l2, l3}, map[uuid.UUID]*LessonProgress{
		l1: {LessonID: l1, IsCompleted: true},
		l2: {LessonID: l2, IsCompleted: false},
	})
	if got.Completed != 1 || got.Total != 3 || got.Percent != 33 {
		t.Fatalf("unexpected progress: %+v", got)
	}
	if got.IsComplete() {
		t.Fatalf("1/3 must not be complete")
	}
}

func TestComputeProgressFloors(t *testing.T) {
	l1, l2, l3 := uuid.New(), uuid.New(), uuid.New()
	got := ComputeProgress([]uuid.UUID{l1, l2, l3}, map[uuid.UUID]*LessonProgress{
		l1: {LessonID: l1, IsCompleted: true},
		l2: {LessonID: l2, IsCompleted: true},
	})
	if got.Percent != 66 {
		t.Fatalf("percent: want=66 got=%d", got.Percent)
	}
}

func TestComputeProgressZeroLessons(t *testing.T) {
	orphan := uuid.New()
	got := ComputeProgress(nil, map[uuid.UUID]*LessonProgress{
		orphan: {LessonID: orphan, IsCompleted: true},
	})
	if got.Total != 0 || got.Completed != 0 || got.Percent != 0 {
		t.Fatalf("unexpected progress: %+v", got)
	}
	if got.IsComplete() {
		t.Fatalf("empty course must never be complete")
	}
}

func TestComputeProgressIgnoresForeignRecordsAndDuplicates(t *testing.T) {
	l1, l2, foreign := uuid.New(), uuid.New(), uuid.New()
	got := ComputeProgress([]uuid.UUID{l1, l2, l1}, map[uuid.UUID]*LessonProgress{
		l1:      {LessonID: l1, IsCompleted: true},
		l2:      {LessonID: l2, IsCompleted: true},
		foreign: {LessonID: foreign, IsCompleted: true},
	})
	if got.Total != 2 || got.Completed != 2 || got.Percent != 100 {
		t.Fatalf("unexpected progress: %+v", got)
	}
	if !got.IsComplete() {
		t.Fatalf("expected complete")
	}
}

func TestIndexByLessonSkipsNil(t *testing.T) {
	l1 := uuid.New()
	idx := IndexByLesson([]*LessonProgress{nil, {LessonID: l1, IsCompleted: true}})
	if len(idx) != 1 || !idx[l1].IsCompleted {
		t.Fatalf("unexpected index: %+v", idx)
	}
}

func TestEnrollmentGrantsAccess(t *testing.T) {
	cases := map[string]bool{
		StatusActive:    true,
		StatusCompleted: true,
		StatusCancelled: false,
	}
	for status, want := range cases {
		e := &Enrollment{Status: status}
		if got := e.GrantsAccess(); got != want {
			t.Fatalf("%s: want=%v got=%v", status, want, got)
		}
	}
	var nilEnrollment *Enrollment
	if nilEnrollment.GrantsAccess() {
		t.Fatalf("nil enrollment must not grant access")
	}
}
