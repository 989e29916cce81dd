package learning

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/alanpentz/course-platform/internal/data/repos/testutil"
	"github.com/alanpentz/course-platform/internal/pkg/dbctx"
)

func TestCourseRepoListLessonIDsOrdersBySectionThenLesson(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewCourseRepo(db, testutil.Logger(t))

	course := testutil.SeedCourse(t, ctx, tx, "ordering")
	// Seed the second section first so insertion order differs from playback order.
	s1 := testutil.SeedSection(t, ctx, tx, course.ID, 1)
	s0 := testutil.SeedSection(t, ctx, tx, course.ID, 0)
	b1 := testutil.SeedLesson(t, ctx, tx, s1, 1)
	b0 := testutil.SeedLesson(t, ctx, tx, s1, 0)
	a0 := testutil.SeedLesson(t, ctx, tx, s0, 0)

	ids, err := repo.ListLessonIDs(dbc, course.ID)
	if err != nil {
		t.Fatalf("ListLessonIDs: %v", err)
	}
	want := []uuid.UUID{a0.ID, b0.ID, b1.ID}
	if len(ids) != len(want) {
		t.Fatalf("ListLessonIDs len: want=%d got=%d", len(want), len(ids))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ListLessonIDs[%d]: want=%s got=%s", i, want[i], ids[i])
		}
	}

	got, err := repo.GetByID(dbc, course.ID)
	if err != nil || got == nil || got.ID != course.ID {
		t.Fatalf("GetByID: err=%v got=%v", err, got)
	}
	missing, err := repo.GetByID(dbc, uuid.New())
	if err != nil || missing != nil {
		t.Fatalf("GetByID(missing): err=%v got=%v", err, missing)
	}
}

func TestCourseRepoListLessonIDsSkipsSoftDeleted(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewCourseRepo(db, testutil.Logger(t))
	lessons := NewLessonRepo(db, testutil.Logger(t))

	seeded := testutil.SeedCourseWithLessons(t, ctx, tx, 4, 2)
	// Drop one lesson directly and one whole section.
	if err := tx.WithContext(ctx).Delete(seeded.Lessons[0]).Error; err != nil {
		t.Fatalf("soft delete lesson: %v", err)
	}
	if err := tx.WithContext(ctx).Delete(seeded.Sections[1]).Error; err != nil {
		t.Fatalf("soft delete section: %v", err)
	}

	ids, err := repo.ListLessonIDs(dbc, seeded.Course.ID)
	if err != nil {
		t.Fatalf("ListLessonIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != seeded.Lessons[1].ID {
		t.Fatalf("ListLessonIDs: want=[%s] got=%v", seeded.Lessons[1].ID, ids)
	}

	if l, err := lessons.GetByID(dbc, seeded.Lessons[0].ID); err != nil || l != nil {
		t.Fatalf("GetByID(soft deleted): err=%v got=%v", err, l)
	}
	if l, err := lessons.GetByID(dbc, seeded.Lessons[1].ID); err != nil || l == nil || l.CourseID != seeded.Course.ID {
		t.Fatalf("GetByID: err=%v got=%v", err, l)
	}
	if rows, err := lessons.GetByIDs(dbc, seeded.LessonIDs()); err != nil || len(rows) != 3 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(rows))
	}

	empty, err := repo.ListLessonIDs(dbc, uuid.New())
	if err != nil || len(empty) != 0 {
		t.Fatalf("ListLessonIDs(unknown): err=%v got=%v", err, empty)
	}
}
