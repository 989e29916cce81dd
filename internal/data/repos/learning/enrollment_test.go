package learning

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/alanpentz/course-platform/internal/data/repos/testutil"
	types "github.com/alanpentz/course-platform/internal/domain"
	"github.com/alanpentz/course-platform/internal/pkg/dbctx"
)

func TestEnrollmentRepoCreateIfAbsent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewEnrollmentRepo(db, testutil.Logger(t))

	course := testutil.SeedCourse(t, ctx, tx, "enroll")
	userID := uuid.New()

	created, err := repo.CreateIfAbsent(dbc, &types.Enrollment{UserID: userID, CourseID: course.ID})
	if err != nil || !created {
		t.Fatalf("CreateIfAbsent(first): created=%v err=%v", created, err)
	}
	created, err = repo.CreateIfAbsent(dbc, &types.Enrollment{UserID: userID, CourseID: course.ID})
	if err != nil || created {
		t.Fatalf("CreateIfAbsent(second): created=%v err=%v", created, err)
	}

	got, err := repo.GetByUserAndCourse(dbc, userID, course.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByUserAndCourse: err=%v got=%v", err, got)
	}
	if got.Status != types.EnrollmentStatusActive || got.ProgressPercent != 0 || got.CompletedAt != nil {
		t.Fatalf("unexpected new enrollment: %+v", got)
	}
	if byID, err := repo.GetByID(dbc, got.ID); err != nil || byID == nil || byID.UserID != userID {
		t.Fatalf("GetByID: err=%v got=%v", err, byID)
	}
	if locked, err := repo.LockByUserAndCourse(dbc, userID, course.ID); err != nil || locked == nil || locked.ID != got.ID {
		t.Fatalf("LockByUserAndCourse: err=%v got=%v", err, locked)
	}
	if none, err := repo.GetByUserAndCourse(dbc, uuid.New(), course.ID); err != nil || none != nil {
		t.Fatalf("GetByUserAndCourse(missing): err=%v got=%v", err, none)
	}
}

func TestEnrollmentRepoListAndUpdate(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewEnrollmentRepo(db, testutil.Logger(t))

	userID := uuid.New()
	c1 := testutil.SeedCourse(t, ctx, tx, "c1")
	c2 := testutil.SeedCourse(t, ctx, tx, "c2")
	c3 := testutil.SeedCourse(t, ctx, tx, "c3")
	e1 := testutil.SeedEnrollment(t, ctx, tx, userID, c1.ID, types.EnrollmentStatusActive)
	testutil.SeedEnrollment(t, ctx, tx, userID, c2.ID, types.EnrollmentStatusCompleted)
	testutil.SeedEnrollment(t, ctx, tx, userID, c3.ID, types.EnrollmentStatusCancelled)
	testutil.SeedEnrollment(t, ctx, tx, uuid.New(), c1.ID, types.EnrollmentStatusActive)

	all, total, err := repo.ListByUser(dbc, userID, "", 2, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if total != 3 || len(all) != 2 {
		t.Fatalf("ListByUser page: total=%d len=%d", total, len(all))
	}
	rest, _, err := repo.ListByUser(dbc, userID, "", 2, 2)
	if err != nil || len(rest) != 1 {
		t.Fatalf("ListByUser page 2: err=%v len=%d", err, len(rest))
	}
	completed, total, err := repo.ListByUser(dbc, userID, types.EnrollmentStatusCompleted, 10, 0)
	if err != nil || total != 1 || len(completed) != 1 || completed[0].CourseID != c2.ID {
		t.Fatalf("ListByUser(COMPLETED): err=%v total=%d rows=%v", err, total, completed)
	}

	byCourse, err := repo.ListByCourseAndStatuses(dbc, c1.ID, []string{types.EnrollmentStatusActive, types.EnrollmentStatusCompleted})
	if err != nil || len(byCourse) != 2 {
		t.Fatalf("ListByCourseAndStatuses: err=%v len=%d", err, len(byCourse))
	}

	now := time.Now().UTC()
	changed, err := repo.UpdateProgressPercent(dbc, e1.ID, 40, now)
	if err != nil || !changed {
		t.Fatalf("UpdateProgressPercent: changed=%v err=%v", changed, err)
	}
	changed, err = repo.UpdateProgressPercent(dbc, e1.ID, 40, now)
	if err != nil || changed {
		t.Fatalf("UpdateProgressPercent(same): changed=%v err=%v", changed, err)
	}
	got, err := repo.GetByID(dbc, e1.ID)
	if err != nil || got.ProgressPercent != 40 {
		t.Fatalf("after update: err=%v got=%+v", err, got)
	}
}
