package aggregates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alanpentz/course-platform/internal/data/repos"
	types "github.com/alanpentz/course-platform/internal/domain"
	domainagg "github.com/alanpentz/course-platform/internal/domain/aggregates"
	"github.com/alanpentz/course-platform/internal/pkg/dbctx"
	"github.com/alanpentz/course-platform/internal/pkg/pointers"
)

const enrollmentTable = "enrollment"

type EnrollmentAggregateDeps struct {
	Base BaseDeps

	Enrollments repos.EnrollmentRepo
}

type enrollmentAggregate struct {
	deps EnrollmentAggregateDeps
}

func NewEnrollmentAggregate(deps EnrollmentAggregateDeps) domainagg.EnrollmentAggregate {
	deps.Base = deps.Base.withDefaults()
	return &enrollmentAggregate{deps: deps}
}

func (a *enrollmentAggregate) Contract() domainagg.Contract {
	return domainagg.EnrollmentAggregateContract
}

func (a *enrollmentAggregate) Grant(ctx context.Context, in domainagg.GrantEnrollmentInput) (domainagg.GrantEnrollmentResult, error) {
	const op = "Learning.Enrollment.Grant"
	var out domainagg.GrantEnrollmentResult
	if in.UserID == uuid.Nil || in.CourseID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id or course_id", nil)
	}
	if a.deps.Enrollments == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "enrollment repo not configured", nil)
	}
	grantedAt := in.GrantedAt.UTC()
	if in.GrantedAt.IsZero() {
		grantedAt = time.Now().UTC()
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		row := &types.Enrollment{
			ID:        uuid.New(),
			UserID:    in.UserID,
			CourseID:  in.CourseID,
			Status:    types.EnrollmentStatusActive,
			CreatedAt: grantedAt,
			UpdatedAt: grantedAt,
		}
		if pid := strings.TrimSpace(in.PaymentID); pid != "" {
			row.PaymentID = pointers.String(pid)
		}
		created, err := a.deps.Enrollments.CreateIfAbsent(dbc, row)
		if err != nil {
			return err
		}
		out.Created = created

		// An existing row of any status is left untouched, payment_id included.
		current, err := a.deps.Enrollments.GetByUserAndCourse(dbc, in.UserID, in.CourseID)
		if err != nil {
			return err
		}
		if current == nil {
			return domainagg.NewError(domainagg.CodeInternal, op, "enrollment missing after grant", nil)
		}
		out.Enrollment = current
		return nil
	})
	return out, err
}

func (a *enrollmentAggregate) ApplyProgress(ctx context.Context, in domainagg.ApplyEnrollmentProgressInput) (domainagg.ApplyEnrollmentProgressResult, error) {
	const op = "Learning.Enrollment.ApplyProgress"
	var out domainagg.ApplyEnrollmentProgressResult
	if in.UserID == uuid.Nil || in.CourseID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id or course_id", nil)
	}
	if in.Progress.Percent < 0 || in.Progress.Percent > 100 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("percent out of range: %d", in.Progress.Percent), nil)
	}
	if a.deps.Enrollments == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "enrollment repo not configured", nil)
	}
	appliedAt := in.AppliedAt.UTC()
	if in.AppliedAt.IsZero() {
		appliedAt = time.Now().UTC()
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		e, err := a.deps.Enrollments.GetByUserAndCourse(dbc, in.UserID, in.CourseID)
		if err != nil {
			return err
		}
		if e == nil {
			return domainagg.NewError(domainagg.CodeEnrollmentNotFound, op,
				fmt.Sprintf("no enrollment for user=%s course=%s", in.UserID, in.CourseID), nil)
		}
		// A cancel that committed after the caller read the row wins: the
		// enrollment comes back untouched.
		if e.Status == types.EnrollmentStatusCancelled {
			out.Enrollment = e
			return nil
		}

		changed, err := a.deps.Enrollments.UpdateProgressPercent(dbc, e.ID, in.Progress.Percent, appliedAt)
		if err != nil {
			return err
		}
		out.PercentChanged = changed

		// The completion gate: only the caller whose update flips completed_at
		// from NULL wins, however many observed it as NULL beforehand.
		if in.Progress.IsComplete() && e.CompletedAt == nil {
			won, err := a.deps.Base.CASGuard.UpdateOnceByStatus(dbc, enrollmentTable, e.ID, "completed_at",
				[]string{types.EnrollmentStatusActive},
				map[string]any{
					"status":       types.EnrollmentStatusCompleted,
					"completed_at": appliedAt,
					"updated_at":   appliedAt,
				})
			if err != nil {
				return err
			}
			out.Completed = won
		}

		fresh, err := a.deps.Enrollments.GetByID(dbc, e.ID)
		if err != nil {
			return err
		}
		if fresh == nil {
			return RetryableError("enrollment vanished during progress apply")
		}
		out.Enrollment = fresh
		return nil
	})
	return out, err
}

func (a *enrollmentAggregate) Cancel(ctx context.Context, in domainagg.CancelEnrollmentInput) (domainagg.CancelEnrollmentResult, error) {
	const op = "Learning.Enrollment.Cancel"
	var out domainagg.CancelEnrollmentResult
	if in.UserID == uuid.Nil || in.CourseID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id or course_id", nil)
	}
	if a.deps.Enrollments == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "enrollment repo not configured", nil)
	}
	cancelledAt := in.CancelledAt.UTC()
	if in.CancelledAt.IsZero() {
		cancelledAt = time.Now().UTC()
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		e, err := a.deps.Enrollments.LockByUserAndCourse(dbc, in.UserID, in.CourseID)
		if err != nil {
			return err
		}
		if e == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, "enrollment not found", nil)
		}
		switch e.Status {
		case types.EnrollmentStatusCancelled:
			out.Enrollment = e
			return nil
		case types.EnrollmentStatusCompleted:
			return InvariantError("completed enrollment cannot be cancelled")
		}

		ok, err := a.deps.Base.CASGuard.UpdateByStatus(dbc, enrollmentTable, e.ID,
			[]string{types.EnrollmentStatusActive},
			map[string]any{
				"status":     types.EnrollmentStatusCancelled,
				"updated_at": cancelledAt,
			})
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "enrollment changed status during cancel"); err != nil {
			return err
		}
		out.Changed = true

		fresh, err := a.deps.Enrollments.GetByID(dbc, e.ID)
		if err != nil {
			return err
		}
		out.Enrollment = fresh
		return nil
	})
	return out, err
}
