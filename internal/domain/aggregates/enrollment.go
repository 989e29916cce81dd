package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/alanpentz/course-platform/internal/domain/learning/enrollment"
)

var EnrollmentAggregateContract = Contract{
	Name:             "Learning.EnrollmentAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes: "Owns the enrollment row: idempotent creation, progress_percent writes and the " +
		"one-shot ACTIVE -> COMPLETED gate that decides certificate issuance.",
}

// EnrollmentAggregate owns enrollment lifecycle writes.
//
// Write method failures return *aggregates.Error with codes:
// CodeValidation, CodeEnrollmentNotFound, CodeConflict, CodeInvariantViolation, CodeRetryable, CodeInternal.
type EnrollmentAggregate interface {
	Aggregate

	// Grant creates the enrollment when none exists for (user, course). A grant for an
	// existing enrollment of any status, CANCELLED included, is a no-op.
	Grant(ctx context.Context, in GrantEnrollmentInput) (GrantEnrollmentResult, error)

	// ApplyProgress writes a recomputed percent and, when it reaches 100, performs the
	// conditional completion update. Completed is true only for the call that won the gate.
	// A CANCELLED enrollment is returned unchanged.
	ApplyProgress(ctx context.Context, in ApplyEnrollmentProgressInput) (ApplyEnrollmentProgressResult, error)

	// Cancel moves an ACTIVE enrollment to CANCELLED. Cancelling twice is a no-op.
	Cancel(ctx context.Context, in CancelEnrollmentInput) (CancelEnrollmentResult, error)
}

type GrantEnrollmentInput struct {
	UserID    uuid.UUID
	CourseID  uuid.UUID
	PaymentID string
	GrantedAt time.Time
}

type GrantEnrollmentResult struct {
	Enrollment *enrollment.Enrollment
	Created    bool
}

type ApplyEnrollmentProgressInput struct {
	UserID    uuid.UUID
	CourseID  uuid.UUID
	Progress  enrollment.Progress
	AppliedAt time.Time
}

type ApplyEnrollmentProgressResult struct {
	Enrollment     *enrollment.Enrollment
	PercentChanged bool
	// Completed is set only when this call moved completed_at from NULL to AppliedAt.
	Completed bool
}

type CancelEnrollmentInput struct {
	UserID      uuid.UUID
	CourseID    uuid.UUID
	CancelledAt time.Time
}

type CancelEnrollmentResult struct {
	Enrollment *enrollment.Enrollment
	Changed    bool
}
