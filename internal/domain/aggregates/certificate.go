package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/alanpentz/course-platform/internal/domain/learning/enrollment"
)

var CertificateAggregateContract = Contract{
	Name:             "Learning.CertificateAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes:            "Creates the certificate row for (user, course) at most once; the unique key is the guard.",
}

// CertificateAggregate owns certificate issuance.
//
// A second Issue for the same pair returns the existing row together with a
// CodeAlreadyIssued error so callers can treat it as success.
type CertificateAggregate interface {
	Aggregate

	Issue(ctx context.Context, in IssueCertificateInput) (*enrollment.Certificate, error)
}

type IssueCertificateInput struct {
	UserID   uuid.UUID
	CourseID uuid.UUID
	IssuedAt time.Time
	Progress enrollment.Progress
}
