package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	types "github.com/alanpentz/course-platform/internal/domain"
	domainagg "github.com/alanpentz/course-platform/internal/domain/aggregates"
	"github.com/alanpentz/course-platform/internal/observability"
	"github.com/alanpentz/course-platform/internal/platform/logger"
)

// CertificateIssuer creates the one certificate a user gets for a course.
// Issuing again returns the existing certificate with issued=false.
type CertificateIssuer interface {
	Issue(ctx context.Context, userID, courseID uuid.UUID, progress types.Progress) (cert *types.Certificate, issued bool, err error)
}

type certificateIssuer struct {
	log      *logger.Logger
	agg      domainagg.CertificateAggregate
	notifier EventNotifier
	metrics  *observability.Metrics
}

func NewCertificateIssuer(log *logger.Logger, agg domainagg.CertificateAggregate, notifier EventNotifier, metrics *observability.Metrics) CertificateIssuer {
	return &certificateIssuer{
		log:      log.With("service", "CertificateIssuer"),
		agg:      agg,
		notifier: notifier,
		metrics:  metrics,
	}
}

func (s *certificateIssuer) Issue(ctx context.Context, userID, courseID uuid.UUID, progress types.Progress) (*types.Certificate, bool, error) {
	ctx, span := observability.Tracer("services").Start(ctx, "CertificateIssuer.Issue")
	defer span.End()
	span.SetAttributes(
		attribute.String("user_id", userID.String()),
		attribute.String("course_id", courseID.String()),
	)

	cert, err := s.agg.Issue(ctx, domainagg.IssueCertificateInput{
		UserID:   userID,
		CourseID: courseID,
		IssuedAt: time.Now().UTC(),
		Progress: progress,
	})
	if domainagg.IsCode(err, domainagg.CodeAlreadyIssued) {
		s.metrics.IncCertificate("already_issued")
		span.SetAttributes(attribute.Bool("already_issued", true))
		return cert, false, nil
	}
	if err != nil {
		s.metrics.IncCertificate("failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "issue failed")
		return nil, false, err
	}

	s.metrics.IncCertificate("issued")
	s.log.Info("certificate issued", "user_id", userID, "course_id", courseID, "certificate_id", cert.ID)
	if s.notifier != nil {
		s.notifier.CertificateIssued(ctx, cert)
	}
	return cert, true, nil
}
