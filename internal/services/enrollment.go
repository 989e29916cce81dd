package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	dataagg "github.com/alanpentz/course-platform/internal/data/aggregates"
	"github.com/alanpentz/course-platform/internal/data/repos"
	types "github.com/alanpentz/course-platform/internal/domain"
	domainagg "github.com/alanpentz/course-platform/internal/domain/aggregates"
	"github.com/alanpentz/course-platform/internal/domain/learning/enrollment"
	"github.com/alanpentz/course-platform/internal/observability"
	"github.com/alanpentz/course-platform/internal/pkg/dbctx"
	"github.com/alanpentz/course-platform/internal/platform/logger"
)

const (
	GrantSourceAdmin = "admin"
	GrantSourceEvent = "event"

	reconcileTriggerLesson   = "lesson"
	reconcileTriggerBackfill = "course_backfill"

	defaultListLimit = 20
	maxListLimit     = 100
)

type GrantInput struct {
	UserID    uuid.UUID
	CourseID  uuid.UUID
	PaymentID string
	Source    string
}

type GrantResult struct {
	Enrollment *types.Enrollment `json:"enrollment"`
	Created    bool              `json:"created"`
}

type ReconcileResult struct {
	Enrollment *types.Enrollment `json:"enrollment"`
	Progress   types.Progress    `json:"progress"`
	// Completed is true only for the reconcile that moved the enrollment to COMPLETED.
	Completed   bool               `json:"completed"`
	Certificate *types.Certificate `json:"certificate,omitempty"`
}

type BackfillReport struct {
	CourseID  uuid.UUID `json:"course_id"`
	Scanned   int       `json:"scanned"`
	Completed int       `json:"completed"`
	Failed    int       `json:"failed"`
}

type EnrollmentService interface {
	Grant(ctx context.Context, in GrantInput) (*GrantResult, error)
	Reconcile(ctx context.Context, userID, courseID uuid.UUID) (*ReconcileResult, error)
	ReconcileCourse(ctx context.Context, courseID uuid.UUID) (*BackfillReport, error)
	Cancel(ctx context.Context, userID, courseID uuid.UUID) (*types.Enrollment, bool, error)

	GetEnrollment(ctx context.Context, userID, courseID uuid.UUID) (*types.Enrollment, error)
	CheckEnrollment(ctx context.Context, userID, courseID uuid.UUID) (bool, *types.Enrollment, error)
	ListEnrollments(ctx context.Context, userID uuid.UUID, status string, page, limit int) ([]*types.Enrollment, int64, error)
	GetCertificate(ctx context.Context, userID, courseID uuid.UUID) (*types.Certificate, error)
}

type EnrollmentServiceDeps struct {
	Enrollments  repos.EnrollmentRepo
	Progress     repos.LessonProgressRepo
	Certificates repos.CertificateRepo
	Structure    CourseStructureProvider
	Aggregate    domainagg.EnrollmentAggregate
	Issuer       CertificateIssuer
	Notifier     EventNotifier
	Metrics      *observability.Metrics
	// BackfillConcurrency bounds ReconcileCourse; values < 1 mean 4.
	BackfillConcurrency int
}

type enrollmentService struct {
	log  *logger.Logger
	deps EnrollmentServiceDeps
}

func NewEnrollmentService(log *logger.Logger, deps EnrollmentServiceDeps) EnrollmentService {
	if deps.BackfillConcurrency < 1 {
		deps.BackfillConcurrency = 4
	}
	return &enrollmentService{
		log:  log.With("service", "EnrollmentService"),
		deps: deps,
	}
}

func (s *enrollmentService) Grant(ctx context.Context, in GrantInput) (*GrantResult, error) {
	ctx, span := observability.Tracer("services").Start(ctx, "EnrollmentService.Grant")
	defer span.End()

	source := strings.TrimSpace(in.Source)
	if source == "" {
		source = GrantSourceAdmin
	}
	res, err := s.deps.Aggregate.Grant(ctx, domainagg.GrantEnrollmentInput{
		UserID:    in.UserID,
		CourseID:  in.CourseID,
		PaymentID: in.PaymentID,
		GrantedAt: time.Now().UTC(),
	})
	if err != nil {
		s.deps.Metrics.IncEnrollmentGrant(source, "failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "grant failed")
		return nil, err
	}

	outcome := "duplicate"
	if res.Created {
		outcome = "created"
	}
	s.deps.Metrics.IncEnrollmentGrant(source, outcome)
	span.SetAttributes(attribute.String("outcome", outcome))
	if res.Created {
		s.log.Info("enrollment granted", "user_id", in.UserID, "course_id", in.CourseID, "outcome", outcome, "source", source)
		if s.deps.Notifier != nil {
			s.deps.Notifier.EnrollmentGranted(ctx, res.Enrollment)
		}
	}
	return &GrantResult{Enrollment: res.Enrollment, Created: res.Created}, nil
}

func (s *enrollmentService) Reconcile(ctx context.Context, userID, courseID uuid.UUID) (*ReconcileResult, error) {
	return s.reconcile(ctx, userID, courseID, reconcileTriggerLesson)
}

// reconcile reads outside any transaction, then hands the computed progress to
// the aggregate, whose conditional update decides who completes the
// enrollment. Certificate issuance happens after that write has committed.
func (s *enrollmentService) reconcile(ctx context.Context, userID, courseID uuid.UUID, trigger string) (out *ReconcileResult, err error) {
	const op = "EnrollmentService.Reconcile"
	ctx, span := observability.Tracer("services").Start(ctx, op)
	defer span.End()
	span.SetAttributes(
		attribute.String("user_id", userID.String()),
		attribute.String("course_id", courseID.String()),
		attribute.String("trigger", trigger),
	)
	start := time.Now()
	defer func() {
		outcome := "ok"
		switch {
		case err != nil:
			outcome = string(domainagg.CodeOf(err))
			if outcome == "" {
				outcome = "error"
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		case out != nil && out.Completed:
			outcome = "completed"
		}
		s.deps.Metrics.ObserveReconcile(trigger, outcome, time.Since(start))
	}()

	dbc := dbctx.Context{Ctx: ctx}
	e, err := s.deps.Enrollments.GetByUserAndCourse(dbc, userID, courseID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	if e == nil {
		s.log.Error("reconcile without enrollment", "user_id", userID, "course_id", courseID, "trigger", trigger)
		return nil, domainagg.NewError(domainagg.CodeEnrollmentNotFound, op,
			fmt.Sprintf("no enrollment for user=%s course=%s", userID, courseID), nil)
	}

	progress, err := s.computeProgress(dbc, userID, courseID, s.deps.Structure.GetLessonIDs)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	if e.Status == types.EnrollmentStatusCancelled {
		return &ReconcileResult{Enrollment: e, Progress: progress}, nil
	}
	// The completion gate fires once, so a cached lesson set that missed a new
	// lesson must not decide it.
	if progress.IsComplete() && !e.IsCompleted() {
		progress, err = s.computeProgress(dbc, userID, courseID, s.deps.Structure.RefreshLessonIDs)
		if err != nil {
			return nil, dataagg.MapError(op, err)
		}
	}
	span.SetAttributes(attribute.Int("percent", progress.Percent), attribute.Int("total", progress.Total))

	applied, err := s.deps.Aggregate.ApplyProgress(ctx, domainagg.ApplyEnrollmentProgressInput{
		UserID:    userID,
		CourseID:  courseID,
		Progress:  progress,
		AppliedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	out = &ReconcileResult{Enrollment: applied.Enrollment, Progress: progress, Completed: applied.Completed}

	if applied.Completed {
		s.log.Info("enrollment completed", "user_id", userID, "course_id", courseID, "trigger", trigger)
		if s.deps.Notifier != nil {
			s.deps.Notifier.EnrollmentCompleted(ctx, applied.Enrollment)
		}
	}
	if !applied.Enrollment.IsCompleted() {
		return out, nil
	}

	// Only the gate winner issues on the happy path. Anyone else looks for the
	// certificate and issues it when the winner's issuance never landed.
	if !applied.Completed {
		cert, err := s.deps.Certificates.GetByUserAndCourse(dbc, userID, courseID)
		if err != nil {
			return nil, dataagg.MapError(op, err)
		}
		if cert != nil {
			out.Certificate = cert
			return out, nil
		}
		s.log.Warn("completed enrollment missing certificate; issuing", "user_id", userID, "course_id", courseID)
	}
	cert, _, err := s.deps.Issuer.Issue(ctx, userID, courseID, progress)
	if err != nil {
		s.log.Error("certificate issuance failed; next reconcile retries", "user_id", userID, "course_id", courseID, "error", err)
		return nil, err
	}
	out.Certificate = cert
	return out, nil
}

func (s *enrollmentService) computeProgress(
	dbc dbctx.Context,
	userID, courseID uuid.UUID,
	lessons func(context.Context, uuid.UUID) ([]uuid.UUID, error),
) (enrollment.Progress, error) {
	lessonIDs, err := lessons(dbc.Ctx, courseID)
	if err != nil {
		return enrollment.Progress{}, err
	}
	rows, err := s.deps.Progress.GetByUserAndLessonIDs(dbc, userID, lessonIDs)
	if err != nil {
		return enrollment.Progress{}, err
	}
	return enrollment.ComputeProgress(lessonIDs, enrollment.IndexByLesson(rows)), nil
}

func (s *enrollmentService) ReconcileCourse(ctx context.Context, courseID uuid.UUID) (*BackfillReport, error) {
	const op = "EnrollmentService.ReconcileCourse"
	ctx, span := observability.Tracer("services").Start(ctx, op)
	defer span.End()

	if courseID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing course_id", nil)
	}
	if err := s.deps.Structure.InvalidateCourse(ctx, courseID); err != nil {
		s.log.Warn("course structure invalidation failed", "course_id", courseID, "error", err)
	}
	rows, err := s.deps.Enrollments.ListByCourseAndStatuses(dbctx.Context{Ctx: ctx}, courseID,
		[]string{types.EnrollmentStatusActive, types.EnrollmentStatusCompleted})
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}

	report := &BackfillReport{CourseID: courseID, Scanned: len(rows)}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.deps.BackfillConcurrency)
	for _, e := range rows {
		userID := e.UserID
		g.Go(func() error {
			res, err := s.reconcile(gctx, userID, courseID, reconcileTriggerBackfill)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				s.log.Warn("backfill reconcile failed", "user_id", userID, "course_id", courseID, "error", err)
				return nil
			}
			if res.Completed {
				report.Completed++
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return report, domainagg.Wrap(domainagg.CodeRetryable, op, err)
	}
	s.log.Info("course reconciled", "course_id", courseID, "scanned", report.Scanned, "completed", report.Completed, "failed", report.Failed)
	return report, nil
}

func (s *enrollmentService) Cancel(ctx context.Context, userID, courseID uuid.UUID) (*types.Enrollment, bool, error) {
	res, err := s.deps.Aggregate.Cancel(ctx, domainagg.CancelEnrollmentInput{
		UserID:      userID,
		CourseID:    courseID,
		CancelledAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, false, err
	}
	if res.Changed {
		s.log.Info("enrollment cancelled", "user_id", userID, "course_id", courseID)
	}
	return res.Enrollment, res.Changed, nil
}

func (s *enrollmentService) GetEnrollment(ctx context.Context, userID, courseID uuid.UUID) (*types.Enrollment, error) {
	const op = "EnrollmentService.GetEnrollment"
	e, err := s.deps.Enrollments.GetByUserAndCourse(dbctx.Context{Ctx: ctx}, userID, courseID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	if e == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "enrollment not found", nil)
	}
	return e, nil
}

func (s *enrollmentService) CheckEnrollment(ctx context.Context, userID, courseID uuid.UUID) (bool, *types.Enrollment, error) {
	e, err := s.deps.Enrollments.GetByUserAndCourse(dbctx.Context{Ctx: ctx}, userID, courseID)
	if err != nil {
		return false, nil, dataagg.MapError("EnrollmentService.CheckEnrollment", err)
	}
	return e.GrantsAccess(), e, nil
}

func (s *enrollmentService) ListEnrollments(ctx context.Context, userID uuid.UUID, status string, page, limit int) ([]*types.Enrollment, int64, error) {
	const op = "EnrollmentService.ListEnrollments"
	status = strings.ToUpper(strings.TrimSpace(status))
	if status != "" && !enrollment.IsKnownStatus(status) {
		return nil, 0, domainagg.NewError(domainagg.CodeValidation, op, "unknown status: "+status, nil)
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if page < 1 {
		page = 1
	}
	rows, total, err := s.deps.Enrollments.ListByUser(dbctx.Context{Ctx: ctx}, userID, status, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, dataagg.MapError(op, err)
	}
	return rows, total, nil
}

func (s *enrollmentService) GetCertificate(ctx context.Context, userID, courseID uuid.UUID) (*types.Certificate, error) {
	const op = "EnrollmentService.GetCertificate"
	c, err := s.deps.Certificates.GetByUserAndCourse(dbctx.Context{Ctx: ctx}, userID, courseID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	if c == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "certificate not found", nil)
	}
	return c, nil
}
