package services

import (
	"testing"

	"gorm.io/gorm"

	"github.com/alanpentz/course-platform/internal/data/aggregates"
	"github.com/alanpentz/course-platform/internal/data/repos"
	repotest "github.com/alanpentz/course-platform/internal/data/repos/testutil"
	"github.com/alanpentz/course-platform/internal/observability"
	"github.com/alanpentz/course-platform/internal/realtime/bus"
)

type harness struct {
	db *gorm.DB

	courses      repos.CourseRepo
	lessons      repos.LessonRepo
	enrollments  repos.EnrollmentRepo
	progress     repos.LessonProgressRepo
	certificates repos.CertificateRepo

	bus        *bus.MemoryBus
	metrics    *observability.Metrics
	structure  CourseStructureProvider
	issuer     CertificateIssuer
	enrollment EnrollmentService
	progressSv ProgressService
}

type harnessOption func(*EnrollmentServiceDeps)

// newHarness wires the services on db. Pass a test transaction for isolated
// sequential tests, or the raw handle when goroutines need separate transactions.
func newHarness(t *testing.T, db *gorm.DB, opts ...harnessOption) *harness {
	t.Helper()
	log := repotest.Logger(t)
	h := &harness{
		db:           db,
		courses:      repos.NewCourseRepo(db, log),
		lessons:      repos.NewLessonRepo(db, log),
		enrollments:  repos.NewEnrollmentRepo(db, log),
		progress:     repos.NewLessonProgressRepo(db, log),
		certificates: repos.NewCertificateRepo(db, log),
		bus:          bus.NewMemoryBus(),
		metrics:      observability.New(),
	}
	base := aggregates.BaseDeps{
		DB:       db,
		Log:      log,
		Runner:   aggregates.NewGormTxRunner(db),
		Hooks:    aggregates.NewObservabilityHooks(h.metrics),
		CASGuard: aggregates.NewCASGuard(db),
	}
	notifier := NewEventNotifier(log, h.bus, h.metrics)
	h.structure = NewCourseStructureProvider(log, h.courses)
	h.issuer = NewCertificateIssuer(log, aggregates.NewCertificateAggregate(aggregates.CertificateAggregateDeps{
		Base:         base,
		Certificates: h.certificates,
	}), notifier, h.metrics)

	deps := EnrollmentServiceDeps{
		Enrollments:  h.enrollments,
		Progress:     h.progress,
		Certificates: h.certificates,
		Structure:    h.structure,
		Aggregate: aggregates.NewEnrollmentAggregate(aggregates.EnrollmentAggregateDeps{
			Base:        base,
			Enrollments: h.enrollments,
		}),
		Issuer:   h.issuer,
		Notifier: notifier,
		Metrics:  h.metrics,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	h.structure = deps.Structure
	h.enrollment = NewEnrollmentService(log, deps)
	h.progressSv = NewProgressService(log, deps.Enrollments, h.lessons, h.progress, h.structure, h.enrollment, h.metrics)
	return h
}

// newTxHarness runs everything inside one rolled-back transaction, so nested
// aggregate writes become savepoints and must not run concurrently.
func newTxHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	db := repotest.DB(t)
	opts = append([]harnessOption{func(d *EnrollmentServiceDeps) { d.BackfillConcurrency = 1 }}, opts...)
	return newHarness(t, repotest.Tx(t, db), opts...)
}
