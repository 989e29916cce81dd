package app

import (
	goredis "github.com/redis/go-redis/v9"

	"github.com/alanpentz/course-platform/internal/observability"
	"github.com/alanpentz/course-platform/internal/platform/logger"
	"github.com/alanpentz/course-platform/internal/realtime/bus"
	"github.com/alanpentz/course-platform/internal/services"
)

type Services struct {
	Structure  services.CourseStructureProvider
	Notifier   services.EventNotifier
	Issuer     services.CertificateIssuer
	Enrollment services.EnrollmentService
	Progress   services.ProgressService
	Grants     services.GrantConsumer
}

func wireServices(
	log *logger.Logger,
	cfg Config,
	reposet Repos,
	aggs Aggregates,
	rdb goredis.UniversalClient,
	eventBus bus.Bus,
	metrics *observability.Metrics,
) Services {
	log.Info("Wiring services...")

	var structure services.CourseStructureProvider = services.NewCourseStructureProvider(log, reposet.Course)
	if rdb != nil && cfg.CourseStructureCacheTTL > 0 {
		structure = services.NewCachedCourseStructureProvider(log, structure, rdb, cfg.CourseStructureCacheTTL, metrics)
	}

	notifier := services.NewEventNotifier(log, eventBus, metrics)
	issuer := services.NewCertificateIssuer(log, aggs.Certificate, notifier, metrics)

	enrollment := services.NewEnrollmentService(log, services.EnrollmentServiceDeps{
		Enrollments:         reposet.Enrollment,
		Progress:            reposet.LessonProgress,
		Certificates:        reposet.Certificate,
		Structure:           structure,
		Aggregate:           aggs.Enrollment,
		Issuer:              issuer,
		Notifier:            notifier,
		Metrics:             metrics,
		BackfillConcurrency: cfg.BackfillConcurrency,
	})
	progress := services.NewProgressService(
		log,
		reposet.Enrollment,
		reposet.Lesson,
		reposet.LessonProgress,
		structure,
		enrollment,
		metrics,
	)

	return Services{
		Structure:  structure,
		Notifier:   notifier,
		Issuer:     issuer,
		Enrollment: enrollment,
		Progress:   progress,
		Grants:     services.NewGrantConsumer(log, eventBus, enrollment),
	}
}
