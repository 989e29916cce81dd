package app

import (
	"gorm.io/gorm"

	"github.com/alanpentz/course-platform/internal/data/aggregates"
	domainagg "github.com/alanpentz/course-platform/internal/domain/aggregates"
	"github.com/alanpentz/course-platform/internal/observability"
	"github.com/alanpentz/course-platform/internal/platform/logger"
)

type Aggregates struct {
	Enrollment  domainagg.EnrollmentAggregate
	Certificate domainagg.CertificateAggregate
}

func wireAggregates(db *gorm.DB, log *logger.Logger, reposet Repos, metrics *observability.Metrics) Aggregates {
	log.Info("Wiring aggregates...")
	base := aggregates.BaseDeps{
		DB:       db,
		Log:      log,
		Runner:   aggregates.NewGormTxRunner(db),
		Hooks:    aggregates.NewObservabilityHooks(metrics),
		CASGuard: aggregates.NewCASGuard(db),
	}
	return Aggregates{
		Enrollment: aggregates.NewEnrollmentAggregate(aggregates.EnrollmentAggregateDeps{
			Base:        base,
			Enrollments: reposet.Enrollment,
		}),
		Certificate: aggregates.NewCertificateAggregate(aggregates.CertificateAggregateDeps{
			Base:         base,
			Certificates: reposet.Certificate,
		}),
	}
}
