package aggregates

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/alanpentz/course-platform/internal/data/repos"
	types "github.com/alanpentz/course-platform/internal/domain"
	domainagg "github.com/alanpentz/course-platform/internal/domain/aggregates"
	"github.com/alanpentz/course-platform/internal/pkg/dbctx"
)

type CertificateAggregateDeps struct {
	Base BaseDeps

	Certificates repos.CertificateRepo
}

type certificateAggregate struct {
	deps CertificateAggregateDeps
}

func NewCertificateAggregate(deps CertificateAggregateDeps) domainagg.CertificateAggregate {
	deps.Base = deps.Base.withDefaults()
	return &certificateAggregate{deps: deps}
}

func (a *certificateAggregate) Contract() domainagg.Contract {
	return domainagg.CertificateAggregateContract
}

type certificateMetadata struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

func (a *certificateAggregate) Issue(ctx context.Context, in domainagg.IssueCertificateInput) (*types.Certificate, error) {
	const op = "Learning.Certificate.Issue"
	if in.UserID == uuid.Nil || in.CourseID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id or course_id", nil)
	}
	if a.deps.Certificates == nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "certificate repo not configured", nil)
	}
	issuedAt := in.IssuedAt.UTC()
	if in.IssuedAt.IsZero() {
		issuedAt = time.Now().UTC()
	}
	meta, err := json.Marshal(certificateMetadata{Completed: in.Progress.Completed, Total: in.Progress.Total})
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}

	var (
		out     *types.Certificate
		created bool
	)
	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		row := &types.Certificate{
			ID:       uuid.New(),
			UserID:   in.UserID,
			CourseID: in.CourseID,
			IssuedAt: issuedAt,
			Metadata: datatypes.JSON(meta),
		}
		ok, err := a.deps.Certificates.CreateIfAbsent(dbc, row)
		if err != nil {
			return err
		}
		created = ok
		if ok {
			out = row
			return nil
		}
		existing, err := a.deps.Certificates.GetByUserAndCourse(dbc, in.UserID, in.CourseID)
		if err != nil {
			return err
		}
		out = existing
		return nil
	})
	if err != nil {
		// A unique violation that slipped past ON CONFLICT still means someone else issued it.
		if domainagg.IsCode(err, domainagg.CodeConflict) {
			return a.lookupExisting(ctx, op, in)
		}
		return nil, err
	}
	if !created {
		return out, domainagg.NewError(domainagg.CodeAlreadyIssued, op, "certificate already issued", nil)
	}
	return out, nil
}

func (a *certificateAggregate) lookupExisting(ctx context.Context, op string, in domainagg.IssueCertificateInput) (*types.Certificate, error) {
	existing, err := a.deps.Certificates.GetByUserAndCourse(dbctx.Context{Ctx: ctx}, in.UserID, in.CourseID)
	if err != nil {
		return nil, MapError(op, err)
	}
	return existing, domainagg.NewError(domainagg.CodeAlreadyIssued, op, "certificate already issued", nil)
}
