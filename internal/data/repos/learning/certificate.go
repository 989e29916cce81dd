package learning

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/alanpentz/course-platform/internal/domain"
	"github.com/alanpentz/course-platform/internal/pkg/dbctx"
	"github.com/alanpentz/course-platform/internal/platform/logger"
)

type CertificateRepo interface {
	// CreateIfAbsent inserts row unless (user_id, course_id) already has a
	// certificate. It reports whether this call inserted.
	CreateIfAbsent(dbc dbctx.Context, row *types.Certificate) (bool, error)
	GetByUserAndCourse(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.Certificate, error)
	CountByUserAndCourse(dbc dbctx.Context, userID, courseID uuid.UUID) (int64, error)
}

type certificateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCertificateRepo(db *gorm.DB, baseLog *logger.Logger) CertificateRepo {
	return &certificateRepo{db: db, log: baseLog.With("repo", "CertificateRepo")}
}

func (r *certificateRepo) CreateIfAbsent(dbc dbctx.Context, row *types.Certificate) (bool, error) {
	if row == nil || row.UserID == uuid.Nil || row.CourseID == uuid.Nil {
		return false, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	res := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *certificateRepo) GetByUserAndCourse(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.Certificate, error) {
	if userID == uuid.Nil || courseID == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out types.Certificate
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *certificateRepo) CountByUserAndCourse(dbc dbctx.Context, userID, courseID uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var n int64
	if err := t.WithContext(dbc.Ctx).
		Model(&types.Certificate{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
