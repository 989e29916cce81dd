package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/alanpentz/course-platform/internal/domain"
	"github.com/alanpentz/course-platform/internal/pkg/dbctx"
	"github.com/alanpentz/course-platform/internal/platform/logger"
)

type EnrollmentRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Enrollment, error)
	// GetByUserAndCourse returns nil, nil when the user is not enrolled.
	GetByUserAndCourse(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.Enrollment, error)
	// LockByUserAndCourse is GetByUserAndCourse with a row lock; only meaningful inside a tx.
	LockByUserAndCourse(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.Enrollment, error)
	// CreateIfAbsent inserts row unless (user_id, course_id) already exists.
	// It reports whether this call inserted.
	CreateIfAbsent(dbc dbctx.Context, row *types.Enrollment) (bool, error)
	// ListByUser pages a user's enrollments newest first. An empty status lists all.
	ListByUser(dbc dbctx.Context, userID uuid.UUID, status string, limit, offset int) ([]*types.Enrollment, int64, error)
	ListByCourseAndStatuses(dbc dbctx.Context, courseID uuid.UUID, statuses []string) ([]*types.Enrollment, error)
	// UpdateProgressPercent writes percent when it differs from the stored value.
	UpdateProgressPercent(dbc dbctx.Context, id uuid.UUID, percent int, now time.Time) (bool, error)
}

type enrollmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	return &enrollmentRepo{db: db, log: baseLog.With("repo", "EnrollmentRepo")}
}

func (r *enrollmentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Enrollment, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out types.Enrollment
	if err := t.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *enrollmentRepo) GetByUserAndCourse(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.Enrollment, error) {
	return r.getByUserAndCourse(dbc, userID, courseID, false)
}

func (r *enrollmentRepo) LockByUserAndCourse(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.Enrollment, error) {
	return r.getByUserAndCourse(dbc, userID, courseID, true)
}

func (r *enrollmentRepo) getByUserAndCourse(dbc dbctx.Context, userID, courseID uuid.UUID, lock bool) (*types.Enrollment, error) {
	if userID == uuid.Nil || courseID == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var out types.Enrollment
	if err := q.
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

func (r *enrollmentRepo) CreateIfAbsent(dbc dbctx.Context, row *types.Enrollment) (bool, error) {
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
	if row.Status == "" {
		row.Status = types.EnrollmentStatusActive
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

func (r *enrollmentRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, status string, limit, offset int) ([]*types.Enrollment, int64, error) {
	results := []*types.Enrollment{}
	if userID == uuid.Nil {
		return results, 0, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	scoped := func() *gorm.DB {
		q := t.WithContext(dbc.Ctx).Model(&types.Enrollment{}).Where("user_id = ?", userID)
		if status != "" {
			q = q.Where("status = ?", status)
		}
		return q
	}
	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if err := scoped().
		Order("created_at DESC").
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *enrollmentRepo) ListByCourseAndStatuses(dbc dbctx.Context, courseID uuid.UUID, statuses []string) ([]*types.Enrollment, error) {
	results := []*types.Enrollment{}
	if courseID == uuid.Nil || len(statuses) == 0 {
		return results, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if err := t.WithContext(dbc.Ctx).
		Where("course_id = ? AND status IN ?", courseID, statuses).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *enrollmentRepo) UpdateProgressPercent(dbc dbctx.Context, id uuid.UUID, percent int, now time.Time) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Model(&types.Enrollment{}).
		Where("id = ? AND progress_percent <> ?", id, percent).
		Updates(map[string]interface{}{
			"progress_percent": percent,
			"updated_at":       now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
