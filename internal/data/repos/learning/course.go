package learning

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/alanpentz/course-platform/internal/domain"
	"github.com/alanpentz/course-platform/internal/pkg/dbctx"
	"github.com/alanpentz/course-platform/internal/platform/logger"
)

// CourseRepo reads the catalog. Courses, sections and lessons are written by
// the content system, never by this service.
type CourseRepo interface {
	GetByID(dbc dbctx.Context, courseID uuid.UUID) (*types.Course, error)
	// ListLessonIDs returns the live lesson ids of a course in playback order
	// (section ordinal, then lesson ordinal). Soft-deleted lessons and lessons
	// in soft-deleted sections are excluded.
	ListLessonIDs(dbc dbctx.Context, courseID uuid.UUID) ([]uuid.UUID, error)
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return &courseRepo{db: db, log: baseLog.With("repo", "CourseRepo")}
}

func (r *courseRepo) GetByID(dbc dbctx.Context, courseID uuid.UUID) (*types.Course, error) {
	if courseID == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out types.Course
	if err := t.WithContext(dbc.Ctx).
		Where("id = ?", courseID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *courseRepo) ListLessonIDs(dbc dbctx.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	out := []uuid.UUID{}
	if courseID == uuid.Nil {
		return out, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if err := t.WithContext(dbc.Ctx).
		Model(&types.Lesson{}).
		Joins("JOIN course_section ON course_section.id = lesson.section_id AND course_section.deleted_at IS NULL").
		Where("lesson.course_id = ?", courseID).
		Order("course_section.ordinal ASC").
		Order("lesson.ordinal ASC").
		Order("lesson.id ASC").
		Pluck("lesson.id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
