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

type LessonProgressRepo interface {
	GetByUserAndLesson(dbc dbctx.Context, userID, lessonID uuid.UUID) (*types.LessonProgress, error)
	GetByUserAndLessonIDs(dbc dbctx.Context, userID uuid.UUID, lessonIDs []uuid.UUID) ([]*types.LessonProgress, error)
	// SetCompletion upserts the (user, lesson) row in one statement.
	//
	// completed=true keeps an existing completed_at and only stamps now when the
	// row had none; completed=false clears it. last_accessed_at is always now.
	SetCompletion(dbc dbctx.Context, userID, lessonID uuid.UUID, completed bool, now time.Time) (*types.LessonProgress, error)
}

type lessonProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonProgressRepo(db *gorm.DB, baseLog *logger.Logger) LessonProgressRepo {
	return &lessonProgressRepo{db: db, log: baseLog.With("repo", "LessonProgressRepo")}
}

func (r *lessonProgressRepo) GetByUserAndLesson(dbc dbctx.Context, userID, lessonID uuid.UUID) (*types.LessonProgress, error) {
	if userID == uuid.Nil || lessonID == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out types.LessonProgress
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *lessonProgressRepo) GetByUserAndLessonIDs(dbc dbctx.Context, userID uuid.UUID, lessonIDs []uuid.UUID) ([]*types.LessonProgress, error) {
	results := []*types.LessonProgress{}
	if userID == uuid.Nil || len(lessonIDs) == 0 {
		return results, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND lesson_id IN ?", userID, lessonIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *lessonProgressRepo) SetCompletion(dbc dbctx.Context, userID, lessonID uuid.UUID, completed bool, now time.Time) (*types.LessonProgress, error) {
	if userID == uuid.Nil || lessonID == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	row := &types.LessonProgress{
		ID:             uuid.New(),
		UserID:         userID,
		LessonID:       lessonID,
		IsCompleted:    completed,
		LastAccessedAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if completed {
		row.CompletedAt = &now
	}

	err := t.WithContext(dbc.Ctx).
		Select("*").
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
			DoUpdates: clause.Set{
				{Column: clause.Column{Name: "is_completed"}, Value: gorm.Expr("excluded.is_completed")},
				{Column: clause.Column{Name: "completed_at"}, Value: gorm.Expr(
					"CASE WHEN excluded.is_completed THEN COALESCE(lesson_progress.completed_at, excluded.completed_at) ELSE NULL END",
				)},
				{Column: clause.Column{Name: "last_accessed_at"}, Value: gorm.Expr("excluded.last_accessed_at")},
				{Column: clause.Column{Name: "updated_at"}, Value: gorm.Expr("excluded.updated_at")},
			},
		}).
		Create(row).Error
	if err != nil {
		return nil, err
	}
	return r.GetByUserAndLesson(dbc, userID, lessonID)
}
