package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	dataagg "github.com/alanpentz/course-platform/internal/data/aggregates"
	"github.com/alanpentz/course-platform/internal/data/repos"
	types "github.com/alanpentz/course-platform/internal/domain"
	domainagg "github.com/alanpentz/course-platform/internal/domain/aggregates"
	"github.com/alanpentz/course-platform/internal/domain/learning/enrollment"
	"github.com/alanpentz/course-platform/internal/observability"
	"github.com/alanpentz/course-platform/internal/pkg/dbctx"
	"github.com/alanpentz/course-platform/internal/platform/logger"
)

type RecordCompletionInput struct {
	UserID      uuid.UUID
	CourseID    uuid.UUID
	LessonID    uuid.UUID
	IsCompleted bool
}

type RecordCompletionResult struct {
	LessonProgress *types.LessonProgress `json:"lesson_progress"`
	Reconcile      *ReconcileResult      `json:"reconcile"`
}

type LessonStatus struct {
	LessonID       uuid.UUID  `json:"lesson_id"`
	IsCompleted    bool       `json:"is_completed"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
}

type ProgressSummary struct {
	Enrollment *types.Enrollment `json:"enrollment"`
	types.Progress
	Lessons []LessonStatus `json:"lessons"`
}

type ProgressService interface {
	// RecordCompletion upserts one lesson's progress and reconciles the enrollment.
	RecordCompletion(ctx context.Context, in RecordCompletionInput) (*RecordCompletionResult, error)
	// GetProgressSummary computes progress without writing anything.
	GetProgressSummary(ctx context.Context, userID, courseID uuid.UUID) (*ProgressSummary, error)
}

type progressService struct {
	log         *logger.Logger
	enrollments repos.EnrollmentRepo
	lessons     repos.LessonRepo
	progress    repos.LessonProgressRepo
	structure   CourseStructureProvider
	lifecycle   EnrollmentService
	metrics     *observability.Metrics
}

func NewProgressService(
	log *logger.Logger,
	enrollments repos.EnrollmentRepo,
	lessons repos.LessonRepo,
	progress repos.LessonProgressRepo,
	structure CourseStructureProvider,
	lifecycle EnrollmentService,
	metrics *observability.Metrics,
) ProgressService {
	return &progressService{
		log:         log.With("service", "ProgressService"),
		enrollments: enrollments,
		lessons:     lessons,
		progress:    progress,
		structure:   structure,
		lifecycle:   lifecycle,
		metrics:     metrics,
	}
}

func (s *progressService) RecordCompletion(ctx context.Context, in RecordCompletionInput) (*RecordCompletionResult, error) {
	const op = "ProgressService.RecordCompletion"
	ctx, span := observability.Tracer("services").Start(ctx, op)
	defer span.End()
	span.SetAttributes(
		attribute.String("course_id", in.CourseID.String()),
		attribute.String("lesson_id", in.LessonID.String()),
		attribute.Bool("is_completed", in.IsCompleted),
	)

	if in.UserID == uuid.Nil || in.CourseID == uuid.Nil || in.LessonID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id, course_id or lesson_id", nil)
	}
	dbc := dbctx.Context{Ctx: ctx}

	e, err := s.enrollments.GetByUserAndCourse(dbc, in.UserID, in.CourseID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	if !e.GrantsAccess() {
		return nil, domainagg.NewError(domainagg.CodeNotEnrolled, op, "not enrolled in course", nil)
	}

	lesson, err := s.lessons.GetByID(dbc, in.LessonID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	if lesson == nil || lesson.CourseID != in.CourseID {
		return nil, domainagg.NewError(domainagg.CodeLessonNotFound, op,
			fmt.Sprintf("lesson %s not found in course %s", in.LessonID, in.CourseID), nil)
	}

	lp, err := s.progress.SetCompletion(dbc, in.UserID, in.LessonID, in.IsCompleted, time.Now().UTC())
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	s.metrics.IncLessonProgress(in.IsCompleted)

	rec, err := s.lifecycle.Reconcile(ctx, in.UserID, in.CourseID)
	if err != nil {
		return nil, err
	}
	return &RecordCompletionResult{LessonProgress: lp, Reconcile: rec}, nil
}

func (s *progressService) GetProgressSummary(ctx context.Context, userID, courseID uuid.UUID) (*ProgressSummary, error) {
	const op = "ProgressService.GetProgressSummary"
	ctx, span := observability.Tracer("services").Start(ctx, op)
	defer span.End()

	dbc := dbctx.Context{Ctx: ctx}
	e, err := s.enrollments.GetByUserAndCourse(dbc, userID, courseID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	if e == nil {
		return nil, domainagg.NewError(domainagg.CodeNotEnrolled, op, "not enrolled in course", nil)
	}

	lessonIDs, err := s.structure.GetLessonIDs(ctx, courseID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	rows, err := s.progress.GetByUserAndLessonIDs(dbc, userID, lessonIDs)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	byLesson := enrollment.IndexByLesson(rows)

	out := &ProgressSummary{
		Enrollment: e,
		Progress:   enrollment.ComputeProgress(lessonIDs, byLesson),
		Lessons:    make([]LessonStatus, 0, len(lessonIDs)),
	}
	for _, id := range lessonIDs {
		st := LessonStatus{LessonID: id}
		if lp := byLesson[id]; lp != nil {
			st.IsCompleted = lp.IsCompleted
			st.CompletedAt = lp.CompletedAt
			accessed := lp.LastAccessedAt
			st.LastAccessedAt = &accessed
		}
		out.Lessons = append(out.Lessons, st)
	}
	return out, nil
}
