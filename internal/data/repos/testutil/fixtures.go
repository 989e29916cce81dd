package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/alanpentz/course-platform/internal/domain"
)

// SeededCourse is a course plus its lessons in playback order.
type SeededCourse struct {
	Course   *types.Course
	Sections []*types.CourseSection
	Lessons  []*types.Lesson
}

func (s SeededCourse) LessonIDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(s.Lessons))
	for _, l := range s.Lessons {
		out = append(out, l.ID)
	}
	return out
}

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, slug string) *types.Course {
	tb.Helper()
	c := &types.Course{
		ID:       uuid.New(),
		Slug:     slug + "-" + uuid.NewString()[:8],
		Title:    "course " + slug,
		Status:   types.CourseStatusPublished,
		Metadata: datatypes.JSON([]byte("{}")),
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

func SeedSection(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, ordinal int) *types.CourseSection {
	tb.Helper()
	s := &types.CourseSection{
		ID:       uuid.New(),
		CourseID: courseID,
		Ordinal:  ordinal,
		Title:    "section",
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed section: %v", err)
	}
	return s
}

func SeedLesson(tb testing.TB, ctx context.Context, tx *gorm.DB, section *types.CourseSection, ordinal int) *types.Lesson {
	tb.Helper()
	l := &types.Lesson{
		ID:              uuid.New(),
		SectionID:       section.ID,
		CourseID:        section.CourseID,
		Ordinal:         ordinal,
		Title:           "lesson",
		DurationSeconds: 300,
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed lesson: %v", err)
	}
	return l
}

// SeedCourseWithLessons creates a course whose lessons are spread over sections
// of perSection lessons each.
func SeedCourseWithLessons(tb testing.TB, ctx context.Context, tx *gorm.DB, lessons, perSection int) SeededCourse {
	tb.Helper()
	if perSection <= 0 {
		perSection = 1
	}
	out := SeededCourse{Course: SeedCourse(tb, ctx, tx, "course")}
	var section *types.CourseSection
	for i := 0; i < lessons; i++ {
		if i%perSection == 0 {
			section = SeedSection(tb, ctx, tx, out.Course.ID, len(out.Sections))
			out.Sections = append(out.Sections, section)
		}
		out.Lessons = append(out.Lessons, SeedLesson(tb, ctx, tx, section, i%perSection))
	}
	return out
}

func SeedEnrollment(tb testing.TB, ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID, status string) *types.Enrollment {
	tb.Helper()
	e := &types.Enrollment{
		ID:       uuid.New(),
		UserID:   userID,
		CourseID: courseID,
		Status:   status,
	}
	if status == types.EnrollmentStatusCompleted {
		now := time.Now().UTC()
		e.CompletedAt = &now
		e.ProgressPercent = 100
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed enrollment: %v", err)
	}
	return e
}

func SeedLessonProgress(tb testing.TB, ctx context.Context, tx *gorm.DB, userID, lessonID uuid.UUID, completed bool) *types.LessonProgress {
	tb.Helper()
	now := time.Now().UTC()
	p := &types.LessonProgress{
		ID:             uuid.New(),
		UserID:         userID,
		LessonID:       lessonID,
		IsCompleted:    completed,
		LastAccessedAt: now,
	}
	if completed {
		p.CompletedAt = &now
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed lesson progress: %v", err)
	}
	return p
}
