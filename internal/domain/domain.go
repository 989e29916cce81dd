package domain

import (
	"github.com/alanpentz/course-platform/internal/domain/learning/catalog"
	"github.com/alanpentz/course-platform/internal/domain/learning/enrollment"
)

const (
	EnrollmentStatusActive    = enrollment.StatusActive
	EnrollmentStatusCompleted = enrollment.StatusCompleted
	EnrollmentStatusCancelled = enrollment.StatusCancelled

	CourseStatusDraft     = catalog.CourseStatusDraft
	CourseStatusPublished = catalog.CourseStatusPublished
	CourseStatusArchived  = catalog.CourseStatusArchived
)

type Course = catalog.Course
type CourseSection = catalog.CourseSection
type Lesson = catalog.Lesson

type Enrollment = enrollment.Enrollment
type LessonProgress = enrollment.LessonProgress
type Certificate = enrollment.Certificate
type Progress = enrollment.Progress
