package app

import (
	"gorm.io/gorm"

	"github.com/alanpentz/course-platform/internal/data/repos"
	"github.com/alanpentz/course-platform/internal/platform/logger"
)

type Repos struct {
	Course         repos.CourseRepo
	Lesson         repos.LessonRepo
	Enrollment     repos.EnrollmentRepo
	LessonProgress repos.LessonProgressRepo
	Certificate    repos.CertificateRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Course:         repos.NewCourseRepo(db, log),
		Lesson:         repos.NewLessonRepo(db, log),
		Enrollment:     repos.NewEnrollmentRepo(db, log),
		LessonProgress: repos.NewLessonProgressRepo(db, log),
		Certificate:    repos.NewCertificateRepo(db, log),
	}
}
