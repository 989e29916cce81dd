package db

import (
	"fmt"

	types "github.com/alanpentz/course-platform/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// =========================
		// Catalog (read-only here, owned by the CMS)
		// =========================
		&types.Course{},
		&types.CourseSection{},
		&types.Lesson{},

		// =========================
		// Enrollment + progress
		// =========================
		&types.Enrollment{},
		&types.LessonProgress{},
		&types.Certificate{},
	)
}

// EnsureEnrollmentIndexes creates the indexes AutoMigrate cannot express from tags.
// Statements are portable between Postgres and SQLite.
func EnsureEnrollmentIndexes(db *gorm.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{
			name: "idx_lesson_course_ordinal",
			sql:  `CREATE INDEX IF NOT EXISTS idx_lesson_course_ordinal ON lesson(course_id, section_id, ordinal);`,
		},
		{
			name: "idx_course_section_course_ordinal",
			sql:  `CREATE INDEX IF NOT EXISTS idx_course_section_course_ordinal ON course_section(course_id, ordinal);`,
		},
		{
			name: "idx_enrollment_course_status",
			sql:  `CREATE INDEX IF NOT EXISTS idx_enrollment_course_status ON enrollment(course_id, status);`,
		},
		{
			name: "idx_enrollment_user_created",
			sql:  `CREATE INDEX IF NOT EXISTS idx_enrollment_user_created ON enrollment(user_id, created_at);`,
		},
	}
	for _, s := range stmts {
		if err := db.Exec(s.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}
	return nil
}

// Migrate runs AutoMigrateAll followed by EnsureEnrollmentIndexes.
func Migrate(db *gorm.DB) error {
	if err := AutoMigrateAll(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return EnsureEnrollmentIndexes(db)
}
