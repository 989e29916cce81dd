package enrollment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LessonProgress is sparse: a missing row means the lesson was never opened.
type LessonProgress struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;index:idx_lesson_progress_user_lesson,unique" json:"user_id"`
	LessonID       uuid.UUID  `gorm:"type:uuid;not null;index:idx_lesson_progress_user_lesson,unique" json:"lesson_id"`
	IsCompleted    bool       `gorm:"column:is_completed;not null;default:false" json:"is_completed"`
	CompletedAt    *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	LastAccessedAt time.Time  `gorm:"column:last_accessed_at;not null" json:"last_accessed_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (LessonProgress) TableName() string { return "lesson_progress" }

func (p *LessonProgress) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
