package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Lesson struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SectionID uuid.UUID      `gorm:"type:uuid;not null;index" json:"section_id"`
	Section   *CourseSection `gorm:"constraint:OnDelete:CASCADE;foreignKey:SectionID;references:ID" json:"section,omitempty"`
	// Denormalized so lesson -> course resolution is a single lookup.
	CourseID uuid.UUID `gorm:"type:uuid;not null;index" json:"course_id"`
	Ordinal  int       `gorm:"column:ordinal;not null" json:"ordinal"`
	Title    string    `gorm:"column:title;not null" json:"title"`
	Slug     string    `gorm:"column:slug" json:"slug"`

	DurationSeconds int  `gorm:"column:duration_seconds;not null;default:0" json:"duration_seconds"`
	IsPreview       bool `gorm:"column:is_preview;not null;default:false" json:"is_preview"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Lesson) TableName() string { return "lesson" }

func (l *Lesson) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
