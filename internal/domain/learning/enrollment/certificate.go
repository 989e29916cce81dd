package enrollment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Certificate is issued at most once per (user, course) and never updated.
type Certificate struct {
	ID       uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_certificate_user_course,unique" json:"user_id"`
	CourseID uuid.UUID      `gorm:"type:uuid;not null;index:idx_certificate_user_course,unique" json:"course_id"`
	IssuedAt time.Time      `gorm:"column:issued_at;not null" json:"issued_at"`
	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
}

func (Certificate) TableName() string { return "certificate" }

func (c *Certificate) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
