package enrollment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusActive    = "ACTIVE"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

// Enrollment is a user's access to a course plus the aggregate progress
// derived from their lesson progress rows.
//
// ProgressPercent is only ever written by reconcile. Once Status is COMPLETED
// it never goes back to ACTIVE.
type Enrollment struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;index:idx_enrollment_user_course,unique" json:"user_id"`
	CourseID        uuid.UUID  `gorm:"type:uuid;not null;index:idx_enrollment_user_course,unique;index" json:"course_id"`
	Status          string     `gorm:"column:status;not null;default:'ACTIVE';index" json:"status"`
	ProgressPercent int        `gorm:"column:progress_percent;not null;default:0" json:"progress_percent"`
	CompletedAt     *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	PaymentID       *string    `gorm:"column:payment_id" json:"payment_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (Enrollment) TableName() string { return "enrollment" }

func (e *Enrollment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// GrantsAccess reports whether the enrollment lets the user record lesson progress.
func (e *Enrollment) GrantsAccess() bool {
	if e == nil {
		return false
	}
	return e.Status == StatusActive || e.Status == StatusCompleted
}

func (e *Enrollment) IsCompleted() bool {
	return e != nil && e.Status == StatusCompleted && e.CompletedAt != nil
}

func IsKnownStatus(status string) bool {
	switch status {
	case StatusActive, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}
