package realtime

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventCertificateIssued  EventType = "certificate.issued"
	EventEnrollmentGranted  EventType = "enrollment.granted"
	EventEnrollmentComplete EventType = "enrollment.completed"
)

// Event is the envelope published on the events channel. Optional fields are
// omitted when they do not apply to the event type.
type Event struct {
	Type          EventType  `json:"type"`
	UserID        uuid.UUID  `json:"user_id"`
	CourseID      uuid.UUID  `json:"course_id"`
	EnrollmentID  *uuid.UUID `json:"enrollment_id,omitempty"`
	CertificateID *uuid.UUID `json:"certificate_id,omitempty"`
	IssuedAt      *time.Time `json:"issued_at,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

func CertificateIssued(userID, courseID, certificateID uuid.UUID, issuedAt time.Time) Event {
	return Event{
		Type:          EventCertificateIssued,
		UserID:        userID,
		CourseID:      courseID,
		CertificateID: &certificateID,
		IssuedAt:      &issuedAt,
		OccurredAt:    issuedAt,
	}
}

func EnrollmentGranted(userID, courseID, enrollmentID uuid.UUID, at time.Time) Event {
	return Event{
		Type:         EventEnrollmentGranted,
		UserID:       userID,
		CourseID:     courseID,
		EnrollmentID: &enrollmentID,
		OccurredAt:   at,
	}
}

func EnrollmentCompleted(userID, courseID, enrollmentID uuid.UUID, at time.Time) Event {
	return Event{
		Type:         EventEnrollmentComplete,
		UserID:       userID,
		CourseID:     courseID,
		EnrollmentID: &enrollmentID,
		OccurredAt:   at,
	}
}
