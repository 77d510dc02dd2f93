package entities

import (
	"time"

	"github.com/google/uuid"
)

// AssessmentEventType represents the type of assessment event
type AssessmentEventType string

const (
	AssessmentEventTypeCompleted AssessmentEventType = "assessment_completed"
)

// AssessmentEvent is published when an assessment has been written to the
// audit log.
type AssessmentEvent struct {
	ID                 string              `json:"id"`
	EventType          AssessmentEventType `json:"event_type"`
	AssessmentID       string              `json:"assessment_id"`
	PatientID          string              `json:"patient_id"`
	DoctorID           string              `json:"doctor_id"`
	Measurements       Measurements        `json:"measurements"`
	DetectionSucceeded bool                `json:"detection_succeeded"`
	Alert              bool                `json:"alert"`
	Timestamp          time.Time           `json:"timestamp"`
}

// NewAssessmentCompletedEvent creates the completion event for an audit entry.
func NewAssessmentCompletedEvent(entry *AuditEntry) *AssessmentEvent {
	return &AssessmentEvent{
		ID:                 uuid.New().String(),
		EventType:          AssessmentEventTypeCompleted,
		AssessmentID:       entry.ID,
		PatientID:          entry.PatientID,
		DoctorID:           entry.DoctorID,
		Measurements:       entry.Measurements,
		DetectionSucceeded: entry.DetectionSucceeded,
		Alert:              HasClinicalAlert(entry.Report),
		Timestamp:          entry.Timestamp,
	}
}
