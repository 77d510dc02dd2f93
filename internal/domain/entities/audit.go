package entities

import "time"

// AuditEntry is the durable log line written for every completed assessment.
type AuditEntry struct {
	ID                 string       `json:"id" db:"id"`
	Timestamp          time.Time    `json:"timestamp" db:"timestamp"`
	PatientID          string       `json:"patient_id" db:"patient_id"`
	PatientName        string       `json:"patient_name" db:"patient_name"`
	DoctorID           string       `json:"doctor_id" db:"doctor_id"`
	Measurements       Measurements `json:"measurements"`
	Report             string       `json:"report" db:"report"`
	ImageRef           string       `json:"image_ref" db:"image_ref"`
	DetectionSucceeded bool         `json:"detection_succeeded" db:"detection_succeeded"`
}

// NewAuditEntry builds the audit entry for a record.
func NewAuditEntry(r *AssessmentRecord, at time.Time) *AuditEntry {
	return &AuditEntry{
		ID:                 r.ID,
		Timestamp:          at,
		PatientID:          r.Patient.ID,
		PatientName:        r.Patient.Name,
		DoctorID:           r.DoctorID,
		Measurements:       r.Measurements(),
		Report:             r.Report(),
		ImageRef:           r.ImageRef,
		DetectionSucceeded: r.DetectionSucceeded(),
	}
}
