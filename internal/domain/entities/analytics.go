package entities

// AssessmentStats summarises a doctor's assessment history.
type AssessmentStats struct {
	DoctorID       string         `json:"doctor_id"`
	TotalScans     int            `json:"total_scans"`
	ScansToday     int            `json:"scans_today"`
	AlertCount     int            `json:"alerts_count"`
	PatientCount   int            `json:"total_patients"`
	GradeBreakdown map[string]int `json:"breakdown"`
}
