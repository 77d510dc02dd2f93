package services

import (
	"context"
	"strings"
	"time"

	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
	"github.com/zatekoja/woundsense/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/woundsense/backend/pkg/errors"
)

// AssessmentAnalyticsService answers history and summary questions over the
// audit log.
type AssessmentAnalyticsService struct {
	repo repositories.AssessmentRepository
}

// NewAssessmentAnalyticsService creates a new analytics service.
func NewAssessmentAnalyticsService(repo repositories.AssessmentRepository) *AssessmentAnalyticsService {
	return &AssessmentAnalyticsService{repo: repo}
}

// History returns a patient's or doctor's assessments, newest first.
func (s *AssessmentAnalyticsService) History(ctx context.Context, filter repositories.AssessmentFilter) ([]*entities.AuditEntry, error) {
	filter.PatientID = strings.TrimSpace(filter.PatientID)
	filter.DoctorID = strings.TrimSpace(filter.DoctorID)
	if filter.Limit < 0 {
		return nil, apperrors.NewValidationError("limit must not be negative")
	}

	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list assessments", err)
	}
	return entries, nil
}

// DoctorStats summarises a doctor's assessments. now decides which scans
// count as today, in now's location.
func (s *AssessmentAnalyticsService) DoctorStats(ctx context.Context, doctorID string, now time.Time) (*entities.AssessmentStats, error) {
	doctorID = strings.TrimSpace(doctorID)
	if doctorID == "" {
		return nil, apperrors.NewValidationError("doctor ID is required")
	}

	entries, err := s.repo.List(ctx, repositories.AssessmentFilter{DoctorID: doctorID})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list assessments", err)
	}

	stats := &entities.AssessmentStats{
		DoctorID:   doctorID,
		TotalScans: len(entries),
		GradeBreakdown: map[string]int{
			entities.GradeOne:   0,
			entities.GradeTwo:   0,
			entities.GradeThree: 0,
		},
	}

	y, m, d := now.Date()
	patients := make(map[string]struct{})
	for _, e := range entries {
		ey, em, ed := e.Timestamp.In(now.Location()).Date()
		if ey == y && em == m && ed == d {
			stats.ScansToday++
		}
		if entities.HasClinicalAlert(e.Report) {
			stats.AlertCount++
		}
		if grade := entities.ClassifyWagnerGrade(e.Report); grade != "" {
			stats.GradeBreakdown[grade]++
		}
		if e.PatientID != "" {
			patients[strings.ToUpper(e.PatientID)] = struct{}{}
		}
	}
	stats.PatientCount = len(patients)

	return stats, nil
}
