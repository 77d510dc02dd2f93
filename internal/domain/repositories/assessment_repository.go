package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
)

// AssessmentFilter narrows an assessment history query. Empty fields match
// everything; IDs compare case-insensitively.
type AssessmentFilter struct {
	PatientID string
	DoctorID  string
	Since     time.Time
	Limit     int
}

// AssessmentRepository reads back the audit log.
type AssessmentRepository interface {
	// List returns matching entries, newest first.
	List(ctx context.Context, filter AssessmentFilter) ([]*entities.AuditEntry, error)
}

// Matches reports whether entry passes the filter's ID and time criteria.
// Limit is applied by the caller.
func (f AssessmentFilter) Matches(entry *entities.AuditEntry) bool {
	if f.PatientID != "" && !strings.EqualFold(strings.TrimSpace(entry.PatientID), f.PatientID) {
		return false
	}
	if f.DoctorID != "" && !strings.EqualFold(strings.TrimSpace(entry.DoctorID), f.DoctorID) {
		return false
	}
	if !f.Since.IsZero() && entry.Timestamp.Before(f.Since) {
		return false
	}
	return true
}
