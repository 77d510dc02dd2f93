package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
	"github.com/zatekoja/woundsense/backend/internal/domain/providers"
	"github.com/zatekoja/woundsense/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/woundsense/backend/pkg/errors"
)

const assessmentsTable = "assessments"

// AssessmentAdapter stores the audit log in Postgres. It serves as both the
// audit sink and the history repository.
type AssessmentAdapter struct {
	conn *sql.DB
	db   *goqu.Database
}

var (
	_ providers.AuditSink               = (*AssessmentAdapter)(nil)
	_ repositories.AssessmentRepository = (*AssessmentAdapter)(nil)
)

// NewAssessmentAdapter creates a new assessment adapter.
func NewAssessmentAdapter(conn *sql.DB) *AssessmentAdapter {
	return &AssessmentAdapter{
		conn: conn,
		db:   goqu.New("postgres", conn),
	}
}

// Record inserts an audit entry.
func (a *AssessmentAdapter) Record(ctx context.Context, entry *entities.AuditEntry) error {
	if entry == nil {
		return apperrors.NewInternalError("audit entry is nil", fmt.Errorf("audit entry is nil"))
	}

	record := goqu.Record{
		"id":                  entry.ID,
		"timestamp":           entry.Timestamp,
		"patient_id":          entry.PatientID,
		"patient_name":        entry.PatientName,
		"doctor_id":           entry.DoctorID,
		"length":              entry.Measurements.Length,
		"width":               entry.Measurements.Width,
		"depth":               entry.Measurements.Depth,
		"area":                entry.Measurements.Area,
		"volume":              entry.Measurements.Volume,
		"report":              entry.Report,
		"image_ref":           entry.ImageRef,
		"detection_succeeded": entry.DetectionSucceeded,
	}

	query, args, err := a.db.Insert(assessmentsTable).Prepared(true).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build assessment insert query", err)
	}

	if _, err := a.conn.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to record assessment", err)
	}
	return nil
}

// List returns matching entries, newest first.
func (a *AssessmentAdapter) List(ctx context.Context, filter repositories.AssessmentFilter) ([]*entities.AuditEntry, error) {
	ds := a.db.Select(
		"id", "timestamp", "patient_id", "patient_name", "doctor_id",
		"length", "width", "depth", "area", "volume",
		"report", "image_ref", "detection_succeeded",
	).From(assessmentsTable).Prepared(true)

	if filter.PatientID != "" {
		ds = ds.Where(goqu.Func("UPPER", goqu.C("patient_id")).Eq(strings.ToUpper(filter.PatientID)))
	}
	if filter.DoctorID != "" {
		ds = ds.Where(goqu.Func("LOWER", goqu.C("doctor_id")).Eq(strings.ToLower(filter.DoctorID)))
	}
	if !filter.Since.IsZero() {
		ds = ds.Where(goqu.C("timestamp").Gte(filter.Since))
	}

	ds = ds.Order(goqu.I("timestamp").Desc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list assessments", err)
	}
	defer rows.Close()

	entries := []*entities.AuditEntry{}
	for rows.Next() {
		e := &entities.AuditEntry{}
		if err := rows.Scan(
			&e.ID,
			&e.Timestamp,
			&e.PatientID,
			&e.PatientName,
			&e.DoctorID,
			&e.Measurements.Length,
			&e.Measurements.Width,
			&e.Measurements.Depth,
			&e.Measurements.Area,
			&e.Measurements.Volume,
			&e.Report,
			&e.ImageRef,
			&e.DetectionSucceeded,
		); err != nil {
			return nil, apperrors.NewInternalError("failed to scan assessment", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate assessments", err)
	}
	return entries, nil
}
