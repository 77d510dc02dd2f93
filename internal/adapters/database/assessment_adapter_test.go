package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
	"github.com/zatekoja/woundsense/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/woundsense/backend/pkg/errors"
)

var assessmentColumns = []string{
	"id", "timestamp", "patient_id", "patient_name", "doctor_id",
	"length", "width", "depth", "area", "volume",
	"report", "image_ref", "detection_succeeded",
}

func setupMockDB(t *testing.T) (*AssessmentAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewAssessmentAdapter(db), mock
}

func TestAssessmentAdapter_Record(t *testing.T) {
	adapter, mock := setupMockDB(t)
	ts := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	entry := &entities.AuditEntry{
		ID:                 "a-1",
		Timestamp:          ts,
		PatientID:          "P-001",
		PatientName:        "Ada Obi",
		DoctorID:           "dr_smith",
		Measurements:       entities.Measurements{Length: 2, Width: 1.5, Depth: 0.4, Area: 3, Volume: 0.84},
		Report:             "### CLINICAL FINDINGS & CLASSIFICATION:\nGrade 2",
		ImageRef:           "static/uploads/a-1.jpg",
		DetectionSucceeded: true,
	}

	// goqu orders record columns alphabetically.
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "assessments"`)).
		WithArgs(3.0, 0.4, true, "dr_smith", "a-1", "static/uploads/a-1.jpg", 2.0,
			"P-001", "Ada Obi", entry.Report, sqlmock.AnyArg(), 0.84, 1.5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, adapter.Record(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssessmentAdapter_RecordFailure(t *testing.T) {
	adapter, mock := setupMockDB(t)

	mock.ExpectExec(`INSERT INTO "assessments"`).WillReturnError(errors.New("connection reset"))

	err := adapter.Record(context.Background(), &entities.AuditEntry{ID: "a-1"})

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssessmentAdapter_RecordNil(t *testing.T) {
	adapter, _ := setupMockDB(t)
	assert.Error(t, adapter.Record(context.Background(), nil))
}

func TestAssessmentAdapter_List(t *testing.T) {
	adapter, mock := setupMockDB(t)
	newer := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	older := newer.Add(-24 * time.Hour)

	rows := sqlmock.NewRows(assessmentColumns).
		AddRow("a-2", newer, "P-001", "Ada Obi", "dr_smith", 2.0, 1.5, 0.4, 3.0, 0.84, "report two", "b.jpg", true).
		AddRow("a-1", older, "P-001", "Ada Obi", "dr_smith", 1.0, 1.0, 0.5, 0.1, 0.05, "report one", "a.jpg", false)

	mock.ExpectQuery(`SELECT .* FROM "assessments" WHERE .*UPPER\("patient_id"\).*LOWER\("doctor_id"\).* ORDER BY "timestamp" DESC LIMIT`).
		WillReturnRows(rows)

	got, err := adapter.List(context.Background(), repositories.AssessmentFilter{PatientID: "p-001", DoctorID: "DR_SMITH", Limit: 10})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a-2", got[0].ID)
	assert.Equal(t, entities.Measurements{Length: 2, Width: 1.5, Depth: 0.4, Area: 3, Volume: 0.84}, got[0].Measurements)
	assert.True(t, got[0].DetectionSucceeded)
	assert.Equal(t, entities.PlaceholderMeasurements, got[1].Measurements)
	assert.False(t, got[1].DetectionSucceeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssessmentAdapter_ListEmpty(t *testing.T) {
	adapter, mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT .* FROM "assessments" ORDER BY "timestamp" DESC`).
		WillReturnRows(sqlmock.NewRows(assessmentColumns))

	got, err := adapter.List(context.Background(), repositories.AssessmentFilter{})

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAssessmentAdapter_ListQueryError(t *testing.T) {
	adapter, mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT`).WillReturnError(errors.New("relation does not exist"))

	_, err := adapter.List(context.Background(), repositories.AssessmentFilter{})

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}
