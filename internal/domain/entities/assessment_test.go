package entities

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecord() *AssessmentRecord {
	return NewAssessmentRecord(AssessmentRequest{
		ImageRef: "static/uploads/wound.jpg",
		Patient:  PatientRef{ID: "PX-9921", Name: "Ada Obi"},
		DoctorID: "DR-1",
	}, time.Date(2026, 2, 19, 10, 45, 0, 0, time.UTC))
}

func TestAssessmentRecord_AdvancesThroughEveryStage(t *testing.T) {
	r := newTestRecord()
	assert.Equal(t, StageCreated, r.Status())
	assert.NotEmpty(t, r.ID)

	mask := NewCanonicalMask()
	require.NoError(t, r.CompleteSegmentation(mask, true, "ignored caption"))
	assert.Same(t, mask, r.Mask())
	assert.Empty(t, r.VisionCaption(), "caption is only kept when detection failed")

	require.NoError(t, r.CompleteMeasurement(Measurements{Length: 2}))
	assert.Nil(t, r.Mask(), "measurement consumes the mask")

	require.NoError(t, r.CompleteResearch("protocols"))
	require.NoError(t, r.CompleteDiagnosis("### TISSUE COMPOSITION:\nok"))

	assert.Equal(t, StageCompleted, r.Status())
	assert.Equal(t, []StageStatus{StageCreated, StageSegmented, StageMeasured, StageResearched, StageCompleted}, r.Trace())
}

func TestAssessmentRecord_RejectsOutOfOrderStages(t *testing.T) {
	r := newTestRecord()

	err := r.CompleteResearch("too early")
	assert.True(t, errors.Is(err, ErrStageOutOfOrder))
	assert.Equal(t, StageCreated, r.Status())

	require.NoError(t, r.CompleteSegmentation(nil, false, "caption"))
	err = r.CompleteSegmentation(nil, true, "again")
	assert.True(t, errors.Is(err, ErrStageOutOfOrder))
	assert.False(t, r.DetectionSucceeded(), "first write wins")
	assert.Equal(t, "caption", r.VisionCaption())
	assert.Equal(t, []StageStatus{StageCreated, StageSegmented}, r.Trace())
}

func TestAssessmentRecord_Result(t *testing.T) {
	r := newTestRecord()
	require.NoError(t, r.CompleteSegmentation(nil, false, "granulating ulcer"))
	require.NoError(t, r.CompleteMeasurement(PlaceholderMeasurements))
	require.NoError(t, r.CompleteResearch("offloading"))
	require.NoError(t, r.CompleteDiagnosis("report"))

	res := r.Result()
	assert.Equal(t, r.ID, res.AssessmentID)
	assert.Equal(t, PlaceholderMeasurements, res.Measurements)
	assert.Equal(t, "report", res.Report)
	assert.Equal(t, "offloading", res.ResearchSummary)
	assert.Equal(t, "granulating ulcer", res.VisionCaption)
	assert.False(t, res.DetectionSucceeded)
	assert.Len(t, res.Trace, 5)
}

func TestStageStatus_String(t *testing.T) {
	assert.Equal(t, "researched", StageResearched.String())
	assert.Equal(t, "StageStatus(9)", StageStatus(9).String())

	text, err := StageCompleted.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "completed", string(text))
}

func TestStageStatus_UnmarshalText(t *testing.T) {
	var s StageStatus
	require.NoError(t, s.UnmarshalText([]byte("measured")))
	assert.Equal(t, StageMeasured, s)

	assert.Error(t, s.UnmarshalText([]byte("shipped")))
}
