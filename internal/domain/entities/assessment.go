package entities

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrStageOutOfOrder is returned when a pipeline stage tries to complete
// before its predecessor, or a second time.
var ErrStageOutOfOrder = errors.New("assessment stage out of order")

// StageStatus is the highest pipeline stage an assessment has completed.
type StageStatus int

const (
	StageCreated StageStatus = iota
	StageSegmented
	StageMeasured
	StageResearched
	StageCompleted
)

var stageNames = [...]string{
	StageCreated:    "created",
	StageSegmented:  "segmented",
	StageMeasured:   "measured",
	StageResearched: "researched",
	StageCompleted:  "completed",
}

func (s StageStatus) String() string {
	if s < StageCreated || s > StageCompleted {
		return fmt.Sprintf("StageStatus(%d)", int(s))
	}
	return stageNames[s]
}

// MarshalText lets stage statuses appear by name in JSON output.
func (s StageStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a stage name written by MarshalText.
func (s *StageStatus) UnmarshalText(text []byte) error {
	for i, name := range stageNames {
		if name == string(text) {
			*s = StageStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown stage status %q", text)
}

// PatientRef identifies the patient an assessment belongs to.
type PatientRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AssessmentRequest is the input of one pipeline invocation.
type AssessmentRequest struct {
	ImageRef string     `json:"image_ref"`
	Patient  PatientRef `json:"patient"`
	DoctorID string     `json:"doctor_id"`
}

// AssessmentResult is what a pipeline invocation hands back to its caller.
type AssessmentResult struct {
	AssessmentID       string        `json:"assessment_id"`
	Measurements       Measurements  `json:"measurements"`
	Report             string        `json:"report"`
	ResearchSummary    string        `json:"research_summary"`
	DetectionSucceeded bool          `json:"detection_succeeded"`
	VisionCaption      string        `json:"vision_caption,omitempty"`
	Trace              []StageStatus `json:"trace"`

	// AuditErr is set when the audit sink rejected the entry. The assessment
	// itself still succeeded.
	AuditErr error `json:"-"`
}

// AssessmentRecord is threaded through the pipeline. Each stage widens it
// through exactly one Complete* call; fields written by an earlier stage are
// never rewritten.
type AssessmentRecord struct {
	ID        string
	ImageRef  string
	Patient   PatientRef
	DoctorID  string
	CreatedAt time.Time

	mask               *Mask
	detectionSucceeded bool
	visionCaption      string
	measurements       Measurements
	researchSummary    string
	report             string

	status StageStatus
	trace  []StageStatus
}

// NewAssessmentRecord creates a record in the created state.
func NewAssessmentRecord(req AssessmentRequest, now time.Time) *AssessmentRecord {
	return &AssessmentRecord{
		ID:        uuid.New().String(),
		ImageRef:  req.ImageRef,
		Patient:   req.Patient,
		DoctorID:  req.DoctorID,
		CreatedAt: now,
		status:    StageCreated,
		trace:     []StageStatus{StageCreated},
	}
}

// CompleteSegmentation stores the segmentation outcome. caption is only kept
// when detection failed.
func (r *AssessmentRecord) CompleteSegmentation(mask *Mask, detected bool, caption string) error {
	if err := r.advance(StageSegmented); err != nil {
		return err
	}
	r.mask = mask
	r.detectionSucceeded = detected
	if !detected {
		r.visionCaption = caption
	}
	return nil
}

// CompleteMeasurement stores the measurements and releases the mask.
func (r *AssessmentRecord) CompleteMeasurement(m Measurements) error {
	if err := r.advance(StageMeasured); err != nil {
		return err
	}
	r.measurements = m
	r.mask = nil
	return nil
}

// CompleteResearch stores the protocol research summary.
func (r *AssessmentRecord) CompleteResearch(summary string) error {
	if err := r.advance(StageResearched); err != nil {
		return err
	}
	r.researchSummary = summary
	return nil
}

// CompleteDiagnosis stores the final report.
func (r *AssessmentRecord) CompleteDiagnosis(report string) error {
	if err := r.advance(StageCompleted); err != nil {
		return err
	}
	r.report = report
	return nil
}

func (r *AssessmentRecord) advance(to StageStatus) error {
	if to != r.status+1 {
		return fmt.Errorf("%w: %s -> %s", ErrStageOutOfOrder, r.status, to)
	}
	r.status = to
	r.trace = append(r.trace, to)
	return nil
}

func (r *AssessmentRecord) Mask() *Mask                { return r.mask }
func (r *AssessmentRecord) DetectionSucceeded() bool   { return r.detectionSucceeded }
func (r *AssessmentRecord) VisionCaption() string      { return r.visionCaption }
func (r *AssessmentRecord) Measurements() Measurements { return r.measurements }
func (r *AssessmentRecord) ResearchSummary() string    { return r.researchSummary }
func (r *AssessmentRecord) Report() string             { return r.report }
func (r *AssessmentRecord) Status() StageStatus        { return r.status }

// Trace returns every status the record has passed through, in order.
func (r *AssessmentRecord) Trace() []StageStatus {
	out := make([]StageStatus, len(r.trace))
	copy(out, r.trace)
	return out
}

// Result projects the record into the caller-facing result.
func (r *AssessmentRecord) Result() *AssessmentResult {
	return &AssessmentResult{
		AssessmentID:       r.ID,
		Measurements:       r.measurements,
		Report:             r.report,
		ResearchSummary:    r.researchSummary,
		DetectionSucceeded: r.detectionSucceeded,
		VisionCaption:      r.visionCaption,
		Trace:              r.Trace(),
	}
}
