package services

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
	"github.com/zatekoja/woundsense/backend/internal/domain/providers"
	"github.com/zatekoja/woundsense/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/woundsense/backend/pkg/errors"
)

// MeasurementEstimator turns a mask into measurements.
type MeasurementEstimator interface {
	Estimate(mask *entities.Mask) entities.Measurements
}

// AssessmentPipeline runs Segmentation -> Measurement -> Research ->
// Diagnosis for one wound image. It keeps no state between invocations, so
// Run may be called concurrently.
//
// Failure policy: captioning and research failures abort the invocation;
// report synthesis failures are replaced with FallbackReport; audit sink
// failures are reported on the result and never fail the invocation.
type AssessmentPipeline struct {
	segmentation SegmentationPort
	estimator    MeasurementEstimator
	enrichment   providers.EnrichmentProvider
	audit        providers.AuditSink
	metrics      *observability.PipelineMetrics
	now          func() time.Time
}

// NewAssessmentPipeline creates a pipeline. audit may be nil.
func NewAssessmentPipeline(
	segmentation SegmentationPort,
	enrichment providers.EnrichmentProvider,
	audit providers.AuditSink,
) *AssessmentPipeline {
	return &AssessmentPipeline{
		segmentation: segmentation,
		estimator:    NewGeometryEstimator(DefaultGeometryConfig()),
		enrichment:   enrichment,
		audit:        audit,
		now:          time.Now,
	}
}

// SetEstimator replaces the geometry estimator.
func (p *AssessmentPipeline) SetEstimator(e MeasurementEstimator) {
	p.estimator = e
}

// SetMetrics enables pipeline metrics.
func (p *AssessmentPipeline) SetMetrics(m *observability.PipelineMetrics) {
	p.metrics = m
}

// SetClock overrides the time source used for record and audit timestamps.
func (p *AssessmentPipeline) SetClock(now func() time.Time) {
	p.now = now
}

type pipelineStage struct {
	name string
	run  func(ctx context.Context, rec *entities.AssessmentRecord) error
}

func (p *AssessmentPipeline) stages() []pipelineStage {
	return []pipelineStage{
		{name: "segmentation", run: p.segment},
		{name: "measurement", run: p.measure},
		{name: "research", run: p.research},
		{name: "diagnosis", run: p.diagnose},
	}
}

// Run assesses one image.
func (p *AssessmentPipeline) Run(ctx context.Context, req entities.AssessmentRequest) (*entities.AssessmentResult, error) {
	if strings.TrimSpace(req.ImageRef) == "" {
		return nil, apperrors.NewValidationError("image reference is required")
	}

	rec := entities.NewAssessmentRecord(req, p.now())

	ctx, span := observability.StartSpan(ctx, "assessment.run")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.String("assessment.id", rec.ID),
		attribute.String("assessment.patient_id", req.Patient.ID),
		attribute.String("assessment.segmentation", CapabilityOf(p.segmentation)),
	)
	logger := observability.AssessmentLogger(ctx, rec.ID)

	for _, stage := range p.stages() {
		if err := p.runStage(ctx, stage, rec); err != nil {
			observability.RecordError(span, err)
			p.metrics.RecordOutcome(ctx, rec.DetectionSucceeded(), err)
			logger.Error().Err(err).
				Str("stage", stage.name).
				Str("status", rec.Status().String()).
				Msg("assessment aborted")
			return nil, err
		}
	}

	p.metrics.RecordOutcome(ctx, rec.DetectionSucceeded(), nil)
	result := rec.Result()
	result.AuditErr = p.commitAudit(ctx, rec)

	logger.Info().
		Bool("detection_succeeded", rec.DetectionSucceeded()).
		Float64("area_cm2", rec.Measurements().Area).
		Msg("assessment completed")
	return result, nil
}

func (p *AssessmentPipeline) runStage(ctx context.Context, stage pipelineStage, rec *entities.AssessmentRecord) error {
	ctx, span := observability.StartSpan(ctx, "assessment."+stage.name)
	defer span.End()

	start := time.Now()
	err := stage.run(ctx, rec)
	p.metrics.RecordStage(ctx, stage.name, time.Since(start), err)
	observability.RecordError(span, err)

	if err == nil {
		observability.AssessmentLogger(ctx, rec.ID).Debug().
			Str("stage", stage.name).
			Str("status", rec.Status().String()).
			Dur("took", time.Since(start)).
			Msg("stage complete")
	}
	return err
}

func (p *AssessmentPipeline) segment(ctx context.Context, rec *entities.AssessmentRecord) error {
	mask, detected := p.segmentation.Segment(ctx, rec.ImageRef)

	var caption string
	if !detected {
		p.metrics.RecordFallback(ctx, "segmentation")
		c, err := p.enrichment.Caption(ctx, rec.ImageRef)
		if err != nil {
			return apperrors.NewExternalError("vision caption failed", err)
		}
		caption = c
	}
	return rec.CompleteSegmentation(mask, detected, caption)
}

func (p *AssessmentPipeline) measure(ctx context.Context, rec *entities.AssessmentRecord) error {
	if !rec.DetectionSucceeded() {
		p.metrics.RecordFallback(ctx, "measurement")
		return rec.CompleteMeasurement(entities.PlaceholderMeasurements)
	}
	return rec.CompleteMeasurement(p.estimator.Estimate(rec.Mask()))
}

func (p *AssessmentPipeline) research(ctx context.Context, rec *entities.AssessmentRecord) error {
	summary, err := p.enrichment.SynthesizeResearch(ctx, rec.Measurements().String())
	if err != nil {
		return apperrors.NewExternalError("protocol research failed", err)
	}
	return rec.CompleteResearch(summary)
}

func (p *AssessmentPipeline) diagnose(ctx context.Context, rec *entities.AssessmentRecord) error {
	contextText := BuildDiagnosisContext(rec.VisionCaption(), rec.ResearchSummary())

	report, err := p.enrichment.SynthesizeReport(ctx, rec.Measurements(), contextText)
	if err == nil && strings.TrimSpace(report) == "" {
		err = apperrors.NewExternalError("report synthesis returned no text", nil)
	}
	if err != nil {
		observability.AssessmentLogger(ctx, rec.ID).Warn().Err(err).Msg("report synthesis failed; using fallback report")
		p.metrics.RecordFallback(ctx, "diagnosis")
		report = FallbackReport(rec.Measurements())
	}
	return rec.CompleteDiagnosis(report)
}

func (p *AssessmentPipeline) commitAudit(ctx context.Context, rec *entities.AssessmentRecord) error {
	if p.audit == nil {
		return nil
	}
	if err := p.audit.Record(ctx, entities.NewAuditEntry(rec, p.now())); err != nil {
		p.metrics.RecordAuditFailure(ctx)
		observability.AssessmentLogger(ctx, rec.ID).Warn().Err(err).Msg("audit sink rejected assessment")
		return apperrors.NewExternalError("audit sink failed", err)
	}
	return nil
}
