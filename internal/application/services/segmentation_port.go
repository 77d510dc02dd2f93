package services

import (
	"context"

	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
	"github.com/zatekoja/woundsense/backend/internal/domain/providers"
	"github.com/zatekoja/woundsense/backend/internal/infrastructure/observability"
)

// SegmentationPort produces a wound mask for an image. success is the only
// signal callers may branch on: when it is false the mask must be ignored,
// whatever its content.
type SegmentationPort interface {
	Segment(ctx context.Context, imageRef string) (mask *entities.Mask, success bool)

	// capability seals the interface to the two variants below.
	capability() string
}

// Capability names reported in logs and span attributes.
const (
	CapabilityModelBacked = "model_backed"
	CapabilityUnavailable = "unavailable"
)

// NewSegmentationPort selects the capability at construction time: a nil
// model yields Unavailable.
func NewSegmentationPort(model providers.SegmentationModel) SegmentationPort {
	if model == nil {
		return Unavailable{}
	}
	return ModelBacked{Model: model}
}

// CapabilityOf returns the capability name of a port.
func CapabilityOf(p SegmentationPort) string {
	return p.capability()
}

// Unavailable is the segmentation capability when no model is loaded.
type Unavailable struct{}

// Segment returns a filled canonical mask and success=false.
func (Unavailable) Segment(context.Context, string) (*entities.Mask, bool) {
	return entities.NewFilledMask(entities.CanonicalFrameSize, entities.CanonicalFrameSize), false
}

func (Unavailable) capability() string { return CapabilityUnavailable }

// ModelBacked delegates to an external segmentation model. Model faults and
// empty detections degrade to the Unavailable outcome; nothing propagates.
type ModelBacked struct {
	Model providers.SegmentationModel
}

// Segment runs the model.
func (m ModelBacked) Segment(ctx context.Context, imageRef string) (*entities.Mask, bool) {
	logger := observability.LoggerFromContext(ctx)

	mask, detected, err := m.Model.Segment(ctx, imageRef)
	switch {
	case err != nil:
		logger.Warn().Err(err).Str("image_ref", imageRef).Msg("segmentation model failed; continuing without detection")
		return Unavailable{}.Segment(ctx, imageRef)
	case mask == nil || !detected:
		logger.Info().Str("image_ref", imageRef).Msg("no wound detected by segmentation model")
		return Unavailable{}.Segment(ctx, imageRef)
	}
	return mask, true
}

func (ModelBacked) capability() string { return CapabilityModelBacked }
