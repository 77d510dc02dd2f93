package providers

import (
	"context"

	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
)

// SegmentationModel is an external wound-segmentation capability. detected is
// false when the model ran but found no wound region.
type SegmentationModel interface {
	Segment(ctx context.Context, imageRef string) (mask *entities.Mask, detected bool, err error)
}
