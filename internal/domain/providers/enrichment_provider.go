package providers

import (
	"context"
	"errors"

	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
)

// ErrEnrichmentUnauthorized is returned when the enrichment service rejects
// the configured credentials.
var ErrEnrichmentUnauthorized = errors.New("enrichment provider unauthorized")

// EnrichmentProvider is the text-generation and vision-captioning service
// used by the assessment pipeline. Results are free text; no schema is
// enforced on them.
type EnrichmentProvider interface {
	// Caption describes the wound in the image when no segmentation is available.
	Caption(ctx context.Context, imageRef string) (string, error)

	// SynthesizeResearch matches the measurements against care protocols.
	SynthesizeResearch(ctx context.Context, measurementsText string) (string, error)

	// SynthesizeReport writes the structured clinical report.
	SynthesizeReport(ctx context.Context, measurements entities.Measurements, contextText string) (string, error)
}
