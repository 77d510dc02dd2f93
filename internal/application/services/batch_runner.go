package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
	"github.com/zatekoja/woundsense/backend/internal/infrastructure/observability"
)

// Assessor runs a single assessment. *AssessmentPipeline implements it.
type Assessor interface {
	Run(ctx context.Context, req entities.AssessmentRequest) (*entities.AssessmentResult, error)
}

// BatchItem is the outcome of one request in a batch.
type BatchItem struct {
	Request entities.AssessmentRequest
	Result  *entities.AssessmentResult
	Err     error
}

// BatchRunner assesses many images concurrently. Each request is an
// independent pipeline invocation; one failure does not stop the others.
type BatchRunner struct {
	assessor    Assessor
	concurrency int
}

// NewBatchRunner creates a runner executing at most concurrency assessments
// at a time.
func NewBatchRunner(assessor Assessor, concurrency int) *BatchRunner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BatchRunner{assessor: assessor, concurrency: concurrency}
}

// Run processes every request and returns the items in request order.
// Requests not yet started when ctx is cancelled fail with ctx.Err().
func (b *BatchRunner) Run(ctx context.Context, reqs []entities.AssessmentRequest) []BatchItem {
	items := make([]BatchItem, len(reqs))

	var g errgroup.Group
	g.SetLimit(b.concurrency)
	for i, req := range reqs {
		items[i].Request = req
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				items[i].Err = err
				return nil
			}
			items[i].Result, items[i].Err = b.assessor.Run(ctx, req)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, it := range items {
		if it.Err != nil {
			failed++
		}
	}
	observability.LoggerFromContext(ctx).Info().
		Int("total", len(items)).
		Int("failed", failed).
		Int("concurrency", b.concurrency).
		Msg("batch assessment finished")
	return items
}
