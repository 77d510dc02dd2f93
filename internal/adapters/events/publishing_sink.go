package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
	"github.com/zatekoja/woundsense/backend/internal/domain/providers"
)

// PublishingSink announces audited assessments on the event bus: once on the
// shared assessments channel and once on the doctor's own channel.
type PublishingSink struct {
	bus providers.EventBus
}

var _ providers.AuditSink = (*PublishingSink)(nil)

// NewPublishingSink creates a sink publishing to bus.
func NewPublishingSink(bus providers.EventBus) *PublishingSink {
	return &PublishingSink{bus: bus}
}

// Record publishes the completion event for entry.
func (s *PublishingSink) Record(ctx context.Context, entry *entities.AuditEntry) error {
	event := entities.NewAssessmentCompletedEvent(entry)

	var errs []error
	if err := s.bus.Publish(ctx, providers.EventChannelAssessments, event); err != nil {
		errs = append(errs, err)
	}
	if entry.DoctorID != "" {
		if err := s.bus.Publish(ctx, providers.GetDoctorChannel(entry.DoctorID), event); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to publish assessment %s: %w", entry.ID, err)
	}
	return nil
}
