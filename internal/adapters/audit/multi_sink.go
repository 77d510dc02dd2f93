package audit

import (
	"context"
	"errors"

	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
	"github.com/zatekoja/woundsense/backend/internal/domain/providers"
)

// MultiSink fans an entry out to several sinks. Every sink is tried; the
// failures are joined.
type MultiSink struct {
	sinks []providers.AuditSink
}

// NewMultiSink combines sinks. Nil sinks are skipped.
func NewMultiSink(sinks ...providers.AuditSink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Record writes entry to every sink.
func (m *MultiSink) Record(ctx context.Context, entry *entities.AuditEntry) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Record(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
