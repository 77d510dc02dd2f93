package providers

import (
	"context"

	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
)

// AuditSink receives every completed assessment. Implementations must be
// append-only and preserve newlines in the report.
type AuditSink interface {
	Record(ctx context.Context, entry *entities.AuditEntry) error
}
