package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/entity"
)

// AuditEventRepository is the append-only audit sink. There is no update
// or delete; rows live forever.
type AuditEventRepository interface {
	Create(ctx context.Context, event *entity.AuditEvent) error
	ListByEnvelopeID(ctx context.Context, envelopeID uuid.UUID) ([]*entity.AuditEvent, error)
}
