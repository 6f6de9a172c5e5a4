package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/entity"
)

// DocumentRepository persists document metadata attached to envelopes.
type DocumentRepository interface {
	Create(ctx context.Context, document *entity.Document) error
	ListByEnvelopeID(ctx context.Context, envelopeID uuid.UUID) ([]*entity.Document, error)
	CountByEnvelopeID(ctx context.Context, envelopeID uuid.UUID) (int64, error)
}
