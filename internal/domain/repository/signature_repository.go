package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/entity"
)

// SignatureRepository persists captured signatures. Rows are write-once;
// there is no update or delete.
type SignatureRepository interface {
	Create(ctx context.Context, signature *entity.Signature) error
	FindBySignerID(ctx context.Context, signerID uuid.UUID) (*entity.Signature, error)
	ListByEnvelopeID(ctx context.Context, envelopeID uuid.UUID) ([]*entity.Signature, error)
}
