package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/entity"
)

// SignerRepository persists signers. Status changes are conditional updates
// scoped to the current status so concurrent requests cannot double-apply
// a transition.
type SignerRepository interface {
	Create(ctx context.Context, signer *entity.Signer) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Signer, error)

	// ListByEnvelopeID returns signers ordered by sequence number, then
	// creation time.
	ListByEnvelopeID(ctx context.Context, envelopeID uuid.UUID) ([]*entity.Signer, error)

	// UpdateSequenceNumber sets the implicit order assigned at send time.
	UpdateSequenceNumber(ctx context.Context, id uuid.UUID, sequenceNumber int) error

	// MarkViewed transitions pending -> viewed. Returns false without error
	// when the signer was not pending (idempotent no-op).
	MarkViewed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	// MarkSigned transitions pending/viewed -> signed. Zero rows affected
	// surfaces as a workflow conflict.
	MarkSigned(ctx context.Context, id uuid.UUID, at time.Time) error

	// MarkDeclined transitions pending/viewed -> declined.
	MarkDeclined(ctx context.Context, id uuid.UUID, reason *string, at time.Time) error

	// ExpireByEnvelopeIDs moves non-terminal signers of the given envelopes
	// to expired.
	ExpireByEnvelopeIDs(ctx context.Context, envelopeIDs []uuid.UUID, at time.Time) (int64, error)

	// CountOutstanding returns the number of signers of the envelope that
	// are not yet signed. Evaluated inside the capture transaction to
	// decide completion against the live signer set.
	CountOutstanding(ctx context.Context, envelopeID uuid.UUID) (int64, error)
}
