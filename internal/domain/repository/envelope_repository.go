package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/entity"
)

// EnvelopeRepository persists envelopes. Status transitions are conditional
// updates; a transition whose predicate no longer holds affects zero rows
// and surfaces as errors.ErrInvalidEnvelopeState.
type EnvelopeRepository interface {
	Create(ctx context.Context, envelope *entity.Envelope) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Envelope, error)

	// FindByIDForUpdate locks the envelope row for the duration of the
	// surrounding transaction. Used to serialize signature capture,
	// completion and cancellation against each other.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Envelope, error)

	// MarkSent transitions draft -> pending.
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error

	// MarkCompleted transitions pending -> completed.
	MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) error

	// MarkCancelled transitions any non-terminal state -> cancelled.
	MarkCancelled(ctx context.Context, id uuid.UUID, reason *string, at time.Time) error

	// ExpireDue transitions pending envelopes past their expiry to expired
	// and returns their ids so signer rows can follow.
	ExpireDue(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}
