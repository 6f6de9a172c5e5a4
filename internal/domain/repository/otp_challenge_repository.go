package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/entity"
)

// OTPChallengeRepository persists OTP challenges. At most one active
// challenge exists per envelope at a time.
type OTPChallengeRepository interface {
	// ReplaceActive removes any unconsumed challenge for the envelope and
	// inserts the new one in a single transaction.
	ReplaceActive(ctx context.Context, challenge *entity.OTPChallenge) error

	// FindActiveByEnvelopeID returns the unconsumed, unexpired challenge for
	// the envelope, or errors.ErrNotFound.
	FindActiveByEnvelopeID(ctx context.Context, envelopeID uuid.UUID) (*entity.OTPChallenge, error)

	// IncrementAttempts atomically bumps the attempt counter of an
	// unconsumed challenge and returns the new value. The counter
	// saturates at the challenge's max_attempts; once the cap is reached
	// the stored value no longer moves and the saturated count is returned.
	IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error)

	// Consume marks the challenge used. Conditional on consumed_at being
	// null so a concurrent verification cannot consume it twice.
	Consume(ctx context.Context, id uuid.UUID, at time.Time) error

	// DeleteExpired removes challenges past their expiry.
	DeleteExpired(ctx context.Context) (int64, error)
}
