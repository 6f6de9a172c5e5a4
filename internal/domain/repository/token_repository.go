package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/entity"
)

// TokenRepository persists magic-link tokens. Only token hashes are stored.
type TokenRepository interface {
	Create(ctx context.Context, token *entity.MagicLinkToken) error

	// FindByTokenHash returns the token row regardless of its state; the
	// caller decides between expired, used and valid.
	FindByTokenHash(ctx context.Context, tokenHash string) (*entity.MagicLinkToken, error)

	// MarkUsed consumes the token. The update is conditional on used_at
	// being null; entity-level errors.ErrTokenAlreadyUsed is returned when
	// the token was consumed concurrently.
	MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time, reason *string) error

	// RevokeBySignerID consumes every live token of a signer, recording the
	// revocation reason. Returns the number of tokens revoked.
	RevokeBySignerID(ctx context.Context, signerID uuid.UUID, reason string, at time.Time) (int64, error)

	// DeleteExpiredAndUsed removes tokens that expired or were consumed
	// before the retention cutoff.
	DeleteExpiredAndUsed(ctx context.Context, retention time.Duration) (int64, error)
}
