package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/entity"
)

// SessionStore holds signing sessions keyed by envelope. Saving a session
// overwrites any prior one, so at most one session per envelope is live.
type SessionStore interface {
	Save(ctx context.Context, session *entity.SigningSession) error

	// Get returns the live session for the envelope, or errors.ErrNotFound.
	Get(ctx context.Context, envelopeID uuid.UUID) (*entity.SigningSession, error)

	Delete(ctx context.Context, envelopeID uuid.UUID) error
}

// CooldownStore provides durable, expiring rate-limit markers shared
// across service instances.
type CooldownStore interface {
	// Acquire sets the marker if absent and reports whether it was
	// acquired. A false return means the cooldown is still running.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
