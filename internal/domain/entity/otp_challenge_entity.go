package entity

import (
	"time"

	"github.com/google/uuid"
)

// OTPChallenge represents an active one-time-passcode challenge for a
// (envelope, signer email) pair, mapping to the "otp_challenges" table.
// Only the hash of the 6-digit code is persisted.
type OTPChallenge struct {
	ID          uuid.UUID  `db:"id"`
	EnvelopeID  uuid.UUID  `db:"envelope_id"`
	SignerID    uuid.UUID  `db:"signer_id"`
	Email       string     `db:"email"`
	CodeHash    string     `db:"code_hash"`
	Attempts    int        `db:"attempts"`
	MaxAttempts int        `db:"max_attempts"`
	ExpiresAt   time.Time  `db:"expires_at"`
	CreatedAt   time.Time  `db:"created_at"`
	ConsumedAt  *time.Time `db:"consumed_at"` // Nullable, set on successful verification
}

// Active reports whether the challenge can still be answered.
func (c *OTPChallenge) Active(now time.Time) bool {
	return c.ConsumedAt == nil && now.Before(c.ExpiresAt)
}

// AttemptsRemaining returns how many verification attempts are left.
func (c *OTPChallenge) AttemptsRemaining() int {
	remaining := c.MaxAttempts - c.Attempts
	if remaining < 0 {
		return 0
	}
	return remaining
}
