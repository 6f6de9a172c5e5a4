package entity

import (
	"time"

	"github.com/google/uuid"
)

// MagicLinkPurpose defines what a magic-link token grants access to.
type MagicLinkPurpose string

const (
	MagicLinkPurposeSigning MagicLinkPurpose = "signing"
	MagicLinkPurposeReview  MagicLinkPurpose = "review"
)

// MagicLinkToken represents a single-use, time-limited access token,
// mapping to the "magic_link_tokens" table. Only the SHA-256 hash of the
// token is persisted; the raw value exists only at issuance.
type MagicLinkToken struct {
	ID         uuid.UUID        `db:"id"`
	Purpose    MagicLinkPurpose `db:"purpose"`
	TokenHash  string           `db:"token_hash"`
	EnvelopeID uuid.UUID        `db:"envelope_id"`
	SignerID   uuid.UUID        `db:"signer_id"`
	IPHash     *string          `db:"ip_hash"` // Nullable issuance binding context
	UAHash     *string          `db:"ua_hash"` // Nullable
	ExpiresAt  time.Time        `db:"expires_at"`
	CreatedAt  time.Time        `db:"created_at"`
	UsedAt     *time.Time       `db:"used_at"`     // Nullable, set once on consumption
	RevokedFor *string          `db:"revoked_for"` // Nullable, e.g. "otp_lockout", "reissued"
}

// Expired reports whether the token is past its expiry at the given instant.
func (t *MagicLinkToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Consumed reports whether the token has already been used or revoked.
func (t *MagicLinkToken) Consumed() bool {
	return t.UsedAt != nil
}
