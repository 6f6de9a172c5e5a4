package entity

import (
	"time"

	"github.com/google/uuid"
)

// SigningSession is the short-lived credential issued after a signer has
// passed both the magic-link and OTP checks. Sessions live in Redis keyed
// by envelope; at most one session per envelope is live at a time.
type SigningSession struct {
	ID         string    `json:"id"` // 256-bit random, url-safe base64
	EnvelopeID uuid.UUID `json:"envelope_id"`
	SignerID   uuid.UUID `json:"signer_id"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}
