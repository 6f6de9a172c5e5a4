package entity

import (
	"time"

	"github.com/google/uuid"
)

// Signature is the immutable record of a captured signature, one per
// signer per envelope, mapping to the "signatures" table. PayloadHash is
// the canonical integrity hash computed over the signature payload at
// capture time; tamper verification recomputes and compares it.
type Signature struct {
	ID            uuid.UUID `db:"id"`
	EnvelopeID    uuid.UUID `db:"envelope_id"`
	SignerID      uuid.UUID `db:"signer_id"`
	SignatureData string    `db:"signature_data"` // Base64 image or vector stroke data
	SignerName    string    `db:"signer_name"`
	SignerEmail   string    `db:"signer_email"`
	PayloadHash   string    `db:"payload_hash"`
	IPHash        *string   `db:"ip_hash"`
	UAHash        *string   `db:"ua_hash"`
	Page          int       `db:"page"`
	PositionX     float64   `db:"position_x"`
	PositionY     float64   `db:"position_y"`
	SignedAt      time.Time `db:"signed_at"`
}

// SignaturePayload is the validated input for a signature capture.
type SignaturePayload struct {
	SignatureData string
	SignerName    string
	SignerEmail   string
	Consent       bool
	IP            string
	UserAgent     string
	Page          int
	PositionX     float64
	PositionY     float64
}
