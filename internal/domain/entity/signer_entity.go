package entity

import (
	"time"

	"github.com/google/uuid"
)

// SignerStatus defines the lifecycle state of a single signer.
type SignerStatus string

const (
	SignerStatusPending  SignerStatus = "pending"
	SignerStatusViewed   SignerStatus = "viewed"
	SignerStatusSigned   SignerStatus = "signed"
	SignerStatusDeclined SignerStatus = "declined"
	SignerStatusExpired  SignerStatus = "expired"
)

// Signer represents one signing party of an envelope, mapping to the
// "signers" table. SequenceNumber is meaningful only under the sequential
// workflow mode.
type Signer struct {
	ID             uuid.UUID    `db:"id"`
	EnvelopeID     uuid.UUID    `db:"envelope_id"`
	Name           string       `db:"name"`
	Email          string       `db:"email"`
	SequenceNumber int          `db:"sequence_number"`
	Status         SignerStatus `db:"status"`
	ViewedAt       *time.Time   `db:"viewed_at"`
	SignedAt       *time.Time   `db:"signed_at"`
	DeclinedAt     *time.Time   `db:"declined_at"`
	DeclineReason  *string      `db:"decline_reason"`
	CreatedAt      time.Time    `db:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at"`
}

// IsTerminal reports whether the signer can no longer act.
func (s SignerStatus) IsTerminal() bool {
	return s == SignerStatusSigned || s == SignerStatusDeclined || s == SignerStatusExpired
}

// CanAct reports whether the signer is in a state where viewing or signing
// is still possible. Ordering rules are enforced by the envelope service.
func (s *Signer) CanAct() bool {
	return s.Status == SignerStatusPending || s.Status == SignerStatusViewed
}
