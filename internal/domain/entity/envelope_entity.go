package entity

import (
	"time"

	"github.com/google/uuid"
)

// WorkflowMode defines how signers of an envelope are ordered.
type WorkflowMode string

const (
	WorkflowModeSequential WorkflowMode = "sequential"
	WorkflowModeParallel   WorkflowMode = "parallel"
)

// EnvelopeStatus defines the lifecycle state of an envelope.
type EnvelopeStatus string

const (
	EnvelopeStatusDraft     EnvelopeStatus = "draft"
	EnvelopeStatusPending   EnvelopeStatus = "pending"
	EnvelopeStatusCompleted EnvelopeStatus = "completed"
	EnvelopeStatusCancelled EnvelopeStatus = "cancelled"
	EnvelopeStatusExpired   EnvelopeStatus = "expired"
)

// Envelope bundles one or more documents and one or more signers under a
// single workflow mode, mapping to the "envelopes" table.
type Envelope struct {
	ID           uuid.UUID      `db:"id"`
	Title        string         `db:"title"`
	WorkflowMode WorkflowMode   `db:"workflow_mode"`
	Status       EnvelopeStatus `db:"status"`
	CreatedBy    uuid.UUID      `db:"created_by"`
	ExpiresAt    *time.Time     `db:"expires_at"` // Nullable, no automatic expiry when unset
	SentAt       *time.Time     `db:"sent_at"`
	CompletedAt  *time.Time     `db:"completed_at"`
	CancelledAt  *time.Time     `db:"cancelled_at"`
	CancelReason *string        `db:"cancel_reason"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// IsTerminal reports whether the envelope can no longer change state.
func (e EnvelopeStatus) IsTerminal() bool {
	return e == EnvelopeStatusCompleted || e == EnvelopeStatusCancelled || e == EnvelopeStatusExpired
}
