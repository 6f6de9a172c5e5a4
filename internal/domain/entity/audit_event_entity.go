package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditEventType names an audited workflow transition.
type AuditEventType string

const (
	AuditEventEnvelopeSent      AuditEventType = "envelope.sent"
	AuditEventEnvelopeCompleted AuditEventType = "envelope.completed"
	AuditEventEnvelopeCancelled AuditEventType = "envelope.cancelled"
	AuditEventEnvelopeExpired   AuditEventType = "envelope.expired"
	AuditEventLinkIssued        AuditEventType = "link.issued"
	AuditEventLinkValidated     AuditEventType = "link.validated"
	AuditEventLinkConsumed      AuditEventType = "link.consumed"
	AuditEventLinkRevoked       AuditEventType = "link.revoked"
	AuditEventBindingMismatch   AuditEventType = "link.binding_mismatch"
	AuditEventOTPRequested      AuditEventType = "otp.requested"
	AuditEventOTPFailed         AuditEventType = "otp.failed"
	AuditEventOTPLockout        AuditEventType = "otp.lockout"
	AuditEventOTPVerified       AuditEventType = "otp.verified"
	AuditEventSessionExtended   AuditEventType = "session.extended"
	AuditEventSignerViewed      AuditEventType = "signer.viewed"
	AuditEventSignerSigned      AuditEventType = "signer.signed"
	AuditEventSignerDeclined    AuditEventType = "signer.declined"
)

// AuditEvent is an append-only record of a workflow transition, mapping to
// the "audit_events" table. Rows are never updated or deleted.
type AuditEvent struct {
	ID         int64           `db:"id"`
	EnvelopeID uuid.UUID       `db:"envelope_id"`
	SignerID   *uuid.UUID      `db:"signer_id"` // Nullable for envelope-level events
	Type       AuditEventType  `db:"type"`
	IPHash     *string         `db:"ip_hash"`
	UAHash     *string         `db:"ua_hash"`
	Details    json.RawMessage `db:"details"` // Nullable JSONB
	CreatedAt  time.Time       `db:"created_at"`
}
