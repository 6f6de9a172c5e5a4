package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/entity"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/repository"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/infrastructure/security"
)

// AuditService appends workflow transitions to the audit trail and reads
// it back for administrators.
type AuditService interface {
	// Record appends an event. Inside a transaction the append is part of
	// the atomic step and the error propagates; use RecordBestEffort on
	// paths where audit failure must not fail the operation.
	Record(ctx context.Context, event *entity.AuditEvent) error

	// RecordBestEffort appends an event and only logs on failure.
	RecordBestEffort(ctx context.Context, event *entity.AuditEvent)

	// Trail returns the ordered audit trail of an envelope.
	Trail(ctx context.Context, envelopeID uuid.UUID) ([]*entity.AuditEvent, error)
}

type auditService struct {
	auditRepo repository.AuditEventRepository
	logger    *zap.Logger
}

// NewAuditService creates a new AuditService.
func NewAuditService(auditRepo repository.AuditEventRepository, logger *zap.Logger) AuditService {
	return &auditService{auditRepo: auditRepo, logger: logger.Named("audit_service")}
}

func (s *auditService) Record(ctx context.Context, event *entity.AuditEvent) error {
	return s.auditRepo.Create(ctx, event)
}

func (s *auditService) RecordBestEffort(ctx context.Context, event *entity.AuditEvent) {
	if err := s.auditRepo.Create(ctx, event); err != nil {
		s.logger.Error("Failed to record audit event",
			zap.Error(err),
			zap.String("envelope_id", event.EnvelopeID.String()),
			zap.String("type", string(event.Type)),
		)
	}
}

func (s *auditService) Trail(ctx context.Context, envelopeID uuid.UUID) ([]*entity.AuditEvent, error) {
	return s.auditRepo.ListByEnvelopeID(ctx, envelopeID)
}

// NewAuditEvent builds an event with hashed request context. Raw IP and
// User-Agent values never reach storage.
func NewAuditEvent(envelopeID uuid.UUID, signerID *uuid.UUID, eventType entity.AuditEventType, ip, userAgent string, details map[string]any) *entity.AuditEvent {
	event := &entity.AuditEvent{
		EnvelopeID: envelopeID,
		SignerID:   signerID,
		Type:       eventType,
		IPHash:     security.HashBindingValue(ip),
		UAHash:     security.HashBindingValue(userAgent),
	}
	if len(details) > 0 {
		if raw, err := json.Marshal(details); err == nil {
			event.Details = raw
		}
	}
	return event
}
