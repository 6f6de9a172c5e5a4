package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/entity"
	domainErrors "github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/errors"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/interfaces"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/repository"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/events/kafka"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/infrastructure/security"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/utils/metrics"
)

// EventPublisher publishes workflow lifecycle events. Publishing never
// fails the workflow; implementations log their own errors.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, envelopeID string, payload interface{})
}

// NoopPublisher is wired when event publishing is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, eventType string, envelopeID string, payload interface{}) {
}

// SigningSnapshot is what an authenticated signer sees.
type SigningSnapshot struct {
	Envelope  *entity.Envelope
	Documents []*entity.Document
	Signers   []*entity.Signer
	Me        *entity.Signer
	CanSign   bool
}

// CaptureResult reports an applied (or previously applied) signature.
type CaptureResult struct {
	Signature         *entity.Signature
	EnvelopeCompleted bool
}

// EnvelopeService is the multi-signer workflow state machine: envelope
// assembly, sending, ordered signature capture with exactly-once
// completion, decline and cancellation.
type EnvelopeService interface {
	CreateEnvelope(ctx context.Context, title string, mode entity.WorkflowMode, createdBy uuid.UUID, expiresAt *time.Time) (*entity.Envelope, error)
	AddDocument(ctx context.Context, envelopeID uuid.UUID, fileName string, content []byte) (*entity.Document, error)
	AddSigner(ctx context.Context, envelopeID uuid.UUID, name, email string, sequenceNumber int) (*entity.Signer, error)

	// Send moves a draft with at least one document and one signer to
	// pending and issues one magic link per signer.
	Send(ctx context.Context, envelopeID uuid.UUID, ip, userAgent string) error

	// GetEnvelope returns the admin view: envelope, signers and documents.
	GetEnvelope(ctx context.Context, envelopeID uuid.UUID) (*SigningSnapshot, error)

	// GetForSigning returns the signer view, gated by a valid session.
	GetForSigning(ctx context.Context, envelopeID uuid.UUID, sessionID string) (*SigningSnapshot, error)

	// RecordView marks the session's signer viewed; idempotent.
	RecordView(ctx context.Context, envelopeID uuid.UUID, sessionID, ip, userAgent string) error

	// CaptureSignature records the signature, advances the signer to signed
	// and, when this was the last outstanding signer, completes the
	// envelope in the same transaction. Retrying an already-applied capture
	// returns the stored result.
	CaptureSignature(ctx context.Context, envelopeID, signerID uuid.UUID, sessionID string, payload entity.SignaturePayload) (*CaptureResult, error)

	// Decline marks the signer declined and hard-cancels the envelope.
	Decline(ctx context.Context, envelopeID, signerID uuid.UUID, sessionID string, reason *string, ip, userAgent string) error

	// Cancel is the administrative cancellation of a non-terminal envelope.
	Cancel(ctx context.Context, envelopeID uuid.UUID, reason *string) error

	// ReissueLink replaces the signer's magic link and re-sends the
	// invitation. The administrative recovery path after an OTP lockout.
	ReissueLink(ctx context.Context, envelopeID, signerID uuid.UUID, ip, userAgent string) error

	// VerifySignatureIntegrity recomputes the integrity hash of a stored
	// signature and reports whether it still matches. Read-only.
	VerifySignatureIntegrity(ctx context.Context, signerID uuid.UUID) (tampered bool, err error)
}

type envelopeService struct {
	txm            repository.TxManager
	envelopeRepo   repository.EnvelopeRepository
	signerRepo     repository.SignerRepository
	documentRepo   repository.DocumentRepository
	signatureRepo  repository.SignatureRepository
	tokenService   TokenService
	sessionService SessionService
	auditService   AuditService
	documentStore  interfaces.DocumentStore
	emailSender    interfaces.EmailSender
	events         EventPublisher
	publicBaseURL  string
	logger         *zap.Logger
}

// NewEnvelopeService creates a new EnvelopeService.
func NewEnvelopeService(
	txm repository.TxManager,
	envelopeRepo repository.EnvelopeRepository,
	signerRepo repository.SignerRepository,
	documentRepo repository.DocumentRepository,
	signatureRepo repository.SignatureRepository,
	tokenService TokenService,
	sessionService SessionService,
	auditService AuditService,
	documentStore interfaces.DocumentStore,
	emailSender interfaces.EmailSender,
	events EventPublisher,
	publicBaseURL string,
	logger *zap.Logger,
) EnvelopeService {
	return &envelopeService{
		txm:            txm,
		envelopeRepo:   envelopeRepo,
		signerRepo:     signerRepo,
		documentRepo:   documentRepo,
		signatureRepo:  signatureRepo,
		tokenService:   tokenService,
		sessionService: sessionService,
		auditService:   auditService,
		documentStore:  documentStore,
		emailSender:    emailSender,
		events:         events,
		publicBaseURL:  publicBaseURL,
		logger:         logger.Named("envelope_service"),
	}
}

func (s *envelopeService) CreateEnvelope(ctx context.Context, title string, mode entity.WorkflowMode, createdBy uuid.UUID, expiresAt *time.Time) (*entity.Envelope, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domainErrors.ErrInvalidRequest)
	}
	if mode != entity.WorkflowModeSequential && mode != entity.WorkflowModeParallel {
		return nil, fmt.Errorf("%w: unknown workflow mode %q", domainErrors.ErrInvalidRequest, mode)
	}

	envelope := &entity.Envelope{
		ID:           uuid.New(),
		Title:        title,
		WorkflowMode: mode,
		Status:       entity.EnvelopeStatusDraft,
		CreatedBy:    createdBy,
		ExpiresAt:    expiresAt,
	}
	if err := s.envelopeRepo.Create(ctx, envelope); err != nil {
		return nil, err
	}
	return envelope, nil
}

func (s *envelopeService) AddDocument(ctx context.Context, envelopeID uuid.UUID, fileName string, content []byte) (*entity.Document, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: empty document", domainErrors.ErrInvalidRequest)
	}

	envelope, err := s.envelopeRepo.FindByID(ctx, envelopeID)
	if err != nil {
		return nil, err
	}
	if envelope.Status != entity.EnvelopeStatusDraft {
		return nil, domainErrors.ErrInvalidEnvelopeState
	}

	stored, err := s.documentStore.Put(ctx, fileName, content)
	if err != nil {
		return nil, err
	}

	count, err := s.documentRepo.CountByEnvelopeID(ctx, envelopeID)
	if err != nil {
		return nil, err
	}

	document := &entity.Document{
		ID:          uuid.New(),
		EnvelopeID:  envelopeID,
		FileName:    fileName,
		ContentHash: stored.ContentHash,
		SizeBytes:   stored.SizeBytes,
		Position:    int(count) + 1,
	}
	if err := s.documentRepo.Create(ctx, document); err != nil {
		return nil, err
	}
	return document, nil
}

func (s *envelopeService) AddSigner(ctx context.Context, envelopeID uuid.UUID, name, email string, sequenceNumber int) (*entity.Signer, error) {
	if name == "" || email == "" {
		return nil, fmt.Errorf("%w: signer name and email are required", domainErrors.ErrInvalidRequest)
	}

	envelope, err := s.envelopeRepo.FindByID(ctx, envelopeID)
	if err != nil {
		return nil, err
	}
	if envelope.Status != entity.EnvelopeStatusDraft {
		return nil, domainErrors.ErrInvalidEnvelopeState
	}

	signer := &entity.Signer{
		ID:             uuid.New(),
		EnvelopeID:     envelopeID,
		Name:           name,
		Email:          email,
		SequenceNumber: sequenceNumber,
		Status:         entity.SignerStatusPending,
	}
	if err := s.signerRepo.Create(ctx, signer); err != nil {
		return nil, err
	}
	return signer, nil
}

func (s *envelopeService) Send(ctx context.Context, envelopeID uuid.UUID, ip, userAgent string) error {
	envelope, err := s.envelopeRepo.FindByID(ctx, envelopeID)
	if err != nil {
		return err
	}
	if envelope.Status != entity.EnvelopeStatusDraft {
		return domainErrors.ErrInvalidEnvelopeState
	}

	docCount, err := s.documentRepo.CountByEnvelopeID(ctx, envelopeID)
	if err != nil {
		return err
	}
	if docCount == 0 {
		return fmt.Errorf("%w: envelope has no documents", domainErrors.ErrInvalidRequest)
	}

	signers, err := s.signerRepo.ListByEnvelopeID(ctx, envelopeID)
	if err != nil {
		return err
	}
	if len(signers) == 0 {
		return fmt.Errorf("%w: envelope has no signers", domainErrors.ErrInvalidRequest)
	}

	if envelope.WorkflowMode == entity.WorkflowModeSequential {
		if err := s.ensureSequence(ctx, signers); err != nil {
			return err
		}
	}

	if err := s.envelopeRepo.MarkSent(ctx, envelopeID, time.Now()); err != nil {
		return err
	}

	for _, signer := range signers {
		plain, err := s.tokenService.IssueLink(ctx, entity.MagicLinkPurposeSigning, envelopeID, signer.ID, ip, userAgent)
		if err != nil {
			return err
		}
		signingURL := fmt.Sprintf("%s/signing?token=%s", s.publicBaseURL, url.QueryEscape(plain))
		if err := s.emailSender.SendSigningInvitation(ctx, signer.Email, signer.Name, envelope.Title, signingURL); err != nil {
			s.logger.Error("Failed to deliver signing invitation",
				zap.Error(err), zap.String("signer_id", signer.ID.String()))
		}
	}

	s.auditService.RecordBestEffort(ctx, NewAuditEvent(envelopeID, nil, entity.AuditEventEnvelopeSent, ip, userAgent,
		map[string]any{"signers": len(signers), "documents": docCount}))
	s.events.Publish(ctx, kafka.EventEnvelopeSent, envelopeID.String(), nil)
	return nil
}

// ensureSequence assigns the implicit signing order by creation order when
// no explicit sequence numbers were set.
func (s *envelopeService) ensureSequence(ctx context.Context, signers []*entity.Signer) error {
	allUnset := true
	for _, signer := range signers {
		if signer.SequenceNumber != 0 {
			allUnset = false
			break
		}
	}
	if !allUnset {
		return nil
	}
	for i, signer := range signers {
		signer.SequenceNumber = i + 1
		if err := s.signerRepo.UpdateSequenceNumber(ctx, signer.ID, i+1); err != nil {
			return err
		}
	}
	return nil
}

func (s *envelopeService) GetEnvelope(ctx context.Context, envelopeID uuid.UUID) (*SigningSnapshot, error) {
	envelope, err := s.envelopeRepo.FindByID(ctx, envelopeID)
	if err != nil {
		return nil, err
	}
	signers, err := s.signerRepo.ListByEnvelopeID(ctx, envelopeID)
	if err != nil {
		return nil, err
	}
	documents, err := s.documentRepo.ListByEnvelopeID(ctx, envelopeID)
	if err != nil {
		return nil, err
	}
	return &SigningSnapshot{Envelope: envelope, Signers: signers, Documents: documents}, nil
}

func (s *envelopeService) GetForSigning(ctx context.Context, envelopeID uuid.UUID, sessionID string) (*SigningSnapshot, error) {
	session, ok := s.sessionService.Validate(ctx, envelopeID, sessionID)
	if !ok {
		return nil, domainErrors.ErrSessionInvalid
	}

	snapshot, err := s.GetEnvelope(ctx, envelopeID)
	if err != nil {
		return nil, err
	}

	for _, signer := range snapshot.Signers {
		if signer.ID == session.SignerID {
			snapshot.Me = signer
			snapshot.CanSign = s.canAct(snapshot.Envelope, snapshot.Signers, signer)
			break
		}
	}
	if snapshot.Me == nil {
		return nil, domainErrors.ErrSessionInvalid
	}
	return snapshot, nil
}

// canAct implements the ordering gate. Parallel mode only needs a live
// envelope and a non-terminal signer; sequential mode additionally
// requires every lower-sequence signer to have signed.
func (s *envelopeService) canAct(envelope *entity.Envelope, signers []*entity.Signer, signer *entity.Signer) bool {
	if envelope.Status != entity.EnvelopeStatusPending {
		return false
	}
	if !signer.CanAct() {
		return false
	}
	if envelope.WorkflowMode != entity.WorkflowModeSequential {
		return true
	}
	for _, other := range signers {
		if other.SequenceNumber < signer.SequenceNumber && other.Status != entity.SignerStatusSigned {
			return false
		}
	}
	return true
}

func (s *envelopeService) RecordView(ctx context.Context, envelopeID uuid.UUID, sessionID, ip, userAgent string) error {
	session, ok := s.sessionService.Validate(ctx, envelopeID, sessionID)
	if !ok {
		return domainErrors.ErrSessionInvalid
	}

	transitioned, err := s.signerRepo.MarkViewed(ctx, session.SignerID, time.Now())
	if err != nil {
		return err
	}
	if transitioned {
		s.auditService.RecordBestEffort(ctx, NewAuditEvent(envelopeID, &session.SignerID, entity.AuditEventSignerViewed, ip, userAgent, nil))
	}
	return nil
}

func validatePayload(payload entity.SignaturePayload) error {
	if payload.SignatureData == "" {
		return domainErrors.ErrMissingSignatureData
	}
	if !payload.Consent {
		return domainErrors.ErrMissingConsent
	}
	if payload.SignerName == "" || payload.SignerEmail == "" {
		return fmt.Errorf("%w: signer name and email are required", domainErrors.ErrMalformedPayload)
	}
	if payload.IP == "" || payload.UserAgent == "" {
		return fmt.Errorf("%w: request context is required", domainErrors.ErrMalformedPayload)
	}
	return nil
}

func (s *envelopeService) CaptureSignature(ctx context.Context, envelopeID, signerID uuid.UUID, sessionID string, payload entity.SignaturePayload) (*CaptureResult, error) {
	session, ok := s.sessionService.Validate(ctx, envelopeID, sessionID)
	if !ok || session.SignerID != signerID {
		return nil, domainErrors.ErrSessionInvalid
	}

	if err := validatePayload(payload); err != nil {
		return nil, err
	}

	// Retry of an already-applied capture: hand back the stored result so
	// the call is safe to repeat.
	if existing, err := s.signatureRepo.FindBySignerID(ctx, signerID); err == nil {
		envelope, err := s.envelopeRepo.FindByID(ctx, envelopeID)
		if err != nil {
			return nil, err
		}
		return &CaptureResult{
			Signature:         existing,
			EnvelopeCompleted: envelope.Status == entity.EnvelopeStatusCompleted,
		}, nil
	} else if !domainErrors.IsNotFound(err) {
		return nil, err
	}

	now := time.Now()
	result := &CaptureResult{}

	err := s.txm.WithinTransaction(ctx, func(ctx context.Context) error {
		// The row lock serializes concurrent captures and cancellation; the
		// status check behind it rejects capture-after-cancel.
		envelope, err := s.envelopeRepo.FindByIDForUpdate(ctx, envelopeID)
		if err != nil {
			return err
		}
		if envelope.Status != entity.EnvelopeStatusPending {
			return domainErrors.ErrInvalidEnvelopeState
		}

		signers, err := s.signerRepo.ListByEnvelopeID(ctx, envelopeID)
		if err != nil {
			return err
		}
		var signer *entity.Signer
		for _, candidate := range signers {
			if candidate.ID == signerID {
				signer = candidate
				break
			}
		}
		if signer == nil {
			return domainErrors.ErrSignerNotFound
		}
		if !s.canAct(envelope, signers, signer) {
			if signer.Status == entity.SignerStatusSigned {
				return domainErrors.ErrAlreadySigned
			}
			if signer.Status == entity.SignerStatusDeclined {
				return domainErrors.ErrAlreadyDeclined
			}
			return domainErrors.ErrOrderViolation
		}

		if err := s.signerRepo.MarkSigned(ctx, signerID, now); err != nil {
			return err
		}

		signature := &entity.Signature{
			ID:            uuid.New(),
			EnvelopeID:    envelopeID,
			SignerID:      signerID,
			SignatureData: payload.SignatureData,
			SignerName:    payload.SignerName,
			SignerEmail:   payload.SignerEmail,
			PayloadHash: security.ComputeIntegrityHash(security.IntegrityInput{
				EnvelopeID:    envelopeID.String(),
				SignerID:      signerID.String(),
				SignatureData: payload.SignatureData,
				SignerName:    payload.SignerName,
				SignerEmail:   payload.SignerEmail,
				SignedAtUnix:  now.Unix(),
			}),
			IPHash:    security.HashBindingValue(payload.IP),
			UAHash:    security.HashBindingValue(payload.UserAgent),
			Page:      payload.Page,
			PositionX: payload.PositionX,
			PositionY: payload.PositionY,
			SignedAt:  now,
		}
		if err := s.signatureRepo.Create(ctx, signature); err != nil {
			return err
		}
		result.Signature = signature

		if err := s.auditService.Record(ctx, NewAuditEvent(envelopeID, &signerID, entity.AuditEventSignerSigned, payload.IP, payload.UserAgent, nil)); err != nil {
			return err
		}

		// Completion is decided against the live signer set under the same
		// lock, so two near-simultaneous last signers cannot both fire it.
		outstanding, err := s.signerRepo.CountOutstanding(ctx, envelopeID)
		if err != nil {
			return err
		}
		if outstanding == 0 {
			if err := s.envelopeRepo.MarkCompleted(ctx, envelopeID, now); err != nil {
				return err
			}
			if err := s.auditService.Record(ctx, NewAuditEvent(envelopeID, nil, entity.AuditEventEnvelopeCompleted, "", "", nil)); err != nil {
				return err
			}
			result.EnvelopeCompleted = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.sessionService.Invalidate(ctx, envelopeID); err != nil {
		s.logger.Error("Failed to invalidate session after signing", zap.Error(err))
	}

	metrics.SignaturesCapturedTotal.Inc()
	s.events.Publish(ctx, kafka.EventSignerSigned, envelopeID.String(), map[string]string{"signer_id": signerID.String()})
	if result.EnvelopeCompleted {
		metrics.EnvelopesCompletedTotal.Inc()
		s.events.Publish(ctx, kafka.EventEnvelopeCompleted, envelopeID.String(), nil)
	}
	return result, nil
}

func (s *envelopeService) Decline(ctx context.Context, envelopeID, signerID uuid.UUID, sessionID string, reason *string, ip, userAgent string) error {
	session, ok := s.sessionService.Validate(ctx, envelopeID, sessionID)
	if !ok || session.SignerID != signerID {
		return domainErrors.ErrSessionInvalid
	}

	now := time.Now()
	err := s.txm.WithinTransaction(ctx, func(ctx context.Context) error {
		envelope, err := s.envelopeRepo.FindByIDForUpdate(ctx, envelopeID)
		if err != nil {
			return err
		}
		if envelope.Status != entity.EnvelopeStatusPending {
			return domainErrors.ErrInvalidEnvelopeState
		}

		if err := s.signerRepo.MarkDeclined(ctx, signerID, reason, now); err != nil {
			return err
		}

		// One decline kills the whole envelope; remaining signers cannot
		// proceed against a document another party refused.
		cancelReason := "declined by signer"
		if err := s.envelopeRepo.MarkCancelled(ctx, envelopeID, &cancelReason, now); err != nil {
			return err
		}

		details := map[string]any{}
		if reason != nil {
			details["reason"] = *reason
		}
		if err := s.auditService.Record(ctx, NewAuditEvent(envelopeID, &signerID, entity.AuditEventSignerDeclined, ip, userAgent, details)); err != nil {
			return err
		}
		return s.auditService.Record(ctx, NewAuditEvent(envelopeID, nil, entity.AuditEventEnvelopeCancelled, "", "",
			map[string]any{"cause": "decline"}))
	})
	if err != nil {
		return err
	}

	if err := s.sessionService.Invalidate(ctx, envelopeID); err != nil {
		s.logger.Error("Failed to invalidate session after decline", zap.Error(err))
	}

	s.events.Publish(ctx, kafka.EventSignerDeclined, envelopeID.String(), map[string]string{"signer_id": signerID.String()})
	s.events.Publish(ctx, kafka.EventEnvelopeCancelled, envelopeID.String(), nil)
	return nil
}

func (s *envelopeService) Cancel(ctx context.Context, envelopeID uuid.UUID, reason *string) error {
	err := s.txm.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.envelopeRepo.FindByIDForUpdate(ctx, envelopeID); err != nil {
			return err
		}
		if err := s.envelopeRepo.MarkCancelled(ctx, envelopeID, reason, time.Now()); err != nil {
			return err
		}
		return s.auditService.Record(ctx, NewAuditEvent(envelopeID, nil, entity.AuditEventEnvelopeCancelled, "", "",
			map[string]any{"cause": "admin"}))
	})
	if err != nil {
		return err
	}

	if err := s.sessionService.Invalidate(ctx, envelopeID); err != nil {
		s.logger.Error("Failed to invalidate session after cancel", zap.Error(err))
	}
	s.events.Publish(ctx, kafka.EventEnvelopeCancelled, envelopeID.String(), nil)
	return nil
}

func (s *envelopeService) ReissueLink(ctx context.Context, envelopeID, signerID uuid.UUID, ip, userAgent string) error {
	envelope, err := s.envelopeRepo.FindByID(ctx, envelopeID)
	if err != nil {
		return err
	}
	if envelope.Status != entity.EnvelopeStatusPending {
		return domainErrors.ErrInvalidEnvelopeState
	}

	signer, err := s.signerRepo.FindByID(ctx, signerID)
	if err != nil {
		return err
	}
	if signer.EnvelopeID != envelopeID {
		return domainErrors.ErrSignerNotFound
	}
	if !signer.CanAct() {
		return domainErrors.ErrInvalidEnvelopeState
	}

	plain, err := s.tokenService.IssueLink(ctx, entity.MagicLinkPurposeSigning, envelopeID, signerID, ip, userAgent)
	if err != nil {
		return err
	}
	signingURL := fmt.Sprintf("%s/signing?token=%s", s.publicBaseURL, url.QueryEscape(plain))
	if err := s.emailSender.SendSigningInvitation(ctx, signer.Email, signer.Name, envelope.Title, signingURL); err != nil {
		s.logger.Error("Failed to deliver reissued signing invitation",
			zap.Error(err), zap.String("signer_id", signer.ID.String()))
	}
	return nil
}

func (s *envelopeService) VerifySignatureIntegrity(ctx context.Context, signerID uuid.UUID) (bool, error) {
	signature, err := s.signatureRepo.FindBySignerID(ctx, signerID)
	if err != nil {
		return false, err
	}

	recomputed := security.ComputeIntegrityHash(security.IntegrityInput{
		EnvelopeID:    signature.EnvelopeID.String(),
		SignerID:      signature.SignerID.String(),
		SignatureData: signature.SignatureData,
		SignerName:    signature.SignerName,
		SignerEmail:   signature.SignerEmail,
		SignedAtUnix:  signature.SignedAt.Unix(),
	})
	return !security.ConstantTimeEquals(recomputed, signature.PayloadHash), nil
}
