package http

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/entity"
	domainErrors "github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/errors"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/service"
)

// EnvelopeHandler is the administrative surface: envelope assembly,
// sending, cancellation and the audit trail.
type EnvelopeHandler struct {
	envelopeService service.EnvelopeService
	auditService    service.AuditService
	logger          *zap.Logger
}

// NewEnvelopeHandler creates a new EnvelopeHandler.
func NewEnvelopeHandler(envelopeService service.EnvelopeService, auditService service.AuditService, logger *zap.Logger) *EnvelopeHandler {
	return &EnvelopeHandler{
		envelopeService: envelopeService,
		auditService:    auditService,
		logger:          logger.Named("envelope_handler"),
	}
}

type createEnvelopeRequest struct {
	Title        string     `json:"title" binding:"required"`
	WorkflowMode string     `json:"workflow_mode" binding:"required,oneof=sequential parallel"`
	CreatedBy    string     `json:"created_by" binding:"required,uuid"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

// CreateEnvelope creates a draft envelope.
// POST /api/v1/envelopes
func (h *EnvelopeHandler) CreateEnvelope(c *gin.Context) {
	var req createEnvelopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "title, workflow_mode and created_by are required", "invalid_request", h.logger)
		return
	}
	createdBy, err := uuid.Parse(req.CreatedBy)
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, "invalid created_by", "invalid_request", h.logger)
		return
	}

	envelope, err := h.envelopeService.CreateEnvelope(c.Request.Context(), req.Title, entity.WorkflowMode(req.WorkflowMode), createdBy, req.ExpiresAt)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithCreated(c, toEnvelopeResponse(envelope))
}

type addDocumentRequest struct {
	FileName string `json:"file_name" binding:"required"`
	Content  string `json:"content" binding:"required"` // Base64
}

// AddDocument attaches a document to a draft envelope.
// POST /api/v1/envelopes/:envelope_id/documents
func (h *EnvelopeHandler) AddDocument(c *gin.Context) {
	envelopeID, ok := h.envelopeID(c)
	if !ok {
		return
	}

	var req addDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "file_name and content are required", "invalid_request", h.logger)
		return
	}
	content, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, "content must be base64", "invalid_request", h.logger)
		return
	}

	document, err := h.envelopeService.AddDocument(c.Request.Context(), envelopeID, req.FileName, content)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithCreated(c, toDocumentResponse(document))
}

type addSignerRequest struct {
	Name           string `json:"name" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	SequenceNumber int    `json:"sequence_number"`
}

// AddSigner adds a signing party to a draft envelope.
// POST /api/v1/envelopes/:envelope_id/signers
func (h *EnvelopeHandler) AddSigner(c *gin.Context) {
	envelopeID, ok := h.envelopeID(c)
	if !ok {
		return
	}

	var req addSignerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "name and a valid email are required", "invalid_request", h.logger)
		return
	}

	signer, err := h.envelopeService.AddSigner(c.Request.Context(), envelopeID, req.Name, req.Email, req.SequenceNumber)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithCreated(c, toSignerResponse(signer))
}

// Send moves the envelope to pending and emails each signer a magic link.
// POST /api/v1/envelopes/:envelope_id/send
func (h *EnvelopeHandler) Send(c *gin.Context) {
	envelopeID, ok := h.envelopeID(c)
	if !ok {
		return
	}

	if err := h.envelopeService.Send(c.Request.Context(), envelopeID, c.ClientIP(), c.Request.UserAgent()); err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithMessage(c, http.StatusOK, "envelope sent")
}

// GetEnvelope returns the full administrative view.
// GET /api/v1/envelopes/:envelope_id
func (h *EnvelopeHandler) GetEnvelope(c *gin.Context) {
	envelopeID, ok := h.envelopeID(c)
	if !ok {
		return
	}

	snapshot, err := h.envelopeService.GetEnvelope(c.Request.Context(), envelopeID)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, toEnvelopeViewResponse(snapshot))
}

type cancelEnvelopeRequest struct {
	Reason *string `json:"reason"`
}

// Cancel cancels a non-terminal envelope.
// POST /api/v1/envelopes/:envelope_id/cancel
func (h *EnvelopeHandler) Cancel(c *gin.Context) {
	envelopeID, ok := h.envelopeID(c)
	if !ok {
		return
	}

	var req cancelEnvelopeRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		RespondWithError(c, http.StatusBadRequest, "malformed body", "invalid_request", h.logger)
		return
	}

	if err := h.envelopeService.Cancel(c.Request.Context(), envelopeID, req.Reason); err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithMessage(c, http.StatusOK, "envelope cancelled")
}

// AuditTrail returns the ordered audit trail of the envelope.
// GET /api/v1/envelopes/:envelope_id/audit
func (h *EnvelopeHandler) AuditTrail(c *gin.Context) {
	envelopeID, ok := h.envelopeID(c)
	if !ok {
		return
	}

	events, err := h.auditService.Trail(c.Request.Context(), envelopeID)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	responses := make([]auditEventResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, toAuditEventResponse(event))
	}
	RespondWithData(c, http.StatusOK, gin.H{"envelope_id": envelopeID.String(), "events": responses})
}

// VerifySignature recomputes a stored signature's integrity hash.
// GET /api/v1/envelopes/:envelope_id/signers/:signer_id/verify
func (h *EnvelopeHandler) VerifySignature(c *gin.Context) {
	if _, ok := h.envelopeID(c); !ok {
		return
	}
	signerID, err := uuid.Parse(c.Param("signer_id"))
	if err != nil {
		RespondWithDomainError(c, domainErrors.ErrSignerNotFound, h.logger)
		return
	}

	tampered, err := h.envelopeService.VerifySignatureIntegrity(c.Request.Context(), signerID)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, gin.H{"signer_id": signerID.String(), "tampered": tampered})
}

// ReissueLink revokes the signer's current magic link and issues a fresh
// one, the administrative recovery path after an OTP lockout.
// POST /api/v1/envelopes/:envelope_id/signers/:signer_id/reissue
func (h *EnvelopeHandler) ReissueLink(c *gin.Context) {
	envelopeID, ok := h.envelopeID(c)
	if !ok {
		return
	}
	signerID, err := uuid.Parse(c.Param("signer_id"))
	if err != nil {
		RespondWithDomainError(c, domainErrors.ErrSignerNotFound, h.logger)
		return
	}

	if err := h.envelopeService.ReissueLink(c.Request.Context(), envelopeID, signerID, c.ClientIP(), c.Request.UserAgent()); err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithMessage(c, http.StatusOK, "signing link reissued")
}

func (h *EnvelopeHandler) envelopeID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("envelope_id"))
	if err != nil {
		RespondWithDomainError(c, domainErrors.ErrEnvelopeNotFound, h.logger)
		return uuid.Nil, false
	}
	return id, true
}
