package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/entity"
	domainErrors "github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/errors"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/service"
)

// SessionHeader carries the signing session id on authenticated signer calls.
const SessionHeader = "X-Signing-Session"

// SigningHandler is the signer-facing surface: the magic-link entry point,
// the OTP exchange and the authenticated signing calls.
type SigningHandler struct {
	tokenService    service.TokenService
	otpService      service.OTPService
	sessionService  service.SessionService
	envelopeService service.EnvelopeService
	logger          *zap.Logger
}

// NewSigningHandler creates a new SigningHandler.
func NewSigningHandler(
	tokenService service.TokenService,
	otpService service.OTPService,
	sessionService service.SessionService,
	envelopeService service.EnvelopeService,
	logger *zap.Logger,
) *SigningHandler {
	return &SigningHandler{
		tokenService:    tokenService,
		otpService:      otpService,
		sessionService:  sessionService,
		envelopeService: envelopeService,
		logger:          logger.Named("signing_handler"),
	}
}

type validateLinkRequest struct {
	Token string `json:"token" binding:"required"`
}

type validateLinkResponse struct {
	EnvelopeID string `json:"envelope_id"`
	SignerID   string `json:"signer_id"`
	ExpiresAt  string `json:"expires_at"`
}

// ValidateLink checks a magic-link token without consuming it.
// POST /api/v1/signing/validate
func (h *SigningHandler) ValidateLink(c *gin.Context) {
	var req validateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "token is required", "invalid_request", h.logger)
		return
	}

	token, err := h.tokenService.Validate(c.Request.Context(), req.Token, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	RespondWithData(c, http.StatusOK, validateLinkResponse{
		EnvelopeID: token.EnvelopeID.String(),
		SignerID:   token.SignerID.String(),
		ExpiresAt:  token.ExpiresAt.Format(time.RFC3339),
	})
}

type requestOTPRequest struct {
	Token string `json:"token" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

// RequestOTP validates the magic link, matches the email against the bound
// signer and sends a fresh code.
// POST /api/v1/signing/otp/request
func (h *SigningHandler) RequestOTP(c *gin.Context) {
	var req requestOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "token and a valid email are required", "invalid_request", h.logger)
		return
	}

	token, err := h.tokenService.Validate(c.Request.Context(), req.Token, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	expiresIn, err := h.otpService.RequestOTP(c.Request.Context(), token.EnvelopeID, req.Email, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	RespondWithData(c, http.StatusOK, gin.H{"expires_in": expiresIn})
}

type verifyOTPRequest struct {
	Token string `json:"token" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

type sessionResponse struct {
	SessionID  string `json:"session_id"`
	EnvelopeID string `json:"envelope_id"`
	SignerID   string `json:"signer_id"`
	ExpiresAt  string `json:"expires_at"`
}

// VerifyOTP exchanges a correct code for a signing session. The magic link
// is consumed on success; subsequent access runs on the session.
// POST /api/v1/signing/otp/verify
func (h *SigningHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "token and code are required", "invalid_request", h.logger)
		return
	}

	token, err := h.tokenService.Validate(c.Request.Context(), req.Token, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	session, err := h.otpService.VerifyOTP(c.Request.Context(), token.EnvelopeID, req.Code, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	if _, err := h.tokenService.Consume(c.Request.Context(), req.Token); err != nil {
		// The session is already live; a racing consume only means another
		// tab won, which the single-session rule resolves anyway.
		h.logger.Warn("Magic link consume after OTP verify failed", zap.Error(err))
	}

	RespondWithData(c, http.StatusOK, sessionResponse{
		SessionID:  session.ID,
		EnvelopeID: session.EnvelopeID.String(),
		SignerID:   session.SignerID.String(),
		ExpiresAt:  session.ExpiresAt.Format(time.RFC3339),
	})
}

// ExtendSession pushes the session expiry forward.
// POST /api/v1/signing/envelopes/:envelope_id/session/extend
func (h *SigningHandler) ExtendSession(c *gin.Context) {
	envelopeID, ok := h.envelopeID(c)
	if !ok {
		return
	}

	session, err := h.sessionService.Extend(c.Request.Context(), envelopeID, c.GetHeader(SessionHeader))
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	RespondWithData(c, http.StatusOK, sessionResponse{
		SessionID:  session.ID,
		EnvelopeID: session.EnvelopeID.String(),
		SignerID:   session.SignerID.String(),
		ExpiresAt:  session.ExpiresAt.Format(time.RFC3339),
	})
}

// GetEnvelope returns the signer's view of the envelope.
// GET /api/v1/signing/envelopes/:envelope_id
func (h *SigningHandler) GetEnvelope(c *gin.Context) {
	envelopeID, ok := h.envelopeID(c)
	if !ok {
		return
	}

	snapshot, err := h.envelopeService.GetForSigning(c.Request.Context(), envelopeID, c.GetHeader(SessionHeader))
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	RespondWithData(c, http.StatusOK, toSignerViewResponse(snapshot))
}

// RecordView marks the signer as having opened the documents.
// POST /api/v1/signing/envelopes/:envelope_id/view
func (h *SigningHandler) RecordView(c *gin.Context) {
	envelopeID, ok := h.envelopeID(c)
	if !ok {
		return
	}

	err := h.envelopeService.RecordView(c.Request.Context(), envelopeID, c.GetHeader(SessionHeader), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithMessage(c, http.StatusOK, "view recorded")
}

type captureSignatureRequest struct {
	SignerID      string  `json:"signer_id" binding:"required,uuid"`
	SignatureData string  `json:"signature_data" binding:"required"`
	SignerName    string  `json:"signer_name" binding:"required"`
	SignerEmail   string  `json:"signer_email" binding:"required,email"`
	Consent       bool    `json:"consent"`
	Page          int     `json:"page"`
	PositionX     float64 `json:"position_x"`
	PositionY     float64 `json:"position_y"`
}

type captureSignatureResponse struct {
	SignatureID       string `json:"signature_id"`
	PayloadHash       string `json:"payload_hash"`
	SignedAt          string `json:"signed_at"`
	EnvelopeCompleted bool   `json:"envelope_completed"`
}

// CaptureSignature records the signature and reports whether it completed
// the envelope. Safe to retry.
// POST /api/v1/signing/envelopes/:envelope_id/signature
func (h *SigningHandler) CaptureSignature(c *gin.Context) {
	envelopeID, ok := h.envelopeID(c)
	if !ok {
		return
	}

	var req captureSignatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "malformed signature payload", "invalid_request", h.logger)
		return
	}
	signerID, err := uuid.Parse(req.SignerID)
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, "invalid signer id", "invalid_request", h.logger)
		return
	}

	result, err := h.envelopeService.CaptureSignature(c.Request.Context(), envelopeID, signerID, c.GetHeader(SessionHeader), entity.SignaturePayload{
		SignatureData: req.SignatureData,
		SignerName:    req.SignerName,
		SignerEmail:   req.SignerEmail,
		Consent:       req.Consent,
		IP:            c.ClientIP(),
		UserAgent:     c.Request.UserAgent(),
		Page:          req.Page,
		PositionX:     req.PositionX,
		PositionY:     req.PositionY,
	})
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	RespondWithData(c, http.StatusOK, captureSignatureResponse{
		SignatureID:       result.Signature.ID.String(),
		PayloadHash:       result.Signature.PayloadHash,
		SignedAt:          result.Signature.SignedAt.Format(time.RFC3339),
		EnvelopeCompleted: result.EnvelopeCompleted,
	})
}

type declineRequest struct {
	SignerID string  `json:"signer_id" binding:"required,uuid"`
	Reason   *string `json:"reason"`
}

// Decline refuses to sign and cancels the envelope.
// POST /api/v1/signing/envelopes/:envelope_id/decline
func (h *SigningHandler) Decline(c *gin.Context) {
	envelopeID, ok := h.envelopeID(c)
	if !ok {
		return
	}

	var req declineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "signer_id is required", "invalid_request", h.logger)
		return
	}
	signerID, err := uuid.Parse(req.SignerID)
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, "invalid signer id", "invalid_request", h.logger)
		return
	}

	err = h.envelopeService.Decline(c.Request.Context(), envelopeID, signerID, c.GetHeader(SessionHeader), req.Reason, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithMessage(c, http.StatusOK, "envelope declined")
}

// PeekOTPCode exposes the pending code for local development.
// GET /api/v1/dev/envelopes/:envelope_id/otp
func (h *SigningHandler) PeekOTPCode(c *gin.Context) {
	envelopeID, ok := h.envelopeID(c)
	if !ok {
		return
	}

	code, err := h.otpService.PeekCode(c.Request.Context(), envelopeID)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, gin.H{"code": code})
}

func (h *SigningHandler) envelopeID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("envelope_id"))
	if err != nil {
		RespondWithDomainError(c, domainErrors.ErrEnvelopeNotFound, h.logger)
		return uuid.Nil, false
	}
	return id, true
}
