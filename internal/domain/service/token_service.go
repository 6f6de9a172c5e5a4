package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/entity"
	domainErrors "github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/errors"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/repository"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/infrastructure/security"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/utils/metrics"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/utils/random"
)

const (
	magicLinkTokenBytes = 32 // 256 bits of entropy

	// RevokeReasonLockout marks tokens killed by OTP attempt exhaustion.
	RevokeReasonLockout = "otp_lockout"
	// RevokeReasonReissued marks tokens superseded by a newly issued link.
	RevokeReasonReissued = "reissued"
)

// TokenService issues and validates single-use magic-link tokens. The raw
// token exists only in the IssueLink return value; storage holds its hash.
type TokenService interface {
	// IssueLink creates a fresh token for a signer, revoking any prior live
	// token for the same signer, and returns the raw token for URL embedding.
	IssueLink(ctx context.Context, purpose entity.MagicLinkPurpose, envelopeID, signerID uuid.UUID, ip, userAgent string) (string, error)

	// Validate checks a raw token without consuming it, so the token can be
	// checked repeatedly across the multi-step signing flow. An IP or
	// User-Agent differing from the issuance binding is audited but allowed.
	Validate(ctx context.Context, plainToken, ip, userAgent string) (*entity.MagicLinkToken, error)

	// Consume marks the token used. A second consume fails with
	// ErrTokenAlreadyUsed.
	Consume(ctx context.Context, plainToken string) (*entity.MagicLinkToken, error)

	// RevokeForSigner kills every live token of the signer. Used by the OTP
	// lockout escalation and by administrative reissue.
	RevokeForSigner(ctx context.Context, envelopeID, signerID uuid.UUID, reason string) error
}

type tokenService struct {
	tokenRepo    repository.TokenRepository
	auditService AuditService
	linkTTL      time.Duration
	logger       *zap.Logger
}

// NewTokenService creates a new TokenService.
func NewTokenService(
	tokenRepo repository.TokenRepository,
	auditService AuditService,
	linkTTL time.Duration,
	logger *zap.Logger,
) TokenService {
	return &tokenService{
		tokenRepo:    tokenRepo,
		auditService: auditService,
		linkTTL:      linkTTL,
		logger:       logger.Named("token_service"),
	}
}

func (s *tokenService) IssueLink(ctx context.Context, purpose entity.MagicLinkPurpose, envelopeID, signerID uuid.UUID, ip, userAgent string) (string, error) {
	revoked, err := s.tokenRepo.RevokeBySignerID(ctx, signerID, RevokeReasonReissued, time.Now())
	if err != nil {
		return "", err
	}
	if revoked > 0 {
		s.logger.Info("Superseded prior magic link",
			zap.String("signer_id", signerID.String()),
			zap.Int64("revoked", revoked),
		)
	}

	plain, err := random.GenerateSecureToken(magicLinkTokenBytes)
	if err != nil {
		return "", err
	}

	token := &entity.MagicLinkToken{
		ID:         uuid.New(),
		Purpose:    purpose,
		TokenHash:  security.HashToken(plain),
		EnvelopeID: envelopeID,
		SignerID:   signerID,
		IPHash:     security.HashBindingValue(ip),
		UAHash:     security.HashBindingValue(userAgent),
		ExpiresAt:  time.Now().Add(s.linkTTL),
	}
	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return "", err
	}

	s.auditService.RecordBestEffort(ctx, NewAuditEvent(envelopeID, &signerID, entity.AuditEventLinkIssued, ip, userAgent, nil))
	return plain, nil
}

func (s *tokenService) Validate(ctx context.Context, plainToken, ip, userAgent string) (*entity.MagicLinkToken, error) {
	token, err := s.tokenRepo.FindByTokenHash(ctx, security.HashToken(plainToken))
	if err != nil {
		metrics.TokenValidationsTotal.WithLabelValues("not_found").Inc()
		return nil, err
	}

	if token.Consumed() {
		metrics.TokenValidationsTotal.WithLabelValues("already_used").Inc()
		return nil, domainErrors.ErrTokenAlreadyUsed
	}
	if token.Expired(time.Now()) {
		metrics.TokenValidationsTotal.WithLabelValues("expired").Inc()
		return nil, domainErrors.ErrTokenExpired
	}

	s.checkBinding(ctx, token, ip, userAgent)

	metrics.TokenValidationsTotal.WithLabelValues("ok").Inc()
	s.auditService.RecordBestEffort(ctx, NewAuditEvent(token.EnvelopeID, &token.SignerID, entity.AuditEventLinkValidated, ip, userAgent, nil))
	return token, nil
}

// checkBinding compares the caller's IP/UA hashes against the issuance
// binding. A mismatch is recorded on the audit trail but never blocks:
// signers legitimately open links from new devices and networks.
func (s *tokenService) checkBinding(ctx context.Context, token *entity.MagicLinkToken, ip, userAgent string) {
	details := map[string]any{}
	if token.IPHash != nil && ip != "" && !security.ConstantTimeEquals(*token.IPHash, security.HashToken(ip)) {
		details["ip_changed"] = true
	}
	if token.UAHash != nil && userAgent != "" && !security.ConstantTimeEquals(*token.UAHash, security.HashToken(userAgent)) {
		details["ua_changed"] = true
	}
	if len(details) == 0 {
		return
	}

	s.logger.Warn("Magic link binding mismatch",
		zap.String("token_id", token.ID.String()),
		zap.String("signer_id", token.SignerID.String()),
	)
	s.auditService.RecordBestEffort(ctx, NewAuditEvent(token.EnvelopeID, &token.SignerID, entity.AuditEventBindingMismatch, ip, userAgent, details))
}

func (s *tokenService) Consume(ctx context.Context, plainToken string) (*entity.MagicLinkToken, error) {
	token, err := s.tokenRepo.FindByTokenHash(ctx, security.HashToken(plainToken))
	if err != nil {
		return nil, err
	}
	// Consumed wins over expired, same as Validate: a token used once must
	// keep answering already-used even after its expiry passes.
	if token.Consumed() {
		return nil, domainErrors.ErrTokenAlreadyUsed
	}
	if token.Expired(time.Now()) {
		return nil, domainErrors.ErrTokenExpired
	}
	if err := s.tokenRepo.MarkUsed(ctx, token.ID, time.Now(), nil); err != nil {
		return nil, err
	}
	s.auditService.RecordBestEffort(ctx, NewAuditEvent(token.EnvelopeID, &token.SignerID, entity.AuditEventLinkConsumed, "", "", nil))
	return token, nil
}

func (s *tokenService) RevokeForSigner(ctx context.Context, envelopeID, signerID uuid.UUID, reason string) error {
	revoked, err := s.tokenRepo.RevokeBySignerID(ctx, signerID, reason, time.Now())
	if err != nil {
		return err
	}
	if revoked > 0 {
		s.auditService.RecordBestEffort(ctx, NewAuditEvent(envelopeID, &signerID, entity.AuditEventLinkRevoked, "", "", map[string]any{"reason": reason}))
	}
	return nil
}
