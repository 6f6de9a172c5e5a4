package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/config"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/entity"
	domainErrors "github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/errors"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/interfaces"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/repository"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/infrastructure/security"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/utils/metrics"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/utils/random"
)

// OTPService runs the second authentication factor: numeric code issuance
// with cooldown, and verification with attempt lockout. Exhausting the
// attempt budget revokes the signer's magic link, not just the challenge;
// the signer then needs an administrator to reissue the link.
type OTPService interface {
	// RequestOTP generates and delivers a fresh challenge for the envelope.
	// The bound signer is resolved by email; a non-matching address fails
	// with ErrEmailMismatch. Returns the challenge lifetime in seconds.
	RequestOTP(ctx context.Context, envelopeID uuid.UUID, email, ip, userAgent string) (int, error)

	// VerifyOTP checks the code. On success the challenge is consumed and a
	// fresh signing session is returned.
	VerifyOTP(ctx context.Context, envelopeID uuid.UUID, code, ip, userAgent string) (*entity.SigningSession, error)

	// PeekCode exposes the pending code outside production for local
	// development. Always ErrForbidden in production.
	PeekCode(ctx context.Context, envelopeID uuid.UUID) (string, error)
}

type otpService struct {
	cfg            *config.SigningConfig
	production     bool
	otpRepo        repository.OTPChallengeRepository
	signerRepo     repository.SignerRepository
	cooldowns      repository.CooldownStore
	tokenService   TokenService
	sessionService SessionService
	auditService   AuditService
	emailSender    interfaces.EmailSender
	logger         *zap.Logger

	// devCodes holds plain codes for the inspection endpoint. Only the
	// code hash is persisted, so the plain value can only live here, and
	// only outside production.
	devMu    sync.Mutex
	devCodes map[uuid.UUID]string
}

// NewOTPService creates a new OTPService.
func NewOTPService(
	cfg *config.SigningConfig,
	production bool,
	otpRepo repository.OTPChallengeRepository,
	signerRepo repository.SignerRepository,
	cooldowns repository.CooldownStore,
	tokenService TokenService,
	sessionService SessionService,
	auditService AuditService,
	emailSender interfaces.EmailSender,
	logger *zap.Logger,
) OTPService {
	return &otpService{
		cfg:            cfg,
		production:     production,
		otpRepo:        otpRepo,
		signerRepo:     signerRepo,
		cooldowns:      cooldowns,
		tokenService:   tokenService,
		sessionService: sessionService,
		auditService:   auditService,
		emailSender:    emailSender,
		logger:         logger.Named("otp_service"),
		devCodes:       make(map[uuid.UUID]string),
	}
}

func (s *otpService) RequestOTP(ctx context.Context, envelopeID uuid.UUID, email, ip, userAgent string) (int, error) {
	signer, err := s.resolveSigner(ctx, envelopeID, email)
	if err != nil {
		return 0, err
	}

	cooldownKey := fmt.Sprintf("otp:%s", envelopeID.String())
	acquired, err := s.cooldowns.Acquire(ctx, cooldownKey, s.cfg.OTPCooldown)
	if err != nil {
		return 0, err
	}
	if !acquired {
		return 0, domainErrors.ErrOTPCooldown
	}

	code, err := random.GenerateRandomDigits(s.cfg.OTPCodeLength)
	if err != nil {
		return 0, err
	}

	challenge := &entity.OTPChallenge{
		ID:          uuid.New(),
		EnvelopeID:  envelopeID,
		SignerID:    signer.ID,
		Email:       signer.Email,
		CodeHash:    security.HashToken(code),
		Attempts:    0,
		MaxAttempts: s.cfg.OTPMaxAttempts,
		ExpiresAt:   time.Now().Add(s.cfg.OTPTTL),
	}
	if err := s.otpRepo.ReplaceActive(ctx, challenge); err != nil {
		return 0, err
	}

	if !s.production {
		s.devMu.Lock()
		s.devCodes[envelopeID] = code
		s.devMu.Unlock()
	}

	expiresIn := int(s.cfg.OTPTTL.Seconds())
	if err := s.emailSender.SendOTPCode(ctx, signer.Email, code, expiresIn); err != nil {
		// Delivery is fire-and-forget; the signer can re-request after the
		// cooldown if the mail never arrives.
		s.logger.Error("Failed to deliver OTP code", zap.Error(err), zap.String("signer_id", signer.ID.String()))
	}

	s.auditService.RecordBestEffort(ctx, NewAuditEvent(envelopeID, &signer.ID, entity.AuditEventOTPRequested, ip, userAgent, nil))
	return expiresIn, nil
}

func (s *otpService) VerifyOTP(ctx context.Context, envelopeID uuid.UUID, code, ip, userAgent string) (*entity.SigningSession, error) {
	challenge, err := s.otpRepo.FindActiveByEnvelopeID(ctx, envelopeID)
	if err != nil {
		if domainErrors.IsNotFound(err) {
			metrics.OTPVerificationsTotal.WithLabelValues("no_challenge").Inc()
			return nil, domainErrors.ErrNoActiveChallenge
		}
		return nil, err
	}

	// A challenge that already burned its attempt budget is dead even for
	// the correct code.
	if challenge.Attempts >= challenge.MaxAttempts {
		return nil, s.lockout(ctx, challenge, ip, userAgent)
	}

	if !security.ConstantTimeEquals(challenge.CodeHash, security.HashToken(code)) {
		attempts, err := s.otpRepo.IncrementAttempts(ctx, challenge.ID)
		if err != nil {
			return nil, err
		}
		metrics.OTPVerificationsTotal.WithLabelValues("incorrect").Inc()
		s.auditService.RecordBestEffort(ctx, NewAuditEvent(envelopeID, &challenge.SignerID, entity.AuditEventOTPFailed, ip, userAgent,
			map[string]any{"attempts": attempts}))

		if attempts >= challenge.MaxAttempts {
			return nil, s.lockout(ctx, challenge, ip, userAgent)
		}
		return nil, &domainErrors.IncorrectCodeError{AttemptsRemaining: challenge.MaxAttempts - attempts}
	}

	// Consume is conditional on the challenge still being live, so a
	// concurrent verification cannot redeem the same code twice.
	if err := s.otpRepo.Consume(ctx, challenge.ID, time.Now()); err != nil {
		return nil, err
	}

	s.devMu.Lock()
	delete(s.devCodes, envelopeID)
	s.devMu.Unlock()

	session, err := s.sessionService.Create(ctx, envelopeID, challenge.SignerID)
	if err != nil {
		return nil, err
	}

	metrics.OTPVerificationsTotal.WithLabelValues("ok").Inc()
	s.auditService.RecordBestEffort(ctx, NewAuditEvent(envelopeID, &challenge.SignerID, entity.AuditEventOTPVerified, ip, userAgent, nil))
	return session, nil
}

// lockout escalates attempt exhaustion: the signer's magic link dies with
// the challenge, and only an administrator can reissue it.
func (s *otpService) lockout(ctx context.Context, challenge *entity.OTPChallenge, ip, userAgent string) error {
	metrics.OTPVerificationsTotal.WithLabelValues("lockout").Inc()
	s.logger.Warn("OTP attempts exhausted, revoking magic link",
		zap.String("envelope_id", challenge.EnvelopeID.String()),
		zap.String("signer_id", challenge.SignerID.String()),
	)

	if err := s.tokenService.RevokeForSigner(ctx, challenge.EnvelopeID, challenge.SignerID, RevokeReasonLockout); err != nil {
		s.logger.Error("Failed to revoke magic link on lockout", zap.Error(err))
	}
	s.auditService.RecordBestEffort(ctx, NewAuditEvent(challenge.EnvelopeID, &challenge.SignerID, entity.AuditEventOTPLockout, ip, userAgent, nil))
	return domainErrors.ErrTooManyAttempts
}

func (s *otpService) PeekCode(ctx context.Context, envelopeID uuid.UUID) (string, error) {
	if s.production {
		return "", domainErrors.ErrForbidden
	}
	s.devMu.Lock()
	defer s.devMu.Unlock()
	code, ok := s.devCodes[envelopeID]
	if !ok {
		return "", domainErrors.ErrNoActiveChallenge
	}
	return code, nil
}

// resolveSigner matches the provided address against the envelope's
// signers, case-insensitively.
func (s *otpService) resolveSigner(ctx context.Context, envelopeID uuid.UUID, email string) (*entity.Signer, error) {
	signers, err := s.signerRepo.ListByEnvelopeID(ctx, envelopeID)
	if err != nil {
		return nil, err
	}
	for _, signer := range signers {
		if strings.EqualFold(signer.Email, email) {
			return signer, nil
		}
	}
	return nil, domainErrors.ErrEmailMismatch
}
