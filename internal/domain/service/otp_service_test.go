package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/config"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/entity"
	domainErrors "github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/errors"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/service"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/infrastructure/security"
)

type otpServiceFixture struct {
	svc            service.OTPService
	otpRepo        *MockOTPChallengeRepository
	signerRepo     *MockSignerRepository
	cooldowns      *MockCooldownStore
	tokenService   *MockTokenService
	sessionService *MockSessionService
	auditRepo      *MockAuditEventRepository
	emailSender    *MockEmailSender
}

func newOTPServiceFixture(t *testing.T, production bool) *otpServiceFixture {
	t.Helper()
	f := &otpServiceFixture{
		otpRepo:        new(MockOTPChallengeRepository),
		signerRepo:     new(MockSignerRepository),
		cooldowns:      new(MockCooldownStore),
		tokenService:   new(MockTokenService),
		sessionService: new(MockSessionService),
		auditRepo:      new(MockAuditEventRepository),
		emailSender:    new(MockEmailSender),
	}
	cfg := &config.SigningConfig{
		OTPTTL:         15 * time.Minute,
		OTPCooldown:    time.Minute,
		OTPMaxAttempts: 5,
		OTPCodeLength:  6,
	}
	auditService := service.NewAuditService(f.auditRepo, zap.NewNop())
	f.svc = service.NewOTPService(
		cfg, production,
		f.otpRepo, f.signerRepo, f.cooldowns,
		f.tokenService, f.sessionService, auditService, f.emailSender,
		zap.NewNop(),
	)
	return f
}

func TestOTPService_RequestOTP_DeliversCodeAndStoresHash(t *testing.T) {
	f := newOTPServiceFixture(t, false)
	ctx := context.Background()
	envelopeID := uuid.New()
	signer := &entity.Signer{ID: uuid.New(), EnvelopeID: envelopeID, Name: "Ada", Email: "ada@example.com", Status: entity.SignerStatusPending}

	f.signerRepo.On("ListByEnvelopeID", ctx, envelopeID).Return([]*entity.Signer{signer}, nil)
	f.cooldowns.On("Acquire", ctx, mock.AnythingOfType("string"), time.Minute).Return(true, nil)

	var challenge *entity.OTPChallenge
	f.otpRepo.On("ReplaceActive", ctx, mock.AnythingOfType("*entity.OTPChallenge")).Run(func(args mock.Arguments) {
		challenge = args.Get(1).(*entity.OTPChallenge)
	}).Return(nil)

	var sentCode string
	f.emailSender.On("SendOTPCode", ctx, "ada@example.com", mock.AnythingOfType("string"), 900).Run(func(args mock.Arguments) {
		sentCode = args.String(2)
	}).Return(nil)
	f.auditRepo.On("Create", ctx, mock.Anything).Return(nil)

	expiresIn, err := f.svc.RequestOTP(ctx, envelopeID, "Ada@Example.com", "10.0.0.1", "agent")
	require.NoError(t, err)
	assert.Equal(t, 900, expiresIn)
	require.NotNil(t, challenge)

	assert.Len(t, sentCode, 6)
	assert.NotEqual(t, sentCode, challenge.CodeHash)
	assert.Equal(t, security.HashToken(sentCode), challenge.CodeHash)
	assert.Equal(t, 5, challenge.MaxAttempts)
	assert.Equal(t, signer.ID, challenge.SignerID)
}

func TestOTPService_RequestOTP_EmailMismatch(t *testing.T) {
	f := newOTPServiceFixture(t, false)
	ctx := context.Background()
	envelopeID := uuid.New()

	f.signerRepo.On("ListByEnvelopeID", ctx, envelopeID).Return([]*entity.Signer{
		{ID: uuid.New(), Email: "ada@example.com"},
	}, nil)

	_, err := f.svc.RequestOTP(ctx, envelopeID, "mallory@example.com", "", "")
	assert.ErrorIs(t, err, domainErrors.ErrEmailMismatch)
	f.otpRepo.AssertNotCalled(t, "ReplaceActive")
}

func TestOTPService_RequestOTP_Cooldown(t *testing.T) {
	f := newOTPServiceFixture(t, false)
	ctx := context.Background()
	envelopeID := uuid.New()

	f.signerRepo.On("ListByEnvelopeID", ctx, envelopeID).Return([]*entity.Signer{
		{ID: uuid.New(), Email: "ada@example.com"},
	}, nil)
	f.cooldowns.On("Acquire", ctx, mock.Anything, mock.Anything).Return(false, nil)

	_, err := f.svc.RequestOTP(ctx, envelopeID, "ada@example.com", "", "")
	assert.ErrorIs(t, err, domainErrors.ErrOTPCooldown)
	f.emailSender.AssertNotCalled(t, "SendOTPCode")
}

func TestOTPService_VerifyOTP_NoActiveChallenge(t *testing.T) {
	f := newOTPServiceFixture(t, false)
	ctx := context.Background()
	envelopeID := uuid.New()

	f.otpRepo.On("FindActiveByEnvelopeID", ctx, envelopeID).Return(nil, domainErrors.ErrNotFound)

	_, err := f.svc.VerifyOTP(ctx, envelopeID, "123456", "", "")
	assert.ErrorIs(t, err, domainErrors.ErrNoActiveChallenge)
}

func TestOTPService_VerifyOTP_IncorrectCodeCountsAttempt(t *testing.T) {
	f := newOTPServiceFixture(t, false)
	ctx := context.Background()
	envelopeID := uuid.New()
	challengeID := uuid.New()

	f.otpRepo.On("FindActiveByEnvelopeID", ctx, envelopeID).Return(&entity.OTPChallenge{
		ID:          challengeID,
		EnvelopeID:  envelopeID,
		SignerID:    uuid.New(),
		CodeHash:    security.HashToken("654321"),
		Attempts:    0,
		MaxAttempts: 5,
		ExpiresAt:   time.Now().Add(10 * time.Minute),
	}, nil)
	f.otpRepo.On("IncrementAttempts", ctx, challengeID).Return(1, nil)
	f.auditRepo.On("Create", ctx, mock.Anything).Return(nil)

	_, err := f.svc.VerifyOTP(ctx, envelopeID, "000000", "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domainErrors.ErrIncorrectCode)

	var incorrect *domainErrors.IncorrectCodeError
	require.ErrorAs(t, err, &incorrect)
	assert.Equal(t, 4, incorrect.AttemptsRemaining)
	f.sessionService.AssertNotCalled(t, "Create")
}

func TestOTPService_VerifyOTP_FinalFailureRevokesLink(t *testing.T) {
	f := newOTPServiceFixture(t, false)
	ctx := context.Background()
	envelopeID := uuid.New()
	signerID := uuid.New()
	challengeID := uuid.New()

	f.otpRepo.On("FindActiveByEnvelopeID", ctx, envelopeID).Return(&entity.OTPChallenge{
		ID:          challengeID,
		EnvelopeID:  envelopeID,
		SignerID:    signerID,
		CodeHash:    security.HashToken("654321"),
		Attempts:    4,
		MaxAttempts: 5,
		ExpiresAt:   time.Now().Add(10 * time.Minute),
	}, nil)
	f.otpRepo.On("IncrementAttempts", ctx, challengeID).Return(5, nil)
	f.tokenService.On("RevokeForSigner", ctx, envelopeID, signerID, service.RevokeReasonLockout).Return(nil)
	f.auditRepo.On("Create", ctx, mock.Anything).Return(nil)

	_, err := f.svc.VerifyOTP(ctx, envelopeID, "000000", "", "")
	assert.ErrorIs(t, err, domainErrors.ErrTooManyAttempts)
	f.tokenService.AssertExpectations(t)
}

func TestOTPService_VerifyOTP_BurstSaturatesAtMaxAttempts(t *testing.T) {
	f := newOTPServiceFixture(t, false)
	ctx := context.Background()
	envelopeID := uuid.New()
	signerID := uuid.New()
	challengeID := uuid.New()

	// The challenge read saw two attempts, but concurrent wrong codes
	// already drove the stored counter to the cap. The increment saturates
	// there instead of counting past it, and the saturated value triggers
	// the lockout escalation.
	f.otpRepo.On("FindActiveByEnvelopeID", ctx, envelopeID).Return(&entity.OTPChallenge{
		ID:          challengeID,
		EnvelopeID:  envelopeID,
		SignerID:    signerID,
		CodeHash:    security.HashToken("654321"),
		Attempts:    2,
		MaxAttempts: 5,
		ExpiresAt:   time.Now().Add(10 * time.Minute),
	}, nil)
	f.otpRepo.On("IncrementAttempts", ctx, challengeID).Return(5, nil)
	f.tokenService.On("RevokeForSigner", ctx, envelopeID, signerID, service.RevokeReasonLockout).Return(nil)
	f.auditRepo.On("Create", ctx, mock.Anything).Return(nil)

	_, err := f.svc.VerifyOTP(ctx, envelopeID, "000000", "", "")
	assert.ErrorIs(t, err, domainErrors.ErrTooManyAttempts)

	var incorrect *domainErrors.IncorrectCodeError
	assert.False(t, errors.As(err, &incorrect))
	f.tokenService.AssertExpectations(t)
}

func TestOTPService_VerifyOTP_CorrectCodeAfterExhaustionStillLockedOut(t *testing.T) {
	f := newOTPServiceFixture(t, false)
	ctx := context.Background()
	envelopeID := uuid.New()
	signerID := uuid.New()

	f.otpRepo.On("FindActiveByEnvelopeID", ctx, envelopeID).Return(&entity.OTPChallenge{
		ID:          uuid.New(),
		EnvelopeID:  envelopeID,
		SignerID:    signerID,
		CodeHash:    security.HashToken("654321"),
		Attempts:    5,
		MaxAttempts: 5,
		ExpiresAt:   time.Now().Add(10 * time.Minute),
	}, nil)
	f.tokenService.On("RevokeForSigner", ctx, envelopeID, signerID, service.RevokeReasonLockout).Return(nil)
	f.auditRepo.On("Create", ctx, mock.Anything).Return(nil)

	_, err := f.svc.VerifyOTP(ctx, envelopeID, "654321", "", "")
	assert.ErrorIs(t, err, domainErrors.ErrTooManyAttempts)
	f.sessionService.AssertNotCalled(t, "Create")
}

func TestOTPService_VerifyOTP_SuccessAfterFailures(t *testing.T) {
	f := newOTPServiceFixture(t, false)
	ctx := context.Background()
	envelopeID := uuid.New()
	signerID := uuid.New()
	challengeID := uuid.New()

	f.otpRepo.On("FindActiveByEnvelopeID", ctx, envelopeID).Return(&entity.OTPChallenge{
		ID:          challengeID,
		EnvelopeID:  envelopeID,
		SignerID:    signerID,
		CodeHash:    security.HashToken("654321"),
		Attempts:    2,
		MaxAttempts: 5,
		ExpiresAt:   time.Now().Add(10 * time.Minute),
	}, nil)
	f.otpRepo.On("Consume", ctx, challengeID, mock.AnythingOfType("time.Time")).Return(nil)
	f.sessionService.On("Create", ctx, envelopeID, signerID).Return(&entity.SigningSession{
		ID:         "fresh-session",
		EnvelopeID: envelopeID,
		SignerID:   signerID,
		ExpiresAt:  time.Now().Add(30 * time.Minute),
	}, nil)
	f.auditRepo.On("Create", ctx, mock.Anything).Return(nil)

	session, err := f.svc.VerifyOTP(ctx, envelopeID, "654321", "", "")
	require.NoError(t, err)
	assert.Equal(t, "fresh-session", session.ID)
	assert.Equal(t, signerID, session.SignerID)
	f.otpRepo.AssertExpectations(t)
}

func TestOTPService_PeekCode(t *testing.T) {
	f := newOTPServiceFixture(t, false)
	ctx := context.Background()
	envelopeID := uuid.New()
	signer := &entity.Signer{ID: uuid.New(), Email: "ada@example.com"}

	f.signerRepo.On("ListByEnvelopeID", ctx, envelopeID).Return([]*entity.Signer{signer}, nil)
	f.cooldowns.On("Acquire", ctx, mock.Anything, mock.Anything).Return(true, nil)
	f.otpRepo.On("ReplaceActive", ctx, mock.Anything).Return(nil)
	var sentCode string
	f.emailSender.On("SendOTPCode", ctx, mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		sentCode = args.String(2)
	}).Return(nil)
	f.auditRepo.On("Create", ctx, mock.Anything).Return(nil)

	_, err := f.svc.RequestOTP(ctx, envelopeID, "ada@example.com", "", "")
	require.NoError(t, err)

	code, err := f.svc.PeekCode(ctx, envelopeID)
	require.NoError(t, err)
	assert.Equal(t, sentCode, code)
}

func TestOTPService_PeekCode_ForbiddenInProduction(t *testing.T) {
	f := newOTPServiceFixture(t, true)

	_, err := f.svc.PeekCode(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domainErrors.ErrForbidden)
}
