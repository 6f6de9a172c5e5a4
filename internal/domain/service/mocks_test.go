package service_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/entity"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/interfaces"
)

// --- Repository mocks ---

type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

type MockTokenRepository struct {
	mock.Mock
}

func (m *MockTokenRepository) Create(ctx context.Context, token *entity.MagicLinkToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}
func (m *MockTokenRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*entity.MagicLinkToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.MagicLinkToken), args.Error(1)
}
func (m *MockTokenRepository) MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time, reason *string) error {
	args := m.Called(ctx, id, usedAt, reason)
	return args.Error(0)
}
func (m *MockTokenRepository) RevokeBySignerID(ctx context.Context, signerID uuid.UUID, reason string, at time.Time) (int64, error) {
	args := m.Called(ctx, signerID, reason, at)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockTokenRepository) DeleteExpiredAndUsed(ctx context.Context, retention time.Duration) (int64, error) {
	args := m.Called(ctx, retention)
	return args.Get(0).(int64), args.Error(1)
}

type MockOTPChallengeRepository struct {
	mock.Mock
}

func (m *MockOTPChallengeRepository) ReplaceActive(ctx context.Context, challenge *entity.OTPChallenge) error {
	args := m.Called(ctx, challenge)
	return args.Error(0)
}
func (m *MockOTPChallengeRepository) FindActiveByEnvelopeID(ctx context.Context, envelopeID uuid.UUID) (*entity.OTPChallenge, error) {
	args := m.Called(ctx, envelopeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.OTPChallenge), args.Error(1)
}
func (m *MockOTPChallengeRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}
func (m *MockOTPChallengeRepository) Consume(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}
func (m *MockOTPChallengeRepository) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockEnvelopeRepository struct {
	mock.Mock
}

func (m *MockEnvelopeRepository) Create(ctx context.Context, envelope *entity.Envelope) error {
	args := m.Called(ctx, envelope)
	return args.Error(0)
}
func (m *MockEnvelopeRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Envelope, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Envelope), args.Error(1)
}
func (m *MockEnvelopeRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Envelope, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Envelope), args.Error(1)
}
func (m *MockEnvelopeRepository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}
func (m *MockEnvelopeRepository) MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}
func (m *MockEnvelopeRepository) MarkCancelled(ctx context.Context, id uuid.UUID, reason *string, at time.Time) error {
	args := m.Called(ctx, id, reason, at)
	return args.Error(0)
}
func (m *MockEnvelopeRepository) ExpireDue(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type MockSignerRepository struct {
	mock.Mock
}

func (m *MockSignerRepository) Create(ctx context.Context, signer *entity.Signer) error {
	args := m.Called(ctx, signer)
	return args.Error(0)
}
func (m *MockSignerRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Signer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Signer), args.Error(1)
}
func (m *MockSignerRepository) ListByEnvelopeID(ctx context.Context, envelopeID uuid.UUID) ([]*entity.Signer, error) {
	args := m.Called(ctx, envelopeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Signer), args.Error(1)
}
func (m *MockSignerRepository) UpdateSequenceNumber(ctx context.Context, id uuid.UUID, sequenceNumber int) error {
	args := m.Called(ctx, id, sequenceNumber)
	return args.Error(0)
}
func (m *MockSignerRepository) MarkViewed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}
func (m *MockSignerRepository) MarkSigned(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}
func (m *MockSignerRepository) MarkDeclined(ctx context.Context, id uuid.UUID, reason *string, at time.Time) error {
	args := m.Called(ctx, id, reason, at)
	return args.Error(0)
}
func (m *MockSignerRepository) ExpireByEnvelopeIDs(ctx context.Context, envelopeIDs []uuid.UUID, at time.Time) (int64, error) {
	args := m.Called(ctx, envelopeIDs, at)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockSignerRepository) CountOutstanding(ctx context.Context, envelopeID uuid.UUID) (int64, error) {
	args := m.Called(ctx, envelopeID)
	return args.Get(0).(int64), args.Error(1)
}

type MockSignatureRepository struct {
	mock.Mock
}

func (m *MockSignatureRepository) Create(ctx context.Context, signature *entity.Signature) error {
	args := m.Called(ctx, signature)
	return args.Error(0)
}
func (m *MockSignatureRepository) FindBySignerID(ctx context.Context, signerID uuid.UUID) (*entity.Signature, error) {
	args := m.Called(ctx, signerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Signature), args.Error(1)
}
func (m *MockSignatureRepository) ListByEnvelopeID(ctx context.Context, envelopeID uuid.UUID) ([]*entity.Signature, error) {
	args := m.Called(ctx, envelopeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Signature), args.Error(1)
}

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, document *entity.Document) error {
	args := m.Called(ctx, document)
	return args.Error(0)
}
func (m *MockDocumentRepository) ListByEnvelopeID(ctx context.Context, envelopeID uuid.UUID) ([]*entity.Document, error) {
	args := m.Called(ctx, envelopeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Document), args.Error(1)
}
func (m *MockDocumentRepository) CountByEnvelopeID(ctx context.Context, envelopeID uuid.UUID) (int64, error) {
	args := m.Called(ctx, envelopeID)
	return args.Get(0).(int64), args.Error(1)
}

type MockAuditEventRepository struct {
	mock.Mock
}

func (m *MockAuditEventRepository) Create(ctx context.Context, event *entity.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
func (m *MockAuditEventRepository) ListByEnvelopeID(ctx context.Context, envelopeID uuid.UUID) ([]*entity.AuditEvent, error) {
	args := m.Called(ctx, envelopeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.AuditEvent), args.Error(1)
}

type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Save(ctx context.Context, session *entity.SigningSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}
func (m *MockSessionStore) Get(ctx context.Context, envelopeID uuid.UUID) (*entity.SigningSession, error) {
	args := m.Called(ctx, envelopeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.SigningSession), args.Error(1)
}
func (m *MockSessionStore) Delete(ctx context.Context, envelopeID uuid.UUID) error {
	args := m.Called(ctx, envelopeID)
	return args.Error(0)
}

type MockCooldownStore struct {
	mock.Mock
}

func (m *MockCooldownStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

// --- Collaborator mocks ---

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendSigningInvitation(ctx context.Context, email, signerName, envelopeTitle, signingURL string) error {
	args := m.Called(ctx, email, signerName, envelopeTitle, signingURL)
	return args.Error(0)
}
func (m *MockEmailSender) SendOTPCode(ctx context.Context, email, code string, expiresInSeconds int) error {
	args := m.Called(ctx, email, code, expiresInSeconds)
	return args.Error(0)
}

type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) Put(ctx context.Context, fileName string, content []byte) (interfaces.StoredDocument, error) {
	args := m.Called(ctx, fileName, content)
	return args.Get(0).(interfaces.StoredDocument), args.Error(1)
}
func (m *MockDocumentStore) Stat(ctx context.Context, contentHash string) (interfaces.StoredDocument, error) {
	args := m.Called(ctx, contentHash)
	return args.Get(0).(interfaces.StoredDocument), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, eventType string, envelopeID string, payload interface{}) {
	m.Called(ctx, eventType, envelopeID, payload)
}

// --- Service mocks ---

type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) IssueLink(ctx context.Context, purpose entity.MagicLinkPurpose, envelopeID, signerID uuid.UUID, ip, userAgent string) (string, error) {
	args := m.Called(ctx, purpose, envelopeID, signerID, ip, userAgent)
	return args.String(0), args.Error(1)
}
func (m *MockTokenService) Validate(ctx context.Context, plainToken, ip, userAgent string) (*entity.MagicLinkToken, error) {
	args := m.Called(ctx, plainToken, ip, userAgent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.MagicLinkToken), args.Error(1)
}
func (m *MockTokenService) Consume(ctx context.Context, plainToken string) (*entity.MagicLinkToken, error) {
	args := m.Called(ctx, plainToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.MagicLinkToken), args.Error(1)
}
func (m *MockTokenService) RevokeForSigner(ctx context.Context, envelopeID, signerID uuid.UUID, reason string) error {
	args := m.Called(ctx, envelopeID, signerID, reason)
	return args.Error(0)
}

type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) Create(ctx context.Context, envelopeID, signerID uuid.UUID) (*entity.SigningSession, error) {
	args := m.Called(ctx, envelopeID, signerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.SigningSession), args.Error(1)
}
func (m *MockSessionService) Validate(ctx context.Context, envelopeID uuid.UUID, sessionID string) (*entity.SigningSession, bool) {
	args := m.Called(ctx, envelopeID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*entity.SigningSession), args.Bool(1)
}
func (m *MockSessionService) Extend(ctx context.Context, envelopeID uuid.UUID, sessionID string) (*entity.SigningSession, error) {
	args := m.Called(ctx, envelopeID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.SigningSession), args.Error(1)
}
func (m *MockSessionService) Invalidate(ctx context.Context, envelopeID uuid.UUID) error {
	args := m.Called(ctx, envelopeID)
	return args.Error(0)
}
