package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/config"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/entity"
	domainErrors "github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/errors"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/service"
	handler "github.com/atelierhq/studio-platform/backend/services/signing-service/internal/handler/http"
)

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

type MockOTPService struct {
	mock.Mock
}

func (m *MockOTPService) RequestOTP(ctx context.Context, envelopeID uuid.UUID, email, ip, userAgent string) (int, error) {
	args := m.Called(ctx, envelopeID, email, ip, userAgent)
	return args.Int(0), args.Error(1)
}
func (m *MockOTPService) VerifyOTP(ctx context.Context, envelopeID uuid.UUID, code, ip, userAgent string) (*entity.SigningSession, error) {
	args := m.Called(ctx, envelopeID, code, ip, userAgent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.SigningSession), args.Error(1)
}
func (m *MockOTPService) PeekCode(ctx context.Context, envelopeID uuid.UUID) (string, error) {
	args := m.Called(ctx, envelopeID)
	return args.String(0), args.Error(1)
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

type MockEnvelopeService struct {
	mock.Mock
}

func (m *MockEnvelopeService) CreateEnvelope(ctx context.Context, title string, mode entity.WorkflowMode, createdBy uuid.UUID, expiresAt *time.Time) (*entity.Envelope, error) {
	args := m.Called(ctx, title, mode, createdBy, expiresAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Envelope), args.Error(1)
}
func (m *MockEnvelopeService) AddDocument(ctx context.Context, envelopeID uuid.UUID, fileName string, content []byte) (*entity.Document, error) {
	args := m.Called(ctx, envelopeID, fileName, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Document), args.Error(1)
}
func (m *MockEnvelopeService) AddSigner(ctx context.Context, envelopeID uuid.UUID, name, email string, sequenceNumber int) (*entity.Signer, error) {
	args := m.Called(ctx, envelopeID, name, email, sequenceNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Signer), args.Error(1)
}
func (m *MockEnvelopeService) Send(ctx context.Context, envelopeID uuid.UUID, ip, userAgent string) error {
	args := m.Called(ctx, envelopeID, ip, userAgent)
	return args.Error(0)
}
func (m *MockEnvelopeService) GetEnvelope(ctx context.Context, envelopeID uuid.UUID) (*service.SigningSnapshot, error) {
	args := m.Called(ctx, envelopeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SigningSnapshot), args.Error(1)
}
func (m *MockEnvelopeService) GetForSigning(ctx context.Context, envelopeID uuid.UUID, sessionID string) (*service.SigningSnapshot, error) {
	args := m.Called(ctx, envelopeID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SigningSnapshot), args.Error(1)
}
func (m *MockEnvelopeService) RecordView(ctx context.Context, envelopeID uuid.UUID, sessionID, ip, userAgent string) error {
	args := m.Called(ctx, envelopeID, sessionID, ip, userAgent)
	return args.Error(0)
}
func (m *MockEnvelopeService) CaptureSignature(ctx context.Context, envelopeID, signerID uuid.UUID, sessionID string, payload entity.SignaturePayload) (*service.CaptureResult, error) {
	args := m.Called(ctx, envelopeID, signerID, sessionID, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CaptureResult), args.Error(1)
}
func (m *MockEnvelopeService) Decline(ctx context.Context, envelopeID, signerID uuid.UUID, sessionID string, reason *string, ip, userAgent string) error {
	args := m.Called(ctx, envelopeID, signerID, sessionID, reason, ip, userAgent)
	return args.Error(0)
}
func (m *MockEnvelopeService) Cancel(ctx context.Context, envelopeID uuid.UUID, reason *string) error {
	args := m.Called(ctx, envelopeID, reason)
	return args.Error(0)
}
func (m *MockEnvelopeService) ReissueLink(ctx context.Context, envelopeID, signerID uuid.UUID, ip, userAgent string) error {
	args := m.Called(ctx, envelopeID, signerID, ip, userAgent)
	return args.Error(0)
}
func (m *MockEnvelopeService) VerifySignatureIntegrity(ctx context.Context, signerID uuid.UUID) (bool, error) {
	args := m.Called(ctx, signerID)
	return args.Bool(0), args.Error(1)
}

type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) Record(ctx context.Context, event *entity.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
func (m *MockAuditService) RecordBestEffort(ctx context.Context, event *entity.AuditEvent) {
	m.Called(ctx, event)
}
func (m *MockAuditService) Trail(ctx context.Context, envelopeID uuid.UUID) ([]*entity.AuditEvent, error) {
	args := m.Called(ctx, envelopeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.AuditEvent), args.Error(1)
}

// --- Fixture ---

type routerFixture struct {
	router          *gin.Engine
	tokenService    *MockTokenService
	otpService      *MockOTPService
	sessionService  *MockSessionService
	envelopeService *MockEnvelopeService
	auditService    *MockAuditService
}

func newRouterFixture(t *testing.T, environment string) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &routerFixture{
		tokenService:    new(MockTokenService),
		otpService:      new(MockOTPService),
		sessionService:  new(MockSessionService),
		envelopeService: new(MockEnvelopeService),
		auditService:    new(MockAuditService),
	}
	cfg := &config.Config{Environment: environment}
	f.router = handler.SetupRouter(f.tokenService, f.otpService, f.sessionService, f.envelopeService, f.auditService, cfg, zap.NewNop())
	return f
}

func performJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// --- Tests ---

func TestSigningHandler_ValidateLink_OK(t *testing.T) {
	f := newRouterFixture(t, "test")
	envelopeID := uuid.New()
	signerID := uuid.New()

	f.tokenService.On("Validate", mock.Anything, "good-token", mock.Anything, mock.Anything).Return(&entity.MagicLinkToken{
		ID:         uuid.New(),
		EnvelopeID: envelopeID,
		SignerID:   signerID,
		ExpiresAt:  time.Now().Add(time.Hour),
	}, nil)

	w := performJSON(t, f.router, http.MethodPost, "/api/v1/signing/validate", gin.H{"token": "good-token"}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, envelopeID.String(), resp["envelope_id"])
	assert.Equal(t, signerID.String(), resp["signer_id"])
}

func TestSigningHandler_ValidateLink_UsedToken(t *testing.T) {
	f := newRouterFixture(t, "test")

	f.tokenService.On("Validate", mock.Anything, "used-token", mock.Anything, mock.Anything).Return(nil, domainErrors.ErrTokenAlreadyUsed)

	w := performJSON(t, f.router, http.MethodPost, "/api/v1/signing/validate", gin.H{"token": "used-token"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSigningHandler_ValidateLink_MissingToken(t *testing.T) {
	f := newRouterFixture(t, "test")

	w := performJSON(t, f.router, http.MethodPost, "/api/v1/signing/validate", gin.H{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.tokenService.AssertNotCalled(t, "Validate")
}

func TestSigningHandler_RequestOTP_Cooldown(t *testing.T) {
	f := newRouterFixture(t, "test")
	envelopeID := uuid.New()

	f.tokenService.On("Validate", mock.Anything, "good-token", mock.Anything, mock.Anything).Return(&entity.MagicLinkToken{
		EnvelopeID: envelopeID, SignerID: uuid.New(), ExpiresAt: time.Now().Add(time.Hour),
	}, nil)
	f.otpService.On("RequestOTP", mock.Anything, envelopeID, "ada@example.com", mock.Anything, mock.Anything).Return(0, domainErrors.ErrOTPCooldown)

	w := performJSON(t, f.router, http.MethodPost, "/api/v1/signing/otp/request", gin.H{"token": "good-token", "email": "ada@example.com"}, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestSigningHandler_VerifyOTP_IncorrectCodeReportsAttemptsLeft(t *testing.T) {
	f := newRouterFixture(t, "test")
	envelopeID := uuid.New()

	f.tokenService.On("Validate", mock.Anything, "good-token", mock.Anything, mock.Anything).Return(&entity.MagicLinkToken{
		EnvelopeID: envelopeID, SignerID: uuid.New(), ExpiresAt: time.Now().Add(time.Hour),
	}, nil)
	f.otpService.On("VerifyOTP", mock.Anything, envelopeID, "000000", mock.Anything, mock.Anything).Return(nil, &domainErrors.IncorrectCodeError{AttemptsRemaining: 2})

	w := performJSON(t, f.router, http.MethodPost, "/api/v1/signing/otp/verify", gin.H{"token": "good-token", "code": "000000"}, nil)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	var resp handler.ResponseError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "incorrect_code", resp.Code)
	require.NotNil(t, resp.AttemptsRemaining)
	assert.Equal(t, 2, *resp.AttemptsRemaining)
}

func TestSigningHandler_VerifyOTP_SuccessReturnsSessionAndConsumesLink(t *testing.T) {
	f := newRouterFixture(t, "test")
	envelopeID := uuid.New()
	signerID := uuid.New()
	token := &entity.MagicLinkToken{EnvelopeID: envelopeID, SignerID: signerID, ExpiresAt: time.Now().Add(time.Hour)}

	f.tokenService.On("Validate", mock.Anything, "good-token", mock.Anything, mock.Anything).Return(token, nil)
	f.otpService.On("VerifyOTP", mock.Anything, envelopeID, "654321", mock.Anything, mock.Anything).Return(&entity.SigningSession{
		ID: "fresh-session", EnvelopeID: envelopeID, SignerID: signerID, ExpiresAt: time.Now().Add(30 * time.Minute),
	}, nil)
	f.tokenService.On("Consume", mock.Anything, "good-token").Return(token, nil)

	w := performJSON(t, f.router, http.MethodPost, "/api/v1/signing/otp/verify", gin.H{"token": "good-token", "code": "654321"}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "fresh-session", resp["session_id"])
	f.tokenService.AssertCalled(t, "Consume", mock.Anything, "good-token")
}

func TestSigningHandler_CaptureSignature_Conflict(t *testing.T) {
	f := newRouterFixture(t, "test")
	envelopeID := uuid.New()
	signerID := uuid.New()

	f.envelopeService.On("CaptureSignature", mock.Anything, envelopeID, signerID, "session-id", mock.AnythingOfType("entity.SignaturePayload")).
		Return(nil, domainErrors.ErrOrderViolation)

	w := performJSON(t, f.router, http.MethodPost, "/api/v1/signing/envelopes/"+envelopeID.String()+"/signature", gin.H{
		"signer_id":      signerID.String(),
		"signature_data": "stroke-data",
		"signer_name":    "Ada Lovelace",
		"signer_email":   "ada@example.com",
		"consent":        true,
	}, map[string]string{handler.SessionHeader: "session-id"})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSigningHandler_CaptureSignature_OK(t *testing.T) {
	f := newRouterFixture(t, "test")
	envelopeID := uuid.New()
	signerID := uuid.New()

	f.envelopeService.On("CaptureSignature", mock.Anything, envelopeID, signerID, "session-id", mock.AnythingOfType("entity.SignaturePayload")).
		Return(&service.CaptureResult{
			Signature: &entity.Signature{
				ID:          uuid.New(),
				EnvelopeID:  envelopeID,
				SignerID:    signerID,
				PayloadHash: "payload-hash",
				SignedAt:    time.Now(),
			},
			EnvelopeCompleted: true,
		}, nil)

	w := performJSON(t, f.router, http.MethodPost, "/api/v1/signing/envelopes/"+envelopeID.String()+"/signature", gin.H{
		"signer_id":      signerID.String(),
		"signature_data": "stroke-data",
		"signer_name":    "Ada Lovelace",
		"signer_email":   "ada@example.com",
		"consent":        true,
	}, map[string]string{handler.SessionHeader: "session-id"})

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["envelope_completed"])
	assert.Equal(t, "payload-hash", resp["payload_hash"])
}

func TestRouter_DevOTPRouteHiddenInProduction(t *testing.T) {
	prod := newRouterFixture(t, "production")
	w := performJSON(t, prod.router, http.MethodGet, "/api/v1/dev/envelopes/"+uuid.New().String()+"/otp", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	dev := newRouterFixture(t, "development")
	envelopeID := uuid.New()
	dev.otpService.On("PeekCode", mock.Anything, envelopeID).Return("123456", nil)
	w = performJSON(t, dev.router, http.MethodGet, "/api/v1/dev/envelopes/"+envelopeID.String()+"/otp", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEnvelopeHandler_Cancel(t *testing.T) {
	f := newRouterFixture(t, "test")
	envelopeID := uuid.New()

	f.envelopeService.On("Cancel", mock.Anything, envelopeID, mock.Anything).Return(nil)

	w := performJSON(t, f.router, http.MethodPost, "/api/v1/envelopes/"+envelopeID.String()+"/cancel", gin.H{"reason": "mistake"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEnvelopeHandler_VerifySignature(t *testing.T) {
	f := newRouterFixture(t, "test")
	envelopeID := uuid.New()
	signerID := uuid.New()

	f.envelopeService.On("VerifySignatureIntegrity", mock.Anything, signerID).Return(true, nil)

	w := performJSON(t, f.router, http.MethodGet, "/api/v1/envelopes/"+envelopeID.String()+"/signers/"+signerID.String()+"/verify", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["tampered"])
}
