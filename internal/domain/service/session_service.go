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
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/utils/random"
)

const sessionIDBytes = 32 // 256 bits

// SessionService manages the short-lived signing credential issued after a
// signer has authenticated. At most one session is live per envelope; a
// new session supersedes the previous one.
type SessionService interface {
	// Create issues a fresh session for the signer, replacing any prior
	// session for the envelope.
	Create(ctx context.Context, envelopeID, signerID uuid.UUID) (*entity.SigningSession, error)

	// Validate is the boolean gate checked on every mutating call. It fails
	// closed: any lookup ambiguity reads as invalid.
	Validate(ctx context.Context, envelopeID uuid.UUID, sessionID string) (*entity.SigningSession, bool)

	// Extend pushes the session expiry forward by the configured TTL.
	Extend(ctx context.Context, envelopeID uuid.UUID, sessionID string) (*entity.SigningSession, error)

	// Invalidate drops the live session, called eagerly after a terminal
	// signer action to prevent replay.
	Invalidate(ctx context.Context, envelopeID uuid.UUID) error
}

type sessionService struct {
	store      repository.SessionStore
	sessionTTL time.Duration
	logger     *zap.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(store repository.SessionStore, sessionTTL time.Duration, logger *zap.Logger) SessionService {
	return &sessionService{store: store, sessionTTL: sessionTTL, logger: logger.Named("session_service")}
}

func (s *sessionService) Create(ctx context.Context, envelopeID, signerID uuid.UUID) (*entity.SigningSession, error) {
	id, err := random.GenerateSecureToken(sessionIDBytes)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &entity.SigningSession{
		ID:         id,
		EnvelopeID: envelopeID,
		SignerID:   signerID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.sessionTTL),
	}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *sessionService) Validate(ctx context.Context, envelopeID uuid.UUID, sessionID string) (*entity.SigningSession, bool) {
	if sessionID == "" {
		return nil, false
	}

	session, err := s.store.Get(ctx, envelopeID)
	if err != nil {
		if !domainErrors.IsNotFound(err) {
			s.logger.Error("Session lookup failed, treating as invalid",
				zap.Error(err), zap.String("envelope_id", envelopeID.String()))
		}
		return nil, false
	}

	if !security.ConstantTimeEquals(session.ID, sessionID) {
		return nil, false
	}
	if time.Now().After(session.ExpiresAt) {
		return nil, false
	}
	return session, true
}

func (s *sessionService) Extend(ctx context.Context, envelopeID uuid.UUID, sessionID string) (*entity.SigningSession, error) {
	session, ok := s.Validate(ctx, envelopeID, sessionID)
	if !ok {
		return nil, domainErrors.ErrSessionInvalid
	}

	session.ExpiresAt = time.Now().Add(s.sessionTTL)
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *sessionService) Invalidate(ctx context.Context, envelopeID uuid.UUID) error {
	return s.store.Delete(ctx, envelopeID)
}
