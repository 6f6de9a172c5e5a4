package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/entity"
	domainErrors "github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/errors"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/repository"
)

// SessionStoreRedis implements repository.SessionStore. One key per
// envelope means a new session silently supersedes the previous one.
type SessionStoreRedis struct {
	client *redis.Client
	logger *zap.Logger
}

// NewSessionStoreRedis creates a new instance.
func NewSessionStoreRedis(client *redis.Client, logger *zap.Logger) *SessionStoreRedis {
	return &SessionStoreRedis{client: client, logger: logger.Named("session_store")}
}

func sessionKey(envelopeID uuid.UUID) string {
	return fmt.Sprintf("signing_session:%s", envelopeID.String())
}

// Save stores the session under the envelope key with a TTL derived from
// its expiry.
func (s *SessionStoreRedis) Save(ctx context.Context, session *entity.SigningSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return domainErrors.ErrSessionExpired
	}

	if err := s.client.Set(ctx, sessionKey(session.EnvelopeID), data, ttl).Err(); err != nil {
		s.logger.Error("Failed to save session", zap.Error(err), zap.String("envelope_id", session.EnvelopeID.String()))
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Get returns the live session for the envelope.
func (s *SessionStoreRedis) Get(ctx context.Context, envelopeID uuid.UUID) (*entity.SigningSession, error) {
	data, err := s.client.Get(ctx, sessionKey(envelopeID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, domainErrors.ErrNotFound
		}
		s.logger.Error("Failed to get session", zap.Error(err), zap.String("envelope_id", envelopeID.String()))
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session entity.SigningSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// Delete removes the live session for the envelope.
func (s *SessionStoreRedis) Delete(ctx context.Context, envelopeID uuid.UUID) error {
	if err := s.client.Del(ctx, sessionKey(envelopeID)).Err(); err != nil {
		s.logger.Error("Failed to delete session", zap.Error(err), zap.String("envelope_id", envelopeID.String()))
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

var _ repository.SessionStore = (*SessionStoreRedis)(nil)
