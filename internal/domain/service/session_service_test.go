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

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/entity"
	domainErrors "github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/errors"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/service"
)

func TestSessionService_CreateAndValidate(t *testing.T) {
	store := new(MockSessionStore)
	svc := service.NewSessionService(store, 30*time.Minute, zap.NewNop())
	ctx := context.Background()
	envelopeID := uuid.New()
	signerID := uuid.New()

	var saved *entity.SigningSession
	store.On("Save", ctx, mock.AnythingOfType("*entity.SigningSession")).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*entity.SigningSession)
	}).Return(nil)

	session, err := svc.Create(ctx, envelopeID, signerID)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, signerID, session.SignerID)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), session.ExpiresAt, 5*time.Second)

	store.On("Get", ctx, envelopeID).Return(saved, nil)

	got, ok := svc.Validate(ctx, envelopeID, session.ID)
	require.True(t, ok)
	assert.Equal(t, signerID, got.SignerID)
}

func TestSessionService_Validate_WrongID(t *testing.T) {
	store := new(MockSessionStore)
	svc := service.NewSessionService(store, 30*time.Minute, zap.NewNop())
	ctx := context.Background()
	envelopeID := uuid.New()

	store.On("Get", ctx, envelopeID).Return(&entity.SigningSession{
		ID:         "the-real-session-id",
		EnvelopeID: envelopeID,
		SignerID:   uuid.New(),
		ExpiresAt:  time.Now().Add(time.Hour),
	}, nil)

	_, ok := svc.Validate(ctx, envelopeID, "guessed-session-id")
	assert.False(t, ok)
}

func TestSessionService_Validate_Expired(t *testing.T) {
	store := new(MockSessionStore)
	svc := service.NewSessionService(store, 30*time.Minute, zap.NewNop())
	ctx := context.Background()
	envelopeID := uuid.New()

	store.On("Get", ctx, envelopeID).Return(&entity.SigningSession{
		ID:         "session-id",
		EnvelopeID: envelopeID,
		SignerID:   uuid.New(),
		ExpiresAt:  time.Now().Add(-time.Minute),
	}, nil)

	_, ok := svc.Validate(ctx, envelopeID, "session-id")
	assert.False(t, ok)
}

func TestSessionService_Validate_StoreErrorFailsClosed(t *testing.T) {
	store := new(MockSessionStore)
	svc := service.NewSessionService(store, 30*time.Minute, zap.NewNop())
	ctx := context.Background()
	envelopeID := uuid.New()

	store.On("Get", ctx, envelopeID).Return(nil, errors.New("redis unreachable"))

	_, ok := svc.Validate(ctx, envelopeID, "session-id")
	assert.False(t, ok)
}

func TestSessionService_Validate_EmptyID(t *testing.T) {
	store := new(MockSessionStore)
	svc := service.NewSessionService(store, 30*time.Minute, zap.NewNop())

	_, ok := svc.Validate(context.Background(), uuid.New(), "")
	assert.False(t, ok)
	store.AssertNotCalled(t, "Get")
}

func TestSessionService_Extend(t *testing.T) {
	store := new(MockSessionStore)
	svc := service.NewSessionService(store, 30*time.Minute, zap.NewNop())
	ctx := context.Background()
	envelopeID := uuid.New()
	nearExpiry := time.Now().Add(2 * time.Minute)

	store.On("Get", ctx, envelopeID).Return(&entity.SigningSession{
		ID:         "session-id",
		EnvelopeID: envelopeID,
		SignerID:   uuid.New(),
		ExpiresAt:  nearExpiry,
	}, nil)
	store.On("Save", ctx, mock.AnythingOfType("*entity.SigningSession")).Return(nil)

	session, err := svc.Extend(ctx, envelopeID, "session-id")
	require.NoError(t, err)
	assert.True(t, session.ExpiresAt.After(nearExpiry))
}

func TestSessionService_Extend_InvalidSession(t *testing.T) {
	store := new(MockSessionStore)
	svc := service.NewSessionService(store, 30*time.Minute, zap.NewNop())
	ctx := context.Background()
	envelopeID := uuid.New()

	store.On("Get", ctx, envelopeID).Return(nil, domainErrors.ErrNotFound)

	_, err := svc.Extend(ctx, envelopeID, "session-id")
	assert.ErrorIs(t, err, domainErrors.ErrSessionInvalid)
}
