package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/entity"
	domainErrors "github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/errors"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/repository"
)

// TokenRepositoryPostgres implements repository.TokenRepository.
type TokenRepositoryPostgres struct {
	pool *pgxpool.Pool
}

// NewTokenRepositoryPostgres creates a new instance.
func NewTokenRepositoryPostgres(pool *pgxpool.Pool) *TokenRepositoryPostgres {
	return &TokenRepositoryPostgres{pool: pool}
}

// Create persists a new magic-link token.
func (r *TokenRepositoryPostgres) Create(ctx context.Context, token *entity.MagicLinkToken) error {
	query := `
		INSERT INTO magic_link_tokens (id, purpose, token_hash, envelope_id, signer_id, ip_hash, ua_hash, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := querier(ctx, r.pool).Exec(ctx, query,
		token.ID, token.Purpose, token.TokenHash, token.EnvelopeID, token.SignerID,
		token.IPHash, token.UAHash, token.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create magic link token: %w", err)
	}
	return nil
}

// FindByTokenHash retrieves a token by hash regardless of its state.
func (r *TokenRepositoryPostgres) FindByTokenHash(ctx context.Context, tokenHash string) (*entity.MagicLinkToken, error) {
	query := `
		SELECT id, purpose, token_hash, envelope_id, signer_id, ip_hash, ua_hash, expires_at, created_at, used_at, revoked_for
		FROM magic_link_tokens
		WHERE token_hash = $1
	`
	t := &entity.MagicLinkToken{}
	err := querier(ctx, r.pool).QueryRow(ctx, query, tokenHash).Scan(
		&t.ID, &t.Purpose, &t.TokenHash, &t.EnvelopeID, &t.SignerID,
		&t.IPHash, &t.UAHash, &t.ExpiresAt, &t.CreatedAt, &t.UsedAt, &t.RevokedFor,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to find token by hash: %w", err)
	}
	return t, nil
}

// MarkUsed consumes the token, conditional on it being unconsumed.
func (r *TokenRepositoryPostgres) MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time, reason *string) error {
	query := `
		UPDATE magic_link_tokens
		SET used_at = $1, revoked_for = $2
		WHERE id = $3 AND used_at IS NULL
	`
	result, err := querier(ctx, r.pool).Exec(ctx, query, usedAt, reason, id)
	if err != nil {
		return fmt.Errorf("failed to mark token used: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domainErrors.ErrTokenAlreadyUsed
	}
	return nil
}

// RevokeBySignerID consumes every live token of the signer.
func (r *TokenRepositoryPostgres) RevokeBySignerID(ctx context.Context, signerID uuid.UUID, reason string, at time.Time) (int64, error) {
	query := `
		UPDATE magic_link_tokens
		SET used_at = $1, revoked_for = $2
		WHERE signer_id = $3 AND used_at IS NULL
	`
	result, err := querier(ctx, r.pool).Exec(ctx, query, at, reason, signerID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke tokens for signer: %w", err)
	}
	return result.RowsAffected(), nil
}

// DeleteExpiredAndUsed removes stale token rows past the retention window.
func (r *TokenRepositoryPostgres) DeleteExpiredAndUsed(ctx context.Context, retention time.Duration) (int64, error) {
	query := `
		DELETE FROM magic_link_tokens
		WHERE expires_at < NOW() - $1::interval OR used_at < NOW() - $1::interval
	`
	result, err := querier(ctx, r.pool).Exec(ctx, query, retention)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	return result.RowsAffected(), nil
}

var _ repository.TokenRepository = (*TokenRepositoryPostgres)(nil)
