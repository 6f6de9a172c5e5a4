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

// OTPChallengeRepositoryPostgres implements repository.OTPChallengeRepository.
type OTPChallengeRepositoryPostgres struct {
	pool *pgxpool.Pool
	txm  *TxManager
}

// NewOTPChallengeRepositoryPostgres creates a new instance.
func NewOTPChallengeRepositoryPostgres(pool *pgxpool.Pool, txm *TxManager) *OTPChallengeRepositoryPostgres {
	return &OTPChallengeRepositoryPostgres{pool: pool, txm: txm}
}

// ReplaceActive supersedes any unconsumed challenge for the envelope with
// the new one, atomically.
func (r *OTPChallengeRepositoryPostgres) ReplaceActive(ctx context.Context, challenge *entity.OTPChallenge) error {
	return r.txm.WithinTransaction(ctx, func(ctx context.Context) error {
		q := querier(ctx, r.pool)
		if _, err := q.Exec(ctx,
			`DELETE FROM otp_challenges WHERE envelope_id = $1 AND consumed_at IS NULL`,
			challenge.EnvelopeID,
		); err != nil {
			return fmt.Errorf("failed to clear previous challenge: %w", err)
		}

		query := `
			INSERT INTO otp_challenges (id, envelope_id, signer_id, email, code_hash, attempts, max_attempts, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		if _, err := q.Exec(ctx, query,
			challenge.ID, challenge.EnvelopeID, challenge.SignerID, challenge.Email,
			challenge.CodeHash, challenge.Attempts, challenge.MaxAttempts, challenge.ExpiresAt,
		); err != nil {
			return fmt.Errorf("failed to create otp challenge: %w", err)
		}
		return nil
	})
}

// FindActiveByEnvelopeID returns the live challenge for the envelope.
func (r *OTPChallengeRepositoryPostgres) FindActiveByEnvelopeID(ctx context.Context, envelopeID uuid.UUID) (*entity.OTPChallenge, error) {
	query := `
		SELECT id, envelope_id, signer_id, email, code_hash, attempts, max_attempts, expires_at, created_at, consumed_at
		FROM otp_challenges
		WHERE envelope_id = $1 AND consumed_at IS NULL AND expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT 1
	`
	c := &entity.OTPChallenge{}
	err := querier(ctx, r.pool).QueryRow(ctx, query, envelopeID).Scan(
		&c.ID, &c.EnvelopeID, &c.SignerID, &c.Email, &c.CodeHash,
		&c.Attempts, &c.MaxAttempts, &c.ExpiresAt, &c.CreatedAt, &c.ConsumedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find active challenge: %w", err)
	}
	return c, nil
}

// IncrementAttempts bumps the attempt counter atomically and returns the
// new value. The RETURNING clause makes the read part of the same update,
// so N concurrent wrong codes count exactly N, and the counter saturates
// at max_attempts: a burst past the cap cannot push it further.
func (r *OTPChallengeRepositoryPostgres) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	query := `
		UPDATE otp_challenges
		SET attempts = attempts + 1
		WHERE id = $1 AND consumed_at IS NULL AND attempts < max_attempts
		RETURNING attempts
	`
	var attempts int
	err := querier(ctx, r.pool).QueryRow(ctx, query, id).Scan(&attempts)
	if err == nil {
		return attempts, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to increment attempts: %w", err)
	}

	// Zero rows: the challenge is consumed, gone, or already at the cap.
	// Re-read to tell the cases apart; at the cap the saturated count is
	// returned and the caller takes the lockout path.
	err = querier(ctx, r.pool).QueryRow(ctx,
		`SELECT attempts FROM otp_challenges WHERE id = $1 AND consumed_at IS NULL`, id,
	).Scan(&attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domainErrors.ErrNoActiveChallenge
		}
		return 0, fmt.Errorf("failed to increment attempts: %w", err)
	}
	return attempts, nil
}

// Consume marks the challenge used, conditional on it being unconsumed.
func (r *OTPChallengeRepositoryPostgres) Consume(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE otp_challenges
		SET consumed_at = $1
		WHERE id = $2 AND consumed_at IS NULL AND expires_at > NOW()
	`
	result, err := querier(ctx, r.pool).Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to consume challenge: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domainErrors.ErrNoActiveChallenge
	}
	return nil
}

// DeleteExpired removes challenges past their expiry.
func (r *OTPChallengeRepositoryPostgres) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := querier(ctx, r.pool).Exec(ctx, `DELETE FROM otp_challenges WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired challenges: %w", err)
	}
	return result.RowsAffected(), nil
}

var _ repository.OTPChallengeRepository = (*OTPChallengeRepositoryPostgres)(nil)
