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

const signerColumns = `id, envelope_id, name, email, sequence_number, status, viewed_at, signed_at, declined_at, decline_reason, created_at, updated_at`

// SignerRepositoryPostgres implements repository.SignerRepository.
type SignerRepositoryPostgres struct {
	pool *pgxpool.Pool
}

// NewSignerRepositoryPostgres creates a new instance.
func NewSignerRepositoryPostgres(pool *pgxpool.Pool) *SignerRepositoryPostgres {
	return &SignerRepositoryPostgres{pool: pool}
}

func scanSigner(row pgx.Row) (*entity.Signer, error) {
	s := &entity.Signer{}
	err := row.Scan(
		&s.ID, &s.EnvelopeID, &s.Name, &s.Email, &s.SequenceNumber, &s.Status,
		&s.ViewedAt, &s.SignedAt, &s.DeclinedAt, &s.DeclineReason, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrSignerNotFound
		}
		return nil, fmt.Errorf("failed to scan signer: %w", err)
	}
	return s, nil
}

// Create persists a new signer.
func (r *SignerRepositoryPostgres) Create(ctx context.Context, signer *entity.Signer) error {
	query := `
		INSERT INTO signers (id, envelope_id, name, email, sequence_number, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := querier(ctx, r.pool).Exec(ctx, query,
		signer.ID, signer.EnvelopeID, signer.Name, signer.Email,
		signer.SequenceNumber, signer.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to create signer: %w", err)
	}
	return nil
}

// FindByID retrieves a signer by id.
func (r *SignerRepositoryPostgres) FindByID(ctx context.Context, id uuid.UUID) (*entity.Signer, error) {
	query := `SELECT ` + signerColumns + ` FROM signers WHERE id = $1`
	return scanSigner(querier(ctx, r.pool).QueryRow(ctx, query, id))
}

// ListByEnvelopeID returns signers ordered by sequence, then creation.
func (r *SignerRepositoryPostgres) ListByEnvelopeID(ctx context.Context, envelopeID uuid.UUID) ([]*entity.Signer, error) {
	query := `SELECT ` + signerColumns + ` FROM signers WHERE envelope_id = $1 ORDER BY sequence_number, created_at`
	rows, err := querier(ctx, r.pool).Query(ctx, query, envelopeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list signers: %w", err)
	}
	defer rows.Close()

	var signers []*entity.Signer
	for rows.Next() {
		s, err := scanSigner(rows)
		if err != nil {
			return nil, err
		}
		signers = append(signers, s)
	}
	return signers, rows.Err()
}

// UpdateSequenceNumber sets the order assigned at send time.
func (r *SignerRepositoryPostgres) UpdateSequenceNumber(ctx context.Context, id uuid.UUID, sequenceNumber int) error {
	query := `UPDATE signers SET sequence_number = $1, updated_at = NOW() WHERE id = $2`
	result, err := querier(ctx, r.pool).Exec(ctx, query, sequenceNumber, id)
	if err != nil {
		return fmt.Errorf("failed to update sequence number: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domainErrors.ErrSignerNotFound
	}
	return nil
}

// MarkViewed transitions pending -> viewed; false means the signer was not
// pending and nothing changed.
func (r *SignerRepositoryPostgres) MarkViewed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE signers
		SET status = $1, viewed_at = $2, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := querier(ctx, r.pool).Exec(ctx, query,
		entity.SignerStatusViewed, at, id, entity.SignerStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to mark signer viewed: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// MarkSigned transitions pending/viewed -> signed.
func (r *SignerRepositoryPostgres) MarkSigned(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE signers
		SET status = $1, signed_at = $2, updated_at = $2
		WHERE id = $3 AND status IN ($4, $5)
	`
	result, err := querier(ctx, r.pool).Exec(ctx, query,
		entity.SignerStatusSigned, at, id,
		entity.SignerStatusPending, entity.SignerStatusViewed)
	if err != nil {
		return fmt.Errorf("failed to mark signer signed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domainErrors.ErrAlreadySigned
	}
	return nil
}

// MarkDeclined transitions pending/viewed -> declined.
func (r *SignerRepositoryPostgres) MarkDeclined(ctx context.Context, id uuid.UUID, reason *string, at time.Time) error {
	query := `
		UPDATE signers
		SET status = $1, declined_at = $2, decline_reason = $3, updated_at = $2
		WHERE id = $4 AND status IN ($5, $6)
	`
	result, err := querier(ctx, r.pool).Exec(ctx, query,
		entity.SignerStatusDeclined, at, reason, id,
		entity.SignerStatusPending, entity.SignerStatusViewed)
	if err != nil {
		return fmt.Errorf("failed to mark signer declined: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domainErrors.ErrAlreadyDeclined
	}
	return nil
}

// ExpireByEnvelopeIDs moves non-terminal signers of the envelopes to expired.
func (r *SignerRepositoryPostgres) ExpireByEnvelopeIDs(ctx context.Context, envelopeIDs []uuid.UUID, at time.Time) (int64, error) {
	if len(envelopeIDs) == 0 {
		return 0, nil
	}
	query := `
		UPDATE signers
		SET status = $1, updated_at = $2
		WHERE envelope_id = ANY($3) AND status IN ($4, $5)
	`
	result, err := querier(ctx, r.pool).Exec(ctx, query,
		entity.SignerStatusExpired, at, envelopeIDs,
		entity.SignerStatusPending, entity.SignerStatusViewed)
	if err != nil {
		return 0, fmt.Errorf("failed to expire signers: %w", err)
	}
	return result.RowsAffected(), nil
}

// CountOutstanding counts signers of the envelope that are not yet signed.
func (r *SignerRepositoryPostgres) CountOutstanding(ctx context.Context, envelopeID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM signers WHERE envelope_id = $1 AND status != $2`
	var count int64
	err := querier(ctx, r.pool).QueryRow(ctx, query, envelopeID, entity.SignerStatusSigned).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count outstanding signers: %w", err)
	}
	return count, nil
}

var _ repository.SignerRepository = (*SignerRepositoryPostgres)(nil)
