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

const envelopeColumns = `id, title, workflow_mode, status, created_by, expires_at, sent_at, completed_at, cancelled_at, cancel_reason, created_at, updated_at`

// EnvelopeRepositoryPostgres implements repository.EnvelopeRepository.
type EnvelopeRepositoryPostgres struct {
	pool *pgxpool.Pool
}

// NewEnvelopeRepositoryPostgres creates a new instance.
func NewEnvelopeRepositoryPostgres(pool *pgxpool.Pool) *EnvelopeRepositoryPostgres {
	return &EnvelopeRepositoryPostgres{pool: pool}
}

func scanEnvelope(row pgx.Row) (*entity.Envelope, error) {
	e := &entity.Envelope{}
	err := row.Scan(
		&e.ID, &e.Title, &e.WorkflowMode, &e.Status, &e.CreatedBy, &e.ExpiresAt,
		&e.SentAt, &e.CompletedAt, &e.CancelledAt, &e.CancelReason, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrEnvelopeNotFound
		}
		return nil, fmt.Errorf("failed to scan envelope: %w", err)
	}
	return e, nil
}

// Create persists a new envelope in draft state.
func (r *EnvelopeRepositoryPostgres) Create(ctx context.Context, envelope *entity.Envelope) error {
	query := `
		INSERT INTO envelopes (id, title, workflow_mode, status, created_by, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := querier(ctx, r.pool).Exec(ctx, query,
		envelope.ID, envelope.Title, envelope.WorkflowMode, envelope.Status,
		envelope.CreatedBy, envelope.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create envelope: %w", err)
	}
	return nil
}

// FindByID retrieves an envelope by id.
func (r *EnvelopeRepositoryPostgres) FindByID(ctx context.Context, id uuid.UUID) (*entity.Envelope, error) {
	query := `SELECT ` + envelopeColumns + ` FROM envelopes WHERE id = $1`
	return scanEnvelope(querier(ctx, r.pool).QueryRow(ctx, query, id))
}

// FindByIDForUpdate locks the envelope row for the surrounding transaction.
func (r *EnvelopeRepositoryPostgres) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Envelope, error) {
	query := `SELECT ` + envelopeColumns + ` FROM envelopes WHERE id = $1 FOR UPDATE`
	return scanEnvelope(querier(ctx, r.pool).QueryRow(ctx, query, id))
}

// MarkSent transitions draft -> pending.
func (r *EnvelopeRepositoryPostgres) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE envelopes
		SET status = $1, sent_at = $2, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := querier(ctx, r.pool).Exec(ctx, query,
		entity.EnvelopeStatusPending, at, id, entity.EnvelopeStatusDraft)
	if err != nil {
		return fmt.Errorf("failed to mark envelope sent: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domainErrors.ErrInvalidEnvelopeState
	}
	return nil
}

// MarkCompleted transitions pending -> completed.
func (r *EnvelopeRepositoryPostgres) MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE envelopes
		SET status = $1, completed_at = $2, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := querier(ctx, r.pool).Exec(ctx, query,
		entity.EnvelopeStatusCompleted, at, id, entity.EnvelopeStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark envelope completed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domainErrors.ErrInvalidEnvelopeState
	}
	return nil
}

// MarkCancelled transitions any non-terminal state -> cancelled.
func (r *EnvelopeRepositoryPostgres) MarkCancelled(ctx context.Context, id uuid.UUID, reason *string, at time.Time) error {
	query := `
		UPDATE envelopes
		SET status = $1, cancelled_at = $2, cancel_reason = $3, updated_at = $2
		WHERE id = $4 AND status IN ($5, $6)
	`
	result, err := querier(ctx, r.pool).Exec(ctx, query,
		entity.EnvelopeStatusCancelled, at, reason, id,
		entity.EnvelopeStatusDraft, entity.EnvelopeStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark envelope cancelled: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domainErrors.ErrInvalidEnvelopeState
	}
	return nil
}

// ExpireDue moves pending envelopes past their expiry to expired.
func (r *EnvelopeRepositoryPostgres) ExpireDue(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	query := `
		UPDATE envelopes
		SET status = $1, updated_at = $2
		WHERE status = $3 AND expires_at IS NOT NULL AND expires_at < $2
		RETURNING id
	`
	rows, err := querier(ctx, r.pool).Query(ctx, query,
		entity.EnvelopeStatusExpired, now, entity.EnvelopeStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to expire envelopes: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan expired envelope id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ repository.EnvelopeRepository = (*EnvelopeRepositoryPostgres)(nil)
