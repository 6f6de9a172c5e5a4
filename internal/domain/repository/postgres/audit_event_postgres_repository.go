package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/entity"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/repository"
)

// AuditEventRepositoryPostgres implements repository.AuditEventRepository.
// The table is append-only; this type deliberately has no update or delete.
type AuditEventRepositoryPostgres struct {
	pool *pgxpool.Pool
}

// NewAuditEventRepositoryPostgres creates a new instance.
func NewAuditEventRepositoryPostgres(pool *pgxpool.Pool) *AuditEventRepositoryPostgres {
	return &AuditEventRepositoryPostgres{pool: pool}
}

// Create appends an audit event. id (BIGSERIAL) and created_at are set by
// the database.
func (r *AuditEventRepositoryPostgres) Create(ctx context.Context, event *entity.AuditEvent) error {
	query := `
		INSERT INTO audit_events (envelope_id, signer_id, type, ip_hash, ua_hash, details)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := querier(ctx, r.pool).Exec(ctx, query,
		event.EnvelopeID, event.SignerID, event.Type, event.IPHash, event.UAHash, event.Details,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit event: %w", err)
	}
	return nil
}

// ListByEnvelopeID returns the audit trail of an envelope in order.
func (r *AuditEventRepositoryPostgres) ListByEnvelopeID(ctx context.Context, envelopeID uuid.UUID) ([]*entity.AuditEvent, error) {
	query := `
		SELECT id, envelope_id, signer_id, type, ip_hash, ua_hash, details, created_at
		FROM audit_events
		WHERE envelope_id = $1
		ORDER BY id
	`
	rows, err := querier(ctx, r.pool).Query(ctx, query, envelopeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []*entity.AuditEvent
	for rows.Next() {
		e := &entity.AuditEvent{}
		if err := rows.Scan(&e.ID, &e.EnvelopeID, &e.SignerID, &e.Type, &e.IPHash, &e.UAHash, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

var _ repository.AuditEventRepository = (*AuditEventRepositoryPostgres)(nil)
