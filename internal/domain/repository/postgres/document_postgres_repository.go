package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/entity"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/repository"
)

// DocumentRepositoryPostgres implements repository.DocumentRepository.
type DocumentRepositoryPostgres struct {
	pool *pgxpool.Pool
}

// NewDocumentRepositoryPostgres creates a new instance.
func NewDocumentRepositoryPostgres(pool *pgxpool.Pool) *DocumentRepositoryPostgres {
	return &DocumentRepositoryPostgres{pool: pool}
}

// Create persists document metadata.
func (r *DocumentRepositoryPostgres) Create(ctx context.Context, document *entity.Document) error {
	query := `
		INSERT INTO documents (id, envelope_id, file_name, content_hash, size_bytes, position)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := querier(ctx, r.pool).Exec(ctx, query,
		document.ID, document.EnvelopeID, document.FileName,
		document.ContentHash, document.SizeBytes, document.Position,
	)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// ListByEnvelopeID returns the documents of an envelope in display order.
func (r *DocumentRepositoryPostgres) ListByEnvelopeID(ctx context.Context, envelopeID uuid.UUID) ([]*entity.Document, error) {
	query := `
		SELECT id, envelope_id, file_name, content_hash, size_bytes, position, created_at
		FROM documents
		WHERE envelope_id = $1
		ORDER BY position, created_at
	`
	rows, err := querier(ctx, r.pool).Query(ctx, query, envelopeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var documents []*entity.Document
	for rows.Next() {
		d := &entity.Document{}
		if err := rows.Scan(&d.ID, &d.EnvelopeID, &d.FileName, &d.ContentHash, &d.SizeBytes, &d.Position, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		documents = append(documents, d)
	}
	return documents, rows.Err()
}

// CountByEnvelopeID returns the number of documents attached.
func (r *DocumentRepositoryPostgres) CountByEnvelopeID(ctx context.Context, envelopeID uuid.UUID) (int64, error) {
	var count int64
	err := querier(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM documents WHERE envelope_id = $1`, envelopeID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

var _ repository.DocumentRepository = (*DocumentRepositoryPostgres)(nil)
