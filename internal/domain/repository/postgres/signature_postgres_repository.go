package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/entity"
	domainErrors "github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/errors"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/repository"
)

const signatureColumns = `id, envelope_id, signer_id, signature_data, signer_name, signer_email, payload_hash, ip_hash, ua_hash, page, position_x, position_y, signed_at`

// SignatureRepositoryPostgres implements repository.SignatureRepository.
// The signer_id unique constraint enforces write-once at the database level.
type SignatureRepositoryPostgres struct {
	pool *pgxpool.Pool
}

// NewSignatureRepositoryPostgres creates a new instance.
func NewSignatureRepositoryPostgres(pool *pgxpool.Pool) *SignatureRepositoryPostgres {
	return &SignatureRepositoryPostgres{pool: pool}
}

func scanSignature(row pgx.Row) (*entity.Signature, error) {
	s := &entity.Signature{}
	err := row.Scan(
		&s.ID, &s.EnvelopeID, &s.SignerID, &s.SignatureData, &s.SignerName, &s.SignerEmail,
		&s.PayloadHash, &s.IPHash, &s.UAHash, &s.Page, &s.PositionX, &s.PositionY, &s.SignedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan signature: %w", err)
	}
	return s, nil
}

// Create persists a captured signature.
func (r *SignatureRepositoryPostgres) Create(ctx context.Context, signature *entity.Signature) error {
	query := `
		INSERT INTO signatures (id, envelope_id, signer_id, signature_data, signer_name, signer_email, payload_hash, ip_hash, ua_hash, page, position_x, position_y, signed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := querier(ctx, r.pool).Exec(ctx, query,
		signature.ID, signature.EnvelopeID, signature.SignerID, signature.SignatureData,
		signature.SignerName, signature.SignerEmail, signature.PayloadHash,
		signature.IPHash, signature.UAHash, signature.Page,
		signature.PositionX, signature.PositionY, signature.SignedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation on signer_id
			return domainErrors.ErrAlreadySigned
		}
		return fmt.Errorf("failed to create signature: %w", err)
	}
	return nil
}

// FindBySignerID retrieves the signature captured for a signer.
func (r *SignatureRepositoryPostgres) FindBySignerID(ctx context.Context, signerID uuid.UUID) (*entity.Signature, error) {
	query := `SELECT ` + signatureColumns + ` FROM signatures WHERE signer_id = $1`
	return scanSignature(querier(ctx, r.pool).QueryRow(ctx, query, signerID))
}

// ListByEnvelopeID returns every signature of the envelope.
func (r *SignatureRepositoryPostgres) ListByEnvelopeID(ctx context.Context, envelopeID uuid.UUID) ([]*entity.Signature, error) {
	query := `SELECT ` + signatureColumns + ` FROM signatures WHERE envelope_id = $1 ORDER BY signed_at`
	rows, err := querier(ctx, r.pool).Query(ctx, query, envelopeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list signatures: %w", err)
	}
	defer rows.Close()

	var signatures []*entity.Signature
	for rows.Next() {
		s, err := scanSignature(rows)
		if err != nil {
			return nil, err
		}
		signatures = append(signatures, s)
	}
	return signatures, rows.Err()
}

var _ repository.SignatureRepository = (*SignatureRepositoryPostgres)(nil)
