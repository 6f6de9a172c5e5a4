package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document represents a signable document attached to an envelope,
// mapping to the "documents" table. Content lives in the document store;
// only the content hash and size are recorded here.
type Document struct {
	ID          uuid.UUID `db:"id"`
	EnvelopeID  uuid.UUID `db:"envelope_id"`
	FileName    string    `db:"file_name"`
	ContentHash string    `db:"content_hash"` // SHA-256 hex from the document store
	SizeBytes   int64     `db:"size_bytes"`
	Position    int       `db:"position"`
	CreatedAt   time.Time `db:"created_at"`
}
