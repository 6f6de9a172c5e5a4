package interfaces

import "context"

// StoredDocument describes content held by the document store.
type StoredDocument struct {
	ContentHash string // SHA-256 hex
	SizeBytes   int64
}

// DocumentStore resolves document content metadata. Rendering and storage
// of the actual bytes live outside this service.
type DocumentStore interface {
	// Put stores document content and returns its hash and size.
	Put(ctx context.Context, fileName string, content []byte) (StoredDocument, error)

	// Stat returns metadata for previously stored content.
	Stat(ctx context.Context, contentHash string) (StoredDocument, error)
}
