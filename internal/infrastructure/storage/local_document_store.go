package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	domainErrors "github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/errors"
	"github.com/atelierhq/studio-platform/backend/services/signing-service/internal/domain/interfaces"
)

// LocalDocumentStore is an in-process DocumentStore keeping only content
// metadata. Actual document rendering and storage live in a separate
// service; this implementation covers development and tests.
type LocalDocumentStore struct {
	mu    sync.RWMutex
	sizes map[string]int64 // content hash -> size
}

// NewLocalDocumentStore creates a new instance.
func NewLocalDocumentStore() *LocalDocumentStore {
	return &LocalDocumentStore{sizes: make(map[string]int64)}
}

// Put records content metadata and returns its hash and size.
func (s *LocalDocumentStore) Put(ctx context.Context, fileName string, content []byte) (interfaces.StoredDocument, error) {
	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	s.mu.Lock()
	s.sizes[hash] = int64(len(content))
	s.mu.Unlock()

	return interfaces.StoredDocument{ContentHash: hash, SizeBytes: int64(len(content))}, nil
}

// Stat returns metadata for previously stored content.
func (s *LocalDocumentStore) Stat(ctx context.Context, contentHash string) (interfaces.StoredDocument, error) {
	s.mu.RLock()
	size, ok := s.sizes[contentHash]
	s.mu.RUnlock()
	if !ok {
		return interfaces.StoredDocument{}, domainErrors.ErrNotFound
	}
	return interfaces.StoredDocument{ContentHash: contentHash, SizeBytes: size}, nil
}

var _ interfaces.DocumentStore = (*LocalDocumentStore)(nil)
