// Package memory provides an in-memory implementation of the
// paidcontent.BlobStore interface, used in tests and local development.
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/paywalled/paid-content/pkg/paidcontent"
)

// Backend is an in-memory content-addressed blob store.
type Backend struct {
	mu    sync.RWMutex
	blobs map[string][]byte

	// FailWrites makes every WriteBlob fail, for exercising the ingestion
	// abort path in tests.
	FailWrites bool
}

// New creates a new in-memory storage backend.
func New() *Backend {
	return &Backend{blobs: make(map[string][]byte)}
}

// WriteBlob stores data under its SHA-256 content reference.
func (b *Backend) WriteBlob(ctx context.Context, data []byte) (string, error) {
	if b.FailWrites {
		return "", &paidcontent.StorageError{Backend: "memory", Op: "write", Err: context.Canceled}
	}

	ref := contentRef(data)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[ref] = append([]byte(nil), data...)
	return ref, nil
}

// ReadBlob retrieves the bytes for a content reference.
func (b *Backend) ReadBlob(ctx context.Context, ref string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.blobs[ref]
	if !exists {
		return nil, paidcontent.ErrBlobNotFound
	}
	return append([]byte(nil), data...), nil
}

// DeleteBlob removes the bytes for a content reference.
func (b *Backend) DeleteBlob(ctx context.Context, ref string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.blobs[ref]; !exists {
		return paidcontent.ErrBlobNotFound
	}
	delete(b.blobs, ref)
	return nil
}

// Len reports the number of stored blobs.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.blobs)
}

func contentRef(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
