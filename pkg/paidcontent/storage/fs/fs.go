// Package fs provides a filesystem implementation of the
// paidcontent.BlobStore interface. Blobs are content-addressed: the file
// name is the SHA-256 of the bytes, sharded one directory level deep.
package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/paywalled/paid-content/pkg/paidcontent"
)

// Config options for the filesystem backend.
type Config struct {
	BaseDir string // Base directory for storing blobs
}

// Backend is a filesystem content-addressed blob store.
type Backend struct {
	baseDir string
}

// New creates a new filesystem storage backend, creating the base directory
// if it does not exist.
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if err := os.MkdirAll(config.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating base directory: %w", err)
	}
	return &Backend{baseDir: config.BaseDir}, nil
}

// WriteBlob stores data under its SHA-256 content reference. The write goes
// through a temp file and rename so a crash never leaves a torn blob behind.
func (b *Backend) WriteBlob(ctx context.Context, data []byte) (string, error) {
	sum := sha256.Sum256(data)
	ref := hex.EncodeToString(sum[:])

	path := b.blobPath(ref)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", &paidcontent.StorageError{Backend: "fs", Ref: ref, Op: "write", Err: err}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", &paidcontent.StorageError{Backend: "fs", Ref: ref, Op: "write", Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", &paidcontent.StorageError{Backend: "fs", Ref: ref, Op: "write", Err: err}
	}
	return ref, nil
}

// ReadBlob retrieves the bytes for a content reference.
func (b *Backend) ReadBlob(ctx context.Context, ref string) ([]byte, error) {
	data, err := os.ReadFile(b.blobPath(ref))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, paidcontent.ErrBlobNotFound
	}
	if err != nil {
		return nil, &paidcontent.StorageError{Backend: "fs", Ref: ref, Op: "read", Err: err}
	}
	return data, nil
}

// DeleteBlob removes the bytes for a content reference.
func (b *Backend) DeleteBlob(ctx context.Context, ref string) error {
	err := os.Remove(b.blobPath(ref))
	if errors.Is(err, fs.ErrNotExist) {
		return paidcontent.ErrBlobNotFound
	}
	if err != nil {
		return &paidcontent.StorageError{Backend: "fs", Ref: ref, Op: "delete", Err: err}
	}
	return nil
}

func (b *Backend) blobPath(ref string) string {
	shard := ref
	if len(ref) > 2 {
		shard = ref[:2]
	}
	return filepath.Join(b.baseDir, shard, ref)
}
