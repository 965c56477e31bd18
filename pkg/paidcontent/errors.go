package paidcontent

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrItemNotFound indicates an item was not found in the ledger
	ErrItemNotFound = errors.New("item not found")

	// ErrBlobNotFound indicates a blob was not found in the storage backend
	ErrBlobNotFound = errors.New("blob not found")

	// ErrBackendNotFound indicates a storage backend was not found
	ErrBackendNotFound = errors.New("storage backend not found")

	// ErrMissingRequester indicates a content request carried no requester identity
	ErrMissingRequester = errors.New("requester identity is required")
)

// ValidationError indicates a bad authoring or access request. Not retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConfigError indicates missing or malformed configuration, typically the
// process-wide content secret. Fatal for the operation that hit it.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("configuration %s is not set", e.Key)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// CryptoError indicates a key, IV or padding mismatch during encryption or
// decryption. Lengths are carried for logging; key material never is.
type CryptoError struct {
	Op            string
	CiphertextLen int
	IVLen         int
	Err           error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("crypto operation %s failed (ciphertext=%d bytes, iv=%d bytes): %v",
		e.Op, e.CiphertextLen, e.IVLen, e.Err)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// StorageError represents an error reported by a storage backend.
type StorageError struct {
	Backend string
	Ref     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for ref %s on backend %s: %v",
		e.Op, e.Ref, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ItemError represents an error related to a ledger item operation.
type ItemError struct {
	ItemID string
	Op     string
	Err    error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item operation %s failed for item %s: %v", e.Op, e.ItemID, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}
