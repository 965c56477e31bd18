package paidcontent

import (
	"context"
)

// BlobStore defines the contract with the external content-addressed object
// store. WriteBlob assigns the content reference; the ledger uses it as the
// item's primary key.
type BlobStore interface {
	// WriteBlob stores data and returns its content reference.
	WriteBlob(ctx context.Context, data []byte) (string, error)

	// ReadBlob retrieves the bytes for a content reference. Returns
	// ErrBlobNotFound (possibly wrapped) when the reference is unknown.
	ReadBlob(ctx context.Context, ref string) ([]byte, error)

	// DeleteBlob removes the bytes for a content reference. Removal is
	// best-effort from the ledger's point of view.
	DeleteBlob(ctx context.Context, ref string) error
}

// Ledger is the durable registry of item metadata. Implementations persist
// the whole registry on every mutating call.
type Ledger interface {
	// Create registers an item under its caller-supplied id and persists
	// synchronously before returning.
	Create(ctx context.Context, item *Item) error

	// Get returns the item or ErrItemNotFound.
	Get(ctx context.Context, id string) (*Item, error)

	// List returns all items, newest first.
	List(ctx context.Context) ([]*Item, error)

	// ListByOwner returns the items owned by the given identity, newest first.
	ListByOwner(ctx context.Context, owner string) ([]*Item, error)

	// Search returns items whose title or tags contain the query,
	// case-insensitively.
	Search(ctx context.Context, query string) ([]*Item, error)

	// RecordAccess upserts one audit entry for the requester and persists.
	// Returns false if the item is unknown.
	RecordAccess(ctx context.Context, id, requester string, rec AccessRecord) (bool, error)

	// Delete removes the ledger entry. Returns false if absent.
	Delete(ctx context.Context, id string) (bool, error)
}

// ContentCipher is the symmetric cipher used to seal content before it
// leaves the process and to reconstruct plaintext after a verified payment.
type ContentCipher interface {
	// Encrypt returns the ciphertext and the freshly generated IV.
	Encrypt(plaintext, secret []byte) (ciphertext, iv []byte, err error)

	// Decrypt reverses Encrypt. Fails with a CryptoError on key, alignment
	// or padding mismatch.
	Decrypt(ciphertext, iv, secret []byte) ([]byte, error)
}

// VerifyPaymentRequest carries everything the payment gateway needs to judge
// one specific content request.
type VerifyPaymentRequest struct {
	ItemID    string
	Requester string
	Proof     string
	Terms     PriceTerms
}

// PaymentVerifier is the external payment-verification gateway. The core
// never parses wallet signatures itself; it only consumes the tagged
// decision. A timed-out verification is treated by the caller as unpaid,
// never as implicit success.
type PaymentVerifier interface {
	VerifyPayment(ctx context.Context, req VerifyPaymentRequest) (*PaymentDecision, error)
}

// ChallengeSigner optionally signs payment challenges so the gateway can
// bind a settlement to a specific nonce and expiry. A nil signer leaves the
// challenge token empty.
type ChallengeSigner interface {
	Sign(ch PaymentChallenge) (string, error)
}
