package paidcontent

import (
	"context"
)

// Service is the main interface of the paid-content library. Publish is the
// ingestion pipeline; Content is the access mediator; the rest are ledger
// projections.
type Service interface {
	// Publish validates an authoring request, encrypts the content, writes it
	// to the storage collaborator and registers the item in the ledger.
	// Either storage and registration both succeed or the item does not exist.
	Publish(ctx context.Context, req PublishRequest) (*Item, error)

	// Preview returns the free excerpt and price terms for an item. Never
	// requires payment and never touches the stored content bytes.
	Preview(ctx context.Context, id string) (*PreviewResult, error)

	// Content mediates one access: it re-verifies payment for this specific
	// request, and either returns the plaintext with a receipt or a payment
	// challenge. A prior grant confers no memory.
	Content(ctx context.Context, req ContentRequest) (*AccessResult, error)

	// Get returns item metadata or ErrItemNotFound.
	Get(ctx context.Context, id string) (*Item, error)

	// List returns all items, newest first.
	List(ctx context.Context) ([]*Item, error)

	// ListByOwner returns items owned by the given identity.
	ListByOwner(ctx context.Context, owner string) ([]*Item, error)

	// Search matches title and tags case-insensitively.
	Search(ctx context.Context, query string) ([]*Item, error)

	// Delete removes the ledger entry and best-effort deletes the remote
	// blob. Returns false if the item was absent.
	Delete(ctx context.Context, id string) (bool, error)
}
