package paidcontent

// Request DTOs

// PublishRequest contains parameters for publishing a new item.
type PublishRequest struct {
	Title       string
	Description string
	Content     string
	Owner       string
	Tags        []string

	// Price overrides. Empty fields fall back to the service's configured
	// defaults; PayoutAddress falls back to Owner.
	Price PriceTerms
}

// ContentRequest contains parameters for one mediated content access.
// Requester is mandatory; Proof is the opaque payment assertion forwarded to
// the verification gateway, empty when the caller has not paid yet.
type ContentRequest struct {
	ItemID    string
	Requester string
	Proof     string
}
