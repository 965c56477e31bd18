package paidcontent

import (
	"time"
)

// BlobStatus is the domain type for blob storage lifecycle states.
type BlobStatus string

// Blob status constants (typed).
const (
	BlobStatusPending   BlobStatus = "pending"
	BlobStatusSuccess   BlobStatus = "success"
	BlobStatusFailed    BlobStatus = "failed"
	BlobStatusLocalOnly BlobStatus = "local-only"
)

// Encryption scheme constants.
const (
	SchemeAES256CBC = "aes-256-cbc"
)

// PriceTerms describes how one access to an item is paid for. Terms are
// immutable once set at creation.
type PriceTerms struct {
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	PayoutAddress string `json:"payout_address"`
	Asset         string `json:"asset,omitempty"`
	Network       string `json:"network,omitempty"`
}

// BlobEncryption carries the encryption parameters of a stored blob. A nil
// BlobEncryption on a pointer means the stored bytes are legacy plaintext
// UTF-8; every read path must handle both cases.
type BlobEncryption struct {
	Scheme string `json:"scheme"`
	IV     []byte `json:"iv"`
}

// BlobPointer links an item to its bytes in the storage collaborator. The
// ContentRef doubles as the item's primary key: it is assigned by the store
// at write time and never reassigned.
type BlobPointer struct {
	ContentRef string          `json:"content_ref"`
	Backend    string          `json:"backend,omitempty"`
	Epochs     int             `json:"epochs,omitempty"`
	Certified  bool            `json:"certified"`
	Status     BlobStatus      `json:"status"`
	Encryption *BlobEncryption `json:"encryption,omitempty"`
}

// Encrypted reports whether the blob holds ciphertext.
func (p BlobPointer) Encrypted() bool {
	return p.Encryption != nil
}

// AccessRecord is one audit entry for a granted access. Entries are
// informational: their presence never bypasses payment verification on a
// subsequent request.
type AccessRecord struct {
	GrantID string    `json:"grant_id"`
	Amount  string    `json:"amount"`
	At      time.Time `json:"at"`
}

// Item represents one published, priced, content-bearing unit.
type Item struct {
	ID          string                  `json:"id"`
	Title       string                  `json:"title"`
	Description string                  `json:"description,omitempty"`
	Owner       string                  `json:"owner"`
	Tags        []string                `json:"tags,omitempty"`
	PreviewText string                  `json:"preview_text"`
	Price       PriceTerms              `json:"price"`
	Blob        BlobPointer             `json:"blob"`
	AccessLog   map[string]AccessRecord `json:"access_log"`
	CreatedAt   time.Time               `json:"created_at"`
}

// OverallStatus is the derived roll-up of the item's storage status.
func (i *Item) OverallStatus() string {
	switch i.Blob.Status {
	case BlobStatusSuccess:
		return "available"
	case BlobStatusPending:
		return "pending"
	case BlobStatusFailed:
		return "failed"
	default:
		return string(BlobStatusLocalOnly)
	}
}

// PaymentStatus tags the outcome of a payment verification.
type PaymentStatus string

// Payment decision constants (typed).
const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentVerified PaymentStatus = "verified"
)

// PaymentDecision is the tagged result of a payment verification call.
// GrantID, Amount and Payer are populated only when Status is
// PaymentVerified.
type PaymentDecision struct {
	Status  PaymentStatus `json:"status"`
	GrantID string        `json:"grant_id,omitempty"`
	Amount  string        `json:"amount,omitempty"`
	Payer   string        `json:"payer,omitempty"`
}

// PaymentChallenge tells an unpaid caller how to pay. The nonce and expiry
// are freshly generated per request; the token, when present, is a signed
// encoding of the challenge the payment gateway can bind a settlement to.
type PaymentChallenge struct {
	ItemID    string     `json:"item_id"`
	Nonce     string     `json:"nonce"`
	Token     string     `json:"token,omitempty"`
	Terms     PriceTerms `json:"terms"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// AccessState is the per-request state of the access mediator.
type AccessState string

// Access state constants (typed).
const (
	AccessPreviewOnly     AccessState = "preview_only"
	AccessPaymentRequired AccessState = "payment_required"
	AccessGranted         AccessState = "granted"
)

// AccessResult is the mediator's answer for one content request. Exactly one
// of Challenge (payment required) or Content+Receipt (granted) is populated.
type AccessResult struct {
	State     AccessState       `json:"state"`
	Item      *Item             `json:"item,omitempty"`
	Content   string            `json:"content,omitempty"`
	Receipt   *PaymentDecision  `json:"receipt,omitempty"`
	Challenge *PaymentChallenge `json:"challenge,omitempty"`
}

// PreviewResult is the free, unencrypted excerpt of an item. It never
// requires a requester identity and never touches the stored content bytes.
type PreviewResult struct {
	State          AccessState `json:"state"`
	ItemID         string      `json:"item_id"`
	Title          string      `json:"title"`
	Description    string      `json:"description,omitempty"`
	ContentPreview string      `json:"content_preview"`
	Price          PriceTerms  `json:"price"`
	Owner          string      `json:"owner"`
	CreatedAt      time.Time   `json:"created_at"`
}
