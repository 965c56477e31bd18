package paidcontent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Defaults for service tuning knobs.
const (
	DefaultPreviewBound = 280
	DefaultChallengeTTL = 5 * time.Minute
)

// service implements the Service interface.
type service struct {
	ledger         Ledger
	blobs          map[string]BlobStore
	defaultBackend string
	cipher         ContentCipher
	verifier       PaymentVerifier
	signer         ChallengeSigner
	secret         []byte
	priceDefaults  PriceTerms
	previewBound   int
	challengeTTL   time.Duration
	logger         *slog.Logger
}

// Option represents a functional option for configuring the service.
type Option func(*service)

// WithLedger sets the metadata ledger for the service.
func WithLedger(l Ledger) Option {
	return func(s *service) {
		s.ledger = l
	}
}

// WithBlobStore adds a storage backend under the given name. The first
// backend added becomes the default unless WithDefaultBackend overrides it.
func WithBlobStore(name string, store BlobStore) Option {
	return func(s *service) {
		if s.blobs == nil {
			s.blobs = make(map[string]BlobStore)
		}
		s.blobs[name] = store
		if s.defaultBackend == "" {
			s.defaultBackend = name
		}
	}
}

// WithDefaultBackend selects which registered backend new blobs go to.
func WithDefaultBackend(name string) Option {
	return func(s *service) {
		s.defaultBackend = name
	}
}

// WithCipher sets the content cipher.
func WithCipher(c ContentCipher) Option {
	return func(s *service) {
		s.cipher = c
	}
}

// WithPaymentVerifier sets the external payment-verification gateway.
func WithPaymentVerifier(v PaymentVerifier) Option {
	return func(s *service) {
		s.verifier = v
	}
}

// WithChallengeSigner sets the optional challenge token signer.
func WithChallengeSigner(cs ChallengeSigner) Option {
	return func(s *service) {
		s.signer = cs
	}
}

// WithSecret sets the process-wide 32-byte content secret. A nil secret is
// allowed at construction time; encrypt and decrypt calls will then fail
// with a ConfigError.
func WithSecret(secret []byte) Option {
	return func(s *service) {
		s.secret = secret
	}
}

// WithPriceDefaults sets the price terms applied when a publish request
// leaves them empty.
func WithPriceDefaults(terms PriceTerms) Option {
	return func(s *service) {
		s.priceDefaults = terms
	}
}

// WithPreviewBound sets the maximum preview text length in runes.
func WithPreviewBound(n int) Option {
	return func(s *service) {
		s.previewBound = n
	}
}

// WithChallengeTTL sets the validity window of issued payment challenges.
func WithChallengeTTL(d time.Duration) Option {
	return func(s *service) {
		s.challengeTTL = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new service instance with the given options. A ledger, at
// least one blob store, a cipher and a payment verifier are required.
func New(options ...Option) (Service, error) {
	s := &service{
		blobs:        make(map[string]BlobStore),
		previewBound: DefaultPreviewBound,
		challengeTTL: DefaultChallengeTTL,
	}

	for _, option := range options {
		option(s)
	}

	if s.ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if len(s.blobs) == 0 {
		return nil, fmt.Errorf("at least one blob store is required")
	}
	if s.cipher == nil {
		return nil, fmt.Errorf("content cipher is required")
	}
	if s.verifier == nil {
		return nil, fmt.Errorf("payment verifier is required")
	}
	if _, ok := s.blobs[s.defaultBackend]; !ok {
		return nil, fmt.Errorf("default backend %q is not registered", s.defaultBackend)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if len(s.secret) == 0 {
		s.logger.Warn("content secret is not set; publish and decrypt will fail until configured")
	}

	return s, nil
}

// Publish is the ingestion pipeline: validate, encrypt, store, register.
func (s *service) Publish(ctx context.Context, req PublishRequest) (*Item, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if req.Content == "" {
		return nil, &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if strings.TrimSpace(req.Owner) == "" {
		return nil, &ValidationError{Field: "owner", Reason: "must not be empty"}
	}
	if len(s.secret) == 0 {
		return nil, &ConfigError{Key: "content secret"}
	}

	ciphertext, iv, err := s.cipher.Encrypt([]byte(req.Content), s.secret)
	if err != nil {
		return nil, err
	}

	store := s.blobs[s.defaultBackend]
	ref, err := store.WriteBlob(ctx, ciphertext)
	if err != nil {
		// No local-only fallback: a failed storage write fails the whole
		// ingestion.
		return nil, err
	}

	item := &Item{
		ID:          ref,
		Title:       req.Title,
		Description: req.Description,
		Owner:       req.Owner,
		Tags:        req.Tags,
		PreviewText: buildPreview(req.Title, req.Description, req.Content, s.previewBound),
		Price:       s.resolvePrice(req),
		Blob: BlobPointer{
			ContentRef: ref,
			Backend:    s.defaultBackend,
			Epochs:     1,
			Status:     BlobStatusSuccess,
			Encryption: &BlobEncryption{Scheme: SchemeAES256CBC, IV: iv},
		},
		AccessLog: make(map[string]AccessRecord),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.ledger.Create(ctx, item); err != nil {
		// The remote blob is now orphaned; clean up best-effort but report
		// the ingestion as failed either way.
		if derr := store.DeleteBlob(ctx, ref); derr != nil {
			s.logger.Warn("orphaned blob cleanup failed", "ref", ref, "error", derr)
		}
		return nil, &ItemError{ItemID: ref, Op: "publish", Err: err}
	}

	s.logger.Info("item published", "item", item.ID, "owner", item.Owner, "backend", s.defaultBackend)
	return item, nil
}

// Preview always answers without payment and without touching content bytes.
func (s *service) Preview(ctx context.Context, id string) (*PreviewResult, error) {
	item, err := s.ledger.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &PreviewResult{
		State:          AccessPreviewOnly,
		ItemID:         item.ID,
		Title:          item.Title,
		Description:    item.Description,
		ContentPreview: item.PreviewText,
		Price:          item.Price,
		Owner:          item.Owner,
		CreatedAt:      item.CreatedAt,
	}, nil
}

// Content is the access mediator. Payment is re-verified on every call; the
// audit log never short-circuits the verification step.
func (s *service) Content(ctx context.Context, req ContentRequest) (*AccessResult, error) {
	if strings.TrimSpace(req.Requester) == "" {
		return nil, ErrMissingRequester
	}

	item, err := s.ledger.Get(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}

	decision, err := s.verifier.VerifyPayment(ctx, VerifyPaymentRequest{
		ItemID:    item.ID,
		Requester: req.Requester,
		Proof:     req.Proof,
		Terms:     item.Price,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			// A timed-out verification is no grant, never implicit success.
			s.logger.Warn("payment verification timed out", "item", item.ID, "requester", req.Requester)
			return s.paymentRequired(item)
		}
		return nil, fmt.Errorf("payment verification: %w", err)
	}
	if decision == nil || decision.Status != PaymentVerified {
		return s.paymentRequired(item)
	}

	store, ok := s.blobs[s.backendFor(item)]
	if !ok {
		return nil, ErrBackendNotFound
	}
	data, err := store.ReadBlob(ctx, item.Blob.ContentRef)
	if err != nil {
		return nil, err
	}

	var plaintext string
	if enc := item.Blob.Encryption; enc != nil {
		if len(s.secret) == 0 {
			return nil, &ConfigError{Key: "content secret"}
		}
		decrypted, err := s.cipher.Decrypt(data, enc.IV, s.secret)
		if err != nil {
			return nil, err
		}
		plaintext = string(decrypted)
	} else {
		// Legacy record stored before encryption was introduced: the blob
		// bytes are the plaintext.
		plaintext = string(data)
	}

	rec := AccessRecord{GrantID: decision.GrantID, Amount: decision.Amount, At: time.Now().UTC()}
	if ok, err := s.ledger.RecordAccess(ctx, item.ID, req.Requester, rec); err != nil || !ok {
		// The grant stands; the audit trail is informational.
		s.logger.Warn("access audit record failed", "item", item.ID, "requester", req.Requester, "error", err)
	}

	s.logger.Info("content access granted", "item", item.ID, "requester", req.Requester, "grant", decision.GrantID)
	return &AccessResult{
		State:   AccessGranted,
		Item:    item,
		Content: plaintext,
		Receipt: decision,
	}, nil
}

func (s *service) Get(ctx context.Context, id string) (*Item, error) {
	return s.ledger.Get(ctx, id)
}

func (s *service) List(ctx context.Context) ([]*Item, error) {
	return s.ledger.List(ctx)
}

func (s *service) ListByOwner(ctx context.Context, owner string) ([]*Item, error) {
	return s.ledger.ListByOwner(ctx, owner)
}

func (s *service) Search(ctx context.Context, query string) ([]*Item, error) {
	return s.ledger.Search(ctx, query)
}

// Delete removes the ledger entry; removal of the remote blob is
// best-effort and may fail independently.
func (s *service) Delete(ctx context.Context, id string) (bool, error) {
	item, err := s.ledger.Get(ctx, id)
	if errors.Is(err, ErrItemNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	deleted, err := s.ledger.Delete(ctx, id)
	if err != nil || !deleted {
		return false, err
	}

	if store, ok := s.blobs[s.backendFor(item)]; ok && item.Blob.ContentRef != "" {
		if derr := store.DeleteBlob(ctx, item.Blob.ContentRef); derr != nil {
			s.logger.Warn("remote blob delete failed", "ref", item.Blob.ContentRef, "error", derr)
		}
	}
	return true, nil
}

func (s *service) paymentRequired(item *Item) (*AccessResult, error) {
	ch := PaymentChallenge{
		ItemID:    item.ID,
		Nonce:     uuid.NewString(),
		Terms:     item.Price,
		ExpiresAt: time.Now().UTC().Add(s.challengeTTL),
	}
	if s.signer != nil {
		token, err := s.signer.Sign(ch)
		if err != nil {
			return nil, fmt.Errorf("signing payment challenge: %w", err)
		}
		ch.Token = token
	}
	return &AccessResult{State: AccessPaymentRequired, Challenge: &ch}, nil
}

func (s *service) backendFor(item *Item) string {
	if item.Blob.Backend != "" {
		return item.Blob.Backend
	}
	return s.defaultBackend
}

func (s *service) resolvePrice(req PublishRequest) PriceTerms {
	terms := req.Price
	if terms.Amount == "" {
		terms.Amount = s.priceDefaults.Amount
	}
	if terms.Currency == "" {
		terms.Currency = s.priceDefaults.Currency
	}
	if terms.Asset == "" {
		terms.Asset = s.priceDefaults.Asset
	}
	if terms.Network == "" {
		terms.Network = s.priceDefaults.Network
	}
	if terms.PayoutAddress == "" {
		terms.PayoutAddress = req.Owner
	}
	return terms
}

// buildPreview derives the free excerpt as a bounded prefix of
// title+description+content. The bound is independent of the content length.
func buildPreview(title, description, content string, bound int) string {
	parts := []string{title}
	if description != "" {
		parts = append(parts, description)
	}
	parts = append(parts, content)
	combined := []rune(strings.Join(parts, "\n"))
	if len(combined) <= bound {
		return string(combined)
	}
	return string(combined[:bound])
}
