// Package api exposes the paid-content service over HTTP. Transport
// concerns only: request decoding, header plumbing for requester identity
// and payment proof, and mapping of the core error taxonomy onto status
// codes (including the 402 payment-required outcome).
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/paywalled/paid-content/pkg/paidcontent"
)

// Request headers carrying the access identity and the payment assertion.
const (
	HeaderRequester = "X-Requester"
	HeaderPayment   = "X-Payment"
)

// Handler handles HTTP requests for the paid-content service.
type Handler struct {
	service paidcontent.Service
	logger  *slog.Logger
}

// NewHandler creates a new handler.
func NewHandler(service paidcontent.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes returns the routes for items.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Publish)
	r.Get("/", h.List)
	r.Get("/search", h.Search)
	r.Get("/{id}/preview", h.Preview)
	r.Get("/{id}/content", h.Content)
	r.Get("/{id}", h.GetItem)
	r.Delete("/{id}", h.DeleteItem)

	return r
}

// PublishRequest is the request body for publishing an item.
type PublishRequest struct {
	Title       string                  `json:"title"`
	Description string                  `json:"description,omitempty"`
	Content     string                  `json:"content"`
	Owner       string                  `json:"owner"`
	Tags        []string                `json:"tags,omitempty"`
	Price       *paidcontent.PriceTerms `json:"price,omitempty"`
}

// PublishResponse is the response body for a published item.
type PublishResponse struct {
	ItemID string                 `json:"item_id"`
	Price  paidcontent.PriceTerms `json:"price_terms"`
	Status string                 `json:"status"`
}

// ItemResponse is the non-secret metadata view of an item.
type ItemResponse struct {
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	Owner       string                 `json:"owner"`
	Tags        []string               `json:"tags,omitempty"`
	Price       paidcontent.PriceTerms `json:"price_terms"`
	Status      string                 `json:"status"`
	Encrypted   bool                   `json:"encrypted"`
	CreatedAt   time.Time              `json:"created_at"`
}

// ContentResponse is the response body for a granted content access.
type ContentResponse struct {
	ID        string                       `json:"id"`
	Title     string                       `json:"title"`
	Content   string                       `json:"content"`
	Owner     string                       `json:"owner"`
	CreatedAt time.Time                    `json:"created_at"`
	Receipt   *paidcontent.PaymentDecision `json:"receipt,omitempty"`
}

// PaymentRequiredResponse is the 402 response body.
type PaymentRequiredResponse struct {
	Price     paidcontent.PriceTerms        `json:"price_terms"`
	Challenge *paidcontent.PaymentChallenge `json:"challenge"`
}

// DeleteResponse is the response body for item deletion.
type DeleteResponse struct {
	Success bool `json:"success"`
}

// Publish registers new content.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pub := paidcontent.PublishRequest{
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		Owner:       req.Owner,
		Tags:        req.Tags,
	}
	if req.Price != nil {
		pub.Price = *req.Price
	}

	item, err := h.service.Publish(r.Context(), pub)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, PublishResponse{
		ItemID: item.ID,
		Price:  item.Price,
		Status: item.OverallStatus(),
	})
}

// Preview returns the free excerpt and price terms. No identity required.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	preview, err := h.service.Preview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, preview)
}

// Content mediates one paid content access.
func (h *Handler) Content(w http.ResponseWriter, r *http.Request) {
	req := paidcontent.ContentRequest{
		ItemID:    chi.URLParam(r, "id"),
		Requester: r.Header.Get(HeaderRequester),
		Proof:     r.Header.Get(HeaderPayment),
	}
	if req.Requester == "" {
		req.Requester = r.URL.Query().Get("requester")
	}

	result, err := h.service.Content(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if result.State == paidcontent.AccessPaymentRequired {
		render.Status(r, http.StatusPaymentRequired)
		render.JSON(w, r, PaymentRequiredResponse{
			Price:     result.Challenge.Terms,
			Challenge: result.Challenge,
		})
		return
	}

	render.JSON(w, r, ContentResponse{
		ID:        result.Item.ID,
		Title:     result.Item.Title,
		Content:   result.Content,
		Owner:     result.Item.Owner,
		CreatedAt: result.Item.CreatedAt,
		Receipt:   result.Receipt,
	})
}

// GetItem returns non-secret item metadata.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, toItemResponse(item))
}

// List returns all items, or the owner's items when ?owner= is set.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var (
		items []*paidcontent.Item
		err   error
	)
	if owner := r.URL.Query().Get("owner"); owner != "" {
		items, err = h.service.ListByOwner(r.Context(), owner)
	} else {
		items, err = h.service.List(r.Context())
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, toItemResponses(items))
}

// Search matches title and tags case-insensitively.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, toItemResponses(items))
}

// DeleteItem removes the ledger entry. Owner-only enforcement sits in the
// authorization layer in front of this handler.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.service.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, DeleteResponse{Success: deleted})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *paidcontent.ValidationError
		configErr     *paidcontent.ConfigError
		cryptoErr     *paidcontent.CryptoError
		storageErr    *paidcontent.StorageError
	)

	switch {
	case errors.As(err, &validationErr), errors.Is(err, paidcontent.ErrMissingRequester):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, paidcontent.ErrItemNotFound), errors.Is(err, paidcontent.ErrBlobNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.As(err, &storageErr):
		h.logger.Error("storage backend failure", "error", err)
		http.Error(w, "storage backend failure", http.StatusBadGateway)
	case errors.As(err, &configErr):
		h.logger.Error("configuration failure", "error", err)
		http.Error(w, "service misconfigured", http.StatusInternalServerError)
	case errors.As(err, &cryptoErr):
		// CryptoError carries lengths only; safe to log, never the key.
		h.logger.Error("crypto failure", "error", err)
		http.Error(w, "content could not be decoded", http.StatusInternalServerError)
	default:
		h.logger.Error("internal error", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toItemResponse(item *paidcontent.Item) ItemResponse {
	return ItemResponse{
		ID:          item.ID,
		Title:       item.Title,
		Description: item.Description,
		Owner:       item.Owner,
		Tags:        item.Tags,
		Price:       item.Price,
		Status:      item.OverallStatus(),
		Encrypted:   item.Blob.Encrypted(),
		CreatedAt:   item.CreatedAt,
	}
}

func toItemResponses(items []*paidcontent.Item) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toItemResponse(item))
	}
	return out
}
