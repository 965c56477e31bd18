// Package payment provides the client side of the external
// payment-verification gateway and the signing of payment challenges. The
// gateway owns all wallet-signature and settlement logic; nothing here
// parses a payment proof beyond forwarding it.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/paywalled/paid-content/pkg/paidcontent"
)

// DefaultTimeout bounds one verification round trip.
const DefaultTimeout = 10 * time.Second

// Gateway implements paidcontent.PaymentVerifier against an HTTP
// verification endpoint.
type Gateway struct {
	endpoint string
	client   *http.Client
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) GatewayOption {
	return func(g *Gateway) {
		g.client = c
	}
}

// NewGateway creates a verifier that POSTs verification requests to the
// given endpoint.
func NewGateway(endpoint string, opts ...GatewayOption) (*Gateway, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("gateway endpoint is required")
	}
	g := &Gateway{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

type verifyPayload struct {
	ItemID    string                 `json:"item_id"`
	Requester string                 `json:"requester"`
	Proof     string                 `json:"proof"`
	Terms     paidcontent.PriceTerms `json:"terms"`
}

type verifyResponse struct {
	Status  string `json:"status"`
	GrantID string `json:"grant_id"`
	Amount  string `json:"amount"`
	Payer   string `json:"payer"`
}

// VerifyPayment asks the gateway to judge one specific request. A request
// with no proof attached short-circuits to unpaid without a network call;
// there is nothing for the gateway to settle.
func (g *Gateway) VerifyPayment(ctx context.Context, req paidcontent.VerifyPaymentRequest) (*paidcontent.PaymentDecision, error) {
	if req.Proof == "" {
		return &paidcontent.PaymentDecision{Status: paidcontent.PaymentUnpaid}, nil
	}

	body, err := json.Marshal(verifyPayload{
		ItemID:    req.ItemID,
		Requester: req.Requester,
		Proof:     req.Proof,
		Terms:     req.Terms,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding verification request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building verification request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling payment gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("payment gateway returned %d: %s", resp.StatusCode, msg)
	}

	var vr verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("decoding gateway response: %w", err)
	}

	if vr.Status != string(paidcontent.PaymentVerified) {
		return &paidcontent.PaymentDecision{Status: paidcontent.PaymentUnpaid}, nil
	}
	return &paidcontent.PaymentDecision{
		Status:  paidcontent.PaymentVerified,
		GrantID: vr.GrantID,
		Amount:  vr.Amount,
		Payer:   vr.Payer,
	}, nil
}
