package payment

import (
	"context"

	"github.com/google/uuid"

	"github.com/paywalled/paid-content/pkg/paidcontent"
)

// LocalVerifier is a development and test stand-in for the gateway. It
// grants any request whose proof is non-empty and reports the item's own
// price as the settled amount. Never deploy it in front of real content.
type LocalVerifier struct{}

// NewLocalVerifier creates the stand-in verifier.
func NewLocalVerifier() *LocalVerifier {
	return &LocalVerifier{}
}

func (v *LocalVerifier) VerifyPayment(ctx context.Context, req paidcontent.VerifyPaymentRequest) (*paidcontent.PaymentDecision, error) {
	if req.Proof == "" {
		return &paidcontent.PaymentDecision{Status: paidcontent.PaymentUnpaid}, nil
	}
	return &paidcontent.PaymentDecision{
		Status:  paidcontent.PaymentVerified,
		GrantID: uuid.NewString(),
		Amount:  req.Terms.Amount,
		Payer:   req.Requester,
	}, nil
}
