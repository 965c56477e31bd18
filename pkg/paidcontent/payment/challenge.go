package payment

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/paywalled/paid-content/pkg/paidcontent"
)

// ChallengeClaims is the signed encoding of a payment challenge. The gateway
// uses it to bind a settlement to one specific nonce and expiry.
type ChallengeClaims struct {
	ItemID        string `json:"item_id"`
	Nonce         string `json:"nonce"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	PayoutAddress string `json:"payout_address"`
	jwt.RegisteredClaims
}

// ChallengeSigner signs payment challenges with HS256. It implements
// paidcontent.ChallengeSigner.
type ChallengeSigner struct {
	secret []byte
}

// NewChallengeSigner creates a signer over the shared gateway secret.
func NewChallengeSigner(secret []byte) (*ChallengeSigner, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("challenge secret is required")
	}
	return &ChallengeSigner{secret: secret}, nil
}

// Sign encodes the challenge as a signed token.
func (s *ChallengeSigner) Sign(ch paidcontent.PaymentChallenge) (string, error) {
	claims := ChallengeClaims{
		ItemID:        ch.ItemID,
		Nonce:         ch.Nonce,
		Amount:        ch.Terms.Amount,
		Currency:      ch.Terms.Currency,
		PayoutAddress: ch.Terms.PayoutAddress,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(ch.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseChallenge decodes and validates a signed challenge token. It exists
// for gateway-side tooling and tests; the content service itself never
// re-reads tokens it issued.
func ParseChallenge(tokenString string, secret []byte) (*ChallengeClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ChallengeClaims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*ChallengeClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid challenge token claims")
	}
	return claims, nil
}
