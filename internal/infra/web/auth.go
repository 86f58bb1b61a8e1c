package web

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ===== Invoice pay-token primitives =====

// PayTokenManager mints and verifies the signed tokens embedded in guest
// invoice payment links. A token scopes the success/callback endpoints to one
// invoice of one tenant; nothing about the payer is ambient.
type PayTokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewPayTokenManager(secret string, ttl time.Duration) *PayTokenManager {
	return &PayTokenManager{secret: []byte(secret), ttl: ttl}
}

type PayClaims struct {
	TenantID  string `json:"tid"`
	InvoiceID string `json:"inv"`
	jwt.RegisteredClaims
}

func (m *PayTokenManager) Mint(tenantID, invoiceID string) (string, error) {
	now := time.Now()
	claims := PayClaims{
		TenantID:  tenantID,
		InvoiceID: invoiceID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			Subject:   "invoice-pay",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *PayTokenManager) Parse(tok string) (*PayClaims, error) {
	claims := &PayClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil || !tkn.Valid {
		return nil, errors.New("invalid pay token")
	}
	if claims.TenantID == "" || claims.InvoiceID == "" {
		return nil, errors.New("invalid pay token")
	}
	return claims, nil
}
