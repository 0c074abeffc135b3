package utils // package utils provides helper functions for token creation

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminToken represents a signed HS256 JWT for operator access along
// with its expiry.  Admin tokens guard the catalog and sales-ledger
// endpoints; there is no end-user login, regular booking traffic is
// identified only by its requester_id.
type AdminToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewAdminToken builds and signs a token carrying the standard claims
// sub, role, exp and iat.  subject names the operator, ttl bounds the
// token's lifetime.
func NewAdminToken(secret, subject string, ttl time.Duration) (AdminToken, error) {
	exp := time.Now().UTC().Add(ttl)
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": "ADMIN",
		"exp":  exp.Unix(),
		"iat":  time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AdminToken{}, err
	}
	return AdminToken{Token: signed, Exp: exp}, nil
}
