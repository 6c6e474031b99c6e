// Package token issues and verifies the signed bearer tokens used for
// API sessions.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hospms/apiserver/types"
)

// DefaultTTL is used when no expiry is configured.
const DefaultTTL = 7 * 24 * time.Hour

// Verification failure reasons. Callers branch on these to pick the
// right response code (re-login vs reject).
var (
	ErrExpired   = errors.New("token expired")
	ErrMalformed = errors.New("token malformed")
)

// Claims are the assertions embedded in a session token.
type Claims struct {
	jwt.RegisteredClaims

	Role     types.Role `json:"role"`
	FullName string     `json:"fullName"`
	Email    string     `json:"email"`
}

// Issuer signs and verifies session tokens with a fixed shared secret.
// It is pure: no side effects beyond reading the clock.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer constructs an Issuer. A non-positive ttl falls back to
// DefaultTTL.
func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: secret, ttl: ttl}
}

// Issue encodes the user's identity and role into a signed HS256 token
// expiring after the configured TTL.
func (i *Issuer) Issue(user types.User) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Role:     user.Role,
		FullName: user.FullName,
		Email:    user.Email,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(i.secret)
}

// Verify checks signature and expiry and returns the embedded claims.
// It fails with ErrExpired when the expiry has passed and ErrMalformed
// for any structural or signature problem.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrMalformed
	}
	if !tok.Valid || claims.Subject == "" {
		return nil, ErrMalformed
	}
	return claims, nil
}
