// Package token implements the bearer-token service backed by symmetric
// HS256 JWTs. Issue and Verify are pure functions of the input, the secret
// and the clock; the secret is read-only after construction, so a single
// instance is safe for concurrent use.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/identitylab/user-access-api/internal/core/domain"
)

const defaultTTL = 7 * 24 * time.Hour

// Claims carries the user identity inside the signed token.
type Claims struct {
	jwt.RegisteredClaims
	UserID int `json:"user_id"`
}

// JWT signs and verifies tokens with a process-wide symmetric secret.
type JWT struct {
	secret []byte
	ttl    time.Duration
}

// NewJWT creates a token manager. A non-positive ttl falls back to 7 days.
func NewJWT(secret string, ttl time.Duration) *JWT {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &JWT{secret: []byte(secret), ttl: ttl}
}

// Issue encodes the user's id with issued-at and expiry claims and signs the
// result. Tokens are never mutated afterwards, only reissued.
func (j *JWT) Issue(user *domain.User) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
		UserID: user.ID,
	})

	signed, err := t.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature validity and expiry and returns the embedded user
// id. The failure kinds are kept distinct so callers can count them, even
// though the authorization gate only needs the boolean outcome.
func (j *JWT) Verify(raw string) (int, error) {
	if raw == "" {
		return 0, domain.ErrTokenMissing
	}

	claims := &Claims{}
	t, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return j.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, domain.ErrTokenExpired
		}
		return 0, domain.ErrTokenInvalid
	}
	if !t.Valid {
		return 0, domain.ErrTokenInvalid
	}

	return claims.UserID, nil
}
