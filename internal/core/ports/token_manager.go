package ports

import "github.com/identitylab/user-access-api/internal/core/domain"

// TokenManager issues and verifies signed, time-bounded bearer tokens.
type TokenManager interface {
	// Issue creates a signed token carrying the user's identity.
	Issue(user *domain.User) (string, error)

	// Verify checks signature and expiry, returning the embedded user id.
	// Failures are domain.ErrTokenMissing, domain.ErrTokenExpired or
	// domain.ErrTokenInvalid.
	Verify(raw string) (int, error)
}
