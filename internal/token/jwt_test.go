package token

import (
	"errors"
	"testing"
	"time"

	"github.com/identitylab/user-access-api/internal/core/domain"
)

func TestJWT_RoundTrip(t *testing.T) {
	mgr := NewJWT("secret", time.Hour)
	user := &domain.User{ID: 42, Username: "alice", Role: domain.RoleAdmin}

	signed, err := mgr.Issue(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if signed == "" {
		t.Fatalf("expected non-empty token")
	}

	id, err := mgr.Verify(signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected user id 42, got %d", id)
	}
}

func TestJWT_Expired(t *testing.T) {
	// A manager constructed with a negative ttl would fall back to the
	// default, so build the expired token through the internal state.
	mgr := &JWT{secret: []byte("secret"), ttl: -time.Hour}
	signed, err := mgr.Issue(&domain.User{ID: 7})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := mgr.Verify(signed); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestJWT_WrongSecret(t *testing.T) {
	signed, err := NewJWT("secret-a", time.Hour).Issue(&domain.User{ID: 1})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := NewJWT("secret-b", time.Hour).Verify(signed); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestJWT_Malformed(t *testing.T) {
	mgr := NewJWT("secret", time.Hour)
	if _, err := mgr.Verify("not-a-token"); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestJWT_Missing(t *testing.T) {
	mgr := NewJWT("secret", time.Hour)
	if _, err := mgr.Verify(""); !errors.Is(err, domain.ErrTokenMissing) {
		t.Fatalf("expected ErrTokenMissing, got %v", err)
	}
}

func TestJWT_DefaultTTL(t *testing.T) {
	mgr := NewJWT("secret", 0)
	if mgr.ttl != defaultTTL {
		t.Fatalf("expected default ttl %v, got %v", defaultTTL, mgr.ttl)
	}
}
