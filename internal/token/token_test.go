package token

import (
	"errors"
	"testing"
	"time"

	"github.com/hospms/apiserver/types"
)

var testUser = types.User{
	ID:       "user-123",
	Email:    "a@x.com",
	FullName: "Alice",
	Role:     types.RoleDoctor,
}

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()

	issuer := NewIssuer([]byte("super-secret"), time.Hour)

	tok, err := issuer.Issue(testUser)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	claims, err := issuer.Verify(tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims.Subject != testUser.ID {
		t.Fatalf("subject mismatch: got %q want %q", claims.Subject, testUser.ID)
	}
	if claims.Role != types.RoleDoctor {
		t.Fatalf("role mismatch: got %q", claims.Role)
	}
	if claims.Email != testUser.Email || claims.FullName != testUser.FullName {
		t.Fatalf("display fields mismatch: %+v", claims)
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	issuer := NewIssuer([]byte("secret"), time.Hour)

	// NewIssuer rejects non-positive TTLs, so force one to sign an
	// already-expired token.
	expired := NewIssuer([]byte("secret"), time.Hour)
	expired.ttl = -time.Minute
	tok, err := expired.Issue(testUser)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = issuer.Verify(tok)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	issuer := NewIssuer([]byte("right-secret"), time.Hour)
	other := NewIssuer([]byte("wrong-secret"), time.Hour)

	tok, err := issuer.Issue(testUser)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = other.Verify(tok)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestVerify_MalformedString(t *testing.T) {
	t.Parallel()

	issuer := NewIssuer([]byte("k"), time.Hour)
	_, err := issuer.Verify("not.a.jwt")
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestNewIssuer_DefaultTTL(t *testing.T) {
	t.Parallel()

	issuer := NewIssuer([]byte("k"), 0)
	if issuer.ttl != DefaultTTL {
		t.Fatalf("expected default TTL, got %v", issuer.ttl)
	}
}
