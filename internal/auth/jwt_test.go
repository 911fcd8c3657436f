package auth

import (
	"errors"
	"testing"
	"time"
)

func testIdentity() Identity {
	return Identity{UserID: "user-123", Email: "a@x.com", FirstName: "Asha"}
}

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()

	m := NewManager("super-secret", time.Hour)

	tok, err := m.Issue(testIdentity())
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	claims, err := m.Verify(tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}

	if claims.Identity() != testIdentity() {
		t.Fatalf("identity mismatch: got %+v", claims.Identity())
	}

	ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if ttl != time.Hour {
		t.Fatalf("expected 1h expiry window, got %s", ttl)
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	m := NewManager("secret", time.Hour)
	issuedAt := time.Now().Add(-2 * time.Hour)
	m.now = func() time.Time { return issuedAt }

	tok, err := m.Issue(testIdentity())
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	m.now = time.Now

	_, err = m.Verify(tok)
	if !errors.Is(err, ErrCredentialExpired) {
		t.Fatalf("expected ErrCredentialExpired, got %v", err)
	}
	if !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expired credential should also be invalid, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewManager("right-secret", time.Hour).Issue(testIdentity())
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = NewManager("wrong-secret", time.Hour).Verify(tok)
	if !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	_, err := NewManager("k", time.Hour).Verify("not.a.jwt")
	if !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestIssue_MissingSecret(t *testing.T) {
	t.Parallel()

	_, err := NewManager("", time.Hour).Issue(testIdentity())
	if !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}
