package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestAuthenticator(t *testing.T, password string) *Authenticator {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return New([]byte("test-signing-key"), []byte(hash))
}

func TestCheckPassword(t *testing.T) {
	a := newTestAuthenticator(t, "family-secret")
	if err := a.CheckPassword("family-secret"); err != nil {
		t.Fatalf("CheckPassword: %v", err)
	}
	if err := a.CheckPassword("wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("err = %v, want ErrInvalidPassword", err)
	}
}

func TestIssueAndValidateToken(t *testing.T) {
	a := newTestAuthenticator(t, "pw")
	now := time.Now()

	token, err := a.IssueToken(now)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	info, err := a.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	wantExpiry := now.Add(SessionTTL)
	if info.ExpiresAt.Sub(wantExpiry) > time.Second || wantExpiry.Sub(info.ExpiresAt) > time.Second {
		t.Fatalf("expiry = %v, want ~%v", info.ExpiresAt, wantExpiry)
	}
}

func TestValidateTokenExpired(t *testing.T) {
	a := newTestAuthenticator(t, "pw")
	token, err := a.IssueToken(time.Now().Add(-SessionTTL - time.Hour))
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := a.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("err = %v, want ErrExpiredToken", err)
	}
}

func TestValidateTokenWrongKey(t *testing.T) {
	a := newTestAuthenticator(t, "pw")
	token, err := a.IssueToken(time.Now())
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	other := New([]byte("different-key"), nil)
	if _, err := other.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	a := newTestAuthenticator(t, "pw")
	if _, err := a.ValidateToken("not.a.jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}
