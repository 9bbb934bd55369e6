package auth

import (
	"testing"
	"time"
)

const testWallet = "4Nd1mYvM6K8pXHKbkvNgUPxNLHQyRrPmsLYxJN2Q6tPa"

func TestSessions_IssueAndValidate(t *testing.T) {
	sessions := NewSessions("test-secret", time.Hour)

	token, err := sessions.Issue(testWallet)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}
	if token == "" {
		t.Fatal("issued token is empty")
	}

	wallet, err := sessions.Validate(token)
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if wallet != testWallet {
		t.Errorf("Validate() = %q, want %q", wallet, testWallet)
	}
}

func TestSessions_RejectsExpiredToken(t *testing.T) {
	sessions := NewSessions("test-secret", time.Hour)
	issuedAt := time.Now().Add(-2 * time.Hour)
	sessions.now = func() time.Time { return issuedAt }

	token, err := sessions.Issue(testWallet)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	sessions.now = time.Now
	if _, err := sessions.Validate(token); err == nil {
		t.Error("expired token should not validate")
	}
}

func TestSessions_RejectsWrongSecret(t *testing.T) {
	issuer := NewSessions("secret-a", time.Hour)
	verifier := NewSessions("secret-b", time.Hour)

	token, err := issuer.Issue(testWallet)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	if _, err := verifier.Validate(token); err == nil {
		t.Error("token signed with a different secret should not validate")
	}
}

func TestSessions_RejectsGarbage(t *testing.T) {
	sessions := NewSessions("test-secret", time.Hour)

	if _, err := sessions.Validate("not.a.token"); err == nil {
		t.Error("garbage token should not validate")
	}
	if _, err := sessions.Validate(""); err == nil {
		t.Error("empty token should not validate")
	}
}
