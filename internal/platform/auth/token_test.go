package auth

import (
	"testing"
	"time"
)

func TestTokenIssueAndParse(t *testing.T) {
	iss := NewTokenIssuer("test-secret", 30)

	token, err := iss.Issue("alice@example.com", "patient")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := iss.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "alice@example.com" {
		t.Errorf("subject = %q, want alice@example.com", claims.Subject)
	}
	if claims.Role != "patient" {
		t.Errorf("role = %q, want patient", claims.Role)
	}
}

func TestTokenParse_WrongSecret(t *testing.T) {
	iss := NewTokenIssuer("secret-a", 30)
	other := NewTokenIssuer("secret-b", 30)

	token, err := iss.Issue("alice@example.com", "patient")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := other.Parse(token); err == nil {
		t.Error("token signed with different secret accepted")
	}
}

func TestTokenParse_Expired(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	iss := NewTokenIssuerAt("test-secret", 30, func() time.Time { return clock })

	token, err := iss.Issue("alice@example.com", "buyer")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	clock = base.Add(31 * time.Minute)
	if _, err := iss.Parse(token); err == nil {
		t.Error("expired token accepted")
	}

	clock = base.Add(29 * time.Minute)
	if _, err := iss.Parse(token); err != nil {
		t.Errorf("unexpired token rejected: %v", err)
	}
}

func TestTokenParse_Garbage(t *testing.T) {
	iss := NewTokenIssuer("test-secret", 30)
	if _, err := iss.Parse("not.a.token"); err == nil {
		t.Error("garbage token accepted")
	}
}
