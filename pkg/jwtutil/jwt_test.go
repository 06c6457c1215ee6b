package jwtutil

import (
	"strings"
	"testing"

	"csrd-service/pkg/config"
)

func initTestConfig(t *testing.T, ttlDays, rememberDays int) {
	t.Helper()
	err := Initialize(&config.SessionConfig{
		SigningKey:      "test-signing-key",
		TTLDays:         ttlDays,
		RememberTTLDays: rememberDays,
	})
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
}

func TestInitializeRefusesEmptyKey(t *testing.T) {
	if err := Initialize(&config.SessionConfig{SigningKey: ""}); err == nil {
		t.Error("Initialize() accepted an empty signing key")
	}
	if err := Initialize(nil); err == nil {
		t.Error("Initialize() accepted nil config")
	}
}

func TestGenerateVerifyRoundTrip(t *testing.T) {
	initTestConfig(t, 7, 30)

	token, err := Generate("user-1", "admin@test.com", "admin", "company-1", false)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if token == "" {
		t.Fatal("Generate() returned empty token")
	}

	claims, err := Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("UserID = %v, want user-1", claims.UserID)
	}
	if claims.Email != "admin@test.com" {
		t.Errorf("Email = %v, want admin@test.com", claims.Email)
	}
	if claims.Role != "admin" {
		t.Errorf("Role = %v, want admin", claims.Role)
	}
	if claims.CompanyID != "company-1" {
		t.Errorf("CompanyID = %v, want company-1", claims.CompanyID)
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		t.Fatal("IssuedAt or ExpiresAt is nil")
	}
}

func TestRememberMeExtendsExpiry(t *testing.T) {
	initTestConfig(t, 7, 30)

	short, err := Generate("user-1", "a@b.com", "user", "company-1", false)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	long, err := Generate("user-1", "a@b.com", "user", "company-1", true)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	shortClaims, _ := Verify(short)
	longClaims, _ := Verify(long)
	if !longClaims.ExpiresAt.After(shortClaims.ExpiresAt.Time) {
		t.Error("remember-me token does not outlive the standard token")
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	initTestConfig(t, -1, 30)
	token, err := Generate("user-1", "a@b.com", "user", "company-1", false)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	initTestConfig(t, 7, 30)
	if _, err := Verify(token); err == nil {
		t.Error("Verify() accepted an expired token")
	}
}

func TestVerifyTamperedToken(t *testing.T) {
	initTestConfig(t, 7, 30)
	token, err := Generate("user-1", "a@b.com", "user", "company-1", false)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	// Flip the signature segment.
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %d parts", len(parts))
	}
	tampered := parts[0] + "." + parts[1] + "." + "AAAA" + parts[2][4:]
	if _, err := Verify(tampered); err == nil {
		t.Error("Verify() accepted a tampered token")
	}
}

func TestVerifyWrongKey(t *testing.T) {
	initTestConfig(t, 7, 30)
	token, err := Generate("user-1", "a@b.com", "user", "company-1", false)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if err := Initialize(&config.SessionConfig{SigningKey: "a-different-key", TTLDays: 7, RememberTTLDays: 30}); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if _, err := Verify(token); err == nil {
		t.Error("Verify() accepted a token signed with another key")
	}
}

func TestVerifyMalformed(t *testing.T) {
	initTestConfig(t, 7, 30)
	for _, token := range []string{"", "not-a-jwt", "a.b", "a.b.c.d"} {
		if _, err := Verify(token); err == nil {
			t.Errorf("Verify(%q) accepted a malformed token", token)
		}
	}
}
