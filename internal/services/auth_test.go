package services

import (
	"testing"

	"github.com/vidmeta/backend/internal/config"
)

func newTestAuth() *AuthService {
	return NewAuthService(config.Settings{
		AuthUsername: "demo",
		AuthPassword: "secret",
		JWTSecret:    "test-signing-key",
		JWTIssuer:    "vidmeta",
	})
}

func TestCheckCredentials(t *testing.T) {
	auth := newTestAuth()
	if !auth.CheckCredentials("demo", "secret") {
		t.Fatalf("valid credentials rejected")
	}
	if auth.CheckCredentials("demo", "wrong") {
		t.Fatalf("bad password accepted")
	}
	if auth.CheckCredentials("other", "secret") {
		t.Fatalf("unknown user accepted")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	auth := newTestAuth()

	token, err := auth.IssueToken("demo")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if token.TokenType != "bearer" || token.AccessToken == "" {
		t.Fatalf("token = %+v", token)
	}

	subject, err := auth.VerifyToken(token.AccessToken)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if subject != "demo" {
		t.Fatalf("subject = %s, want demo", subject)
	}
}

func TestVerifyTokenRejectsForeignSignature(t *testing.T) {
	auth := newTestAuth()
	other := NewAuthService(config.Settings{
		AuthUsername: "demo",
		AuthPassword: "secret",
		JWTSecret:    "a-different-key",
		JWTIssuer:    "vidmeta",
	})

	token, err := other.IssueToken("demo")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := auth.VerifyToken(token.AccessToken); err == nil {
		t.Fatalf("token signed with a different key must be rejected")
	}
}

func TestVerifyTokenRejectsWrongIssuer(t *testing.T) {
	auth := newTestAuth()
	other := NewAuthService(config.Settings{
		AuthUsername: "demo",
		AuthPassword: "secret",
		JWTSecret:    "test-signing-key",
		JWTIssuer:    "someone-else",
	})

	token, err := other.IssueToken("demo")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := auth.VerifyToken(token.AccessToken); err == nil {
		t.Fatalf("token with a foreign issuer must be rejected")
	}
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	auth := newTestAuth()
	if _, err := auth.VerifyToken("not-a-jwt"); err == nil {
		t.Fatalf("garbage token must be rejected")
	}
}
