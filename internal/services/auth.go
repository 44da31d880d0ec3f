package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vidmeta/backend/internal/config"
)

const tokenTTL = time.Hour

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// AuthService issues and verifies the API's HS256 bearer tokens against the
// single demo credential pair from the environment.
type AuthService struct {
	username string
	password string
	secret   []byte
	issuer   string
}

func NewAuthService(settings config.Settings) *AuthService {
	return &AuthService{
		username: settings.AuthUsername,
		password: settings.AuthPassword,
		secret:   []byte(settings.JWTSecret),
		issuer:   settings.JWTIssuer,
	}
}

func (a *AuthService) CheckCredentials(username, password string) bool {
	return username == a.username && password == a.password
}

func (a *AuthService) IssueToken(subject string) (TokenResponse, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"iss": a.issuer,
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(tokenTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("sign token: %w", err)
	}
	return TokenResponse{AccessToken: token, TokenType: "bearer", ExpiresIn: int(tokenTTL.Seconds())}, nil
}

// VerifyToken returns the subject for a valid token.
func (a *AuthService) VerifyToken(raw string) (string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}
	if iss, _ := claims["iss"].(string); iss != a.issuer {
		return "", fmt.Errorf("invalid token issuer")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		sub = "unknown"
	}
	return sub, nil
}
