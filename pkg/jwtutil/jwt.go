package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"csrd-service/pkg/config"

	"github.com/golang-jwt/jwt/v4"
)

var cfg *config.SessionConfig

// SessionClaims are the claims carried by a session token. Only UserID
// is trusted for authorization purposes; role and company are re-read
// from the directory on every request, since they can change between
// issuance and use.
type SessionClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role,omitempty"`
	CompanyID string `json:"company_id,omitempty"`
	jwt.RegisteredClaims
}

// Initialize sets the process-wide session token configuration. It
// refuses an empty signing key: tokens must never be signed with a
// guessable fallback.
func Initialize(c *config.SessionConfig) error {
	if c == nil || c.SigningKey == "" {
		return errors.New("session signing key is not configured")
	}
	cfg = c
	return nil
}

// Generate creates a signed session token for the user. The lifetime is
// fixed at issuance: the standard TTL, or the extended one when the
// caller opted into "remember me".
func Generate(userID, email, role, companyID string, remember bool) (string, error) {
	if cfg == nil {
		return "", errors.New("session token configuration not initialized")
	}

	now := time.Now()
	claims := SessionClaims{
		UserID:    userID,
		Email:     email,
		Role:      role,
		CompanyID: companyID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL(remember))),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.SigningKey))
}

// Verify validates the signature and expiry of a session token and
// returns its claims. Malformed, forged and expired tokens all fail
// with a single error class.
func Verify(tokenString string) (*SessionClaims, error) {
	if cfg == nil {
		return nil, errors.New("session token configuration not initialized")
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&SessionClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(cfg.SigningKey), nil
		},
	)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}
