package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/backoffice/internal/db"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the "typ" claim. Refresh tokens are only accepted
// by the refresh endpoint, access tokens only by the auth middleware.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var ErrTokenInvalid = errors.New("invalid token")

// Claims extends the JWT registered claims with back-office fields.
type Claims struct {
	jwt.RegisteredClaims
	Role         string `json:"role"`
	TokenType    string `json:"typ"`
	TokenVersion int    `json:"token_version"`
}

// TokenPair is what login and refresh hand back to the client.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// GenerateTokenPair signs a fresh access/refresh pair for the user.
// TokenVersion is copied from the user row so a password change can revoke
// everything issued before it.
func GenerateTokenPair(user *db.User, secret string, accessTTL, refreshTTL time.Duration) (TokenPair, error) {
	access, err := generate(user, secret, accessTTL, TokenTypeAccess)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := generate(user, secret, refreshTTL, TokenTypeRefresh)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{Access: access, Refresh: refresh}, nil
}

func generate(user *db.User, secret string, ttl time.Duration, tokenType string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Role:         user.Role,
		TokenType:    tokenType,
		TokenVersion: user.TokenVersion,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing %s token: %w", tokenType, err)
	}
	return signed, nil
}

// ParseToken validates signature and expiry and returns the claims.
func ParseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	if claims.TokenType != TokenTypeAccess && claims.TokenType != TokenTypeRefresh {
		return nil, fmt.Errorf("%w: missing token type", ErrTokenInvalid)
	}

	return claims, nil
}
