package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const accessTokenExpiry = 24 * time.Hour

// ErrNoSubject is returned when a token carries no usable sub claim
var ErrNoSubject = errors.New("token has no subject")

// Claims represents the storefront access token claims
type Claims struct {
	jwt.RegisteredClaims
}

// TokenService signs and verifies storefront access tokens. Only the dev
// backend holds a secret; storefront clients use SubjectFromToken.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a new token service
func NewTokenService(secret string) *TokenService {
	return &TokenService{
		secret: []byte(secret),
	}
}

// SignAccessToken creates a JWT access token for userID (24h expiry)
func (s *TokenService) SignAccessToken(userID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTokenExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// VerifyToken verifies and parses a JWT token
func (s *TokenService) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrNoSubject
	}

	return claims, nil
}

// SubjectFromToken reads the sub claim without verifying the signature.
// The storefront never holds the signing key; the backend verifies the
// token on every call, so this is only used to label the local principal.
func SubjectFromToken(tokenString string) (string, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tokenString), "Bearer "))
	if tokenString == "" {
		return "", ErrNoSubject
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return "", ErrNoSubject
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return "", fmt.Errorf("token expired at %s", claims.ExpiresAt.Format(time.RFC3339))
	}
	return sub, nil
}
