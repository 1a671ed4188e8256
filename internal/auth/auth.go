// Package auth handles admin session tokens for the FamBoard portal.
// Admin access is gated by a bcrypt-checked password that mints a signed
// JWT session cookie.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrExpiredToken    = errors.New("token expired")
	ErrMalformed       = errors.New("malformed token")
	ErrInvalidPassword = errors.New("invalid password")
)

// SessionTTL is how long an admin session stays valid.
const SessionTTL = 12 * time.Hour

// Claims represents the admin session JWT claims.
type Claims struct {
	Admin bool `json:"adm"`
	jwt.RegisteredClaims
}

// SessionInfo contains information extracted from a validated session token.
type SessionInfo struct {
	ExpiresAt time.Time
}

// Authenticator issues and validates admin session tokens.
type Authenticator struct {
	tokenKey     []byte
	passwordHash []byte
}

// New creates an Authenticator with the given signing key and bcrypt
// password hash.
func New(tokenKey, passwordHash []byte) *Authenticator {
	return &Authenticator{
		tokenKey:     tokenKey,
		passwordHash: passwordHash,
	}
}

// CheckPassword verifies the admin password against the configured hash.
func (a *Authenticator) CheckPassword(password string) error {
	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil {
		return ErrInvalidPassword
	}
	return nil
}

// IssueToken mints a signed admin session token.
func (a *Authenticator) IssueToken(now time.Time) (string, error) {
	claims := Claims{
		Admin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.tokenKey)
}

// ValidateToken validates a session token and returns session information.
func (a *Authenticator) ValidateToken(tokenString string) (*SessionInfo, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.tokenKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.Admin {
		return nil, ErrMalformed
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return &SessionInfo{ExpiresAt: expiresAt}, nil
}

// HashPassword returns a bcrypt hash for password, used by setup tooling.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
