// Package session keeps the single bearer token the console authenticates with.
package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"aura.app/internal/platform"
)

// TokenKey is the storage key holding the bearer token.
const TokenKey = "aura_token"

var (
	ErrNoToken        = errors.New("session: no token")
	ErrMalformedToken = errors.New("session: malformed token")
)

// Claims is the part of the access token payload the console reads.
type Claims struct {
	jwt.RegisteredClaims
}

// Store wraps a platform.Storage around the token key.
type Store struct {
	storage platform.Storage
}

func New(storage platform.Storage) *Store {
	return &Store{storage: storage}
}

// Token returns the stored token, if any.
func (s *Store) Token() (string, bool) {
	v, ok := s.storage.Get(TokenKey)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Save persists a freshly issued token.
func (s *Store) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("session: refusing to store an empty token")
	}
	if err := s.storage.Set(TokenKey, token); err != nil {
		return fmt.Errorf("session: store token: %w", err)
	}
	return nil
}

// Clear erases the token.
func (s *Store) Clear() error {
	if err := s.storage.Remove(TokenKey); err != nil {
		return fmt.Errorf("session: clear token: %w", err)
	}
	return nil
}

// Subject decodes the token's sub claim without verifying the signature.
// The result is display data only and must never be used for authorization.
func (s *Store) Subject() (string, error) {
	token, ok := s.Token()
	if !ok {
		return "", ErrNoToken
	}
	return SubjectOf(token)
}

// SubjectOf is Subject for an arbitrary token string.
func SubjectOf(token string) (string, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return "", fmt.Errorf("%w: subject missing", ErrMalformedToken)
	}
	return sub, nil
}
