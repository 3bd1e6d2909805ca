// Package session stores the bearer token for the curation backend and
// exposes what the client can read out of it without the signing key.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoToken is returned when no session token has been saved.
var ErrNoToken = errors.New("no session token; run `newsdesk login` first")

// Claims is the subset of token claims the client displays.
type Claims struct {
	Subject   string
	Role      string
	ExpiresAt *time.Time
}

// Store keeps the token in a mode-0600 file.
type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

// Token returns the saved token, or "" when none exists. Calls with no
// token go out unauthenticated; the backend decides what that is allowed
// to see.
func (s *Store) Token() (string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read session: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes the token.
func (s *Store) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(strings.TrimSpace(token)+"\n"), 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Clear removes the saved token. Clearing an empty session is a no-op.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Inspect decodes the token payload without verifying the signature. The
// client has no key and only needs display fields and the expiry.
func (s *Store) Inspect() (*Claims, error) {
	token, err := s.Token()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrNoToken
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("unexpected token claims")
	}

	claims := &Claims{}
	if sub, err := mapClaims.GetSubject(); err == nil {
		claims.Subject = sub
	}
	if role, ok := mapClaims["role"].(string); ok {
		claims.Role = role
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		claims.ExpiresAt = &t
	}
	return claims, nil
}

// Expired reports whether a saved token carries an expiry in the past.
// Tokens without an expiry, or no token at all, report false.
func (s *Store) Expired() bool {
	claims, err := s.Inspect()
	if err != nil || claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Before(time.Now())
}
