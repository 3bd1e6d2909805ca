package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestStore_SaveTokenClear(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "nested", "session.token"))

	if token, err := s.Token(); err != nil || token != "" {
		t.Fatalf("Token on empty store: %q, %v", token, err)
	}

	if err := s.Save("  abc123\n"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	token, err := s.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if token != "abc123" {
		t.Errorf("Token = %q, want trimmed abc123", token)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if token, _ := s.Token(); token != "" {
		t.Errorf("Token after Clear = %q", token)
	}
	if err := s.Clear(); err != nil {
		t.Errorf("Clear on empty store: %v", err)
	}
}

func TestStore_SaveFileMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.token")
	s := New(path)
	if err := s.Save("secret"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("token file mode = %o, want 600", info.Mode().Perm())
	}
}

func TestStore_Inspect(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	s := New(filepath.Join(t.TempDir(), "session.token"))
	if err := s.Save(signedToken(t, jwt.MapClaims{
		"sub":  "editor@example.com",
		"role": "consultant",
		"exp":  exp.Unix(),
	})); err != nil {
		t.Fatalf("Save: %v", err)
	}

	claims, err := s.Inspect()
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if claims.Subject != "editor@example.com" {
		t.Errorf("Subject = %q", claims.Subject)
	}
	if claims.Role != "consultant" {
		t.Errorf("Role = %q", claims.Role)
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", claims.ExpiresAt, exp)
	}
}

func TestStore_InspectNoToken(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "session.token"))
	if _, err := s.Inspect(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("err = %v, want ErrNoToken", err)
	}
}

func TestStore_InspectGarbage(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "session.token"))
	if err := s.Save("not-a-jwt"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := s.Inspect(); err == nil {
		t.Fatal("Inspect accepted a malformed token")
	}
}

func TestStore_Expired(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "session.token"))

	if s.Expired() {
		t.Error("empty store reported expired")
	}

	if err := s.Save(signedToken(t, jwt.MapClaims{"sub": "x", "exp": time.Now().Add(-time.Hour).Unix()})); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !s.Expired() {
		t.Error("past expiry not reported")
	}

	if err := s.Save(signedToken(t, jwt.MapClaims{"sub": "x", "exp": time.Now().Add(time.Hour).Unix()})); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if s.Expired() {
		t.Error("future expiry reported expired")
	}

	if err := s.Save(signedToken(t, jwt.MapClaims{"sub": "x"})); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if s.Expired() {
		t.Error("token without expiry reported expired")
	}
}
