package util

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndParseJWT(t *testing.T) {
	token, claims, err := GenerateJWT(42, TokenTypeAccess, time.Minute, "secret")
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	if claims.ID == "" {
		t.Fatal("expected a jti")
	}

	parsed, err := ParseJWT(token, "secret")
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if parsed.UserID != 42 || parsed.Type != TokenTypeAccess || parsed.ID != claims.ID {
		t.Fatalf("parsed = %+v", parsed)
	}
}

func TestParseJWTRejects(t *testing.T) {
	expired, _, err := GenerateJWT(1, TokenTypeAccess, -time.Minute, "secret")
	if err != nil {
		t.Fatal(err)
	}
	valid, _, err := GenerateJWT(1, TokenTypeAccess, time.Minute, "secret")
	if err != nil {
		t.Fatal(err)
	}
	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: 1}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"expired", expired, "secret"},
		{"wrong secret", valid, "other"},
		{"missing user id", noUser, "secret"},
		{"none algorithm", noneAlg, "secret"},
		{"garbage", "a.b.c", "secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseJWT(tt.token, tt.secret); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Token abc", ""},
		{"Bearer", ""},
		{"Bearer a b", ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		if got := ExtractToken(r); got != tt.want {
			t.Errorf("ExtractToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("password123")
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPassword("password123", hash) {
		t.Error("correct password rejected")
	}
	if CheckPassword("wrong", hash) {
		t.Error("wrong password accepted")
	}

	if _, err := HashPassword(strings.Repeat("é", 40)); !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("80-byte password: err = %v, want ErrPasswordTooLong", err)
	}
	BurnPasswordCheck("anything")
}

func TestMemoryRevoker(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewMemoryRevoker()
	r.now = func() time.Time { return now }

	if err := r.Revoke(ctx, "a", now.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := r.Revoke(ctx, "already-expired", now.Add(-time.Minute)); err != nil {
		t.Fatal(err)
	}

	if ok, _ := r.IsRevoked(ctx, "a"); !ok {
		t.Error("a should be revoked")
	}
	if ok, _ := r.IsRevoked(ctx, "already-expired"); ok {
		t.Error("expired tokens need no entry")
	}

	now = now.Add(2 * time.Minute)
	if ok, _ := r.IsRevoked(ctx, "a"); ok {
		t.Error("entry should lapse with the token")
	}
}

func TestMemoryLocker(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLocker()
	l.clock = func() time.Time { return now }

	if ok, _ := l.Acquire(ctx, "k", time.Minute); !ok {
		t.Fatal("first acquire should succeed")
	}
	if ok, _ := l.Acquire(ctx, "k", time.Minute); ok {
		t.Fatal("second acquire should fail while held")
	}

	now = now.Add(2 * time.Minute)
	if ok, _ := l.Acquire(ctx, "k", time.Minute); !ok {
		t.Fatal("acquire should succeed after ttl")
	}

	if err := l.Release(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := l.Acquire(ctx, "k", time.Minute); !ok {
		t.Fatal("acquire should succeed after release")
	}
}
