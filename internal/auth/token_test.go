package auth

import (
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
)

func TestIssueAndParse(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	token, err := m.Issue(core.User{ID: "u1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "a@example.com" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseRejects(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	token, _ := m.Issue(core.User{ID: "u1"})

	other := NewTokenManager("other", time.Hour)
	if _, err := other.Parse(token); !errors.Is(err, core.ErrUnauthorized) {
		t.Fatalf("wrong secret: expected ErrUnauthorized, got %v", err)
	}

	expired := NewTokenManager("secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _ := expired.Issue(core.User{ID: "u1"})
	if _, err := m.Parse(old); !errors.Is(err, core.ErrUnauthorized) {
		t.Fatalf("expired: expected ErrUnauthorized, got %v", err)
	}

	if _, err := m.Parse("not-a-token"); !errors.Is(err, core.ErrUnauthorized) {
		t.Fatalf("garbage: expected ErrUnauthorized, got %v", err)
	}
}
