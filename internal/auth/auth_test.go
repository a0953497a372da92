package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIssueAndVerifyToken(t *testing.T) {
	svc := NewService("test-secret")

	token, err := svc.IssueToken("user-1", "admin@solaceretreat.com", "admin", time.Now())
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	claims, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if claims.Email != "admin@solaceretreat.com" {
		t.Errorf("unexpected email claim: %s", claims.Email)
	}
	if claims.Role != "admin" {
		t.Errorf("unexpected role claim: %s", claims.Role)
	}
	if claims.Subject != "user-1" {
		t.Errorf("unexpected subject: %s", claims.Subject)
	}
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewService("secret-a").IssueToken("u", "a@b.com", "admin", time.Now())
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	if _, err := NewService("secret-b").VerifyToken(token); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	svc := NewService("test-secret")

	// Issued far enough in the past that the 7-day TTL has elapsed.
	token, err := svc.IssueToken("u", "a@b.com", "admin", time.Now().Add(-8*24*time.Hour))
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	if _, err := svc.VerifyToken(token); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession for expired token, got %v", err)
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if err := CheckPassword(hash, "correct horse battery staple"); err != nil {
		t.Errorf("expected password to verify: %v", err)
	}
	if err := CheckPassword(hash, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSessionCookieAttributes(t *testing.T) {
	cookie := SessionCookieFor("tok", true)

	if cookie.Name != SessionCookie {
		t.Errorf("unexpected cookie name: %s", cookie.Name)
	}
	if !cookie.HttpOnly {
		t.Error("session cookie must be HTTP-only")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Error("session cookie must be SameSite=Lax")
	}
	if cookie.MaxAge != int(SessionTTL.Seconds()) {
		t.Errorf("unexpected MaxAge: %d", cookie.MaxAge)
	}

	cleared := ExpiredSessionCookie(true)
	if cleared.MaxAge >= 0 {
		t.Error("logout cookie must expire immediately")
	}
}

func TestFromRequest(t *testing.T) {
	svc := NewService("test-secret")

	token, _ := svc.IssueToken("u", "a@b.com", "admin", time.Now())

	r := httptest.NewRequest(http.MethodGet, "/api/admin/notifications", nil)
	r.AddCookie(SessionCookieFor(token, false))

	claims, err := svc.FromRequest(r)
	if err != nil {
		t.Fatalf("FromRequest failed: %v", err)
	}
	if claims.Email != "a@b.com" {
		t.Errorf("unexpected email: %s", claims.Email)
	}

	bare := httptest.NewRequest(http.MethodGet, "/api/admin/notifications", nil)
	if _, err := svc.FromRequest(bare); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession without cookie, got %v", err)
	}
}
