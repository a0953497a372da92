// Package auth issues and verifies the admin session cookie.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// SessionCookie is the name of the HTTP-only admin session cookie.
const SessionCookie = "solace_session"

// SessionTTL is how long an admin session stays valid.
const SessionTTL = 7 * 24 * time.Hour

// ErrInvalidCredentials is returned for a bad email/password pair. The
// handler surfaces it verbatim so the response never reveals which half
// was wrong.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrInvalidSession is returned when the session cookie is missing,
// malformed, or expired.
var ErrInvalidSession = errors.New("invalid session")

// Claims is the JWT payload carried by the session cookie.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Service signs and verifies session tokens.
type Service struct {
	secret []byte
}

// NewService creates an auth service with the shared HMAC secret.
func NewService(secret string) *Service {
	return &Service{secret: []byte(secret)}
}

// CheckPassword compares a bcrypt hash against a candidate password.
func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword produces a bcrypt hash for seeding admin accounts.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// IssueToken signs a session token for an authenticated admin.
func (s *Service) IssueToken(userID, email, role string, now time.Time) (string, error) {
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	return signed, nil
}

// VerifyToken parses and validates a session token.
func (s *Service) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}

	return claims, nil
}

// SessionCookieFor wraps a signed token in the HTTP-only session cookie.
func SessionCookieFor(token string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredSessionCookie clears the session cookie on logout.
func ExpiredSessionCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// FromRequest extracts and verifies the session from the request cookie.
func (s *Service) FromRequest(r *http.Request) (*Claims, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, ErrInvalidSession
	}
	return s.VerifyToken(cookie.Value)
}
