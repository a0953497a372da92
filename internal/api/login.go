package api

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/solacewellness/solace/internal/auth"
	"github.com/solacewellness/solace/internal/db"
	"github.com/solacewellness/solace/internal/sanitize"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool      `json:"success"`
	User    loginUser `json:"user"`
}

type loginUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Login handles POST /api/auth/login. A missing account and a wrong
// password produce the same response so the endpoint can't be used to
// enumerate admin addresses.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := sanitize.Email(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.logger.Error("failed to look up user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		h.logger.Info("login rejected",
			zap.String("email", email),
			zap.String("ip", ClientIP(r)),
		)
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := h.auth.IssueToken(user.ID.String(), user.Email, user.Role, time.Now())
	if err != nil {
		h.logger.Error("failed to issue session token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	http.SetCookie(w, auth.SessionCookieFor(token, h.secureCookies))

	h.logger.Info("admin logged in", zap.String("email", user.Email))

	writeJSON(w, http.StatusOK, loginResponse{
		Success: true,
		User: loginUser{
			ID:    user.ID.String(),
			Email: user.Email,
			Name:  user.Name,
			Role:  user.Role,
		},
	})
}

// Logout handles POST /api/auth/logout by expiring the session cookie.
// Always succeeds, authenticated or not.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, auth.ExpiredSessionCookie(h.secureCookies))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
