package api

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/solacewellness/solace/internal/db"
	"github.com/solacewellness/solace/internal/metrics"
	"github.com/solacewellness/solace/internal/sanitize"
)

type newsletterRequest struct {
	Email  string `json:"email"`
	Source string `json:"source"`
}

type newsletterResponse struct {
	Success           bool `json:"success"`
	AlreadySubscribed bool `json:"alreadySubscribed,omitempty"`
}

type unsubscribeResponse struct {
	Success             bool `json:"success"`
	AlreadyUnsubscribed bool `json:"alreadyUnsubscribed,omitempty"`
}

// unsubscribeToken derives the capability token for an address. One-way:
// holding the token proves nothing except the right to unsubscribe that
// address. Tokens do not expire.
func unsubscribeToken(email string, issuedAt time.Time, secret string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", email, issuedAt.Unix(), secret)))
	return hex.EncodeToString(sum[:])
}

// SubscribeNewsletter handles POST /api/newsletter. Idempotent per
// normalized email: a repeat subscribe reports alreadySubscribed instead of
// creating a duplicate, and a previously unsubscribed address is
// reactivated with a fresh token.
func (h *Handler) SubscribeNewsletter(w http.ResponseWriter, r *http.Request) {
	var req newsletterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := sanitize.Email(req.Email)
	if !validEmail(email) {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}

	existing, err := h.newsletter.GetSubscription(r.Context(), email)
	if err != nil {
		h.logger.Error("failed to look up subscription", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if existing != nil && existing.Status == db.NewsletterActive {
		metrics.RecordNewsletterEvent("duplicate")
		writeJSON(w, http.StatusOK, newsletterResponse{Success: true, AlreadySubscribed: true})
		return
	}

	sub := &db.NewsletterSubscription{
		Email:            email,
		Status:           db.NewsletterActive,
		Source:           sanitize.PlainText(req.Source),
		UnsubscribeToken: unsubscribeToken(email, time.Now(), h.unsubscribeSecret),
	}

	if err := h.newsletter.UpsertSubscription(r.Context(), sub); err != nil {
		h.logger.Error("failed to store subscription", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if existing != nil {
		metrics.RecordNewsletterEvent("resubscribe")
	} else {
		metrics.RecordNewsletterEvent("subscribe")
	}

	h.fanout.NewsletterSubscribed(email, h.unsubscribeURL(email, sub.UnsubscribeToken))

	writeJSON(w, http.StatusOK, newsletterResponse{Success: true})
}

func (h *Handler) unsubscribeURL(email, token string) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("token", token)
	return h.baseURL + "/api/newsletter/unsubscribe?" + q.Encode()
}

// UnsubscribeNewsletter handles GET and POST /api/newsletter/unsubscribe.
// GET serves the one-click link embedded in emails; POST serves the
// preference form. Only an active subscription transitions; a repeat call
// with the same valid link reports alreadyUnsubscribed.
func (h *Handler) UnsubscribeNewsletter(w http.ResponseWriter, r *http.Request) {
	var email, token string

	if r.Method == http.MethodGet {
		email = r.URL.Query().Get("email")
		token = r.URL.Query().Get("token")
	} else {
		var req struct {
			Email string `json:"email"`
			Token string `json:"token"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		email, token = req.Email, req.Token
	}

	email = sanitize.Email(email)
	if !validEmail(email) || token == "" {
		writeError(w, http.StatusBadRequest, "email and token are required")
		return
	}

	changed, err := h.newsletter.Unsubscribe(r.Context(), email, token)
	if err != nil {
		h.logger.Error("failed to unsubscribe", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if changed > 0 {
		metrics.RecordNewsletterEvent("unsubscribe")
		writeJSON(w, http.StatusOK, unsubscribeResponse{Success: true})
		return
	}

	// Nothing changed: either the link is bogus or it was already used.
	sub, err := h.newsletter.GetSubscription(r.Context(), email)
	if err != nil {
		h.logger.Error("failed to look up subscription", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if sub != nil && sub.Status == db.NewsletterUnsubscribed &&
		subtle.ConstantTimeCompare([]byte(sub.UnsubscribeToken), []byte(token)) == 1 {
		writeJSON(w, http.StatusOK, unsubscribeResponse{Success: true, AlreadyUnsubscribed: true})
		return
	}

	writeError(w, http.StatusBadRequest, "invalid unsubscribe link")
}
