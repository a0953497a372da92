package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/solacewellness/solace/internal/auth"
	"github.com/solacewellness/solace/internal/db"
	"github.com/solacewellness/solace/internal/notify"
	"github.com/solacewellness/solace/internal/redis"
)

// maxBodyBytes caps request bodies. Form payloads are small; anything
// larger is rejected before JSON decoding.
const maxBodyBytes = 64 << 10

// SubmissionStore persists and lists form submissions.
type SubmissionStore interface {
	CreateWaitlistEntry(ctx context.Context, entry *db.WaitlistEntry) error
	ListWaitlist(ctx context.Context, limit, offset int) ([]*db.WaitlistEntry, error)
	UpdateWaitlistStatus(ctx context.Context, id uuid.UUID, status string) error
	CreateContact(ctx context.Context, c *db.ContactSubmission) error
	ListContacts(ctx context.Context, limit, offset int) ([]*db.ContactSubmission, error)
	CreateReferral(ctx context.Context, ref *db.Referral) error
	ListReferrals(ctx context.Context, limit, offset int) ([]*db.Referral, error)
	UpdateReferralStatus(ctx context.Context, id uuid.UUID, status string) error
}

// NewsletterStore persists newsletter subscriptions.
type NewsletterStore interface {
	GetSubscription(ctx context.Context, email string) (*db.NewsletterSubscription, error)
	UpsertSubscription(ctx context.Context, sub *db.NewsletterSubscription) error
	Unsubscribe(ctx context.Context, email, token string) (int64, error)
}

// NotificationAdminStore serves the dashboard notification endpoints.
type NotificationAdminStore interface {
	ListNotifications(ctx context.Context, unreadOnly bool) ([]*db.Notification, error)
	MarkNotificationsRead(ctx context.Context, ids []uuid.UUID) (int64, error)
	MarkAllNotificationsRead(ctx context.Context) (int64, error)
	DeleteNotification(ctx context.Context, id uuid.UUID) error
	DeleteReadNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteAllNotifications(ctx context.Context) (int64, error)
}

// UserStore looks up admin accounts for login.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
}

// FanOut receives submissions after the durable write. Implementations must
// return immediately; the HTTP response never waits on side effects.
type FanOut interface {
	SubmissionReceived(sub notify.Submission)
	NewsletterSubscribed(email, unsubscribeURL string)
}

// Handler owns every HTTP endpoint. Stores are interfaces so tests can swap
// in fakes without a database.
type Handler struct {
	logger        *zap.Logger
	submissions   SubmissionStore
	newsletter    NewsletterStore
	notifications NotificationAdminStore
	users         UserStore
	fanout        FanOut
	auth          *auth.Service
	limiter       *redis.RateLimiter
	dedup         *redis.DedupService

	unsubscribeSecret string
	baseURL           string
	secureCookies     bool

	dbHealth    func(ctx context.Context) error
	redisHealth func(ctx context.Context) error
}

// HandlerConfig wires the handler's dependencies. Limiter, Dedup, and the
// health checks are optional; nil disables the corresponding behavior.
type HandlerConfig struct {
	Submissions   SubmissionStore
	Newsletter    NewsletterStore
	Notifications NotificationAdminStore
	Users         UserStore
	FanOut        FanOut
	Auth          *auth.Service
	Limiter       *redis.RateLimiter
	Dedup         *redis.DedupService

	UnsubscribeSecret string
	BaseURL           string
	SecureCookies     bool

	DBHealth    func(ctx context.Context) error
	RedisHealth func(ctx context.Context) error
}

// NewHandler creates the HTTP handler set.
func NewHandler(cfg HandlerConfig, logger *zap.Logger) *Handler {
	return &Handler{
		logger:            logger,
		submissions:       cfg.Submissions,
		newsletter:        cfg.Newsletter,
		notifications:     cfg.Notifications,
		users:             cfg.Users,
		fanout:            cfg.FanOut,
		auth:              cfg.Auth,
		limiter:           cfg.Limiter,
		dedup:             cfg.Dedup,
		unsubscribeSecret: cfg.UnsubscribeSecret,
		baseURL:           cfg.BaseURL,
		secureCookies:     cfg.SecureCookies,
		dbHealth:          cfg.DBHealth,
		redisHealth:       cfg.RedisHealth,
	}
}

// decodeJSON reads a bounded JSON body into dst. Unknown fields are ignored
// so frontend additions don't break older deployments.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func validEmail(s string) bool {
	if s == "" {
		return false
	}
	_, err := mail.ParseAddress(s)
	return err == nil
}

// checkDuplicate handles the optional Idempotency-Key header for a form
// endpoint. It returns (key, true) when the caller should proceed and record
// the outcome under key, and ("", false) when the response has already been
// written (replay or in-flight conflict). Redis errors fail open.
func (h *Handler) checkDuplicate(w http.ResponseWriter, r *http.Request, form string) (string, bool) {
	key := r.Header.Get("Idempotency-Key")
	if key == "" || h.dedup == nil {
		return "", true
	}

	result, err := h.dedup.CheckOrReserve(r.Context(), form, key)
	if errors.Is(err, redis.ErrDuplicateSubmission) {
		writeError(w, http.StatusConflict, "submission already in progress")
		return "", false
	}
	if err != nil {
		h.logger.Warn("dedup check failed, proceeding without",
			zap.String("form", form),
			zap.Error(err),
		)
		return "", true
	}
	if result != nil {
		w.Header().Set("X-Idempotency-Replayed", "true")
		if result.Position > 0 {
			writeJSON(w, result.StatusCode, waitlistResponse{
				Success:  true,
				ID:       result.SubmissionID,
				Position: result.Position,
			})
		} else {
			writeJSON(w, result.StatusCode, submissionResponse{
				Success: true,
				ID:      result.SubmissionID,
			})
		}
		return "", false
	}

	return key, true
}

// recordOutcome stores a processed submission under its idempotency key.
// Position is zero for everything but waitlist entries.
func (h *Handler) recordOutcome(ctx context.Context, form, key, id string, status int, position int64) {
	if key == "" || h.dedup == nil {
		return
	}

	err := h.dedup.Store(ctx, form, key, &redis.DedupResult{
		SubmissionID: id,
		StatusCode:   status,
		Position:     position,
	})
	if err != nil {
		h.logger.Warn("failed to record submission outcome",
			zap.String("form", form),
			zap.Error(err),
		)
	}
}

// Health reports DB and Redis reachability. Redis being down degrades
// rate limiting but does not fail the check.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}

	if h.dbHealth != nil {
		if err := h.dbHealth(r.Context()); err != nil {
			h.logger.Error("database health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":   "unavailable",
				"database": "down",
			})
			return
		}
		status["database"] = "up"
	}

	if h.redisHealth != nil {
		if err := h.redisHealth(r.Context()); err != nil {
			status["redis"] = "down"
		} else {
			status["redis"] = "up"
		}
	}

	writeJSON(w, http.StatusOK, status)
}
