package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/solacewellness/solace/internal/db"
)

// readClearCutoff is how old a read notification must be before the
// scope=read bulk delete removes it.
const readClearCutoff = 30 * 24 * time.Hour

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func pagination(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

// Each resource has its own status vocabulary: waitlist entries move
// between pending and reviewed, referrals between pending and the review
// decision.
var (
	waitlistStatuses = []string{db.StatusPending, db.StatusReviewed}
	referralStatuses = []string{db.StatusPending, db.StatusApproved, db.StatusRejected}
)

func statusAllowed(s string, allowed []string) bool {
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}

// ListNotifications handles GET /api/admin/notifications. The unread=true
// query filters to unread records only.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	unreadOnly := r.URL.Query().Get("unread") == "true"

	notifications, err := h.notifications.ListNotifications(r.Context(), unreadOnly)
	if err != nil {
		h.logger.Error("failed to list notifications", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if notifications == nil {
		notifications = []*db.Notification{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"notifications": notifications,
	})
}

// MarkNotificationsRead handles POST /api/admin/notifications/read with
// either {"ids": [...]} or {"all": true}.
func (h *Handler) MarkNotificationsRead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
		All bool     `json:"all"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		updated int64
		err     error
	)

	switch {
	case req.All:
		updated, err = h.notifications.MarkAllNotificationsRead(r.Context())
	case len(req.IDs) > 0:
		ids := make([]uuid.UUID, 0, len(req.IDs))
		for _, raw := range req.IDs {
			id, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				writeError(w, http.StatusBadRequest, "invalid notification id: "+raw)
				return
			}
			ids = append(ids, id)
		}
		updated, err = h.notifications.MarkNotificationsRead(r.Context(), ids)
	default:
		writeError(w, http.StatusBadRequest, "ids or all is required")
		return
	}

	if err != nil {
		h.logger.Error("failed to mark notifications read", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "updated": updated})
}

// DeleteNotification handles DELETE /api/admin/notifications/{id}.
func (h *Handler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := h.notifications.DeleteNotification(r.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ClearNotifications handles DELETE /api/admin/notifications. scope=read
// removes read records older than 30 days; scope=all empties the store.
func (h *Handler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	var (
		deleted int64
		err     error
	)

	switch scope := r.URL.Query().Get("scope"); scope {
	case "read":
		deleted, err = h.notifications.DeleteReadNotificationsBefore(r.Context(), time.Now().Add(-readClearCutoff))
	case "all":
		deleted, err = h.notifications.DeleteAllNotifications(r.Context())
	default:
		writeError(w, http.StatusBadRequest, "scope must be read or all")
		return
	}

	if err != nil {
		h.logger.Error("failed to clear notifications", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "deleted": deleted})
}

// ListWaitlist handles GET /api/admin/waitlist, ordered by position.
func (h *Handler) ListWaitlist(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	entries, err := h.submissions.ListWaitlist(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list waitlist", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if entries == nil {
		entries = []*db.WaitlistEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "entries": entries})
}

// ListContacts handles GET /api/admin/contacts, newest first.
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	contacts, err := h.submissions.ListContacts(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list contacts", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if contacts == nil {
		contacts = []*db.ContactSubmission{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "contacts": contacts})
}

// ListReferrals handles GET /api/admin/referrals, newest first.
func (h *Handler) ListReferrals(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	referrals, err := h.submissions.ListReferrals(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list referrals", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if referrals == nil {
		referrals = []*db.Referral{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "referrals": referrals})
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request, allowed []string, update func(id uuid.UUID, status string) error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !statusAllowed(req.Status, allowed) {
		writeError(w, http.StatusBadRequest, "status must be one of: "+strings.Join(allowed, ", "))
		return
	}

	if err := update(id, req.Status); err != nil {
		h.logger.Error("failed to update status",
			zap.String("id", id.String()),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// UpdateWaitlistStatus handles PATCH /api/admin/waitlist/{id}/status.
func (h *Handler) UpdateWaitlistStatus(w http.ResponseWriter, r *http.Request) {
	h.updateStatus(w, r, waitlistStatuses, func(id uuid.UUID, status string) error {
		return h.submissions.UpdateWaitlistStatus(r.Context(), id, status)
	})
}

// UpdateReferralStatus handles PATCH /api/admin/referrals/{id}/status.
func (h *Handler) UpdateReferralStatus(w http.ResponseWriter, r *http.Request) {
	h.updateStatus(w, r, referralStatuses, func(id uuid.UUID, status string) error {
		return h.submissions.UpdateReferralStatus(r.Context(), id, status)
	})
}
