package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/solacewellness/solace/internal/db"
	"github.com/solacewellness/solace/internal/metrics"
	"github.com/solacewellness/solace/internal/notify"
	"github.com/solacewellness/solace/internal/sanitize"
)

type submissionResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

type waitlistResponse struct {
	Success  bool   `json:"success"`
	ID       string `json:"id"`
	Position int64  `json:"position"`
}

type waitlistRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Diagnosis string `json:"diagnosis"`
	Message   string `json:"message"`
	Source    string `json:"source"`
}

// SubmitWaitlist handles POST /api/waitlist.
func (h *Handler) SubmitWaitlist(w http.ResponseWriter, r *http.Request) {
	var req waitlistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry := &db.WaitlistEntry{
		ID:        uuid.New(),
		Name:      sanitize.PlainText(req.Name),
		Email:     sanitize.Email(req.Email),
		Phone:     sanitize.Phone(req.Phone),
		Diagnosis: sanitize.PlainText(req.Diagnosis),
		Message:   sanitize.Message(req.Message),
		Status:    db.StatusPending,
		Source:    sanitize.PlainText(req.Source),
		ClientIP:  ClientIP(r),
		UserAgent: r.UserAgent(),
	}

	if entry.Name == "" || !validEmail(entry.Email) {
		writeError(w, http.StatusBadRequest, "name and a valid email are required")
		return
	}

	dedupKey, proceed := h.checkDuplicate(w, r, db.KindWaitlist)
	if !proceed {
		return
	}

	if err := h.submissions.CreateWaitlistEntry(r.Context(), entry); err != nil {
		h.logger.Error("failed to store waitlist entry", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	metrics.RecordFormSubmission(db.KindWaitlist)
	h.recordOutcome(r.Context(), db.KindWaitlist, dedupKey, entry.ID.String(), http.StatusOK, entry.Position)

	h.fanout.SubmissionReceived(notify.Submission{
		Kind:    db.KindWaitlist,
		ID:      entry.ID,
		Name:    entry.Name,
		Email:   entry.Email,
		Summary: fmt.Sprintf("%s joined the waitlist at position %d", entry.Name, entry.Position),
		Payload: map[string]any{
			"name":     entry.Name,
			"email":    entry.Email,
			"position": entry.Position,
		},
	})

	writeJSON(w, http.StatusOK, waitlistResponse{
		Success:  true,
		ID:       entry.ID.String(),
		Position: entry.Position,
	})
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message"`
	Source  string `json:"source"`
}

// SubmitContact handles POST /api/contact.
func (h *Handler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c := &db.ContactSubmission{
		ID:        uuid.New(),
		Name:      sanitize.PlainText(req.Name),
		Email:     sanitize.Email(req.Email),
		Phone:     sanitize.Phone(req.Phone),
		Subject:   sanitize.PlainText(req.Subject),
		Message:   sanitize.Message(req.Message),
		Status:    db.StatusPending,
		Source:    sanitize.PlainText(req.Source),
		ClientIP:  ClientIP(r),
		UserAgent: r.UserAgent(),
	}

	if c.Name == "" || !validEmail(c.Email) || c.Message == "" {
		writeError(w, http.StatusBadRequest, "name, email, and message are required")
		return
	}

	dedupKey, proceed := h.checkDuplicate(w, r, db.KindContact)
	if !proceed {
		return
	}

	if err := h.submissions.CreateContact(r.Context(), c); err != nil {
		h.logger.Error("failed to store contact submission", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	metrics.RecordFormSubmission(db.KindContact)
	h.recordOutcome(r.Context(), db.KindContact, dedupKey, c.ID.String(), http.StatusOK, 0)

	summary := fmt.Sprintf("%s sent a message", c.Name)
	if c.Subject != "" {
		summary = fmt.Sprintf("%s sent a message: %s", c.Name, c.Subject)
	}

	h.fanout.SubmissionReceived(notify.Submission{
		Kind:    db.KindContact,
		ID:      c.ID,
		Name:    c.Name,
		Email:   c.Email,
		Summary: summary,
		Payload: map[string]any{
			"name":    c.Name,
			"email":   c.Email,
			"subject": c.Subject,
		},
	})

	writeJSON(w, http.StatusOK, submissionResponse{Success: true, ID: c.ID.String()})
}

type referralRequest struct {
	ReferrerName  string `json:"referrerName"`
	ReferrerEmail string `json:"referrerEmail"`
	Organization  string `json:"organization"`
	PatientName   string `json:"patientName"`
	PatientEmail  string `json:"patientEmail"`
	PatientPhone  string `json:"patientPhone"`
	Notes         string `json:"notes"`
	Source        string `json:"source"`
}

// SubmitReferral handles POST /api/referral. Confirmation goes to the
// referring provider, never to the patient.
func (h *Handler) SubmitReferral(w http.ResponseWriter, r *http.Request) {
	var req referralRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ref := &db.Referral{
		ID:            uuid.New(),
		ReferrerName:  sanitize.PlainText(req.ReferrerName),
		ReferrerEmail: sanitize.Email(req.ReferrerEmail),
		Organization:  sanitize.PlainText(req.Organization),
		PatientName:   sanitize.PlainText(req.PatientName),
		PatientEmail:  sanitize.Email(req.PatientEmail),
		PatientPhone:  sanitize.Phone(req.PatientPhone),
		Notes:         sanitize.Message(req.Notes),
		Status:        db.StatusPending,
		Source:        sanitize.PlainText(req.Source),
		ClientIP:      ClientIP(r),
		UserAgent:     r.UserAgent(),
	}

	if ref.ReferrerName == "" || !validEmail(ref.ReferrerEmail) || ref.PatientName == "" {
		writeError(w, http.StatusBadRequest, "referrer name, referrer email, and patient name are required")
		return
	}

	dedupKey, proceed := h.checkDuplicate(w, r, db.KindReferral)
	if !proceed {
		return
	}

	if err := h.submissions.CreateReferral(r.Context(), ref); err != nil {
		h.logger.Error("failed to store referral", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	metrics.RecordFormSubmission(db.KindReferral)
	h.recordOutcome(r.Context(), db.KindReferral, dedupKey, ref.ID.String(), http.StatusOK, 0)

	h.fanout.SubmissionReceived(notify.Submission{
		Kind:    db.KindReferral,
		ID:      ref.ID,
		Name:    ref.ReferrerName,
		Email:   ref.ReferrerEmail,
		Summary: fmt.Sprintf("%s referred %s", ref.ReferrerName, ref.PatientName),
		Payload: map[string]any{
			"referrerName": ref.ReferrerName,
			"organization": ref.Organization,
			"patientName":  ref.PatientName,
		},
	})

	writeJSON(w, http.StatusOK, submissionResponse{Success: true, ID: ref.ID.String()})
}
