package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/solacewellness/solace/internal/db"
	"github.com/solacewellness/solace/internal/metrics"
	"github.com/solacewellness/solace/internal/sanitize"
)

// defaultDispatchTimeout bounds each side-effect call. Detached from the
// request context on purpose: the HTTP response must not wait for these.
const defaultDispatchTimeout = 15 * time.Second

// NotificationStore persists dashboard activity records.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *db.Notification) error
}

// OpsPublisher pushes submission events to the ops channel.
type OpsPublisher interface {
	Publish(ctx context.Context, msg OpsMessage) (string, error)
}

// Submission is the summary handed to the fan-out after a durable write.
type Submission struct {
	Kind    string // waitlist | contact | referral
	ID      uuid.UUID
	Name    string
	Email   string // submitter address; empty skips the confirmation email
	Summary string
	Payload map[string]any
}

// Dispatcher runs the post-persistence fan-out: confirmation email, staff
// alert, marketing sync, ops push, and dashboard notification. Every channel
// is best-effort and at-most-once; failures are logged and counted, never
// surfaced to the client. Persistence has already succeeded by the time any
// of this runs.
type Dispatcher struct {
	logger     *zap.Logger
	mailer     Mailer
	marketing  Marketing     // nil disables marketing sync
	ops        OpsPublisher  // nil disables ops pushes
	store      NotificationStore
	staffEmail string
	baseURL    string
	timeout    time.Duration

	wg sync.WaitGroup
}

// Config wires the dispatcher's channels.
type Config struct {
	Mailer     Mailer
	Marketing  Marketing
	Ops        OpsPublisher
	Store      NotificationStore
	StaffEmail string
	BaseURL    string
	Timeout    time.Duration
}

// NewDispatcher creates the fan-out dispatcher.
func NewDispatcher(cfg Config, logger *zap.Logger) *Dispatcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultDispatchTimeout
	}

	return &Dispatcher{
		logger:     logger,
		mailer:     cfg.Mailer,
		marketing:  cfg.Marketing,
		ops:        cfg.Ops,
		store:      cfg.Store,
		staffEmail: cfg.StaffEmail,
		baseURL:    cfg.BaseURL,
		timeout:    timeout,
	}
}

// SubmissionReceived fans out all side effects for a stored submission.
// Returns immediately; the dispatches run in their own goroutines.
func (d *Dispatcher) SubmissionReceived(sub Submission) {
	link := d.dashboardLink(sub.Kind)

	if sub.Email != "" {
		d.dispatch("confirmation_email", func(ctx context.Context) error {
			return d.mailer.SendEmail(ctx, sub.Email, confirmationSubject(sub.Kind), confirmationBody(sub.Kind, sub.Name))
		})
	}

	if d.staffEmail != "" {
		d.dispatch("staff_email", func(ctx context.Context) error {
			return d.mailer.SendEmail(ctx, d.staffEmail, staffAlertSubject(sub.Kind), staffAlertBody(sub.Kind, sub.Summary, link))
		})
	}

	if d.ops != nil {
		d.dispatch("ops_push", func(ctx context.Context) error {
			_, err := d.ops.Publish(ctx, OpsMessage{
				Kind:         sub.Kind,
				SubmissionID: sub.ID.String(),
				Summary:      sub.Summary,
				Link:         link,
			})
			return err
		})
	}

	if d.marketing != nil && sub.Email != "" {
		d.dispatch("marketing_sync", func(ctx context.Context) error {
			return d.marketing.SyncProfile(ctx, Profile{
				Email:     sub.Email,
				FirstName: sub.Name,
				Source:    sub.Kind,
			})
		})
	}

	d.dispatch("dashboard_notification", func(ctx context.Context) error {
		// The payload is an arbitrary key/value map rendered in the
		// dashboard, so it goes through the record-level sanitizer even
		// when the caller already cleaned individual fields.
		payload, err := json.Marshal(sanitize.FormData(sub.Payload))
		if err != nil {
			return fmt.Errorf("marshal notification payload: %w", err)
		}
		return d.store.CreateNotification(ctx, &db.Notification{
			ID:      uuid.New(),
			Kind:    sub.Kind,
			Title:   staffAlertSubject(sub.Kind),
			Message: sub.Summary,
			Link:    link,
			Payload: payload,
		})
	})
}

// NewsletterSubscribed fans out the welcome email and marketing sync for a
// new subscriber. Newsletter signups do not create dashboard notifications.
func (d *Dispatcher) NewsletterSubscribed(email, unsubscribeURL string) {
	d.dispatch("confirmation_email", func(ctx context.Context) error {
		return d.mailer.SendEmail(ctx, email, "Welcome to the Solace newsletter", newsletterWelcomeBody(unsubscribeURL))
	})

	if d.marketing != nil {
		d.dispatch("marketing_sync", func(ctx context.Context) error {
			return d.marketing.SyncProfile(ctx, Profile{
				Email:  email,
				Source: "newsletter",
			})
		})
	}
}

// Wait blocks until all in-flight dispatches finish. Called on shutdown so
// a deploy doesn't drop side effects already committed to.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) dispatch(channel string, fn func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("fan-out dispatch panicked",
					zap.String("channel", channel),
					zap.Any("panic", r),
				)
				metrics.RecordFanout(channel, "panic")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			d.logger.Warn("fan-out dispatch failed",
				zap.String("channel", channel),
				zap.Error(err),
			)
			metrics.RecordFanout(channel, "error")
			return
		}

		metrics.RecordFanout(channel, "ok")
	}()
}

func (d *Dispatcher) dashboardLink(kind string) string {
	if d.baseURL == "" {
		return ""
	}

	switch kind {
	case db.KindWaitlist:
		return d.baseURL + "/admin/waitlist"
	case db.KindContact:
		return d.baseURL + "/admin/contacts"
	case db.KindReferral:
		return d.baseURL + "/admin/referrals"
	default:
		return d.baseURL + "/admin"
	}
}
