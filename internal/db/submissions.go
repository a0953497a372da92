package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateWaitlistEntry inserts a waitlist entry and assigns its position.
// The position is computed inside the INSERT statement, so two concurrent
// signups cannot observe the same prior maximum. If that insert fails for
// any reason other than a dead connection, a timestamp-derived position is
// used as a fallback so the signup itself is never lost.
func (r *Repository) CreateWaitlistEntry(ctx context.Context, entry *WaitlistEntry) error {
	if entry.Status == "" {
		entry.Status = StatusPending
	}

	query := `
		INSERT INTO waitlist (
			id, name, email, phone, diagnosis, message,
			position, status, source, client_ip, user_agent
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			(SELECT COALESCE(MAX(position), 0) + 1 FROM waitlist),
			$7, $8, $9, $10
		)
		RETURNING position, created_at, updated_at
	`

	err := r.db.Pool().QueryRow(
		ctx,
		query,
		entry.ID,
		entry.Name,
		entry.Email,
		entry.Phone,
		entry.Diagnosis,
		entry.Message,
		entry.Status,
		entry.Source,
		entry.ClientIP,
		entry.UserAgent,
	).Scan(&entry.Position, &entry.CreatedAt, &entry.UpdatedAt)

	if err == nil {
		r.logger.Info("waitlist entry created",
			zap.String("id", entry.ID.String()),
			zap.Int64("position", entry.Position),
		)
		return nil
	}

	r.logger.Warn("positional waitlist insert failed, using timestamp fallback",
		zap.Error(err),
		zap.String("id", entry.ID.String()),
	)

	// Timestamp-derived fallback position. Monotonic with time but not
	// contiguous with the counter series.
	fallback := time.Now().Unix()

	fallbackQuery := `
		INSERT INTO waitlist (
			id, name, email, phone, diagnosis, message,
			position, status, source, client_ip, user_agent
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
		RETURNING position, created_at, updated_at
	`

	err = r.db.Pool().QueryRow(
		ctx,
		fallbackQuery,
		entry.ID,
		entry.Name,
		entry.Email,
		entry.Phone,
		entry.Diagnosis,
		entry.Message,
		fallback,
		entry.Status,
		entry.Source,
		entry.ClientIP,
		entry.UserAgent,
	).Scan(&entry.Position, &entry.CreatedAt, &entry.UpdatedAt)

	if err != nil {
		r.logger.Error("failed to create waitlist entry",
			zap.Error(err),
			zap.String("id", entry.ID.String()),
		)
		return fmt.Errorf("insert waitlist entry: %w", err)
	}

	return nil
}

// ListWaitlist retrieves waitlist entries ordered by position.
func (r *Repository) ListWaitlist(ctx context.Context, limit, offset int) ([]*WaitlistEntry, error) {
	query := `
		SELECT
			id, name, email, phone, diagnosis, message,
			position, status, source, client_ip, user_agent,
			created_at, updated_at
		FROM waitlist
		ORDER BY position ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Pool().Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query waitlist: %w", err)
	}
	defer rows.Close()

	var entries []*WaitlistEntry
	for rows.Next() {
		var e WaitlistEntry
		err := rows.Scan(
			&e.ID, &e.Name, &e.Email, &e.Phone, &e.Diagnosis, &e.Message,
			&e.Position, &e.Status, &e.Source, &e.ClientIP, &e.UserAgent,
			&e.CreatedAt, &e.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan waitlist entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return entries, nil
}

// UpdateWaitlistStatus moves an entry between pending and reviewed.
func (r *Repository) UpdateWaitlistStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `UPDATE waitlist SET status = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.db.Pool().Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update waitlist status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("waitlist entry not found: %s", id)
	}

	return nil
}

// CreateContact inserts a contact form submission.
func (r *Repository) CreateContact(ctx context.Context, c *ContactSubmission) error {
	if c.Status == "" {
		c.Status = StatusPending
	}

	query := `
		INSERT INTO contacts (
			id, name, email, phone, subject, message,
			status, source, client_ip, user_agent
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool().QueryRow(
		ctx,
		query,
		c.ID,
		c.Name,
		c.Email,
		c.Phone,
		c.Subject,
		c.Message,
		c.Status,
		c.Source,
		c.ClientIP,
		c.UserAgent,
	).Scan(&c.CreatedAt, &c.UpdatedAt)

	if err != nil {
		r.logger.Error("failed to create contact submission",
			zap.Error(err),
			zap.String("id", c.ID.String()),
		)
		return fmt.Errorf("insert contact: %w", err)
	}

	r.logger.Info("contact submission created", zap.String("id", c.ID.String()))

	return nil
}

// ListContacts retrieves contact submissions, newest first.
func (r *Repository) ListContacts(ctx context.Context, limit, offset int) ([]*ContactSubmission, error) {
	query := `
		SELECT
			id, name, email, phone, subject, message,
			status, source, client_ip, user_agent,
			created_at, updated_at
		FROM contacts
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Pool().Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	var contacts []*ContactSubmission
	for rows.Next() {
		var c ContactSubmission
		err := rows.Scan(
			&c.ID, &c.Name, &c.Email, &c.Phone, &c.Subject, &c.Message,
			&c.Status, &c.Source, &c.ClientIP, &c.UserAgent,
			&c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return contacts, nil
}

// CreateReferral inserts a provider referral with a zeroed contact counter.
func (r *Repository) CreateReferral(ctx context.Context, ref *Referral) error {
	if ref.Status == "" {
		ref.Status = StatusPending
	}

	query := `
		INSERT INTO referrals (
			id, referrer_name, referrer_email, organization,
			patient_name, patient_email, patient_phone, notes,
			status, contact_count, source, client_ip, user_agent
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10, $11, $12
		)
		RETURNING contact_count, created_at, updated_at
	`

	err := r.db.Pool().QueryRow(
		ctx,
		query,
		ref.ID,
		ref.ReferrerName,
		ref.ReferrerEmail,
		ref.Organization,
		ref.PatientName,
		ref.PatientEmail,
		ref.PatientPhone,
		ref.Notes,
		ref.Status,
		ref.Source,
		ref.ClientIP,
		ref.UserAgent,
	).Scan(&ref.ContactCount, &ref.CreatedAt, &ref.UpdatedAt)

	if err != nil {
		r.logger.Error("failed to create referral",
			zap.Error(err),
			zap.String("id", ref.ID.String()),
		)
		return fmt.Errorf("insert referral: %w", err)
	}

	r.logger.Info("referral created", zap.String("id", ref.ID.String()))

	return nil
}

// ListReferrals retrieves referrals, newest first.
func (r *Repository) ListReferrals(ctx context.Context, limit, offset int) ([]*Referral, error) {
	query := `
		SELECT
			id, referrer_name, referrer_email, organization,
			patient_name, patient_email, patient_phone, notes,
			status, contact_count, source, client_ip, user_agent,
			created_at, updated_at
		FROM referrals
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Pool().Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query referrals: %w", err)
	}
	defer rows.Close()

	var referrals []*Referral
	for rows.Next() {
		var ref Referral
		err := rows.Scan(
			&ref.ID, &ref.ReferrerName, &ref.ReferrerEmail, &ref.Organization,
			&ref.PatientName, &ref.PatientEmail, &ref.PatientPhone, &ref.Notes,
			&ref.Status, &ref.ContactCount, &ref.Source, &ref.ClientIP, &ref.UserAgent,
			&ref.CreatedAt, &ref.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan referral: %w", err)
		}
		referrals = append(referrals, &ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return referrals, nil
}

// UpdateReferralStatus records the admin review decision.
func (r *Repository) UpdateReferralStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `UPDATE referrals SET status = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.db.Pool().Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update referral status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("referral not found: %s", id)
	}

	r.logger.Info("referral status updated",
		zap.String("id", id.String()),
		zap.String("status", status),
	)

	return nil
}
