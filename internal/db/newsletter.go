package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// GetSubscription retrieves a newsletter subscription by normalized email.
// Returns (nil, nil) when no subscription exists.
func (r *Repository) GetSubscription(ctx context.Context, email string) (*NewsletterSubscription, error) {
	query := `
		SELECT email, status, source, unsubscribe_token, subscribed_at, unsubscribed_at
		FROM newsletter
		WHERE email = $1
	`

	var sub NewsletterSubscription
	err := r.db.Pool().QueryRow(ctx, query, email).Scan(
		&sub.Email,
		&sub.Status,
		&sub.Source,
		&sub.UnsubscribeToken,
		&sub.SubscribedAt,
		&sub.UnsubscribedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query subscription: %w", err)
	}

	return &sub, nil
}

// UpsertSubscription activates a subscription, creating the row if absent.
// The email column is the primary key, so a concurrent first-time subscribe
// collapses into a single active row instead of a duplicate.
func (r *Repository) UpsertSubscription(ctx context.Context, sub *NewsletterSubscription) error {
	query := `
		INSERT INTO newsletter (email, status, source, unsubscribe_token, subscribed_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (email) DO UPDATE SET
			status = EXCLUDED.status,
			source = EXCLUDED.source,
			unsubscribe_token = EXCLUDED.unsubscribe_token,
			subscribed_at = NOW(),
			unsubscribed_at = NULL
		RETURNING subscribed_at
	`

	err := r.db.Pool().QueryRow(
		ctx,
		query,
		sub.Email,
		sub.Status,
		sub.Source,
		sub.UnsubscribeToken,
	).Scan(&sub.SubscribedAt)

	if err != nil {
		r.logger.Error("failed to upsert subscription",
			zap.Error(err),
			zap.String("email", sub.Email),
		)
		return fmt.Errorf("upsert subscription: %w", err)
	}

	r.logger.Info("newsletter subscription active", zap.String("email", sub.Email))

	return nil
}

// Unsubscribe marks an active subscription as unsubscribed when the token
// matches. Returns the number of rows changed: zero means the record was
// missing, the token did not match, or the subscription was already inactive.
func (r *Repository) Unsubscribe(ctx context.Context, email, token string) (int64, error) {
	query := `
		UPDATE newsletter
		SET status = $1, unsubscribed_at = NOW()
		WHERE email = $2 AND unsubscribe_token = $3 AND status = $4
	`

	result, err := r.db.Pool().Exec(ctx, query, NewsletterUnsubscribed, email, token, NewsletterActive)
	if err != nil {
		return 0, fmt.Errorf("unsubscribe: %w", err)
	}

	if result.RowsAffected() > 0 {
		r.logger.Info("newsletter unsubscribed", zap.String("email", email))
	}

	return result.RowsAffected(), nil
}
