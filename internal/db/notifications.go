package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// notificationListCap bounds dashboard listings; the admin UI has no
// pagination beyond this.
const notificationListCap = 50

// CreateNotification appends a dashboard activity record.
func (r *Repository) CreateNotification(ctx context.Context, n *Notification) error {
	query := `
		INSERT INTO notifications (id, kind, title, message, link, read, payload)
		VALUES ($1, $2, $3, $4, $5, false, $6)
		RETURNING created_at
	`

	err := r.db.Pool().QueryRow(
		ctx,
		query,
		n.ID,
		n.Kind,
		n.Title,
		n.Message,
		n.Link,
		n.Payload,
	).Scan(&n.CreatedAt)

	if err != nil {
		r.logger.Error("failed to create notification",
			zap.Error(err),
			zap.String("id", n.ID.String()),
			zap.String("kind", n.Kind),
		)
		return fmt.Errorf("insert notification: %w", err)
	}

	return nil
}

// ListNotifications returns the newest notifications, capped at 50.
func (r *Repository) ListNotifications(ctx context.Context, unreadOnly bool) ([]*Notification, error) {
	query := `
		SELECT id, kind, title, message, link, read, payload, created_at
		FROM notifications
		WHERE ($1 = false OR read = false)
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Pool().Query(ctx, query, unreadOnly, notificationListCap)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*Notification
	for rows.Next() {
		var n Notification
		err := rows.Scan(
			&n.ID, &n.Kind, &n.Title, &n.Message, &n.Link, &n.Read, &n.Payload, &n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return notifications, nil
}

// MarkNotificationsRead flags the given notifications as read in one statement.
func (r *Repository) MarkNotificationsRead(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `UPDATE notifications SET read = true WHERE id = ANY($1)`

	result, err := r.db.Pool().Exec(ctx, query, ids)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}

	return result.RowsAffected(), nil
}

// MarkAllNotificationsRead flags every unread notification as read.
func (r *Repository) MarkAllNotificationsRead(ctx context.Context) (int64, error) {
	result, err := r.db.Pool().Exec(ctx, `UPDATE notifications SET read = true WHERE read = false`)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}

	return result.RowsAffected(), nil
}

// DeleteNotification removes a single notification.
func (r *Repository) DeleteNotification(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Pool().Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("notification not found: %s", id)
	}

	return nil
}

// DeleteReadNotificationsBefore removes read notifications created before the
// cutoff. Used by the dashboard's "clear old" action (30 days).
func (r *Repository) DeleteReadNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM notifications WHERE read = true AND created_at < $1`

	result, err := r.db.Pool().Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete read notifications: %w", err)
	}

	r.logger.Info("cleared read notifications",
		zap.Int64("deleted", result.RowsAffected()),
		zap.Time("cutoff", cutoff),
	)

	return result.RowsAffected(), nil
}

// DeleteAllNotifications empties the notification store.
func (r *Repository) DeleteAllNotifications(ctx context.Context) (int64, error) {
	result, err := r.db.Pool().Exec(ctx, `DELETE FROM notifications`)
	if err != nil {
		return 0, fmt.Errorf("delete all notifications: %w", err)
	}

	return result.RowsAffected(), nil
}
