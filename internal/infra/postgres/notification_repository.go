package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/openctemio/scanledger/pkg/domain/notification"
	"github.com/openctemio/scanledger/pkg/domain/shared"
)

// NotificationRepository implements notification.Repository using PostgreSQL.
type NotificationRepository struct {
	db *DB
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create stores a notification. A retried delivery of the same id is a no-op.
func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	query := `
		INSERT INTO notifications (id, recipient_id, title, message, related_item_type, related_item_id, created_at, read_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`
	var readAt sql.NullTime
	if n.ReadAt() != nil {
		readAt = sql.NullTime{Time: *n.ReadAt(), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		n.ID().String(),
		n.RecipientID().String(),
		n.Title(),
		n.Message(),
		n.RelatedItemType(),
		n.RelatedItemID(),
		n.CreatedAt(),
		readAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// ListByRecipient returns the newest notifications of one user.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID shared.ID, limit int) ([]*notification.Notification, error) {
	query := `
		SELECT id, recipient_id, title, message, related_item_type, related_item_id, created_at, read_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, recipientID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []*notification.Notification
	for rows.Next() {
		var (
			id, recipient                    shared.ID
			title, message, itemType, itemID string
			createdAt                        time.Time
			readAt                           sql.NullTime
		)
		if err := rows.Scan(&id, &recipient, &title, &message, &itemType, &itemID, &createdAt, &readAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, notification.Reconstitute(id, recipient, title, message, itemType, itemID, createdAt.UTC(), nullTimeValue(readAt)))
	}
	return out, rows.Err()
}
