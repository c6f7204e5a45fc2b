package notification

import (
	"context"

	"github.com/openctemio/scanledger/pkg/domain/shared"
)

// Repository persists notifications.
type Repository interface {
	// Create stores a notification. Creating the same id twice is a no-op so
	// retried deliveries do not duplicate messages.
	Create(ctx context.Context, n *Notification) error

	ListByRecipient(ctx context.Context, recipientID shared.ID, limit int) ([]*Notification, error)
}
