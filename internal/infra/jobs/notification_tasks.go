package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/openctemio/scanledger/pkg/domain/notification"
	"github.com/openctemio/scanledger/pkg/domain/shared"
	"github.com/openctemio/scanledger/pkg/logger"
)

// =============================================================================
// Task Types
// =============================================================================

const (
	// TypeNotificationDeliver stores a notification and forwards it to the webhook.
	TypeNotificationDeliver = "notification:deliver"

	// QueueNotifications is the queue notification tasks run on.
	QueueNotifications = "notifications"
)

// =============================================================================
// Task Payloads
// =============================================================================

// NotificationDeliverPayload carries a notification across the queue.
type NotificationDeliverPayload struct {
	ID              string    `json:"id"`
	RecipientID     string    `json:"recipient_id"`
	Title           string    `json:"title"`
	Message         string    `json:"message"`
	RelatedItemType string    `json:"related_item_type,omitempty"`
	RelatedItemID   string    `json:"related_item_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func (p NotificationDeliverPayload) toNotification() (*notification.Notification, error) {
	id, err := shared.IDFromString(p.ID)
	if err != nil {
		return nil, fmt.Errorf("notification id: %w", err)
	}
	recipientID, err := shared.IDFromString(p.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("recipient id: %w", err)
	}
	return notification.Reconstitute(id, recipientID, p.Title, p.Message, p.RelatedItemType, p.RelatedItemID, p.CreatedAt, nil), nil
}

// =============================================================================
// Task Creators
// =============================================================================

// NewNotificationDeliverTask creates a delivery task for n.
func NewNotificationDeliverTask(n *notification.Notification, maxRetry int) (*asynq.Task, error) {
	payload, err := json.Marshal(NotificationDeliverPayload{
		ID:              n.ID().String(),
		RecipientID:     n.RecipientID().String(),
		Title:           n.Title(),
		Message:         n.Message(),
		RelatedItemType: n.RelatedItemType(),
		RelatedItemID:   n.RelatedItemID(),
		CreatedAt:       n.CreatedAt(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal notification payload: %w", err)
	}

	return asynq.NewTask(
		TypeNotificationDeliver,
		payload,
		asynq.TaskID(n.ID().String()),
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(30*time.Second),
		asynq.Queue(QueueNotifications),
	), nil
}

// =============================================================================
// Task Handlers
// =============================================================================

// NotificationDeliverer performs the actual delivery.
// It is implemented by the notification service.
type NotificationDeliverer interface {
	Deliver(ctx context.Context, n *notification.Notification) error
}

// NotificationTaskHandler handles notification tasks.
type NotificationTaskHandler struct {
	deliverer NotificationDeliverer
	logger    *logger.Logger
}

// NewNotificationTaskHandler creates a new notification task handler.
func NewNotificationTaskHandler(d NotificationDeliverer, log *logger.Logger) *NotificationTaskHandler {
	return &NotificationTaskHandler{
		deliverer: d,
		logger:    log.With("component", "notification_tasks"),
	}
}

// HandleDeliver handles the notification deliver task. A malformed payload
// is not retried.
func (h *NotificationTaskHandler) HandleDeliver(ctx context.Context, t *asynq.Task) error {
	var payload NotificationDeliverPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	n, err := payload.toNotification()
	if err != nil {
		return fmt.Errorf("decode payload: %w: %w", err, asynq.SkipRetry)
	}

	if err := h.deliverer.Deliver(ctx, n); err != nil {
		h.logger.Warn("notification delivery failed",
			"notification_id", payload.ID,
			"recipient_id", payload.RecipientID,
			"error", err,
		)
		return err
	}
	return nil
}

// RegisterHandlers registers notification task handlers with the asynq server mux.
func (h *NotificationTaskHandler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeNotificationDeliver, h.HandleDeliver)
}
