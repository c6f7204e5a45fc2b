package app

import (
	"context"
	"fmt"

	notificationclient "github.com/openctemio/scanledger/internal/infra/notification"
	"github.com/openctemio/scanledger/pkg/domain/notification"
	"github.com/openctemio/scanledger/pkg/domain/shared"
	"github.com/openctemio/scanledger/pkg/logger"
)

// Status constants for notification results.
const (
	notificationStatusFailed  = "failed"
	notificationStatusSuccess = "success"
)

// NotificationEnqueuer hands a notification to the background queue.
type NotificationEnqueuer interface {
	EnqueueNotification(ctx context.Context, n *notification.Notification) error
}

// NotificationService creates in-app notifications and, when configured,
// forwards them to an outbound webhook.
//
// With an enqueuer, Dispatch only queues the notification and the worker
// calls Deliver. Without one, Dispatch delivers inline.
type NotificationService struct {
	repo     notification.Repository
	enqueuer NotificationEnqueuer
	webhook  notificationclient.Client
	logger   *logger.Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(repo notification.Repository, log *logger.Logger) *NotificationService {
	return &NotificationService{
		repo:   repo,
		logger: log.With("service", "notification"),
	}
}

// SetEnqueuer routes Dispatch through the job queue.
func (s *NotificationService) SetEnqueuer(e NotificationEnqueuer) {
	s.enqueuer = e
}

// SetWebhookClient forwards delivered notifications to a webhook.
func (s *NotificationService) SetWebhookClient(c notificationclient.Client) {
	s.webhook = c
}

// Dispatch creates a notification for one recipient.
func (s *NotificationService) Dispatch(ctx context.Context, params notification.Params) error {
	n, err := notification.New(params)
	if err != nil {
		return err
	}

	kind := params.RelatedItemType
	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueNotification(ctx, n); err != nil {
			NotificationsDispatched.WithLabelValues(kind, notificationStatusFailed).Inc()
			return fmt.Errorf("enqueue notification: %w", err)
		}
		NotificationsDispatched.WithLabelValues(kind, notificationStatusSuccess).Inc()
		return nil
	}

	if err := s.Deliver(ctx, n); err != nil {
		NotificationsDispatched.WithLabelValues(kind, notificationStatusFailed).Inc()
		return err
	}
	NotificationsDispatched.WithLabelValues(kind, notificationStatusSuccess).Inc()
	return nil
}

// Deliver stores the notification and forwards it to the webhook. Storing
// is idempotent on the notification id, so a retried delivery does not
// duplicate it. A webhook failure is returned so the queue retries.
func (s *NotificationService) Deliver(ctx context.Context, n *notification.Notification) error {
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	if s.webhook == nil {
		return nil
	}

	result, err := s.webhook.Send(ctx, notificationclient.Message{
		Kind:  n.RelatedItemType(),
		Title: n.Title(),
		Body:  n.Message(),
		Fields: map[string]string{
			"recipient_id":      n.RecipientID().String(),
			"related_item_type": n.RelatedItemType(),
			"related_item_id":   n.RelatedItemID(),
		},
	})
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("send webhook: %s", result.Error)
	}

	s.logger.Debug("notification delivered",
		"notification_id", n.ID().String(),
		"recipient_id", n.RecipientID().String(),
	)
	return nil
}

// ListForRecipient returns the most recent notifications of one user.
func (s *NotificationService) ListForRecipient(ctx context.Context, recipientID shared.ID, limit int) ([]*notification.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByRecipient(ctx, recipientID, limit)
}
