package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/openctemio/scanledger/pkg/apierror"
	"github.com/openctemio/scanledger/pkg/domain/notification"
	"github.com/openctemio/scanledger/pkg/domain/shared"
	"github.com/openctemio/scanledger/pkg/logger"
)

const defaultNotificationLimit = 50

// NotificationLister reads a user's notifications.
type NotificationLister interface {
	ListForRecipient(ctx context.Context, recipientID shared.ID, limit int) ([]*notification.Notification, error)
}

// NotificationHandler serves per-user notification inboxes.
type NotificationHandler struct {
	service NotificationLister
	logger  *logger.Logger
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(svc NotificationLister, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: svc,
		logger:  log.With("handler", "notification"),
	}
}

// NotificationResponse represents a notification in API responses.
type NotificationResponse struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Message         string     `json:"message"`
	RelatedItemType string     `json:"related_item_type,omitempty"`
	RelatedItemID   string     `json:"related_item_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ReadAt          *time.Time `json:"read_at,omitempty"`
}

// ListForUser handles GET /api/v1/users/{id}/notifications.
func (h *NotificationHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	userID, err := shared.IDFromString(r.PathValue("id"))
	if err != nil {
		apierror.BadRequest("Invalid user ID").WriteJSON(w)
		return
	}
	limit := parseQueryInt(r.URL.Query().Get("limit"), defaultNotificationLimit)

	items, err := h.service.ListForRecipient(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("failed to list notifications", "user_id", userID.String(), "error", err)
		apierror.InternalError(err).WriteJSON(w)
		return
	}

	data := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		data = append(data, NotificationResponse{
			ID:              n.ID().String(),
			Title:           n.Title(),
			Message:         n.Message(),
			RelatedItemType: n.RelatedItemType(),
			RelatedItemID:   n.RelatedItemID(),
			CreatedAt:       n.CreatedAt(),
			ReadAt:          n.ReadAt(),
		})
	}
	writeJSON(w, http.StatusOK, ListResponse[NotificationResponse]{Data: data, Total: len(data)})
}
