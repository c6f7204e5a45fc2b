// Package notification holds in-app notifications sent to users when a scan
// batch completes or SLA breaches are found.
package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/openctemio/scanledger/pkg/domain/shared"
)

// Related item types.
const (
	RelatedItemScanBatch = "scan_batch"
	RelatedItemSLAReport = "sla_report"
)

// Notification is a message addressed to one recipient.
type Notification struct {
	id              shared.ID
	recipientID     shared.ID
	title           string
	message         string
	relatedItemType string
	relatedItemID   string
	createdAt       time.Time
	readAt          *time.Time
}

// Params contains parameters for creating a notification.
type Params struct {
	RecipientID     shared.ID
	Title           string
	Message         string
	RelatedItemType string
	RelatedItemID   string
}

// New creates an unread notification.
func New(p Params) (*Notification, error) {
	if p.RecipientID.IsZero() {
		return nil, fmt.Errorf("%w: recipient is required", shared.ErrValidation)
	}
	if strings.TrimSpace(p.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", shared.ErrValidation)
	}
	return &Notification{
		id:              shared.NewID(),
		recipientID:     p.RecipientID,
		title:           p.Title,
		message:         p.Message,
		relatedItemType: p.RelatedItemType,
		relatedItemID:   p.RelatedItemID,
		createdAt:       time.Now().UTC(),
	}, nil
}

// Reconstitute recreates a Notification from persistence.
func Reconstitute(id, recipientID shared.ID, title, message, relatedItemType, relatedItemID string, createdAt time.Time, readAt *time.Time) *Notification {
	return &Notification{
		id:              id,
		recipientID:     recipientID,
		title:           title,
		message:         message,
		relatedItemType: relatedItemType,
		relatedItemID:   relatedItemID,
		createdAt:       createdAt,
		readAt:          readAt,
	}
}

func (n *Notification) ID() shared.ID           { return n.id }
func (n *Notification) RecipientID() shared.ID  { return n.recipientID }
func (n *Notification) Title() string           { return n.title }
func (n *Notification) Message() string         { return n.message }
func (n *Notification) RelatedItemType() string { return n.relatedItemType }
func (n *Notification) RelatedItemID() string   { return n.relatedItemID }
func (n *Notification) CreatedAt() time.Time    { return n.createdAt }
func (n *Notification) ReadAt() *time.Time      { return n.readAt }
