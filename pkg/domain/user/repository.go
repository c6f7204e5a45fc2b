package user

import (
	"context"

	"github.com/openctemio/scanledger/pkg/domain/shared"
)

// Repository defines the user persistence contract.
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id shared.ID) (*User, error)

	// ListIngestRecipients returns active users opted in to batch notifications.
	ListIngestRecipients(ctx context.Context) ([]*User, error)

	// GetDisplayNames resolves user ids to display names. Unknown ids are omitted.
	GetDisplayNames(ctx context.Context, ids []shared.ID) (map[shared.ID]string, error)
}
