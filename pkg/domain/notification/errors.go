package notification

import (
	"fmt"

	"github.com/openctemio/scanledger/pkg/domain/shared"
)

// ErrNotificationNotFound is returned when a notification is not found.
var ErrNotificationNotFound = fmt.Errorf("notification %w", shared.ErrNotFound)
