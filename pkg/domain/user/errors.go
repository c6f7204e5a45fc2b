package user

import (
	"fmt"

	"github.com/openctemio/scanledger/pkg/domain/shared"
)

// Domain errors for user operations.
var (
	ErrUserNotFound = fmt.Errorf("user %w", shared.ErrNotFound)
	ErrInvalidEmail = fmt.Errorf("%w: invalid email", shared.ErrValidation)
)

// NotFoundError creates a not found error for a specific user.
func NotFoundError(userID shared.ID) error {
	return fmt.Errorf("user with id %s %w", userID, shared.ErrNotFound)
}
