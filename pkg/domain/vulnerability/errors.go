package vulnerability

import (
	"fmt"

	"github.com/openctemio/scanledger/pkg/domain/shared"
)

var (
	ErrFindingNotFound         = fmt.Errorf("finding %w", shared.ErrNotFound)
	ErrInvalidStatusTransition = fmt.Errorf("%w: invalid finding status transition", shared.ErrValidation)
	ErrScanRequired            = fmt.Errorf("%w: scan id is required", shared.ErrValidation)
)

// NotFoundError creates a finding not found error with the ID.
func NotFoundError(id shared.ID) error {
	return fmt.Errorf("%w: id=%s", ErrFindingNotFound, id.String())
}
