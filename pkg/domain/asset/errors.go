package asset

import (
	"fmt"

	"github.com/openctemio/scanledger/pkg/domain/shared"
)

// Domain-specific errors for asset.
var (
	ErrAssetNotFound      = fmt.Errorf("asset %w", shared.ErrNotFound)
	ErrAssetAlreadyExists = fmt.Errorf("asset %w", shared.ErrAlreadyExists)
)

// NotFoundError creates an asset not found error with the host.
func NotFoundError(host string) error {
	return fmt.Errorf("%w: host=%s", ErrAssetNotFound, host)
}

// AlreadyExistsError creates an asset already exists error with the host.
func AlreadyExistsError(host string) error {
	return fmt.Errorf("%w: host=%s", ErrAssetAlreadyExists, host)
}
