package scan

import (
	"fmt"

	"github.com/openctemio/scanledger/pkg/domain/shared"
)

// ErrBatchNotFound is returned when a scan batch does not exist.
var ErrBatchNotFound = fmt.Errorf("scan batch %w", shared.ErrNotFound)
