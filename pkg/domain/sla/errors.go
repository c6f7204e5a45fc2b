package sla

import (
	"fmt"

	"github.com/openctemio/scanledger/pkg/domain/shared"
)

// ErrInvalidPolicy is returned for malformed policy overrides.
var ErrInvalidPolicy = fmt.Errorf("%w: invalid sla policy", shared.ErrValidation)
