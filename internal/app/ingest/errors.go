package ingest

import (
	"errors"
	"fmt"

	"github.com/openctemio/scanledger/pkg/domain/shared"
	"github.com/openctemio/scanledger/pkg/parsers/scanresult"
)

// Pipeline errors. Parse and format errors are batch-scoped unless they
// are reported per line in Output.LineErrors.
var (
	ErrUnsupportedFormat = scanresult.ErrUnsupportedFormat
	ErrParse             = scanresult.ErrParse
	ErrPayloadTooLarge   = fmt.Errorf("%w: payload too large", shared.ErrValidation)
	ErrNoValidRecords    = fmt.Errorf("%w: no valid records", ErrParse)
	ErrPersistence       = fmt.Errorf("%w: persist scan batch", shared.ErrInternal)
	ErrReconciliation    = errors.New("asset reconciliation failed")
	ErrNotification      = errors.New("notification dispatch failed")
)
