package vulnerability

import (
	"context"
	"database/sql"

	"github.com/openctemio/scanledger/pkg/domain/shared"
)

// FindingRepository defines the persistence contract for findings.
type FindingRepository interface {
	// CreateBatch inserts all findings of one scan batch.
	CreateBatch(ctx context.Context, findings []*Finding) error

	// CreateBatchInTx inserts findings within an existing transaction.
	CreateBatchInTx(ctx context.Context, tx *sql.Tx, findings []*Finding) error

	GetByID(ctx context.Context, id shared.ID) (*Finding, error)

	// Update persists status and assignee changes.
	Update(ctx context.Context, finding *Finding) error

	// ListUnclosed returns every finding whose status is not closed,
	// read in a single statement.
	ListUnclosed(ctx context.Context) ([]*Finding, error)

	CountByScan(ctx context.Context, scanID shared.ID) (int64, error)
}
