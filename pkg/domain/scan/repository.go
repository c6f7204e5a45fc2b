package scan

import (
	"context"
	"database/sql"

	"github.com/openctemio/scanledger/pkg/domain/shared"
)

// Repository persists scan batches.
type Repository interface {
	Create(ctx context.Context, batch *Batch) error

	// CreateInTx inserts the batch within an existing transaction so the
	// batch and its findings are committed together.
	CreateInTx(ctx context.Context, tx *sql.Tx, batch *Batch) error

	GetByID(ctx context.Context, id shared.ID) (*Batch, error)
}
