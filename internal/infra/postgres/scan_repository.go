package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openctemio/scanledger/pkg/domain/scan"
	"github.com/openctemio/scanledger/pkg/domain/shared"
)

// ScanRepository implements scan.Repository using PostgreSQL.
type ScanRepository struct {
	db *DB
}

// NewScanRepository creates a new ScanRepository.
func NewScanRepository(db *DB) *ScanRepository {
	return &ScanRepository{db: db}
}

const insertBatchQuery = `
	INSERT INTO scan_batches (id, name, type, results, created_at)
	VALUES ($1, $2, $3, $4, $5)
`

// Create persists a new scan batch.
func (r *ScanRepository) Create(ctx context.Context, b *scan.Batch) error {
	return r.create(ctx, r.db, b)
}

// CreateInTx persists a new scan batch within an existing transaction.
func (r *ScanRepository) CreateInTx(ctx context.Context, tx *sql.Tx, b *scan.Batch) error {
	return r.create(ctx, tx, b)
}

func (r *ScanRepository) create(ctx context.Context, exec executor, b *scan.Batch) error {
	results, err := b.ResultsForStorage()
	if err != nil {
		return fmt.Errorf("failed to encode batch results: %w", err)
	}

	_, err = exec.ExecContext(ctx, insertBatchQuery,
		b.ID.String(),
		b.Name,
		string(b.Type),
		results,
		b.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError(shared.CodeAlreadyExists, "scan batch already exists", shared.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create scan batch: %w", err)
	}
	return nil
}

// GetByID retrieves a scan batch by ID.
func (r *ScanRepository) GetByID(ctx context.Context, id shared.ID) (*scan.Batch, error) {
	query := `SELECT id, name, type, results, created_at FROM scan_batches WHERE id = $1`

	var (
		b         scan.Batch
		batchType string
	)
	err := r.db.QueryRowContext(ctx, query, id.String()).Scan(&b.ID, &b.Name, &batchType, &b.Results, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, scan.ErrBatchNotFound
		}
		return nil, fmt.Errorf("failed to get scan batch: %w", err)
	}
	b.Type = scan.BatchType(batchType)
	b.CreatedAt = b.CreatedAt.UTC()
	return &b, nil
}
