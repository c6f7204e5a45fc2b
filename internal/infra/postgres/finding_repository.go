package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/openctemio/scanledger/pkg/domain/shared"
	"github.com/openctemio/scanledger/pkg/domain/vulnerability"
)

// FindingRepository implements vulnerability.FindingRepository using PostgreSQL.
type FindingRepository struct {
	db *DB
}

// NewFindingRepository creates a new FindingRepository.
func NewFindingRepository(db *DB) *FindingRepository {
	return &FindingRepository{db: db}
}

const findingColumns = `
	id, scan_id, external_vuln_id, template_id, template_name, severity, host,
	matched_at, matcher_name, matcher_status, content_hash, description,
	status, assigned_to, created_at, updated_at
`

const insertFindingQuery = `
	INSERT INTO findings (` + findingColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
`

// CreateBatch inserts all findings of one scan batch in a single transaction.
func (r *FindingRepository) CreateBatch(ctx context.Context, findings []*vulnerability.Finding) error {
	if len(findings) == 0 {
		return nil
	}
	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		return r.insertAll(ctx, tx, findings)
	})
}

// CreateBatchInTx inserts findings within an existing transaction.
func (r *FindingRepository) CreateBatchInTx(ctx context.Context, tx *sql.Tx, findings []*vulnerability.Finding) error {
	if len(findings) == 0 {
		return nil
	}
	return r.insertAll(ctx, tx, findings)
}

func (r *FindingRepository) insertAll(ctx context.Context, exec executor, findings []*vulnerability.Finding) error {
	stmt, err := exec.PrepareContext(ctx, insertFindingQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, f := range findings {
		_, err := stmt.ExecContext(ctx,
			f.ID().String(),
			f.ScanID().String(),
			f.ExternalVulnID(),
			f.TemplateID(),
			f.TemplateName(),
			f.Severity().String(),
			f.Host(),
			f.MatchedAt(),
			f.MatcherName(),
			f.MatcherStatus(),
			f.ContentHash(),
			f.Description(),
			f.Status().String(),
			nullID(f.AssignedTo()),
			f.CreatedAt(),
			f.UpdatedAt(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert finding %s: %w", f.ID(), err)
		}
	}
	return nil
}

// GetByID retrieves a finding by ID.
func (r *FindingRepository) GetByID(ctx context.Context, id shared.ID) (*vulnerability.Finding, error) {
	query := `SELECT ` + findingColumns + ` FROM findings WHERE id = $1`
	f, err := scanFinding(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, vulnerability.NotFoundError(id)
		}
		return nil, fmt.Errorf("failed to get finding: %w", err)
	}
	return f, nil
}

// Update persists status and assignee changes. Nothing else about a
// finding changes after ingest.
func (r *FindingRepository) Update(ctx context.Context, f *vulnerability.Finding) error {
	query := `
		UPDATE findings
		SET status = $2, assigned_to = $3, updated_at = $4
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		f.ID().String(),
		f.Status().String(),
		nullID(f.AssignedTo()),
		f.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to update finding: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return vulnerability.NotFoundError(f.ID())
	}
	return nil
}

// ListUnclosed returns every finding whose status is not closed.
func (r *FindingRepository) ListUnclosed(ctx context.Context) ([]*vulnerability.Finding, error) {
	query := `SELECT ` + findingColumns + ` FROM findings WHERE status <> 'closed' ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list unclosed findings: %w", err)
	}
	defer rows.Close()

	var findings []*vulnerability.Finding
	for rows.Next() {
		f, err := scanFinding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

// CountByScan counts the findings of one batch.
func (r *FindingRepository) CountByScan(ctx context.Context, scanID shared.ID) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM findings WHERE scan_id = $1`, scanID.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count findings: %w", err)
	}
	return n, nil
}

func scanFinding(row rowScanner) (*vulnerability.Finding, error) {
	var (
		id, scanID                           shared.ID
		externalVulnID, templateID, template string
		severity, host, matcherName          string
		contentHash, description, status     string
		matcherStatus                        bool
		assignedTo                           sql.NullString
		matchedAt, createdAt, updatedAt      time.Time
	)
	err := row.Scan(
		&id, &scanID, &externalVulnID, &templateID, &template, &severity, &host,
		&matchedAt, &matcherName, &matcherStatus, &contentHash, &description,
		&status, &assignedTo, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	return vulnerability.Reconstitute(
		id, scanID,
		externalVulnID, templateID, template, severity, host,
		matchedAt.UTC(),
		matcherName,
		matcherStatus,
		contentHash, description, status,
		parseNullID(assignedTo),
		createdAt.UTC(), updatedAt.UTC(),
	), nil
}
