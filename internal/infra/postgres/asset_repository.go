package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/openctemio/scanledger/pkg/domain/asset"
	"github.com/openctemio/scanledger/pkg/domain/shared"
)

// AssetRepository implements asset.Repository using PostgreSQL.
type AssetRepository struct {
	db *DB
}

// NewAssetRepository creates a new AssetRepository.
func NewAssetRepository(db *DB) *AssetRepository {
	return &AssetRepository{db: db}
}

const assetColumns = `
	id, fqdn_or_ip, ip_address, root_domain, vulnerability_count, risk_score,
	upload_session_id, created_at, updated_at
`

// GetByHost looks up an asset by exact host match.
func (r *AssetRepository) GetByHost(ctx context.Context, host string) (*asset.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE fqdn_or_ip = $1`
	a, err := scanAsset(r.db.QueryRowContext(ctx, query, host))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, asset.NotFoundError(host)
		}
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return a, nil
}

// Create persists a new asset. A concurrent writer that created the same
// host first surfaces as ErrAssetAlreadyExists so callers can fall back to
// the increment path.
func (r *AssetRepository) Create(ctx context.Context, a *asset.Asset) error {
	query := `
		INSERT INTO assets (` + assetColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (fqdn_or_ip) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query,
		a.ID().String(),
		a.FQDNOrIP(),
		nullString(a.IPAddress()),
		nullString(a.RootDomain()),
		a.VulnerabilityCount(),
		a.RiskScore(),
		nullIDValue(a.UploadSessionID()),
		a.CreatedAt(),
		a.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return asset.AlreadyExistsError(a.FQDNOrIP())
		}
		return fmt.Errorf("failed to create asset: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return asset.AlreadyExistsError(a.FQDNOrIP())
	}
	return nil
}

// IncrementVulnerabilityCount adds delta to the stored counter in one
// statement, so concurrent batches touching the same host never lose an
// update.
func (r *AssetRepository) IncrementVulnerabilityCount(ctx context.Context, host string, delta int, uploadSessionID shared.ID) (int, error) {
	query := `
		UPDATE assets
		SET vulnerability_count = vulnerability_count + $2,
			upload_session_id = $3,
			updated_at = $4
		WHERE fqdn_or_ip = $1
		RETURNING vulnerability_count
	`
	var count int
	err := r.db.QueryRowContext(ctx, query, host, delta, nullIDValue(uploadSessionID), time.Now().UTC()).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, asset.NotFoundError(host)
		}
		return 0, fmt.Errorf("failed to increment vulnerability count: %w", err)
	}
	return count, nil
}

// UpdateRiskScore overwrites the stored risk score.
func (r *AssetRepository) UpdateRiskScore(ctx context.Context, host string, score int) error {
	query := `UPDATE assets SET risk_score = $2, updated_at = $3 WHERE fqdn_or_ip = $1`
	res, err := r.db.ExecContext(ctx, query, host, score, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update risk score: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return asset.NotFoundError(host)
	}
	return nil
}

// List returns assets ordered by risk score, highest first.
func (r *AssetRepository) List(ctx context.Context, limit int) ([]*asset.Asset, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + assetColumns + ` FROM assets ORDER BY risk_score DESC, fqdn_or_ip LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var assets []*asset.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func scanAsset(row rowScanner) (*asset.Asset, error) {
	var (
		id                    shared.ID
		fqdnOrIP              string
		ipAddress, rootDomain sql.NullString
		count, score          int
		sessionID             sql.NullString
		createdAt, updatedAt  time.Time
	)
	if err := row.Scan(&id, &fqdnOrIP, &ipAddress, &rootDomain, &count, &score, &sessionID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var uploadSessionID shared.ID
	if parsed := parseNullID(sessionID); parsed != nil {
		uploadSessionID = *parsed
	}

	return asset.Reconstitute(
		id,
		fqdnOrIP, nullStringValue(ipAddress), nullStringValue(rootDomain),
		count, score,
		uploadSessionID,
		createdAt.UTC(), updatedAt.UTC(),
	), nil
}
