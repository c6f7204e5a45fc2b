package asset

import (
	"context"

	"github.com/openctemio/scanledger/pkg/domain/shared"
)

// Repository defines the persistence contract for assets.
type Repository interface {
	// GetByHost looks up an asset by exact host match.
	GetByHost(ctx context.Context, host string) (*Asset, error)

	// Create persists a new asset. Returns ErrAssetAlreadyExists when
	// another writer created the same host first.
	Create(ctx context.Context, asset *Asset) error

	// IncrementVulnerabilityCount adds delta to the stored counter in a
	// single atomic statement and records the contributing batch.
	// Returns the new count.
	IncrementVulnerabilityCount(ctx context.Context, host string, delta int, uploadSessionID shared.ID) (int, error)

	// UpdateRiskScore overwrites the stored risk score.
	UpdateRiskScore(ctx context.Context, host string, score int) error

	// List returns assets ordered by risk score, highest first.
	List(ctx context.Context, limit int) ([]*Asset, error)
}
