package app

import (
	"context"
	"fmt"

	"github.com/openctemio/scanledger/pkg/domain/asset"
	"github.com/openctemio/scanledger/pkg/domain/shared"
	"github.com/openctemio/scanledger/pkg/logger"
)

const (
	defaultAssetListLimit = 100
	maxAssetListLimit     = 1000
)

// AssetService exposes reconciled assets for reading. Assets are only
// written by the ingestion pipeline.
type AssetService struct {
	repo   asset.Repository
	logger *logger.Logger
}

// NewAssetService creates a new AssetService.
func NewAssetService(repo asset.Repository, log *logger.Logger) *AssetService {
	return &AssetService{
		repo:   repo,
		logger: log.With("service", "asset"),
	}
}

// ListAssets returns up to limit assets, riskiest first. A non-positive
// limit selects the default; larger values are capped.
func (s *AssetService) ListAssets(ctx context.Context, limit int) ([]*asset.Asset, error) {
	switch {
	case limit <= 0:
		limit = defaultAssetListLimit
	case limit > maxAssetListLimit:
		limit = maxAssetListLimit
	}

	assets, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return assets, nil
}

// GetAsset returns the asset stored for host.
func (s *AssetService) GetAsset(ctx context.Context, host string) (*asset.Asset, error) {
	host = asset.NormalizeHost(host)
	if host == "" {
		return nil, fmt.Errorf("%w: host is required", shared.ErrValidation)
	}
	return s.repo.GetByHost(ctx, host)
}
