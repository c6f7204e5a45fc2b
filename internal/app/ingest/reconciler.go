package ingest

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/openctemio/scanledger/internal/metrics"
	"github.com/openctemio/scanledger/pkg/domain/asset"
	"github.com/openctemio/scanledger/pkg/domain/shared"
	"github.com/openctemio/scanledger/pkg/domain/vulnerability"
	"github.com/openctemio/scanledger/pkg/logger"
)

// AssetReconciler keeps exactly one asset per host. A host seen for the
// first time is created with the batch's count and score; a known host has
// its counter incremented atomically by the store and its score replaced
// by the score of the current batch.
type AssetReconciler struct {
	repo    asset.Repository
	workers int
	logger  *logger.Logger
}

// ReconcileResult summarizes one batch's reconciliation.
type ReconcileResult struct {
	Created  int
	Updated  int
	Failures []HostError
}

// NewAssetReconciler creates a reconciler that works on up to workers
// hosts at once.
func NewAssetReconciler(repo asset.Repository, workers int, log *logger.Logger) *AssetReconciler {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &AssetReconciler{
		repo:    repo,
		workers: workers,
		logger:  log.With("component", "asset_reconciler"),
	}
}

type hostOutcome struct {
	created bool
	err     error
}

// Reconcile applies one batch's findings to the asset store. A failing
// host never stops the others; its error is collected in the result.
func (r *AssetReconciler) Reconcile(ctx context.Context, batchID shared.ID, findings []*vulnerability.Finding) ReconcileResult {
	groups := groupByHost(findings)
	outcomes := make([]hostOutcome, len(groups))

	// Each host maps to a distinct row, so hosts can run in parallel.
	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, grp := range groups {
		g.Go(func() error {
			created, err := r.reconcileHost(ctx, batchID, grp)
			outcomes[i] = hostOutcome{created: created, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var result ReconcileResult
	for i, o := range outcomes {
		host := groups[i].host
		switch {
		case o.err != nil:
			err := fmt.Errorf("%w: host %s: %w", ErrReconciliation, host, o.err)
			result.Failures = append(result.Failures, HostError{Host: host, Message: err.Error(), Err: err})
			metrics.AssetsReconciled.WithLabelValues("failed").Inc()
			r.logger.Warn("failed to reconcile asset", "host", host, "error", o.err)
		case o.created:
			result.Created++
			metrics.AssetsReconciled.WithLabelValues("created").Inc()
		default:
			result.Updated++
			metrics.AssetsReconciled.WithLabelValues("updated").Inc()
		}
	}
	return result
}

// reconcileHost creates or increments the asset for one host. created is
// true only when this call inserted the row.
func (r *AssetReconciler) reconcileHost(ctx context.Context, batchID shared.ID, grp hostGroup) (created bool, err error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	count := len(grp.findings)
	score := asset.CalculateRiskScore(grp.findings)

	_, err = r.repo.GetByHost(ctx, grp.host)
	switch {
	case errors.Is(err, asset.ErrAssetNotFound):
		a, err := asset.NewAsset(grp.host, count, score, batchID)
		if err != nil {
			return false, err
		}
		err = r.repo.Create(ctx, a)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, asset.ErrAssetAlreadyExists) {
			return false, fmt.Errorf("create asset: %w", err)
		}
		// Another batch created the host between lookup and insert.
		metrics.AssetCreateConflicts.Inc()
		r.logger.Debug("asset created concurrently, incrementing instead", "host", grp.host)
	case err != nil:
		return false, fmt.Errorf("get asset: %w", err)
	}

	if _, err := r.repo.IncrementVulnerabilityCount(ctx, grp.host, count, batchID); err != nil {
		return false, fmt.Errorf("increment vulnerability count: %w", err)
	}
	if err := r.repo.UpdateRiskScore(ctx, grp.host, score); err != nil {
		return false, fmt.Errorf("update risk score: %w", err)
	}
	return false, nil
}
