package app

import (
	"context"
	"fmt"
	"time"

	"github.com/openctemio/scanledger/pkg/domain/shared"
	"github.com/openctemio/scanledger/pkg/domain/sla"
	"github.com/openctemio/scanledger/pkg/domain/vulnerability"
	"github.com/openctemio/scanledger/pkg/logger"
)

// NameResolver resolves user ids to display names.
type NameResolver interface {
	Resolve(ctx context.Context, ids []shared.ID) (map[shared.ID]string, error)
}

// DashboardService builds the SLA and distribution summary.
type DashboardService struct {
	findingRepo vulnerability.FindingRepository
	names       NameResolver
	policy      *sla.Policy
	now         func() time.Time
	logger      *logger.Logger
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(
	findingRepo vulnerability.FindingRepository,
	names NameResolver,
	policy *sla.Policy,
	log *logger.Logger,
) *DashboardService {
	if policy == nil {
		policy = sla.DefaultPolicy()
	}
	return &DashboardService{
		findingRepo: findingRepo,
		names:       names,
		policy:      policy,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      log.With("service", "dashboard"),
	}
}

// GetSummary reads the unclosed findings once and summarizes them as of now.
func (s *DashboardService) GetSummary(ctx context.Context) (*Summary, error) {
	findings, err := s.findingRepo.ListUnclosed(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unclosed findings: %w", err)
	}

	var names map[shared.ID]string
	if ids := assigneeIDs(findings); len(ids) > 0 && s.names != nil {
		names, err = s.names.Resolve(ctx, ids)
		if err != nil {
			// Unresolved assignees are reported by id.
			s.logger.Warn("failed to resolve assignee names", "error", err)
			names = nil
		}
	}

	summary := Summarize(findings, s.policy, names, s.now())
	return &summary, nil
}
