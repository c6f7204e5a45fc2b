package app

import (
	"context"
	"fmt"
	"time"

	"github.com/openctemio/scanledger/pkg/domain/shared"
	"github.com/openctemio/scanledger/pkg/domain/sla"
	"github.com/openctemio/scanledger/pkg/domain/user"
	"github.com/openctemio/scanledger/pkg/domain/vulnerability"
	"github.com/openctemio/scanledger/pkg/logger"
)

// FindingService handles the post-ingest finding workflow: status
// transitions and assignment. Nothing else about a finding changes after
// ingestion.
type FindingService struct {
	repo     vulnerability.FindingRepository
	userRepo user.Repository
	policy   *sla.Policy
	now      func() time.Time
	logger   *logger.Logger
}

// NewFindingService creates a new FindingService.
func NewFindingService(repo vulnerability.FindingRepository, userRepo user.Repository, policy *sla.Policy, log *logger.Logger) *FindingService {
	if policy == nil {
		policy = sla.DefaultPolicy()
	}
	return &FindingService{
		repo:     repo,
		userRepo: userRepo,
		policy:   policy,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   log.With("service", "finding"),
	}
}

// FindingWithSLA pairs a finding with its SLA standing at read time.
// SLA is nil for closed findings.
type FindingWithSLA struct {
	Finding *vulnerability.Finding
	SLA     *sla.Evaluation
}

// GetFinding returns a finding and its current SLA evaluation.
func (s *FindingService) GetFinding(ctx context.Context, findingID string) (*FindingWithSLA, error) {
	f, err := s.load(ctx, findingID)
	if err != nil {
		return nil, err
	}
	return s.withSLA(f), nil
}

// UpdateFindingStatusInput represents the input for a status transition.
type UpdateFindingStatusInput struct {
	FindingID string `validate:"required,uuid"`
	Status    string `validate:"required,finding_status"`
}

// UpdateStatus moves a finding to a new status.
func (s *FindingService) UpdateStatus(ctx context.Context, input UpdateFindingStatusInput) (*FindingWithSLA, error) {
	status, err := vulnerability.ParseFindingStatus(input.Status)
	if err != nil {
		return nil, err
	}

	f, err := s.load(ctx, input.FindingID)
	if err != nil {
		return nil, err
	}

	previous := f.Status()
	if err := f.UpdateStatus(status); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, f); err != nil {
		return nil, fmt.Errorf("update finding: %w", err)
	}

	s.logger.Info("finding status changed",
		"finding_id", f.ID().String(),
		"from", previous.String(),
		"to", status.String(),
	)
	return s.withSLA(f), nil
}

// AssignFindingInput represents the input for assigning a finding.
type AssignFindingInput struct {
	FindingID string `validate:"required,uuid"`
	UserID    string `validate:"required,uuid"`
}

// Assign sets the finding's assignee. The user must exist.
func (s *FindingService) Assign(ctx context.Context, input AssignFindingInput) (*FindingWithSLA, error) {
	userID, err := shared.IDFromString(input.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id format", shared.ErrValidation)
	}

	f, err := s.load(ctx, input.FindingID)
	if err != nil {
		return nil, err
	}

	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	if err := f.Assign(userID); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, f); err != nil {
		return nil, fmt.Errorf("update finding: %w", err)
	}

	s.logger.Info("finding assigned", "finding_id", f.ID().String(), "user_id", userID.String())
	return s.withSLA(f), nil
}

// Unassign clears the finding's assignee.
func (s *FindingService) Unassign(ctx context.Context, findingID string) (*FindingWithSLA, error) {
	f, err := s.load(ctx, findingID)
	if err != nil {
		return nil, err
	}
	if !f.IsAssigned() {
		return s.withSLA(f), nil
	}

	f.Unassign()
	if err := s.repo.Update(ctx, f); err != nil {
		return nil, fmt.Errorf("update finding: %w", err)
	}

	s.logger.Info("finding unassigned", "finding_id", f.ID().String())
	return s.withSLA(f), nil
}

func (s *FindingService) load(ctx context.Context, findingID string) (*vulnerability.Finding, error) {
	id, err := shared.IDFromString(findingID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid finding id format", shared.ErrValidation)
	}
	return s.repo.GetByID(ctx, id)
}

func (s *FindingService) withSLA(f *vulnerability.Finding) *FindingWithSLA {
	out := &FindingWithSLA{Finding: f}
	if ev, ok := s.policy.ClassifyFinding(f, s.now()); ok {
		out.SLA = &ev
	}
	return out
}
