package app

import (
	"context"
	"time"

	"github.com/openctemio/scanledger/pkg/domain/sla"
	"github.com/openctemio/scanledger/pkg/domain/vulnerability"
	"github.com/openctemio/scanledger/pkg/logger"
)

// SLAService exposes the active SLA policy and classifies findings against it.
type SLAService struct {
	policy *sla.Policy
	logger *logger.Logger
}

// NewSLAService creates a new SLAService.
func NewSLAService(policy *sla.Policy, log *logger.Logger) *SLAService {
	if policy == nil {
		policy = sla.DefaultPolicy()
	}
	return &SLAService{
		policy: policy,
		logger: log.With("service", "sla"),
	}
}

// SLAPolicyView is the read model of the active policy.
type SLAPolicyView struct {
	Days        map[string]int `json:"days" yaml:"days"`
	DueSoonDays int            `json:"due_soon_days" yaml:"due_soon_days"`
}

// GetPolicy returns the policy in effect.
func (s *SLAService) GetPolicy(_ context.Context) SLAPolicyView {
	return SLAPolicyView{
		Days:        s.policy.Days(),
		DueSoonDays: s.policy.DueSoonDays(),
	}
}

// Policy returns the underlying domain policy.
func (s *SLAService) Policy() *sla.Policy {
	return s.policy
}

// Classify evaluates one finding at now. ok is false for closed findings.
func (s *SLAService) Classify(f *vulnerability.Finding, now time.Time) (sla.Evaluation, bool) {
	return s.policy.ClassifyFinding(f, now)
}
