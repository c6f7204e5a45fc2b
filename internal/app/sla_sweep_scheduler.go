package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/openctemio/scanledger/pkg/domain/notification"
	"github.com/openctemio/scanledger/pkg/domain/sla"
	"github.com/openctemio/scanledger/pkg/domain/user"
	"github.com/openctemio/scanledger/pkg/domain/vulnerability"
	"github.com/openctemio/scanledger/pkg/logger"
)

const slaSweepTimeout = 5 * time.Minute

// NotificationDispatcher delivers one notification to one recipient.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, params notification.Params) error
}

// SLASweepSchedulerConfig holds configuration for the sweep.
type SLASweepSchedulerConfig struct {
	// Cron is a standard five-field cron expression (default: daily at 08:00 UTC).
	Cron string

	Enabled bool
}

// SLASweepResult summarises one sweep.
type SLASweepResult struct {
	Status       StatusCounts
	Notified     int
	NotifyErrors int
	CompletedAt  time.Time
}

// SLASweepScheduler periodically classifies every open finding, publishes
// the per-status gauges and tells ingest recipients about breaches.
type SLASweepScheduler struct {
	findingRepo vulnerability.FindingRepository
	userRepo    user.Repository
	dispatcher  NotificationDispatcher
	policy      *sla.Policy
	now         func() time.Time
	logger      *logger.Logger

	config SLASweepSchedulerConfig
	cron   *cron.Cron
	mu     sync.Mutex
}

// NewSLASweepScheduler creates a new scheduler.
func NewSLASweepScheduler(
	findingRepo vulnerability.FindingRepository,
	userRepo user.Repository,
	policy *sla.Policy,
	cfg SLASweepSchedulerConfig,
	log *logger.Logger,
) *SLASweepScheduler {
	if cfg.Cron == "" {
		cfg.Cron = "0 8 * * *"
	}
	if policy == nil {
		policy = sla.DefaultPolicy()
	}

	return &SLASweepScheduler{
		findingRepo: findingRepo,
		userRepo:    userRepo,
		policy:      policy,
		now:         time.Now,
		logger:      log.With("component", "sla_sweep_scheduler"),
		config:      cfg,
	}
}

// SetDispatcher enables breach notifications.
func (s *SLASweepScheduler) SetDispatcher(d NotificationDispatcher) {
	s.dispatcher = d
}

// Start registers the sweep with the cron runner.
func (s *SLASweepScheduler) Start() error {
	if !s.config.Enabled {
		s.logger.Info("sla sweep scheduler disabled")
		return nil
	}

	s.cron = cron.New(cron.WithLocation(time.UTC))
	if _, err := s.cron.AddFunc(s.config.Cron, s.safeSweep); err != nil {
		return fmt.Errorf("schedule sla sweep %q: %w", s.config.Cron, err)
	}
	s.cron.Start()

	s.logger.Info("sla sweep scheduler started", "cron", s.config.Cron)
	return nil
}

// Stop waits for a running sweep to finish.
// Safe to call even if Start() was never called.
func (s *SLASweepScheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info("sla sweep scheduler stopped")
}

// safeSweep wraps Sweep with panic recovery so one bad run does not kill
// the cron goroutine.
func (s *SLASweepScheduler) safeSweep() {
	defer func() {
		if r := recover(); r != nil {
			SLASweepsTotal.WithLabelValues("panic").Inc()
			s.logger.Error("panic during sla sweep", "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), slaSweepTimeout)
	defer cancel()

	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error("sla sweep failed", "error", err)
	}
}

// Sweep runs one classification pass. Sweeps never overlap.
func (s *SLASweepScheduler) Sweep(ctx context.Context) (*SLASweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	findings, err := s.findingRepo.ListUnclosed(ctx)
	if err != nil {
		SLASweepsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("list unclosed findings: %w", err)
	}

	now := s.now().UTC()
	result := &SLASweepResult{CompletedAt: now}
	breachedBySeverity := make(map[vulnerability.Severity]int)

	for _, f := range findings {
		ev, ok := s.policy.ClassifyFinding(f, now)
		if !ok {
			continue
		}
		switch ev.Status {
		case sla.StatusBreached:
			result.Status.Breached++
			breachedBySeverity[f.Severity()]++
		case sla.StatusDueSoon:
			result.Status.DueSoon++
		case sla.StatusWithinSLA:
			result.Status.WithinSLA++
		}
	}

	SLAFindings.WithLabelValues(sla.StatusBreached.String()).Set(float64(result.Status.Breached))
	SLAFindings.WithLabelValues(sla.StatusDueSoon.String()).Set(float64(result.Status.DueSoon))
	SLAFindings.WithLabelValues(sla.StatusWithinSLA.String()).Set(float64(result.Status.WithinSLA))

	if result.Status.Breached > 0 && s.dispatcher != nil {
		s.notifyBreaches(ctx, result, breachedBySeverity)
	}

	SLASweepsTotal.WithLabelValues("success").Inc()
	SLASweepLastRun.SetToCurrentTime()

	s.logger.Info("sla sweep completed",
		"breached", result.Status.Breached,
		"due_soon", result.Status.DueSoon,
		"within_sla", result.Status.WithinSLA,
		"notified", result.Notified,
		"notify_errors", result.NotifyErrors,
	)
	return result, nil
}

func (s *SLASweepScheduler) notifyBreaches(ctx context.Context, result *SLASweepResult, bySeverity map[vulnerability.Severity]int) {
	recipients, err := s.userRepo.ListIngestRecipients(ctx)
	if err != nil {
		result.NotifyErrors++
		s.logger.Error("failed to list sla breach recipients", "error", err)
		return
	}

	message := breachMessage(result.Status.Breached, bySeverity)
	reportID := result.CompletedAt.Format("2006-01-02")

	for _, u := range recipients {
		if !u.IsIngestRecipient() {
			continue
		}
		err := s.dispatcher.Dispatch(ctx, notification.Params{
			RecipientID:     u.ID(),
			Title:           "SLA breaches detected",
			Message:         message,
			RelatedItemType: notification.RelatedItemSLAReport,
			RelatedItemID:   reportID,
		})
		if err != nil {
			result.NotifyErrors++
			s.logger.Warn("failed to send sla breach notification",
				"recipient_id", u.ID().String(),
				"error", err,
			)
			continue
		}
		result.Notified++
	}
}

// breachMessage lists breach counts from the most severe level down, skipping
// levels with none.
func breachMessage(total int, bySeverity map[vulnerability.Severity]int) string {
	msg := fmt.Sprintf("%d open findings have breached their SLA", total)
	sep := " ("
	for _, sev := range append(vulnerability.AllSeverities(), vulnerability.SeverityUnknown) {
		if n := bySeverity[sev]; n > 0 {
			msg += fmt.Sprintf("%s%d %s", sep, n, sev)
			sep = ", "
		}
	}
	if sep == ", " {
		msg += ")"
	}
	return msg + "."
}
