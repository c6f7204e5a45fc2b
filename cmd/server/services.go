package main

import (
	"fmt"

	"github.com/openctemio/scanledger/internal/app"
	"github.com/openctemio/scanledger/internal/app/ingest"
	"github.com/openctemio/scanledger/internal/config"
	"github.com/openctemio/scanledger/internal/infra/archive"
	"github.com/openctemio/scanledger/internal/infra/eventbus"
	"github.com/openctemio/scanledger/internal/infra/jobs"
	notificationclient "github.com/openctemio/scanledger/internal/infra/notification"
	"github.com/openctemio/scanledger/internal/infra/postgres"
	"github.com/openctemio/scanledger/internal/infra/redis"
	"github.com/openctemio/scanledger/pkg/domain/sla"
	"github.com/openctemio/scanledger/pkg/logger"
)

// Services holds all application services.
type Services struct {
	Policy       *sla.Policy
	Ingest       *ingest.Service
	Asset        *app.AssetService
	Finding      *app.FindingService
	Dashboard    *app.DashboardService
	SLA          *app.SLAService
	Notification *app.NotificationService
	SLASweep     *app.SLASweepScheduler
}

// ServiceDeps contains dependencies needed to create services. JobClient,
// Archive and EventBus are optional.
type ServiceDeps struct {
	Config      *config.Config
	Log         *logger.Logger
	DB          *postgres.DB
	Repos       *Repositories
	RedisClient *redis.Client
	JobClient   *jobs.Client
	Archive     *archive.S3Archive
	EventBus    *eventbus.Publisher
}

// NewServices initializes all application services.
func NewServices(deps *ServiceDeps) (*Services, error) {
	cfg := deps.Config
	log := deps.Log
	repos := deps.Repos

	policy, err := sla.NewPolicy(cfg.SLA.Days)
	if err != nil {
		return nil, fmt.Errorf("sla policy: %w", err)
	}

	s := &Services{Policy: policy}

	// Notifications
	s.Notification = app.NewNotificationService(repos.Notification, log)
	if cfg.Notification.WebhookURL != "" {
		client, err := notificationclient.NewClient(notificationclient.Config{
			Provider:   notificationclient.Provider(cfg.Notification.WebhookProvider),
			WebhookURL: cfg.Notification.WebhookURL,
			Secret:     cfg.Notification.WebhookSecret,
			Timeout:    cfg.Notification.WebhookTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("notification webhook: %w", err)
		}
		s.Notification.SetWebhookClient(client)
	}
	if cfg.Notification.Async && deps.JobClient != nil {
		s.Notification.SetEnqueuer(deps.JobClient)
	}

	// Ingestion
	s.Ingest = ingest.NewService(repos.Scan, repos.Finding, repos.Asset, repos.User, ingest.Options{
		MaxUploadSize:     uploadLimit(&cfg.Ingest),
		MaxRecords:        cfg.Ingest.MaxRecords,
		MaxLineBytes:      cfg.Ingest.MaxLineBytes,
		NormalizeWorkers:  cfg.Ingest.NormalizeWorkers,
		ReconcileWorkers:  cfg.Ingest.ReconcileWorkers,
		MaxErrorsToReturn: cfg.Ingest.MaxErrorsToReturn,
		EventSubject:      cfg.NATS.Subject,
	}, log)
	s.Ingest.SetTransactor(deps.DB)
	if cfg.Notification.Enabled {
		s.Ingest.SetDispatcher(s.Notification)
	}
	if deps.Archive != nil {
		s.Ingest.SetArchiver(deps.Archive)
	}
	if deps.EventBus != nil {
		s.Ingest.SetEventPublisher(deps.EventBus)
	}

	// Read side
	names, err := app.NewCachedDisplayNameResolver(repos.User, deps.RedisClient, cfg.Cache.DisplayNameTTL, log)
	if err != nil {
		return nil, err
	}
	s.Asset = app.NewAssetService(repos.Asset, log)
	s.Finding = app.NewFindingService(repos.Finding, repos.User, policy, log)
	s.Dashboard = app.NewDashboardService(repos.Finding, names, policy, log)
	s.SLA = app.NewSLAService(policy, log)

	// SLA breach sweep
	s.SLASweep = app.NewSLASweepScheduler(repos.Finding, repos.User, policy, app.SLASweepSchedulerConfig{
		Cron:    cfg.SLA.SweepCron,
		Enabled: cfg.SLA.SweepEnabled,
	}, log)
	if cfg.Notification.Enabled {
		s.SLASweep.SetDispatcher(s.Notification)
	}

	return s, nil
}

// uploadLimit is the largest batch payload accepted after decompression.
func uploadLimit(cfg *config.IngestConfig) int64 {
	return max(cfg.MaxDecompressed, cfg.MaxUploadSize)
}
