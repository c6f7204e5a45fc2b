package main

import (
	"github.com/openctemio/scanledger/internal/app"
	"github.com/openctemio/scanledger/internal/config"
	"github.com/openctemio/scanledger/internal/infra/jobs"
	"github.com/openctemio/scanledger/pkg/logger"
)

// Workers holds all background worker instances.
type Workers struct {
	JobWorker *jobs.Worker
	SLASweep  *app.SLASweepScheduler
}

// WorkerDeps contains dependencies needed to create workers.
type WorkerDeps struct {
	Config   *config.Config
	Log      *logger.Logger
	Services *Services
}

// NewWorkers initializes all background workers.
func NewWorkers(deps *WorkerDeps) *Workers {
	cfg := deps.Config

	w := &Workers{SLASweep: deps.Services.SLASweep}

	// Queued notifications only exist when delivery is async.
	if cfg.Worker.Enabled && cfg.Notification.Async {
		w.JobWorker = jobs.NewWorker(&cfg.Redis, &cfg.Worker, deps.Log,
			jobs.WithNotificationDeliverer(deps.Services.Notification),
		)
	}

	return w
}

// Start starts all workers.
func (w *Workers) Start(log *logger.Logger) error {
	if w.JobWorker != nil {
		if err := w.JobWorker.Start(); err != nil {
			return err
		}
		log.Info("job worker started")
	}

	return w.SLASweep.Start()
}

// Stop stops all workers, waiting for in-flight work.
func (w *Workers) Stop(log *logger.Logger) {
	if w.JobWorker != nil {
		log.Info("stopping job worker...")
		w.JobWorker.Stop()
		log.Info("job worker stopped")
	}

	w.SLASweep.Stop()
	log.Info("sla sweep scheduler stopped")
}
