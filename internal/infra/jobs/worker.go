package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/openctemio/scanledger/internal/config"
	"github.com/openctemio/scanledger/pkg/logger"
)

// WorkerOption is a functional option for configuring the Worker.
type WorkerOption func(*Worker)

// Worker processes background jobs.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	logger    *logger.Logger
	deliverer NotificationDeliverer
}

// WithNotificationDeliverer registers the notification delivery handler.
func WithNotificationDeliverer(d NotificationDeliverer) WorkerOption {
	return func(w *Worker) {
		w.deliverer = d
	}
}

// NewWorker creates a new background job worker.
func NewWorker(redisCfg *config.RedisConfig, workerCfg *config.WorkerConfig, log *logger.Logger, opts ...WorkerOption) *Worker {
	concurrency := workerCfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	log = log.With("component", "job_worker")
	server := asynq.NewServer(
		RedisOpt(redisCfg),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueNotifications: 5,
				"default":          1,
			},
			Logger: asynqLogger{log},
		},
	)

	w := &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
		logger: log,
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.deliverer != nil {
		NewNotificationTaskHandler(w.deliverer, log).RegisterHandlers(w.mux)
		log.Info("notification task handlers registered")
	}

	return w
}

// Start starts the worker. It returns once the processors are running.
func (w *Worker) Start() error {
	w.logger.Info("starting job worker")
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	return nil
}

// Stop stops the worker gracefully, waiting for in-flight tasks.
func (w *Worker) Stop() {
	w.logger.Info("stopping job worker")
	w.server.Shutdown()
}

// Run runs the worker until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	w.Stop()
	return nil
}

// asynqLogger adapts the application logger to asynq.Logger.
type asynqLogger struct {
	log *logger.Logger
}

func (l asynqLogger) Debug(args ...any) { l.log.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.log.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.log.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.log.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) { l.log.Error(fmt.Sprint(args...)) }
