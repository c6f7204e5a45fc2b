package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/openctemio/scanledger/internal/config"
	"github.com/openctemio/scanledger/internal/infra/archive"
	"github.com/openctemio/scanledger/internal/infra/eventbus"
	"github.com/openctemio/scanledger/internal/infra/http"
	"github.com/openctemio/scanledger/internal/infra/http/routes"
	"github.com/openctemio/scanledger/internal/infra/jobs"
	"github.com/openctemio/scanledger/internal/infra/postgres"
	"github.com/openctemio/scanledger/internal/infra/redis"
	"github.com/openctemio/scanledger/internal/infra/telemetry"
	"github.com/openctemio/scanledger/pkg/logger"
	"github.com/openctemio/scanledger/pkg/migrations"
	"github.com/openctemio/scanledger/pkg/validator"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

// Command line flags.
var (
	migrate = flag.Bool("migrate", false, "Apply pending database migrations before starting")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	ctx := context.Background()

	// ==========================================================================
	// Configuration & Logger
	// ==========================================================================
	cfg, err := config.Load()
	if err != nil {
		log := logger.NewDefault()
		log.Error("failed to load configuration", "error", err)
		return 1
	}

	log := initLogger(cfg)
	if err := logger.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		log.Warn("logger metrics not registered", "error", err)
	}
	log.Info("starting application", "app", cfg.App.Name, "env", cfg.App.Env, "version", version)

	shutdownTracing, err := telemetry.Setup(ctx, &cfg.Tracing, cfg.App.Name, version, log)
	if err != nil {
		log.Error("failed to initialize tracing", "error", err)
		return 1
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			log.Error("failed to flush traces", "error", err)
		}
	}()

	// ==========================================================================
	// Infrastructure
	// ==========================================================================
	db, err := postgres.New(&cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		return 1
	}
	defer closeWithLog(db, "database", log)
	if err := prometheus.Register(collectors.NewDBStatsCollector(db.DB, "scanledger")); err != nil {
		log.Warn("database pool metrics not registered", "error", err)
	}
	log.Info("database connected")

	if *migrate {
		applied, err := migrations.NewRunner(db.DB, migrations.Embedded(), os.Stdout).Up(ctx)
		if err != nil {
			log.Error("failed to apply migrations", "error", err)
			return 1
		}
		log.Info("migrations applied", "count", applied)
	}

	redisClient, err := redis.New(ctx, &cfg.Redis, log)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		return 1
	}
	defer closeWithLog(redisClient, "redis", log)
	if err := prometheus.Register(redis.NewPoolCollector("scanledger", redisClient)); err != nil {
		log.Warn("redis pool metrics not registered", "error", err)
	}

	var bus *eventbus.Publisher
	if cfg.NATS.Enabled {
		bus, err = eventbus.NewPublisher(cfg.NATS.URL, log)
		if err != nil {
			log.Error("failed to connect to nats", "error", err)
			return 1
		}
		defer bus.Close()
	}

	var batchArchive *archive.S3Archive
	if cfg.Archive.Enabled {
		batchArchive, err = archive.NewS3Archive(ctx, &cfg.Archive, log)
		if err != nil {
			log.Error("failed to initialize batch archive", "error", err)
			return 1
		}
		log.Info("batch archive enabled", "bucket", cfg.Archive.Bucket)
	}

	// ==========================================================================
	// Job Queue
	// ==========================================================================
	var jobClient *jobs.Client
	if cfg.Notification.Async {
		jobClient = jobs.NewClient(&cfg.Redis, cfg.Notification.MaxRetry, log)
		defer closeWithLog(jobClient, "job client", log)
	}

	// ==========================================================================
	// Repositories & Services
	// ==========================================================================
	repos := NewRepositories(db)

	services, err := NewServices(&ServiceDeps{
		Config:      cfg,
		Log:         log,
		DB:          db,
		Repos:       repos,
		RedisClient: redisClient,
		JobClient:   jobClient,
		Archive:     batchArchive,
		EventBus:    bus,
	})
	if err != nil {
		log.Error("failed to initialize services", "error", err)
		return 1
	}
	log.Info("services initialized")

	// ==========================================================================
	// HTTP Server
	// ==========================================================================
	handlers := NewHandlers(&HandlerDeps{
		Config:      cfg,
		Log:         log,
		Validator:   validator.New(),
		DB:          db,
		RedisClient: redisClient,
		EventBus:    bus,
		Services:    services,
	})

	routeOpts, err := NewRouteOptions(cfg, redisClient, log)
	if err != nil {
		log.Error("failed to initialize upload rate limiter", "error", err)
		return 1
	}

	server := http.NewServer(cfg, log)
	routes.Register(server.Router(), handlers, routeOpts)

	// ==========================================================================
	// Workers
	// ==========================================================================
	workers := NewWorkers(&WorkerDeps{
		Config:   cfg,
		Log:      log,
		Services: services,
	})

	if err := workers.Start(log); err != nil {
		log.Error("failed to start workers", "error", err)
		return 1
	}

	// ==========================================================================
	// Start Server
	// ==========================================================================
	go func() {
		if err := server.Start(); err != nil {
			log.Error("server error", "error", err)
		}
	}()
	log.Info("application started", "http_addr", cfg.Server.Addr())

	// ==========================================================================
	// Graceful Shutdown
	// ==========================================================================
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop accepting uploads before the workers drain.
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		workers.Stop(log)
		return 1
	}

	workers.Stop(log)

	log.Info("application stopped")
	return 0
}

// =============================================================================
// Helper Functions
// =============================================================================

func initLogger(cfg *config.Config) *logger.Logger {
	var log *logger.Logger
	if cfg.IsProduction() {
		//nolint:gosec // G115: SamplingThreshold is validated non-negative in config.Validate()
		threshold := uint64(cfg.Log.SamplingThreshold)
		log = logger.New(logger.Config{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
			Output: os.Stdout,
			Sampling: logger.SamplingConfig{
				Enabled:   cfg.Log.SamplingEnabled,
				Tick:      time.Second,
				Threshold: threshold,
				Rate:      cfg.Log.SamplingRate,
				ErrorRate: cfg.Log.ErrorSamplingRate,
			},
		})
	} else {
		log = logger.NewDevelopment()
	}
	log.SetDefault()
	return log
}

type closer interface {
	Close() error
}

func closeWithLog(c closer, name string, log *logger.Logger) {
	if err := c.Close(); err != nil {
		log.Error("failed to close "+name, "error", err)
	}
}
