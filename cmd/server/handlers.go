package main

import (
	"github.com/openctemio/scanledger/internal/config"
	"github.com/openctemio/scanledger/internal/infra/eventbus"
	"github.com/openctemio/scanledger/internal/infra/http/handler"
	"github.com/openctemio/scanledger/internal/infra/http/middleware"
	"github.com/openctemio/scanledger/internal/infra/http/routes"
	"github.com/openctemio/scanledger/internal/infra/postgres"
	"github.com/openctemio/scanledger/internal/infra/redis"
	"github.com/openctemio/scanledger/pkg/logger"
	"github.com/openctemio/scanledger/pkg/validator"
)

// HandlerDeps contains dependencies needed to create handlers.
type HandlerDeps struct {
	Config      *config.Config
	Log         *logger.Logger
	Validator   *validator.Validator
	DB          *postgres.DB
	RedisClient *redis.Client
	EventBus    *eventbus.Publisher
	Services    *Services
}

// NewHandlers creates all HTTP handlers.
func NewHandlers(deps *HandlerDeps) routes.Handlers {
	cfg := deps.Config
	log := deps.Log
	v := deps.Validator
	svc := deps.Services

	healthOpts := []handler.HealthHandlerOption{
		handler.WithDatabase(deps.DB),
		handler.WithRedis(deps.RedisClient),
	}
	if deps.EventBus != nil {
		healthOpts = append(healthOpts, handler.WithEventBus(deps.EventBus))
	}

	return routes.Handlers{
		Health:       handler.NewHealthHandler(healthOpts...),
		Ingest:       handler.NewIngestHandler(svc.Ingest, v, uploadLimit(&cfg.Ingest), log),
		Dashboard:    handler.NewDashboardHandler(svc.Dashboard, log),
		Finding:      handler.NewFindingHandler(svc.Finding, v, log),
		Asset:        handler.NewAssetHandler(svc.Asset, log),
		SLA:          handler.NewSLAHandler(svc.SLA),
		Notification: handler.NewNotificationHandler(svc.Notification, log),
	}
}

// NewRouteOptions builds the upload route middleware: the shared upload
// limiter first, then body decompression.
func NewRouteOptions(cfg *config.Config, redisClient *redis.Client, log *logger.Logger) (routes.Options, error) {
	var opts routes.Options

	if cfg.RateLimit.Enabled && cfg.RateLimit.UploadLimit > 0 {
		limiter, err := redis.NewRateLimiter(redisClient, "ratelimit:uploads", cfg.RateLimit.UploadLimit, cfg.RateLimit.UploadWindow, log)
		if err != nil {
			return opts, err
		}
		opts.UploadMiddlewares = append(opts.UploadMiddlewares, middleware.DistributedRateLimit(middleware.DistributedRateLimitConfig{
			Limiter: limiter,
			Logger:  log,
		}))
	}

	opts.UploadMiddlewares = append(opts.UploadMiddlewares, middleware.DecompressForIngest(&cfg.Ingest))
	return opts, nil
}
