// Package routes registers all HTTP routes for the API.
// Routes are organized by domain for maintainability.
package routes

import (
	infrahttp "github.com/openctemio/scanledger/internal/infra/http"
	"github.com/openctemio/scanledger/internal/infra/http/handler"
)

// Middleware is an alias to the http package's Middleware type.
type Middleware = infrahttp.Middleware

// Router is an alias to the http package's Router interface.
type Router = infrahttp.Router

// Handlers holds all HTTP handlers for route registration.
// A nil handler leaves its routes unregistered.
type Handlers struct {
	Health       *handler.HealthHandler
	Ingest       *handler.IngestHandler
	Dashboard    *handler.DashboardHandler
	Finding      *handler.FindingHandler
	Asset        *handler.AssetHandler
	SLA          *handler.SLAHandler
	Notification *handler.NotificationHandler
}

// Options carries route-specific middleware built by the caller.
type Options struct {
	// UploadMiddlewares wrap POST /api/v1/batches only, e.g. the
	// distributed upload limiter and body decompression.
	UploadMiddlewares []Middleware
}

// Register registers all application routes.
//
// Routes are organized across files by domain:
//   - scanning.go: batch uploads
//   - assets.go: assets and findings
//   - misc.go: health, metrics, dashboard, SLA policy, notifications
func Register(router Router, h Handlers, opts Options) {
	registerHealthRoutes(router, h.Health)

	if h.Ingest != nil {
		registerIngestRoutes(router, h.Ingest, opts.UploadMiddlewares)
	}
	if h.Asset != nil {
		registerAssetRoutes(router, h.Asset)
	}
	if h.Finding != nil {
		registerFindingRoutes(router, h.Finding)
	}
	if h.Dashboard != nil {
		registerDashboardRoutes(router, h.Dashboard)
	}
	if h.SLA != nil {
		registerSLARoutes(router, h.SLA)
	}
	if h.Notification != nil {
		registerNotificationRoutes(router, h.Notification)
	}
}
