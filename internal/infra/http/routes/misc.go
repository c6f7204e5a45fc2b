package routes

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openctemio/scanledger/internal/infra/http/handler"
)

// registerHealthRoutes registers health check endpoints.
func registerHealthRoutes(router Router, h *handler.HealthHandler) {
	if h != nil {
		router.GET("/health", h.Health)
		router.GET("/ready", h.Ready)
	}
	router.GET("/metrics", promhttp.Handler().ServeHTTP)
}

// registerDashboardRoutes registers the aggregate summary endpoint.
func registerDashboardRoutes(router Router, h *handler.DashboardHandler) {
	router.Group("/api/v1/dashboard", func(r Router) {
		r.GET("/summary", h.GetSummary)
	})
}

// registerSLARoutes registers the read-only SLA policy endpoint.
func registerSLARoutes(router Router, h *handler.SLAHandler) {
	router.GET("/api/v1/sla/policy", h.GetPolicy)
}

// registerNotificationRoutes registers the per-user notification inbox.
func registerNotificationRoutes(router Router, h *handler.NotificationHandler) {
	router.GET("/api/v1/users/{id}/notifications", h.ListForUser)
}
