package routes

import (
	"github.com/openctemio/scanledger/internal/infra/http/handler"
)

// registerAssetRoutes registers asset endpoints. Assets are written only
// by ingestion, so every route is read-only.
func registerAssetRoutes(router Router, h *handler.AssetHandler) {
	router.Group("/api/v1/assets", func(r Router) {
		r.GET("/", h.List)
		r.GET("/{host}", h.Get)
	})
}

// registerFindingRoutes registers the finding workflow endpoints.
func registerFindingRoutes(router Router, h *handler.FindingHandler) {
	router.Group("/api/v1/findings", func(r Router) {
		r.GET("/{id}", h.Get)
		r.PATCH("/{id}/status", h.UpdateStatus)
		r.PUT("/{id}/assignee", h.Assign)
		r.DELETE("/{id}/assignee", h.Unassign)
	})
}
