package routes

import (
	"github.com/openctemio/scanledger/internal/infra/http/handler"
)

// registerIngestRoutes registers the batch upload endpoint.
func registerIngestRoutes(router Router, h *handler.IngestHandler, uploadMiddlewares []Middleware) {
	router.Group("/api/v1/batches", func(r Router) {
		r.POST("/", h.Upload, uploadMiddlewares...)
	})
}
