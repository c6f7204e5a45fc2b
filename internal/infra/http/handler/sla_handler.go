package handler

import (
	"context"
	"net/http"

	"github.com/openctemio/scanledger/internal/app"
)

// SLAPolicyGetter exposes the active SLA policy.
type SLAPolicyGetter interface {
	GetPolicy(ctx context.Context) app.SLAPolicyView
}

// SLAHandler serves the SLA policy.
type SLAHandler struct {
	service SLAPolicyGetter
}

// NewSLAHandler creates a new SLA handler.
func NewSLAHandler(svc SLAPolicyGetter) *SLAHandler {
	return &SLAHandler{service: svc}
}

// GetPolicy handles GET /api/v1/sla/policy.
func (h *SLAHandler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.GetPolicy(r.Context()))
}
