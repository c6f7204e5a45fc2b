package handler

import (
	"context"
	"net/http"

	"github.com/openctemio/scanledger/internal/app"
	"github.com/openctemio/scanledger/pkg/apierror"
	"github.com/openctemio/scanledger/pkg/logger"
)

// SummaryProvider builds the aggregate findings summary.
type SummaryProvider interface {
	GetSummary(ctx context.Context) (*app.Summary, error)
}

// DashboardHandler serves aggregate views over all findings.
type DashboardHandler struct {
	service SummaryProvider
	logger  *logger.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(svc SummaryProvider, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: svc,
		logger:  log.With("handler", "dashboard"),
	}
}

// GetSummary handles GET /api/v1/dashboard/summary.
func (h *DashboardHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetSummary(r.Context())
	if err != nil {
		h.logger.Error("failed to build summary", "error", err)
		apierror.InternalError(err).WriteJSON(w)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
