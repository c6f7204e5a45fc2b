package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/openctemio/scanledger/internal/app"
	"github.com/openctemio/scanledger/pkg/apierror"
	"github.com/openctemio/scanledger/pkg/domain/shared"
	"github.com/openctemio/scanledger/pkg/domain/sla"
	"github.com/openctemio/scanledger/pkg/domain/vulnerability"
	"github.com/openctemio/scanledger/pkg/logger"
	"github.com/openctemio/scanledger/pkg/validator"
)

// FindingWorkflow is the finding workflow used by the handler.
type FindingWorkflow interface {
	GetFinding(ctx context.Context, findingID string) (*app.FindingWithSLA, error)
	UpdateStatus(ctx context.Context, input app.UpdateFindingStatusInput) (*app.FindingWithSLA, error)
	Assign(ctx context.Context, input app.AssignFindingInput) (*app.FindingWithSLA, error)
	Unassign(ctx context.Context, findingID string) (*app.FindingWithSLA, error)
}

// FindingHandler handles finding-related HTTP requests.
type FindingHandler struct {
	service   FindingWorkflow
	validator *validator.Validator
	logger    *logger.Logger
}

// NewFindingHandler creates a new finding handler.
func NewFindingHandler(svc FindingWorkflow, v *validator.Validator, log *logger.Logger) *FindingHandler {
	return &FindingHandler{
		service:   svc,
		validator: v,
		logger:    log.With("handler", "finding"),
	}
}

// FindingResponse represents a finding in API responses.
type FindingResponse struct {
	ID             string          `json:"id"`
	ScanID         string          `json:"scan_id"`
	ExternalVulnID string          `json:"external_vuln_id,omitempty"`
	TemplateID     string          `json:"template_id,omitempty"`
	TemplateName   string          `json:"template_name"`
	Severity       string          `json:"severity"`
	Host           string          `json:"host"`
	MatchedAt      time.Time       `json:"matched_at"`
	MatcherName    string          `json:"matcher_name,omitempty"`
	MatcherStatus  bool            `json:"matcher_status"`
	ContentHash    string          `json:"content_hash,omitempty"`
	Description    string          `json:"description,omitempty"`
	Status         string          `json:"status"`
	AssignedTo     *string         `json:"assigned_to,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	SLA            *sla.Evaluation `json:"sla,omitempty"`
}

func toFindingResponse(fw *app.FindingWithSLA) FindingResponse {
	f := fw.Finding
	resp := FindingResponse{
		ID:             f.ID().String(),
		ScanID:         f.ScanID().String(),
		ExternalVulnID: f.ExternalVulnID(),
		TemplateID:     f.TemplateID(),
		TemplateName:   f.TemplateName(),
		Severity:       f.Severity().String(),
		Host:           f.Host(),
		MatchedAt:      f.MatchedAt(),
		MatcherName:    f.MatcherName(),
		MatcherStatus:  f.MatcherStatus(),
		ContentHash:    f.ContentHash(),
		Description:    f.Description(),
		Status:         f.Status().String(),
		CreatedAt:      f.CreatedAt(),
		UpdatedAt:      f.UpdatedAt(),
		SLA:            fw.SLA,
	}
	if id := f.AssignedTo(); id != nil {
		s := id.String()
		resp.AssignedTo = &s
	}
	return resp
}

// UpdateStatusRequest represents the request body for a status change.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,finding_status"`
}

// AssignRequest represents the request body for assigning a finding.
type AssignRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// Get handles GET /api/v1/findings/{id}.
func (h *FindingHandler) Get(w http.ResponseWriter, r *http.Request) {
	fw, err := h.service.GetFinding(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFindingResponse(fw))
}

// UpdateStatus handles PATCH /api/v1/findings/{id}/status.
func (h *FindingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, err)
		return
	}

	fw, err := h.service.UpdateStatus(r.Context(), app.UpdateFindingStatusInput{
		FindingID: r.PathValue("id"),
		Status:    req.Status,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFindingResponse(fw))
}

// Assign handles PUT /api/v1/findings/{id}/assignee.
func (h *FindingHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, err)
		return
	}

	fw, err := h.service.Assign(r.Context(), app.AssignFindingInput{
		FindingID: r.PathValue("id"),
		UserID:    req.UserID,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFindingResponse(fw))
}

// Unassign handles DELETE /api/v1/findings/{id}/assignee.
func (h *FindingHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	fw, err := h.service.Unassign(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFindingResponse(fw))
}

func (h *FindingHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, vulnerability.ErrFindingNotFound):
		apierror.NotFound("Finding").WriteJSON(w)
	case errors.Is(err, shared.ErrNotFound):
		apierror.NotFound("User").WriteJSON(w)
	case errors.Is(err, vulnerability.ErrInvalidStatusTransition):
		apierror.Conflict(err.Error()).WriteJSON(w)
	case errors.Is(err, shared.ErrValidation):
		apierror.BadRequest(err.Error()).WriteJSON(w)
	default:
		h.logger.Error("service error", "error", err)
		apierror.InternalError(err).WriteJSON(w)
	}
}
