package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/openctemio/scanledger/pkg/apierror"
	"github.com/openctemio/scanledger/pkg/domain/asset"
	"github.com/openctemio/scanledger/pkg/domain/shared"
	"github.com/openctemio/scanledger/pkg/logger"
)

// AssetReader is the read side of the asset inventory.
type AssetReader interface {
	ListAssets(ctx context.Context, limit int) ([]*asset.Asset, error)
	GetAsset(ctx context.Context, host string) (*asset.Asset, error)
}

// AssetHandler handles asset-related HTTP requests.
type AssetHandler struct {
	service AssetReader
	logger  *logger.Logger
}

// NewAssetHandler creates a new asset handler.
func NewAssetHandler(svc AssetReader, log *logger.Logger) *AssetHandler {
	return &AssetHandler{
		service: svc,
		logger:  log.With("handler", "asset"),
	}
}

// AssetResponse represents an asset in API responses.
type AssetResponse struct {
	ID                 string    `json:"id"`
	FQDNOrIP           string    `json:"fqdn_or_ip"`
	IPAddress          string    `json:"ip_address,omitempty"`
	RootDomain         string    `json:"root_domain,omitempty"`
	VulnerabilityCount int       `json:"vulnerability_count"`
	RiskScore          int       `json:"risk_score"`
	UploadSessionID    string    `json:"upload_session_id"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func toAssetResponse(a *asset.Asset) AssetResponse {
	return AssetResponse{
		ID:                 a.ID().String(),
		FQDNOrIP:           a.FQDNOrIP(),
		IPAddress:          a.IPAddress(),
		RootDomain:         a.RootDomain(),
		VulnerabilityCount: a.VulnerabilityCount(),
		RiskScore:          a.RiskScore(),
		UploadSessionID:    a.UploadSessionID().String(),
		CreatedAt:          a.CreatedAt(),
		UpdatedAt:          a.UpdatedAt(),
	}
}

// List handles GET /api/v1/assets.
func (h *AssetHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseQueryInt(r.URL.Query().Get("limit"), 0)

	assets, err := h.service.ListAssets(r.Context(), limit)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	data := make([]AssetResponse, 0, len(assets))
	for _, a := range assets {
		data = append(data, toAssetResponse(a))
	}
	writeJSON(w, http.StatusOK, ListResponse[AssetResponse]{Data: data, Total: len(data)})
}

// Get handles GET /api/v1/assets/{host}.
func (h *AssetHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.GetAsset(r.Context(), r.PathValue("host"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssetResponse(a))
}

func (h *AssetHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		apierror.NotFound("Asset").WriteJSON(w)
	case errors.Is(err, shared.ErrValidation):
		apierror.BadRequest(err.Error()).WriteJSON(w)
	default:
		h.logger.Error("service error", "error", err)
		apierror.InternalError(err).WriteJSON(w)
	}
}
