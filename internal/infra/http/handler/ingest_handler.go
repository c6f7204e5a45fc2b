package handler

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/openctemio/scanledger/internal/app/ingest"
	"github.com/openctemio/scanledger/pkg/apierror"
	"github.com/openctemio/scanledger/pkg/logger"
	"github.com/openctemio/scanledger/pkg/validator"
)

// multipartOverhead is the slack allowed on top of the upload limit for
// multipart boundaries and form fields.
const multipartOverhead = 1 << 20

// BatchIngester runs one uploaded batch through the ingestion pipeline.
type BatchIngester interface {
	Ingest(ctx context.Context, input ingest.Input) (*ingest.Output, error)
}

// IngestHandler handles batch uploads.
type IngestHandler struct {
	service       BatchIngester
	validator     *validator.Validator
	maxUploadSize int64
	logger        *logger.Logger
}

// NewIngestHandler creates a new ingest handler. maxUploadSize bounds the
// file content; zero uses the pipeline default.
func NewIngestHandler(svc BatchIngester, v *validator.Validator, maxUploadSize int64, log *logger.Logger) *IngestHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = ingest.DefaultMaxUploadSize
	}
	return &IngestHandler{
		service:       svc,
		validator:     v,
		maxUploadSize: maxUploadSize,
		logger:        log.With("handler", "ingest"),
	}
}

// UploadRequest is the metadata accompanying an uploaded file.
type UploadRequest struct {
	Filename string `validate:"required,max=255,printable"`
	Name     string `validate:"omitempty,max=255,printable"`
}

// Upload handles POST /api/v1/batches.
//
// The file is taken from the "file" part of a multipart form, with an
// optional "name" field. Any other content type is read as the raw file,
// named by the "filename" query parameter.
func (h *IngestHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)

	req, data, err := h.readUpload(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apierror.PayloadTooLarge("Upload exceeds the maximum allowed size").WriteJSON(w)
			return
		}
		apierror.BadRequest(err.Error()).WriteJSON(w)
		return
	}

	if err := h.validator.Validate(req); err != nil {
		handleValidationError(w, err)
		return
	}

	out, err := h.service.Ingest(r.Context(), ingest.Input{
		Filename:  req.Filename,
		BatchName: req.Name,
		Data:      data,
	})
	if err != nil {
		h.handleIngestError(w, out, err)
		return
	}

	writeJSON(w, http.StatusCreated, out)
}

func (h *IngestHandler) readUpload(r *http.Request) (UploadRequest, []byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return UploadRequest{}, nil, err
		}
		return UploadRequest{
			Filename: r.URL.Query().Get("filename"),
			Name:     r.URL.Query().Get("name"),
		}, data, nil
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return UploadRequest{}, nil, err
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return UploadRequest{}, nil, errors.New("multipart field \"file\" is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return UploadRequest{}, nil, err
	}
	return UploadRequest{
		Filename: header.Filename,
		Name:     strings.TrimSpace(r.FormValue("name")),
	}, data, nil
}

// handleIngestError maps pipeline errors onto HTTP responses. Rejections
// carry the partial output so callers can see per-line errors.
func (h *IngestHandler) handleIngestError(w http.ResponseWriter, out *ingest.Output, err error) {
	switch {
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		apierror.UnsupportedFormat(err.Error()).WriteJSON(w)
	case errors.Is(err, ingest.ErrPayloadTooLarge):
		apierror.PayloadTooLarge(err.Error()).WriteJSON(w)
	case errors.Is(err, ingest.ErrParse):
		apierror.ValidationFailed(err.Error(), out).WriteJSON(w)
	default:
		ae := apierror.FromError(err)
		if ae.Status >= http.StatusInternalServerError {
			h.logger.Error("ingestion failed", "error", err)
		}
		ae.WriteJSON(w)
	}
}
