package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openctemio/scanledger/pkg/domain/shared"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   Code
	}{
		{"not found", fmt.Errorf("finding %w", shared.ErrNotFound), http.StatusNotFound, CodeNotFound},
		{"validation", fmt.Errorf("%w: bad", shared.ErrValidation), http.StatusBadRequest, CodeBadRequest},
		{"conflict", shared.ErrConflict, http.StatusConflict, CodeConflict},
		{"unavailable", shared.ErrUnavailable, http.StatusServiceUnavailable, CodeServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternalError},
		{"passthrough", PayloadTooLarge("big"), http.StatusRequestEntityTooLarge, CodePayloadTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromError(tt.err)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.code, got.Code)
		})
	}

	assert.Nil(t, FromError(nil))
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	var verrs ValidationErrors
	verrs.Add("name", "is required")
	require.True(t, verrs.HasErrors())
	verrs.ToAPIError().WriteJSON(rec)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, CodeValidationFailed, resp.Code)
	assert.Equal(t, "VALIDATION_FAILED", resp.Error)
}

func TestInternalError_HidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	InternalError(errors.New("pq: password authentication failed")).WriteJSONWithRequestID(rec, "req-1")

	assert.NotContains(t, rec.Body.String(), "password")
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))
}

func TestWriteJSON_PicksUpRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Header().Set("X-Request-ID", "req-7")

	NotFound("Asset").WriteJSON(rec)

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "req-7", resp.RequestID)
	assert.Equal(t, "Asset not found", resp.Message)
}

func TestFromError_HidesNotFoundDetail(t *testing.T) {
	got := FromError(fmt.Errorf("asset %w: host=db1.internal", shared.ErrNotFound))
	assert.Equal(t, "Resource not found", got.Message)
	assert.ErrorIs(t, got, shared.ErrNotFound)
}

func TestFromError_UsesDomainMessage(t *testing.T) {
	err := fmt.Errorf("insert user: %w",
		shared.NewDomainError(shared.CodeAlreadyExists, "user with this email already exists", shared.ErrAlreadyExists))

	got := FromError(err)
	assert.Equal(t, http.StatusConflict, got.Status)
	assert.Equal(t, "user with this email already exists", got.Message)
	assert.NotContains(t, got.Message, "insert user")
}
