package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/openctemio/scanledger/pkg/apierror"
	"github.com/openctemio/scanledger/pkg/validator"
)

// ListResponse represents a list response.
// This is a generic type that can be reused across all handlers.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleValidationError converts validator errors into a 422 response.
// Any other error is written as a 400.
func handleValidationError(w http.ResponseWriter, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		details := make(apierror.ValidationErrors, 0, len(ve))
		for _, e := range ve {
			details.Add(e.Field, e.Message)
		}
		details.ToAPIError().WriteJSON(w)
		return
	}
	apierror.BadRequest(err.Error()).WriteJSON(w)
}

// parseQueryInt parses a query parameter as an integer.
// Returns defaultVal if the input is empty or invalid.
func parseQueryInt(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return val
}
