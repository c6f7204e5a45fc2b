// Package apierror defines the JSON error envelope returned by the
// scanledger API:
//
//	{"error": "NOT_FOUND", "code": "NOT_FOUND", "message": "...", "details": ..., "request_id": "..."}
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/openctemio/scanledger/pkg/domain/shared"
)

// Code is the machine readable error code of an envelope.
type Code string

const (
	CodeBadRequest           Code = "BAD_REQUEST"
	CodeNotFound             Code = "NOT_FOUND"
	CodeMethodNotAllowed     Code = "METHOD_NOT_ALLOWED"
	CodeConflict             Code = "CONFLICT"
	CodeInternalError        Code = "INTERNAL_ERROR"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeValidationFailed     Code = "VALIDATION_FAILED"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"
	CodePayloadTooLarge      Code = "PAYLOAD_TOO_LARGE"
	CodeUnsupportedMediaType Code = "UNSUPPORTED_FORMAT"
)

// requestIDHeader is set on the response by the request id middleware
// before any handler runs.
const requestIDHeader = "X-Request-ID"

// Error is an HTTP error ready to be written. Err is logged, never sent.
type Error struct {
	Status  int
	Code    Code
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Response is the wire form of an Error. Error duplicates Code for
// clients that only look at one field.
type Response struct {
	Error     string `json:"error"`
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ToResponse returns the envelope without a request id.
func (e *Error) ToResponse() Response {
	return Response{
		Error:   string(e.Code),
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// WriteJSON writes the envelope with e.Status. The request id is taken
// from the X-Request-ID response header when present.
func (e *Error) WriteJSON(w http.ResponseWriter) {
	e.WriteJSONWithRequestID(w, w.Header().Get(requestIDHeader))
}

// WriteJSONWithRequestID writes the envelope tagged with requestID.
func (e *Error) WriteJSONWithRequestID(w http.ResponseWriter, requestID string) {
	resp := e.ToResponse()
	resp.RequestID = requestID

	h := w.Header()
	h.Set("Content-Type", "application/json")
	if requestID != "" {
		h.Set(requestIDHeader, requestID)
	}
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(resp)
}

// New returns an Error with no details.
func New(status int, code Code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// BadRequest is a 400.
func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, CodeBadRequest, message)
}

// NotFound is a 404 naming resource, such as "Asset".
func NotFound(resource string) *Error {
	if resource == "" {
		return New(http.StatusNotFound, CodeNotFound, "Resource not found")
	}
	return New(http.StatusNotFound, CodeNotFound, resource+" not found")
}

// MethodNotAllowed is a 405 for a known path with the wrong method.
func MethodNotAllowed() *Error {
	return New(http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method not allowed")
}

// Conflict is a 409, used for rejected finding status transitions.
func Conflict(message string) *Error {
	return New(http.StatusConflict, CodeConflict, message)
}

// PayloadTooLarge is a 413 for uploads over the size limits.
func PayloadTooLarge(message string) *Error {
	return New(http.StatusRequestEntityTooLarge, CodePayloadTooLarge, message)
}

// UnsupportedFormat is a 415 for uploads that are neither JSON nor JSONL,
// or carry an unknown Content-Encoding.
func UnsupportedFormat(message string) *Error {
	return New(http.StatusUnsupportedMediaType, CodeUnsupportedMediaType, message)
}

// ValidationFailed is a 422. details is sent verbatim.
func ValidationFailed(message string, details any) *Error {
	e := New(http.StatusUnprocessableEntity, CodeValidationFailed, message)
	e.Details = details
	return e
}

// InternalError is a 500. The cause is kept for logging only.
func InternalError(err error) *Error {
	e := New(http.StatusInternalServerError, CodeInternalError, "An internal error occurred")
	e.Err = err
	return e
}

// ServiceUnavailable is a 503.
func ServiceUnavailable(message string) *Error {
	if message == "" {
		message = "Service temporarily unavailable"
	}
	return New(http.StatusServiceUnavailable, CodeServiceUnavailable, message)
}

// RateLimitExceeded is a 429.
func RateLimitExceeded() *Error {
	return New(http.StatusTooManyRequests, CodeRateLimitExceeded, "Rate limit exceeded")
}

// sentinelMapping maps domain sentinels to envelopes, first match wins.
// exposeMessage controls whether err.Error() reaches the client.
var sentinelMapping = []struct {
	sentinel      error
	status        int
	code          Code
	message       string
	exposeMessage bool
}{
	{shared.ErrNotFound, http.StatusNotFound, CodeNotFound, "Resource not found", false},
	{shared.ErrAlreadyExists, http.StatusConflict, CodeConflict, "Resource conflict", false},
	{shared.ErrConflict, http.StatusConflict, CodeConflict, "Resource conflict", false},
	{shared.ErrValidation, http.StatusBadRequest, CodeBadRequest, "", true},
	{shared.ErrInvalidInput, http.StatusBadRequest, CodeBadRequest, "", true},
	{shared.ErrUnavailable, http.StatusServiceUnavailable, CodeServiceUnavailable, "Service temporarily unavailable", false},
}

// FromError converts err into an Error. An *Error anywhere in the chain
// is returned as is; unknown errors become 500.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	for _, m := range sentinelMapping {
		if !errors.Is(err, m.sentinel) {
			continue
		}
		msg := m.message
		if m.exposeMessage {
			msg = err.Error()
		} else if de, ok := shared.AsDomainError(err); ok {
			msg = de.Message
		}
		return &Error{Status: m.status, Code: m.code, Message: msg, Err: err}
	}
	return InternalError(err)
}

// ValidationError is one field failure inside a 422 envelope.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects field failures.
type ValidationErrors []ValidationError

// Add appends a field failure.
func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, ValidationError{Field: field, Message: message})
}

// HasErrors reports whether any failure was added.
func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

// ToAPIError wraps the failures in a 422 envelope.
func (v ValidationErrors) ToAPIError() *Error {
	return ValidationFailed("Validation failed", v)
}
