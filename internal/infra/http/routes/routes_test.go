package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openctemio/scanledger/internal/app"
	"github.com/openctemio/scanledger/internal/app/ingest"
	infrahttp "github.com/openctemio/scanledger/internal/infra/http"
	"github.com/openctemio/scanledger/internal/infra/http/handler"
	"github.com/openctemio/scanledger/pkg/logger"
	"github.com/openctemio/scanledger/pkg/validator"
)

type stubIngester struct{ calls int }

func (s *stubIngester) Ingest(context.Context, ingest.Input) (*ingest.Output, error) {
	s.calls++
	return &ingest.Output{Stage: ingest.StageComplete}, nil
}

type stubPolicy struct{}

func (stubPolicy) GetPolicy(context.Context) app.SLAPolicyView {
	return app.SLAPolicyView{Days: map[string]int{"critical": 2}, DueSoonDays: 3}
}

func TestRegister_Routes(t *testing.T) {
	router := infrahttp.NewChiRouter()
	Register(router, Handlers{
		Health: handler.NewHealthHandler(),
		Ingest: handler.NewIngestHandler(&stubIngester{}, validator.New(), 0, logger.NewNop()),
		SLA:    handler.NewSLAHandler(stubPolicy{}),
	}, Options{})

	var got []string
	require.NoError(t, router.Walk(func(method, path string, _ http.Handler) error {
		got = append(got, method+" "+strings.TrimSuffix(path, "/"))
		return nil
	}))
	sort.Strings(got)

	assert.Equal(t, []string{
		"GET /api/v1/sla/policy",
		"GET /health",
		"GET /metrics",
		"GET /ready",
		"POST /api/v1/batches",
	}, got)
}

func TestRegister_UploadMiddlewares(t *testing.T) {
	svc := &stubIngester{}
	reject := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}

	router := infrahttp.NewChiRouter()
	Register(router, Handlers{
		Ingest: handler.NewIngestHandler(svc, validator.New(), 0, logger.NewNop()),
		SLA:    handler.NewSLAHandler(stubPolicy{}),
	}, Options{UploadMiddlewares: []Middleware{reject}})

	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/batches?filename=a.json", strings.NewReader("[]")))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Zero(t, svc.calls)

	rec = httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sla/policy", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "upload middleware must not leak onto other routes")
}

func TestRouter_UnknownRoutes(t *testing.T) {
	router := infrahttp.NewChiRouter()
	Register(router, Handlers{SLA: handler.NewSLAHandler(stubPolicy{})}, Options{})

	tests := []struct {
		name   string
		method string
		path   string
		status int
		code   string
	}{
		{"unknown path", http.MethodGet, "/api/v1/nope", http.StatusNotFound, `"NOT_FOUND"`},
		{"wrong method", http.MethodDelete, "/api/v1/sla/policy", http.StatusMethodNotAllowed, `"METHOD_NOT_ALLOWED"`},
		{"trailing slash", http.MethodGet, "/api/v1/sla/policy/", http.StatusOK, `"due_soon_days"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.Handler().ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.code)
		})
	}
}
