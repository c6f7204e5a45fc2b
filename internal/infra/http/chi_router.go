package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/openctemio/scanledger/pkg/apierror"
)

// chiRouter is the chi-backed Router.
type chiRouter struct {
	mux chi.Router
}

var _ Router = (*chiRouter)(nil)

// NewChiRouter creates a Router backed by chi. Unknown routes and methods
// answer with the same JSON error envelope as the handlers.
func NewChiRouter() Router {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)       // RemoteAddr from X-Real-IP / X-Forwarded-For
	r.Use(chimw.CleanPath)    // Collapse double slashes
	r.Use(chimw.StripSlashes) // "/api/v1/assets/" == "/api/v1/assets"

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		apierror.NotFound("Route").WriteJSON(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		apierror.MethodNotAllowed().WriteJSON(w)
	})

	return &chiRouter{mux: r}
}

func (r *chiRouter) GET(path string, h http.HandlerFunc, mws ...Middleware) {
	r.mux.Method(http.MethodGet, path, Chain(h, mws...))
}

func (r *chiRouter) POST(path string, h http.HandlerFunc, mws ...Middleware) {
	r.mux.Method(http.MethodPost, path, Chain(h, mws...))
}

func (r *chiRouter) PUT(path string, h http.HandlerFunc, mws ...Middleware) {
	r.mux.Method(http.MethodPut, path, Chain(h, mws...))
}

func (r *chiRouter) PATCH(path string, h http.HandlerFunc, mws ...Middleware) {
	r.mux.Method(http.MethodPatch, path, Chain(h, mws...))
}

func (r *chiRouter) DELETE(path string, h http.HandlerFunc, mws ...Middleware) {
	r.mux.Method(http.MethodDelete, path, Chain(h, mws...))
}

// Group mounts fn's routes under prefix. Group middleware runs after the
// router-wide middleware and before any route middleware.
func (r *chiRouter) Group(prefix string, fn func(Router), mws ...Middleware) {
	r.mux.Route(prefix, func(cr chi.Router) {
		for _, mw := range mws {
			cr.Use(mw)
		}
		fn(&chiRouter{mux: cr})
	})
}

func (r *chiRouter) Use(mws ...Middleware) {
	for _, mw := range mws {
		r.mux.Use(mw)
	}
}

func (r *chiRouter) Handler() http.Handler {
	return r.mux
}

// Walk visits every registered route, skipping chi's mount wildcards.
func (r *chiRouter) Walk(fn func(method, path string, handler http.Handler) error) error {
	return chi.Walk(r.mux, func(method, route string, handler http.Handler, _ ...func(http.Handler) http.Handler) error {
		if route == "/*" {
			return nil
		}
		return fn(method, route, handler)
	})
}
