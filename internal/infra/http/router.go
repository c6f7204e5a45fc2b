// Package http wires the scanledger API onto a router and an http.Server.
package http

import (
	"net/http"
	"slices"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Router is what route registration sees. chiRouter implements it; tests and
// the routes package never touch chi directly.
type Router interface {
	GET(path string, handler http.HandlerFunc, middlewares ...Middleware)
	POST(path string, handler http.HandlerFunc, middlewares ...Middleware)
	PUT(path string, handler http.HandlerFunc, middlewares ...Middleware)
	PATCH(path string, handler http.HandlerFunc, middlewares ...Middleware)
	DELETE(path string, handler http.HandlerFunc, middlewares ...Middleware)

	// Group mounts the routes registered by fn under prefix.
	Group(prefix string, fn func(Router), middlewares ...Middleware)

	// Use appends router-wide middleware; call it before registering routes.
	Use(middlewares ...Middleware)

	Handler() http.Handler

	Walk(fn func(method, path string, handler http.Handler) error) error
}

// Chain wraps handler so that middlewares[0] runs first.
func Chain(handler http.Handler, middlewares ...Middleware) http.Handler {
	for _, mw := range slices.Backward(middlewares) {
		handler = mw(handler)
	}
	return handler
}
