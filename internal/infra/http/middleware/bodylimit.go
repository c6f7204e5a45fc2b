package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/openctemio/scanledger/pkg/apierror"
)

// DefaultMaxBodySize applies when no limit is configured.
const DefaultMaxBodySize = 1 << 20

// BodyLimit caps request bodies at maxBytes. A declared Content-Length over
// the cap is rejected with 413 before the handler runs; undeclared bodies are
// cut off by http.MaxBytesReader. Paths under exemptPrefixes enforce their
// own limit.
func BodyLimit(maxBytes int64, exemptPrefixes ...string) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodySize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !carriesBody(r.Method) || exempt(r.URL.Path, exemptPrefixes) {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > maxBytes {
				apierror.PayloadTooLarge("Request body too large").WriteJSON(w)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func carriesBody(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	}
	return true
}

func exempt(path string, prefixes []string) bool {
	return slices.ContainsFunc(prefixes, func(p string) bool {
		return strings.HasPrefix(path, p)
	})
}
