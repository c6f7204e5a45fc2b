package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/openctemio/scanledger/pkg/apierror"
	"github.com/openctemio/scanledger/pkg/logger"
)

// Recovery turns a handler panic into a 500 envelope. The stack is only
// logged outside production. http.ErrAbortHandler is re-raised so the
// server aborts the connection as the handler intended.
func Recovery(log *logger.Logger, isProduction bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if err, ok := p.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(p)
				}

				requestID := GetRequestID(r.Context())
				attrs := []any{
					"panic", fmt.Sprint(p),
					"method", r.Method,
					"path", r.URL.Path,
					"request_id", requestID,
				}
				if !isProduction {
					attrs = append(attrs, "stack", string(debug.Stack()))
				}
				log.Error("handler panicked", attrs...)

				apierror.InternalError(fmt.Errorf("panic: %v", p)).WriteJSONWithRequestID(w, requestID)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
