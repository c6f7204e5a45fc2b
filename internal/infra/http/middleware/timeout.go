package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/openctemio/scanledger/pkg/apierror"
)

// CodeTimeout is the envelope code of a request cut off by Timeout.
const CodeTimeout apierror.Code = "TIMEOUT"

// Timeout bounds handler run time. The handler runs on its own goroutine
// with a deadline on its context; if it has not started writing when the
// deadline passes the client gets 504 and later writes are dropped. A
// handler panic is re-raised on the serving goroutine for Recovery.
func Timeout(limit time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), limit)
			defer cancel()

			gw := &guardedWriter{ResponseWriter: w}
			done := make(chan any, 1)
			go func() {
				defer func() { done <- recover() }()
				next.ServeHTTP(gw, r.WithContext(ctx))
			}()

			select {
			case p := <-done:
				if p != nil {
					panic(p)
				}
			case <-ctx.Done():
				if gw.expire() {
					apierror.New(http.StatusGatewayTimeout, CodeTimeout, "Request timed out").
						WriteJSONWithRequestID(w, GetRequestID(r.Context()))
					return
				}
				// The handler owns the response; let it finish.
				if p := <-done; p != nil {
					panic(p)
				}
			}
		})
	}
}

// guardedWriter lets exactly one side own the response: the handler once
// it writes, or Timeout once it expires.
type guardedWriter struct {
	http.ResponseWriter

	mu      sync.Mutex
	started bool
	expired bool
}

// expire claims the response for the timeout path. It fails if the
// handler already started writing.
func (gw *guardedWriter) expire() bool {
	gw.mu.Lock()
	defer gw.mu.Unlock()

	if gw.started {
		return false
	}
	gw.expired = true
	return true
}

func (gw *guardedWriter) claim() bool {
	gw.mu.Lock()
	defer gw.mu.Unlock()

	if gw.expired {
		return false
	}
	gw.started = true
	return true
}

func (gw *guardedWriter) Write(b []byte) (int, error) {
	if !gw.claim() {
		return 0, context.DeadlineExceeded
	}
	return gw.ResponseWriter.Write(b)
}

func (gw *guardedWriter) WriteHeader(code int) {
	if gw.claim() {
		gw.ResponseWriter.WriteHeader(code)
	}
}
