package middleware

import (
	"net"
	"net/http"
	"strings"
)

// clientIP picks the caller address used as a rate limit key. Proxy
// headers are trusted, so the API must sit behind a proxy that rewrites
// X-Real-IP and X-Forwarded-For.
func clientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
