package asset

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// NormalizeHost lowercases a host and strips scheme, path, port and trailing dots.
// Values that do not look like URLs or host:port pairs are returned trimmed.
func NormalizeHost(raw string) string {
	host := strings.TrimSpace(raw)
	if host == "" {
		return ""
	}

	if strings.Contains(host, "://") {
		if u, err := url.Parse(host); err == nil && u.Hostname() != "" {
			host = u.Hostname()
		}
	} else if i := strings.LastIndex(host, ":"); i > 0 && strings.Count(host, ":") == 1 {
		host = host[:i]
	}

	host = strings.ToLower(host)
	return strings.TrimSuffix(host, ".")
}

// ExtractRootDomain returns the registrable domain (eTLD+1) of a hostname.
// e.g., "api.example.co.uk" -> "example.co.uk"
func ExtractRootDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	domain = strings.TrimPrefix(domain, "*.")
	domain = strings.TrimSuffix(domain, ".")

	etld1, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		// Fallback: last two labels
		parts := strings.Split(domain, ".")
		if len(parts) >= 2 {
			return strings.Join(parts[len(parts)-2:], ".")
		}
		return domain
	}
	return etld1
}
