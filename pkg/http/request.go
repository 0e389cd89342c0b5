package http

import (
	"net"
	"net/http"
	"strings"
)

// ExtractClientIP returns the network origin for a request. The service
// runs behind the hosting platform's proxy, so the forwarded headers are
// consulted first; when nothing usable is present the origin is
// "unknown" rather than empty so limiter keys and audit records stay
// well-formed.
//
// Order: X-Forwarded-For (first valid entry) → X-Real-IP → RemoteAddr.
func ExtractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, ip := range strings.Split(xff, ",") {
			ip = strings.TrimSpace(ip)
			if isValidIP(ip) {
				return ip
			}
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if isValidIP(xri) {
			return xri
		}
	}

	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && isValidIP(host) {
			return host
		}
		if isValidIP(r.RemoteAddr) {
			return r.RemoteAddr
		}
	}

	return "unknown"
}

// ClientAgent returns the User-Agent header, or "unknown" when absent.
func ClientAgent(r *http.Request) string {
	if agent := r.Header.Get("User-Agent"); agent != "" {
		return agent
	}
	return "unknown"
}

func isValidIP(ip string) bool {
	return net.ParseIP(ip) != nil
}
