package middleware

import (
	"maps"
	"net/http"
)

// apiHeaders apply to every composer response. Draft contents are private to their
// author, so nothing may be cached or embedded.
var apiHeaders = map[string]string{
	"X-Frame-Options":              "DENY",
	"X-Content-Type-Options":       "nosniff",
	"Referrer-Policy":              "no-referrer",
	"Cross-Origin-Resource-Policy": "same-site",
	"Cross-Origin-Opener-Policy":   "same-origin",
	"Cache-Control":                "no-store",
}

// SecurityHeaders adds the response headers every composer answer carries.
// isHTTPS enables Strict-Transport-Security. csp is skipped when empty.
func SecurityHeaders(isHTTPS bool, csp string) func(http.Handler) http.Handler {
	headers := maps.Clone(apiHeaders)
	if csp != "" {
		headers["Content-Security-Policy"] = csp
	}
	if isHTTPS {
		headers["Strict-Transport-Security"] = "max-age=31536000; includeSubDomains"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for k, v := range headers {
				h.Set(k, v)
			}
			next.ServeHTTP(w, r)
		})
	}
}
