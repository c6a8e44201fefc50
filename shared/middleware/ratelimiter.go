package middleware

import (
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	internal_errors "github.com/labportal/portal/shared/errors"
	"github.com/labportal/portal/shared/logger"
	"github.com/labportal/portal/shared/middleware/ratelimiter"
	"github.com/labportal/portal/shared/utils"
)

// IdentityFunc names the caller a request is counted against.
type IdentityFunc func(r *http.Request) (string, error)

var rateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "portal_frontend",
	Name:      "rate_limited_requests_total",
	Help:      "Requests refused by the per-identity rate limiter",
})

// RateLimit refuses requests beyond the identity's budget with 429 and a Retry-After
// header in whole seconds.
func RateLimit(rl *ratelimiter.UserRateLimiter, identify IdentityFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := identify(r)
			if err != nil {
				utils.WriteErrorAndStatusCode(w, err)
				return
			}

			allowed, wait := rl.Check(identity)
			if !allowed {
				rateLimitedTotal.Inc()
				logger.Log.Debug("rate limited", "identity", identity, "path", r.URL.Path, "retry_after", wait)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				utils.WriteErrorAndStatusCode(w, &internal_errors.ErrorWithStatusCode{
					Message:    "Rate limit exceeded, try again later",
					StatusCode: http.StatusTooManyRequests,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserIDFromContext identifies the author set by NeedAuth.
func GetUserIDFromContext(r *http.Request) (string, error) {
	user := GetUserFromContext(r)
	if user == nil {
		return "", errors.New("no authenticated user on request")
	}
	return fmt.Sprintf("user_%d", user.Id), nil
}

// GetIP identifies the caller by RemoteAddr. Forwarding headers are ignored; a proxy
// in front is expected to rewrite RemoteAddr.
func GetIP(r *http.Request) (string, error) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if net.ParseIP(host) == nil {
		return "", fmt.Errorf("invalid IP address: %q", host)
	}
	return host, nil
}
