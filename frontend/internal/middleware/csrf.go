// Package middleware holds the composer API's double-submit CSRF protection.
package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	internal_errors "github.com/labportal/portal/shared/errors"
	"github.com/labportal/portal/shared/logger"
	"github.com/labportal/portal/shared/utils"
)

const (
	csrfCookieName = "csrf_token"
	csrfFormField  = "csrf_token"
	CSRFHeader     = "X-CSRF-Token"

	// csrfCookiePath limits the cookie to the composer API.
	csrfCookiePath      = "/compose"
	csrfTokenBytes      = 32
	defaultCSRFLifetime = 12 * time.Hour
)

type csrfContextKey struct{}

// CSRFConfig configures the token cookie.
type CSRFConfig struct {
	SecureCookies bool
	// Lifetime of the cookie; 12h when zero.
	Lifetime time.Duration
}

// unsafeMethods are the methods that change composer state.
var unsafeMethods = map[string]bool{
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

func newCSRFToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func tokensMatch(cookieToken, submitted string) bool {
	if cookieToken == "" || submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookieToken), []byte(submitted)) == 1
}

// GenerateCSRFToken sets the CSRF cookie when missing and echoes the token in the
// X-CSRF-Token response header so the composer page can send it back.
func GenerateCSRFToken(config CSRFConfig) func(http.Handler) http.Handler {
	lifetime := config.Lifetime
	if lifetime <= 0 {
		lifetime = defaultCSRFLifetime
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			if cookie, err := r.Cookie(csrfCookieName); err == nil && cookie.Value != "" {
				token = cookie.Value
			} else {
				if token, err = newCSRFToken(); err != nil {
					logger.Log.Error("failed to generate CSRF token", "error", err)
					utils.WriteErrorAndStatusCode(w, err)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     csrfCookieName,
					Value:    token,
					Path:     csrfCookiePath,
					HttpOnly: true,
					Secure:   config.SecureCookies,
					SameSite: http.SameSiteLaxMode,
					MaxAge:   int(lifetime.Seconds()),
				})
			}

			w.Header().Set(CSRFHeader, token)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), csrfContextKey{}, token)))
		})
	}
}

// ValidateCSRFToken checks state-changing requests. The token comes from the
// X-CSRF-Token header, or from the csrf_token field of a url-encoded body, which is
// all a page-unload beacon can carry.
func ValidateCSRFToken() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !unsafeMethods[r.Method] {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(csrfCookieName)
			if err != nil {
				forbid(w, r, "CSRF token missing")
				return
			}

			submitted := r.Header.Get(CSRFHeader)
			if submitted == "" && strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
				if err := r.ParseForm(); err != nil {
					utils.WriteErrorAndStatusCode(w, &internal_errors.ValidationError{Field: csrfFormField, Message: "invalid form data"})
					return
				}
				submitted = r.PostFormValue(csrfFormField)
			}

			if !tokensMatch(cookie.Value, submitted) {
				forbid(w, r, "CSRF token invalid")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forbid(w http.ResponseWriter, r *http.Request, reason string) {
	logger.Log.Warn("rejected composer request", "reason", reason, "method", r.Method, "path", r.URL.Path)
	utils.WriteErrorAndStatusCode(w, &internal_errors.ErrorWithStatusCode{Message: reason, StatusCode: http.StatusForbidden})
}

// GetCSRFTokenFromContext returns the token GenerateCSRFToken put on the request.
func GetCSRFTokenFromContext(r *http.Request) string {
	token, _ := r.Context().Value(csrfContextKey{}).(string)
	return token
}
