package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labportal/portal/shared/domain"
	"github.com/labportal/portal/shared/middleware/ratelimiter"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit(t *testing.T) {
	t.Run("allows request within rate limit", func(t *testing.T) {
		rl := ratelimiter.New(1, 1, time.Minute)
		handler := RateLimit(rl, func(r *http.Request) (string, error) { return "user1", nil })(okHandler())

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("error getting identity", func(t *testing.T) {
		rl := ratelimiter.New(1, 1, time.Minute)
		handler := RateLimit(rl, func(r *http.Request) (string, error) { return "", errors.New("Test error") })(okHandler())

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("blocks request exceeding rate limit", func(t *testing.T) {
		rl := ratelimiter.New(1, 1, time.Minute)
		handler := RateLimit(rl, func(r *http.Request) (string, error) { return "user1", nil })(okHandler())

		w1 := httptest.NewRecorder()
		handler.ServeHTTP(w1, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusOK, w1.Code)

		w2 := httptest.NewRecorder()
		handler.ServeHTTP(w2, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusTooManyRequests, w2.Code)
		assert.JSONEq(t, `{"error":"Rate limit exceeded, try again later"}`, w2.Body.String())
	})

	t.Run("uses identity function to determine user", func(t *testing.T) {
		rl := ratelimiter.New(1, 1, time.Minute)
		handler := RateLimit(rl, func(r *http.Request) (string, error) { return r.Header.Get("X-User-ID"), nil })(okHandler())

		send := func(user string) int {
			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set("X-User-ID", user)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			return w.Code
		}

		assert.Equal(t, http.StatusOK, send("user1"))
		assert.Equal(t, http.StatusOK, send("user2"))
		assert.Equal(t, http.StatusTooManyRequests, send("user1"))
	})
}

func TestGetUserIDFromContext(t *testing.T) {
	t.Run("returns user id when user exists in context", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req = req.WithContext(WithUser(req.Context(), &domain.User{Id: 123}))

		userID, err := GetUserIDFromContext(req)
		require.NoError(t, err)
		assert.Equal(t, "user_123", userID)
	})

	t.Run("returns error when user not in context", func(t *testing.T) {
		userID, err := GetUserIDFromContext(httptest.NewRequest("GET", "/", nil))
		assert.Error(t, err)
		assert.Empty(t, userID)
	})
}

func TestGetIP(t *testing.T) {
	tests := []struct {
		remoteAddr string
		want       string
		wantErr    bool
	}{
		{"192.168.1.100:54321", "192.168.1.100", false},
		{"[2001:db8::1]:8080", "2001:db8::1", false},
		{"192.168.1.1", "192.168.1.1", false},
		{"not-an-ip:1234", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.remoteAddr, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/test", nil)
			req.RemoteAddr = tt.remoteAddr
			req.Header.Set("X-Forwarded-For", "10.0.0.2")

			ip, err := GetIP(req)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ip)
		})
	}
}

func TestRateLimitRetryAfter(t *testing.T) {
	rl := ratelimiter.New(0.5, 1, time.Minute)
	handler := RateLimit(rl, func(r *http.Request) (string, error) { return "author", nil })(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/compose/lab/fields", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Retry-After"))

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/compose/lab/fields", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
}
