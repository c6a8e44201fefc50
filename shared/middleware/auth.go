package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labportal/portal/shared/domain"
	"github.com/labportal/portal/shared/errors"
	jwt_internal "github.com/labportal/portal/shared/jwt"
	"github.com/labportal/portal/shared/utils"
)

// AccessTokenCookie is the cookie the portal sets on sign-in.
const AccessTokenCookie = "accessToken"

// Key to store the user in the request context
type key int

const UserClaimsKey key = 0

// Auth identifies the author of composer requests from the portal access token.
type Auth struct {
	jwtService jwt_internal.JwtService
}

func NewAuth(jwtService jwt_internal.JwtService) *Auth {
	return &Auth{jwtService: jwtService}
}

// NeedAuth returns middleware that requires a valid access token.
func (a *Auth) NeedAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := tokenFromRequest(r)
			if tokenString == "" {
				utils.WriteErrorAndStatusCode(w, &errors.ErrorWithStatusCode{Message: "Please sign-in", StatusCode: http.StatusUnauthorized})
				return
			}

			user, err := a.jwtService.UserFromToken(tokenString)
			if err != nil {
				utils.WriteErrorAndStatusCode(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), UserClaimsKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// tokenFromRequest prefers the browser cookie and falls back to a bearer header.
func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); found {
		return token
	}
	return ""
}

// GetUserFromContext retrieves the user from the context
func GetUserFromContext(r *http.Request) *domain.User {
	user, ok := r.Context().Value(UserClaimsKey).(*domain.User)
	if !ok {
		return nil
	}
	return user
}

// WithUser is used by tests and internal callers that already know the author.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, UserClaimsKey, user)
}
