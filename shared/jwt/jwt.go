// Package jwt reads portal access tokens.
package jwt

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/labportal/portal/shared/domain"
	internal_errors "github.com/labportal/portal/shared/errors"
	"github.com/labportal/portal/shared/logger"
)

// clockSkew tolerated between the portal that issues tokens and this service.
const clockSkew = 30 * time.Second

// Claims is the access-token payload the portal signs.
type Claims struct {
	UserID domain.UserId `json:"uid"`
	Admin  bool          `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// JwtService decodes portal access tokens. Tokens are issued by the portal; NewToken
// exists for local tooling and tests.
type JwtService interface {
	NewToken(user domain.User) (string, error)
	UserFromToken(jwtStr string) (*domain.User, error)
}

type Jwt struct {
	secretKey []byte
	ttl       time.Duration
	parser    *jwt.Parser
}

func New(secretKey string, ttl time.Duration) JwtService {
	return &Jwt{
		secretKey: []byte(secretKey),
		ttl:       ttl,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockSkew),
		),
	}
}

func (j *Jwt) NewToken(user domain.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: user.Id,
		Admin:  user.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secretKey)
	if err != nil {
		logger.Log.Error("failed to sign token", "error", err)
		return "", fmt.Errorf("can't create token: %w", err)
	}
	return signed, nil
}

// UserFromToken verifies the token and extracts the author identity. The raw token is
// kept so calls to the portal API are made on the user's behalf.
func (j *Jwt) UserFromToken(jwtStr string) (*domain.User, error) {
	var claims Claims
	if _, err := j.parser.ParseWithClaims(jwtStr, &claims, func(*jwt.Token) (any, error) {
		return j.secretKey, nil
	}); err != nil {
		logger.Log.Debug("token rejected", "error", err)
		msg := "Invalid access token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			msg = "Access token expired, please sign in again"
		}
		return nil, &internal_errors.ErrorWithStatusCode{Message: msg, StatusCode: http.StatusUnauthorized}
	}

	if claims.UserID <= 0 {
		return nil, &internal_errors.ErrorWithStatusCode{Message: "Token has no user id", StatusCode: http.StatusUnauthorized}
	}
	return &domain.User{Id: claims.UserID, Admin: claims.Admin, Token: jwtStr}, nil
}
