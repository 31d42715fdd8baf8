package helpers

import (
	"strconv"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/smartsubmit/smartsubmit/core"
	"github.com/smartsubmit/smartsubmit/core/user"
)

// ClaimsContextKey is where the JWT middleware stores the parsed token.
const ClaimsContextKey = "userToken"

// JWTMiddleware returns the bearer-token middleware. Tokens carry only the
// user id and expiry; role membership is re-queried per request so revoked
// privileges take effect immediately.
func JWTMiddleware(conf *core.Config) echo.MiddlewareFunc {
	return middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    ClaimsContextKey,
		Claims:        new(user.Claims),
	})
}

// ContextUserID extracts the authenticated user id from the request context.
func ContextUserID(ctx echo.Context) (int, error) {
	if token, ok := ctx.Get(ClaimsContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*user.Claims); ok {
			if id, err := strconv.Atoi(claims.Subject); err == nil {
				return id, nil
			}
		}
	}
	return 0, ErrUnauthenticated
}
