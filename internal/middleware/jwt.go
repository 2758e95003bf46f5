package middleware // package middleware holds reusable echo middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/smartpark/internal/utils"
)

// BearerToken returns the raw token from the Authorization header, falling
// back to the "token" query parameter.  Browsers cannot set headers on a
// websocket handshake, so /ws passes the token in the query.
func BearerToken(c echo.Context) string {
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return c.QueryParam("token")
}

// JWTAuth validates an access token and stores its subject and role in the
// context as "user_id" and "role".  Requests without a valid token get 401.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := BearerToken(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set("user_id", claims.Subject)
			c.Set("role", claims.Role)
			return next(c)
		}
	}
}

// Protect chains JWTAuth and RequireRole when secret is set.  With no
// secret it lets every request through, matching a deployment without auth.
func Protect(secret string, roles ...string) []echo.MiddlewareFunc {
	if secret == "" {
		return nil
	}
	return []echo.MiddlewareFunc{JWTAuth(secret), RequireRole(roles...)}
}
