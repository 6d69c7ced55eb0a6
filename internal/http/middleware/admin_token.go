package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
)

// AdminTokenHeader carries the operator token for relay control routes.
const AdminTokenHeader = "X-Admin-Token"

// AdminTokenMiddleware rejects requests whose X-Admin-Token does not match
// token. An empty token disables the check.
func AdminTokenMiddleware(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if token == "" {
			return next
		}
		return func(c echo.Context) error {
			got := strings.TrimSpace(c.Request().Header.Get(AdminTokenHeader))
			if got == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing admin token"})
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid admin token"})
			}
			return next(c)
		}
	}
}
