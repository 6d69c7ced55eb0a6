package http

import (
	"net/http"

	echo "github.com/labstack/echo/v4"
)

// runRelayHandler runs one cycle synchronously, alongside any scheduled
// cycle, and returns its summary.
func runRelayHandler(r relayRunner) echo.HandlerFunc {
	return func(c echo.Context) error {
		s := r.Run(c.Request().Context())
		if s.ClaimFailed {
			return c.JSON(http.StatusServiceUnavailable, s)
		}
		return c.JSON(http.StatusOK, s)
	}
}
