package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/jmehdipour/outbox-relay/internal/model"
	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

type deadLetterResponse struct {
	model.DeadLetter
	State   model.StateName `json:"state"`
	Payload json.RawMessage `json:"payload"`
}

func listDeadLettersHandler(dl deadLetterQuerier) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := defaultListLimit
		offset := 0
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = min(n, maxListLimit)
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		rows, err := dl.List(c.Request().Context(), limit, offset)
		if err != nil {
			c.Logger().Errorf("list dead letters failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(rows),
			"results": rows,
		})
	}
}

func getDeadLetterHandler(dl deadLetterQuerier) echo.HandlerFunc {
	return func(c echo.Context) error {
		eventID := strings.TrimSpace(c.Param("event_id"))

		d, found, err := dl.Get(c.Request().Context(), eventID)
		if err != nil {
			log.Errorf("get dead letter %s failed: %v", eventID, err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}
		if !found {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
		}

		resp := deadLetterResponse{DeadLetter: d.DeadLetter, State: model.StateDeadLettered}
		if json.Valid(d.Payload) {
			resp.Payload = d.Payload
		}

		return c.JSON(http.StatusOK, resp)
	}
}
