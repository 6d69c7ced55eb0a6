package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/jmehdipour/outbox-relay/internal/model"
	"github.com/jmehdipour/outbox-relay/internal/service/ingest"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

type tickReq struct {
	Symbol     string     `json:"symbol"`
	Price      float64    `json:"price"`
	Volume     int64      `json:"volume"`
	Currency   string     `json:"currency"`
	OccurredAt *time.Time `json:"occurred_at"` // optional, defaults to now
}

func ingestTickHandler(svc tickIngester) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req tickReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		tick := model.MarketTick{
			Symbol:   req.Symbol,
			Price:    req.Price,
			Volume:   req.Volume,
			Currency: req.Currency,
		}
		if req.OccurredAt != nil {
			tick.OccurredAt = *req.OccurredAt
		}

		// raw payload + canonical event + outbox in one TX
		res, err := svc.Ingest(c.Request().Context(), tick)
		if err != nil {
			if errors.Is(err, ingest.ErrInvalidTick) {
				return c.JSON(http.StatusBadRequest, map[string]string{
					"error":       "invalid_tick",
					"description": err.Error(),
				})
			}

			log.Errorf("ingest failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusAccepted, map[string]any{
			"accepted": true,
			"event_id": res.EventID,
			"trace_id": res.TraceID,
		})
	}
}
