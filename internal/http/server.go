package http

import (
	"context"
	"net/http"

	"github.com/jmehdipour/outbox-relay/internal/http/middleware"
	"github.com/jmehdipour/outbox-relay/internal/model"
	"github.com/jmehdipour/outbox-relay/internal/relay"
	"github.com/jmehdipour/outbox-relay/internal/service/ingest"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type relayRunner interface {
	Run(ctx context.Context) relay.Summary
}

type deadLetterQuerier interface {
	List(ctx context.Context, limit, offset int) ([]model.DeadLetter, error)
	Get(ctx context.Context, eventID string) (*model.DeadLetterDetail, bool, error)
}

type tickIngester interface {
	Ingest(ctx context.Context, tick model.MarketTick) (ingest.Result, error)
}

// Deps are the services behind the HTTP routes.
type Deps struct {
	Relay       relayRunner
	DeadLetters deadLetterQuerier
	Ingest      tickIngester
	Gatherer    prometheus.Gatherer // defaults to prometheus.DefaultGatherer
	AdminToken  string
	LogLevel    string
	Logger      *zap.Logger
}

type Server struct {
	e   *echo.Echo
	log *zap.Logger
}

func NewServer(d Deps) *Server {
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(echoLevel(d.LogLevel))
	e.Use(echoMid.Recover(), echoMid.Logger())

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))

	// health
	health := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	e.GET("/health", health)
	e.GET("/healthz", health)

	// relay control and dead-letter inspection
	adminMW := middleware.AdminTokenMiddleware(d.AdminToken)
	e.POST("/run-relay", runRelayHandler(d.Relay), adminMW)
	e.GET("/dead-letters", listDeadLettersHandler(d.DeadLetters), adminMW)
	e.GET("/dead-letters/:event_id", getDeadLetterHandler(d.DeadLetters), adminMW)

	// producer
	e.POST("/v1/ticks", ingestTickHandler(d.Ingest))

	return &Server{e: e, log: d.Logger}
}

func (s *Server) Start(addr string) error {
	s.log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }

func (s *Server) Handler() http.Handler { return s.e }

func echoLevel(level string) log.Lvl {
	switch level {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	default:
		return log.INFO
	}
}
