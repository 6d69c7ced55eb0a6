package cmd

import (
	"fmt"
	"time"

	"github.com/jmehdipour/outbox-relay/internal/app"
	"github.com/jmehdipour/outbox-relay/internal/model"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	tickSymbol   string
	tickPrice    float64
	tickVolume   int64
	tickCurrency string
	tickAt       string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Record a market tick and enqueue it for relay",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := app.Bootstrap(cfgPath)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		tick := model.MarketTick{
			Symbol:   tickSymbol,
			Price:    tickPrice,
			Volume:   tickVolume,
			Currency: tickCurrency,
		}
		if tickAt != "" {
			ts, err := time.Parse(time.RFC3339, tickAt)
			if err != nil {
				return fmt.Errorf("parse --at: %w", err)
			}
			tick.OccurredAt = ts
		}

		a, err := app.New(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		res, err := a.Ingest.Ingest(cmd.Context(), tick)
		if err != nil {
			return err
		}
		log.Info("tick enqueued",
			zap.String("event_id", res.EventID),
			zap.String("trace_id", res.TraceID),
			zap.String("symbol", tick.Symbol),
		)

		return printJSON(res)
	},
}

func init() {
	ingestCmd.Flags().StringVar(&tickSymbol, "symbol", "", "ticker symbol, e.g. AAPL")
	ingestCmd.Flags().Float64Var(&tickPrice, "price", 0, "last price")
	ingestCmd.Flags().Int64Var(&tickVolume, "volume", 0, "traded volume")
	ingestCmd.Flags().StringVar(&tickCurrency, "currency", "", "ISO currency code (default USD)")
	ingestCmd.Flags().StringVar(&tickAt, "at", "", "tick time in RFC3339 (default now)")
	_ = ingestCmd.MarkFlagRequired("symbol")
	_ = ingestCmd.MarkFlagRequired("price")
}
