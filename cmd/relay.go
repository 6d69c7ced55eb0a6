package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jmehdipour/outbox-relay/internal/app"
	"github.com/jmehdipour/outbox-relay/internal/model"
	"github.com/jmehdipour/outbox-relay/internal/repository"
	"github.com/spf13/cobra"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run or inspect the outbox relay",
}

var relayOnceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single relay cycle and print its summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := app.Bootstrap(cfgPath)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		a, err := app.New(cmd.Context(), cfg, log, app.WithRelay())
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		summary := a.Cycle.Run(cmd.Context())
		if err := printJSON(summary); err != nil {
			return err
		}
		if summary.ClaimFailed {
			return fmt.Errorf("relay cycle could not claim records")
		}

		return nil
	},
}

var (
	dlLimit  int
	dlOffset int
)

var relayDeadLettersCmd = &cobra.Command{
	Use:   "dead-letters [event_id]",
	Short: "List dead-lettered records, or show one by event id",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := app.Bootstrap(cfgPath)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		a, err := app.New(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		if len(args) == 0 {
			items, err := a.DeadLetters.List(cmd.Context(), dlLimit, dlOffset)
			if err != nil {
				return fmt.Errorf("list dead letters: %w", err)
			}
			return printJSON(items)
		}

		d, found, err := a.DeadLetters.Get(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("get dead letter: %w", err)
		}
		if !found {
			return fmt.Errorf("dead letter %q not found", args[0])
		}

		return printJSON(struct {
			model.DeadLetter
			Payload json.RawMessage `json:"payload"`
		}{d.DeadLetter, json.RawMessage(d.Payload)})
	},
}

func init() {
	relayDeadLettersCmd.Flags().IntVar(&dlLimit, "limit", repository.DefaultDeadLetterLimit, "max rows to list")
	relayDeadLettersCmd.Flags().IntVar(&dlOffset, "offset", 0, "rows to skip")
	relayCmd.AddCommand(relayOnceCmd)
	relayCmd.AddCommand(relayDeadLettersCmd)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
