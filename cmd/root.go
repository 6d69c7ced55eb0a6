package cmd

import (
	"fmt"
	"os"

	"github.com/jmehdipour/outbox-relay/cmd/worker"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	rootCmd = &cobra.Command{
		Use:   "outbox-relay",
		Short: "Transactional outbox relay CLI",
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(relayCmd)
	rootCmd.AddCommand(tailCmd)
	rootCmd.AddCommand(worker.NewWorkerCmd())
}
